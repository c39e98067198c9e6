// Package irexec executes modules produced by codegen.
//
// It understands the subset of LLVM IR the generator emits: i32 and i1
// integers, allocas of i32 and i32 arrays, loads, stores, element
// pointers, integer arithmetic and comparisons, phi nodes, branches,
// returns and direct calls. Reading memory that was never stored to is
// a trap, as it is undefined in the compiled program. Execution is
// bounded by a step budget and a call depth limit.
package irexec

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

var (
	ErrNoFunction    = errors.New("no such function")
	ErrDivideByZero  = errors.New("integer division by zero")
	ErrOverflow      = errors.New("integer overflow in division")
	ErrOutOfBounds   = errors.New("memory access out of bounds")
	ErrUninitialized = errors.New("load of uninitialized memory")
	ErrStepLimit     = errors.New("step limit exceeded")
	ErrCallDepth     = errors.New("call depth limit exceeded")
)

const (
	DefaultMaxSteps = 10_000_000
	DefaultMaxDepth = 10_000
)

type Options struct {
	// MaxSteps bounds the instructions executed by one Call. Zero means
	// DefaultMaxSteps.
	MaxSteps int64
	// MaxDepth bounds nested calls. Zero means DefaultMaxDepth.
	MaxDepth int
	Logger   *slog.Logger
}

// Machine runs functions of one module. It is not safe for concurrent use.
type Machine struct {
	funcs map[string]*ir.Func
	opts  Options
	log   *slog.Logger
	steps int64
	depth int
}

func New(m *ir.Module, opts Options) *Machine {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	funcs := make(map[string]*ir.Func, len(m.Funcs))
	for _, f := range m.Funcs {
		funcs[f.Name()] = f
	}
	return &Machine{funcs: funcs, opts: opts, log: log}
}

// Steps reports how many instructions the last Call executed.
func (m *Machine) Steps() int64 {
	return m.steps
}

// Call runs the named function with args and returns its result.
func (m *Machine) Call(name string, args ...int32) (int32, error) {
	f, ok := m.funcs[name]
	if !ok {
		return 0, fmt.Errorf("irexec: %w: %q", ErrNoFunction, name)
	}
	if len(args) != len(f.Params) {
		return 0, fmt.Errorf("irexec: %s expects %d arguments, got %d", name, len(f.Params), len(args))
	}
	in := make([]cell, len(args))
	for i, a := range args {
		in[i] = cell{n: a}
	}
	m.steps, m.depth = 0, 0
	out, err := m.call(f, in)
	m.log.Debug("call finished", "func", name, "steps", m.steps, "err", err)
	if err != nil {
		return 0, err
	}
	return out.n, nil
}

// memory is one alloca'd region of i32 cells. set marks the cells that
// have been stored to.
type memory struct {
	cells []int32
	set   []bool
}

func newMemory(n int) *memory {
	return &memory{cells: make([]int32, n), set: make([]bool, n)}
}

// cell is a run-time value: an integer, or a pointer when mem is set.
type cell struct {
	n   int32
	mem *memory
	off int
}

type frame map[value.Value]cell

func (m *Machine) call(f *ir.Func, args []cell) (cell, error) {
	if len(f.Blocks) == 0 {
		return cell{}, fmt.Errorf("irexec: function %s has no body", f.Name())
	}
	m.depth++
	defer func() { m.depth-- }()
	if m.depth > m.opts.MaxDepth {
		return cell{}, fmt.Errorf("irexec: %s: %w", f.Name(), ErrCallDepth)
	}

	fr := make(frame)
	for i, p := range f.Params {
		fr[p] = args[i]
	}

	var prev *ir.Block
	b := f.Blocks[0]
	for {
		body, err := m.enter(b, prev, fr)
		if err != nil {
			return cell{}, fmt.Errorf("irexec: %s: %w", f.Name(), err)
		}
		for _, inst := range body {
			if err := m.tick(); err != nil {
				return cell{}, fmt.Errorf("irexec: %s: %w", f.Name(), err)
			}
			if err := m.exec(inst, fr); err != nil {
				return cell{}, fmt.Errorf("irexec: %s: %w", f.Name(), err)
			}
		}
		if err := m.tick(); err != nil {
			return cell{}, fmt.Errorf("irexec: %s: %w", f.Name(), err)
		}

		var next *ir.Block
		switch t := b.Term.(type) {
		case *ir.TermRet:
			if t.X == nil {
				return cell{}, nil
			}
			return eval(t.X, fr)
		case *ir.TermBr:
			next = blockOf(t.Target)
		case *ir.TermCondBr:
			c, err := eval(t.Cond, fr)
			if err != nil {
				return cell{}, err
			}
			if c.n != 0 {
				next = blockOf(t.TargetTrue)
			} else {
				next = blockOf(t.TargetFalse)
			}
		default:
			return cell{}, fmt.Errorf("irexec: %s: unsupported terminator %T in block %s", f.Name(), b.Term, b.Name())
		}
		if next == nil {
			return cell{}, fmt.Errorf("irexec: %s: branch to unknown block", f.Name())
		}
		prev, b = b, next
	}
}

// enter resolves the leading phi nodes of b for an edge from prev and
// returns the remaining instructions. All phis read before any is written.
func (m *Machine) enter(b, prev *ir.Block, fr frame) ([]ir.Instruction, error) {
	type assign struct {
		phi *ir.InstPhi
		v   cell
	}
	var pending []assign
	i := 0
	for ; i < len(b.Insts); i++ {
		phi, ok := b.Insts[i].(*ir.InstPhi)
		if !ok {
			break
		}
		found := false
		for _, inc := range phi.Incs {
			if blockOf(inc.Pred) != prev {
				continue
			}
			v, err := eval(inc.X, fr)
			if err != nil {
				return nil, err
			}
			pending = append(pending, assign{phi, v})
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("phi in block %s has no incoming value for its predecessor", b.Name())
		}
	}
	for _, a := range pending {
		fr[a.phi] = a.v
	}
	return b.Insts[i:], nil
}

func (m *Machine) tick() error {
	m.steps++
	if m.steps > m.opts.MaxSteps {
		return ErrStepLimit
	}
	return nil
}

func (m *Machine) exec(inst ir.Instruction, fr frame) error {
	switch inst := inst.(type) {
	case *ir.InstAlloca:
		fr[inst] = cell{mem: newMemory(cellsOf(inst.ElemType))}

	case *ir.InstStore:
		dst, err := eval(inst.Dst, fr)
		if err != nil {
			return err
		}
		if z, ok := inst.Src.(*constant.ZeroInitializer); ok {
			return zeroFill(dst, cellsOf(z.Typ))
		}
		src, err := eval(inst.Src, fr)
		if err != nil {
			return err
		}
		if !inBounds(dst) {
			return ErrOutOfBounds
		}
		dst.mem.cells[dst.off] = src.n
		dst.mem.set[dst.off] = true

	case *ir.InstLoad:
		src, err := eval(inst.Src, fr)
		if err != nil {
			return err
		}
		if !inBounds(src) {
			return ErrOutOfBounds
		}
		if !src.mem.set[src.off] {
			return ErrUninitialized
		}
		fr[inst] = cell{n: src.mem.cells[src.off]}

	case *ir.InstGetElementPtr:
		return m.gep(inst, fr)

	case *ir.InstAdd:
		return binary(fr, inst, inst.X, inst.Y, func(x, y int32) (int32, error) { return x + y, nil })
	case *ir.InstSub:
		return binary(fr, inst, inst.X, inst.Y, func(x, y int32) (int32, error) { return x - y, nil })
	case *ir.InstMul:
		return binary(fr, inst, inst.X, inst.Y, func(x, y int32) (int32, error) { return x * y, nil })
	case *ir.InstSDiv:
		return binary(fr, inst, inst.X, inst.Y, func(x, y int32) (int32, error) {
			if err := checkDiv(x, y); err != nil {
				return 0, err
			}
			return x / y, nil
		})
	case *ir.InstSRem:
		return binary(fr, inst, inst.X, inst.Y, func(x, y int32) (int32, error) {
			if err := checkDiv(x, y); err != nil {
				return 0, err
			}
			return x % y, nil
		})
	case *ir.InstXor:
		return binary(fr, inst, inst.X, inst.Y, func(x, y int32) (int32, error) { return x ^ y, nil })

	case *ir.InstICmp:
		return binary(fr, inst, inst.X, inst.Y, func(x, y int32) (int32, error) {
			ok, err := compare(inst.Pred, x, y)
			if ok {
				return 1, err
			}
			return 0, err
		})

	case *ir.InstZExt:
		v, err := eval(inst.From, fr)
		if err != nil {
			return err
		}
		fr[inst] = v

	case *ir.InstCall:
		callee, ok := inst.Callee.(*ir.Func)
		if !ok {
			return fmt.Errorf("indirect call through %T is not supported", inst.Callee)
		}
		args := make([]cell, len(inst.Args))
		for i, a := range inst.Args {
			v, err := eval(a, fr)
			if err != nil {
				return err
			}
			args[i] = v
		}
		v, err := m.call(callee, args)
		if err != nil {
			return err
		}
		fr[inst] = v

	default:
		return fmt.Errorf("unsupported instruction %T", inst)
	}
	return nil
}

// gep offsets a pointer. The first index steps over whole elements of
// ElemType, later indices step into arrays.
func (m *Machine) gep(inst *ir.InstGetElementPtr, fr frame) error {
	base, err := eval(inst.Src, fr)
	if err != nil {
		return err
	}
	if base.mem == nil {
		return fmt.Errorf("getelementptr on a non-pointer value")
	}
	off := base.off
	typ := inst.ElemType
	for i, idx := range inst.Indices {
		v, err := eval(idx, fr)
		if err != nil {
			return err
		}
		if i > 0 {
			at, ok := typ.(*types.ArrayType)
			if !ok {
				return fmt.Errorf("getelementptr into non-array type %s", typ)
			}
			typ = at.ElemType
		}
		off += int(v.n) * cellsOf(typ)
	}
	fr[inst] = cell{mem: base.mem, off: off}
	return nil
}

func binary(fr frame, dst value.Value, x, y value.Value, op func(x, y int32) (int32, error)) error {
	a, err := eval(x, fr)
	if err != nil {
		return err
	}
	b, err := eval(y, fr)
	if err != nil {
		return err
	}
	n, err := op(a.n, b.n)
	if err != nil {
		return err
	}
	if isBool(dst.Type()) {
		n &= 1
	}
	fr[dst] = cell{n: n}
	return nil
}

func checkDiv(x, y int32) error {
	if y == 0 {
		return ErrDivideByZero
	}
	if x == math.MinInt32 && y == -1 {
		return ErrOverflow
	}
	return nil
}

func compare(pred enum.IPred, x, y int32) (bool, error) {
	switch pred {
	case enum.IPredEQ:
		return x == y, nil
	case enum.IPredNE:
		return x != y, nil
	case enum.IPredSLT:
		return x < y, nil
	case enum.IPredSLE:
		return x <= y, nil
	case enum.IPredSGT:
		return x > y, nil
	case enum.IPredSGE:
		return x >= y, nil
	case enum.IPredULT:
		return uint32(x) < uint32(y), nil
	case enum.IPredULE:
		return uint32(x) <= uint32(y), nil
	case enum.IPredUGT:
		return uint32(x) > uint32(y), nil
	case enum.IPredUGE:
		return uint32(x) >= uint32(y), nil
	}
	return false, fmt.Errorf("unsupported comparison %v", pred)
}

func eval(v value.Value, fr frame) (cell, error) {
	if c, ok := v.(*constant.Int); ok {
		n := int32(c.X.Int64())
		if c.Typ.BitSize == 1 {
			n &= 1
		}
		return cell{n: n}, nil
	}
	if c, ok := fr[v]; ok {
		return c, nil
	}
	return cell{}, fmt.Errorf("use of undefined value %s", v.Ident())
}

func inBounds(p cell) bool {
	return p.mem != nil && p.off >= 0 && p.off < len(p.mem.cells)
}

// zeroFill stores zero into the n cells starting at p.
func zeroFill(p cell, n int) error {
	if n == 0 {
		return nil
	}
	end := p.off + n - 1
	if !inBounds(p) || end >= len(p.mem.cells) {
		return ErrOutOfBounds
	}
	for i := p.off; i <= end; i++ {
		p.mem.cells[i] = 0
		p.mem.set[i] = true
	}
	return nil
}

// cellsOf is the number of i32 cells a value of type t occupies.
func cellsOf(t types.Type) int {
	if at, ok := t.(*types.ArrayType); ok {
		return int(at.Len) * cellsOf(at.ElemType)
	}
	return 1
}

func isBool(t types.Type) bool {
	it, ok := t.(*types.IntType)
	return ok && it.BitSize == 1
}

func blockOf(v any) *ir.Block {
	b, _ := v.(*ir.Block)
	return b
}
