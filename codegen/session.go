package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// session is the generation context for one function body. It is created
// per function and dropped when the function is finished.
type session struct {
	g     *Generator
	fn    *ir.Func
	entry *ir.Block
	cur   *ir.Block // insertion cursor; never terminated between statements

	allocas  int // allocas at the head of entry
	attached map[*ir.Block]bool
	names    map[string]int

	breaks    []*ir.Block
	continues []*ir.Block
}

func newSession(g *Generator, fn *ir.Func) *session {
	s := &session{
		g:        g,
		fn:       fn,
		attached: make(map[*ir.Block]bool),
		names:    make(map[string]int),
	}
	s.entry = s.newBlock("entry")
	s.setCursor(s.entry)
	return s
}

// uniq returns base, or base with a numeric suffix if base is taken.
// Blocks and values share one namespace within a function.
func (s *session) uniq(base string) string {
	n, seen := s.names[base]
	s.names[base] = n + 1
	if !seen {
		return base
	}
	return fmt.Sprintf("%s.%d", base, n)
}

// newBlock creates a block owned by the function. It is appended to the
// function when the cursor first moves into it, so blocks appear in the
// order their code is generated.
func (s *session) newBlock(name string) *ir.Block {
	b := ir.NewBlock(s.uniq(name))
	b.Parent = s.fn
	return b
}

func (s *session) setCursor(b *ir.Block) {
	if !s.attached[b] {
		s.attached[b] = true
		s.fn.Blocks = append(s.fn.Blocks, b)
	}
	s.cur = b
}

// jump branches to target unless the current block is already terminated.
func (s *session) jump(target *ir.Block) {
	if s.cur.Term == nil {
		s.cur.NewBr(target)
	}
}

// detach moves the cursor into a fresh block after an unconditional
// transfer, so code that follows a return, break or continue still has
// somewhere to go.
func (s *session) detach() {
	s.setCursor(s.newBlock("dead"))
}

// alloca reserves a stack slot at the head of the entry block, whatever
// block the cursor is in.
func (s *session) alloca(typ types.Type, name string) *ir.InstAlloca {
	inst := s.entry.NewAlloca(typ)
	inst.SetName(s.uniq(name))
	insts := s.entry.Insts
	copy(insts[s.allocas+1:], insts[s.allocas:len(insts)-1])
	insts[s.allocas] = inst
	s.allocas++
	return inst
}

// finish terminates every open block with `ret i32 0` and drops blocks
// that are empty and unreachable.
func (s *session) finish() {
	reached := make(map[*ir.Block]bool)
	for _, b := range s.fn.Blocks {
		for _, succ := range successors(b) {
			reached[succ] = true
		}
	}
	kept := s.fn.Blocks[:0]
	for _, b := range s.fn.Blocks {
		if b.Term == nil {
			if b != s.entry && len(b.Insts) == 0 && !reached[b] {
				continue
			}
			b.NewRet(constant.NewInt(types.I32, 0))
		}
		kept = append(kept, b)
	}
	s.fn.Blocks = kept
}

// pushLoop makes brk and cont the targets of break and continue until
// the returned func is called.
func (s *session) pushLoop(brk, cont *ir.Block) (pop func()) {
	s.breaks = append(s.breaks, brk)
	s.continues = append(s.continues, cont)
	return func() {
		s.breaks = s.breaks[:len(s.breaks)-1]
		s.continues = s.continues[:len(s.continues)-1]
	}
}

func successors(b *ir.Block) []*ir.Block {
	switch t := b.Term.(type) {
	case *ir.TermBr:
		return blocksOf(t.Target)
	case *ir.TermCondBr:
		return blocksOf(t.TargetTrue, t.TargetFalse)
	}
	return nil
}

func blocksOf(targets ...any) []*ir.Block {
	var out []*ir.Block
	for _, t := range targets {
		if b, ok := t.(*ir.Block); ok {
			out = append(out, b)
		}
	}
	return out
}
