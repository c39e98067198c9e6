package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/quailc/quail/ast"
	"github.com/quailc/quail/token"
)

var zero = constant.NewInt(types.I32, 0)

// genExpr returns the value of e, or nil when e could not be generated.
// A nil result has already been reported.
func (s *session) genExpr(e ast.Expr) value.Value {
	switch e := e.(type) {
	case *ast.NumberLiteral:
		return constant.NewInt(types.I32, int64(e.Value))

	case *ast.Variable:
		st := s.scalar(e.Name, e.At, "undefined variable %q")
		if st == nil {
			return nil
		}
		return s.cur.NewLoad(types.I32, st.slot)

	case *ast.ArrayAccess:
		st := s.array(e.Name, e.At)
		idx := s.genExpr(e.Index)
		if st == nil || idx == nil {
			return nil
		}
		ptr := s.elementPtr(st, e.Name, idx, e.Index.Pos())
		return s.cur.NewLoad(types.I32, ptr)

	case *ast.UnaryOp:
		v := s.genExpr(e.Operand)
		if v == nil {
			return nil
		}
		if e.Op == token.BANG {
			return s.cur.NewXor(s.asBool(v), constant.True)
		}
		return s.cur.NewSub(zero, s.asInt(v))

	case *ast.BinaryOp:
		l := s.genExpr(e.LHS)
		r := s.genExpr(e.RHS)
		if l == nil || r == nil {
			return nil
		}
		return s.genBinary(e, s.asInt(l), s.asInt(r))

	case *ast.LogicalOp:
		return s.genLogical(e)

	case *ast.Call:
		return s.genCall(e)
	}
	panic(fmt.Sprintf("codegen: unexpected expression %T", e))
}

func (s *session) genBinary(e *ast.BinaryOp, l, r value.Value) value.Value {
	switch e.Op {
	case token.PLUS:
		return s.cur.NewAdd(l, r)
	case token.MINUS:
		return s.cur.NewSub(l, r)
	case token.ASTERISK:
		return s.cur.NewMul(l, r)
	case token.SLASH:
		if c, ok := r.(*constant.Int); ok && c.X.Sign() == 0 {
			s.g.warnf(e.At, "division by zero")
		}
		return s.cur.NewSDiv(l, r)
	case token.LT:
		return s.cur.NewICmp(enum.IPredSLT, l, r)
	case token.GT:
		return s.cur.NewICmp(enum.IPredSGT, l, r)
	case token.LE:
		return s.cur.NewICmp(enum.IPredSLE, l, r)
	case token.GE:
		return s.cur.NewICmp(enum.IPredSGE, l, r)
	case token.EQ:
		return s.cur.NewICmp(enum.IPredEQ, l, r)
	case token.NOT_EQ:
		return s.cur.NewICmp(enum.IPredNE, l, r)
	}
	panic(fmt.Sprintf("codegen: unexpected binary operator %q", e.Op))
}

// genLogical lowers && and || with short-circuiting. When the left
// operand is a constant that decides the result, the right operand is not
// generated at all. Otherwise the left operand branches either into the
// block computing the right operand or straight to the merge block, and a
// phi picks the result by predecessor.
func (s *session) genLogical(e *ast.LogicalOp) value.Value {
	isAnd := e.Op == token.AND
	l := s.genExpr(e.LHS)
	if l == nil {
		s.genExpr(e.RHS)
		return nil
	}
	lb := s.asBool(l)

	// && short-circuits to false and || to true.
	short := constant.NewBool(!isAnd)
	if c, ok := lb.(*constant.Int); ok {
		if truth(c) != isAnd {
			return short
		}
		r := s.genExpr(e.RHS)
		if r == nil {
			return nil
		}
		return s.asBool(r)
	}

	prefix := "or"
	if isAnd {
		prefix = "and"
	}
	rhsB := s.newBlock(prefix + ".rhs")
	endB := s.newBlock(prefix + ".end")

	from := s.cur
	if isAnd {
		from.NewCondBr(lb, rhsB, endB)
	} else {
		from.NewCondBr(lb, endB, rhsB)
	}

	s.setCursor(rhsB)
	r := s.genExpr(e.RHS)
	var rb value.Value = constant.False
	if r != nil {
		rb = s.asBool(r)
	}
	rhsEnd := s.cur
	rhsEnd.NewBr(endB)

	s.setCursor(endB)
	phi := endB.NewPhi(ir.NewIncoming(short, from), ir.NewIncoming(rb, rhsEnd))
	if r == nil {
		return nil
	}
	return phi
}

func (s *session) genCall(e *ast.Call) value.Value {
	args := make([]value.Value, 0, len(e.Args))
	failed := false
	for _, a := range e.Args {
		v := s.genExpr(a)
		if v == nil {
			failed = true
			continue
		}
		args = append(args, s.asInt(v))
	}

	callee, ok := s.g.funcs[e.Callee]
	switch {
	case !ok:
		s.g.errorf(e.At, "call to undefined function %q", e.Callee)
		return nil
	case len(e.Args) != len(callee.fn.Params):
		s.g.errorf(e.At, "function %q expects %d arguments, got %d", e.Callee, len(callee.fn.Params), len(e.Args))
		return nil
	case failed:
		return nil
	}
	return s.cur.NewCall(callee.fn, args...)
}

// cond returns e as an i1 for branching. A failed condition counts as
// false so the surrounding control flow is still well formed.
func (s *session) cond(e ast.Expr) value.Value {
	v := s.genExpr(e)
	if v == nil {
		return constant.False
	}
	return s.asBool(v)
}

// asBool converts an i32 to i1 by comparing it against zero. An i1 passes
// through and constants are folded.
func (s *session) asBool(v value.Value) value.Value {
	if isBool(v) {
		return v
	}
	if c, ok := v.(*constant.Int); ok {
		return constant.NewBool(truth(c))
	}
	return s.cur.NewICmp(enum.IPredNE, v, zero)
}

// asInt widens an i1 to i32. Other values pass through.
func (s *session) asInt(v value.Value) value.Value {
	if !isBool(v) {
		return v
	}
	if c, ok := v.(*constant.Int); ok {
		if truth(c) {
			return constant.NewInt(types.I32, 1)
		}
		return zero
	}
	return s.cur.NewZExt(v, types.I32)
}

func isBool(v value.Value) bool {
	t, ok := v.Type().(*types.IntType)
	return ok && t.BitSize == 1
}

func truth(c *constant.Int) bool {
	return c.X.Sign() != 0
}

// scalar resolves a non-array variable. missing is the message format
// used when name is not declared.
func (s *session) scalar(name string, at token.Pos, missing string) *storage {
	st, ok := s.g.syms.Lookup(name)
	switch {
	case !ok:
		s.g.errorf(at, missing, name)
		return nil
	case st.array:
		s.g.errorf(at, "array %q cannot be used as a scalar", name)
		return nil
	}
	return st
}

func (s *session) array(name string, at token.Pos) *storage {
	st, ok := s.g.syms.Lookup(name)
	switch {
	case !ok:
		s.g.errorf(at, "undefined array %q", name)
		return nil
	case !st.array:
		s.g.errorf(at, "%q is not an array", name)
		return nil
	}
	return st
}

// elementPtr computes the address of st[idx]. Access is not bounds
// checked at run time; a constant index outside the array is a warning.
func (s *session) elementPtr(st *storage, name string, idx value.Value, at token.Pos) value.Value {
	idx = s.asInt(idx)
	if c, ok := idx.(*constant.Int); ok {
		if i := c.X.Int64(); i < 0 || i >= int64(st.size) {
			s.g.warnf(at, "index %d is out of bounds for array %q of size %d", i, name, st.size)
		}
	}
	return s.cur.NewGetElementPtr(st.slot.ElemType, st.slot, zero, idx)
}
