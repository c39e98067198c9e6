package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/quailc/quail/ast"
	"github.com/quailc/quail/token"
)

// genBlock generates b's statements inside a new scope.
func (s *session) genBlock(b *ast.Block) {
	s.g.syms.EnterScope()
	for _, st := range b.Stmts {
		s.genStmt(st)
	}
	s.g.syms.ExitScope()
}

func (s *session) genStmt(n ast.Node) {
	switch n := n.(type) {
	case *ast.Block:
		s.genBlock(n)
	case *ast.VarDecl:
		s.declareLocal(n.Name, n.At, &storage{})
	case *ast.ArrayDecl:
		s.declareLocal(n.Name, n.At, &storage{array: true, size: n.Size})
	case *ast.Assign:
		s.genAssign(n)
	case *ast.ArrayAssign:
		s.genArrayAssign(n)
	case *ast.Return:
		s.genReturn(n)
	case *ast.If:
		s.genIf(n)
	case *ast.While:
		s.genWhile(n)
	case *ast.For:
		s.genFor(n)
	case *ast.Break:
		s.genBranchOut(s.breaks, n.At, "break")
	case *ast.Continue:
		s.genBranchOut(s.continues, n.At, "continue")
	case ast.Expr:
		s.genExpr(n)
	default:
		panic(fmt.Sprintf("codegen: unexpected statement %T", n))
	}
}

// declareLocal allocates storage for a scalar or array in the innermost
// scope and stores zero into it at the declaration site, so a local
// declared in a loop body is zero on every iteration. Redeclaring a name
// in the same scope is an error and the first declaration stays in effect.
func (s *session) declareLocal(name string, at token.Pos, st *storage) {
	if _, dup := s.g.syms.LookupLocal(name); dup {
		s.g.errorf(at, "%q is already declared in this scope", name)
		return
	}
	var typ types.Type = types.I32
	var zero constant.Constant = constant.NewInt(types.I32, 0)
	if st.array {
		typ = types.NewArray(uint64(st.size), types.I32)
		zero = constant.NewZeroInitializer(typ)
	}
	st.slot = s.alloca(typ, name)
	s.cur.NewStore(zero, st.slot)
	s.g.syms.Insert(name, st)
}

func (s *session) genAssign(n *ast.Assign) {
	st := s.scalar(n.Name, n.At, "assignment to undeclared variable %q")
	v := s.genExpr(n.Value)
	if st == nil || v == nil {
		return
	}
	s.cur.NewStore(s.asInt(v), st.slot)
}

func (s *session) genArrayAssign(n *ast.ArrayAssign) {
	st := s.array(n.Name, n.At)
	idx := s.genExpr(n.Index)
	v := s.genExpr(n.Value)
	if st == nil || idx == nil || v == nil {
		return
	}
	s.cur.NewStore(s.asInt(v), s.elementPtr(st, n.Name, idx, n.Index.Pos()))
}

func (s *session) genReturn(n *ast.Return) {
	var v value.Value = constant.NewInt(types.I32, 0)
	if n.Value != nil {
		if r := s.genExpr(n.Value); r != nil {
			v = s.asInt(r)
		}
	}
	s.cur.NewRet(v)
	s.detach()
}

// genIf lowers to a conditional branch into then and else blocks that
// both fall through to a merge block. Without an else branch the false
// edge goes straight to the merge block.
func (s *session) genIf(n *ast.If) {
	cond := s.cond(n.Cond)
	thenB := s.newBlock("if.then")
	var elseB *ir.Block
	if n.Else != nil {
		elseB = s.newBlock("if.else")
	}
	mergeB := s.newBlock("if.end")

	if elseB != nil {
		s.cur.NewCondBr(cond, thenB, elseB)
	} else {
		s.cur.NewCondBr(cond, thenB, mergeB)
	}

	s.setCursor(thenB)
	s.genBlock(n.Then)
	s.jump(mergeB)

	if elseB != nil {
		s.setCursor(elseB)
		s.genBlock(n.Else)
		s.jump(mergeB)
	}
	s.setCursor(mergeB)
}

// genWhile tests the condition on entry and after every iteration.
// continue re-tests the condition.
func (s *session) genWhile(n *ast.While) {
	condB := s.newBlock("while.cond")
	bodyB := s.newBlock("while.body")
	endB := s.newBlock("while.end")

	s.jump(condB)
	s.setCursor(condB)
	cond := s.cond(n.Cond)
	s.cur.NewCondBr(cond, bodyB, endB)

	pop := s.pushLoop(endB, condB)
	s.setCursor(bodyB)
	s.genBlock(n.Body)
	s.jump(condB)
	pop()

	s.setCursor(endB)
}

// genFor runs init once, then cond, body and inc in a cycle. continue
// goes to inc so the increment always runs before the next test.
func (s *session) genFor(n *ast.For) {
	if n.Init != nil {
		s.genStmt(n.Init)
	}
	condB := s.newBlock("for.cond")
	bodyB := s.newBlock("for.body")
	incB := s.newBlock("for.inc")
	endB := s.newBlock("for.end")

	s.jump(condB)
	s.setCursor(condB)
	cond := s.cond(n.Cond)
	s.cur.NewCondBr(cond, bodyB, endB)

	pop := s.pushLoop(endB, incB)
	s.setCursor(bodyB)
	s.genBlock(n.Body)
	s.jump(incB)
	pop()

	s.setCursor(incB)
	if n.Inc != nil {
		s.genStmt(n.Inc)
	}
	s.jump(condB)

	s.setCursor(endB)
}

// genBranchOut lowers break or continue to a branch to the innermost
// loop's target.
func (s *session) genBranchOut(targets []*ir.Block, at token.Pos, what string) {
	if len(targets) == 0 {
		s.g.errorf(at, "%s statement outside of loop", what)
		return
	}
	s.cur.NewBr(targets[len(targets)-1])
	s.detach()
}
