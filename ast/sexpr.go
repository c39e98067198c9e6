package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// SExpr renders a node as an s-expression, e.g. (binary "+" (integer 1) (ident "x")).
// A nil node renders as nil.
func SExpr(n Node) string {
	var b strings.Builder
	writeSExpr(&b, n)
	return b.String()
}

func writeSExpr(b *strings.Builder, n Node) {
	list := func(head string, parts ...func()) {
		b.WriteString("(" + head)
		for _, p := range parts {
			b.WriteByte(' ')
			p()
		}
		b.WriteByte(')')
	}
	sub := func(n Node) func() { return func() { writeSExpr(b, n) } }
	str := func(s string) func() { return func() { b.WriteString(strconv.Quote(s)) } }

	switch n := n.(type) {
	case nil:
		b.WriteString("nil")
	case *NumberLiteral:
		list("integer", func() { b.WriteString(strconv.Itoa(int(n.Value))) })
	case *Variable:
		list("ident", str(n.Name))
	case *BinaryOp:
		list("binary", str(string(n.Op)), sub(exprNode(n.LHS)), sub(exprNode(n.RHS)))
	case *LogicalOp:
		list("logical", str(string(n.Op)), sub(exprNode(n.LHS)), sub(exprNode(n.RHS)))
	case *UnaryOp:
		list("unary", str(string(n.Op)), sub(exprNode(n.Operand)))
	case *ArrayAccess:
		list("index", str(n.Name), sub(exprNode(n.Index)))
	case *Call:
		parts := []func(){str(n.Callee)}
		for _, a := range n.Args {
			parts = append(parts, sub(a))
		}
		list("call", parts...)
	case *VarDecl:
		list("var", str(n.Name))
	case *ArrayDecl:
		list("array", str(n.Name), func() { b.WriteString(strconv.Itoa(int(n.Size))) })
	case *Assign:
		list("assign", str(n.Name), sub(exprNode(n.Value)))
	case *ArrayAssign:
		list("array-assign", str(n.Name), sub(exprNode(n.Index)), sub(exprNode(n.Value)))
	case *Return:
		if n.Value == nil {
			list("return")
		} else {
			list("return", sub(n.Value))
		}
	case *Block:
		var parts []func()
		for _, s := range n.Stmts {
			parts = append(parts, sub(s))
		}
		list("block", parts...)
	case *If:
		parts := []func(){sub(exprNode(n.Cond)), sub(n.Then)}
		if n.Else != nil {
			parts = append(parts, sub(n.Else))
		}
		list("if", parts...)
	case *While:
		list("while", sub(exprNode(n.Cond)), sub(n.Body))
	case *For:
		list("for", sub(n.Init), sub(exprNode(n.Cond)), sub(n.Inc), sub(n.Body))
	case *Break:
		list("break")
	case *Continue:
		list("continue")
	case *FunctionProto:
		list("proto", str(n.Name), func() {
			b.WriteByte('(')
			for i, p := range n.Params {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(strconv.Quote(p))
			}
			b.WriteByte(')')
		})
	case *FunctionDef:
		list("func", str(n.Proto.Name), func() {
			b.WriteByte('(')
			for i, p := range n.Proto.Params {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(strconv.Quote(p))
			}
			b.WriteByte(')')
		}, sub(n.Body))
	case *Program:
		var parts []func()
		for _, f := range n.Funcs {
			parts = append(parts, sub(f))
		}
		list("program", parts...)
	default:
		panic(fmt.Sprintf("ast: unexpected node %T", n))
	}
}

// exprNode keeps a nil Expr from becoming a non-nil Node holding a nil
// pointer.
func exprNode(e Expr) Node {
	if e == nil {
		return nil
	}
	return e
}
