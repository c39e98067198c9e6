// Package ast declares the syntax tree produced by the parser.
//
// The node set is closed: every node type implements the unexported node
// method, so no package outside ast can add variants. Consumers dispatch
// with a type switch and treat an unknown node as an internal error.
package ast

import "github.com/quailc/quail/token"

// Node is any syntax tree node.
type Node interface {
	Pos() token.Pos
	node()
}

// Expr is a node that produces a value.
type Expr interface {
	Node
	expr()
}

// Expressions.
type (
	// NumberLiteral is a 32-bit integer constant.
	NumberLiteral struct {
		At    token.Pos
		Value int32
	}

	// Variable reads a scalar variable or parameter.
	Variable struct {
		At   token.Pos
		Name string
	}

	// BinaryOp is an arithmetic, relational or equality operation.
	BinaryOp struct {
		At  token.Pos
		Op  token.Kind
		LHS Expr
		RHS Expr
	}

	// LogicalOp is && or ||, evaluated with short-circuiting.
	LogicalOp struct {
		At  token.Pos
		Op  token.Kind
		LHS Expr
		RHS Expr
	}

	// UnaryOp is negation (-) or logical not (!).
	UnaryOp struct {
		At      token.Pos
		Op      token.Kind
		Operand Expr
	}

	// ArrayAccess reads Name[Index].
	ArrayAccess struct {
		At    token.Pos
		Name  string
		Index Expr
	}

	// Call invokes Callee with Args in order.
	Call struct {
		At     token.Pos
		Callee string
		Args   []Expr
	}
)

// Statements.
type (
	// VarDecl declares a scalar int: `int name;`.
	VarDecl struct {
		At   token.Pos
		Name string
	}

	// ArrayDecl declares `int name[Size];`. Size is always positive.
	ArrayDecl struct {
		At   token.Pos
		Name string
		Size int32
	}

	Assign struct {
		At    token.Pos
		Name  string
		Value Expr
	}

	ArrayAssign struct {
		At    token.Pos
		Name  string
		Index Expr
		Value Expr
	}

	// Return leaves the function. Value is nil for a bare `return;`.
	Return struct {
		At    token.Pos
		Value Expr
	}

	// Block is a braced statement list and a lexical scope. Stmts holds
	// statement nodes and expressions used as statements.
	Block struct {
		At    token.Pos
		Stmts []Node
	}

	// If has a nil Else when there is no else branch.
	If struct {
		At   token.Pos
		Cond Expr
		Then *Block
		Else *Block
	}

	While struct {
		At   token.Pos
		Cond Expr
		Body *Block
	}

	// For has nil Init and Inc for empty header sections. Cond is never nil.
	For struct {
		At   token.Pos
		Init Node
		Cond Expr
		Inc  Node
		Body *Block
	}

	Break struct {
		At token.Pos
	}

	Continue struct {
		At token.Pos
	}
)

// Declarations.
type (
	FunctionProto struct {
		At     token.Pos
		Name   string
		Params []string
	}

	FunctionDef struct {
		Proto *FunctionProto
		Body  *Block
	}

	// Program lists functions in source order.
	Program struct {
		Funcs []*FunctionDef
	}
)

func (n *NumberLiteral) Pos() token.Pos { return n.At }
func (n *Variable) Pos() token.Pos      { return n.At }
func (n *BinaryOp) Pos() token.Pos      { return n.At }
func (n *LogicalOp) Pos() token.Pos     { return n.At }
func (n *UnaryOp) Pos() token.Pos       { return n.At }
func (n *ArrayAccess) Pos() token.Pos   { return n.At }
func (n *Call) Pos() token.Pos          { return n.At }
func (n *VarDecl) Pos() token.Pos       { return n.At }
func (n *ArrayDecl) Pos() token.Pos     { return n.At }
func (n *Assign) Pos() token.Pos        { return n.At }
func (n *ArrayAssign) Pos() token.Pos   { return n.At }
func (n *Return) Pos() token.Pos        { return n.At }
func (n *Block) Pos() token.Pos         { return n.At }
func (n *If) Pos() token.Pos            { return n.At }
func (n *While) Pos() token.Pos         { return n.At }
func (n *For) Pos() token.Pos           { return n.At }
func (n *Break) Pos() token.Pos         { return n.At }
func (n *Continue) Pos() token.Pos      { return n.At }
func (n *FunctionProto) Pos() token.Pos { return n.At }
func (n *FunctionDef) Pos() token.Pos   { return n.Proto.At }

func (n *Program) Pos() token.Pos {
	if len(n.Funcs) == 0 {
		return token.Pos{}
	}
	return n.Funcs[0].Pos()
}

func (*NumberLiteral) node() {}
func (*Variable) node()      {}
func (*BinaryOp) node()      {}
func (*LogicalOp) node()     {}
func (*UnaryOp) node()       {}
func (*ArrayAccess) node()   {}
func (*Call) node()          {}
func (*VarDecl) node()       {}
func (*ArrayDecl) node()     {}
func (*Assign) node()        {}
func (*ArrayAssign) node()   {}
func (*Return) node()        {}
func (*Block) node()         {}
func (*If) node()            {}
func (*While) node()         {}
func (*For) node()           {}
func (*Break) node()         {}
func (*Continue) node()      {}
func (*FunctionProto) node() {}
func (*FunctionDef) node()   {}
func (*Program) node()       {}

func (*NumberLiteral) expr() {}
func (*Variable) expr()      {}
func (*BinaryOp) expr()      {}
func (*LogicalOp) expr()     {}
func (*UnaryOp) expr()       {}
func (*ArrayAccess) expr()   {}
func (*Call) expr()          {}
