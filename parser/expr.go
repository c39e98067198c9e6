package parser

import (
	"strconv"

	"github.com/quailc/quail/ast"
	"github.com/quailc/quail/token"
)

// precedence returns the binding power of a binary operator, or 0 when k
// is not one. Higher binds tighter.
func precedence(k token.Kind) int {
	switch k {
	case token.ASTERISK, token.SLASH:
		return 70
	case token.PLUS, token.MINUS:
		return 60
	case token.LT, token.GT, token.LE, token.GE:
		return 50
	case token.EQ, token.NOT_EQ:
		return 45
	case token.AND:
		return 30
	case token.OR:
		return 20
	default:
		return 0
	}
}

// ParseExpression parses an expression and returns an AST node, or nil
// after reporting a diagnostic.
func (p *Parser) ParseExpression() ast.Expr {
	return p.parseExpressionWithPrecedence(0)
}

// parseExpressionWithPrecedence implements precedence climbing. Operators
// binding no tighter than minPrec are left for the caller, which makes
// every binary operator left-associative.
func (p *Parser) parseExpressionWithPrecedence(minPrec int) ast.Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		op := p.cur()
		prec := precedence(op.Kind)
		if prec == 0 || prec <= minPrec {
			return left
		}
		p.next()
		right := p.parseExpressionWithPrecedence(prec)
		if right == nil {
			return nil
		}
		if op.Kind == token.AND || op.Kind == token.OR {
			left = &ast.LogicalOp{At: op.Pos, Op: op.Kind, LHS: left, RHS: right}
		} else {
			left = &ast.BinaryOp{At: op.Pos, Op: op.Kind, LHS: left, RHS: right}
		}
	}
}

// parseUnary handles prefix - and !, which bind tighter than any binary
// operator.
func (p *Parser) parseUnary() ast.Expr {
	if p.at(token.MINUS) || p.at(token.BANG) {
		op := p.cur()
		p.next()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryOp{At: op.Pos, Op: op.Kind, Operand: operand}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur()
	switch tok.Kind {
	case token.INT:
		n, err := strconv.ParseInt(tok.Lexeme, 10, 32)
		if err != nil {
			p.errorf("integer literal %s does not fit in 32 bits", tok.Lexeme)
			return nil
		}
		p.next()
		return &ast.NumberLiteral{At: tok.Pos, Value: int32(n)}

	case token.FLOAT:
		p.errorf("floating-point literal %s is not supported", tok.Lexeme)
		return nil

	case token.IDENT:
		p.next()
		switch {
		case p.at(token.LPAREN):
			return p.parseCall(tok)
		case p.at(token.LBRACKET):
			p.next()
			index := p.ParseExpression()
			if index == nil {
				return nil
			}
			if !p.expect(token.RBRACKET, "after array index") {
				return nil
			}
			return &ast.ArrayAccess{At: tok.Pos, Name: tok.Lexeme, Index: index}
		}
		return &ast.Variable{At: tok.Pos, Name: tok.Lexeme}

	case token.LPAREN:
		p.next()
		e := p.ParseExpression()
		if e == nil {
			return nil
		}
		if !p.expect(token.RPAREN, "to close parenthesized expression") {
			return nil
		}
		return e
	}

	p.errorf("expected expression, found %s", tok)
	return nil
}

// parseCall parses the argument list of a call; the callee name has been
// consumed and the current token is '('.
func (p *Parser) parseCall(callee token.Token) ast.Expr {
	call := &ast.Call{At: callee.Pos, Callee: callee.Lexeme}
	p.next() // '('
	if !p.at(token.RPAREN) {
		for {
			arg := p.ParseExpression()
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)
			if !p.at(token.COMMA) {
				break
			}
			p.next()
		}
	}
	if !p.expect(token.RPAREN, "to close argument list") {
		return nil
	}
	return call
}
