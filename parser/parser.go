// Package parser builds an ast.Program from a token stream.
//
// Expressions are parsed by precedence climbing. Statements use recursive
// descent with panic-mode recovery: a malformed statement is reported and
// the cursor skips to the next statement boundary, so one run reports as
// many problems as possible and still returns every function it could
// recover.
package parser

import (
	"strconv"

	"github.com/quailc/quail/ast"
	"github.com/quailc/quail/diag"
	"github.com/quailc/quail/token"
)

// Parser holds the token cursor for one source unit.
type Parser struct {
	toks    []token.Token
	pos     int
	diags   *diag.List
	lastErr int // token index of the most recent diagnostic
}

// New returns a parser over toks. A missing trailing EOF token is added.
func New(toks []token.Token) *Parser {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		var at token.Pos
		if len(toks) > 0 {
			at = toks[len(toks)-1].Pos
		}
		toks = append(toks[:len(toks):len(toks)], token.Token{Kind: token.EOF, Pos: at})
	}
	return &Parser{toks: toks, diags: &diag.List{}, lastErr: -1}
}

// Parse parses a whole source unit. The program is always non-nil and
// holds every function that could be recovered.
func Parse(toks []token.Token) (*ast.Program, *diag.List) {
	p := New(toks)
	return p.ParseProgram(), p.diags
}

// ParseExpr parses toks as a single expression. It returns nil when the
// expression is malformed.
func ParseExpr(toks []token.Token) (ast.Expr, *diag.List) {
	p := New(toks)
	e := p.ParseExpression()
	if e != nil && !p.at(token.EOF) {
		p.errorf("unexpected %s after expression", p.cur())
	}
	return e, p.diags
}

// Diagnostics returns the problems reported so far.
func (p *Parser) Diagnostics() *diag.List {
	return p.diags
}

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

// peekAt returns the token n positions ahead, or EOF past the end.
func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) next() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

// errorf reports a problem at the current token. A second report at the
// same token is dropped since it is almost always a consequence of the
// first.
func (p *Parser) errorf(format string, args ...any) {
	if p.pos == p.lastErr {
		return
	}
	p.lastErr = p.pos
	p.diags.Errorf(diag.Parse, p.cur().Pos, p.pos, format, args...)
}

// expect consumes a token of kind k or reports what was found instead.
func (p *Parser) expect(k token.Kind, context string) bool {
	if p.at(k) {
		p.next()
		return true
	}
	p.errorf("expected '%s' %s, found %s", k, context, p.cur())
	return false
}

// syncStatement skips to the next statement boundary. A ';' is consumed.
// A '}', EOF or the start of a function is left for the enclosing block.
// Braced groups met on the way are skipped as a unit.
func (p *Parser) syncStatement() {
	depth := 0
	for !p.at(token.EOF) {
		if depth == 0 && p.atFunctionStart() {
			return
		}
		switch p.cur().Kind {
		case token.SEMICOLON:
			if depth == 0 {
				p.next()
				return
			}
		case token.LBRACE:
			depth++
		case token.RBRACE:
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.next()
				return
			}
		}
		p.next()
	}
}

func (p *Parser) atFunctionStart() bool {
	return p.at(token.TYPE_INT) && p.peekAt(1).Kind == token.IDENT && p.peekAt(2).Kind == token.LPAREN
}

// syncTopLevel skips to the next `int name(` outside any braces. start is
// where the failed function began, so at least one token is consumed.
func (p *Parser) syncTopLevel(start int) {
	if p.pos == start {
		p.next()
	}
	depth := 0
	for !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && p.atFunctionStart() {
				return
			}
		}
		p.next()
	}
}

// ParseProgram parses functions until EOF.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.at(token.EOF) {
		start := p.pos
		if fn := p.parseFunction(); fn != nil {
			prog.Funcs = append(prog.Funcs, fn)
			continue
		}
		p.syncTopLevel(start)
	}
	return prog
}

func (p *Parser) parseFunction() *ast.FunctionDef {
	switch {
	case p.at(token.TYPE_FLOAT):
		p.errorf("floating-point is not supported; functions must return int")
		return nil
	case !p.at(token.TYPE_INT):
		p.errorf("expected function definition, found %s", p.cur())
		return nil
	}
	proto := &ast.FunctionProto{At: p.cur().Pos}
	p.next()

	if !p.at(token.IDENT) {
		p.errorf("expected function name, found %s", p.cur())
		return nil
	}
	proto.Name = p.cur().Lexeme
	p.next()

	if !p.expect(token.LPAREN, "after function name") {
		return nil
	}
	if !p.at(token.RPAREN) {
		for {
			if p.at(token.TYPE_FLOAT) {
				p.errorf("floating-point is not supported; parameters must be int")
				return nil
			}
			if !p.expect(token.TYPE_INT, "before parameter name") {
				return nil
			}
			if !p.at(token.IDENT) {
				p.errorf("expected parameter name, found %s", p.cur())
				return nil
			}
			proto.Params = append(proto.Params, p.cur().Lexeme)
			p.next()
			if !p.at(token.COMMA) {
				break
			}
			p.next()
		}
	}
	if !p.expect(token.RPAREN, "to close parameter list") {
		return nil
	}
	if !p.at(token.LBRACE) {
		p.errorf("expected '{' to begin body of %q, found %s", proto.Name, p.cur())
		return nil
	}
	return &ast.FunctionDef{Proto: proto, Body: p.parseBlock()}
}

// parseBlock parses `{ stmt* }`. The current token must be '{'. The block
// is always returned, even when its closing brace is missing. `int name(`
// cannot start a statement, so it ends an unclosed block and is left for
// the top level.
func (p *Parser) parseBlock() *ast.Block {
	blk := &ast.Block{At: p.cur().Pos}
	p.next() // consume '{'
	for !p.at(token.RBRACE) && !p.at(token.EOF) && !p.atFunctionStart() {
		if p.at(token.SEMICOLON) {
			p.next()
			continue
		}
		if s := p.ParseStatement(); s != nil {
			blk.Stmts = append(blk.Stmts, s)
		} else {
			p.syncStatement()
		}
	}
	p.expect(token.RBRACE, "to close block")
	return blk
}

// parseBody parses the body of if, else, while or for. A single statement
// is wrapped in its own block.
func (p *Parser) parseBody() *ast.Block {
	switch {
	case p.at(token.LBRACE):
		return p.parseBlock()
	case p.at(token.SEMICOLON):
		blk := &ast.Block{At: p.cur().Pos}
		p.next()
		return blk
	}
	s := p.ParseStatement()
	if s == nil {
		return nil
	}
	return &ast.Block{At: s.Pos(), Stmts: []ast.Node{s}}
}

// ParseStatement parses one statement. It returns nil after reporting a
// diagnostic; the caller is responsible for resynchronizing.
func (p *Parser) ParseStatement() ast.Node {
	switch p.cur().Kind {
	case token.LBRACE:
		return p.parseBlock()
	case token.TYPE_INT:
		return p.parseDecl()
	case token.TYPE_FLOAT:
		p.errorf("floating-point is not supported")
		return nil
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		s := &ast.Break{At: p.cur().Pos}
		p.next()
		p.expect(token.SEMICOLON, "after 'break'")
		return s
	case token.CONTINUE:
		s := &ast.Continue{At: p.cur().Pos}
		p.next()
		p.expect(token.SEMICOLON, "after 'continue'")
		return s
	}

	s := p.parseSimple()
	if s == nil {
		return nil
	}
	p.expect(token.SEMICOLON, "after statement")
	return s
}

// parseSimple parses an assignment, array assignment or expression with
// no trailing semicolon. These are the forms allowed in a for header.
func (p *Parser) parseSimple() ast.Node {
	if p.at(token.IDENT) {
		switch p.peekAt(1).Kind {
		case token.ASSIGN:
			return p.parseAssign()
		case token.LBRACKET:
			if p.isArrayAssign() {
				return p.parseArrayAssign()
			}
		}
	}
	e := p.ParseExpression()
	if e == nil {
		return nil
	}
	return e
}

// isArrayAssign looks past `name[...]` for an '='.
func (p *Parser) isArrayAssign() bool {
	depth := 0
	for i := p.pos + 1; i < len(p.toks); i++ {
		switch p.toks[i].Kind {
		case token.LBRACKET:
			depth++
		case token.RBRACKET:
			depth--
			if depth == 0 {
				return i+1 < len(p.toks) && p.toks[i+1].Kind == token.ASSIGN
			}
		case token.SEMICOLON, token.LBRACE, token.RBRACE, token.EOF:
			return false
		}
	}
	return false
}

func (p *Parser) parseAssign() ast.Node {
	s := &ast.Assign{At: p.cur().Pos, Name: p.cur().Lexeme}
	p.next() // name
	p.next() // '='
	if s.Value = p.ParseExpression(); s.Value == nil {
		return nil
	}
	return s
}

func (p *Parser) parseArrayAssign() ast.Node {
	s := &ast.ArrayAssign{At: p.cur().Pos, Name: p.cur().Lexeme}
	p.next() // name
	p.next() // '['
	if s.Index = p.ParseExpression(); s.Index == nil {
		return nil
	}
	if !p.expect(token.RBRACKET, "after array index") {
		return nil
	}
	if !p.expect(token.ASSIGN, "in array assignment") {
		return nil
	}
	if s.Value = p.ParseExpression(); s.Value == nil {
		return nil
	}
	return s
}

// parseDecl parses `int name;` or `int name[K];`.
func (p *Parser) parseDecl() ast.Node {
	at := p.cur().Pos
	p.next() // 'int'
	if !p.at(token.IDENT) {
		p.errorf("expected variable name after 'int', found %s", p.cur())
		return nil
	}
	name := p.cur().Lexeme
	p.next()

	var decl ast.Node = &ast.VarDecl{At: at, Name: name}
	if p.at(token.LBRACKET) {
		p.next()
		size, ok := p.parseArraySize()
		if !ok {
			return nil
		}
		if !p.expect(token.RBRACKET, "after array size") {
			return nil
		}
		decl = &ast.ArrayDecl{At: at, Name: name, Size: size}
	}

	if p.at(token.ASSIGN) {
		// Keep the declaration so later uses of name still resolve.
		p.errorf("declarations cannot have initializers; declare %q first, then assign it", name)
		p.syncStatement()
		return decl
	}
	p.expect(token.SEMICOLON, "after declaration")
	return decl
}

func (p *Parser) parseArraySize() (int32, bool) {
	if !p.at(token.INT) {
		p.errorf("array size must be a positive integer constant, found %s", p.cur())
		return 0, false
	}
	n, err := strconv.ParseInt(p.cur().Lexeme, 10, 32)
	if err != nil || n <= 0 {
		p.errorf("array size must be a positive integer constant, found %s", p.cur().Lexeme)
		return 0, false
	}
	p.next()
	return int32(n), true
}

func (p *Parser) parseIf() ast.Node {
	s := &ast.If{At: p.cur().Pos}
	p.next() // 'if'
	if !p.expect(token.LPAREN, "after 'if'") {
		return nil
	}
	if s.Cond = p.ParseExpression(); s.Cond == nil {
		return nil
	}
	if !p.expect(token.RPAREN, "after if condition") {
		return nil
	}
	if s.Then = p.parseBody(); s.Then == nil {
		return nil
	}
	if p.at(token.ELSE) {
		p.next()
		if s.Else = p.parseBody(); s.Else == nil {
			return nil
		}
	}
	return s
}

func (p *Parser) parseWhile() ast.Node {
	s := &ast.While{At: p.cur().Pos}
	p.next() // 'while'
	if !p.expect(token.LPAREN, "after 'while'") {
		return nil
	}
	if s.Cond = p.ParseExpression(); s.Cond == nil {
		return nil
	}
	if !p.expect(token.RPAREN, "after while condition") {
		return nil
	}
	if s.Body = p.parseBody(); s.Body == nil {
		return nil
	}
	return s
}

// parseFor parses `for (init; cond; inc) body`. The header always has
// three sections; init and inc may be empty, cond may not.
func (p *Parser) parseFor() ast.Node {
	s := &ast.For{At: p.cur().Pos}
	p.next() // 'for'
	if !p.expect(token.LPAREN, "after 'for'") {
		return nil
	}
	if !p.parseForHeader(s) {
		p.skipForHeader()
		return nil
	}
	if s.Body = p.parseBody(); s.Body == nil {
		return nil
	}
	return s
}

// parseForHeader parses `init; cond; inc)` into s.
func (p *Parser) parseForHeader(s *ast.For) bool {
	if !p.at(token.SEMICOLON) {
		if s.Init = p.parseSimple(); s.Init == nil {
			return false
		}
	}
	if !p.expect(token.SEMICOLON, "after for-loop initializer") {
		return false
	}
	if p.at(token.SEMICOLON) {
		p.errorf("for-loop condition is required")
		return false
	}
	if s.Cond = p.ParseExpression(); s.Cond == nil {
		return false
	}
	if !p.expect(token.SEMICOLON, "after for-loop condition") {
		return false
	}
	if !p.at(token.RPAREN) {
		if s.Inc = p.parseSimple(); s.Inc == nil {
			return false
		}
	}
	return p.expect(token.RPAREN, "to close for-loop header")
}

// skipForHeader consumes the rest of a malformed for-loop header through
// its closing ')'. It stops before a brace so the loop body is skipped by
// the caller's resynchronization.
func (p *Parser) skipForHeader() {
	depth := 0
	for !p.at(token.EOF) && !p.at(token.LBRACE) && !p.at(token.RBRACE) && !p.atFunctionStart() {
		switch p.cur().Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			if depth == 0 {
				p.next()
				return
			}
			depth--
		}
		p.next()
	}
}

func (p *Parser) parseReturn() ast.Node {
	s := &ast.Return{At: p.cur().Pos}
	p.next() // 'return'
	if !p.at(token.SEMICOLON) {
		if s.Value = p.ParseExpression(); s.Value == nil {
			return nil
		}
	}
	p.expect(token.SEMICOLON, "after return statement")
	return s
}
