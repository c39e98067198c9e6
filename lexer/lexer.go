// Package lexer turns source text into the token stream the parser
// consumes.
package lexer

import (
	"github.com/quailc/quail/token"
)

// Lexer scans one source unit. The zero value is not usable; call New.
type Lexer struct {
	input []byte
	pos   int // current reading position in input
	line  int
	col   int
}

// New returns a lexer positioned at the start of src.
func New(src string) *Lexer {
	return &Lexer{input: []byte(src), line: 1, col: 1}
}

// Lex scans all of src. The result always ends with exactly one EOF token.
func Lex(src string) []token.Token {
	l := New(src)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

// NextToken scans the next token. After the end of input it keeps
// returning EOF.
func (l *Lexer) NextToken() token.Token {
	l.skipTrivia()

	start := token.Pos{Offset: l.pos, Line: l.line, Col: l.col}
	c := l.peek(0)

	kind := token.ILLEGAL
	width := 1

	switch {
	case l.pos >= len(l.input):
		return token.Token{Kind: token.EOF, Pos: start}
	case isLetter(c):
		lit := l.readIdentifier()
		return token.Token{Kind: token.Lookup(lit), Lexeme: lit, Pos: start}
	case isDigit(c):
		kind, lit := l.readNumber()
		return token.Token{Kind: kind, Lexeme: lit, Pos: start}
	}

	switch c {
	case '=':
		kind = token.ASSIGN
		if l.peek(1) == '=' {
			kind, width = token.EQ, 2
		}
	case '!':
		kind = token.BANG
		if l.peek(1) == '=' {
			kind, width = token.NOT_EQ, 2
		}
	case '<':
		kind = token.LT
		if l.peek(1) == '=' {
			kind, width = token.LE, 2
		}
	case '>':
		kind = token.GT
		if l.peek(1) == '=' {
			kind, width = token.GE, 2
		}
	case '&':
		if l.peek(1) == '&' {
			kind, width = token.AND, 2
		}
	case '|':
		if l.peek(1) == '|' {
			kind, width = token.OR, 2
		}
	case '+':
		kind = token.PLUS
	case '-':
		kind = token.MINUS
	case '*':
		kind = token.ASTERISK
	case '/':
		kind = token.SLASH
	case ',':
		kind = token.COMMA
	case ';':
		kind = token.SEMICOLON
	case '(':
		kind = token.LPAREN
	case ')':
		kind = token.RPAREN
	case '{':
		kind = token.LBRACE
	case '}':
		kind = token.RBRACE
	case '[':
		kind = token.LBRACKET
	case ']':
		kind = token.RBRACKET
	}

	lit := string(l.input[l.pos : l.pos+width])
	for i := 0; i < width; i++ {
		l.advance()
	}
	return token.Token{Kind: kind, Lexeme: lit, Pos: start}
}

func (l *Lexer) skipTrivia() {
	for l.pos < len(l.input) {
		c := l.peek(0)
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance()
		case c == '/' && l.peek(1) == '/':
			l.skipLineComment()
		case c == '/' && l.peek(1) == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.advance()
	}
}

// skipBlockComment consumes through the closing */ or to end of input.
func (l *Lexer) skipBlockComment() {
	l.advance()
	l.advance()
	for l.pos < len(l.input) {
		if l.peek(0) == '*' && l.peek(1) == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for l.pos < len(l.input) && (isLetter(l.peek(0)) || isDigit(l.peek(0))) {
		l.advance()
	}
	return string(l.input[start:l.pos])
}

// readNumber scans an integer, or a float when digits follow a '.'.
func (l *Lexer) readNumber() (token.Kind, string) {
	start := l.pos
	kind := token.INT
	for isDigit(l.peek(0)) {
		l.advance()
	}
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		kind = token.FLOAT
		l.advance()
		for isDigit(l.peek(0)) {
			l.advance()
		}
	}
	return kind, string(l.input[start:l.pos])
}
