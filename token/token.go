// Package token defines the lexical tokens produced by the lexer and
// consumed by the parser.
package token

import "fmt"

// Kind is the type of token (identifier, operator, literal, etc.).
type Kind string

const (
	// Special tokens
	ILLEGAL Kind = "ILLEGAL"
	EOF     Kind = "EOF"

	// Identifiers + literals
	IDENT Kind = "IDENT" // main, foo, _bar
	INT   Kind = "INT"   // 12345
	FLOAT Kind = "FLOAT" // 1.5

	// Operators
	ASSIGN   Kind = "="
	PLUS     Kind = "+"
	MINUS    Kind = "-"
	BANG     Kind = "!"
	ASTERISK Kind = "*"
	SLASH    Kind = "/"

	LT     Kind = "<"
	GT     Kind = ">"
	EQ     Kind = "=="
	NOT_EQ Kind = "!="
	LE     Kind = "<="
	GE     Kind = ">="

	AND Kind = "&&"
	OR  Kind = "||"

	// Delimiters
	COMMA     Kind = ","
	SEMICOLON Kind = ";"
	LPAREN    Kind = "("
	RPAREN    Kind = ")"
	LBRACE    Kind = "{"
	RBRACE    Kind = "}"
	LBRACKET  Kind = "["
	RBRACKET  Kind = "]"

	// Keywords
	TYPE_INT   Kind = "int"
	TYPE_FLOAT Kind = "float"
	RETURN     Kind = "return"
	IF         Kind = "if"
	ELSE       Kind = "else"
	WHILE      Kind = "while"
	FOR        Kind = "for"
	BREAK      Kind = "break"
	CONTINUE   Kind = "continue"
)

var keywords = map[string]Kind{
	"int":      TYPE_INT,
	"float":    TYPE_FLOAT,
	"return":   RETURN,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"break":    BREAK,
	"continue": CONTINUE,
}

// Lookup maps an identifier to its keyword kind, or IDENT.
func Lookup(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return IDENT
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	_, ok := keywords[string(k)]
	return ok
}

// Pos is a location in source text. Line and Col are 1-based.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// IsValid reports whether the position was set by the lexer.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// Token is one lexeme with its kind and location. Tokens are immutable
// once produced.
type Token struct {
	Kind   Kind
	Lexeme string
	Pos    Pos
}

// String renders the token the way diagnostics quote it.
func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case IDENT:
		return fmt.Sprintf("identifier %q", t.Lexeme)
	case INT, FLOAT:
		return fmt.Sprintf("number %s", t.Lexeme)
	case ILLEGAL:
		return fmt.Sprintf("illegal character %q", t.Lexeme)
	}
	return "'" + string(t.Kind) + "'"
}
