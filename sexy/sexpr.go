// Package sexy reads the small s-expression dialect used by the test corpus
// and matches AST dumps against patterns written in it.
package sexy

import (
	"fmt"
	"strings"
	"unicode"
)

type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeEllipsis
	NodeList
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeEllipsis:
		return "ellipsis"
	case NodeList:
		return "list"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Node is one datum. Atoms keep their source text in Text; lists keep their
// elements in Items.
type Node struct {
	Type  NodeType
	Text  string
	Items []*Node
}

// Wildcard is the symbol that matches any single datum in a pattern.
const Wildcard = "_"

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		return quote(n.Text)
	case NodeEllipsis:
		return "..."
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("<%s>", n.Type)
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func NewSymbol(name string) *Node { return &Node{Type: NodeSymbol, Text: name} }
func NewString(value string) *Node { return &Node{Type: NodeString, Text: value} }
func NewInteger(text string) *Node { return &Node{Type: NodeInteger, Text: text} }
func NewEllipsis() *Node { return &Node{Type: NodeEllipsis} }
func NewList(items ...*Node) *Node { return &Node{Type: NodeList, Items: items} }
func (n *Node) IsWildcard() bool { return n.Type == NodeSymbol && n.Text == Wildcard }
func (n *Node) IsAtom() bool { return n.Type != NodeList }

// Parse reads exactly one datum from input.
func Parse(input string) (*Node, error) {
	p := &parser{lex: newLexer(input)}
	p.next()

	node, err := p.datum()
	if p.lex.err != nil {
		return nil, p.lex.err
	}
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, fmt.Errorf("offset %d: expected end of input, found %s", p.cur.pos, p.cur.kind)
	}
	return node, nil
}

type parser struct {
	lex *lexer
	cur tok
}

func (p *parser) next() { p.cur = p.lex.next() }

func (p *parser) datum() (*Node, error) {
	t := p.cur
	switch t.kind {
	case tokSymbol:
		p.next()
		return NewSymbol(t.text), nil
	case tokString:
		p.next()
		return NewString(t.text), nil
	case tokInteger:
		p.next()
		return NewInteger(t.text), nil
	case tokEllipsis:
		p.next()
		return NewEllipsis(), nil
	case tokLParen:
		p.next()
		list := NewList()
		for p.cur.kind != tokRParen {
			if p.cur.kind == tokEOF {
				return nil, fmt.Errorf("offset %d: unterminated list", t.pos)
			}
			item, err := p.datum()
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, item)
		}
		p.next()
		return list, nil
	default:
		return nil, fmt.Errorf("offset %d: unexpected %s", t.pos, t.kind)
	}
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokSymbol
	tokString
	tokInteger
	tokEllipsis
	tokLParen
	tokRParen
)

func (k tokKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokSymbol:
		return "symbol"
	case tokString:
		return "string"
	case tokInteger:
		return "integer"
	case tokEllipsis:
		return "'...'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

type tok struct {
	kind tokKind
	text string
	pos  int
}

type lexer struct {
	src string
	pos int
	err error
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (l *lexer) peek(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

// fail records the first error and ends the token stream.
func (l *lexer) fail(pos int, format string, args ...any) tok {
	if l.err == nil {
		l.err = fmt.Errorf("offset %d: %s", pos, fmt.Sprintf(format, args...))
	}
	l.pos = len(l.src)
	return tok{kind: tokEOF, pos: pos}
}

func (l *lexer) next() tok {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ';' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		if !unicode.IsSpace(rune(c)) {
			break
		}
		l.pos++
	}

	start := l.pos
	c := l.peek(0)
	switch {
	case c == 0:
		return tok{kind: tokEOF, pos: start}
	case c == '(':
		l.pos++
		return tok{kind: tokLParen, pos: start}
	case c == ')':
		l.pos++
		return tok{kind: tokRParen, pos: start}
	case c == '"':
		return l.str()
	case c == '.':
		if l.peek(1) == '.' && l.peek(2) == '.' {
			l.pos += 3
			return tok{kind: tokEllipsis, text: "...", pos: start}
		}
		return l.fail(start, "unexpected character '.'")
	case isDigit(c) || ((c == '-' || c == '+') && isDigit(l.peek(1))):
		l.pos++
		for isDigit(l.peek(0)) {
			l.pos++
		}
		return tok{kind: tokInteger, text: l.src[start:l.pos], pos: start}
	case isSymbolChar(c):
		for isSymbolChar(l.peek(0)) {
			l.pos++
		}
		return tok{kind: tokSymbol, text: l.src[start:l.pos], pos: start}
	default:
		return l.fail(start, "unexpected character %q", c)
	}
}

func (l *lexer) str() tok {
	start := l.pos
	l.pos++
	var b strings.Builder
	for {
		c := l.peek(0)
		switch c {
		case 0:
			return l.fail(start, "unterminated string")
		case '"':
			l.pos++
			return tok{kind: tokString, text: b.String(), pos: start}
		case '\\':
			esc := l.peek(1)
			if esc != '"' && esc != '\\' {
				return l.fail(l.pos, "invalid escape sequence \\%c", esc)
			}
			b.WriteByte(esc)
			l.pos += 2
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isSymbolChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', isDigit(c):
		return true
	}
	return strings.IndexByte("_-+*/<>=!&|", c) >= 0
}
