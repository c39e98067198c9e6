package sexy

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType names the code fence holding a test's source.
type InputType string

const (
	InputTypeExpr    InputType = "quail-expr"
	InputTypeProgram InputType = "quail-program"
)

// AssertionType names a code fence that checks something about the input.
type AssertionType string

const (
	AssertionTypeAST         AssertionType = "ast"
	AssertionTypeExecute     AssertionType = "execute"
	AssertionTypeDiagnostics AssertionType = "diagnostics"
	AssertionTypeIR          AssertionType = "ir"
)

type Assertion struct {
	Type    AssertionType
	Content string
	Line    int

	// ParsedSexy is set for ast assertions only.
	ParsedSexy *Node
}

// TestCase is one "Test: name" section of a Markdown corpus file.
type TestCase struct {
	Name       string
	Line       int
	Input      string
	InputType  InputType
	Assertions []Assertion
}

// ExtractTestCases walks a Markdown document and collects its test cases.
// A test starts at any heading whose text begins with "Test: " and owns
// the fences up to the next such heading.
func ExtractTestCases(markdown string) ([]TestCase, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var cur *TestCase
	flush := func() error {
		if cur == nil {
			return nil
		}
		if err := validate(cur); err != nil {
			return err
		}
		cases = append(cases, *cur)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			title := nodeText(n, source)
			name, ok := strings.CutPrefix(title, "Test: ")
			if !ok {
				return ast.WalkSkipChildren, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			cur = &TestCase{Name: strings.TrimSpace(name), Line: lineOf(n, source)}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineOf(n, source)
			known := isInputFence(lang) || isAssertionFence(lang)
			if cur == nil {
				if lang == "" {
					return ast.WalkContinue, nil
				}
				if known {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test case", line, lang)
				}
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language %q outside of a test case", line, lang)
			}
			if lang == "" {
				return ast.WalkContinue, nil
			}
			if !known {
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language %q in test %q", line, lang, cur.Name)
			}

			body := strings.TrimRight(fenceContent(n, source), "\n")
			if isInputFence(lang) {
				if cur.InputType != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences in test %q", line, cur.Name)
				}
				cur.Input = body
				cur.InputType = InputType(lang)
				return ast.WalkContinue, nil
			}

			a := Assertion{Type: AssertionType(lang), Content: body, Line: line}
			if a.Type == AssertionTypeAST {
				parsed, err := Parse(body)
				if err != nil {
					return ast.WalkStop, fmt.Errorf("line %d: bad ast pattern in test %q: %w", line, cur.Name, err)
				}
				a.ParsedSexy = parsed
			}
			cur.Assertions = append(cur.Assertions, a)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func isInputFence(lang string) bool {
	switch InputType(lang) {
	case InputTypeExpr, InputTypeProgram:
		return true
	}
	return false
}

func isAssertionFence(lang string) bool {
	switch AssertionType(lang) {
	case AssertionTypeAST, AssertionTypeExecute, AssertionTypeDiagnostics, AssertionTypeIR:
		return true
	}
	return false
}

func validate(tc *TestCase) error {
	if tc.InputType == "" {
		return fmt.Errorf("line %d: test %q has no input fence", tc.Line, tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("line %d: test %q has no assertion fences", tc.Line, tc.Name)
	}
	return nil
}

// lineOf returns the 1-based line of the node's first content line, or 1 for
// a node with no content.
func lineOf(node ast.Node, source []byte) int {
	start := -1
	if node.Type() == ast.TypeBlock && node.Lines().Len() > 0 {
		start = node.Lines().At(0).Start
	}
	if start < 0 {
		return 1
	}
	return bytes.Count(source[:min(start, len(source))], []byte("\n")) + 1
}
