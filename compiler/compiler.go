// Package compiler runs the quail pipeline: lex, parse, generate.
package compiler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/llir/llvm/ir"

	"github.com/quailc/quail/ast"
	"github.com/quailc/quail/codegen"
	"github.com/quailc/quail/diag"
	"github.com/quailc/quail/lexer"
	"github.com/quailc/quail/parser"
	"github.com/quailc/quail/token"
)

type Options struct {
	// ModuleName is recorded in the generated module. Defaults to "quail".
	ModuleName string
	Logger     *slog.Logger
}

// Result is everything one compilation produced. Module is nil when the
// program had no functions to generate.
type Result struct {
	Tokens      []token.Token
	Program     *ast.Program
	Module      *ir.Module
	Diagnostics *diag.List
}

// OK reports whether the compilation produced a module and no errors.
func (r *Result) OK() bool {
	return r.Module != nil && !r.Diagnostics.HasErrors()
}

// WriteIR writes the module as textual LLVM IR.
func (r *Result) WriteIR(w io.Writer) error {
	if r.Module == nil {
		return errors.New("compiler: no module was generated")
	}
	_, err := io.WriteString(w, r.Module.String())
	return err
}

// Parse lexes and parses src without generating code.
func Parse(src string, opts Options) *Result {
	log := logger(opts)
	res := &Result{Diagnostics: &diag.List{}}

	lex := log.With("stage", "LEXER")
	lex.Debug("start", "bytes", len(src))
	res.Tokens = lexer.Lex(src)
	lex.Debug("finish", "tokens", len(res.Tokens))

	parse := log.With("stage", "PARSER")
	parse.Debug("start")
	prog, diags := parser.Parse(res.Tokens)
	res.Program = prog
	res.Diagnostics.Append(diags)
	parse.Debug("finish", "functions", len(prog.Funcs), "diagnostics", diags.Len())
	return res
}

// Compile runs the whole pipeline over src. Problems in the program are
// returned as diagnostics; the error is non-nil only when there was
// nothing to generate.
func Compile(src string, opts Options) (*Result, error) {
	log := logger(opts)
	res := Parse(src, opts)

	name := opts.ModuleName
	if name == "" {
		name = "quail"
	}
	// Semantic checks run inside code generation, so the two stages
	// bracket the same call.
	gen := log.With("stage", "CODEGEN")
	sema := log.With("stage", "SEMANTIC")
	gen.Debug("start", "module", name)
	sema.Debug("start")
	mod, diags, err := codegen.Generate(res.Program, codegen.Options{ModuleName: name, Logger: log})
	res.Diagnostics.Append(diags)
	sema.Debug("finish", "diagnostics", diags.Len(), "errors", len(diags.Errors()))
	if err != nil {
		gen.Debug("finish", "err", err)
		return res, fmt.Errorf("compiler: %w", err)
	}
	res.Module = mod
	gen.Debug("finish", "functions", len(mod.Funcs))
	return res, nil
}

// WriteFile writes the module's IR to path, replacing any existing file.
func WriteFile(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("compiler: %w", err)
	}
	if err := res.WriteIR(f); err != nil {
		f.Close()
		return fmt.Errorf("compiler: writing %s: %w", path, err)
	}
	return f.Close()
}

func logger(opts Options) *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
