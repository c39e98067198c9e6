// Package codegen lowers an ast.Program into an LLVM IR module.
//
// Every value is a 32-bit integer. Conditions are compared against zero to
// get an i1, and && and || are lowered to branches joined by a phi so the
// right operand only runs when it can change the result. Locals live in
// allocas placed at the top of each function's entry block.
//
// Problems in the program are reported as diagnostics and the offending
// node is skipped, so the module is best effort when any are reported.
package codegen

import (
	"errors"
	"io"
	"log/slog"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/quailc/quail/ast"
	"github.com/quailc/quail/diag"
	"github.com/quailc/quail/symtab"
	"github.com/quailc/quail/token"
)

// ErrEmptyProgram is returned for a nil program or one with no functions.
var ErrEmptyProgram = errors.New("codegen: program has no functions")

type Options struct {
	// ModuleName is recorded as the module's source file name.
	ModuleName string
	// Logger receives debug events. Nil discards them.
	Logger *slog.Logger
}

// storage is what a variable name resolves to.
type storage struct {
	slot  *ir.InstAlloca
	array bool
	size  int32
}

// function pairs a declared IR function with the definition that owns it.
type function struct {
	fn  *ir.Func
	def *ast.FunctionDef
}

// Generator holds the state shared by all functions of one module.
type Generator struct {
	mod   *ir.Module
	funcs map[string]*function
	syms  *symtab.Table[*storage]
	diags *diag.List
	log   *slog.Logger
}

// Generate lowers prog. The only error is ErrEmptyProgram; everything
// else is reported in the returned diagnostics.
func Generate(prog *ast.Program, opts Options) (*ir.Module, *diag.List, error) {
	if prog == nil || len(prog.Funcs) == 0 {
		return nil, &diag.List{}, ErrEmptyProgram
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g := &Generator{
		mod:   ir.NewModule(),
		funcs: make(map[string]*function),
		syms:  symtab.New[*storage](),
		diags: &diag.List{},
		log:   log.With("stage", "CODEGEN"),
	}
	g.mod.SourceFilename = opts.ModuleName

	g.declareFunctions(prog)
	for _, fd := range prog.Funcs {
		if f := g.funcs[fd.Proto.Name]; f != nil && f.def == fd {
			g.genFunction(f)
		}
	}
	return g.mod, g.diags, nil
}

// declareFunctions adds every prototype to the module before any body is
// generated, so calls may refer to functions defined later in the source.
func (g *Generator) declareFunctions(prog *ast.Program) {
	for _, fd := range prog.Funcs {
		name := fd.Proto.Name
		if _, dup := g.funcs[name]; dup {
			g.errorf(fd.Proto.At, "function %q is already defined", name)
			continue
		}
		params := make([]*ir.Param, len(fd.Proto.Params))
		for i, p := range fd.Proto.Params {
			params[i] = ir.NewParam(p, types.I32)
		}
		g.funcs[name] = &function{fn: g.mod.NewFunc(name, types.I32, params...), def: fd}
	}
}

func (g *Generator) genFunction(f *function) {
	proto := f.def.Proto
	s := newSession(g, f.fn)

	// Parameters get their own scope around the body's block scope.
	g.syms.EnterScope()
	for i, name := range proto.Params {
		param := f.fn.Params[i]
		param.SetName(s.uniq(name))
		if _, dup := g.syms.LookupLocal(name); dup {
			g.errorf(proto.At, "duplicate parameter %q in function %q", name, proto.Name)
			continue
		}
		slot := s.alloca(types.I32, name+".addr")
		s.cur.NewStore(param, slot)
		g.syms.Insert(name, &storage{slot: slot})
	}
	s.genBlock(f.def.Body)
	g.syms.ExitScope()

	s.finish()
	g.log.Debug("generated function", "name", proto.Name, "blocks", len(f.fn.Blocks))
}

func (g *Generator) errorf(at token.Pos, format string, args ...any) {
	g.diags.Errorf(diag.Semantic, at, -1, format, args...)
}

func (g *Generator) warnf(at token.Pos, format string, args ...any) {
	g.diags.Warnf(diag.Semantic, at, -1, format, args...)
}
