package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/quailc/quail/ast"
	"github.com/quailc/quail/compiler"
	"github.com/quailc/quail/config"
	"github.com/quailc/quail/diag"
	"github.com/quailc/quail/irexec"
	"github.com/quailc/quail/lexer"
	"github.com/quailc/quail/watch"
)

// errFailed is returned after diagnostics have already been printed.
var errFailed = errors.New("compilation failed")

type app struct {
	cfg     config.Config
	verbose bool
	log     *slog.Logger
}

func newRootCmd(cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg}
	root := &cobra.Command{
		Use:   "quail",
		Short: "Compiler for a small C-like language that emits LLVM IR",
		Long: `quail compiles int-only C-like programs to LLVM IR.

Commands:
  build   Compile a file and write textual IR
  run     Compile a file and execute its main function
  check   Report diagnostics without writing output
  ast     Print the parsed program as an s-expression
  tokens  Print the token stream
  watch   Rebuild a file every time it changes
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				a.cfg.LogLevel = slog.LevelDebug
			}
			a.log = a.cfg.Logger(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every pipeline stage")
	root.AddCommand(a.buildCmd(), a.runCmd(), a.checkCmd(), a.astCmd(), a.tokensCmd(), a.watchCmd())
	return root
}

func (a *app) buildCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a file and write textual IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.build(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", a.cfg.OutputPath, `output file, "-" for stdout`)
	return cmd
}

// build writes whatever module was generated, even when the program had
// errors, and then reports failure.
func (a *app) build(stdout, stderr io.Writer, path, out string) error {
	res, err := a.compile(stderr, path)
	if res == nil || res.Module == nil {
		return err
	}
	if out == "-" {
		if werr := res.WriteIR(stdout); werr != nil {
			return werr
		}
	} else if werr := compiler.WriteFile(out, res); werr != nil {
		return werr
	}
	a.log.Info("wrote IR", "file", path, "output", out)
	return err
}

func (a *app) runCmd() *cobra.Command {
	var entry string
	var maxSteps int64
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Compile a file and execute its main function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.compile(cmd.ErrOrStderr(), args[0])
			if err != nil {
				return err
			}
			m := irexec.New(res.Module, irexec.Options{MaxSteps: maxSteps, Logger: a.log})
			v, err := m.Call(entry)
			if err != nil {
				return fmt.Errorf("run %s: %w", entry, err)
			}
			a.log.Debug("executed", "entry", entry, "steps", m.Steps())
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().StringVar(&entry, "entry", "main", "function to call")
	cmd.Flags().Int64Var(&maxSteps, "max-steps", a.cfg.MaxSteps, "instruction budget")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report diagnostics without writing output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.compile(cmd.ErrOrStderr(), args[0])
			return err
		},
	}
}

func (a *app) astCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ast <file>",
		Short: "Print the parsed program as an s-expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res := compiler.Parse(string(src), compiler.Options{Logger: a.log})
			fmt.Fprintln(cmd.OutOrStdout(), ast.SExpr(res.Program))
			return report(cmd.ErrOrStderr(), args[0], res.Diagnostics)
		},
	}
}

func (a *app) tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <file>",
		Short: "Print the token stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, tok := range lexer.Lex(string(src)) {
				fmt.Fprintf(w, "%d\t%s\t%s\t%q\n", i, tok.Pos, tok.Kind, tok.Lexeme)
			}
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Rebuild a file every time it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			var mu sync.Mutex
			rebuild := func() {
				mu.Lock()
				defer mu.Unlock()
				if err := a.build(stdout, stderr, path, out); err == nil {
					fmt.Fprintf(stderr, "%s: ok\n", path)
				} else if !errors.Is(err, errFailed) {
					fmt.Fprintf(stderr, "%s: %v\n", path, err)
				}
			}

			w, err := watch.New(func(string) { rebuild() })
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Add(path); err != nil {
				return err
			}

			rebuild()
			a.log.Info("watching", "file", path)
			err = w.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", a.cfg.OutputPath, `output file, "-" for stdout`)
	return cmd
}

// compile reads and compiles path, printing its diagnostics. It returns
// errFailed when the program has errors.
func (a *app) compile(stderr io.Writer, path string) (*compiler.Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := compiler.Compile(string(src), compiler.Options{
		ModuleName: a.cfg.ModuleName,
		Logger:     a.log.With("file", path),
	})
	if rerr := report(stderr, path, res.Diagnostics); rerr != nil {
		return res, rerr
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

func report(w io.Writer, path string, diags *diag.List) error {
	for _, d := range diags.Items() {
		fmt.Fprintf(w, "%s:%s\n", path, d)
	}
	if diags.HasErrors() {
		return errFailed
	}
	return nil
}
