package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/quailc/quail/config"
	"github.com/quailc/quail/irexec"
)

// runCLI runs the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cfg := config.Config{
		LogLevel:   slog.LevelError,
		OutputPath: filepath.Join(t.TempDir(), "out.ll"),
		MaxSteps:   config.DefaultMaxSteps,
		ModuleName: config.DefaultModuleName,
	}
	root := newRootCmd(cfg)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.q")
	be.Err(t, os.WriteFile(path, []byte(src), 0o644), nil)
	return path
}

const fibSource = `
int fib(int n) {
    if (n < 2) return n;
    return fib(n - 1) + fib(n - 2);
}
int main() { return fib(10); }
`

func TestRun(t *testing.T) {
	path := writeSource(t, fibSource)
	stdout, stderr, err := runCLI(t, "run", path)
	be.Err(t, err, nil)
	be.Equal(t, stdout, "55\n")
	be.Equal(t, stderr, "")
}

func TestRunEntry(t *testing.T) {
	path := writeSource(t, fibSource)
	_, _, err := runCLI(t, "run", "--entry", "nope", path)
	be.Err(t, err, irexec.ErrNoFunction)
}

func TestRunStepLimit(t *testing.T) {
	path := writeSource(t, "int main() { while (1) { } return 0; }")
	_, _, err := runCLI(t, "run", "--max-steps", "1000", path)
	be.Err(t, err, irexec.ErrStepLimit)
}

func TestRunDoesNotExecuteBrokenProgram(t *testing.T) {
	path := writeSource(t, "int main() { return y; }")
	stdout, stderr, err := runCLI(t, "run", path)
	be.Err(t, err, errFailed)
	be.Equal(t, stdout, "")
	be.Equal(t, stderr, path+`:1:21: semantic error: undefined variable "y"`+"\n")
}

func TestBuildWritesIR(t *testing.T) {
	path := writeSource(t, fibSource)
	out := filepath.Join(t.TempDir(), "fib.ll")
	_, _, err := runCLI(t, "build", "-o", out, path)
	be.Err(t, err, nil)

	data, err := os.ReadFile(out)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(string(data), "define i32 @fib(i32 %n)"))
}

func TestBuildToStdout(t *testing.T) {
	path := writeSource(t, "int main() { return 3; }")
	stdout, _, err := runCLI(t, "build", "-o", "-", path)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(stdout, "ret i32 3"))
}

func TestBuildWithErrorsStillWritesIR(t *testing.T) {
	path := writeSource(t, "int main() { break; return 3; }")
	stdout, stderr, err := runCLI(t, "build", "-o", "-", path)
	be.Err(t, err, errFailed)
	be.True(t, strings.Contains(stdout, "define i32 @main()"))
	be.True(t, strings.Contains(stderr, "break statement outside of loop"))
}

func TestBuildEmptyProgram(t *testing.T) {
	path := writeSource(t, "// empty\n")
	_, _, err := runCLI(t, "build", path)
	be.Err(t, err, "program has no functions")
}

func TestCheck(t *testing.T) {
	path := writeSource(t, "int main() { int x; x = 1 return x; }")
	stdout, stderr, err := runCLI(t, "check", path)
	be.Err(t, err, errFailed)
	be.Equal(t, stdout, "")
	be.Equal(t, stderr, path+":1:27: parse error: expected ';' after statement, found 'return'\n")
}

func TestCheckWarningsOnly(t *testing.T) {
	path := writeSource(t, "int main() { int a[2]; return a[2]; }")
	_, stderr, err := runCLI(t, "check", path)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(stderr, "semantic warning: index 2 is out of bounds"))
}

func TestAST(t *testing.T) {
	path := writeSource(t, "int main() { return -x * 2; }")
	stdout, _, err := runCLI(t, "ast", path)
	be.Err(t, err, nil)
	be.Equal(t, stdout, `(program (func "main" () (block (return (binary "*" (unary "-" (ident "x")) (integer 2))))))`+"\n")
}

func TestTokens(t *testing.T) {
	path := writeSource(t, "int x")
	stdout, _, err := runCLI(t, "tokens", path)
	be.Err(t, err, nil)
	be.Equal(t, stdout, "0\t1:1\tint\t\"int\"\n1\t1:5\tIDENT\t\"x\"\n2\t1:6\tEOF\t\"\"\n")
}

func TestMissingFile(t *testing.T) {
	_, _, err := runCLI(t, "check", filepath.Join(t.TempDir(), "nope.q"))
	be.Err(t, err, os.ErrNotExist)
}

func TestWrongArgCount(t *testing.T) {
	_, _, err := runCLI(t, "run")
	be.Err(t, err, "accepts 1 arg")
}

func TestExecuteExitCode(t *testing.T) {
	path := writeSource(t, "int main() { return 0; }")
	be.Equal(t, execute([]string{"check", path}), 0)
	be.Equal(t, execute([]string{"check", filepath.Join(t.TempDir(), "nope.q")}), 1)
}
