package codegen

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/nalgeon/be"

	"github.com/quailc/quail/ast"
	"github.com/quailc/quail/diag"
	"github.com/quailc/quail/irexec"
	"github.com/quailc/quail/lexer"
	"github.com/quailc/quail/parser"
)

func generate(t *testing.T, src string) (*ir.Module, *diag.List) {
	t.Helper()
	prog, pd := parser.Parse(lexer.Lex(src))
	be.Equal(t, pd.String(), "")
	m, d, err := Generate(prog, Options{ModuleName: "test.q"})
	be.Err(t, err, nil)
	return m, d
}

func call(t *testing.T, m *ir.Module, fn string, args ...int32) int32 {
	t.Helper()
	got, err := irexec.New(m, irexec.Options{}).Call(fn, args...)
	be.Err(t, err, nil)
	return got
}

func messages(d *diag.List) string {
	var lines []string
	for _, item := range d.Items() {
		lines = append(lines, item.Severity.String()+": "+item.Msg)
	}
	return strings.Join(lines, "\n")
}

func TestExecutePrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int32
	}{
		{"arithmetic", `int main() { return 2+3*4; }`, 14},
		{"shadowing", `int f() { int x; x = 1; if (1) { int x; x = 2; } return x; } int main() { return f(); }`, 1},
		{"constant short circuit", `int main() { int x; x = 0; if (0 && (1/0)) x = 5; return x + (0 && (1/0)); }`, 0},
		{"or short circuit", `int main() { return 1 || (1/0); }`, 1},
		{"break", `int main() {
			int i; int n; n = 0;
			for (i = 0; i < 5; i = i + 1) { if (i == 2) break; n = n + 1; }
			return i * 10 + n;
		}`, 22},
		{"continue in for runs increment", `int main() {
			int i; int s; s = 0;
			for (i = 0; i < 5; i = i + 1) { if (i == 2) continue; s = s + i; }
			return s;
		}`, 8},
		{"continue in while", `int main() {
			int i; int s; i = 0; s = 0;
			while (i < 5) { i = i + 1; if (i == 3) continue; s = s + i; }
			return s;
		}`, 12},
		{"break leaves inner loop only", `int main() {
			int i; int j; int c; c = 0;
			for (i = 0; i < 3; i = i + 1) { for (j = 0; j < 10; j = j + 1) { if (j == 2) break; c = c + 1; } }
			return c;
		}`, 6},
		{"array round trip", `int main() { int a[3]; a[1] = 5; return a[1]; }`, 5},
		{"array sum", `int main() {
			int a[5]; int i; int s;
			for (i = 0; i < 5; i = i + 1) a[i] = i * i;
			s = 0;
			for (i = 0; i < 5; i = i + 1) s = s + a[i];
			return s;
		}`, 30},
		{"recursion", `int fact(int n) { if (n <= 1) return 1; return n * fact(n - 1); } int main() { return fact(5); }`, 120},
		{"forward and mutual recursion", `int main() { return isEven(10); }
			int isEven(int n) { if (n == 0) return 1; return isOdd(n - 1); }
			int isOdd(int n) { if (n == 0) return 0; return isEven(n - 1); }`, 1},
		{"parameters are mutable", `int f(int a) { a = a + 1; return a; } int main() { return f(41); }`, 42},
		{"implicit return zero", `int main() { int x; x = 3; }`, 0},
		{"unary", `int main() { return -(3 - 10) + !0 + !7; }`, 8},
		{"comparisons as values", `int main() { return (3 < 4) + (4 <= 4) + (5 > 6) + (1 == 1) + (1 != 1) + (2 >= 3); }`, 3},
		{"logical values", `int main() { int a; a = 2; return (a && 3) * 10 + (0 || a); }`, 11},
		{"division truncates", `int main() { return -7 / 2; }`, -3},
		{"code after return", `int main() { return 1; return 2; }`, 1},
		{"else if chain", `int cls(int x) { if (x < 0) return -1; else if (x == 0) return 0; else return 1; }
			int main() { return cls(-5) * 100 + cls(0) * 10 + cls(7); }`, -99},
		{"while with logical condition", `int main() {
			int i; i = 0;
			while (i < 10 && i * i < 50) i = i + 1;
			return i;
		}`, 8},
		{"locals start at zero", `int main() { int x; int a[2]; return x + a[0] + a[1]; }`, 0},
		{"loop body locals start at zero every iteration", `int main() {
			int x; int a[2]; int i;
			for (i = 0; i < 3; i = i + 1) { int y; y = y + 1; x = y; }
			return x * 100 + a[0] + a[1];
		}`, 100},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, d := generate(t, test.src)
			be.Equal(t, messages(d), "")
			be.Equal(t, call(t, m, "main"), test.want)
		})
	}
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	m, _ := generate(t, `int main() { return 0 && (1/0); }`)
	be.Equal(t, strings.Contains(m.String(), "sdiv"), false)
	be.Equal(t, call(t, m, "main"), 0)
}

func TestShortCircuitWithRuntimeOperand(t *testing.T) {
	m, d := generate(t, `
int f(int a) { return a && (10 / a); }
int g(int a) { return a || (1 / a); }
`)
	be.Equal(t, d.Len(), 0)
	ll := m.String()
	be.True(t, strings.Contains(ll, "and.rhs:"))
	be.True(t, strings.Contains(ll, "or.end:"))
	be.True(t, strings.Contains(ll, "phi i1"))

	be.Equal(t, call(t, m, "f", 0), 0)
	be.Equal(t, call(t, m, "f", 2), 1)
	be.Equal(t, call(t, m, "g", 5), 1)

	_, err := irexec.New(m, irexec.Options{}).Call("g", 0)
	be.Err(t, err, irexec.ErrDivideByZero)
}

func TestContinueTargetsIncrement(t *testing.T) {
	m, _ := generate(t, `int main() { int i; for (i = 0; i < 3; i = i + 1) { continue; } return i; }`)
	ll := m.String()
	be.True(t, strings.Contains(ll, "for.inc:"))
	body := ll[strings.Index(ll, "for.body:"):strings.Index(ll, "for.inc:")]
	be.True(t, strings.Contains(body, "br label %for.inc"))
	be.Equal(t, strings.Contains(body, "br label %for.cond"), false)
	be.Equal(t, call(t, m, "main"), 3)
}

func TestAllocasInEntryBlock(t *testing.T) {
	m, _ := generate(t, `int main(int p) {
  int i;
  for (i = 0; i < 3; i = i + 1) { int t; int arr[4]; t = i; arr[t] = t; }
  while (0) { int w; }
  return 0;
}`)
	f := m.Funcs[0]
	entry := f.Blocks[0]
	be.Equal(t, entry.Name(), "entry")

	allocas := 0
	for i, inst := range entry.Insts {
		if _, ok := inst.(*ir.InstAlloca); ok {
			be.Equal(t, i, allocas)
			allocas++
		}
	}
	be.Equal(t, allocas, 5) // p.addr, i, t, arr, w

	for _, b := range f.Blocks[1:] {
		for _, inst := range b.Insts {
			_, ok := inst.(*ir.InstAlloca)
			be.Equal(t, ok, false)
		}
	}
	be.True(t, strings.Contains(m.String(), "%p.addr = alloca i32"))
	be.True(t, strings.Contains(m.String(), "%arr = alloca [4 x i32]"))
}

func TestDeclarationsStoreZero(t *testing.T) {
	m, _ := generate(t, `int main() { int x; int a[3]; if (x) { int y; return y; } return a[1]; }`)
	out := m.String()
	be.True(t, strings.Contains(out, "store i32 0, i32* %x"))
	be.True(t, strings.Contains(out, "store [3 x i32] zeroinitializer, [3 x i32]* %a"))

	// y is zeroed in the branch that declares it, not in the entry block.
	f := m.Funcs[0]
	for _, inst := range f.Blocks[0].Insts {
		if st, ok := inst.(*ir.InstStore); ok {
			be.True(t, st.Dst.Ident() != "%y")
		}
	}
	be.True(t, strings.Contains(out, "store i32 0, i32* %y"))
}

func TestEveryBlockTerminated(t *testing.T) {
	m, _ := generate(t, `
int f(int a) {
  if (a) { return 1; } else { return 2; }
}
int g(int a) {
  while (1) { if (a) break; a = a + 1; continue; a = 5; }
  for (;a;) { return a; }
}
int h() { }
`)
	for _, f := range m.Funcs {
		be.True(t, len(f.Blocks) > 0)
		for _, b := range f.Blocks {
			be.True(t, b.Term != nil)
		}
	}
	be.Equal(t, call(t, m, "f", 0), 2)
	be.Equal(t, call(t, m, "g", 0), 1)
	be.Equal(t, call(t, m, "h"), 0)
}

func TestBlockNames(t *testing.T) {
	m, _ := generate(t, `int main() {
  int i; i = 0;
  while (i < 2) { if (i) i = i + 1; else i = i + 2; }
  if (i) { i = 0; }
  return i;
}`)
	ll := m.String()
	for _, label := range []string{"entry:", "while.cond:", "while.body:", "while.end:", "if.then:", "if.else:", "if.end:", "if.then.1:", "if.end.1:"} {
		be.True(t, strings.Contains(ll, label))
	}
	be.Equal(t, m.SourceFilename, "test.q")
}

func TestSemanticDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"undefined variable", `int f() { return y; }`, `error: undefined variable "y"`},
		{"assignment to undeclared", `int f() { z = 1; return 0; }`, `error: assignment to undeclared variable "z"`},
		{"break outside loop", `int f() { break; return 0; }`, `error: break statement outside of loop`},
		{"continue outside loop", `int f() { if (1) continue; return 0; }`, `error: continue statement outside of loop`},
		{"undefined function", `int f() { return h(1); }`, `error: call to undefined function "h"`},
		{"arity", `int f(int a) { return f(1, 2); }`, `error: function "f" expects 1 arguments, got 2`},
		{"redeclaration", `int f() { int x; x = 1; int x; return x; }`, `error: "x" is already declared in this scope`},
		{"duplicate function", `int f() { return 1; } int f() { return 2; }`, `error: function "f" is already defined`},
		{"duplicate parameter", `int f(int a, int a) { return a; }`, `error: duplicate parameter "a" in function "f"`},
		{"array as scalar", `int f() { int a[2]; return a; }`, `error: array "a" cannot be used as a scalar`},
		{"assign to array", `int f() { int a[2]; a = 1; return 0; }`, `error: array "a" cannot be used as a scalar`},
		{"index scalar", `int f() { int x; return x[0]; }`, `error: "x" is not an array`},
		{"undefined array", `int f() { q[0] = 1; return 0; }`, `error: undefined array "q"`},
		{"constant index out of bounds", `int f() { int a[2]; a[2] = 1; return 0; }`, `warning: index 2 is out of bounds for array "a" of size 2`},
		{"division by zero", `int f() { return 1 / 0; }`, `warning: division by zero`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, d := generate(t, test.src)
			be.Equal(t, messages(d), test.want)
		})
	}
}

func TestUndefinedReferenceDoesNotStopGeneration(t *testing.T) {
	m, d := generate(t, `
int f() { int a; a = missing + 1; return y; }
int g() { return 7; }
`)
	be.Equal(t, d.Len(), 2)
	be.Equal(t, d.HasErrors(), true)
	be.Equal(t, d.Items()[0].Pos.Line, 2)
	be.Equal(t, call(t, m, "g"), 7)
	be.Equal(t, call(t, m, "f"), 0)
}

func TestRedeclarationKeepsFirstBinding(t *testing.T) {
	m, d := generate(t, `int main() { int x; x = 1; int x; x = x + 1; return x; }`)
	be.Equal(t, d.Len(), 1)
	be.Equal(t, call(t, m, "main"), 2)
}

func TestDuplicateFunctionKeepsFirst(t *testing.T) {
	m, d := generate(t, `int f() { return 1; } int f() { return 2; } int main() { return f(); }`)
	be.Equal(t, d.Len(), 1)
	be.Equal(t, len(m.Funcs), 2)
	be.Equal(t, call(t, m, "main"), 1)
}

func TestEmptyProgram(t *testing.T) {
	_, _, err := Generate(nil, Options{})
	be.Err(t, err, ErrEmptyProgram)

	_, _, err = Generate(&ast.Program{}, Options{})
	be.Err(t, err, ErrEmptyProgram)
}
