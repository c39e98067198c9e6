package irexec

import (
	"math"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/nalgeon/be"
)

func i32(n int64) *constant.Int {
	return constant.NewInt(types.I32, n)
}

func TestArithmetic(t *testing.T) {
	m := ir.NewModule()
	a, b := ir.NewParam("a", types.I32), ir.NewParam("b", types.I32)
	f := m.NewFunc("f", types.I32, a, b)
	entry := f.NewBlock("entry")
	sum := entry.NewAdd(a, b)
	prod := entry.NewMul(sum, i32(3))
	diff := entry.NewSub(prod, b)
	quot := entry.NewSDiv(diff, i32(2))
	entry.NewRet(quot)

	mach := New(m, Options{})
	got, err := mach.Call("f", 4, 6)
	be.Err(t, err, nil)
	be.Equal(t, got, int32(12)) // ((4+6)*3-6)/2
	be.Equal(t, mach.Steps(), int64(5))
}

func TestWrappingArithmetic(t *testing.T) {
	m := ir.NewModule()
	a := ir.NewParam("a", types.I32)
	f := m.NewFunc("f", types.I32, a)
	entry := f.NewBlock("entry")
	entry.NewRet(entry.NewAdd(a, i32(1)))

	got, err := New(m, Options{}).Call("f", math.MaxInt32)
	be.Err(t, err, nil)
	be.Equal(t, got, int32(math.MinInt32))
}

func TestDivisionTraps(t *testing.T) {
	m := ir.NewModule()
	a, b := ir.NewParam("a", types.I32), ir.NewParam("b", types.I32)
	f := m.NewFunc("div", types.I32, a, b)
	entry := f.NewBlock("entry")
	entry.NewRet(entry.NewSDiv(a, b))

	mach := New(m, Options{})
	_, err := mach.Call("div", 1, 0)
	be.Err(t, err, ErrDivideByZero)
	_, err = mach.Call("div", math.MinInt32, -1)
	be.Err(t, err, ErrOverflow)
	got, err := mach.Call("div", -9, 2)
	be.Err(t, err, nil)
	be.Equal(t, got, int32(-4))
}

func TestMemory(t *testing.T) {
	m := ir.NewModule()
	i := ir.NewParam("i", types.I32)
	f := m.NewFunc("f", types.I32, i)
	entry := f.NewBlock("entry")
	arrType := types.NewArray(4, types.I32)
	arr := entry.NewAlloca(arrType)
	p := entry.NewGetElementPtr(arrType, arr, i32(0), i)
	entry.NewStore(i32(9), p)
	q := entry.NewGetElementPtr(arrType, arr, i32(0), i32(2))
	entry.NewRet(entry.NewLoad(types.I32, q))

	mach := New(m, Options{})
	got, err := mach.Call("f", 2)
	be.Err(t, err, nil)
	be.Equal(t, got, int32(9))

	_, err = mach.Call("f", 1)
	be.Err(t, err, ErrUninitialized)

	_, err = mach.Call("f", 4)
	be.Err(t, err, ErrOutOfBounds)
	_, err = mach.Call("f", -1)
	be.Err(t, err, ErrOutOfBounds)
}

func TestZeroInitializer(t *testing.T) {
	m := ir.NewModule()
	i := ir.NewParam("i", types.I32)
	f := m.NewFunc("f", types.I32, i)
	entry := f.NewBlock("entry")
	arrType := types.NewArray(3, types.I32)
	arr := entry.NewAlloca(arrType)
	entry.NewStore(constant.NewZeroInitializer(arrType), arr)
	p := entry.NewGetElementPtr(arrType, arr, i32(0), i)
	entry.NewRet(entry.NewLoad(types.I32, p))

	mach := New(m, Options{})
	got, err := mach.Call("f", 2)
	be.Err(t, err, nil)
	be.Equal(t, got, int32(0))
	_, err = mach.Call("f", 3)
	be.Err(t, err, ErrOutOfBounds)
}

func TestUninitializedScalar(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("f", types.I32)
	entry := f.NewBlock("entry")
	x := entry.NewAlloca(types.I32)
	entry.NewRet(entry.NewLoad(types.I32, x))

	_, err := New(m, Options{}).Call("f")
	be.Err(t, err, ErrUninitialized)
}

// TestBranchesAndPhi computes max(a, b) with a diamond and a phi.
func TestBranchesAndPhi(t *testing.T) {
	m := ir.NewModule()
	a, b := ir.NewParam("a", types.I32), ir.NewParam("b", types.I32)
	f := m.NewFunc("max", types.I32, a, b)
	entry := f.NewBlock("entry")
	left := f.NewBlock("left")
	right := f.NewBlock("right")
	join := f.NewBlock("join")

	entry.NewCondBr(entry.NewICmp(enum.IPredSGT, a, b), left, right)
	left.NewBr(join)
	right.NewBr(join)
	join.NewRet(join.NewPhi(ir.NewIncoming(a, left), ir.NewIncoming(b, right)))

	mach := New(m, Options{})
	for _, tc := range []struct{ a, b, want int32 }{{1, 2, 2}, {5, -3, 5}, {4, 4, 4}} {
		got, err := mach.Call("max", tc.a, tc.b)
		be.Err(t, err, nil)
		be.Equal(t, got, tc.want)
	}
}

func TestBooleans(t *testing.T) {
	m := ir.NewModule()
	a := ir.NewParam("a", types.I32)
	f := m.NewFunc("not", types.I32, a)
	entry := f.NewBlock("entry")
	nz := entry.NewICmp(enum.IPredNE, a, i32(0))
	not := entry.NewXor(nz, constant.True)
	entry.NewRet(entry.NewZExt(not, types.I32))

	mach := New(m, Options{})
	got, err := mach.Call("not", 0)
	be.Err(t, err, nil)
	be.Equal(t, got, int32(1))
	got, err = mach.Call("not", 7)
	be.Err(t, err, nil)
	be.Equal(t, got, int32(0))
}

func TestCalls(t *testing.T) {
	m := ir.NewModule()
	x := ir.NewParam("x", types.I32)
	double := m.NewFunc("double", types.I32, x)
	db := double.NewBlock("entry")
	db.NewRet(db.NewMul(x, i32(2)))

	main := m.NewFunc("main", types.I32)
	mb := main.NewBlock("entry")
	mb.NewRet(mb.NewCall(double, i32(21)))

	got, err := New(m, Options{}).Call("main")
	be.Err(t, err, nil)
	be.Equal(t, got, int32(42))
}

func TestStepLimit(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("spin", types.I32)
	entry := f.NewBlock("entry")
	loop := f.NewBlock("loop")
	entry.NewBr(loop)
	loop.NewBr(loop)

	_, err := New(m, Options{MaxSteps: 1000}).Call("spin")
	be.Err(t, err, ErrStepLimit)
}

func TestCallDepthLimit(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("forever", types.I32)
	entry := f.NewBlock("entry")
	entry.NewRet(entry.NewCall(f))

	_, err := New(m, Options{MaxDepth: 50}).Call("forever")
	be.Err(t, err, ErrCallDepth)
}

func TestCallErrors(t *testing.T) {
	m := ir.NewModule()
	a := ir.NewParam("a", types.I32)
	f := m.NewFunc("id", types.I32, a)
	f.NewBlock("entry").NewRet(a)

	mach := New(m, Options{})
	_, err := mach.Call("nope")
	be.Err(t, err, ErrNoFunction)
	_, err = mach.Call("id")
	be.Err(t, err, "expects 1 arguments, got 0")
}
