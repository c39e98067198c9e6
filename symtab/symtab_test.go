package symtab

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestLookupInnermostFirst(t *testing.T) {
	tab := New[int]()
	tab.EnterScope()
	tab.Insert("x", 1)
	tab.Insert("y", 10)

	tab.EnterScope()
	tab.Insert("x", 2)
	be.Equal(t, tab.Depth(), 2)

	v, ok := tab.Lookup("x")
	be.True(t, ok)
	be.Equal(t, v, 2)

	v, ok = tab.Lookup("y")
	be.True(t, ok)
	be.Equal(t, v, 10)

	_, ok = tab.LookupLocal("y")
	be.Equal(t, ok, false)

	tab.ExitScope()
	v, ok = tab.Lookup("x")
	be.True(t, ok)
	be.Equal(t, v, 1)
}

func TestLookupMissing(t *testing.T) {
	tab := New[string]()
	v, ok := tab.Lookup("nope")
	be.Equal(t, ok, false)
	be.Equal(t, v, "")

	_, ok = tab.LookupLocal("nope")
	be.Equal(t, ok, false)

	tab.EnterScope()
	_, ok = tab.Lookup("nope")
	be.Equal(t, ok, false)
}

func TestInsertReplacesInSameScope(t *testing.T) {
	tab := New[int]()
	tab.EnterScope()
	tab.Insert("x", 1)
	tab.Insert("x", 2)
	v, _ := tab.LookupLocal("x")
	be.Equal(t, v, 2)
}

func TestExitScopeUnpairedPanics(t *testing.T) {
	defer func() {
		be.True(t, recover() != nil)
	}()
	tab := New[int]()
	tab.EnterScope()
	tab.ExitScope()
	tab.ExitScope()
}

func TestInsertWithoutScopePanics(t *testing.T) {
	defer func() {
		be.True(t, recover() != nil)
	}()
	New[int]().Insert("x", 1)
}
