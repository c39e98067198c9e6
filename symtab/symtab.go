// Package symtab implements a lexically scoped name table.
package symtab

// Table is a stack of scopes mapping names to values of type T. Insert
// targets the innermost scope; Lookup searches innermost to outermost.
type Table[T any] struct {
	scopes []map[string]T
}

// New returns a table with no open scopes.
func New[T any]() *Table[T] {
	return &Table[T]{}
}

// EnterScope pushes an empty scope.
func (t *Table[T]) EnterScope() {
	t.scopes = append(t.scopes, make(map[string]T))
}

// ExitScope pops the innermost scope. Popping with no open scope is a
// programming error and panics.
func (t *Table[T]) ExitScope() {
	if len(t.scopes) == 0 {
		panic("symtab: ExitScope without matching EnterScope")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Depth is the number of open scopes.
func (t *Table[T]) Depth() int {
	return len(t.scopes)
}

// Insert binds name in the innermost scope, replacing any binding of the
// same name in that scope. Insert panics when no scope is open.
func (t *Table[T]) Insert(name string, v T) {
	if len(t.scopes) == 0 {
		panic("symtab: Insert with no open scope")
	}
	t.scopes[len(t.scopes)-1][name] = v
}

// Lookup finds the innermost binding of name.
func (t *Table[T]) Lookup(name string) (T, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if v, ok := t.scopes[i][name]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// LookupLocal finds name in the innermost scope only.
func (t *Table[T]) LookupLocal(name string) (T, bool) {
	if len(t.scopes) == 0 {
		var zero T
		return zero, false
	}
	v, ok := t.scopes[len(t.scopes)-1][name]
	return v, ok
}
