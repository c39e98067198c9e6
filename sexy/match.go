package sexy

import (
	"fmt"
	"strings"
)

// MismatchError describes where a datum first departs from a pattern.
type MismatchError struct {
	Path    []int // list indexes from the root to the mismatch
	Pattern *Node
	Datum   *Node
}

func (e *MismatchError) Error() string {
	var where strings.Builder
	where.WriteString("root")
	for _, i := range e.Path {
		fmt.Fprintf(&where, "[%d]", i)
	}
	got := "nothing"
	if e.Datum != nil {
		got = e.Datum.String()
	}
	want := "nothing"
	if e.Pattern != nil {
		want = e.Pattern.String()
	}
	return fmt.Sprintf("at %s: expected %s, got %s", where.String(), want, got)
}

// Match reports whether datum has the shape of pattern. A "_" symbol in the
// pattern matches any one datum and "..." inside a list matches any run of
// items, including none. The returned error is a *MismatchError.
func Match(pattern, datum *Node) error {
	if m := match(pattern, datum, nil); m != nil {
		return m
	}
	return nil
}

// MatchString parses datum and matches it against pattern.
func MatchString(pattern *Node, datum string) error {
	d, err := Parse(datum)
	if err != nil {
		return fmt.Errorf("parse datum: %w", err)
	}
	return Match(pattern, d)
}

func match(pat, dat *Node, path []int) *MismatchError {
	if pat.IsWildcard() {
		return nil
	}
	if pat.Type != dat.Type {
		return &MismatchError{Path: path, Pattern: pat, Datum: dat}
	}
	if pat.Type != NodeList {
		if pat.Text != dat.Text {
			return &MismatchError{Path: path, Pattern: pat, Datum: dat}
		}
		return nil
	}
	return matchItems(pat.Items, dat.Items, path, 0)
}

// matchItems matches the tail of a list starting at index base of the datum.
func matchItems(pats, dats []*Node, path []int, base int) *MismatchError {
	for i, p := range pats {
		if p.Type == NodeEllipsis {
			rest := pats[i+1:]
			var first *MismatchError
			for skip := i; skip <= len(dats); skip++ {
				m := matchItems(rest, dats[skip:], path, base+skip)
				if m == nil {
					return nil
				}
				if first == nil {
					first = m
				}
			}
			return first
		}
		if i >= len(dats) {
			return &MismatchError{Path: appendPath(path, base+i), Pattern: p}
		}
		if m := match(p, dats[i], appendPath(path, base+i)); m != nil {
			return m
		}
	}
	if len(dats) > len(pats) {
		return &MismatchError{Path: appendPath(path, base+len(pats)), Datum: dats[len(pats)]}
	}
	return nil
}

func appendPath(path []int, i int) []int {
	out := make([]int, len(path), len(path)+1)
	copy(out, path)
	return append(out, i)
}
