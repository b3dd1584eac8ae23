// Package builder provides the symbol table used to name labels in recipes
// and printed automata.
package builder

import (
	"strconv"

	"github.com/katalvlaran/hclg/fst"
)

// EpsilonSymbol is the name of label 0.
const EpsilonSymbol = "<eps>"

// SymbolTable assigns labels to names densely, in order of first Add.
// Label 0 is always EpsilonSymbol.
// It is a pure, deterministic mapping: the same sequence of Add calls always
// yields the same labels. Not safe for concurrent mutation.
type SymbolTable struct {
	names []string
	ids   map[string]fst.Label
}

// NewSymbolTable returns a table holding only EpsilonSymbol.
// Complexity: O(1).
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{ids: make(map[string]fst.Label)}
	t.Add(EpsilonSymbol)

	return t
}

// Add returns the label of name, assigning the next one on first sight.
// Complexity: O(1) amortized.
func (t *SymbolTable) Add(name string) fst.Label {
	if l, ok := t.ids[name]; ok {
		return l
	}
	l := fst.Label(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = l

	return l
}

// Find returns the label of name.
func (t *SymbolTable) Find(name string) (fst.Label, bool) {
	l, ok := t.ids[name]

	return l, ok
}

// Name returns the name of l, or its decimal form if l is unknown,
// e.g. 42→"42". Never panics.
func (t *SymbolTable) Name(l fst.Label) string {
	if l >= 0 && int(l) < len(t.names) {
		return t.names[l]
	}

	return strconv.Itoa(int(l))
}

// Len returns the number of labels, epsilon included.
func (t *SymbolTable) Len() int { return len(t.names) }

// Labels returns every label except epsilon, ascending.
func (t *SymbolTable) Labels() []fst.Label {
	out := make([]fst.Label, 0, len(t.names)-1)
	for l := 1; l < len(t.names); l++ {
		out = append(out, fst.Label(l))
	}

	return out
}
