package disambig

import (
	"sort"

	"github.com/katalvlaran/hclg/fst"
)

// Set is an ordered set of labels. The zero value is empty and ready to use.
type Set struct {
	labels []fst.Label
	member map[fst.Label]struct{}
}

// NewSet returns a set holding labels in order of first appearance.
func NewSet(labels ...fst.Label) *Set {
	s := &Set{}
	for _, l := range labels {
		s.Add(l)
	}

	return s
}

// Add inserts l and reports whether it was new.
func (s *Set) Add(l fst.Label) bool {
	if s.member == nil {
		s.member = make(map[fst.Label]struct{})
	}
	if _, ok := s.member[l]; ok {
		return false
	}
	s.member[l] = struct{}{}
	s.labels = append(s.labels, l)

	return true
}

// Contains reports membership. A nil set contains nothing.
func (s *Set) Contains(l fst.Label) bool {
	if s == nil {
		return false
	}
	_, ok := s.member[l]

	return ok
}

// Len returns the number of labels.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}

	return len(s.labels)
}

// Labels returns a copy of the labels in insertion order.
func (s *Set) Labels() []fst.Label {
	if s == nil {
		return nil
	}

	return append([]fst.Label(nil), s.labels...)
}

// Sorted returns a copy of the labels in ascending order.
func (s *Set) Sorted() []fst.Label {
	out := s.Labels()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Union returns a new set with the labels of s followed by those of o.
func (s *Set) Union(o *Set) *Set {
	out := NewSet(s.Labels()...)
	for _, l := range o.Labels() {
		out.Add(l)
	}

	return out
}
