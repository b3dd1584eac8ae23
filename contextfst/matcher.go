package contextfst

import (
	"github.com/katalvlaran/hclg/fst"
)

// Matcher looks up arcs of a ContextFst by output label. It implements
// fst.OutputMatcher, so composition of C on the left of LG queries exactly the
// labels LG can accept and never expands the other arcs of a state.
type Matcher struct {
	c *ContextFst
}

// MatcherStats counts the work done through a ContextFst's matcher.
type MatcherStats struct {
	// Queries is the number of FindOutput calls.
	Queries int64
	// Materialized is the number of distinct arcs created.
	Materialized int64
	// States is the number of histories materialized.
	States int
}

// NewMatcher returns a matcher over c.
func NewMatcher(c *ContextFst) *Matcher {
	return &Matcher{c: c}
}

// FindOutput returns the at most one arc leaving s with output label olabel.
// Epsilon never matches: C has no epsilon outputs.
func (m *Matcher) FindOutput(s fst.StateID, olabel fst.Label) []fst.Arc {
	if olabel == fst.Epsilon {
		return nil
	}

	return m.c.findOutput(s, olabel)
}

// Stats returns the counters of the underlying ContextFst.
func (m *Matcher) Stats() MatcherStats {
	return MatcherStats{
		Queries:      m.c.queried.Load(),
		Materialized: m.c.materialized.Load(),
		States:       m.c.NumStatesCached(),
	}
}
