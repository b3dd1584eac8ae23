// SPDX-License-Identifier: MIT
//
// File: manager.go
// Role: allocation and bookkeeping of disambiguation symbols per alphabet.
// Policy:
//   - Every level is allocated at most once; a second allocation is an error
//     rather than a silent overwrite.
//   - The context level is derived, never allocated: it is read from the
//     ILabelInfo arena after C ∘ LG has discovered its windows.

package disambig

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/hclg/contextfst"
	"github.com/katalvlaran/hclg/fst"
)

// Level names the alphabet a disambiguation symbol lives in.
type Level int

const (
	// LevelWord is the grammar's input alphabet (word-level #0 on backoff arcs).
	LevelWord Level = iota
	// LevelPhone is the lexicon's input alphabet (#0, #1, ...).
	LevelPhone
	// LevelContext is C's input alphabet ({-d} windows and #-1).
	LevelContext
	// LevelTransition is H′'s input alphabet.
	LevelTransition
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelWord:
		return "word"
	case LevelPhone:
		return "phone"
	case LevelContext:
		return "context"
	case LevelTransition:
		return "transition"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Sentinel errors.
var (
	// ErrAlreadyAllocated indicates a level that was allocated twice.
	ErrAlreadyAllocated = errors.New("disambig: level already allocated")

	// ErrInvalidAllocation indicates a non-positive first label or count.
	ErrInvalidAllocation = errors.New("disambig: invalid allocation")

	// ErrDisambigRemaining indicates a disambiguation symbol survived stripping.
	ErrDisambigRemaining = errors.New("disambig: disambiguation symbol remains")
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for allocation events. Panics on nil.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("disambig: WithLogger(nil)")
	}

	return func(m *Manager) { m.logger = l }
}

// Manager tracks the disambiguation symbols of every level of one build.
// It is not safe for concurrent mutation.
type Manager struct {
	logger *slog.Logger
	sets   map[Level]*Set
	phone  []fst.Label
	tid    []fst.Label
}

// NewManager returns an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{logger: slog.Default(), sets: make(map[Level]*Set)}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// AllocatePhoneSymbols reserves #0..#(count-1) as labels first..first+count-1
// in the phone alphabet.
func (m *Manager) AllocatePhoneSymbols(first fst.Label, count int) ([]fst.Label, error) {
	labels, err := m.allocateRange(LevelPhone, first, count)
	if err != nil {
		return nil, err
	}
	m.phone = labels

	return labels, nil
}

// AllocateTransitionSymbols reserves count labels starting at first in the
// transition-id alphabet.
func (m *Manager) AllocateTransitionSymbols(first fst.Label, count int) ([]fst.Label, error) {
	labels, err := m.allocateRange(LevelTransition, first, count)
	if err != nil {
		return nil, err
	}
	m.tid = labels

	return labels, nil
}

// AllocateWordBackoff records the grammar's #0 label.
func (m *Manager) AllocateWordBackoff(label fst.Label) error {
	_, err := m.allocateRange(LevelWord, label, 1)

	return err
}

// RegisterContext derives the context-level set from the arena: #-1 and
// every disambiguation window. It may be called again as the arena grows.
func (m *Manager) RegisterContext(info *contextfst.ILabelInfo) *Set {
	set := NewSet(contextfst.PseudoEpsilon)
	for _, l := range info.Labels() {
		if info.IsDisambig(l) {
			set.Add(l)
		}
	}
	m.sets[LevelContext] = set
	m.logger.Debug("disambig: context symbols registered", slog.Int("count", set.Len()))

	return set
}

// PhoneSymbol returns the label of phone-level #k.
func (m *Manager) PhoneSymbol(k int) (fst.Label, bool) {
	if k < 0 || k >= len(m.phone) {
		return fst.NoLabel, false
	}

	return m.phone[k], true
}

// TransitionSymbol returns the k-th transition-level symbol.
func (m *Manager) TransitionSymbol(k int) (fst.Label, bool) {
	if k < 0 || k >= len(m.tid) {
		return fst.NoLabel, false
	}

	return m.tid[k], true
}

// WordBackoff returns the grammar's #0 label.
func (m *Manager) WordBackoff() (fst.Label, bool) {
	s := m.sets[LevelWord]
	if s.Len() == 0 {
		return fst.NoLabel, false
	}

	return s.labels[0], true
}

// Set returns the set of a level; nil if it was never allocated.
func (m *Manager) Set(level Level) *Set {
	return m.sets[level]
}

func (m *Manager) allocateRange(level Level, first fst.Label, count int) ([]fst.Label, error) {
	if first <= 0 || count < 1 {
		return nil, fmt.Errorf("%w: %s level first=%d count=%d", ErrInvalidAllocation, level, first, count)
	}
	if _, ok := m.sets[level]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAllocated, level)
	}
	set := &Set{}
	labels := make([]fst.Label, count)
	for i := range labels {
		labels[i] = first + fst.Label(i)
		set.Add(labels[i])
	}
	m.sets[level] = set
	m.logger.Debug("disambig: symbols allocated",
		slog.String("alphabet", level.String()),
		slog.Int("first", int(first)),
		slog.Int("count", count))

	return labels, nil
}
