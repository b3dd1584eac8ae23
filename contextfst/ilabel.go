// SPDX-License-Identifier: MIT
//
// File: ilabel.go
// Role: the ILabelInfo arena mapping context-dependent input labels to the
// phone windows they stand for.
// Policy:
//   - Label ids are dense and monotonic; an entry is never changed or removed
//     once assigned.
//   - Label 0 is epsilon (empty window); label 1 is #-1 (window {0}).
//   - A disambiguation symbol d is the one-element window {-d}.

package contextfst

import (
	"strconv"
	"strings"
	"sync"

	"github.com/katalvlaran/hclg/fst"
)

// PseudoEpsilon is the input label of #-1, which stands in for epsilon at the
// start of an utterance.
const PseudoEpsilon fst.Label = 1

// Window is a phone window of length N (or one of the special short windows).
type Window []fst.Label

// String renders w as "/a/b/c/".
func (w Window) String() string {
	var b strings.Builder
	b.WriteByte('/')
	for _, l := range w {
		b.WriteString(strconv.Itoa(int(l)))
		b.WriteByte('/')
	}

	return b.String()
}

func (w Window) key() string {
	var b strings.Builder
	for i, l := range w {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(l)))
	}

	return b.String()
}

// ILabelInfo is the interning arena of input labels. It is safe for
// concurrent use.
type ILabelInfo struct {
	mu      sync.RWMutex
	central int
	windows []Window
	ids     map[string]fst.Label
}

// NewILabelInfo returns an arena for windows whose central phone sits at
// position central. Labels 0 and 1 are pre-assigned.
func NewILabelInfo(central int) *ILabelInfo {
	info := &ILabelInfo{central: central, ids: make(map[string]fst.Label)}
	info.insert(Window{})
	info.insert(Window{0})

	return info
}

// LookupOrInsert returns the label of w, assigning the next id on first sight.
// The window is copied.
func (info *ILabelInfo) LookupOrInsert(w Window) fst.Label {
	key := w.key()
	info.mu.RLock()
	id, ok := info.ids[key]
	info.mu.RUnlock()
	if ok {
		return id
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	if id, ok = info.ids[key]; ok {
		return id
	}

	return info.insert(w)
}

// insert appends w; the caller holds the write lock (or is the constructor).
func (info *ILabelInfo) insert(w Window) fst.Label {
	id := fst.Label(len(info.windows))
	info.windows = append(info.windows, append(Window(nil), w...))
	info.ids[w.key()] = id

	return id
}

// Lookup returns the label of w without inserting it.
func (info *ILabelInfo) Lookup(w Window) (fst.Label, bool) {
	info.mu.RLock()
	defer info.mu.RUnlock()
	id, ok := info.ids[w.key()]

	return id, ok
}

// Window returns a copy of the window behind label l.
func (info *ILabelInfo) Window(l fst.Label) (Window, bool) {
	info.mu.RLock()
	defer info.mu.RUnlock()
	if l < 0 || int(l) >= len(info.windows) {
		return nil, false
	}

	return append(Window(nil), info.windows[l]...), true
}

// Len returns the number of assigned labels, including 0 and #-1.
func (info *ILabelInfo) Len() int {
	info.mu.RLock()
	defer info.mu.RUnlock()

	return len(info.windows)
}

// Central returns the central position P.
func (info *ILabelInfo) Central() int { return info.central }

// IsDisambig reports whether l encodes a disambiguation symbol.
func (info *ILabelInfo) IsDisambig(l fst.Label) bool {
	w, ok := info.Window(l)

	return ok && len(w) == 1 && w[0] < 0
}

// IsPseudoEpsilon reports whether l is #-1.
func (info *ILabelInfo) IsPseudoEpsilon(l fst.Label) bool {
	return l == PseudoEpsilon
}

// Disambig returns the disambiguation symbol encoded by l.
func (info *ILabelInfo) Disambig(l fst.Label) (fst.Label, bool) {
	w, ok := info.Window(l)
	if !ok || len(w) != 1 || w[0] >= 0 {
		return 0, false
	}

	return -w[0], true
}

// Phone returns the central phone of a phone-in-context label.
func (info *ILabelInfo) Phone(l fst.Label) (fst.Label, bool) {
	w, ok := info.Window(l)
	if !ok || len(w) <= info.central || w[info.central] <= 0 {
		return 0, false
	}

	return w[info.central], true
}

// Labels returns every assigned label except epsilon, in id order.
func (info *ILabelInfo) Labels() []fst.Label {
	n := info.Len()
	out := make([]fst.Label, 0, n-1)
	for l := 1; l < n; l++ {
		out = append(out, fst.Label(l))
	}

	return out
}
