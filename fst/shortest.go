// Shortest distance in a semiring.
//
// ShortestDistance computes, for every state q, the ⊕-sum over all paths from
// the start to q of the ⊗-product of arc weights. Two strategies are used:
//
//   - Tropical: Dijkstra with a lazy decrease-key min-heap (costs are
//     non-negative in a probabilistic graph; negative costs fall back to the
//     generic algorithm).
//   - Log (or negative tropical costs): the generic single-source algorithm
//     with residual weights, iterated until every residual is below delta.
//
// Complexity:
//
//   - Tropical: O((V + E) log V)
//   - Log:      O(k·E) where k is the number of residual relaxations; acyclic
//     automata settle in one topological pass.
package fst

import (
	"container/heap"
	"fmt"

	"github.com/katalvlaran/hclg/semiring"
)

// DefaultMaxRelaxations bounds the generic algorithm per state.
const DefaultMaxRelaxations = 10000

// ShortestDistance returns the forward shortest distance of every state.
// Unreachable states get semiring.Zero.
func ShortestDistance(f ExpandedFst, k semiring.Kind, delta float64) ([]float64, error) {
	if f == nil {
		return nil, ErrNilFst
	}
	n := f.NumStates()
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = semiring.Zero
	}
	start := f.Start()
	if start == NoState {
		return dist, nil
	}
	succ := func(s StateID) []Arc { return f.Arcs(s) }
	if k == semiring.Tropical && !hasNegative(f) {
		dijkstra(n, start, succ, dist)

		return dist, nil
	}

	return dist, generic(n, []StateID{start}, []float64{semiring.One}, succ, k, delta, dist)
}

// ReverseShortestDistance returns, for every state, the ⊕-sum of path weights
// from that state to the final weights (the "potential" used by pushing).
func ReverseShortestDistance(f ExpandedFst, k semiring.Kind, delta float64) ([]float64, error) {
	if f == nil {
		return nil, ErrNilFst
	}
	n := f.NumStates()
	// Build the reverse automaton implicitly: an arc s→t becomes t→s.
	reverse := make([][]Arc, n)
	for s := 0; s < n; s++ {
		for _, a := range f.Arcs(StateID(s)) {
			reverse[a.NextState] = append(reverse[a.NextState], Arc{Weight: a.Weight, NextState: StateID(s)})
		}
	}
	var roots []StateID
	var rootW []float64
	for s := 0; s < n; s++ {
		if w := f.Final(StateID(s)); !semiring.IsZero(w) {
			roots = append(roots, StateID(s))
			rootW = append(rootW, w)
		}
	}
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = semiring.Zero
	}

	return dist, generic(n, roots, rootW, func(s StateID) []Arc { return reverse[s] }, k, delta, dist)
}

func hasNegative(f ExpandedFst) bool {
	for s := 0; s < f.NumStates(); s++ {
		for _, a := range f.Arcs(StateID(s)) {
			if a.Weight < 0 {
				return true
			}
		}
	}

	return false
}

// generic is the residual-propagation single-source algorithm. It settles in
// the log semiring for automata whose cycles have total cost > 0.
func generic(n int, roots []StateID, rootW []float64, succ func(StateID) []Arc, k semiring.Kind, delta float64, dist []float64) error {
	resid := make([]float64, n)
	for i := range resid {
		resid[i] = semiring.Zero
	}
	inQueue := make([]bool, n)
	relax := make([]int, n)
	queue := make([]StateID, 0, len(roots))
	for i, r := range roots {
		dist[r] = k.Plus(dist[r], rootW[i])
		resid[r] = k.Plus(resid[r], rootW[i])
		if !inQueue[r] {
			inQueue[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		// 1. Pop the oldest state and take its residual.
		q := queue[0]
		queue = queue[1:]
		inQueue[q] = false
		r := resid[q]
		resid[q] = semiring.Zero
		relax[q]++
		if relax[q] > DefaultMaxRelaxations {
			return fmt.Errorf("shortest distance at state %d: %w", q, ErrNotConverged)
		}
		// 2. Propagate the residual over every arc.
		for _, a := range succ(q) {
			w := semiring.Times(r, a.Weight)
			nd := k.Plus(dist[a.NextState], w)
			if semiring.ApproxEqual(nd, dist[a.NextState], delta) {
				continue
			}
			dist[a.NextState] = nd
			resid[a.NextState] = k.Plus(resid[a.NextState], w)
			if !inQueue[a.NextState] {
				inQueue[a.NextState] = true
				queue = append(queue, a.NextState)
			}
		}
	}

	return nil
}

// distItem is one heap entry (state, tentative distance).
type distItem struct {
	s    StateID
	dist float64
}

// distPQ is a min-heap of *distItem ordered by dist.
type distPQ []*distItem

func (pq distPQ) Len() int            { return len(pq) }
func (pq distPQ) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq distPQ) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *distPQ) Push(x interface{}) { *pq = append(*pq, x.(*distItem)) }
func (pq *distPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]

	return item
}

// dijkstra fills dist with tropical shortest distances from start, using the
// lazy decrease-key strategy: duplicates are pushed and stale entries skipped.
func dijkstra(n int, start StateID, succ func(StateID) []Arc, dist []float64) {
	visited := make([]bool, n)
	pq := make(distPQ, 0, n)
	heap.Init(&pq)
	dist[start] = semiring.One
	heap.Push(&pq, &distItem{s: start, dist: semiring.One})
	for pq.Len() > 0 {
		item := heap.Pop(&pq).(*distItem)
		if visited[item.s] {
			continue // stale entry
		}
		visited[item.s] = true
		for _, a := range succ(item.s) {
			nd := semiring.Times(item.dist, a.Weight)
			if nd < dist[a.NextState] {
				dist[a.NextState] = nd
				heap.Push(&pq, &distItem{s: a.NextState, dist: nd})
			}
		}
	}
}
