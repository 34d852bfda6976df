// Package cluster tracks the connected components of the similarity graph
// incrementally. Components only ever merge: submissions are never retracted
// and edges never removed, so no split or re-derivation path exists.
package cluster

import "sort"

// Tracker is a union-find structure over submission ids with path
// compression and union by size. A root→members index is maintained on every
// union so membership queries stay O(1) amortized instead of scanning.
type Tracker struct {
	parent  map[string]string
	size    map[string]int
	members map[string][]string // root id -> member ids
	dirty   map[string]bool     // root id -> representative cache stale
	reps    map[string]selection
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		parent:  make(map[string]string),
		size:    make(map[string]int),
		members: make(map[string][]string),
		dirty:   make(map[string]bool),
		reps:    make(map[string]selection),
	}
}

// Add registers id as its own singleton cluster. Known ids are ignored.
func (t *Tracker) Add(id string) {
	if _, ok := t.parent[id]; ok {
		return
	}
	t.parent[id] = id
	t.size[id] = 1
	t.members[id] = []string{id}
	t.dirty[id] = true
}

// Find returns the union-find root of id, compressing the path walked.
// Unknown ids are their own root; nothing is registered implicitly.
func (t *Tracker) Find(id string) string {
	if _, ok := t.parent[id]; !ok {
		return id
	}
	root := id
	for t.parent[root] != root {
		root = t.parent[root]
	}
	for t.parent[id] != root {
		id, t.parent[id] = t.parent[id], root
	}
	return root
}

// Union merges the clusters of a and b, attaching the smaller set under the
// larger. The merged cluster is marked dirty so its representative is
// recomputed on next request. Ids that were never added are ignored.
func (t *Tracker) Union(a, b string) {
	if !t.Has(a) || !t.Has(b) {
		return
	}
	ra, rb := t.Find(a), t.Find(b)
	if ra == rb {
		return
	}
	if t.size[ra] < t.size[rb] {
		ra, rb = rb, ra
	}

	t.parent[rb] = ra
	t.size[ra] += t.size[rb]
	t.members[ra] = append(t.members[ra], t.members[rb]...)
	delete(t.members, rb)
	delete(t.size, rb)
	delete(t.dirty, rb)
	delete(t.reps, rb)
	t.dirty[ra] = true
}

// ClusterOf returns the cluster identifier of id: the smallest member id of
// its set, recomputed on demand rather than tracked through every union.
// Unknown ids identify themselves.
func (t *Tracker) ClusterOf(id string) string {
	ms := t.members[t.Find(id)]
	if len(ms) == 0 {
		return id
	}
	min := ms[0]
	for _, m := range ms[1:] {
		if m < min {
			min = m
		}
	}
	return min
}

// Members returns the ids in id's cluster in ascending order.
func (t *Tracker) Members(id string) []string {
	ms := append([]string(nil), t.members[t.Find(id)]...)
	sort.Strings(ms)
	return ms
}

// Size returns the member count of id's cluster.
func (t *Tracker) Size(id string) int {
	return t.size[t.Find(id)]
}

// Has reports whether id has been added.
func (t *Tracker) Has(id string) bool {
	_, ok := t.parent[id]
	return ok
}

// Roots returns one root per cluster, ordered by cluster identifier.
func (t *Tracker) Roots() []string {
	roots := make([]string, 0, len(t.members))
	for r := range t.members {
		roots = append(roots, r)
	}
	sort.Slice(roots, func(i, j int) bool {
		return t.ClusterOf(roots[i]) < t.ClusterOf(roots[j])
	})
	return roots
}
