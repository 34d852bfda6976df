package cluster

// EdgeWeighter supplies cached pairwise similarity scores. Pairs without an
// edge weigh 0: members linked only transitively still count against the
// averages of the rest of their cluster.
type EdgeWeighter interface {
	Weight(a, b string) float64
}

// selection caches the greedy pick for a cluster until the next union.
type selection struct {
	representative string
	averages       map[string]float64
}

// Representative returns the most central member of id's cluster: the one
// with the highest mean similarity to all other members, ties broken by
// lowest id. Singletons represent themselves. The result is cached per
// cluster and recomputed only after a union marked the cluster dirty.
func (t *Tracker) Representative(id string, g EdgeWeighter) string {
	root := t.Find(id)
	if !t.dirty[root] {
		if sel, ok := t.reps[root]; ok {
			return sel.representative
		}
	}
	sel := t.selectGreedy(root, g)
	t.reps[root] = sel
	t.dirty[root] = false
	return sel.representative
}

// MemberAverages returns each member's mean similarity to the rest of id's
// cluster, using the same lazily refreshed cache as Representative.
func (t *Tracker) MemberAverages(id string, g EdgeWeighter) map[string]float64 {
	root := t.Find(id)
	if t.dirty[root] {
		t.reps[root] = t.selectGreedy(root, g)
		t.dirty[root] = false
	}
	return t.reps[root].averages
}

func (t *Tracker) selectGreedy(root string, g EdgeWeighter) selection {
	ms := t.members[root]
	avgs := make(map[string]float64, len(ms))

	if len(ms) == 1 {
		avgs[ms[0]] = 0
		return selection{representative: ms[0], averages: avgs}
	}

	best := ""
	bestAvg := -1.0
	for _, m := range ms {
		total := 0.0
		for _, other := range ms {
			if other != m {
				total += g.Weight(m, other)
			}
		}
		avg := total / float64(len(ms)-1)
		avgs[m] = avg
		if avg > bestAvg || (avg == bestAvg && m < best) {
			best, bestAvg = m, avg
		}
	}
	return selection{representative: best, averages: avgs}
}
