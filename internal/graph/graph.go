// Package graph maintains the undirected weighted similarity graph over
// submissions. Nodes are submission ids; an edge exists iff the pairwise
// similarity reached the configured threshold. The corpus only grows, so
// edges are never removed and previously compared pairs are never rescored.
package graph

import (
	"sort"

	"github.com/RishiKendai/argus/internal/models"
)

// Edge is an undirected similarity edge between two submissions.
type Edge struct {
	A           string
	B           string
	Score       float64
	SharedCount int
}

// Graph is an adjacency-map similarity graph. Not safe for concurrent use;
// the detector serializes all access.
type Graph struct {
	threshold float64
	adj       map[string]map[string]Edge
}

// New creates an empty graph with the given similarity threshold.
func New(threshold float64) *Graph {
	return &Graph{
		threshold: threshold,
		adj:       make(map[string]map[string]Edge),
	}
}

// Threshold returns the edge admission threshold.
func (g *Graph) Threshold() float64 {
	return g.threshold
}

// AddNode adds an isolated node. Adding an existing node is a no-op; a new
// submission always becomes a node before any of its edges attach.
func (g *Graph) AddNode(id string) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(map[string]Edge)
	}
}

// AddEdge records a scored pair. Pairs under threshold are dropped; accepted
// edges are stored in both directions so scores stay symmetric. Returns true
// when an edge was created.
func (g *Graph) AddEdge(a, b string, score float64, shared int) bool {
	if score < g.threshold || a == b {
		return false
	}
	g.AddNode(a)
	g.AddNode(b)
	e := Edge{A: a, B: b, Score: score, SharedCount: shared}
	g.adj[a][b] = e
	g.adj[b][a] = Edge{A: b, B: a, Score: score, SharedCount: shared}
	return true
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.adj[id]
	return ok
}

// Weight returns the edge score between two nodes, 0 when no edge exists.
func (g *Graph) Weight(a, b string) float64 {
	if e, ok := g.adj[a][b]; ok {
		return e.Score
	}
	return 0
}

// Neighbors returns the adjacent node ids of id in ascending order.
func (g *Graph) Neighbors(id string) []string {
	ids := make([]string, 0, len(g.adj[id]))
	for n := range g.adj[id] {
		ids = append(ids, n)
	}
	sort.Strings(ids)
	return ids
}

// Nodes returns all node ids in ascending order.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.adj))
	for id := range g.adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edges returns every edge exactly once, ordered by (A, B). This is the
// sparse similarity matrix: pairs absent here implicitly score 0.
func (g *Graph) Edges() []models.SimilarityPair {
	var pairs []models.SimilarityPair
	for a, nbrs := range g.adj {
		for b, e := range nbrs {
			if a < b {
				pairs = append(pairs, models.SimilarityPair{
					SubmissionA: a,
					SubmissionB: b,
					Score:       e.Score,
					SharedCount: e.SharedCount,
				})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].SubmissionA != pairs[j].SubmissionA {
			return pairs[i].SubmissionA < pairs[j].SubmissionA
		}
		return pairs[i].SubmissionB < pairs[j].SubmissionB
	})
	return pairs
}
