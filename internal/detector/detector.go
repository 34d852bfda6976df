// Package detector wires tokenization, fingerprinting, the similarity graph,
// cluster tracking and the metadata index into the ingest pipeline. All
// mutable state is owned here and funnels through a single guarded commit
// path; submissions are immutable once accepted and the corpus only grows.
package detector

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/argus/internal/cluster"
	"github.com/RishiKendai/argus/internal/fingerprint"
	"github.com/RishiKendai/argus/internal/graph"
	"github.com/RishiKendai/argus/internal/index"
	"github.com/RishiKendai/argus/internal/models"
	"github.com/RishiKendai/argus/internal/tokenizer"
)

var (
	// ErrDuplicateID rejects re-ingestion of a known submission id. The
	// failure is local to that call; committed state is untouched.
	ErrDuplicateID = errors.New("detector: duplicate submission id")

	// ErrNotFound is returned for lookups of unknown submission ids.
	ErrNotFound = errors.New("detector: submission not found")

	// ErrInvalidConfig rejects out-of-range detector parameters before any
	// ingestion happens.
	ErrInvalidConfig = errors.New("detector: invalid configuration")
)

// Options are the core tuning parameters.
type Options struct {
	WindowSize          int     // k-gram size for fingerprinting
	SimilarityThreshold float64 // edge admission threshold in [0,1]
	TreeOrder           int     // metadata index fan-out, >= index.MinOrder
}

// Validate rejects out-of-range parameters.
func (o Options) Validate() error {
	if o.WindowSize < 1 {
		return fmt.Errorf("%w: window size %d, must be >= 1", ErrInvalidConfig, o.WindowSize)
	}
	if o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold %v, must be in [0,1]", ErrInvalidConfig, o.SimilarityThreshold)
	}
	if o.TreeOrder < index.MinOrder {
		return fmt.Errorf("%w: tree order %d, must be >= %d", ErrInvalidConfig, o.TreeOrder, index.MinOrder)
	}
	return nil
}

// simKey orders the secondary index by (average similarity, submission id).
type simKey struct {
	Avg float64
	ID  string
}

func simKeyLess(a, b simKey) bool {
	if a.Avg != b.Avg {
		return a.Avg < b.Avg
	}
	return a.ID < b.ID
}

// Detector is the similarity engine. A single mutex guards the
// graph+cluster+index triple for the whole of every commit, so external
// readers only ever observe fully committed state.
type Detector struct {
	mu   sync.RWMutex
	opts Options

	tokenizers *tokenizer.Registry
	printer    *fingerprint.Fingerprinter

	subs      map[string]*models.Submission
	arrival   []string
	hashIndex map[uint64][]string // inverted index: hash -> submission ids
	distinct  map[string]int      // submission id -> distinct hash count

	graph    *graph.Graph
	clusters *cluster.Tracker
	primary  *index.Tree[string, models.MetadataRecord]
	bySim    *index.Tree[simKey, models.MetadataRecord]
}

// New creates a Detector, validating the configuration first.
func New(opts Options) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Detector{
		opts:       opts,
		tokenizers: tokenizer.NewRegistry(),
		printer:    fingerprint.New(opts.WindowSize),
		subs:       make(map[string]*models.Submission),
		hashIndex:  make(map[uint64][]string),
		distinct:   make(map[string]int),
		graph:      graph.New(opts.SimilarityThreshold),
		clusters:   cluster.NewTracker(),
		primary:    index.New[string, models.MetadataRecord](opts.TreeOrder, func(a, b string) bool { return a < b }),
		bySim:      index.New[simKey, models.MetadataRecord](opts.TreeOrder, simKeyLess),
	}, nil
}

// Prepared is the pure analysis of a submission, ready to commit. Preparing
// has no side effects and may run concurrently across submissions as long as
// commits are applied in arrival order.
type Prepared struct {
	Submission models.Submission
	hashes     map[uint64]struct{}
}

// IngestResult reports an accepted ingest.
type IngestResult struct {
	SubmissionID string
	ClusterID    string
	EdgeCount    int
	Degraded     bool
}

// Prepare tokenizes and fingerprints a submission. Tokenization never fails:
// unknown languages degrade to a lexical split and the submission still
// produces a (possibly empty) fingerprint set. Python sources tokenize
// block-order-insensitively, so reordering whole functions does not dodge
// detection.
func (d *Detector) Prepare(id, source, language, label string) *Prepared {
	tokens, degraded := d.tokenizers.TokenizeSubmission(source, language)
	prints := d.printer.Fingerprint(tokens)

	if degraded {
		log.Debug().
			Str("submissionId", id).
			Str("language", language).
			Msg("Tokenization degraded to lexical split")
	}

	return &Prepared{
		Submission: models.Submission{
			ID:           id,
			Language:     language,
			Label:        label,
			SourceCode:   source,
			Tokens:       tokens,
			Fingerprints: prints,
			Degraded:     degraded,
			IngestedAt:   time.Now(),
		},
		hashes: fingerprint.HashSet(prints),
	}
}

// Ingest runs the full pipeline for one submission.
func (d *Detector) Ingest(id, source, language, label string) (IngestResult, error) {
	return d.Commit(d.Prepare(id, source, language, label))
}

// Commit applies a prepared submission to the graph, cluster tracker and
// metadata index. The scored pairs are computed before the first mutation,
// so a commit either happens entirely or — for a rejected duplicate — not at
// all; no partial edges, unions or records can persist.
func (d *Detector) Commit(p *Prepared) (IngestResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := p.Submission.ID
	if _, exists := d.subs[id]; exists {
		return IngestResult{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	// Score against the prior corpus. The inverted index narrows the scan to
	// submissions sharing at least one hash; everything else scores 0 and
	// could never reach the threshold.
	shared := make(map[string]int)
	for h := range p.hashes {
		for _, other := range d.hashIndex[h] {
			shared[other]++
		}
	}

	type scoredPair struct {
		other  string
		score  float64
		shared int
	}
	var edges []scoredPair
	if d.opts.SimilarityThreshold == 0 {
		// At threshold 0 every pair qualifies, including pairs sharing no
		// hashes, so the pruned scan would miss admissible zero-score edges.
		for _, other := range d.arrival {
			n := shared[other]
			score := 0.0
			if union := len(p.hashes) + d.distinct[other] - n; union > 0 {
				score = float64(n) / float64(union)
			}
			edges = append(edges, scoredPair{other: other, score: score, shared: n})
		}
	} else {
		for other, n := range shared {
			union := len(p.hashes) + d.distinct[other] - n
			score := float64(n) / float64(union)
			if score >= d.opts.SimilarityThreshold {
				edges = append(edges, scoredPair{other: other, score: score, shared: n})
			}
		}
	}

	// Point of no return: every mutation below is infallible.
	sub := p.Submission
	d.subs[id] = &sub
	d.arrival = append(d.arrival, id)
	d.distinct[id] = len(p.hashes)
	for h := range p.hashes {
		d.hashIndex[h] = append(d.hashIndex[h], id)
	}

	d.graph.AddNode(id)
	d.clusters.Add(id)
	for _, e := range edges {
		d.graph.AddEdge(id, e.other, e.score, e.shared)
		d.clusters.Union(id, e.other)
	}

	clusterID := d.refreshCluster(id)

	log.Info().
		Str("submissionId", id).
		Str("clusterId", clusterID).
		Int("edges", len(edges)).
		Bool("degraded", sub.Degraded).
		Msg("Submission ingested")

	return IngestResult{
		SubmissionID: id,
		ClusterID:    clusterID,
		EdgeCount:    len(edges),
		Degraded:     sub.Degraded,
	}, nil
}

// refreshCluster rewrites the metadata records of every member of id's
// cluster: cluster id, representative flag and average intra-cluster
// similarity all may have changed by the merge. Superseded secondary-index
// entries are left in place and filtered out on read.
func (d *Detector) refreshCluster(id string) string {
	clusterID := d.clusters.ClusterOf(id)
	rep := d.clusters.Representative(id, d.graph)
	avgs := d.clusters.MemberAverages(id, d.graph)

	for _, m := range d.clusters.Members(id) {
		sub := d.subs[m]
		rec := models.MetadataRecord{
			SubmissionID:     m,
			Language:         sub.Language,
			Label:            sub.Label,
			ClusterID:        clusterID,
			Representative:   m == rep,
			AvgSimilarity:    avgs[m],
			Degraded:         sub.Degraded,
			TokenCount:       len(sub.Tokens),
			FingerprintCount: d.distinct[m],
			IngestedAt:       sub.IngestedAt,
		}
		d.primary.Insert(m, rec)
		d.bySim.Insert(simKey{Avg: avgs[m], ID: m}, rec)
	}
	return clusterID
}

// Count returns the number of ingested submissions.
func (d *Detector) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// SimilarityMatrix returns the sparse score table: every pair at or above
// threshold, ordered by ids. Absent pairs implicitly score 0.
func (d *Detector) SimilarityMatrix() []models.SimilarityPair {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.graph.Edges()
}

// Clusters returns every cluster with its members and greedy representative,
// ordered by cluster id.
func (d *Detector) Clusters() []models.ClusterInfo {
	d.mu.Lock() // Representative may refresh its lazy cache
	defer d.mu.Unlock()

	roots := d.clusters.Roots()
	infos := make([]models.ClusterInfo, 0, len(roots))
	for _, r := range roots {
		infos = append(infos, models.ClusterInfo{
			ClusterID:      d.clusters.ClusterOf(r),
			Members:        d.clusters.Members(r),
			Representative: d.clusters.Representative(r, d.graph),
		})
	}
	return infos
}

// LookupMetadata returns the metadata record of one submission.
func (d *Detector) LookupMetadata(id string) (models.MetadataRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.primary.Get(id)
	if !ok {
		return models.MetadataRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// RangeQueryBySimilarity streams metadata records whose average
// intra-cluster similarity lies in [lo, hi], ascending. Entries superseded
// by a later cluster merge are verified against the primary index and
// skipped.
func (d *Detector) RangeQueryBySimilarity(lo, hi float64) ([]models.MetadataRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []models.MetadataRecord
	err := d.bySim.Range(simKey{Avg: lo}, func(k simKey, rec models.MetadataRecord) bool {
		if k.Avg > hi {
			return false
		}
		current, ok := d.primary.Get(k.ID)
		if ok && current.AvgSimilarity == k.Avg {
			out = append(out, current)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Fragments reports the shared token runs between two ingested submissions.
func (d *Detector) Fragments(idA, idB string) ([]models.FragmentMatch, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.subs[idA]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idA)
	}
	b, ok := d.subs[idB]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idB)
	}
	return d.printer.Matches(a.Tokens, b.Tokens), nil
}
