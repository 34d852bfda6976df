package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T, opts Options) *Detector {
	t.Helper()
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func defaultOptions() Options {
	return Options{WindowSize: 5, SimilarityThreshold: 0.7, TreeOrder: 4}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero window", Options{WindowSize: 0, SimilarityThreshold: 0.7, TreeOrder: 4}},
		{"negative threshold", Options{WindowSize: 5, SimilarityThreshold: -0.1, TreeOrder: 4}},
		{"threshold above one", Options{WindowSize: 5, SimilarityThreshold: 1.1, TreeOrder: 4}},
		{"tree order too small", Options{WindowSize: 5, SimilarityThreshold: 0.7, TreeOrder: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRenamedSubmissionsScoreOne(t *testing.T) {
	d := newTestDetector(t, defaultOptions())

	srcA := "def add(a, b):\n    total = a + b\n    return total\n"
	srcB := "def plus(x, y):\n    result = x + y\n    return result\n"

	_, err := d.Ingest("sub-a", srcA, "python", "alice")
	require.NoError(t, err)

	res, err := d.Ingest("sub-b", srcB, "python", "bob")
	require.NoError(t, err)

	assert.Equal(t, 1, res.EdgeCount)
	assert.Equal(t, "sub-a", res.ClusterID, "cluster id is the smallest member")

	pairs := d.SimilarityMatrix()
	require.Len(t, pairs, 1)
	assert.Equal(t, "sub-a", pairs[0].SubmissionA)
	assert.Equal(t, "sub-b", pairs[0].SubmissionB)
	assert.Equal(t, 1.0, pairs[0].Score, "renamed but structurally identical code must score 1.0")
}

func TestReorderedFunctionsScoreOne(t *testing.T) {
	d := newTestDetector(t, defaultOptions())

	srcA := "def alpha(a):\n    return a + 1\n\ndef beta(b):\n    return b * 2\n"
	srcB := "def beta(b):\n    return b * 2\n\ndef alpha(a):\n    return a + 1\n"

	require.NoError(t, ingest(d, "sub-a", srcA))
	require.NoError(t, ingest(d, "sub-b", srcB))

	pairs := d.SimilarityMatrix()
	require.Len(t, pairs, 1)
	assert.Equal(t, 1.0, pairs[0].Score, "moving whole functions around must not dodge detection")
}

func TestZeroThresholdEdgesEveryPair(t *testing.T) {
	d := newTestDetector(t, Options{WindowSize: 1, SimilarityThreshold: 0, TreeOrder: 4})

	require.NoError(t, ingest(d, "sub-a", "1 2 3"))
	require.NoError(t, ingest(d, "sub-b", "7 8 9"))

	// Disjoint fingerprint sets score 0, and 0 >= 0 admits the edge.
	pairs := d.SimilarityMatrix()
	require.Len(t, pairs, 1)
	assert.Equal(t, 0.0, pairs[0].Score)
	assert.Equal(t, 0, pairs[0].SharedCount)

	clusters := d.Clusters()
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"sub-a", "sub-b"}, clusters[0].Members)
}

func TestEmptySubmissionsStaySingletons(t *testing.T) {
	d := newTestDetector(t, defaultOptions())

	res1, err := d.Ingest("empty-1", "", "python", "")
	require.NoError(t, err)
	res2, err := d.Ingest("empty-2", "", "python", "")
	require.NoError(t, err)

	// Two empty submissions are not similar to each other.
	assert.Equal(t, 0, res1.EdgeCount)
	assert.Equal(t, 0, res2.EdgeCount)
	assert.Empty(t, d.SimilarityMatrix())

	rec, err := d.LookupMetadata("empty-1")
	require.NoError(t, err)
	assert.Equal(t, "empty-1", rec.ClusterID)
	assert.True(t, rec.Representative, "a singleton represents itself")
	assert.Equal(t, 0.0, rec.AvgSimilarity)
	assert.Equal(t, 0, rec.FingerprintCount)
}

func TestPairwiseHalfSimilarityCluster(t *testing.T) {
	d := newTestDetector(t, Options{WindowSize: 1, SimilarityThreshold: 0.5, TreeOrder: 4})

	// Each pair shares two of four distinct token hashes: exactly 0.5,
	// right at the inclusive threshold.
	require.NoError(t, ingest(d, "sub-d", "1 2 3"))
	require.NoError(t, ingest(d, "sub-e", "1 2 4"))
	require.NoError(t, ingest(d, "sub-f", "1 2 5"))

	pairs := d.SimilarityMatrix()
	require.Len(t, pairs, 3)
	for _, p := range pairs {
		assert.Equal(t, 0.5, p.Score)
	}

	clusters := d.Clusters()
	require.Len(t, clusters, 1)
	assert.Equal(t, "sub-d", clusters[0].ClusterID)
	assert.Equal(t, []string{"sub-d", "sub-e", "sub-f"}, clusters[0].Members)
	assert.Equal(t, "sub-d", clusters[0].Representative, "equal averages break ties to the lowest id")

	rec, err := d.LookupMetadata("sub-f")
	require.NoError(t, err)
	assert.Equal(t, "sub-d", rec.ClusterID)
	assert.InDelta(t, 0.5, rec.AvgSimilarity, 1e-9)
}

func TestDuplicateIDLeavesStateUntouched(t *testing.T) {
	d := newTestDetector(t, defaultOptions())

	_, err := d.Ingest("sub-a", "def f(a):\n    return a + a\n", "python", "")
	require.NoError(t, err)

	before, err := d.LookupMetadata("sub-a")
	require.NoError(t, err)

	_, err = d.Ingest("sub-a", "something completely different", "python", "")
	assert.ErrorIs(t, err, ErrDuplicateID)

	assert.Equal(t, 1, d.Count())
	after, err := d.LookupMetadata("sub-a")
	require.NoError(t, err)
	assert.Equal(t, before, after, "a rejected duplicate must not mutate any state")
	assert.Empty(t, d.SimilarityMatrix())
}

func TestDegradedTokenizationStillIngests(t *testing.T) {
	d := newTestDetector(t, defaultOptions())

	res, err := d.Ingest("sub-go", "func main() { println(42) }", "go", "")
	require.NoError(t, err)
	assert.True(t, res.Degraded)

	rec, err := d.LookupMetadata("sub-go")
	require.NoError(t, err)
	assert.True(t, rec.Degraded)
	assert.Greater(t, rec.TokenCount, 0)
}

func TestLookupMetadataNotFound(t *testing.T) {
	d := newTestDetector(t, defaultOptions())
	_, err := d.LookupMetadata("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRangeQueryBySimilarity(t *testing.T) {
	d := newTestDetector(t, Options{WindowSize: 1, SimilarityThreshold: 0.5, TreeOrder: 4})

	require.NoError(t, ingest(d, "sub-d", "1 2 3"))
	require.NoError(t, ingest(d, "sub-e", "1 2 4"))
	require.NoError(t, ingest(d, "sub-f", "1 2 5"))
	require.NoError(t, ingest(d, "sub-z", "9 8 7"))

	mid, err := d.RangeQueryBySimilarity(0.4, 0.6)
	require.NoError(t, err)
	require.Len(t, mid, 3)
	assert.Equal(t, "sub-d", mid[0].SubmissionID)
	assert.Equal(t, "sub-e", mid[1].SubmissionID)
	assert.Equal(t, "sub-f", mid[2].SubmissionID)

	// sub-d's superseded singleton entry (avg 0) must not reappear.
	low, err := d.RangeQueryBySimilarity(0, 0.1)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "sub-z", low[0].SubmissionID)

	all, err := d.RangeQueryBySimilarity(0, 1)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFragmentsBetweenSubmissions(t *testing.T) {
	d := newTestDetector(t, defaultOptions())

	srcA := "def add(a, b):\n    total = a + b\n    return total\n"
	srcB := "def plus(x, y):\n    result = x + y\n    return result\n"
	require.NoError(t, ingest(d, "sub-a", srcA))
	require.NoError(t, ingest(d, "sub-b", srcB))

	frags, err := d.Fragments("sub-a", "sub-b")
	require.NoError(t, err)
	require.NotEmpty(t, frags)
	assert.Equal(t, 0, frags[0].StartA)
	assert.Equal(t, 0, frags[0].StartB)

	_, err = d.Fragments("sub-a", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrepareCommitSplit(t *testing.T) {
	d := newTestDetector(t, defaultOptions())

	// Preparing has no side effects until committed.
	p := d.Prepare("sub-a", "def f(a):\n    return a * 2\n", "python", "")
	assert.Equal(t, 0, d.Count())

	res, err := d.Commit(p)
	require.NoError(t, err)
	assert.Equal(t, "sub-a", res.SubmissionID)
	assert.Equal(t, 1, d.Count())
}

func ingest(d *Detector, id, source string) error {
	_, err := d.Ingest(id, source, "python", "")
	return err
}
