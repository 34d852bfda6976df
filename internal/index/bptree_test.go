package index

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLess(a, b int) bool { return a < b }

func TestInsertGetRoundtrip(t *testing.T) {
	for _, order := range []int{3, 4, 5, 8, 16} {
		t.Run(fmt.Sprintf("order=%d", order), func(t *testing.T) {
			tree := New[int, string](order, intLess)

			rng := rand.New(rand.NewSource(42))
			keys := rng.Perm(500)
			for _, k := range keys {
				tree.Insert(k, fmt.Sprintf("v%d", k))
			}

			require.Equal(t, 500, tree.Len())
			require.NoError(t, tree.CheckInvariants())

			for _, k := range keys {
				v, ok := tree.Get(k)
				require.True(t, ok, "key %d", k)
				assert.Equal(t, fmt.Sprintf("v%d", k), v)
			}

			_, ok := tree.Get(1000)
			assert.False(t, ok)
		})
	}
}

func TestInsertReplacesExistingKey(t *testing.T) {
	tree := New[int, string](4, intLess)

	tree.Insert(7, "first")
	tree.Insert(7, "second")

	assert.Equal(t, 1, tree.Len())
	v, ok := tree.Get(7)
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestUpdate(t *testing.T) {
	tree := New[int, string](4, intLess)
	for i := 0; i < 20; i++ {
		tree.Insert(i, "old")
	}

	require.NoError(t, tree.Update(13, "new"))
	v, _ := tree.Get(13)
	assert.Equal(t, "new", v)
	assert.Equal(t, 20, tree.Len(), "update must not change size")

	err := tree.Update(99, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRangeScanAscendingWithinBounds(t *testing.T) {
	tree := New[int, int](4, intLess)
	rng := rand.New(rand.NewSource(7))
	for _, k := range rng.Perm(100) {
		tree.Insert(k, k*10)
	}

	var got []int
	err := tree.RangeScan(25, 74, func(k, v int) bool {
		got = append(got, k)
		assert.Equal(t, k*10, v)
		return true
	})
	require.NoError(t, err)

	require.Len(t, got, 50)
	for i, k := range got {
		assert.Equal(t, 25+i, k, "scan must be ascending and contiguous")
	}
}

func TestRangeEarlyStop(t *testing.T) {
	tree := New[int, int](4, intLess)
	for i := 0; i < 50; i++ {
		tree.Insert(i, i)
	}

	var got []int
	err := tree.Range(10, func(k, v int) bool {
		got = append(got, k)
		return len(got) < 5
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11, 12, 13, 14}, got)
}

func TestRangeEmptyTree(t *testing.T) {
	tree := New[int, int](4, intLess)
	err := tree.Range(0, func(k, v int) bool {
		t.Fatal("callback must not fire on empty tree")
		return false
	})
	require.NoError(t, err)
}

func TestNewClampsOrder(t *testing.T) {
	tree := New[int, int](1, intLess)
	for i := 0; i < 100; i++ {
		tree.Insert(i, i)
	}
	require.NoError(t, tree.CheckInvariants())
	assert.Equal(t, 100, tree.Len())
}

func TestCheckInvariantsSequentialInserts(t *testing.T) {
	// Sequential insertion is the worst case for leaf occupancy.
	tree := New[int, int](5, intLess)
	for i := 0; i < 1000; i++ {
		tree.Insert(i, i)
		require.NoError(t, tree.CheckInvariants(), "after insert %d", i)
	}
}
