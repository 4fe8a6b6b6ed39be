package interval

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idSet(ids []uint32) map[uint32]bool {
	m := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestBuild_Empty(t *testing.T) {
	tree, err := Build(nil)
	require.NoError(t, err)
	assert.Nil(t, tree.FindOverlapping(0, 100))
	assert.Nil(t, tree.FindContained(0, 100))
	assert.Nil(t, tree.FindNearest(0))
}

func TestBuild_RejectsInvalidInterval(t *testing.T) {
	_, err := Build([]Interval{{ID: 1, Start: 10, End: 5}})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

// Worked example: intervals {(1,3,5),(2,9,10),(3,10,14)}.
func TestScenarioS1(t *testing.T) {
	tree, err := Build([]Interval{
		{ID: 1, Start: 3, End: 5},
		{ID: 2, Start: 9, End: 10},
		{ID: 3, Start: 10, End: 14},
	})
	require.NoError(t, err)

	assert.Equal(t, map[uint32]bool{2: true, 3: true}, idSet(tree.FindOverlapping(6, 12)))
	assert.Equal(t, map[uint32]bool{2: true}, idSet(tree.FindContained(6, 12)))
	assert.Equal(t, map[uint32]bool{1: true, 2: true}, idSet(tree.FindNearest(7)))
}

func TestFindOverlapping_ClosedBoundaries(t *testing.T) {
	tree, err := Build([]Interval{{ID: 1, Start: 100, End: 200}})
	require.NoError(t, err)

	assert.Equal(t, []uint32{1}, tree.FindOverlapping(100, 100))
	assert.Equal(t, []uint32{1}, tree.FindOverlapping(200, 200))
	assert.Equal(t, []uint32{1}, tree.FindOverlapping(0, 100), "qe == interval.start still overlaps")
	assert.Nil(t, tree.FindOverlapping(201, 300))
	assert.Nil(t, tree.FindOverlapping(0, 99))
}

func TestFindOverlapping_InvalidQueryRangeIsEmptyNotError(t *testing.T) {
	tree, err := Build([]Interval{{ID: 1, Start: 1, End: 10}})
	require.NoError(t, err)
	assert.Nil(t, tree.FindOverlapping(10, 1))
	assert.Nil(t, tree.FindContained(10, 1))
}

func TestFindContained_SubsetOfOverlapping(t *testing.T) {
	intervals := []Interval{
		{ID: 1, Start: 0, End: 1000},
		{ID: 2, Start: 100, End: 200},
		{ID: 3, Start: 150, End: 900},
		{ID: 4, Start: 999, End: 1200},
	}
	tree, err := Build(intervals)
	require.NoError(t, err)

	overlap := idSet(tree.FindOverlapping(100, 900))
	contained := idSet(tree.FindContained(100, 900))
	for id := range contained {
		assert.True(t, overlap[id], "contained result %d must be in overlapping result", id)
	}
	assert.Equal(t, map[uint32]bool{2: true, 3: true}, contained)
}

func TestFindNearest_TiesAndInside(t *testing.T) {
	intervals := []Interval{
		{ID: 1, Start: 0, End: 10},
		{ID: 2, Start: 20, End: 30},
		{ID: 3, Start: 40, End: 50},
	}
	tree, err := Build(intervals)
	require.NoError(t, err)

	assert.Equal(t, map[uint32]bool{1: true}, idSet(tree.FindNearest(5)), "point inside an interval is distance 0")
	assert.Equal(t, map[uint32]bool{1: true, 2: true}, idSet(tree.FindNearest(15)), "equidistant tie")
}

// TestMatchesLinearScan builds a tree from randomly generated intervals
// and verifies every query matches a brute-force linear scan.
func TestMatchesLinearScan(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	check := func(numIntervals, maxStart, maxSize int) {
		intervals := make([]Interval, numIntervals)
		for i := range intervals {
			start := int64(r.Intn(maxStart + 1))
			end := start + int64(r.Intn(maxSize))
			intervals[i] = Interval{ID: uint32(i), Start: start, End: end}
		}
		tree, err := Build(intervals)
		require.NoError(t, err)

		linearOverlapping := func(qs, qe int64) map[uint32]bool {
			out := map[uint32]bool{}
			for _, iv := range intervals {
				if iv.End >= qs && iv.Start <= qe {
					out[iv.ID] = true
				}
			}
			return out
		}
		linearContained := func(qs, qe int64) map[uint32]bool {
			out := map[uint32]bool{}
			for _, iv := range intervals {
				if iv.Start >= qs && iv.End <= qe {
					out[iv.ID] = true
				}
			}
			return out
		}
		linearNearest := func(p int64) map[uint32]bool {
			best := int64(1<<63 - 1)
			for _, iv := range intervals {
				if d := pointDistance(iv, p); d < best {
					best = d
				}
			}
			out := map[uint32]bool{}
			for _, iv := range intervals {
				if pointDistance(iv, p) == best {
					out[iv.ID] = true
				}
			}
			return out
		}

		for i := 0; i < 100; i++ {
			qs := int64(r.Intn(maxStart * 2))
			qe := qs + int64(r.Intn(maxSize*2))
			assert.Equal(t, linearOverlapping(qs, qe), idSet(tree.FindOverlapping(qs, qe)), "overlapping qs=%d qe=%d", qs, qe)
			assert.Equal(t, linearContained(qs, qe), idSet(tree.FindContained(qs, qe)), "contained qs=%d qe=%d", qs, qe)
		}
		for i := 0; i < 100; i++ {
			p := int64(r.Intn(maxStart * 2))
			assert.Equal(t, linearNearest(p), idSet(tree.FindNearest(p)), "nearest p=%d", p)
		}
	}

	check(1000, 1000, 100) // dense
	check(1000, 10000, 10) // sparse
}

func TestLen(t *testing.T) {
	tree, err := Build([]Interval{{ID: 1, Start: 1, End: 2}, {ID: 2, Start: 3, End: 4}})
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Len())
}

func TestFindOverlapping_ResultOrderUnspecifiedButDeterministicSet(t *testing.T) {
	// Build the same intervals twice; the returned sets must match even if
	// order does not.
	mk := func() []Interval {
		return []Interval{
			{ID: 1, Start: 1, End: 50},
			{ID: 2, Start: 10, End: 20},
			{ID: 3, Start: 30, End: 40},
			{ID: 4, Start: 5, End: 60},
		}
	}
	t1, err := Build(mk())
	require.NoError(t, err)
	t2, err := Build(mk())
	require.NoError(t, err)

	a := tree1Sorted(t1.FindOverlapping(15, 35))
	b := tree1Sorted(t2.FindOverlapping(15, 35))
	assert.Equal(t, a, b)
}

func tree1Sorted(ids []uint32) []uint32 {
	out := append([]uint32(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
