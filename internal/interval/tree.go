// Package interval implements a static, centered interval tree over
// closed integer intervals carrying opaque uint32 identifiers.
//
// The tree is built once from a finite set of intervals and answers
// overlap, containment, and nearest-point queries in O(log n + k) in
// practice. It supports no mutation after construction; callers that
// need to add or remove intervals must rebuild.
package interval

import (
	"errors"
	"math"
	"sort"
)

// ErrInvalidInterval is returned by Build when an interval has Start > End.
var ErrInvalidInterval = errors.New("interval: start must be <= end")

// Interval is a closed, inclusive interval [Start, End] carrying an
// opaque identifier. Identifiers are not interpreted by the tree.
type Interval struct {
	ID    uint32
	Start int64
	End   int64
}

// node is one level of the centered interval tree. Children are
// referenced by index into Tree.nodes rather than by pointer so the
// whole structure is flat and relocatable.
type node struct {
	center int64

	// straddlers (intervals containing center), stored as indices into
	// Tree.intervals, in two orders.
	ascStart []int32 // ascending by Start
	descEnd  []int32 // descending by End

	left, right int32 // -1 means absent

	// loBound/hiBound bound the Start/End of every interval in this
	// node's subtree (straddlers and both children), used to prune
	// FindNearest descents.
	loBound, hiBound int64
}

// Tree is an immutable centered interval tree.
type Tree struct {
	intervals []Interval
	nodes     []node
	root      int32
}

// Build constructs a Tree from intervals. Construction sorts the
// endpoints of every partition at each level of the tree, so it runs
// in O(n log² n); it does not retain the backing array passed in.
//
// Build rejects any interval with Start > End with ErrInvalidInterval;
// on error no tree is constructed.
func Build(intervals []Interval) (*Tree, error) {
	for _, iv := range intervals {
		if iv.Start > iv.End {
			return nil, ErrInvalidInterval
		}
	}

	t := &Tree{
		intervals: append([]Interval(nil), intervals...),
		root:      -1,
	}
	if len(intervals) == 0 {
		return t, nil
	}

	b := &builder{tree: t}
	ids := make([]int32, len(t.intervals))
	for i := range ids {
		ids[i] = int32(i)
	}
	t.root = b.build(ids)
	return t, nil
}

type builder struct {
	tree *Tree
}

// build partitions ids around the median endpoint coordinate of the
// current partition, recurses on the left (end < center) and right
// (start > center) subsets, and records the straddlers (intervals
// containing center) in both sort orders needed by the query
// algorithms. Returns -1 for an empty partition.
func (b *builder) build(ids []int32) int32 {
	if len(ids) == 0 {
		return -1
	}

	center := medianEndpoint(b.tree.intervals, ids)

	var straddlers, leftIDs, rightIDs []int32
	for _, id := range ids {
		iv := b.tree.intervals[id]
		switch {
		case iv.End < center:
			leftIDs = append(leftIDs, id)
		case iv.Start > center:
			rightIDs = append(rightIDs, id)
		default:
			straddlers = append(straddlers, id)
		}
	}

	ascStart := append([]int32(nil), straddlers...)
	sort.Slice(ascStart, func(i, j int) bool {
		return b.tree.intervals[ascStart[i]].Start < b.tree.intervals[ascStart[j]].Start
	})
	descEnd := append([]int32(nil), straddlers...)
	sort.Slice(descEnd, func(i, j int) bool {
		return b.tree.intervals[descEnd[i]].End > b.tree.intervals[descEnd[j]].End
	})

	leftIdx := b.build(leftIDs)
	rightIdx := b.build(rightIDs)

	lo, hi := int64(math.MaxInt64), int64(math.MinInt64)
	for _, id := range straddlers {
		iv := b.tree.intervals[id]
		if iv.Start < lo {
			lo = iv.Start
		}
		if iv.End > hi {
			hi = iv.End
		}
	}
	if leftIdx >= 0 {
		ln := b.tree.nodes[leftIdx]
		if ln.loBound < lo {
			lo = ln.loBound
		}
		if ln.hiBound > hi {
			hi = ln.hiBound
		}
	}
	if rightIdx >= 0 {
		rn := b.tree.nodes[rightIdx]
		if rn.loBound < lo {
			lo = rn.loBound
		}
		if rn.hiBound > hi {
			hi = rn.hiBound
		}
	}

	b.tree.nodes = append(b.tree.nodes, node{
		center:   center,
		ascStart: ascStart,
		descEnd:  descEnd,
		left:     leftIdx,
		right:    rightIdx,
		loBound:  lo,
		hiBound:  hi,
	})
	return int32(len(b.tree.nodes) - 1)
}

// medianEndpoint picks the lower median of all Start/End coordinates
// across ids, breaking ties toward the smallest coordinate (which
// falls out naturally from sorting equal values together). Any
// deterministic median suffices per the tree's contract; this one at
// least one interval's own endpoint is guaranteed to straddle it, so
// every non-empty partition produces at least one straddler.
func medianEndpoint(intervals []Interval, ids []int32) int64 {
	endpoints := make([]int64, 0, len(ids)*2)
	for _, id := range ids {
		endpoints = append(endpoints, intervals[id].Start, intervals[id].End)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i] < endpoints[j] })
	return endpoints[(len(endpoints)-1)/2]
}

// FindOverlapping returns the IDs of every interval [s,e] with
// e >= qs && s <= qe. Returns nil (not an error) if qs > qe.
//
// The descent uses ascending-start order whenever qs <= c: this
// covers both the case where c falls inside [qs,qe] (every straddler
// qualifies automatically, since Start <= c <= qe holds for all of
// them) and the case where the query lies entirely left of c
// (End >= c > qe >= qs guarantees End >= qs for every straddler, so
// Start <= qe is the only condition left to check, and ascending
// order lets the scan break at the first violation). Symmetrically,
// qs > c uses descending-End order.
func (t *Tree) FindOverlapping(qs, qe int64) []uint32 {
	if qs > qe || t.root < 0 {
		return nil
	}
	var out []uint32
	var visit func(idx int32)
	visit = func(idx int32) {
		if idx < 0 {
			return
		}
		n := &t.nodes[idx]
		c := n.center
		if qs <= c {
			for _, i := range n.ascStart {
				iv := t.intervals[i]
				if iv.Start > qe {
					break
				}
				out = append(out, iv.ID)
			}
		} else {
			for _, i := range n.descEnd {
				iv := t.intervals[i]
				if iv.End < qs {
					break
				}
				out = append(out, iv.ID)
			}
		}
		if qs <= c {
			visit(n.left)
		}
		if qe >= c {
			visit(n.right)
		}
	}
	visit(t.root)
	return out
}

// FindContained returns the IDs of every interval [s,e] with
// s >= qs && e <= qe. Returns nil (not an error) if qs > qe.
func (t *Tree) FindContained(qs, qe int64) []uint32 {
	if qs > qe || t.root < 0 {
		return nil
	}
	var out []uint32
	var visit func(idx int32)
	visit = func(idx int32) {
		if idx < 0 {
			return
		}
		n := &t.nodes[idx]
		if n.hiBound < qs || n.loBound > qe {
			return
		}
		c := n.center
		for _, i := range n.ascStart {
			iv := t.intervals[i]
			if iv.Start > qe {
				break
			}
			if iv.Start >= qs && iv.End <= qe {
				out = append(out, iv.ID)
			}
		}
		if qs <= c {
			visit(n.left)
		}
		if qe >= c {
			visit(n.right)
		}
	}
	visit(t.root)
	return out
}

// FindNearest returns every interval ID attaining the minimum
// distance to p, where dist([s,e], p) = max(0, s-p, p-e). Points
// inside an interval are at distance 0, so an overlapping interval is
// always included in the result.
func (t *Tree) FindNearest(p int64) []uint32 {
	if t.root < 0 {
		return nil
	}
	best := int64(math.MaxInt64)
	var out []uint32
	var visit func(idx int32)
	visit = func(idx int32) {
		n := &t.nodes[idx]
		for _, i := range n.ascStart {
			iv := t.intervals[i]
			d := pointDistance(iv, p)
			switch {
			case d < best:
				best = d
				out = []uint32{iv.ID}
			case d == best:
				out = append(out, iv.ID)
			}
		}
		if n.left >= 0 && boundDistance(t.nodes[n.left], p) <= best {
			visit(n.left)
		}
		if n.right >= 0 && boundDistance(t.nodes[n.right], p) <= best {
			visit(n.right)
		}
	}
	visit(t.root)
	return out
}

func pointDistance(iv Interval, p int64) int64 {
	if p < iv.Start {
		return iv.Start - p
	}
	if p > iv.End {
		return p - iv.End
	}
	return 0
}

func boundDistance(n node, p int64) int64 {
	if p < n.loBound {
		return n.loBound - p
	}
	if p > n.hiBound {
		return p - n.hiBound
	}
	return 0
}

// Len returns the number of intervals in the tree.
func (t *Tree) Len() int {
	return len(t.intervals)
}
