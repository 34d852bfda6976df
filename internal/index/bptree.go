// Package index implements an in-memory B+ tree used as the submission
// metadata index. All records live in the leaves, which form a doubly linked
// ordered chain for streaming range scans; internal nodes hold routing keys
// only.
package index

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt signals a violated structural invariant, e.g. an unsorted
	// leaf observed during a scan. It marks a programming defect and callers
	// must abort rather than continue on the damaged index.
	ErrCorrupt = errors.New("index: structural invariant violated")

	// ErrKeyNotFound is returned by Update for an absent key.
	ErrKeyNotFound = errors.New("index: key not found")
)

// MinOrder is the smallest supported fan-out.
const MinOrder = 3

type node[K comparable, V any] struct {
	leaf     bool
	keys     []K
	vals     []V           // leaf only
	children []*node[K, V] // internal only
	next     *node[K, V]   // leaf chain
	prev     *node[K, V]
}

// Tree is a B+ tree of fan-out order: internal nodes route through up to
// order-1 separator keys and order children, leaves hold up to order-1
// entries. Not safe for concurrent use; the owner serializes access.
type Tree[K comparable, V any] struct {
	order int
	less  func(a, b K) bool
	root  *node[K, V]
	size  int
}

// New creates an empty tree with the given fan-out and ordering. Orders
// below MinOrder are rejected at configuration time by the caller; New
// clamps defensively so the structure itself stays well formed.
func New[K comparable, V any](order int, less func(a, b K) bool) *Tree[K, V] {
	if order < MinOrder {
		order = MinOrder
	}
	return &Tree[K, V]{
		order: order,
		less:  less,
		root:  &node[K, V]{leaf: true},
	}
}

// Len returns the number of stored entries.
func (t *Tree[K, V]) Len() int {
	return t.size
}

// upperBound returns the first index i with key < keys[i].
func (t *Tree[K, V]) upperBound(keys []K, key K) int {
	i := 0
	for i < len(keys) && !t.less(key, keys[i]) {
		i++
	}
	return i
}

// lowerBound returns the first index i with keys[i] >= key.
func (t *Tree[K, V]) lowerBound(keys []K, key K) int {
	i := 0
	for i < len(keys) && t.less(keys[i], key) {
		i++
	}
	return i
}

type pathEntry[K comparable, V any] struct {
	n   *node[K, V]
	idx int // child index taken during descent
}

// findLeaf descends to the leaf that owns key, optionally recording the
// descent path for the split ascent.
func (t *Tree[K, V]) findLeaf(key K, path *[]pathEntry[K, V]) *node[K, V] {
	n := t.root
	for !n.leaf {
		i := t.upperBound(n.keys, key)
		if path != nil {
			*path = append(*path, pathEntry[K, V]{n: n, idx: i})
		}
		n = n.children[i]
	}
	return n
}

// Insert stores key→val, replacing the value in place when the key already
// exists. Overflowing nodes split bottom-up: the ascent is an explicit loop
// carrying the promoted key and freshly created right sibling toward the
// root, growing tree height by one when the root itself splits.
func (t *Tree[K, V]) Insert(key K, val V) {
	var path []pathEntry[K, V]
	leaf := t.findLeaf(key, &path)

	i := t.lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && leaf.keys[i] == key {
		leaf.vals[i] = val
		return
	}

	leaf.keys = append(leaf.keys, key)
	copy(leaf.keys[i+1:], leaf.keys[i:])
	leaf.keys[i] = key
	var zero V
	leaf.vals = append(leaf.vals, zero)
	copy(leaf.vals[i+1:], leaf.vals[i:])
	leaf.vals[i] = val
	t.size++

	if len(leaf.keys) <= t.order-1 {
		return
	}

	promoted, right := t.splitLeaf(leaf)
	left := leaf

	for len(path) > 0 {
		pe := path[len(path)-1]
		path = path[:len(path)-1]
		parent := pe.n

		parent.keys = append(parent.keys, promoted)
		copy(parent.keys[pe.idx+1:], parent.keys[pe.idx:])
		parent.keys[pe.idx] = promoted
		parent.children = append(parent.children, nil)
		copy(parent.children[pe.idx+2:], parent.children[pe.idx+1:])
		parent.children[pe.idx+1] = right

		if len(parent.keys) <= t.order-1 {
			return
		}
		promoted, right = t.splitInternal(parent)
		left = parent
	}

	t.root = &node[K, V]{
		keys:     []K{promoted},
		children: []*node[K, V]{left, right},
	}
}

// splitLeaf moves the upper half of a full leaf into a new right sibling,
// links it into the leaf chain and returns the key to promote (the right
// sibling's first key, which stays in the leaf level).
func (t *Tree[K, V]) splitLeaf(n *node[K, V]) (K, *node[K, V]) {
	mid := len(n.keys) / 2
	right := &node[K, V]{
		leaf: true,
		keys: append([]K(nil), n.keys[mid:]...),
		vals: append([]V(nil), n.vals[mid:]...),
	}

	right.next = n.next
	if n.next != nil {
		n.next.prev = right
	}
	right.prev = n
	n.next = right

	n.keys = n.keys[:mid:mid]
	n.vals = n.vals[:mid:mid]
	return right.keys[0], right
}

// splitInternal splits a full internal node around its median key, which is
// promoted and excluded from both halves.
func (t *Tree[K, V]) splitInternal(n *node[K, V]) (K, *node[K, V]) {
	mid := len(n.keys) / 2
	promoted := n.keys[mid]
	right := &node[K, V]{
		keys:     append([]K(nil), n.keys[mid+1:]...),
		children: append([]*node[K, V](nil), n.children[mid+1:]...),
	}
	n.keys = n.keys[:mid:mid]
	n.children = n.children[:mid+1 : mid+1]
	return promoted, right
}

// Get returns the record stored under key.
func (t *Tree[K, V]) Get(key K) (V, bool) {
	leaf := t.findLeaf(key, nil)
	i := t.lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && leaf.keys[i] == key {
		return leaf.vals[i], true
	}
	var zero V
	return zero, false
}

// Update replaces the record at an existing key in place; no structural
// change. Returns ErrKeyNotFound when the key is absent.
func (t *Tree[K, V]) Update(key K, val V) error {
	leaf := t.findLeaf(key, nil)
	i := t.lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && leaf.keys[i] == key {
		leaf.vals[i] = val
		return nil
	}
	return ErrKeyNotFound
}

// Range streams entries with key >= from in ascending order until fn returns
// false or the chain ends. Nothing is materialized; the scan walks the leaf
// chain directly. An out-of-order key aborts the scan with ErrCorrupt.
func (t *Tree[K, V]) Range(from K, fn func(K, V) bool) error {
	leaf := t.findLeaf(from, nil)
	i := t.lowerBound(leaf.keys, from)

	var last K
	seen := false
	for leaf != nil {
		for ; i < len(leaf.keys); i++ {
			k := leaf.keys[i]
			if seen && t.less(k, last) {
				return fmt.Errorf("%w: unsorted leaf chain", ErrCorrupt)
			}
			last, seen = k, true
			if !fn(k, leaf.vals[i]) {
				return nil
			}
		}
		leaf = leaf.next
		i = 0
	}
	return nil
}

// RangeScan streams entries with lo <= key <= hi in ascending key order.
func (t *Tree[K, V]) RangeScan(lo, hi K, fn func(K, V) bool) error {
	return t.Range(lo, func(k K, v V) bool {
		if t.less(hi, k) {
			return false
		}
		return fn(k, v)
	})
}

// CheckInvariants validates the structure: leaf occupancy between
// ceil(order/2)-1 and order-1 (root exempt while it is the only leaf), a
// strictly ascending doubly linked leaf chain, and an entry count matching
// Len. Intended for tests and corruption audits.
func (t *Tree[K, V]) CheckInvariants() error {
	leaf := t.root
	for !leaf.leaf {
		leaf = leaf.children[0]
	}

	minEntries := (t.order+1)/2 - 1
	rootIsLeaf := t.root.leaf

	var last K
	seen := false
	count := 0
	var prev *node[K, V]
	for ; leaf != nil; leaf = leaf.next {
		if leaf.prev != prev {
			return fmt.Errorf("%w: broken leaf back-link", ErrCorrupt)
		}
		if !rootIsLeaf && len(leaf.keys) < minEntries {
			return fmt.Errorf("%w: leaf underflow (%d < %d)", ErrCorrupt, len(leaf.keys), minEntries)
		}
		if len(leaf.keys) > t.order-1 {
			return fmt.Errorf("%w: leaf overflow (%d > %d)", ErrCorrupt, len(leaf.keys), t.order-1)
		}
		for _, k := range leaf.keys {
			if seen && !t.less(last, k) {
				return fmt.Errorf("%w: leaf chain not strictly ascending", ErrCorrupt)
			}
			last, seen = k, true
			count++
		}
		prev = leaf
	}

	if count != t.size {
		return fmt.Errorf("%w: entry count %d != size %d", ErrCorrupt, count, t.size)
	}
	return nil
}
