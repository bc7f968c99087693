// Package hashindex maps integer hashes to positions in a slice owned by the
// caller.
//
// The index never looks at the data it indexes. Callers hash their own keys,
// add the position of each element, and compare candidates returned by
// First/Next against the real key. Removal assumes the caller compacts its
// slice in the same step (shift-left or swap-and-pop followed by a matching
// Add/Remove): every stored position greater than the removed one is
// decremented.
//
// Example usage:
//
//	ix := hashindex.New(256)
//	items = append(items, "foo")
//	ix.Add(hashindex.Hash("foo"), len(items)-1)
//
//	for i := ix.First(hashindex.Hash("foo")); i != -1; i = ix.Next() {
//		if items[i] == "foo" {
//			// found
//		}
//	}
package hashindex

import (
	"fmt"

	"fortio.org/safecast"
)

// DefaultSize is the bucket count used when New is called with size <= 0.
const DefaultSize = 1024

// noNode terminates bucket chains and marks an idle iterator.
const noNode int32 = -1

// node is a slot in the node arena. Free slots are chained through free.
type node struct {
	hash  uint32
	index int
	next  int32
	used  bool
}

// Index is a multi-map from a 32-bit hash to positions in an external slice.
//
// Nodes live in a flat arena and are referenced by slot id; released slots are
// recycled through a free list. Buckets are allocated lazily on the first Add.
//
// An Index is not safe for concurrent use. It holds a single iteration cursor,
// so First/Next sequences on the same Index must not interleave.
type Index struct {
	size    int
	mask    uint32
	buckets []int32
	nodes   []node
	free    []int32
	live    int
	cursor  int32
}

// New creates an index with the given number of buckets.
// The size must be a power of two; size <= 0 selects DefaultSize.
func New(size int) *Index {
	if size <= 0 {
		size = DefaultSize
	}
	ix := &Index{cursor: noNode}
	ix.resize(size)
	return ix
}

// Add records index under hash. Adding an existing (hash, index) pair is a no-op.
func (ix *Index) Add(hash uint32, index int) {
	if ix.buckets == nil {
		ix.allocBuckets()
	}

	b := hash & ix.mask
	for id := ix.buckets[b]; id != noNode; id = ix.nodes[id].next {
		n := &ix.nodes[id]
		if n.hash == hash && n.index == index {
			return
		}
	}

	id := ix.alloc()
	ix.nodes[id] = node{hash: hash, index: index, next: ix.buckets[b], used: true}
	ix.buckets[b] = id
	ix.live++
}

// Remove deletes the (hash, index) pair and decrements every stored position
// greater than index. The pair must exist; removing an unknown pair panics
// because the caller's slice and the index are already out of step.
func (ix *Index) Remove(hash uint32, index int) {
	if ix.buckets != nil {
		b := hash & ix.mask
		prev := noNode
		for id := ix.buckets[b]; id != noNode; id = ix.nodes[id].next {
			n := &ix.nodes[id]
			if n.hash != hash || n.index != index {
				prev = id
				continue
			}

			if prev == noNode {
				ix.buckets[b] = n.next
			} else {
				ix.nodes[prev].next = n.next
			}
			ix.release(id)
			ix.shiftDown(index)
			ix.cursor = noNode
			return
		}
	}

	panic(fmt.Sprintf("hashindex: remove of unknown entry (hash %#x, index %d)", hash, index))
}

// First starts an iteration over the positions stored under hash and returns
// the first one, or -1 if there is none.
func (ix *Index) First(hash uint32) int {
	if ix.buckets == nil {
		ix.cursor = noNode
		return -1
	}
	ix.cursor = ix.buckets[hash&ix.mask]
	return ix.settle(hash)
}

// Next returns the next position of the iteration started by First, or -1
// when the chain is exhausted.
func (ix *Index) Next() int {
	if ix.cursor == noNode {
		return -1
	}
	hash := ix.nodes[ix.cursor].hash
	ix.cursor = ix.nodes[ix.cursor].next
	return ix.settle(hash)
}

// settle advances the cursor to the next node carrying hash.
func (ix *Index) settle(hash uint32) int {
	for ix.cursor != noNode {
		n := &ix.nodes[ix.cursor]
		if n.hash == hash {
			return n.index
		}
		ix.cursor = n.next
	}
	return -1
}

// Lookup reports whether the (hash, index) pair is present.
func (ix *Index) Lookup(hash uint32, index int) bool {
	if ix.buckets == nil {
		return false
	}
	for id := ix.buckets[hash&ix.mask]; id != noNode; id = ix.nodes[id].next {
		if ix.nodes[id].hash == hash && ix.nodes[id].index == index {
			return true
		}
	}
	return false
}

// Clear releases all nodes and buckets. A positive newSize reconfigures the
// bucket count and must be a power of two.
func (ix *Index) Clear(newSize int) {
	ix.buckets = nil
	ix.nodes = ix.nodes[:0]
	ix.free = ix.free[:0]
	ix.live = 0
	ix.cursor = noNode
	if newSize > 0 {
		ix.resize(newSize)
	}
}

// Len returns the number of stored (hash, index) pairs.
func (ix *Index) Len() int { return ix.live }

// Size returns the bucket count.
func (ix *Index) Size() int { return ix.size }

func (ix *Index) resize(size int) {
	if size&(size-1) != 0 {
		panic(fmt.Sprintf("hashindex: size %d is not a power of two", size))
	}
	mask, err := safecast.Convert[uint32](size - 1)
	if err != nil {
		panic(fmt.Errorf("hashindex: size %d: %w", size, err))
	}
	ix.size = size
	ix.mask = mask
}

func (ix *Index) allocBuckets() {
	ix.buckets = make([]int32, ix.size)
	for i := range ix.buckets {
		ix.buckets[i] = noNode
	}
}

func (ix *Index) alloc() int32 {
	if n := len(ix.free); n > 0 {
		id := ix.free[n-1]
		ix.free = ix.free[:n-1]
		return id
	}
	id, err := safecast.Convert[int32](len(ix.nodes))
	if err != nil {
		panic(fmt.Errorf("hashindex: node arena overflow: %w", err))
	}
	ix.nodes = append(ix.nodes, node{})
	return id
}

func (ix *Index) release(id int32) {
	ix.nodes[id] = node{next: noNode}
	ix.free = append(ix.free, id)
	ix.live--
}

// shiftDown keeps positions in step with a compacting removal at index.
func (ix *Index) shiftDown(index int) {
	for i := range ix.nodes {
		if ix.nodes[i].used && ix.nodes[i].index > index {
			ix.nodes[i].index--
		}
	}
}
