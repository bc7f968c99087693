package xdecl

import (
	"strings"

	"fortio.org/safecast"

	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/strpool"
)

// nilNode terminates child and sibling chains.
const nilNode int32 = -1

// node is an arena slot. Freed slots keep their Dict for reuse.
type node struct {
	name  strpool.Handle
	dict  *dict.Dict
	first int32
	last  int32
	next  int32
	used  bool
}

// Tree is a forest of named nodes under a virtual root. Nodes live in an
// arena and refer to each other by slot id; slots of removed nodes are
// recycled through a free list.
type Tree struct {
	pools *dict.Pools
	nodes []node
	free  []int32
	root  int32
	live  int
}

// NewTree creates an empty tree whose strings live in pools.
func NewTree(pools *dict.Pools) *Tree {
	t := &Tree{pools: pools}
	t.root = t.alloc("")
	t.live = 0
	return t
}

// Root returns the virtual root. Its children are the top-level nodes.
func (t *Tree) Root() Node { return Node{tree: t, id: t.root} }

// Len returns the number of nodes, not counting the root.
func (t *Tree) Len() int { return t.live }

// Pools returns the pools backing node names and Dicts.
func (t *Tree) Pools() *dict.Pools { return t.pools }

// Clear removes every node below the root.
func (t *Tree) Clear() {
	t.freeChildren(t.root)
	t.nodes[t.root].dict.Clear()
}

// alloc takes a slot from the free list or grows the arena.
func (t *Tree) alloc(name string) int32 {
	var id int32
	if n := len(t.free); n > 0 {
		id = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		next, err := safecast.Convert[int32](len(t.nodes))
		if err != nil {
			panic("xdecl: too many nodes")
		}
		id = next
		t.nodes = append(t.nodes, node{dict: dict.New(t.pools)})
	}

	n := &t.nodes[id]
	n.name = t.pools.Values.Alloc(name)
	n.first, n.last, n.next = nilNode, nilNode, nilNode
	n.used = true
	t.live++
	return id
}

// release returns a single slot, which must already be unlinked and
// childless, to the free list.
func (t *Tree) release(id int32) {
	n := &t.nodes[id]
	t.pools.Values.Free(n.name)
	n.name = strpool.Handle{}
	n.dict.Clear()
	n.first, n.last, n.next = nilNode, nilNode, nilNode
	n.used = false
	t.free = append(t.free, id)
	t.live--
}

// appendChild links child as the last child of parent.
func (t *Tree) appendChild(parent, child int32) {
	p := &t.nodes[parent]
	if p.last == nilNode {
		p.first = child
	} else {
		t.nodes[p.last].next = child
	}
	p.last = child
}

// freeChildren releases every descendant of id and leaves it childless.
func (t *Tree) freeChildren(id int32) {
	stack := []int32{}
	for c := t.nodes[id].first; c != nilNode; c = t.nodes[c].next {
		stack = append(stack, c)
	}
	t.nodes[id].first, t.nodes[id].last = nilNode, nilNode

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for gc := t.nodes[c].first; gc != nilNode; gc = t.nodes[gc].next {
			stack = append(stack, gc)
		}
		t.release(c)
	}
}

// discard releases a detached node and its subtree.
func (t *Tree) discard(id int32) {
	t.freeChildren(id)
	t.release(id)
}

// adopt moves all children of from to the end of the children of to, then
// releases from.
func (t *Tree) adopt(to, from int32) {
	f := &t.nodes[from]
	if f.first != nilNode {
		dst := &t.nodes[to]
		if dst.last == nilNode {
			dst.first = f.first
		} else {
			t.nodes[dst.last].next = f.first
		}
		dst.last = f.last
	}
	f.first, f.last = nilNode, nilNode
	t.release(from)
}

// Node is a handle to a tree node. The zero Node is invalid; navigation
// past the end of a chain returns an invalid Node. Handles do not survive
// Clear, since freed slots are reused.
type Node struct {
	tree *Tree
	id   int32
}

// Valid reports whether n refers to a live node.
func (n Node) Valid() bool {
	return n.tree != nil && n.id >= 0 && int(n.id) < len(n.tree.nodes) && n.tree.nodes[n.id].used
}

func (n Node) at(id int32) Node {
	if id == nilNode {
		return Node{}
	}
	return Node{tree: n.tree, id: id}
}

// Name returns the node name. The root's name is empty.
func (n Node) Name() string { return n.tree.nodes[n.id].name.Text() }

// Dict returns the key/value pairs of the node.
func (n Node) Dict() *dict.Dict { return n.tree.nodes[n.id].dict }

// FirstChild returns the first child, or an invalid Node.
func (n Node) FirstChild() Node {
	if !n.Valid() {
		return Node{}
	}
	return n.at(n.tree.nodes[n.id].first)
}

// Next returns the next sibling, or an invalid Node.
func (n Node) Next() Node {
	if !n.Valid() {
		return Node{}
	}
	return n.at(n.tree.nodes[n.id].next)
}

// Children returns the children in declaration order.
func (n Node) Children() []Node {
	var children []Node
	for c := n.FirstChild(); c.Valid(); c = c.Next() {
		children = append(children, c)
	}
	return children
}

// NumChildren returns the number of children.
func (n Node) NumChildren() int {
	if !n.Valid() {
		return 0
	}
	count := 0
	for c := n.tree.nodes[n.id].first; c != nilNode; c = n.tree.nodes[c].next {
		count++
	}
	return count
}

// GetFirstChildByName returns the first child called name (case-insensitive),
// or an invalid Node.
func (n Node) GetFirstChildByName(name string) Node {
	return n.FirstChild().sameOrNextByName(name)
}

// GetNextByName returns the next sibling called name (case-insensitive), or
// an invalid Node.
func (n Node) GetNextByName(name string) Node {
	return n.Next().sameOrNextByName(name)
}

func (n Node) sameOrNextByName(name string) Node {
	for c := n; c.Valid(); c = c.Next() {
		if strings.EqualFold(c.Name(), name) {
			return c
		}
	}
	return Node{}
}
