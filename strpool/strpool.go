// Package strpool implements reference-counted string interning.
//
// Many strings repeat throughout declaration files: key names such as
// "damage" or "inherit", common values, model paths. A Pool keeps one copy
// of each distinct text and hands out Handles to it. Every Alloc or Copy must
// be balanced by a Free; the entry disappears when its count reaches zero.
//
// Pools are not safe for concurrent use. Keep one pool per worker goroutine
// and never pass handles between workers.
package strpool

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/declkit/hashindex"
)

// indexSize is the bucket count of every pool's hash index.
const indexSize = 1024

// entry is a pooled string. It is only reachable through a Handle.
type entry struct {
	text string
	refs int
	pool *Pool
}

// Handle is a counted reference to a pooled string.
// The zero Handle refers to nothing.
type Handle struct {
	e *entry
}

// Text returns the pooled text. The zero Handle returns "".
func (h Handle) Text() string {
	if h.e == nil {
		return ""
	}
	return h.e.text
}

// Refs returns the current reference count of the underlying entry.
func (h Handle) Refs() int {
	if h.e == nil {
		return 0
	}
	return h.e.refs
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool { return h.e == nil }

// Pool returns the pool that owns h.
func (h Handle) Pool() *Pool {
	if h.e == nil {
		return nil
	}
	return h.e.pool
}

// Pool interns strings under a fixed comparison mode.
type Pool struct {
	caseSensitive bool
	entries       []*entry
	index         *hashindex.Index
}

// New creates an empty pool. Case sensitivity cannot be changed afterwards.
func New(caseSensitive bool) *Pool {
	return &Pool{
		caseSensitive: caseSensitive,
		index:         hashindex.New(indexSize),
	}
}

// CaseSensitive reports the comparison mode of the pool.
func (p *Pool) CaseSensitive() bool { return p.caseSensitive }

// Len returns the number of distinct live strings.
func (p *Pool) Len() int { return len(p.entries) }

// Size returns the number of text bytes held by the pool.
func (p *Pool) Size() int {
	n := 0
	for _, e := range p.entries {
		n += len(e.text)
	}
	return n
}

func (p *Pool) hash(text string) uint32 {
	if p.caseSensitive {
		return hashindex.Hash(text)
	}
	return hashindex.HashFold(text)
}

func (p *Pool) equal(a, b string) bool {
	if p.caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// lookup returns the position of the entry equal to text, or -1.
func (p *Pool) lookup(hash uint32, text string) int {
	for i := p.index.First(hash); i != -1; i = p.index.Next() {
		if p.equal(p.entries[i].text, text) {
			return i
		}
	}
	return -1
}

// Alloc returns a handle to text, sharing the existing entry when one
// compares equal. In a case-insensitive pool the first spelling wins.
func (p *Pool) Alloc(text string) Handle {
	hash := p.hash(text)
	if i := p.lookup(hash, text); i != -1 {
		e := p.entries[i]
		e.refs++
		return Handle{e: e}
	}

	e := &entry{text: strings.Clone(text), refs: 1, pool: p}
	p.entries = append(p.entries, e)
	p.index.Add(hash, len(p.entries)-1)
	return Handle{e: e}
}

// Find returns the handle for text without acquiring a reference.
func (p *Pool) Find(text string) (Handle, bool) {
	if i := p.lookup(p.hash(text), text); i != -1 {
		return Handle{e: p.entries[i]}, true
	}
	return Handle{}, false
}

// Copy acquires another reference to h. A handle owned by a different pool
// is re-interned here and gets an independent lifetime.
func (p *Pool) Copy(h Handle) Handle {
	if h.e == nil {
		panic("strpool: copy of zero handle")
	}
	if h.e.pool != p {
		return p.Alloc(h.e.text)
	}
	if h.e.refs < 1 {
		panic(fmt.Sprintf("strpool: copy of released string %q", h.e.text))
	}
	h.e.refs++
	return h
}

// Free releases one reference to h and removes the entry when none remain.
// Freeing a zero, foreign or already released handle panics.
func (p *Pool) Free(h Handle) {
	switch {
	case h.e == nil:
		panic("strpool: free of zero handle")
	case h.e.pool != p:
		panic(fmt.Sprintf("strpool: free of %q owned by another pool", h.e.text))
	case h.e.refs < 1:
		panic(fmt.Sprintf("strpool: double free of %q", h.e.text))
	}

	h.e.refs--
	if h.e.refs > 0 {
		return
	}

	hash := p.hash(h.e.text)
	for i := p.index.First(hash); i != -1; i = p.index.Next() {
		if p.entries[i] != h.e {
			continue
		}
		p.index.Remove(hash, i)
		p.entries = slices.Delete(p.entries, i, i+1)
		return
	}
	panic(fmt.Sprintf("strpool: %q missing from index", h.e.text))
}

// Clear drops every entry regardless of outstanding references.
// Handles obtained earlier must not be used afterwards.
func (p *Pool) Clear() {
	for _, e := range p.entries {
		e.refs = 0
	}
	p.entries = nil
	p.index.Clear(-1)
}
