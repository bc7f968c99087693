// Package dict implements an ordered key/value dictionary over pooled strings.
//
// Keys are unique and compared case-insensitively; insertion order is kept.
// The strings themselves live in a Pools pair shared by every Dict of one
// worker, so repeated keys and values are stored once.
//
// Example usage:
//
//	pools := dict.NewPools()
//	d := dict.New(pools)
//	d.Set("damage", "10")
//	d.Get("DAMAGE", "0") // "10"
package dict

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/declkit/hashindex"
	"github.com/robinvdvleuten/declkit/strpool"
)

// indexSize is the bucket count of each Dict's key index. Dicts are small.
const indexSize = 32

// Pools is the per-worker string storage behind a set of Dicts: keys are
// interned case-insensitively, values case-sensitively.
//
// A Pools value and every Dict built on it belong to a single goroutine.
type Pools struct {
	Keys   *strpool.Pool
	Values *strpool.Pool
}

// NewPools creates the key and value pools for one worker.
func NewPools() *Pools {
	return &Pools{
		Keys:   strpool.New(false),
		Values: strpool.New(true),
	}
}

type pair struct {
	key   strpool.Handle
	value strpool.Handle
}

// Dict is an ordered key/value store. Keys are unique and case-insensitive.
type Dict struct {
	pools *Pools
	pairs []pair
	index *hashindex.Index
}

// New creates an empty Dict backed by pools.
func New(pools *Pools) *Dict {
	return &Dict{
		pools: pools,
		index: hashindex.New(indexSize),
	}
}

// Pools returns the pools backing d.
func (d *Dict) Pools() *Pools { return d.pools }

// Len returns the number of pairs.
func (d *Dict) Len() int { return len(d.pairs) }

// Key returns the key of the i-th pair.
func (d *Dict) Key(i int) string { return d.pairs[i].key.Text() }

// Value returns the value of the i-th pair.
func (d *Dict) Value(i int) string { return d.pairs[i].value.Text() }

// Keys returns all keys in insertion order.
func (d *Dict) Keys() []string {
	keys := make([]string, len(d.pairs))
	for i, p := range d.pairs {
		keys[i] = p.key.Text()
	}
	return keys
}

// Range calls fn for every pair in order until fn returns false.
func (d *Dict) Range(fn func(key, value string) bool) {
	for _, p := range d.pairs {
		if !fn(p.key.Text(), p.value.Text()) {
			return
		}
	}
}

// Find returns the position of key, or -1.
func (d *Dict) Find(key string) int {
	if key == "" {
		return -1
	}
	for i := d.index.First(hashindex.HashFold(key)); i != -1; i = d.index.Next() {
		if strings.EqualFold(d.pairs[i].key.Text(), key) {
			return i
		}
	}
	return -1
}

// Set stores value under key, replacing the value of an existing key.
// An empty key is ignored.
func (d *Dict) Set(key, value string) {
	if key == "" {
		return
	}

	if i := d.Find(key); i != -1 {
		// Acquire before release: value may share the entry being freed.
		old := d.pairs[i].value
		d.pairs[i].value = d.pools.Values.Alloc(value)
		d.pools.Values.Free(old)
		return
	}

	d.pairs = append(d.pairs, pair{
		key:   d.pools.Keys.Alloc(key),
		value: d.pools.Values.Alloc(value),
	})
	d.index.Add(hashindex.HashFold(key), len(d.pairs)-1)
}

// setHandles stores copies of foreign or local handles under their key.
func (d *Dict) setHandles(key, value strpool.Handle) {
	if i := d.Find(key.Text()); i != -1 {
		old := d.pairs[i].value
		d.pairs[i].value = d.pools.Values.Copy(value)
		d.pools.Values.Free(old)
		return
	}

	d.pairs = append(d.pairs, pair{
		key:   d.pools.Keys.Copy(key),
		value: d.pools.Values.Copy(value),
	})
	d.index.Add(hashindex.HashFold(key.Text()), len(d.pairs)-1)
}

// Get returns the value stored under key, or def.
func (d *Dict) Get(key, def string) string {
	if i := d.Find(key); i != -1 {
		return d.pairs[i].value.Text()
	}
	return def
}

// Remove deletes key and releases its strings. It reports whether key existed.
func (d *Dict) Remove(key string) bool {
	i := d.Find(key)
	if i == -1 {
		return false
	}

	p := d.pairs[i]
	d.index.Remove(hashindex.HashFold(p.key.Text()), i)
	d.pairs = slices.Delete(d.pairs, i, i+1)
	d.pools.Keys.Free(p.key)
	d.pools.Values.Free(p.value)
	return true
}

// MatchPrefix returns the position of the first key after prevMatch that
// starts with prefix (case-insensitive), or -1. Pass -1 to start and the
// previous result to continue.
func (d *Dict) MatchPrefix(prefix string, prevMatch int) int {
	for i := prevMatch + 1; i < len(d.pairs); i++ {
		key := d.pairs[i].key.Text()
		if len(key) >= len(prefix) && strings.EqualFold(key[:len(prefix)], prefix) {
			return i
		}
	}
	return -1
}

// Clear removes all pairs and releases their strings.
func (d *Dict) Clear() {
	for _, p := range d.pairs {
		d.pools.Keys.Free(p.key)
		d.pools.Values.Free(p.value)
	}
	d.pairs = d.pairs[:0]
	d.index.Clear(-1)
}

// Copy replaces the contents of d with the pairs of other.
func (d *Dict) Copy(other *Dict) {
	if other == d {
		return
	}
	d.Clear()
	for _, p := range other.pairs {
		d.setHandles(p.key, p.value)
	}
}

// Append merges the pairs of other into d. Existing keys keep their value
// unless overWrite is set.
func (d *Dict) Append(other *Dict, overWrite bool) {
	if other == d {
		return
	}
	for _, p := range other.pairs {
		if !overWrite && d.Find(p.key.Text()) != -1 {
			continue
		}
		d.setHandles(p.key, p.value)
	}
}

// Equal reports whether d and other hold the same pairs in the same order.
// Keys compare case-insensitively, values exactly.
func (d *Dict) Equal(other *Dict) bool {
	if len(d.pairs) != len(other.pairs) {
		return false
	}
	for i, p := range d.pairs {
		q := other.pairs[i]
		if !strings.EqualFold(p.key.Text(), q.key.Text()) || p.value.Text() != q.value.Text() {
			return false
		}
	}
	return true
}

// Map returns the pairs as a map, for tests and JSON output.
func (d *Dict) Map() map[string]string {
	m := make(map[string]string, len(d.pairs))
	for _, p := range d.pairs {
		m[p.key.Text()] = p.value.Text()
	}
	return m
}
