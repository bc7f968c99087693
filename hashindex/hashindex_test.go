package hashindex

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"golang.org/x/exp/slices"
)

func collect(ix *Index, hash uint32) []int {
	var got []int
	for i := ix.First(hash); i != -1; i = ix.Next() {
		got = append(got, i)
	}
	slices.Sort(got)
	return got
}

func TestAddIsIdempotent(t *testing.T) {
	ix := New(16)
	ix.Add(42, 0)
	ix.Add(42, 0)
	ix.Add(42, 1)

	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, []int{0, 1}, collect(ix, 42))
}

func TestFirstOnEmptyIndex(t *testing.T) {
	ix := New(0)
	assert.Equal(t, DefaultSize, ix.Size())
	assert.Equal(t, -1, ix.First(7))
	assert.Equal(t, -1, ix.Next())
	assert.False(t, ix.Lookup(7, 0))
}

func TestCollidingHashesAreFiltered(t *testing.T) {
	ix := New(4)
	// 1 and 5 share bucket 1 with a mask of 3.
	ix.Add(1, 0)
	ix.Add(5, 1)
	ix.Add(1, 2)

	assert.Equal(t, []int{0, 2}, collect(ix, 1))
	assert.Equal(t, []int{1}, collect(ix, 5))
}

func TestRemoveShiftsGreaterIndices(t *testing.T) {
	ix := New(8)
	ix.Add(10, 0)
	ix.Add(20, 1)
	ix.Add(30, 2)
	ix.Add(20, 3)

	ix.Remove(20, 1)

	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, []int{0}, collect(ix, 10))
	assert.Equal(t, []int{1}, collect(ix, 30))
	assert.Equal(t, []int{2}, collect(ix, 20))
}

func TestRemoveUnknownPanics(t *testing.T) {
	ix := New(8)
	ix.Add(1, 0)
	assert.Panics(t, func() { ix.Remove(1, 5) })
	assert.Panics(t, func() { New(8).Remove(1, 0) })
}

func TestSlotsAreRecycled(t *testing.T) {
	ix := New(8)
	ix.Add(1, 0)
	ix.Add(2, 1)
	ix.Remove(1, 0)
	ix.Add(3, 1)

	assert.Equal(t, 2, len(ix.nodes))
	assert.Equal(t, []int{0}, collect(ix, 2))
	assert.Equal(t, []int{1}, collect(ix, 3))
}

func TestClear(t *testing.T) {
	ix := New(8)
	ix.Add(1, 0)
	ix.Clear(-1)
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 8, ix.Size())
	assert.Equal(t, -1, ix.First(1))

	ix.Clear(64)
	assert.Equal(t, 64, ix.Size())
	assert.Panics(t, func() { ix.Clear(100) })
	assert.Panics(t, func() { New(12) })
}

func TestBucketCountIsFixed(t *testing.T) {
	ix := New(4)
	for i := 0; i < 100; i++ {
		ix.Add(uint32(i), i)
	}
	assert.Equal(t, 4, ix.Size())
	assert.Equal(t, 100, ix.Len())
	for i := 0; i < 100; i++ {
		assert.Equal(t, i, ix.First(uint32(i)))
	}
}

// TestLockStepWithCompactingSlice drives random adds and removes against a
// slice compacted with shift-left and checks that every key enumerates exactly
// the positions it occupies.
func TestLockStepWithCompactingSlice(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ix := New(16)
	var items []string

	keys := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}

	for step := 0; step < 2000; step++ {
		if len(items) == 0 || rng.Intn(3) > 0 {
			key := keys[rng.Intn(len(keys))]
			items = append(items, key)
			ix.Add(Hash(key), len(items)-1)
		} else {
			pos := rng.Intn(len(items))
			ix.Remove(Hash(items[pos]), pos)
			items = slices.Delete(items, pos, pos+1)
		}

		if step%50 != 0 {
			continue
		}
		for _, key := range keys {
			var want []int
			for i, item := range items {
				if item == key {
					want = append(want, i)
				}
			}
			assert.Equal(t, want, collect(ix, Hash(key)), "key %q at step %d", key, step)
		}
		assert.Equal(t, len(items), ix.Len())
	}
}

func TestHashFold(t *testing.T) {
	tests := []struct{ a, b string }{
		{"Damage", "damage"},
		{"INHERIT", "inherit"},
		{"Straße", "STRAßE"},
		{"ΣΊΣΥΦΟΣ", "σίσυφοσ"},
	}
	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			assert.True(t, strings.EqualFold(tt.a, tt.b))
			assert.Equal(t, HashFold(tt.a), HashFold(tt.b))
		})
	}

	assert.NotEqual(t, Hash("Damage"), Hash("damage"))
	assert.Equal(t, Hash("damage"), Hash("damage"))
}

func BenchmarkAddFirst(b *testing.B) {
	ix := New(1024)
	for i := 0; i < b.N; i++ {
		h := uint32(i)
		ix.Add(h, i)
		_ = ix.First(h)
	}
}
