package decl

import (
	"strings"

	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/hashindex"
)

// typeIndexSize is the bucket count of a Type's name index.
const typeIndexSize = 256

// Type is a named registry of declarations: decl name to Dict, in the order
// the names were first encountered. Names compare case-insensitively.
type Type struct {
	name  string
	decls []entry
	index *hashindex.Index

	// Resolution state, valid only during SolveInheritance.
	solved []bool
	past   []int
}

type entry struct {
	name string
	dict *dict.Dict
}

func newType(name string) *Type {
	return &Type{
		name:  name,
		index: hashindex.New(typeIndexSize),
	}
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Len returns the number of declarations.
func (t *Type) Len() int { return len(t.decls) }

// Names returns the declaration names in encounter order.
func (t *Type) Names() []string {
	names := make([]string, len(t.decls))
	for i, e := range t.decls {
		names[i] = e.name
	}
	return names
}

// Find returns the position of the declaration called name, or -1.
func (t *Type) Find(name string) int {
	for i := t.index.First(hashindex.HashFold(name)); i != -1; i = t.index.Next() {
		if strings.EqualFold(t.decls[i].name, name) {
			return i
		}
	}
	return -1
}

// Get returns the Dict of the declaration called name, or nil.
func (t *Type) Get(name string) *dict.Dict {
	if i := t.Find(name); i != -1 {
		return t.decls[i].dict
	}
	return nil
}

// At returns the name and Dict of the i-th declaration.
func (t *Type) At(i int) (string, *dict.Dict) {
	e := t.decls[i]
	return e.name, e.dict
}

// set publishes d under name. A redeclaration replaces the previous Dict in
// place and keeps its position. It returns the position and whether the
// name is new.
func (t *Type) set(name string, d *dict.Dict) (int, bool) {
	if i := t.Find(name); i != -1 {
		t.decls[i].dict.Clear()
		t.decls[i].dict = d
		return i, false
	}
	t.decls = append(t.decls, entry{name: name, dict: d})
	t.index.Add(hashindex.HashFold(name), len(t.decls)-1)
	return len(t.decls) - 1, true
}

// clear releases every declaration.
func (t *Type) clear() {
	for _, e := range t.decls {
		e.dict.Clear()
	}
	t.decls = t.decls[:0]
	t.index.Clear(-1)
	t.solved = nil
	t.past = t.past[:0]
}
