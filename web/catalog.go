package web

import (
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/declkit/decl"
	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/loader"
	"github.com/robinvdvleuten/declkit/report"
)

// Pair is one key/value of a declaration.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Decl is a resolved declaration.
type Decl struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Values []Pair `json:"values"`
}

// TypeInfo summarizes a declaration type.
type TypeInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Diagnostic is a reported problem of a load.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// catalog is an immutable copy of a loaded registry. Handlers read it
// concurrently, which the parser's own lookups do not allow.
type catalog struct {
	file        string
	source      loader.Format
	loadedAt    time.Time
	types       []TypeInfo
	decls       map[string][]*Decl
	byName      map[string]*Decl
	diagnostics []Diagnostic
}

func newCatalog(p *decl.Parser, entries []report.Entry) *catalog {
	c := &catalog{
		decls:       make(map[string][]*Decl),
		byName:      make(map[string]*Decl),
		diagnostics: make([]Diagnostic, 0, len(entries)),
	}

	p.Range(func(t *decl.Type, name string, d *dict.Dict) bool {
		values := make([]Pair, 0, d.Len())
		for i := 0; i < d.Len(); i++ {
			values = append(values, Pair{Key: d.Key(i), Value: d.Value(i)})
		}
		entry := &Decl{Type: t.Name(), Name: name, Values: values}

		typeKey := strings.ToLower(t.Name())
		c.decls[typeKey] = append(c.decls[typeKey], entry)
		c.byName[declKey(t.Name(), name)] = entry
		return true
	})

	for _, t := range p.Types() {
		c.types = append(c.types, TypeInfo{Name: t.Name(), Count: t.Len()})
	}
	slices.SortFunc(c.types, func(a, b TypeInfo) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	c.diagnostics = append(c.diagnostics, toDiagnostics(entries)...)

	return c
}

func toDiagnostics(entries []report.Entry) []Diagnostic {
	diagnostics := make([]Diagnostic, 0, len(entries))
	for _, e := range entries {
		diagnostics = append(diagnostics, Diagnostic{
			Kind:    e.Kind.String(),
			Message: e.Message,
			Context: e.Context,
		})
	}
	return diagnostics
}

func declKey(typeName, name string) string {
	return strings.ToLower(typeName) + "\x00" + strings.ToLower(name)
}

func (c *catalog) lookupType(name string) (TypeInfo, []*Decl, bool) {
	key := strings.ToLower(name)
	for _, t := range c.types {
		if strings.ToLower(t.Name) == key {
			return t, c.decls[key], true
		}
	}
	return TypeInfo{}, nil, false
}

func (c *catalog) lookup(typeName, name string) (*Decl, bool) {
	d, ok := c.byName[declKey(typeName, name)]
	return d, ok
}
