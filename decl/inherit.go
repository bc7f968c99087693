package decl

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/declkit/report"
)

// inheritPrefix marks keys naming a parent declaration. Any key starting with
// it counts, so a decl can inherit several parents: inherit, inherit2, ...
const inheritPrefix = "inherit"

// SolveInheritance merges every declaration with the declarations it
// inherits from. A declaration's own keys always win, and earlier parents
// win over later ones. Self references, cycles and unknown parents are
// reported once per edge; the edge is skipped and resolution continues.
func (t *Type) SolveInheritance(r report.Reporter) {
	if r == nil {
		r = report.Discard
	}
	t.solved = make([]bool, len(t.decls))
	t.past = t.past[:0]

	for i := range t.decls {
		if !t.solved[i] {
			t.solve(i, r)
		}
	}

	t.solved = nil
}

func (t *Type) solve(i int, r report.Reporter) {
	t.past = append(t.past, i)
	defer func() {
		t.past = t.past[:len(t.past)-1]
		t.solved[i] = true
	}()

	d := t.decls[i].dict
	for _, parentName := range t.parents(i) {
		parent := t.Find(parentName)
		if parent == -1 {
			msg := fmt.Sprintf("declaration %q inherits unknown declaration %q", t.decls[i].name, parentName)
			r.Report(report.Inheritance, msg, t.name)
			continue
		}
		if t.onPath(parent) {
			r.Report(report.Inheritance, t.cycleMessage(parent), t.name)
			continue
		}
		if !t.solved[parent] {
			t.solve(parent, r)
		}
		d.Append(t.decls[parent].dict, false)
	}
}

// parents lists the inherit targets of decl i in key order. They are
// collected before any Append, so keys copied from a parent are not followed.
func (t *Type) parents(i int) []string {
	d := t.decls[i].dict

	var names []string
	for m := d.MatchPrefix(inheritPrefix, -1); m != -1; m = d.MatchPrefix(inheritPrefix, m) {
		if name := strings.TrimSpace(d.Value(m)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (t *Type) onPath(i int) bool {
	for _, p := range t.past {
		if p == i {
			return true
		}
	}
	return false
}

// cycleMessage describes the path from the repeated declaration back to
// itself, e.g. "inheritance cycle a -> b -> a".
func (t *Type) cycleMessage(repeated int) string {
	last := t.past[len(t.past)-1]
	if last == repeated {
		return fmt.Sprintf("declaration %q inherits itself", t.decls[repeated].name)
	}

	var b strings.Builder
	b.WriteString("inheritance cycle ")
	started := false
	for _, p := range t.past {
		if p == repeated {
			started = true
		}
		if started {
			b.WriteString(t.decls[p].name)
			b.WriteString(" -> ")
		}
	}
	b.WriteString(t.decls[repeated].name)
	return b.String()
}
