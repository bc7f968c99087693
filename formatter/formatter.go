// Package formatter writes declaration registries and nested declaration
// trees back out as canonical text.
//
// Values are quoted only when they would not survive as a single bare word,
// and the `=` signs of each block are aligned:
//
//	weapon pistol {
//	  ammo   = 12
//	  damage = 10
//	  model  = "models/pistol 9mm.mdl"
//	}
package formatter

import (
	"context"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/declkit/decl"
	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/lexer"
	"github.com/robinvdvleuten/declkit/telemetry"
	"github.com/robinvdvleuten/declkit/xdecl"
)

// DefaultIndentation is the number of spaces per nesting level.
const DefaultIndentation = 2

// Formatter renders declarations as text.
type Formatter struct {
	// Indentation is the number of spaces per nesting level.
	Indentation int

	// AlignValues pads keys so the `=` signs of a block line up.
	// Default: true
	AlignValues bool

	// Semicolons terminates every decl key/value line with `;`.
	Semicolons bool
}

// Option is a functional option for configuring a Formatter.
type Option func(*Formatter)

// WithIndentation sets the number of spaces per nesting level.
func WithIndentation(n int) Option {
	return func(f *Formatter) {
		f.Indentation = n
	}
}

// WithAlignValues enables or disables `=` alignment.
func WithAlignValues(align bool) Option {
	return func(f *Formatter) {
		f.AlignValues = align
	}
}

// WithSemicolons terminates decl key/value lines with `;`. Nested
// declarations always use them, since their grammar requires it.
func WithSemicolons(semicolons bool) Option {
	return func(f *Formatter) {
		f.Semicolons = semicolons
	}
}

// New creates a new Formatter with the given options.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		Indentation: DefaultIndentation,
		AlignValues: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.Indentation < 0 {
		f.Indentation = 0
	}
	return f
}

// FormatDecls writes every declaration of p in encounter order, separated by
// blank lines. Dicts are written as they are, so a registry formatted after
// SolveInheritance contains the inherited keys.
func (f *Formatter) FormatDecls(ctx context.Context, p *decl.Parser, w io.Writer) error {
	timer := telemetry.FromContext(ctx).Start("formatter.FormatDecls")
	defer timer.End()

	var buf strings.Builder
	count := 0
	p.Range(func(t *decl.Type, name string, d *dict.Dict) bool {
		if count > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(token(t.Name()))
		buf.WriteByte(' ')
		buf.WriteString(token(name))
		buf.WriteString(" {\n")
		terminator := ""
		if f.Semicolons {
			terminator = ";"
		}
		f.writePairs(&buf, d, 1, terminator)
		buf.WriteString("}\n")
		count++
		return true
	})

	timer.Count(count, "decls")
	_, err := io.WriteString(w, buf.String())
	return err
}

// FormatTree writes the key/values of the root followed by every top-level
// node. Nodes with children become blocks; leaves become attribute lists.
func (f *Formatter) FormatTree(ctx context.Context, tree *xdecl.Tree, w io.Writer) error {
	timer := telemetry.FromContext(ctx).Start("formatter.FormatTree")
	defer timer.End()

	var buf strings.Builder
	root := tree.Root()
	f.writePairs(&buf, root.Dict(), 0, ";")
	if root.Dict().Len() > 0 && root.NumChildren() > 0 {
		buf.WriteByte('\n')
	}
	for c := root.FirstChild(); c.Valid(); c = c.Next() {
		f.writeNode(&buf, c, 0)
	}

	timer.Count(tree.Len(), "nodes")
	_, err := io.WriteString(w, buf.String())
	return err
}

func (f *Formatter) writeNode(buf *strings.Builder, n xdecl.Node, depth int) {
	f.indent(buf, depth)
	buf.WriteString(token(n.Name()))

	if n.NumChildren() == 0 {
		buf.WriteByte('(')
		for i := 0; i < n.Dict().Len(); i++ {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(token(n.Dict().Key(i)))
			buf.WriteString(" = ")
			buf.WriteString(token(n.Dict().Value(i)))
		}
		buf.WriteString(");\n")
		return
	}

	buf.WriteString(" {\n")
	f.writePairs(buf, n.Dict(), depth+1, ";")
	for c := n.FirstChild(); c.Valid(); c = c.Next() {
		f.writeNode(buf, c, depth+1)
	}
	f.indent(buf, depth)
	buf.WriteString("}\n")
}

// writePairs writes one `key = value` line per pair at depth.
func (f *Formatter) writePairs(buf *strings.Builder, d *dict.Dict, depth int, terminator string) {
	keys := make([]string, d.Len())
	width := 0
	for i := range keys {
		keys[i] = token(d.Key(i))
		width = max(width, runewidth.StringWidth(keys[i]))
	}

	for i, key := range keys {
		f.indent(buf, depth)
		buf.WriteString(key)
		if f.AlignValues {
			buf.WriteString(strings.Repeat(" ", width-runewidth.StringWidth(key)))
		}
		buf.WriteString(" = ")
		buf.WriteString(token(d.Value(i)))
		buf.WriteString(terminator)
		buf.WriteByte('\n')
	}
}

func (f *Formatter) indent(buf *strings.Builder, depth int) {
	buf.WriteString(strings.Repeat(" ", depth*f.Indentation))
}

// token renders s as a bare word when possible and a quoted string otherwise.
func token(s string) string {
	if lexer.NeedsQuote(s) {
		return lexer.Quote(s)
	}
	return s
}
