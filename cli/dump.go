package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	"github.com/robinvdvleuten/declkit/decl"
	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/output"
	"github.com/robinvdvleuten/declkit/xdecl"
)

type DumpCmd struct {
	DeclFlags `embed:""`

	File FileOrStdin `help:"Declaration filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Repr bool        `help:"Print Go syntax instead of styled text."`
}

// dumpDecl and dumpNode are the shapes printed by --repr.
type dumpDecl struct {
	Type   string
	Name   string
	Values map[string]string
}

type dumpNode struct {
	Name     string
	Values   map[string]string
	Children []dumpNode
}

func (cmd *DumpCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx, reportTelemetry := globals.startTelemetry(context.Background(), ctx.Stderr)
	defer reportTelemetry()

	res, err := cmd.load(runCtx, &cmd.File, loadOptions{solve: true})
	res.printDiagnostics(ctx.Stderr, &cmd.File, err)
	if err != nil {
		return NewCommandError(1)
	}

	switch {
	case res.xdecls != nil && cmd.Repr:
		repr.New(ctx.Stdout).Println(dumpTree(res.xdecls.Tree().Root()).Children)
	case res.xdecls != nil:
		printTree(ctx.Stdout, output.NewStyles(ctx.Stdout), res.xdecls.Tree().Root(), 0)
	case cmd.Repr:
		repr.New(ctx.Stdout).Println(dumpDecls(res.decls))
	default:
		printDecls(ctx.Stdout, output.NewStyles(ctx.Stdout), res.decls)
	}

	return nil
}

func dumpDecls(p *decl.Parser) []dumpDecl {
	decls := make([]dumpDecl, 0, p.Len())
	p.Range(func(t *decl.Type, name string, d *dict.Dict) bool {
		decls = append(decls, dumpDecl{Type: t.Name(), Name: name, Values: d.Map()})
		return true
	})
	return decls
}

func dumpTree(n xdecl.Node) dumpNode {
	node := dumpNode{Name: n.Name(), Values: n.Dict().Map()}
	for c := n.FirstChild(); c.Valid(); c = c.Next() {
		node.Children = append(node.Children, dumpTree(c))
	}
	return node
}

func printDecls(w io.Writer, styles *output.Styles, p *decl.Parser) {
	first := true
	p.Range(func(t *decl.Type, name string, d *dict.Dict) bool {
		if !first {
			_, _ = fmt.Fprintln(w)
		}
		first = false

		_, _ = fmt.Fprintf(w, "%s %s\n", styles.TypeName(t.Name()), styles.DeclName(name))
		printPairs(w, styles, d, "  ")
		return true
	})
}

func printTree(w io.Writer, styles *output.Styles, n xdecl.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	printPairs(w, styles, n.Dict(), indent)
	for c := n.FirstChild(); c.Valid(); c = c.Next() {
		_, _ = fmt.Fprintf(w, "%s%s\n", indent, styles.DeclName(c.Name()))
		printTree(w, styles, c, depth+1)
	}
}

func printPairs(w io.Writer, styles *output.Styles, d *dict.Dict, indent string) {
	d.Range(func(key, value string) bool {
		_, _ = fmt.Fprintf(w, "%s%s %s %s\n", indent, styles.Key(key), styles.Dim("="), value)
		return true
	})
}
