package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/robinvdvleuten/declkit/decl"
	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/report"
	"github.com/robinvdvleuten/declkit/xdecl"
)

// DeclFlags selects how an input file is interpreted.
type DeclFlags struct {
	Types   []string `help:"Declaration types to load (all types if omitted)." name:"type" short:"t" placeholder:"TYPE"`
	XDecl   bool     `help:"Parse nested declarations instead of flat ones." name:"xdecl" short:"x"`
	NoCache bool     `help:"Ignore the binary cache and parse the text file." name:"no-cache"`
}

// loadOptions tunes a load beyond the command-line flags.
type loadOptions struct {
	compress bool
	solve    bool
	text     bool
}

// loaded is a parsed input together with everything reported while loading it.
type loaded struct {
	decls       *decl.Parser
	xdecls      *xdecl.Parser
	diagnostics *report.Collector
}

// fileParser is the loading surface shared by both parsers.
type fileParser interface {
	Parse(ctx context.Context, filename string, src []byte) error
	ParseFile(ctx context.Context, path string) error
	LoadFile(ctx context.Context, path string) error
}

// load parses file according to the flags. The returned loaded is never nil,
// so diagnostics can be printed on failure.
func (f *DeclFlags) load(ctx context.Context, file *FileOrStdin, opts loadOptions) (*loaded, error) {
	res := &loaded{diagnostics: report.NewCollector()}
	pools := dict.NewPools()

	if f.XDecl {
		xopts := []xdecl.Option{xdecl.WithReporter(res.diagnostics)}
		if opts.compress {
			xopts = append(xopts, xdecl.WithCompression())
		}
		res.xdecls = xdecl.NewParser(pools, xopts...)
		return res, f.loadInto(ctx, file, res.xdecls, opts)
	}

	dopts := []decl.Option{decl.WithReporter(res.diagnostics)}
	if len(f.Types) == 0 {
		dopts = append(dopts, decl.WithAnyType())
	}
	if opts.compress {
		dopts = append(dopts, decl.WithCompression())
	}
	res.decls = decl.NewParser(pools, dopts...)
	for _, name := range f.Types {
		res.decls.RegisterType(name)
	}

	if err := f.loadInto(ctx, file, res.decls, opts); err != nil {
		return res, err
	}
	if opts.solve {
		res.decls.SolveInheritance(ctx)
	}
	return res, nil
}

func (f *DeclFlags) loadInto(ctx context.Context, file *FileOrStdin, p fileParser, opts loadOptions) error {
	switch {
	case file.IsStdin():
		return p.Parse(ctx, file.Filename, file.Contents)
	case f.NoCache || opts.text:
		return p.ParseFile(ctx, file.Filename)
	default:
		return p.LoadFile(ctx, file.Filename)
	}
}

// count describes how much was loaded, e.g. "12 declarations".
func (l *loaded) count() string {
	if l.xdecls != nil {
		return plural(l.xdecls.Tree().Len(), "node")
	}
	return plural(l.decls.Len(), "declaration")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// printDiagnostics writes every non-fatal diagnostic, then err rendered with
// its source context. The parsers report err itself last, so it is not
// repeated.
func (l *loaded) printDiagnostics(w io.Writer, file *FileOrStdin, err error) {
	entries := l.diagnostics.Entries
	if err != nil && len(entries) > 0 {
		entries = entries[:len(entries)-1]
	}

	source, _ := file.GetSourceContent()
	renderer := NewErrorRenderer(source)
	for _, e := range entries {
		printWarning(w, renderer.RenderEntry(e))
	}

	if err != nil {
		_, _ = fmt.Fprintln(w, renderer.Render(err))
		_, _ = fmt.Fprintln(w)
		printError(w, "load failed")
	}
}
