// Package xdecl parses nested declaration files into a tree of named nodes,
// each carrying a Dict, and caches the tree in a binary form.
//
// Three forms may appear inside a node:
//
//	window {                      // block: a child node with its own children
//		title = "Main";           // key/value of the enclosing node
//		button(label="Ok", x=10); // attribute list: a leaf child node
//	}
//
// Top-level declarations become children of the tree's virtual root.
//
// Example usage:
//
//	p := xdecl.NewParser(dict.NewPools())
//	if err := p.LoadFile(ctx, "ui.xdecl"); err != nil {
//		return err
//	}
//	ui := p.Tree().Root().GetFirstChildByName("ui")
//	label := ui.GetFirstChildByName("button").Dict().Get("label", "")
package xdecl

import (
	"context"
	"errors"

	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/lexer"
	"github.com/robinvdvleuten/declkit/loader"
	"github.com/robinvdvleuten/declkit/report"
	"github.com/robinvdvleuten/declkit/telemetry"
)

// Parser loads nested declarations into a Tree.
//
// A Parser and its pools belong to one goroutine.
type Parser struct {
	tree     *Tree
	reporter report.Reporter
	loader   *loader.Loader
	compress bool
}

// Option configures a Parser.
type Option func(*config)

type config struct {
	reporter   report.Reporter
	compress   bool
	loaderOpts []loader.Option
}

// WithReporter sets the receiver of diagnostics. The default discards them.
func WithReporter(r report.Reporter) Option {
	return func(c *config) {
		c.reporter = r
	}
}

// WithFS sets the file system used for loading and caching.
func WithFS(fsys loader.FS) Option {
	return func(c *config) {
		c.loaderOpts = append(c.loaderOpts, loader.WithFS(fsys))
	}
}

// WithBinarySuffix sets the suffix naming binary caches.
func WithBinarySuffix(suffix string) Option {
	return func(c *config) {
		c.loaderOpts = append(c.loaderOpts, loader.WithBinarySuffix(suffix))
	}
}

// WithCompression makes MakeBinary write zstd-compressed caches.
func WithCompression() Option {
	return func(c *config) {
		c.compress = true
	}
}

// NewParser creates a Parser with an empty tree backed by pools.
func NewParser(pools *dict.Pools, opts ...Option) *Parser {
	cfg := &config{reporter: report.Discard}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Parser{
		tree:     NewTree(pools),
		reporter: cfg.reporter,
		loader:   loader.New(cfg.loaderOpts...),
		compress: cfg.compress,
	}
}

// Tree returns the loaded tree.
func (p *Parser) Tree() *Tree { return p.tree }

// Loader returns the loader used to select and read files.
func (p *Parser) Loader() *loader.Loader { return p.loader }

// Parse parses src and appends its top-level nodes to the root. On error the
// tree is left as it was.
func (p *Parser) Parse(ctx context.Context, filename string, src []byte) error {
	timer := telemetry.FromContext(ctx).Start("xdecl.Parse " + filename)
	defer timer.End()

	s, err := lexer.NewStream(src, filename, p.reporter)
	if err != nil {
		return p.fail(err)
	}

	before := p.tree.Len()
	scratch := p.tree.alloc("")
	if err := p.parseNodes(s, scratch); err != nil {
		p.tree.discard(scratch)
		return p.fail(err)
	}
	// Top-level key/values belong to the root, which is never cached.
	p.tree.nodes[p.tree.root].dict.Append(p.tree.nodes[scratch].dict, true)
	p.tree.adopt(p.tree.root, scratch)

	timer.Count(p.tree.Len()-before, "nodes")
	return nil
}

// parseNodes reads nodes into scratch, keeping the enclosing blocks on an
// explicit stack.
func (p *Parser) parseNodes(s *lexer.Stream, scratch int32) error {
	t := p.tree
	stack := []int32{scratch}
	var open []lexer.Token

	for {
		tok, ok := s.ReadToken()
		if !ok {
			if len(open) > 0 {
				return s.Errorf(tok, "block %q opened at %s is not closed", s.Text(open[len(open)-1]), s.Pos(open[len(open)-1]))
			}
			return nil
		}

		top := stack[len(stack)-1]
		switch tok.Type {
		case lexer.RBRACE:
			if len(open) == 0 {
				return s.Errorf(tok, "unexpected %q", "}")
			}
			stack = stack[:len(stack)-1]
			open = open[:len(open)-1]
			s.CheckToken(";")
			continue
		case lexer.WORD, lexer.STRING:
		default:
			return s.Errorf(tok, "unexpected %q", s.Text(tok))
		}

		name := s.Text(tok)
		if name == "" {
			return s.Errorf(tok, "empty name")
		}

		if next := s.Peek().Type; (next == lexer.LBRACE || next == lexer.LPAREN) && len(open) >= maxDepth {
			return s.Errorf(tok, "nesting deeper than %d", maxDepth)
		}

		switch {
		case s.CheckToken("{"):
			child := t.alloc(name)
			t.appendChild(top, child)
			stack = append(stack, child)
			open = append(open, tok)

		case s.CheckToken("("):
			child := t.alloc(name)
			t.appendChild(top, child)
			if err := parseAttributes(s, t.nodes[child].dict); err != nil {
				return err
			}

		case s.CheckToken("="):
			value, err := s.ReadString()
			if err != nil {
				return err
			}
			if err := s.ExpectToken(";"); err != nil {
				return err
			}
			t.nodes[top].dict.Set(name, value)

		default:
			next := s.Peek()
			if next.Type == lexer.EOF {
				return s.Errorf(next, "expected %q, %q or %q after %q", "{", "(", "=", name)
			}
			return s.Errorf(next, "expected %q, %q or %q after %q, found %q", "{", "(", "=", name, s.Text(next))
		}
	}
}

// parseAttributes reads `k = v, ... ) ;` after an opening parenthesis.
func parseAttributes(s *lexer.Stream, d *dict.Dict) error {
	if !s.CheckToken(")") {
		for {
			keyTok := s.Peek()
			key, err := s.ReadString()
			if err != nil {
				return err
			}
			if key == "" {
				return s.Errorf(keyTok, "empty attribute name")
			}
			if err := s.ExpectToken("="); err != nil {
				return err
			}
			value, err := s.ReadString()
			if err != nil {
				return err
			}
			d.Set(key, value)

			if s.CheckToken(",") {
				continue
			}
			if err := s.ExpectToken(")"); err != nil {
				return err
			}
			break
		}
	}
	return s.ExpectToken(";")
}

// ParseFile reads and parses the text file at path.
func (p *Parser) ParseFile(ctx context.Context, path string) error {
	src, err := p.loader.ReadFile(path)
	if err != nil {
		return p.fail(report.Wrap(report.Open, path, err, "cannot open %s", path))
	}
	return p.Parse(ctx, path, src)
}

// LoadFile loads path or its binary cache, whichever is newer. A cache with
// a bad header is reported and the text file is parsed instead.
func (p *Parser) LoadFile(ctx context.Context, path string) error {
	timer := telemetry.FromContext(ctx).Start("xdecl.LoadFile " + path)
	defer timer.End()

	src, err := p.loader.Select(path)
	if err != nil {
		return p.fail(report.Wrap(report.Open, path, err, "cannot load declarations"))
	}
	if src.Format == loader.Text {
		return p.ParseFile(ctx, path)
	}

	err = p.loadBinary(ctx, src.Path)
	if err == nil {
		return nil
	}
	var rerr *report.Error
	if errors.As(err, &rerr) && rerr.Kind == report.BadMagic && p.loader.FS().Exists(path) {
		report.Emit(p.reporter, rerr)
		return p.ParseFile(ctx, path)
	}
	return p.fail(err)
}

// fail reports err once and returns it as a *report.Error.
func (p *Parser) fail(err error) error {
	var rerr *report.Error
	if !errors.As(err, &rerr) {
		rerr = report.Wrap(report.Read, "", err, "load failed")
	}
	return report.Emit(p.reporter, rerr)
}
