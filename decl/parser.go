// Package decl parses flat declaration files into per-type registries of
// Dicts and caches them in a binary form.
//
// A declaration file is a sequence of blocks:
//
//	weapon pistol {
//		damage = 10;
//		ammo   = 12;
//	}
//
//	weapon magnum {
//		inherit = pistol
//		damage  = 40
//	}
//
// The first word names a type registered with RegisterType; blocks of unknown
// types are parsed, reported as a warning and dropped. Inheritance is
// resolved only by an explicit SolveInheritance after all files are loaded.
//
// Example usage:
//
//	p := decl.NewParser(dict.NewPools(), decl.WithReporter(collector))
//	p.RegisterType("weapon")
//	if err := p.LoadFile(ctx, "weapons.decl"); err != nil {
//		return err
//	}
//	p.SolveInheritance(ctx)
//	damage := p.Type("weapon").Get("magnum").GetInt("damage", 0)
package decl

import (
	"context"
	"errors"
	"strings"

	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/hashindex"
	"github.com/robinvdvleuten/declkit/lexer"
	"github.com/robinvdvleuten/declkit/loader"
	"github.com/robinvdvleuten/declkit/report"
	"github.com/robinvdvleuten/declkit/telemetry"
)

// Parser owns the registered types and everything loaded into them.
//
// A Parser and its pools belong to one goroutine.
type Parser struct {
	pools    *dict.Pools
	reporter report.Reporter
	loader   *loader.Loader
	compress bool
	anyType  bool

	types     []*Type
	typeIndex *hashindex.Index
	order     []declRef
}

// declRef locates a declaration for encounter-order iteration.
type declRef struct {
	typ *Type
	pos int
}

// Option configures a Parser.
type Option func(*config)

type config struct {
	reporter   report.Reporter
	compress   bool
	anyType    bool
	loaderOpts []loader.Option
}

// WithReporter sets the receiver of diagnostics. The default discards them.
func WithReporter(r report.Reporter) Option {
	return func(c *config) {
		c.reporter = r
	}
}

// WithFS sets the file system used by ParseFile, LoadFile, LoadBinary and
// MakeBinary.
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

// WithAnyType registers declaration types on first use instead of skipping
// blocks of unregistered types.
func WithAnyType() Option {
	return func(c *config) {
		c.anyType = true
	}
}

// NewParser creates a Parser storing its strings in pools.
func NewParser(pools *dict.Pools, opts ...Option) *Parser {
	cfg := &config{reporter: report.Discard}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Parser{
		pools:     pools,
		reporter:  cfg.reporter,
		loader:    loader.New(cfg.loaderOpts...),
		compress:  cfg.compress,
		anyType:   cfg.anyType,
		typeIndex: hashindex.New(hashindex.DefaultSize),
	}
}

// Pools returns the pools backing every Dict of the parser.
func (p *Parser) Pools() *dict.Pools { return p.pools }

// Loader returns the loader used to select and read files.
func (p *Parser) Loader() *loader.Loader { return p.loader }

// RegisterType makes declarations of the named type loadable. Registering an
// existing name returns the existing Type.
func (p *Parser) RegisterType(name string) *Type {
	if t := p.Type(name); t != nil {
		return t
	}
	t := newType(name)
	p.types = append(p.types, t)
	p.typeIndex.Add(hashindex.HashFold(name), len(p.types)-1)
	return t
}

// Type returns the registered type called name, or nil.
func (p *Parser) Type(name string) *Type {
	for i := p.typeIndex.First(hashindex.HashFold(name)); i != -1; i = p.typeIndex.Next() {
		if strings.EqualFold(p.types[i].name, name) {
			return p.types[i]
		}
	}
	return nil
}

// Types returns the registered types in registration order.
func (p *Parser) Types() []*Type {
	types := make([]*Type, len(p.types))
	copy(types, p.types)
	return types
}

// Len returns the number of declarations across all types.
func (p *Parser) Len() int { return len(p.order) }

// Range calls fn for every declaration in encounter order until fn returns
// false.
func (p *Parser) Range(fn func(t *Type, name string, d *dict.Dict) bool) {
	for _, ref := range p.order {
		name, d := ref.typ.At(ref.pos)
		if !fn(ref.typ, name, d) {
			return
		}
	}
}

// SolveInheritance resolves inheritance within every registered type.
func (p *Parser) SolveInheritance(ctx context.Context) {
	timer := telemetry.FromContext(ctx).Start("decl.SolveInheritance")
	defer timer.End()

	for _, t := range p.types {
		t.SolveInheritance(p.reporter)
	}
	timer.Count(len(p.types), "types")
}

// Clear releases every loaded declaration. Registered types remain.
func (p *Parser) Clear() {
	for _, t := range p.types {
		t.clear()
	}
	p.order = p.order[:0]
}

// typeFor returns the Type declarations named typeName go to, or nil when
// they are dropped.
func (p *Parser) typeFor(typeName string) *Type {
	if p.anyType && typeName != "" {
		return p.RegisterType(typeName)
	}
	return p.Type(typeName)
}

// pending is a parsed declaration waiting to be published.
type pending struct {
	typ  *Type
	name string
	dict *dict.Dict
}

// publish moves parsed declarations into their types.
func (p *Parser) publish(decls []pending) {
	for _, d := range decls {
		if pos, added := d.typ.set(d.name, d.dict); added {
			p.order = append(p.order, declRef{typ: d.typ, pos: pos})
		}
	}
}

func discard(decls []pending) {
	for _, d := range decls {
		d.dict.Clear()
	}
}

// Parse parses declarations from src. Nothing is published unless the whole
// input parses.
func (p *Parser) Parse(ctx context.Context, filename string, src []byte) error {
	timer := telemetry.FromContext(ctx).Start("decl.Parse " + filename)
	defer timer.End()

	s, err := lexer.NewStream(src, filename, p.reporter)
	if err != nil {
		return p.fail(err)
	}

	var decls []pending
	for s.Peek().Type != lexer.EOF {
		d, err := p.parseDecl(s)
		if err != nil {
			discard(decls)
			return p.fail(err)
		}
		if d.typ != nil {
			decls = append(decls, d)
		}
	}

	p.publish(decls)
	timer.Count(len(decls), "decls")
	return nil
}

// parseDecl parses one `<type> <name> { ... }` block. Blocks of unknown
// types are returned with a nil typ after their Dict is released.
func (p *Parser) parseDecl(s *lexer.Stream) (pending, error) {
	typeTok := s.Peek()
	typeName, err := s.ReadString()
	if err != nil {
		return pending{}, err
	}

	nameTok := s.Peek()
	name, err := s.ReadString()
	if err != nil {
		return pending{}, err
	}
	if name == "" {
		return pending{}, s.Errorf(nameTok, "empty declaration name")
	}

	if err := s.ExpectToken("{"); err != nil {
		return pending{}, err
	}

	d := dict.New(p.pools)
	if err := parseBody(s, d); err != nil {
		d.Clear()
		return pending{}, err
	}
	s.CheckToken(";")

	t := p.typeFor(typeName)
	if t == nil {
		s.Warning(typeTok, "unknown declaration type %q, skipping %q", typeName, name)
		d.Clear()
		return pending{}, nil
	}
	return pending{typ: t, name: name, dict: d}, nil
}

// parseBody reads `key = value [;]` pairs up to the closing brace.
func parseBody(s *lexer.Stream, d *dict.Dict) error {
	for !s.CheckToken("}") {
		keyTok := s.Peek()
		key, err := s.ReadString()
		if err != nil {
			return err
		}
		if key == "" {
			return s.Errorf(keyTok, "empty key")
		}
		if err := s.ExpectToken("="); err != nil {
			return err
		}
		value, err := s.ReadString()
		if err != nil {
			return err
		}
		d.Set(key, value)
		s.CheckToken(";")
	}
	return nil
}

// ParseFile reads and parses the text file at path.
func (p *Parser) ParseFile(ctx context.Context, path string) error {
	src, err := p.loader.ReadFile(path)
	if err != nil {
		return p.fail(openError(path, err))
	}
	return p.Parse(ctx, path, src)
}

// LoadFile loads path or its binary cache, whichever is newer. A cache with
// a bad header is reported and the text file is parsed instead.
func (p *Parser) LoadFile(ctx context.Context, path string) error {
	timer := telemetry.FromContext(ctx).Start("decl.LoadFile " + path)
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

func openError(path string, err error) *report.Error {
	return report.Wrap(report.Open, path, err, "cannot open %s", path)
}
