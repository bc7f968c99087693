package decl

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/robinvdvleuten/declkit/binfmt"
	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/report"
	"github.com/robinvdvleuten/declkit/telemetry"
)

// Magic starts every flat declaration cache.
const Magic = "BinDecl"

// Binary layout after the magic, repeated until end of file:
//
//	string  type name
//	string  declaration name
//	dict    pair count, then key and value strings

// MakeBinary writes every loaded declaration, in encounter order, to the
// binary cache of the text file at path.
func (p *Parser) MakeBinary(ctx context.Context, path string) error {
	binPath := p.loader.BinaryPath(path)

	timer := telemetry.FromContext(ctx).Start("decl.MakeBinary " + binPath)
	defer timer.End()

	f, err := p.loader.FS().OpenWrite(binPath)
	if err != nil {
		return p.fail(openError(binPath, err))
	}

	if err := p.writeBinary(f); err != nil {
		_ = f.Close()
		return p.fail(report.Wrap(report.Write, binPath, err, "cannot write declaration cache"))
	}
	if err := f.Close(); err != nil {
		return p.fail(report.Wrap(report.Write, binPath, err, "cannot write declaration cache"))
	}

	timer.Count(len(p.order), "decls")
	return nil
}

func (p *Parser) writeBinary(out io.Writer) error {
	var opts []binfmt.WriterOption
	if p.compress {
		opts = append(opts, binfmt.WithCompression())
	}
	w, err := binfmt.NewWriter(out, opts...)
	if err != nil {
		return err
	}

	if err := p.encode(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (p *Parser) encode(w *binfmt.Writer) error {
	if err := w.WriteMagic(Magic); err != nil {
		return err
	}
	for _, ref := range p.order {
		name, d := ref.typ.At(ref.pos)
		if err := w.WriteString(ref.typ.name); err != nil {
			return err
		}
		if err := w.WriteString(name); err != nil {
			return err
		}
		if err := d.WriteBinary(w); err != nil {
			return fmt.Errorf("%s %s: %w", ref.typ.name, name, err)
		}
	}
	return nil
}

// LoadBinary loads declarations from the cache file at path. Like Parse,
// nothing is published unless the whole file decodes.
func (p *Parser) LoadBinary(ctx context.Context, path string) error {
	if err := p.loadBinary(ctx, path); err != nil {
		return p.fail(err)
	}
	return nil
}

// loadBinary returns errors without reporting them, so LoadFile can decide
// whether a bad cache is fatal.
func (p *Parser) loadBinary(ctx context.Context, path string) error {
	timer := telemetry.FromContext(ctx).Start("decl.LoadBinary " + path)
	defer timer.End()

	f, err := p.loader.FS().OpenRead(path)
	if err != nil {
		return openError(path, err)
	}
	defer func() { _ = f.Close() }()

	r, err := binfmt.NewReader(f)
	if err != nil {
		return binaryError(path, err)
	}
	defer r.Close()

	if err := r.ReadMagic(Magic); err != nil {
		return binaryError(path, err)
	}

	var decls []pending
	for {
		done, err := r.AtEOF()
		if err != nil {
			discard(decls)
			return binaryError(path, err)
		}
		if done {
			break
		}

		d, err := p.readDecl(r, path)
		if err != nil {
			discard(decls)
			return binaryError(path, err)
		}
		if d.typ != nil {
			decls = append(decls, d)
		}
	}

	p.publish(decls)
	timer.Count(len(decls), "decls")
	return nil
}

func (p *Parser) readDecl(r *binfmt.Reader, path string) (pending, error) {
	typeName, err := r.ReadString()
	if err != nil {
		return pending{}, fmt.Errorf("read type name: %w", err)
	}
	name, err := r.ReadString()
	if err != nil {
		return pending{}, fmt.Errorf("read declaration name: %w", err)
	}

	d := dict.New(p.pools)
	if err := d.ReadBinary(r); err != nil {
		d.Clear()
		return pending{}, fmt.Errorf("%s %s: %w", typeName, name, err)
	}

	t := p.typeFor(typeName)
	if t == nil {
		p.reporter.Report(report.Warning, fmt.Sprintf("unknown declaration type %q, skipping %q", typeName, name), path)
		d.Clear()
		return pending{}, nil
	}
	return pending{typ: t, name: name, dict: d}, nil
}

// binaryError classifies a cache decoding failure.
func binaryError(path string, err error) *report.Error {
	switch {
	case errors.Is(err, binfmt.ErrBadMagic):
		return report.Wrap(report.BadMagic, path, err, "not a declaration cache")
	case errors.Is(err, binfmt.ErrDecompress):
		return report.Wrap(report.Decompress, path, err, "corrupt declaration cache")
	default:
		return report.Wrap(report.Read, path, err, "cannot read declaration cache")
	}
}
