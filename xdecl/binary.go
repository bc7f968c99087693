package xdecl

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/robinvdvleuten/declkit/binfmt"
	"github.com/robinvdvleuten/declkit/report"
	"github.com/robinvdvleuten/declkit/telemetry"
)

// Magic starts every nested declaration cache.
const Magic = "BinXDecl"

// maxDepth bounds node nesting, counting top-level nodes as depth 1, in both
// text and cache files.
const maxDepth = 256

// Binary layout after the magic:
//
//	count   top-level nodes
//	node    per top-level node, pre-order:
//	          string name, dict, count children, children

// MakeBinary writes the whole tree to the binary cache of the text file at
// path. The root's own Dict is not written.
func (p *Parser) MakeBinary(ctx context.Context, path string) error {
	binPath := p.loader.BinaryPath(path)

	timer := telemetry.FromContext(ctx).Start("xdecl.MakeBinary " + binPath)
	defer timer.End()

	f, err := p.loader.FS().OpenWrite(binPath)
	if err != nil {
		return p.fail(report.Wrap(report.Open, binPath, err, "cannot open %s", binPath))
	}

	if err := p.writeBinary(f); err != nil {
		_ = f.Close()
		return p.fail(report.Wrap(report.Write, binPath, err, "cannot write declaration cache"))
	}
	if err := f.Close(); err != nil {
		return p.fail(report.Wrap(report.Write, binPath, err, "cannot write declaration cache"))
	}

	timer.Count(p.tree.Len(), "nodes")
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
	return writeChildren(w, p.tree.Root())
}

func writeChildren(w *binfmt.Writer, n Node) error {
	if err := w.WriteCount(n.NumChildren()); err != nil {
		return err
	}
	for c := n.FirstChild(); c.Valid(); c = c.Next() {
		if err := w.WriteString(c.Name()); err != nil {
			return err
		}
		if err := c.Dict().WriteBinary(w); err != nil {
			return fmt.Errorf("node %q: %w", c.Name(), err)
		}
		if err := writeChildren(w, c); err != nil {
			return err
		}
	}
	return nil
}

// LoadBinary appends the nodes of the cache file at path to the root. On
// error the tree is left as it was.
func (p *Parser) LoadBinary(ctx context.Context, path string) error {
	if err := p.loadBinary(ctx, path); err != nil {
		return p.fail(err)
	}
	return nil
}

func (p *Parser) loadBinary(ctx context.Context, path string) error {
	timer := telemetry.FromContext(ctx).Start("xdecl.LoadBinary " + path)
	defer timer.End()

	f, err := p.loader.FS().OpenRead(path)
	if err != nil {
		return report.Wrap(report.Open, path, err, "cannot open %s", path)
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

	before := p.tree.Len()
	scratch := p.tree.alloc("")
	if err := p.readChildren(r, scratch, 0); err != nil {
		p.tree.discard(scratch)
		return binaryError(path, err)
	}
	if done, err := r.AtEOF(); err != nil || !done {
		p.tree.discard(scratch)
		if err == nil {
			err = errors.New("trailing data after tree")
		}
		return binaryError(path, err)
	}
	p.tree.adopt(p.tree.root, scratch)

	timer.Count(p.tree.Len()-before, "nodes")
	return nil
}

func (p *Parser) readChildren(r *binfmt.Reader, parent int32, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("nesting deeper than %d", maxDepth)
	}

	n, err := r.ReadCount()
	if err != nil {
		return fmt.Errorf("read child count: %w", err)
	}
	for i := 0; i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("read node name: %w", err)
		}

		child := p.tree.alloc(name)
		p.tree.appendChild(parent, child)
		if err := p.tree.nodes[child].dict.ReadBinary(r); err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
		if err := p.readChildren(r, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// binaryError classifies a cache decoding failure.
func binaryError(path string, err error) *report.Error {
	switch {
	case errors.Is(err, binfmt.ErrBadMagic):
		return report.Wrap(report.BadMagic, path, err, "not a nested declaration cache")
	case errors.Is(err, binfmt.ErrDecompress):
		return report.Wrap(report.Decompress, path, err, "corrupt nested declaration cache")
	default:
		return report.Wrap(report.Read, path, err, "cannot read nested declaration cache")
	}
}
