// Package loader provides the file access the declaration parsers are written
// against and picks between a text source and its binary cache.
//
// A text file "weapons.decl" may have a cache "weapons.decl.bin" next to it.
// Select returns whichever of the two should be loaded:
//   - Only one exists: that one
//   - Both exist: the binary when it is strictly newer, the text otherwise
//   - Neither exists: an error wrapping fs.ErrNotExist
//
// Example usage:
//
//	ldr := loader.New()
//	src, err := ldr.Select("weapons.decl")
//	if src.Format == loader.Binary {
//		// decode src.Path
//	}
package loader

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DefaultBinarySuffix is appended to a text path to name its binary cache.
const DefaultBinarySuffix = ".bin"

// FS is the file system contract used by the parsers.
type FS interface {
	// Exists reports whether path names an existing file.
	Exists(path string) bool
	// ModTime returns the last modification time of path.
	ModTime(path string) (time.Time, error)
	// OpenRead opens path for reading.
	OpenRead(path string) (io.ReadCloser, error)
	// OpenWrite creates or truncates path for writing.
	OpenWrite(path string) (io.WriteCloser, error)
}

// OSFS implements FS on the operating system's file system.
type OSFS struct{}

// Exists reports whether path is an existing regular file.
func (OSFS) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ModTime returns the modification time of path.
func (OSFS) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// OpenRead opens path for reading.
func (OSFS) OpenRead(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// OpenWrite creates path, and any missing parent directories, for writing.
func (OSFS) OpenWrite(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

// Format identifies the encoding of a selected source.
type Format uint8

const (
	// Text is the declarative source form.
	Text Format = iota
	// Binary is the cache written by MakeBinary.
	Binary
)

func (f Format) String() string {
	if f == Binary {
		return "binary"
	}
	return "text"
}

// Source is the file chosen by Select.
type Source struct {
	Path   string
	Format Format
}

// Loader selects and reads declaration sources.
//
// Configure the loader using functional options passed to New:
//
//	ldr := New(WithFS(memfs), WithBinarySuffix(".cache"))
type Loader struct {
	fs     FS
	suffix string
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS sets the file system. The default is OSFS.
func WithFS(fsys FS) Option {
	return func(l *Loader) {
		l.fs = fsys
	}
}

// WithBinarySuffix sets the suffix naming binary caches.
func WithBinarySuffix(suffix string) Option {
	return func(l *Loader) {
		l.suffix = suffix
	}
}

// New creates a Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{
		fs:     OSFS{},
		suffix: DefaultBinarySuffix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FS returns the file system in use.
func (l *Loader) FS() FS { return l.fs }

// BinaryPath returns the cache path for the text file at path.
func (l *Loader) BinaryPath(path string) string { return path + l.suffix }

// Select chooses between path and its binary cache.
func (l *Loader) Select(path string) (Source, error) {
	binPath := l.BinaryPath(path)
	hasText := l.fs.Exists(path)
	hasBin := l.fs.Exists(binPath)

	switch {
	case !hasText && !hasBin:
		return Source{}, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	case !hasText:
		return Source{Path: binPath, Format: Binary}, nil
	case !hasBin:
		return Source{Path: path, Format: Text}, nil
	}

	newer, err := l.Newer(binPath, path)
	if err != nil {
		return Source{}, err
	}
	if newer {
		return Source{Path: binPath, Format: Binary}, nil
	}
	return Source{Path: path, Format: Text}, nil
}

// Newer reports whether a was modified strictly after b.
func (l *Loader) Newer(a, b string) (bool, error) {
	ta, err := l.fs.ModTime(a)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", a, err)
	}
	tb, err := l.fs.ModTime(b)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", b, err)
	}
	return ta.After(tb), nil
}

// ReadFile reads the whole file at path.
func (l *Loader) ReadFile(path string) ([]byte, error) {
	rc, err := l.fs.OpenRead(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
