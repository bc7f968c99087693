// Package binfmt reads and writes the binary cache encoding shared by the
// decl and xdecl packages.
//
// Layout primitives:
//
//	magic   raw bytes, format specific ("BinDecl", "BinXDecl")
//	uint32  little-endian
//	string  uint32 length followed by the bytes
//
// A cache may be zstd-compressed as a whole. Readers detect the zstd frame
// header and decompress transparently, so callers see the same byte stream
// either way.
package binfmt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/klauspost/compress/zstd"
)

// MaxStringLen bounds a single encoded string (64 MiB).
const MaxStringLen = 64 << 20

var (
	// ErrBadMagic is returned when a stream does not start with the expected magic.
	ErrBadMagic = errors.New("bad magic")
	// ErrStringTooLong is returned for strings above MaxStringLen.
	ErrStringTooLong = errors.New("string too long")
	// ErrDecompress wraps failures of the zstd decoder.
	ErrDecompress = errors.New("decompression failed")
)

// zstdMagic is the little-endian zstd frame magic number 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Writer encodes primitives to an underlying writer.
type Writer struct {
	bw *bufio.Writer
	zw *zstd.Encoder
}

// WriterOption configures a Writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	compress bool
	level    zstd.EncoderLevel
}

// WithCompression zstd-compresses the whole stream.
func WithCompression() WriterOption {
	return func(c *writerConfig) {
		c.compress = true
	}
}

// WithCompressionLevel selects the zstd level used by WithCompression.
func WithCompressionLevel(level zstd.EncoderLevel) WriterOption {
	return func(c *writerConfig) {
		c.level = level
	}
}

// NewWriter creates a Writer on w. Close must be called to flush it; the
// underlying writer is not closed.
func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.compress {
		return &Writer{bw: bufio.NewWriter(w)}, nil
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(cfg.level))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Writer{bw: bufio.NewWriter(zw), zw: zw}, nil
}

// WriteMagic writes magic verbatim.
func (w *Writer) WriteMagic(magic string) error {
	_, err := w.bw.WriteString(magic)
	return err
}

// WriteUint32 writes v little-endian.
func (w *Writer) WriteUint32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.bw.Write(b[:])
	return err
}

// WriteCount writes a non-negative count as uint32.
func (w *Writer) WriteCount(n int) error {
	v, err := safecast.Convert[uint32](n)
	if err != nil {
		return fmt.Errorf("count %d: %w", n, err)
	}
	return w.WriteUint32(v)
}

// WriteString writes s with its length prefix.
func (w *Writer) WriteString(s string) error {
	if len(s) > MaxStringLen {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}
	if err := w.WriteCount(len(s)); err != nil {
		return err
	}
	_, err := w.bw.WriteString(s)
	return err
}

// Close flushes buffered data and finishes the compressed frame, if any.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if w.zw != nil {
		return w.zw.Close()
	}
	return nil
}

// Reader decodes primitives from an underlying reader.
type Reader struct {
	br *bufio.Reader
	zr *zstd.Decoder
}

// NewReader creates a Reader on r, decompressing if r holds a zstd frame.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil || !bytes.Equal(head, zstdMagic) {
		return &Reader{br: br}, nil
	}

	zr, err := zstd.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	return &Reader{br: bufio.NewReader(zr), zr: zr}, nil
}

// Compressed reports whether the stream is zstd-compressed.
func (r *Reader) Compressed() bool { return r.zr != nil }

// ReadMagic consumes len(magic) bytes and returns ErrBadMagic unless they match.
func (r *Reader) ReadMagic(magic string) error {
	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(r.br, buf); err != nil {
		if r.zr == nil && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: file shorter than %q", ErrBadMagic, magic)
		}
		return r.wrap(err)
	}
	if string(buf) != magic {
		return fmt.Errorf("%w: want %q, got %q", ErrBadMagic, magic, buf)
	}
	return nil
}

// AtEOF reports whether the stream is exhausted.
func (r *Reader) AtEOF() (bool, error) {
	_, err := r.br.Peek(1)
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, r.wrap(err)
	}
	return false, nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.br, b[:]); err != nil {
		return 0, r.wrap(err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadCount reads a uint32 count as an int.
func (r *Reader) ReadCount() (int, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	n, err := safecast.Convert[int](v)
	if err != nil {
		return 0, fmt.Errorf("count %d: %w", v, err)
	}
	return n, nil
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadCount()
	if err != nil {
		return "", err
	}
	if n > MaxStringLen {
		return "", fmt.Errorf("%w: %d bytes", ErrStringTooLong, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return "", r.wrap(err)
	}
	return string(buf), nil
}

// Close releases the decompressor. The underlying reader is not closed.
func (r *Reader) Close() {
	if r.zr != nil {
		r.zr.Close()
	}
}

// wrap turns a clean EOF inside a value into io.ErrUnexpectedEOF. Any
// failure of a compressed stream is a decompression error.
func (r *Reader) wrap(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if r.zr != nil {
		return fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	return err
}
