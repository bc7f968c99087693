package loader

import (
	"bytes"
	"io"
	"io/fs"
	"sync"
	"time"
)

// MemFS is an in-memory FS. Each write stamps the file with the next tick of
// a logical clock, so a file written later is always strictly newer.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*memFile
	clock time.Time
}

type memFile struct {
	data    []byte
	modTime time.Time
}

// NewMemFS returns an empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		clock: time.Unix(1_000_000_000, 0),
	}
}

// WriteFile stores data at path with a fresh modification time.
func (m *MemFS) WriteFile(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &memFile{data: bytes.Clone(data), modTime: m.tick()}
}

// Touch sets the modification time of path.
func (m *MemFS) Touch(path string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		return &fs.PathError{Op: "touch", Path: path, Err: fs.ErrNotExist}
	}
	f.modTime = t
	return nil
}

// Remove deletes path.
func (m *MemFS) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// Bytes returns the contents of path.
func (m *MemFS) Bytes(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		return nil, false
	}
	return bytes.Clone(f.data), true
}

func (m *MemFS) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// Exists reports whether path is stored.
func (m *MemFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

// ModTime returns the modification time of path.
func (m *MemFS) ModTime(path string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		return time.Time{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return f.modTime, nil
}

// OpenRead returns a reader over a snapshot of path.
func (m *MemFS) OpenRead(path string) (io.ReadCloser, error) {
	data, ok := m.Bytes(path)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// OpenWrite returns a writer whose contents replace path on Close.
func (m *MemFS) OpenWrite(path string) (io.WriteCloser, error) {
	return &memWriter{fs: m, path: path}, nil
}

type memWriter struct {
	fs   *MemFS
	path string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.fs.WriteFile(w.path, w.buf.Bytes())
	return nil
}
