package dict

import (
	"fmt"

	"github.com/robinvdvleuten/declkit/binfmt"
)

// WriteBinary encodes d as a pair count followed by each key and value as
// length-prefixed strings.
func (d *Dict) WriteBinary(w *binfmt.Writer) error {
	if err := w.WriteCount(len(d.pairs)); err != nil {
		return fmt.Errorf("write dict size: %w", err)
	}
	for _, p := range d.pairs {
		if err := w.WriteString(p.key.Text()); err != nil {
			return fmt.Errorf("write key: %w", err)
		}
		if err := w.WriteString(p.value.Text()); err != nil {
			return fmt.Errorf("write value of %q: %w", p.key.Text(), err)
		}
	}
	return nil
}

// ReadBinary clears d and decodes pairs written by WriteBinary.
func (d *Dict) ReadBinary(r *binfmt.Reader) error {
	d.Clear()

	n, err := r.ReadCount()
	if err != nil {
		return fmt.Errorf("read dict size: %w", err)
	}
	for i := 0; i < n; i++ {
		key, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("read key %d of %d: %w", i+1, n, err)
		}
		value, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("read value of %q: %w", key, err)
		}
		d.Set(key, value)
	}
	return nil
}
