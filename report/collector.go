package report

import (
	"strings"
)

// Entry is one reported diagnostic.
type Entry struct {
	Kind    Kind
	Message string
	Context string
}

func (e Entry) String() string {
	if e.Context == "" {
		return e.Kind.String() + ": " + e.Message
	}
	return e.Context + ": " + e.Kind.String() + ": " + e.Message
}

// Collector is a Reporter that records every diagnostic in order.
type Collector struct {
	Entries []Entry
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report records a diagnostic.
func (c *Collector) Report(kind Kind, message, context string) {
	c.Entries = append(c.Entries, Entry{Kind: kind, Message: message, Context: context})
}

// Count returns the number of recorded diagnostics of the given kind.
func (c *Collector) Count(kind Kind) int {
	n := 0
	for _, e := range c.Entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// HasFatal reports whether any recorded diagnostic aborts a load.
func (c *Collector) HasFatal() bool {
	for _, e := range c.Entries {
		if e.Kind.Fatal() {
			return true
		}
	}
	return false
}

// Reset drops all recorded diagnostics.
func (c *Collector) Reset() {
	c.Entries = c.Entries[:0]
}

// String renders all diagnostics, one per line.
func (c *Collector) String() string {
	var buf strings.Builder
	for i, e := range c.Entries {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(e.String())
	}
	return buf.String()
}
