package telemetry

import (
	"io"
	"sync"
	"time"

	"github.com/robinvdvleuten/declkit/output"
)

// TimingCollector builds a tree of timed operations. It is safe for
// concurrent use.
type TimingCollector struct {
	mu      sync.Mutex
	roots   []*timerNode
	current *timerNode
	now     func() time.Time
}

type timerNode struct {
	name     string
	start    time.Time
	end      time.Time
	count    int
	unit     string
	children []*timerNode
	parent   *timerNode
}

// NewTimingCollector creates an empty collector.
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{now: time.Now}
}

// Start begins timing an operation. It nests under the innermost timer that
// is still running, or becomes a new top-level entry.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{name: name, start: c.now()}
	if c.current == nil {
		c.roots = append(c.roots, node)
	} else {
		node.parent = c.current
		c.current.children = append(c.current.children, node)
	}
	c.current = node

	return &timingTimer{collector: c, node: node}
}

// Report writes the timing tree to w.
func (c *TimingCollector) Report(w io.Writer, styles *output.Styles) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, root := range c.roots {
		formatTimingTree(w, root, styles)
	}
}

type timingTimer struct {
	collector *TimingCollector
	node      *timerNode
}

func (t *timingTimer) End() {
	c := t.collector
	c.mu.Lock()
	defer c.mu.Unlock()

	if !t.node.end.IsZero() {
		return
	}
	t.node.end = c.now()
	if c.current == t.node {
		c.current = t.node.parent
	}
}

func (t *timingTimer) Child(name string) Timer {
	c := t.collector
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{name: name, start: c.now(), parent: t.node}
	t.node.children = append(t.node.children, node)
	return &timingTimer{collector: c, node: node}
}

func (t *timingTimer) Count(n int, unit string) {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	t.node.count = n
	t.node.unit = unit
}
