package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/robinvdvleuten/declkit/output"
)

// slowThreshold marks operations highlighted as slow.
const slowThreshold = 100 * time.Millisecond

// formatTimingTree writes a root timer and its descendants:
//
//	decl.LoadFile weapons.decl: 12ms
//	├─ decl.Parse: 9ms (42 decls)
//	└─ decl.SolveInheritance: 2ms (3 types)
func formatTimingTree(w io.Writer, root *timerNode, styles *output.Styles) {
	name := root.name
	if styles != nil {
		name = styles.Keyword(name)
	}
	_, _ = fmt.Fprintf(w, "%s: %s%s\n", name, formatDuration(root.duration()), formatCount(root))

	for i, child := range root.children {
		formatNode(w, child, "", i == len(root.children)-1, styles)
	}
}

func formatNode(w io.Writer, node *timerNode, prefix string, isLast bool, styles *output.Styles) {
	branch, extension := "├─ ", "│  "
	if isLast {
		branch, extension = "└─ ", "   "
	}

	d := node.duration()
	timing := formatDuration(d)
	if styles != nil {
		_, _ = fmt.Fprintf(w, "%s%s: %s%s\n",
			styles.Dim(prefix+branch), node.name, styles.Timing(timing, d >= slowThreshold), styles.Dim(formatCount(node)))
	} else {
		_, _ = fmt.Fprintf(w, "%s%s%s: %s%s\n", prefix, branch, node.name, timing, formatCount(node))
	}

	for i, child := range node.children {
		formatNode(w, child, prefix+extension, i == len(node.children)-1, styles)
	}
}

// duration of a timer; a timer that never ended reports zero.
func (n *timerNode) duration() time.Duration {
	if n.end.IsZero() {
		return 0
	}
	return n.end.Sub(n.start)
}

func formatCount(n *timerNode) string {
	if n.unit == "" {
		return ""
	}
	return fmt.Sprintf(" (%d %s)", n.count, n.unit)
}

// formatDuration shows milliseconds below one second and seconds above.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", float64(d)/float64(time.Second))
}
