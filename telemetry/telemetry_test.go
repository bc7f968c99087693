package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/declkit/output"
)

// fakeClock advances by step on every reading.
func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func newTestCollector(step time.Duration) *TimingCollector {
	c := NewTimingCollector()
	c.now = fakeClock(step)
	return c
}

func TestNoOpCollector(t *testing.T) {
	collector := FromContext(context.Background())
	_, ok := collector.(noOpCollector)
	assert.True(t, ok)

	timer := collector.Start("test")
	timer.Child("child").End()
	timer.Count(3, "items")
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	assert.Equal(t, 0, buf.Len())
}

func TestWithCollector(t *testing.T) {
	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)
	assert.Equal(t, Collector(collector), FromContext(ctx))
}

func TestStartNestsUnderRunningTimer(t *testing.T) {
	collector := newTestCollector(time.Millisecond)

	load := collector.Start("decl.LoadFile")
	parse := collector.Start("decl.Parse")
	parse.Count(2, "decls")
	parse.End()
	solve := collector.Start("decl.SolveInheritance")
	solve.End()
	load.End()

	collector.Start("decl.MakeBinary").End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)

	want := "decl.LoadFile: 5ms\n" +
		"├─ decl.Parse: 1ms (2 decls)\n" +
		"└─ decl.SolveInheritance: 1ms\n" +
		"decl.MakeBinary: 1ms\n"
	assert.Equal(t, want, buf.String())
}

func TestChildTimers(t *testing.T) {
	collector := newTestCollector(time.Millisecond)

	t1 := collector.Start("Level 1")
	t2 := t1.Child("Level 2")
	t3 := t2.Child("Level 3")
	t3.End()
	t2.End()
	t1.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, 3, len(lines))
	assert.Equal(t, "└─ Level 2: 3ms", lines[1])
	assert.Equal(t, "   └─ Level 3: 1ms", lines[2])
}

func TestEndTwiceKeepsFirstEnd(t *testing.T) {
	collector := newTestCollector(time.Millisecond)
	timer := collector.Start("op")
	timer.End()
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	assert.Equal(t, "op: 1ms\n", buf.String())
}

func TestReportWithStyles(t *testing.T) {
	collector := newTestCollector(200 * time.Millisecond)
	root := collector.Start("root")
	collector.Start("slow").End()
	root.End()

	var buf bytes.Buffer
	collector.Report(&buf, output.NewStyles(&buf))
	assert.Contains(t, buf.String(), "root")
	assert.Contains(t, buf.String(), "slow")
	assert.Contains(t, buf.String(), "200ms")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{1 * time.Millisecond, "1ms"},
		{999 * time.Millisecond, "999ms"},
		{1 * time.Second, "1.00s"},
		{1500 * time.Millisecond, "1.50s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.duration))
		})
	}
}

func TestEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	NewTimingCollector().Report(&buf, nil)
	assert.Equal(t, 0, buf.Len())
}
