// Package telemetry collects hierarchical timings of load, parse, solve and
// cache steps.
//
// Collectors travel in a context.Context, so instrumented code needs no extra
// parameters and costs nothing when no collector is installed.
//
// Example usage:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	timer := telemetry.FromContext(ctx).Start("decl.LoadFile weapons.decl")
//	parse := timer.Child("decl.Parse")
//	parse.Count(42, "decls")
//	parse.End()
//	timer.End()
//
//	collector.Report(os.Stderr, output.NewStyles(os.Stderr))
package telemetry

import (
	"context"
	"io"

	"github.com/robinvdvleuten/declkit/output"
)

type contextKey struct{}

var collectorKey = contextKey{}

// Collector receives timers and reports them.
type Collector interface {
	// Start begins timing an operation nested under the innermost open timer.
	Start(name string) Timer

	// Report writes the collected timings to w. Styles may be nil.
	Report(w io.Writer, styles *output.Styles)
}

// Timer tracks a single operation.
type Timer interface {
	// End stops the timer.
	End()

	// Child creates a timer nested under this one.
	Child(name string) Timer

	// Count records how many items the operation handled, e.g. (42, "decls").
	Count(n int, unit string)
}

// WithCollector returns a context carrying collector.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey, collector)
}

// FromContext returns the collector carried by ctx, or a no-op collector.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey).(Collector); ok {
		return collector
	}
	return noOpCollector{}
}
