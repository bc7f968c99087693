package xdecl

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/report"
)

const uiSrc = `
// main window
window {
	title = "Main";
	button(label="Ok", x=10);
	button(label = Cancel, x = 80);
	panel {
		size = 3;
		icon();
	};
}
theme(color=blue);
`

func newTestParser(t *testing.T, opts ...Option) (*Parser, *report.Collector) {
	t.Helper()
	collector := report.NewCollector()
	opts = append([]Option{WithReporter(collector)}, opts...)
	return NewParser(dict.NewPools(), opts...), collector
}

func kindOf(t *testing.T, err error) report.Kind {
	t.Helper()
	var rerr *report.Error
	assert.True(t, errors.As(err, &rerr), "expected *report.Error, got %T", err)
	return rerr.Kind
}

// outline renders a subtree as "name{k=v,...}[children]" for comparisons.
func outline(n Node) []string {
	var lines []string
	var walk func(n Node, indent string)
	walk = func(n Node, indent string) {
		for c := n.FirstChild(); c.Valid(); c = c.Next() {
			line := indent + c.Name()
			c.Dict().Range(func(key, value string) bool {
				line += " " + key + "=" + value
				return true
			})
			lines = append(lines, line)
			walk(c, indent+"  ")
		}
	}
	walk(n, "")
	return lines
}

func TestParseAttributeExample(t *testing.T) {
	p, collector := newTestParser(t)

	err := p.Parse(context.Background(), "ui.xdecl", []byte(`ui { button(label="Ok", x=10); }`))
	assert.NoError(t, err)
	assert.Equal(t, 0, len(collector.Entries))

	root := p.Tree().Root()
	assert.Equal(t, 1, root.NumChildren())

	ui := root.FirstChild()
	assert.Equal(t, "ui", ui.Name())
	assert.Equal(t, 1, ui.NumChildren())

	button := ui.FirstChild()
	assert.Equal(t, "button", button.Name())
	assert.Equal(t, map[string]string{"label": "Ok", "x": "10"}, button.Dict().Map())
	assert.False(t, button.FirstChild().Valid())
	assert.False(t, button.Next().Valid())
}

func TestParseNested(t *testing.T) {
	p, _ := newTestParser(t)
	assert.NoError(t, p.Parse(context.Background(), "ui.xdecl", []byte(uiSrc)))

	assert.Equal(t, []string{
		"window title=Main",
		"  button label=Ok x=10",
		"  button label=Cancel x=80",
		"  panel size=3",
		"    icon",
		"theme color=blue",
	}, outline(p.Tree().Root()))
	assert.Equal(t, 6, p.Tree().Len())
}

func TestLookupByName(t *testing.T) {
	p, _ := newTestParser(t)
	assert.NoError(t, p.Parse(context.Background(), "ui.xdecl", []byte(uiSrc)))

	window := p.Tree().Root().GetFirstChildByName("WINDOW")
	assert.True(t, window.Valid())

	first := window.GetFirstChildByName("button")
	assert.Equal(t, "Ok", first.Dict().Get("label", ""))

	second := first.GetNextByName("button")
	assert.Equal(t, "Cancel", second.Dict().Get("label", ""))

	assert.False(t, second.GetNextByName("button").Valid())
	assert.False(t, window.GetFirstChildByName("missing").Valid())
	assert.Equal(t, 3, len(window.Children()))
}

func TestParseAppendsToRoot(t *testing.T) {
	p, _ := newTestParser(t)
	ctx := context.Background()
	assert.NoError(t, p.Parse(ctx, "a.xdecl", []byte("a { }")))
	assert.NoError(t, p.Parse(ctx, "b.xdecl", []byte("b(); c { d(); }")))

	assert.Equal(t, []string{"a", "b", "c", "  d"}, outline(p.Tree().Root()))
}

func TestTopLevelKeysGoToRoot(t *testing.T) {
	p, _ := newTestParser(t)
	assert.NoError(t, p.Parse(context.Background(), "a.xdecl", []byte("version = 2; a();")))

	root := p.Tree().Root()
	assert.Equal(t, "2", root.Dict().Get("version", ""))
	assert.Equal(t, 1, root.NumChildren())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind report.Kind
	}{
		{"UnclosedBlock", "ui { button();", report.EndOfInput},
		{"UnclosedNestedBlock", "ui { panel { }", report.EndOfInput},
		{"UnclosedAttributes", "ui { button(label=Ok", report.EndOfInput},
		{"MissingSemicolonAfterAttributes", "ui { button(label=Ok) }", report.Syntax},
		{"StrayBrace", "}", report.Syntax},
		{"MissingComma", "button(a=1 b=2);", report.Syntax},
		{"MissingValue", "ui { size = ; }", report.Syntax},
		{"BareWord", "ui { button }", report.Syntax},
		{"BareWordAtEnd", "ui", report.EndOfInput},
		{"EmptyName", `"" { }`, report.Syntax},
		{"EmptyAttribute", `button("" = 1);`, report.Syntax},
		{"UnexpectedPunct", "= x;", report.Syntax},
		{"MissingSemicolonAfterValue", "ui { size = 3 }", report.Syntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, collector := newTestParser(t)
			err := p.Parse(context.Background(), "bad.xdecl", []byte(tt.src))
			assert.Error(t, err)
			assert.Equal(t, tt.kind, kindOf(t, err))
			assert.Equal(t, 1, len(collector.Entries))
		})
	}
}

func TestParseFailureLeavesTreeUntouched(t *testing.T) {
	p, _ := newTestParser(t)
	ctx := context.Background()
	assert.NoError(t, p.Parse(ctx, "a.xdecl", []byte("a(x=1);")))

	err := p.Parse(ctx, "b.xdecl", []byte("b { c(y=2); d { "))
	assert.Error(t, err)

	assert.Equal(t, []string{"a x=1"}, outline(p.Tree().Root()))
	assert.Equal(t, 1, p.Tree().Len())

	_, ok := p.Tree().Pools().Values.Find("2")
	assert.False(t, ok)
}

func TestClearRecyclesNodes(t *testing.T) {
	p, _ := newTestParser(t)
	ctx := context.Background()
	assert.NoError(t, p.Parse(ctx, "ui.xdecl", []byte(uiSrc)))

	slots := len(p.Tree().nodes)
	p.Tree().Clear()
	assert.Equal(t, 0, p.Tree().Len())
	assert.Equal(t, 0, p.Tree().Root().NumChildren())

	assert.NoError(t, p.Parse(ctx, "ui.xdecl", []byte(uiSrc)))
	assert.Equal(t, slots, len(p.Tree().nodes))
	assert.Equal(t, 6, p.Tree().Len())
}

func TestClearReleasesStrings(t *testing.T) {
	p, _ := newTestParser(t)
	assert.NoError(t, p.Parse(context.Background(), "ui.xdecl", []byte(uiSrc)))

	p.Tree().Clear()
	pools := p.Tree().Pools()
	assert.Equal(t, 0, pools.Keys.Len())
	// Only the root's empty name remains.
	assert.Equal(t, 1, pools.Values.Len())
}

func TestZeroNode(t *testing.T) {
	var n Node
	assert.False(t, n.Valid())
	assert.False(t, n.GetFirstChildByName("x").Valid())
}
