package xdecl

import (
	"context"
	"testing"

	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/loader"
)

func FuzzParse(f *testing.F) {
	f.Add(`ui { button(label="Ok", x=10); }`)
	f.Add("a { b { c { } } }")
	f.Add("a(); b = 1;")
	f.Add("a { b(x=1")
	f.Add("}")

	f.Fuzz(func(t *testing.T, input string) {
		ctx := context.Background()
		fsys := loader.NewMemFS()
		p := NewParser(dict.NewPools(), WithFS(fsys))

		if err := p.Parse(ctx, "fuzz.xdecl", []byte(input)); err != nil {
			if p.Tree().Len() != 0 {
				t.Fatalf("failed parse left %d nodes", p.Tree().Len())
			}
			return
		}
		if err := p.MakeBinary(ctx, "fuzz.xdecl"); err != nil {
			t.Fatalf("MakeBinary: %v", err)
		}

		q := NewParser(dict.NewPools(), WithFS(fsys))
		if err := q.LoadBinary(ctx, "fuzz.xdecl.bin"); err != nil {
			t.Fatalf("LoadBinary: %v", err)
		}
		if q.Tree().Len() != p.Tree().Len() {
			t.Fatalf("round trip changed node count: %d != %d", q.Tree().Len(), p.Tree().Len())
		}
	})
}
