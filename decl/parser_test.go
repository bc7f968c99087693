package decl

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/declkit/dict"
	"github.com/robinvdvleuten/declkit/report"
)

func newTestParser(t *testing.T, types ...string) (*Parser, *report.Collector) {
	t.Helper()
	collector := report.NewCollector()
	p := NewParser(dict.NewPools(), WithReporter(collector))
	for _, name := range types {
		p.RegisterType(name)
	}
	return p, collector
}

func kindOf(t *testing.T, err error) report.Kind {
	t.Helper()
	var rerr *report.Error
	assert.True(t, errors.As(err, &rerr), "expected *report.Error, got %T", err)
	return rerr.Kind
}

func TestParsePistol(t *testing.T) {
	p, collector := newTestParser(t, "weapon")

	err := p.Parse(context.Background(), "weapons.decl", []byte("weapon pistol { damage = 10; ammo = 12; }"))
	assert.NoError(t, err)
	assert.Equal(t, 0, len(collector.Entries))

	pistol := p.Type("weapon").Get("pistol")
	assert.NotZero(t, pistol)
	assert.Equal(t, "10", pistol.Get("damage", "0"))
	assert.Equal(t, "12", pistol.Get("ammo", "0"))
	assert.Equal(t, 1, p.Len())
}

func TestParseSyntaxVariants(t *testing.T) {
	src := `
// weapons
weapon pistol {
	damage = 10
	model  = "models/pistol.mdl";
	label  = "Pistol \"9mm\""
}; /* trailing */
WEAPON "rocket launcher" { damage = 120 }
`
	p, _ := newTestParser(t, "weapon")
	assert.NoError(t, p.Parse(context.Background(), "w.decl", []byte(src)))

	weapons := p.Type("Weapon")
	assert.Equal(t, []string{"pistol", "rocket launcher"}, weapons.Names())
	assert.Equal(t, map[string]string{
		"damage": "10",
		"model":  "models/pistol.mdl",
		"label":  `Pistol "9mm"`,
	}, weapons.Get("PISTOL").Map())
	assert.Equal(t, "120", weapons.Get("rocket launcher").Get("damage", ""))
}

func TestParseUnknownTypeWarns(t *testing.T) {
	p, collector := newTestParser(t, "weapon")

	err := p.Parse(context.Background(), "mixed.decl", []byte(`
monster imp { health = 60 }
weapon pistol { damage = 10 }
`))
	assert.NoError(t, err)
	assert.Equal(t, 1, collector.Count(report.Warning))
	assert.Equal(t, "mixed.decl:2:1", collector.Entries[0].Context)
	assert.Equal(t, 1, p.Len())

	_, ok := p.Pools().Values.Find("60")
	assert.False(t, ok)
}

func TestParseWithAnyType(t *testing.T) {
	collector := report.NewCollector()
	p := NewParser(dict.NewPools(), WithReporter(collector), WithAnyType())

	err := p.Parse(context.Background(), "mixed.decl", []byte(`
monster imp { health = 60 }
weapon pistol { damage = 10 }
Monster demon { health = 300 }
`))
	assert.NoError(t, err)
	assert.Equal(t, 0, len(collector.Entries))
	assert.Equal(t, 2, len(p.Types()))
	assert.Equal(t, []string{"imp", "demon"}, p.Type("monster").Names())
	assert.Equal(t, "10", p.Type("weapon").Get("pistol").Get("damage", ""))
}

func TestRedeclarationLastWins(t *testing.T) {
	p, _ := newTestParser(t, "weapon")

	err := p.Parse(context.Background(), "a.decl", []byte(`
weapon pistol { damage = 10; ammo = 12 }
weapon rifle  { damage = 30 }
weapon pistol { damage = 15 }
`))
	assert.NoError(t, err)

	weapons := p.Type("weapon")
	assert.Equal(t, []string{"pistol", "rifle"}, weapons.Names())
	assert.Equal(t, map[string]string{"damage": "15"}, weapons.Get("pistol").Map())

	_, ok := p.Pools().Values.Find("12")
	assert.False(t, ok)

	assert.NoError(t, p.Parse(context.Background(), "b.decl", []byte("weapon rifle { damage = 35 }")))
	assert.Equal(t, []string{"pistol", "rifle"}, weapons.Names())
	assert.Equal(t, "35", weapons.Get("rifle").Get("damage", ""))
	assert.Equal(t, 2, p.Len())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind report.Kind
	}{
		{"MissingBrace", "weapon pistol damage = 10 }", report.Syntax},
		{"MissingEquals", "weapon pistol { damage 10 }", report.Syntax},
		{"UnclosedBlock", "weapon pistol { damage = 10;", report.EndOfInput},
		{"MissingValue", "weapon pistol { damage = }", report.Syntax},
		{"EmptyName", `weapon "" { damage = 10 }`, report.Syntax},
		{"EmptyKey", `weapon pistol { "" = 10 }`, report.Syntax},
		{"MissingName", "weapon", report.EndOfInput},
		{"UnterminatedString", `weapon pistol { label = "oops }`, report.EndOfInput},
		{"UnterminatedComment", "weapon pistol { } /* ", report.EndOfInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, collector := newTestParser(t, "weapon")
			err := p.Parse(context.Background(), "bad.decl", []byte(tt.src))
			assert.Error(t, err)
			assert.Equal(t, tt.kind, kindOf(t, err))
			assert.Equal(t, 1, len(collector.Entries))
			assert.Equal(t, tt.kind, collector.Entries[0].Kind)
		})
	}
}

func TestParseFailureIsAtomic(t *testing.T) {
	p, _ := newTestParser(t, "weapon")
	assert.NoError(t, p.Parse(context.Background(), "a.decl", []byte("weapon knife { damage = 5 }")))

	err := p.Parse(context.Background(), "b.decl", []byte(`
weapon pistol { damage = 10 }
weapon knife { damage = 7 }
weapon rifle { damage = }
`))
	assert.Error(t, err)

	weapons := p.Type("weapon")
	assert.Equal(t, []string{"knife"}, weapons.Names())
	assert.Equal(t, "5", weapons.Get("knife").Get("damage", ""))

	_, ok := p.Pools().Values.Find("10")
	assert.False(t, ok)
}

func TestErrorPosition(t *testing.T) {
	p, _ := newTestParser(t, "weapon")
	err := p.Parse(context.Background(), "pos.decl", []byte("weapon pistol {\n  damage 10\n}"))

	var rerr *report.Error
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, report.Position{Filename: "pos.decl", Line: 2, Column: 10}, rerr.GetPosition())
}

func TestRegisterTypeTwice(t *testing.T) {
	p, _ := newTestParser(t)
	a := p.RegisterType("weapon")
	b := p.RegisterType("WEAPON")
	assert.True(t, a == b)
	assert.Equal(t, 1, len(p.Types()))
	assert.Zero(t, p.Type("monster"))
}

func TestRangeInEncounterOrder(t *testing.T) {
	p, _ := newTestParser(t, "weapon", "monster")
	err := p.Parse(context.Background(), "a.decl", []byte(`
monster imp { health = 60 }
weapon pistol { damage = 10 }
monster demon { health = 150 }
`))
	assert.NoError(t, err)

	var got []string
	p.Range(func(typ *Type, name string, d *dict.Dict) bool {
		got = append(got, typ.Name()+" "+name)
		return true
	})
	assert.Equal(t, []string{"monster imp", "weapon pistol", "monster demon"}, got)
}

func TestClear(t *testing.T) {
	p, _ := newTestParser(t, "weapon")
	assert.NoError(t, p.Parse(context.Background(), "a.decl", []byte("weapon pistol { damage = 10 }")))

	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 0, p.Type("weapon").Len())
	assert.Equal(t, 0, p.Pools().Keys.Len())
	assert.Equal(t, 0, p.Pools().Values.Len())
	assert.NotZero(t, p.Type("weapon"))
}
