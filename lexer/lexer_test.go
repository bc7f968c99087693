package lexer

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/declkit/report"
)

func TestLexerBasicTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{
			name:  "punctuation",
			input: "{ } ( ) = ; ,",
			want:  []TokenType{LBRACE, RBRACE, LPAREN, RPAREN, EQUALS, SEMI, COMMA, EOF},
		},
		{
			name:  "decl header",
			input: "weapon pistol {",
			want:  []TokenType{WORD, WORD, LBRACE, EOF},
		},
		{
			name:  "key value without spaces",
			input: "damage=10;",
			want:  []TokenType{WORD, EQUALS, WORD, SEMI, EOF},
		},
		{
			name:  "attribute list",
			input: `button(label="Ok",x=10);`,
			want:  []TokenType{WORD, LPAREN, WORD, EQUALS, STRING, COMMA, WORD, EQUALS, WORD, RPAREN, SEMI, EOF},
		},
		{
			name:  "comments",
			input: "a // line comment\n/* block\ncomment */ b",
			want:  []TokenType{WORD, WORD, EOF},
		},
		{
			name:  "empty",
			input: "",
			want:  []TokenType{EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewLexer([]byte(tt.input), "test").ScanAll()
			assert.NoError(t, err)
			assert.Equal(t, len(tt.want), len(tokens), "token count mismatch")

			for i, tok := range tokens {
				assert.Equal(t, tt.want[i], tok.Type, "token type mismatch")
			}
		})
	}
}

func TestLexerWords(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10", "10"},
		{"-0.25", "-0.25"},
		{"models/weapons/pistol.md5mesh", "models/weapons/pistol.md5mesh"},
		{"snd_fire//comment", "snd_fire"},
		{"_default", "_default"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l := NewLexer([]byte(tt.input), "test")
			tokens, err := l.ScanAll()
			assert.NoError(t, err)
			assert.Equal(t, WORD, tokens[0].Type)
			assert.Equal(t, tt.want, tokens[0].String(l.source))
		})
	}
}

func TestLexerPositions(t *testing.T) {
	tokens, err := NewLexer([]byte("weapon pistol\n{\n  damage = 10\n}"), "test").ScanAll()
	assert.NoError(t, err)

	type pos struct{ line, col int }
	var got []pos
	for _, tok := range tokens {
		got = append(got, pos{tok.Line, tok.Column})
	}
	assert.Equal(t, []pos{{1, 1}, {1, 8}, {2, 1}, {3, 3}, {3, 10}, {3, 12}, {4, 1}, {4, 2}}, got)
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  report.Kind
		line  int
	}{
		{"unterminated string at newline", "a = \"oops\nb", report.Syntax, 1},
		{"unterminated string at eof", `a = "oops`, report.EndOfInput, 1},
		{"unterminated block comment", "a\n/* never closed", report.EndOfInput, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer([]byte(tt.input), "f.decl").ScanAll()
			var rerr *report.Error
			assert.True(t, errors.As(err, &rerr))
			assert.Equal(t, tt.kind, rerr.Kind)
			assert.Equal(t, tt.line, rerr.Pos.Line)
			assert.Equal(t, "f.decl", rerr.Pos.Filename)
		})
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"Ok"`, "Ok"},
		{`""`, ""},
		{`"say \"hi\""`, `say "hi"`},
		{`"a\\b"`, `a\b`},
		{`"line\nbreak\ttab"`, "line\nbreak\ttab"},
		{`"keep \q"`, "keep q"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Unquote([]byte(tt.raw)))
		})
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	for _, s := range []string{"", "plain", `with "quotes"`, `back\slash`, "multi\nline\ttab"} {
		l := NewLexer([]byte(Quote(s)), "test")
		tokens, err := l.ScanAll()
		assert.NoError(t, err)
		assert.Equal(t, STRING, tokens[0].Type)
		assert.Equal(t, s, Unquote(tokens[0].Bytes(l.source)))
	}
}

func TestNeedsQuote(t *testing.T) {
	assert.False(t, NeedsQuote("10"))
	assert.False(t, NeedsQuote("models/pistol.md5mesh"))
	assert.True(t, NeedsQuote(""))
	assert.True(t, NeedsQuote("two words"))
	assert.True(t, NeedsQuote("a=b"))
	assert.True(t, NeedsQuote("x//y"))
}
