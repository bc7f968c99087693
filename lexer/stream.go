package lexer

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/declkit/report"
)

// Stream is a cursor over scanned tokens offering the read/check/expect
// operations the declaration parsers are written against.
//
// Errors built by Errorf, ExpectToken and ReadString are returned, not
// reported; the parser entry point reports them once. Warnings are reported
// immediately because they never abort parsing.
type Stream struct {
	source   []byte
	filename string
	tokens   []Token
	pos      int
	reporter report.Reporter
}

// NewStream scans source and returns a stream positioned at the first token.
func NewStream(source []byte, filename string, reporter report.Reporter) (*Stream, error) {
	if reporter == nil {
		reporter = report.Discard
	}
	tokens, err := NewLexer(source, filename).ScanAll()
	if err != nil {
		return nil, err
	}
	return &Stream{
		source:   source,
		filename: filename,
		tokens:   tokens,
		reporter: reporter,
	}, nil
}

// Filename returns the name used in positions.
func (s *Stream) Filename() string { return s.filename }

// Peek returns the next token without consuming it.
func (s *Stream) Peek() Token {
	return s.tokens[s.pos]
}

// ReadToken consumes the next token. It returns false at end of input.
func (s *Stream) ReadToken() (Token, bool) {
	tok := s.tokens[s.pos]
	if tok.Type == EOF {
		return tok, false
	}
	s.pos++
	return tok, true
}

// UnreadToken steps back over the last consumed token.
func (s *Stream) UnreadToken() {
	if s.pos > 0 {
		s.pos--
	}
}

// Text returns the text of tok; STRING tokens are unquoted.
func (s *Stream) Text(tok Token) string {
	if tok.Type == STRING {
		return Unquote(tok.Bytes(s.source))
	}
	return tok.String(s.source)
}

// CheckToken consumes the next token if its text equals text.
// Quoted strings never match, so `"{"` is not mistaken for a brace.
func (s *Stream) CheckToken(text string) bool {
	tok := s.Peek()
	if tok.Type == EOF || tok.Type == STRING {
		return false
	}
	if tok.String(s.source) != text {
		return false
	}
	s.pos++
	return true
}

// ExpectToken consumes the next token and fails unless its text equals text.
func (s *Stream) ExpectToken(text string) error {
	tok := s.Peek()
	if s.CheckToken(text) {
		return nil
	}
	if tok.Type == EOF {
		return s.Errorf(tok, "expected %q", text)
	}
	return s.Errorf(tok, "expected %q, found %q", text, s.Text(tok))
}

// ReadString consumes a WORD or STRING token and returns its text.
func (s *Stream) ReadString() (string, error) {
	tok := s.Peek()
	switch tok.Type {
	case WORD, STRING:
		s.pos++
		return s.Text(tok), nil
	case EOF:
		return "", s.Errorf(tok, "expected a value")
	default:
		return "", s.Errorf(tok, "expected a value, found %q", s.Text(tok))
	}
}

// Pos returns the source position of tok.
func (s *Stream) Pos(tok Token) report.Position {
	return report.Position{Filename: s.filename, Line: tok.Line, Column: tok.Column}
}

// Errorf builds a syntax error at tok. At end of input the error kind is
// report.EndOfInput.
func (s *Stream) Errorf(tok Token, format string, args ...any) *report.Error {
	kind := report.Syntax
	if tok.Type == EOF {
		kind = report.EndOfInput
	}
	return report.Errorf(kind, s.filename, format, args...).At(s.Pos(tok))
}

// Warning reports a non-fatal diagnostic at tok.
func (s *Stream) Warning(tok Token, format string, args ...any) {
	s.reporter.Report(report.Warning, fmt.Sprintf(format, args...), s.Pos(tok).String())
}

// Unquote strips the surrounding quotes of a string token and resolves
// escape sequences. Unknown escapes keep the escaped character.
func Unquote(raw []byte) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	if !containsBackslash(raw) {
		return string(raw)
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if ch != '\\' || i+1 >= len(raw) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

// Quote renders s as a string token that Unquote maps back to s.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// NeedsQuote reports whether s must be quoted to survive a round trip as a
// single WORD token.
func NeedsQuote(s string) bool {
	if s == "" {
		return true
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isSpace(ch) || isPunct(ch) || ch == '"' || ch == '\\' {
			return true
		}
		if ch == '/' && i+1 < len(s) && (s[i+1] == '/' || s[i+1] == '*') {
			return true
		}
	}
	return false
}

func containsBackslash(b []byte) bool {
	for _, ch := range b {
		if ch == '\\' {
			return true
		}
	}
	return false
}
