// Package lexer tokenizes declaration source text.
//
// The zero-copy approach:
//   - Tokens store byte offsets, not string values
//   - The whole input is scanned once into a pre-allocated token buffer
//   - Text is materialized only when a parser asks for it
//
// Lexical grammar:
//
//	whitespace  space, tab, CR, LF
//	comments    // to end of line, /* ... */
//	punctuation { } ( ) = ; ,
//	strings     "..." on a single line, escapes \" \\ \n \t
//	words       any other run of non-space bytes
package lexer

import (
	"github.com/robinvdvleuten/declkit/report"
)

// Lexer tokenizes declaration source code.
type Lexer struct {
	source   []byte  // Source buffer
	filename string  // Filename for error reporting
	pos      int     // Current byte position
	line     int     // Current line (1-indexed)
	column   int     // Current column (1-indexed)
	tokens   []Token // Token buffer (pre-allocated)
	err      *report.Error
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source []byte, filename string) *Lexer {
	// Declaration files are dense: roughly one token per 6 bytes.
	estimatedTokens := len(source)/6 + 16

	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		column:   1,
		tokens:   make([]Token, 0, estimatedTokens),
	}
}

// ScanAll lexes the entire source and returns all tokens, terminated by EOF.
// The first lexical error (unterminated string or comment, stray quote) stops
// scanning and is returned alongside the tokens read so far.
func (l *Lexer) ScanAll() ([]Token, error) {
	for l.pos < len(l.source) {
		l.skipWhitespace()
		if l.pos >= len(l.source) {
			break
		}

		// Skip comments
		if l.peek() == '/' && l.peekAt(1) == '/' {
			l.skipLineComment()
			continue
		}
		if l.peek() == '/' && l.peekAt(1) == '*' {
			if !l.skipBlockComment() {
				break
			}
			continue
		}

		tok := l.scanToken()
		if l.err != nil {
			break
		}
		l.tokens = append(l.tokens, tok)
	}

	l.tokens = append(l.tokens, Token{
		Type:   EOF,
		Start:  l.pos,
		End:    l.pos,
		Line:   l.line,
		Column: l.column,
	})

	if l.err != nil {
		return l.tokens, l.err
	}
	return l.tokens, nil
}

// scanToken scans the next token from the current position.
func (l *Lexer) scanToken() Token {
	start := l.pos
	startLine := l.line
	startCol := l.column

	ch := l.advance()

	switch ch {
	case '{':
		return Token{LBRACE, start, l.pos, startLine, startCol}
	case '}':
		return Token{RBRACE, start, l.pos, startLine, startCol}
	case '(':
		return Token{LPAREN, start, l.pos, startLine, startCol}
	case ')':
		return Token{RPAREN, start, l.pos, startLine, startCol}
	case '=':
		return Token{EQUALS, start, l.pos, startLine, startCol}
	case ';':
		return Token{SEMI, start, l.pos, startLine, startCol}
	case ',':
		return Token{COMMA, start, l.pos, startLine, startCol}
	case '"':
		return l.scanString(start, startLine, startCol)
	default:
		return l.scanWord(start, startLine, startCol)
	}
}

// scanString scans a quoted string: "..."
func (l *Lexer) scanString(start, line, col int) Token {
	// Opening quote already consumed
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == '"' {
			l.advance()
			return Token{STRING, start, l.pos, line, col}
		}
		if ch == '\n' {
			break
		}
		if ch == '\\' && l.pos+1 < len(l.source) && l.source[l.pos+1] != '\n' {
			l.advance() // skip backslash
		}
		l.advance()
	}

	kind := report.Syntax
	if l.pos >= len(l.source) {
		kind = report.EndOfInput
	}
	l.fail(kind, line, col, "unterminated string")
	return Token{ILLEGAL, start, l.pos, line, col}
}

// scanWord scans a bare word. It stops at whitespace, punctuation, quotes and
// comment openers.
func (l *Lexer) scanWord(start, line, col int) Token {
	// First character already consumed
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if isSpace(ch) || isPunct(ch) || ch == '"' {
			break
		}
		if ch == '/' && (l.peekAt(1) == '/' || l.peekAt(1) == '*') {
			break
		}
		l.advance()
	}
	return Token{WORD, start, l.pos, line, col}
}

// skipWhitespace skips whitespace and updates line/column tracking.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.source) && isSpace(l.source[l.pos]) {
		l.advance()
	}
}

// skipLineComment skips a // comment up to and including the newline.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.source) && l.source[l.pos] != '\n' {
		l.advance()
	}
	if l.pos < len(l.source) {
		l.advance()
	}
}

// skipBlockComment skips a /* */ comment. It reports false when the comment
// is not closed before the end of input.
func (l *Lexer) skipBlockComment() bool {
	line, col := l.line, l.column
	l.advance()
	l.advance()
	for l.pos < len(l.source) {
		if l.source[l.pos] == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			return true
		}
		l.advance()
	}
	l.fail(report.EndOfInput, line, col, "unterminated block comment")
	return false
}

func (l *Lexer) fail(kind report.Kind, line, col int, msg string) {
	if l.err != nil {
		return
	}
	l.err = report.Errorf(kind, l.filename, "%s", msg).At(report.Position{
		Filename: l.filename,
		Line:     line,
		Column:   col,
	})
}

// Helper methods

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isPunct(ch byte) bool {
	switch ch {
	case '{', '}', '(', ')', '=', ';', ',':
		return true
	}
	return false
}

func (l *Lexer) peek() byte {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.source) {
		return 0
	}
	return l.source[l.pos+n]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}
