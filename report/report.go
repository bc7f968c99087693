// Package report defines the diagnostics produced while loading declaration
// files and the Reporter contract that receives them.
//
// Loading code returns *Error values up the call stack. The public entry
// points of the parsers hand each error to their Reporter exactly once before
// returning it; non-fatal problems (warnings, broken inheritance edges) are
// reported and not returned.
package report

import (
	"fmt"
)

// Kind classifies a diagnostic.
type Kind uint8

const (
	// Syntax is an unexpected or malformed token.
	Syntax Kind = iota + 1
	// EndOfInput is the syntax variant raised when input ends inside a construct.
	EndOfInput
	// Inheritance is a self-referencing or missing inheritance target.
	Inheritance
	// Open is a failure to open a file for reading or writing.
	Open
	// Read is a failed or truncated read.
	Read
	// Write is a failed write or flush.
	Write
	// Decompress is a corrupt compressed stream.
	Decompress
	// BadMagic is a binary cache whose header does not match its format.
	BadMagic
	// Warning is a non-fatal diagnostic such as an unknown declaration type.
	Warning
)

var kindNames = map[Kind]string{
	Syntax:      "syntax error",
	EndOfInput:  "unexpected end of input",
	Inheritance: "inheritance error",
	Open:        "open error",
	Read:        "read error",
	Write:       "write error",
	Decompress:  "decompression error",
	BadMagic:    "bad magic",
	Warning:     "warning",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Fatal reports whether errors of this kind abort a load.
func (k Kind) Fatal() bool {
	switch k {
	case Inheritance, Warning:
		return false
	}
	return true
}

// Position is a location in a source file.
type Position struct {
	Filename string
	Line     int // Line number (1-indexed)
	Column   int // Column number (1-indexed)
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsZero reports whether the position carries no line information.
func (p Position) IsZero() bool { return p.Line == 0 }

// Error is a diagnostic with its kind, a message, a context parameter (usually
// a file or declaration name) and an optional source position.
type Error struct {
	Kind    Kind
	Message string
	Context string
	Pos     Position
	Err     error
}

func (e *Error) Error() string {
	location := e.Context
	if !e.Pos.IsZero() {
		location = e.Pos.String()
	}
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if location == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", location, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// GetPosition returns the source position of the error.
func (e *Error) GetPosition() Position { return e.Pos }

// Errorf creates an error of the given kind with a formatted message.
func Errorf(kind Kind, context string, format string, args ...any) *Error {
	return &Error{Kind: kind, Context: context, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around an underlying cause.
func Wrap(kind Kind, context string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Context: context, Message: fmt.Sprintf(format, args...), Err: err}
}

// At returns a copy of e positioned at pos.
func (e *Error) At(pos Position) *Error {
	cp := *e
	cp.Pos = pos
	return &cp
}

// Reporter receives diagnostics as (kind, message, context) triples.
type Reporter interface {
	Report(kind Kind, message, context string)
}

// Emit hands err to r and returns it unchanged.
func Emit(r Reporter, err *Error) *Error {
	if r != nil && err != nil {
		r.Report(err.Kind, err.Message, contextOf(err))
	}
	return err
}

func contextOf(err *Error) string {
	if !err.Pos.IsZero() {
		return err.Pos.String()
	}
	return err.Context
}

// Discard is a Reporter that drops everything.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(Kind, string, string) {}

// Func adapts an ordinary function to the Reporter interface.
type Func func(kind Kind, message, context string)

// Report calls f(kind, message, context).
func (f Func) Report(kind Kind, message, context string) { f(kind, message, context) }
