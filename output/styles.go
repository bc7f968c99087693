// Package output provides styling helpers for terminal output.
package output

import (
	"io"

	"github.com/muesli/termenv"
)

// Styles provides styled output helpers for the CLI. Writers that are not a
// terminal get plain text.
type Styles struct {
	output *termenv.Output
}

// NewStyles creates a new Styles instance for the given writer.
func NewStyles(w io.Writer) *Styles {
	return &Styles{
		output: termenv.NewOutput(w),
	}
}

func (s *Styles) color(text, color string) termenv.Style {
	return s.output.String(text).Foreground(s.output.Color(color))
}

// Success returns a styled success string (green + bold).
func (s *Styles) Success(text string) string {
	return s.color(text, "2").Bold().String()
}

// Error returns a styled error string (red + bold).
func (s *Styles) Error(text string) string {
	return s.color(text, "1").Bold().String()
}

// Warning returns a styled warning (yellow + bold).
func (s *Styles) Warning(text string) string {
	return s.color(text, "3").Bold().String()
}

// FilePath returns a styled file path (cyan).
func (s *Styles) FilePath(text string) string {
	return s.color(text, "6").String()
}

// TypeName returns a styled declaration type name (magenta + bold).
func (s *Styles) TypeName(text string) string {
	return s.color(text, "5").Bold().String()
}

// DeclName returns a styled declaration or node name (yellow).
func (s *Styles) DeclName(text string) string {
	return s.color(text, "3").String()
}

// Key returns a styled dictionary key (blue).
func (s *Styles) Key(text string) string {
	return s.color(text, "4").String()
}

// Keyword returns a styled keyword (bold).
func (s *Styles) Keyword(text string) string {
	return s.output.String(text).Bold().String()
}

// Dim returns dimmed text (for secondary information).
func (s *Styles) Dim(text string) string {
	return s.output.String(text).Faint().String()
}

// Timing returns a timing string, red when the operation was slow and dimmed
// otherwise.
func (s *Styles) Timing(text string, slow bool) string {
	if slow {
		return s.color(text, "1").String()
	}
	return s.Dim(text)
}

// Output returns the underlying termenv Output for advanced usage.
func (s *Styles) Output() *termenv.Output {
	return s.output
}
