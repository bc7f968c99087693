package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/declkit/report"
)

// tabWidth is the number of spaces a tab renders as in source context.
const tabWidth = 4

var (
	errCaretStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"}).TabWidth(tabWidth)
)

// ErrorRenderer renders errors with terminal styling and source context.
type ErrorRenderer struct {
	source []byte
}

// NewErrorRenderer creates a renderer with source content for context.
func NewErrorRenderer(source []byte) *ErrorRenderer {
	return &ErrorRenderer{source: source}
}

// Render formats a single error. Errors carrying a source position are shown
// with the surrounding lines and a caret under the offending column.
func (r *ErrorRenderer) Render(err error) string {
	var rerr *report.Error
	if errors.As(err, &rerr) && !rerr.GetPosition().IsZero() && r.source != nil {
		return r.renderWithSourceContext(rerr.GetPosition(), rerr.Error(), r.source)
	}
	return errorStyle.Render(err.Error())
}

// RenderAll formats multiple errors, separating them with blank lines.
func (r *ErrorRenderer) RenderAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, err := range errs {
		buf.WriteString(r.Render(err))

		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

// RenderEntry formats a reported diagnostic on one line.
func (r *ErrorRenderer) RenderEntry(e report.Entry) string {
	var buf strings.Builder
	if e.Context != "" {
		buf.WriteString(pathStyle.Render(e.Context))
		buf.WriteString(": ")
	}
	style := errorStyle
	if !e.Kind.Fatal() {
		style = warningStyle
	}
	buf.WriteString(style.Render(e.Kind.String()))
	buf.WriteString(": ")
	buf.WriteString(e.Message)
	return buf.String()
}

func (r *ErrorRenderer) renderWithSourceContext(pos report.Position, message string, sourceContent []byte) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(sourceContent), "\n")

	startLine := max(pos.Line-3, 0)
	endLine := min(pos.Line+1, len(sourceLines)-1)

	for i := startLine; i <= endLine; i++ {
		buf.WriteString("   ")
		buf.WriteString(errContextStyle.Render(sourceLines[i]))
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(caretPadding(sourceLines[i], pos.Column))
			buf.WriteString(errCaretStyle.Render("^"))
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// caretPadding returns the whitespace that puts a caret under the 1-indexed
// byte column of line. Tabs expand to tabWidth spaces, matching how lipgloss
// renders the context lines, and wide characters count double.
func caretPadding(line string, column int) string {
	prefix := line[:max(min(column-1, len(line)), 0)]
	var buf strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			buf.WriteString(strings.Repeat(" ", tabWidth))
			continue
		}
		buf.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return buf.String()
}
