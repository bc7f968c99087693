// Package cli provides the commands of the declkit command-line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/robinvdvleuten/declkit/output"
	"github.com/robinvdvleuten/declkit/telemetry"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	warningSymbol = "!"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D7AF00", Dark: "#FFD75F"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		successStyle.Render(successSymbol),
		message,
	)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		errorStyle.Render(errorSymbol),
		errorStyle.Render(message),
	)
}

func printWarning(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		warningStyle.Render(warningSymbol),
		message,
	)
}

func printInfof(w io.Writer, format string, args ...interface{}) {
	formatted := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(w, "%s %s\n",
		infoStyle.Render(infoSymbol),
		formatted,
	)
}

// promptYesNo prompts the user with a yes/no question.
// Returns false by default if stdin is not a terminal.
func promptYesNo(question string) (bool, error) {
	if !isTerminal() {
		return false, nil
	}

	var confirm bool

	form := huh.NewConfirm().
		Title(question).
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)

	err := form.Run()
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	return confirm, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// startTelemetry installs a timing collector when --telemetry is set. The
// returned function prints the collected timings to w.
func (g *Globals) startTelemetry(ctx context.Context, w io.Writer) (context.Context, func()) {
	if !g.Telemetry {
		return ctx, func() {}
	}

	collector := telemetry.NewTimingCollector()
	return telemetry.WithCollector(ctx, collector), func() {
		_, _ = fmt.Fprintln(w)
		collector.Report(w, output.NewStyles(w))
	}
}

// FileOrStdin accepts either a file path or "-" for stdin.
// For stdin: Filename="<stdin>", Contents populated.
// For files: Filename set, Contents nil (read by the parser).
type FileOrStdin struct {
	Filename string
	Contents []byte
}

const stdinName = "<stdin>"

// Decode implements kong.MapperValue.
func (f *FileOrStdin) Decode(ctx *kong.DecodeContext) error {
	var filename string
	if err := ctx.Scan.PopValueInto("filename", &filename); err != nil {
		return err
	}

	if filename == "-" || filename == "" {
		contents, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		f.Filename = stdinName
		f.Contents = contents
		return nil
	}

	if _, err := os.Stat(filename); err != nil {
		return err
	}
	f.Filename = filename
	f.Contents = nil

	return nil
}

// EnsureContents populates Contents from stdin if Filename is empty.
func (f *FileOrStdin) EnsureContents() error {
	if f.Filename == "" {
		contents, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		f.Filename = stdinName
		f.Contents = contents
	}
	return nil
}

// IsStdin reports whether the input was read from stdin.
func (f *FileOrStdin) IsStdin() bool { return f.Filename == stdinName }

// GetSourceContent returns source content for error formatting.
func (f *FileOrStdin) GetSourceContent() ([]byte, error) {
	if f.IsStdin() {
		return f.Contents, nil
	}
	return os.ReadFile(f.Filename)
}

// DisplayName returns the base name of the file, or "<stdin>".
func (f *FileOrStdin) DisplayName() string {
	if f.IsStdin() {
		return f.Filename
	}
	return filepath.Base(f.Filename)
}
