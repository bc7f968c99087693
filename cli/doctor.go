package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/declkit/lexer"
)

// DoctorCmd provides doctor utilities for debugging declaration files.
type DoctorCmd struct {
	Lex LexCmd `cmd:"" help:"Show lexical tokens from a declaration file."`
}

// LexCmd shows lexical tokens from a declaration file.
type LexCmd struct {
	File FileOrStdin `help:"Declaration filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

// Run executes the lex command.
func (cmd *LexCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	content, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	tokens, lexErr := lexer.NewLexer(content, cmd.File.Filename).ScanAll()

	// Format: TYPE line:col "content"
	for _, token := range tokens {
		if token.Type == lexer.EOF {
			continue
		}

		_, _ = fmt.Fprintf(ctx.Stdout, "%-10s %d:%d    %q\n",
			token.Type.String(),
			token.Line,
			token.Column,
			token.String(content))
	}

	if lexErr != nil {
		return fmt.Errorf("failed to lex file: %w", lexErr)
	}
	return nil
}
