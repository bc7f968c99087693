package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/declkit/formatter"
)

type FormatCmd struct {
	DeclFlags `embed:""`

	File       FileOrStdin `help:"Declaration filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Indent     int         `help:"Spaces per nesting level." default:"2"`
	NoAlign    bool        `help:"Do not align the = signs of a block."`
	Semicolons bool        `help:"Terminate flat key/value lines with a semicolon."`
}

func (cmd *FormatCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx, reportTelemetry := globals.startTelemetry(context.Background(), ctx.Stderr)
	defer reportTelemetry()

	// Formatting reproduces the text, so caches are never consulted.
	res, err := cmd.load(runCtx, &cmd.File, loadOptions{text: true})
	res.printDiagnostics(ctx.Stderr, &cmd.File, err)
	if err != nil {
		return NewCommandError(1)
	}

	f := formatter.New(
		formatter.WithIndentation(cmd.Indent),
		formatter.WithAlignValues(!cmd.NoAlign),
		formatter.WithSemicolons(cmd.Semicolons),
	)

	if res.xdecls != nil {
		return f.FormatTree(runCtx, res.xdecls.Tree(), ctx.Stdout)
	}
	return f.FormatDecls(runCtx, res.decls, ctx.Stdout)
}
