package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/declkit/telemetry"
)

type CheckCmd struct {
	DeclFlags `embed:""`

	File   FileOrStdin `help:"Declaration filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Strict bool        `help:"Fail on warnings and inheritance errors."`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx, reportTelemetry := globals.startTelemetry(context.Background(), ctx.Stderr)
	defer reportTelemetry()

	timer := telemetry.FromContext(runCtx).Start(fmt.Sprintf("check %s", filepath.Base(cmd.File.Filename)))
	res, err := cmd.load(runCtx, &cmd.File, loadOptions{solve: true})
	timer.End()

	res.printDiagnostics(ctx.Stderr, &cmd.File, err)
	if err != nil {
		return NewCommandError(1)
	}

	if problems := len(res.diagnostics.Entries); cmd.Strict && problems > 0 {
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("%s found", plural(problems, "problem")))
		return NewCommandError(1)
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("Check passed: %s", res.count()))

	return nil
}
