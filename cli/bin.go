package cli

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/declkit/loader"
)

// askYesNo is replaced in tests.
var askYesNo = promptYesNo

type BinCmd struct {
	DeclFlags `embed:""`

	File     FileOrStdin `help:"Declaration filename." arg:""`
	Compress bool        `help:"Compress the cache with zstd." short:"z"`
	Force    bool        `help:"Overwrite a cache that is newer than the text file without asking." short:"f"`
}

func (cmd *BinCmd) Run(ctx *kong.Context, globals *Globals) error {
	if cmd.File.IsStdin() {
		return fmt.Errorf("a cache is written next to its text file, stdin is not supported")
	}

	runCtx, reportTelemetry := globals.startTelemetry(context.Background(), ctx.Stderr)
	defer reportTelemetry()

	// Caches hold declarations as written; inheritance is resolved after loading.
	res, err := cmd.load(runCtx, &cmd.File, loadOptions{compress: cmd.Compress, text: true})
	res.printDiagnostics(ctx.Stderr, &cmd.File, err)
	if err != nil {
		return NewCommandError(1)
	}

	var (
		write func(context.Context, string) error
		ldr   *loader.Loader
	)
	if res.xdecls != nil {
		write, ldr = res.xdecls.MakeBinary, res.xdecls.Loader()
	} else {
		write, ldr = res.decls.MakeBinary, res.decls.Loader()
	}
	binPath := ldr.BinaryPath(cmd.File.Filename)

	if !cmd.Force && ldr.FS().Exists(binPath) {
		newer, err := ldr.Newer(binPath, cmd.File.Filename)
		if err != nil {
			return err
		}
		if newer {
			confirmed, err := askYesNo(fmt.Sprintf("Cache %q is newer than its text file. Overwrite it?", binPath))
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			if !confirmed {
				printInfof(ctx.Stdout, "Kept %s", pathStyle.Render(binPath))
				return nil
			}
		}
	}

	if err := write(runCtx, cmd.File.Filename); err != nil {
		printError(ctx.Stderr, err.Error())
		return NewCommandError(1)
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("Wrote %s (%s)", pathStyle.Render(binPath), res.count()))

	return nil
}
