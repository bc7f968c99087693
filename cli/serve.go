package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/declkit/web"
)

type ServeCmd struct {
	File       string   `help:"Declaration file to serve." arg:"" type:"existingfile"`
	Types      []string `help:"Declaration types to load (all types if omitted)." name:"type" short:"t" placeholder:"TYPE"`
	Port       int      `help:"Port to listen on." default:"8080"`
	Watch      bool     `help:"Reload when the file changes." default:"true" negatable:""`
	WriteCache bool     `help:"Refresh the binary cache after every text load."`
	Compress   bool     `help:"Compress refreshed caches with zstd." short:"z"`
}

func (cmd *ServeCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runCtx, reportTelemetry := globals.startTelemetry(runCtx, ctx.Stderr)
	defer reportTelemetry()

	declFile, err := filepath.Abs(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	version := Version
	if version == "" {
		version = "dev"
	}
	commitSHA := CommitSHA
	if commitSHA == "" {
		commitSHA = "local"
	}

	server := web.NewWithVersion(cmd.Port, declFile, version, commitSHA)
	server.Types = cmd.Types
	server.WatchEnabled = cmd.Watch
	server.WriteCache = cmd.WriteCache
	server.Compress = cmd.Compress

	printInfof(ctx.Stdout, "Starting server on %s:%d", server.Host, cmd.Port)
	printInfof(ctx.Stdout, "Serving declarations: %s", pathStyle.Render(declFile))

	if cmd.Watch {
		printInfof(ctx.Stdout, "Watching for changes")
	}

	return server.Start(runCtx)
}
