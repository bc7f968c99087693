package cli

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool `help:"Show timing telemetry for operations."`
}

type Commands struct {
	Globals

	Check  CheckCmd  `cmd:"" help:"Load a declaration file and report problems."`
	Bin    BinCmd    `cmd:"" help:"Write the binary cache of a declaration file."`
	Format FormatCmd `cmd:"" help:"Print a declaration file in canonical form."`
	Dump   DumpCmd   `cmd:"" help:"Print declarations with inheritance resolved."`
	Doctor DoctorCmd `cmd:"" help:"Doctor utilities for debugging declaration files."`
	Serve  ServeCmd  `cmd:"" help:"Start a read-only web inspector."`
}
