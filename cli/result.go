package cli

// CommandError carries the process exit code of a failed command. Commands
// print their diagnostics first and then return it; main exits with ExitCode.
type CommandError struct {
	exitCode int
}

// NewCommandError creates a CommandError with the given exit code.
func NewCommandError(exitCode int) *CommandError {
	return &CommandError{exitCode: exitCode}
}

func (e *CommandError) Error() string {
	return "command failed"
}

// ExitCode returns the process exit code.
func (e *CommandError) ExitCode() int {
	return e.exitCode
}
