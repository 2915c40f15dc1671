package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/pykeio/cargo-no-std/pkg/buildinfo"
	"github.com/pykeio/cargo-no-std/pkg/errors"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130 // shell convention for SIGINT
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package with values injected via
// ldflags at build time.
func SetVersion(v, c, d string) {
	buildinfo.Version = v
	buildinfo.Commit = c
	buildinfo.Date = d
}

// ExitError reports a finished run whose verdict requires a non-zero exit.
// Everything worth saying has already been printed.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode maps the error returned by a command to a process exit code.
func ExitCode(err error) int {
	var exit *ExitError
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	case stderrors.As(err, &exit):
		return exit.Code
	}
	return ExitFailure
}

// Describe returns the message printed for err, or "" when nothing should
// be printed.
func Describe(err error) string {
	var exit *ExitError
	if err == nil || stderrors.As(err, &exit) || stderrors.Is(err, context.Canceled) {
		return ""
	}
	if code := errors.GetCode(err); code != "" {
		return fmt.Sprintf("error: %s (%s)", errors.UserMessage(err), code)
	}
	return "error: " + err.Error()
}

// StripCargoArgs drops the subcommand name cargo passes when the binary is
// run as `cargo no-std`.
func StripCargoArgs(args []string) []string {
	if len(args) > 0 && args[0] == cargoSubcommand {
		return args[1:]
	}
	return args
}
