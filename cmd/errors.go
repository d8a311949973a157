package cmd

import (
	"context"
	"errors"

	"github.com/gnolang/bowtie/internal/oracle"
	"github.com/gnolang/bowtie/internal/spec"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUnresolved  = 2
	ExitEnvironment = 3
	ExitProtocol    = 4
	ExitTimeout     = 5
)

// ExitCode maps the error returned by Execute to a process exit code.
func ExitCode(err error) int {
	var (
		envErr   *oracle.EnvironmentError
		protoErr *oracle.ProtocolError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, spec.ErrUnresolvedOperation):
		return ExitUnresolved
	case errors.As(err, &envErr):
		return ExitEnvironment
	case errors.As(err, &protoErr):
		return ExitProtocol
	case errors.Is(err, oracle.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	}
	return ExitFailure
}
