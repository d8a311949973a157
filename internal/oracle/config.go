package oracle

import (
	"strings"
	"time"

	"github.com/gnolang/bowtie/internal/smt"
)

// Config describes how to invoke the prover.
type Config struct {
	// Path is the prover executable, looked up on PATH when not absolute.
	Path  string
	Logic string
	// Args are passed on every invocation.
	Args []string
	// IncrementalArgs are appended for batched and session calls.
	IncrementalArgs []string
	// SimplifyArgs are appended for simplification calls.
	SimplifyArgs []string
	VersionArgs  []string
	// ExtraArgs are user supplied and follow Args.
	ExtraArgs  []string
	MinVersion string
	// Timeout bounds a single prover call. Zero disables the bound.
	Timeout time.Duration
	// DumpScripts logs every request and reply at debug level.
	DumpScripts bool
}

// DefaultConfig returns settings for cvc4 with no per-call timeout.
func DefaultConfig() Config {
	return Config{
		Path:            "/usr/local/bin/cvc4",
		Logic:           smt.DefaultLogic,
		Args:            []string{"--lang", "smt2", "--produce-models"},
		IncrementalArgs: []string{"--incremental"},
		SimplifyArgs:    []string{"--dump=assertions", "--dag-thresh=0", "--simplification=none"},
		VersionArgs:     []string{"--version"},
		MinVersion:      "1.5",
	}
}

func (c Config) args(mode []string) []string {
	out := make([]string, 0, len(c.Args)+len(c.ExtraArgs)+len(mode))
	out = append(out, c.Args...)
	out = append(out, c.ExtraArgs...)
	return append(out, mode...)
}

// CacheScope identifies replies that may be shared: same prover, same
// arguments, same background theory.
func (c Config) CacheScope(theory string) string {
	parts := []string{c.Path, c.Logic}
	for _, args := range [][]string{c.Args, c.IncrementalArgs, c.SimplifyArgs, c.ExtraArgs} {
		parts = append(parts, strings.Join(args, "\x1f"))
	}
	return strings.Join(append(parts, theory), "\x00")
}
