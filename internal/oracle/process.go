package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/smt"
)

// Process is an Oracle that starts a fresh prover for every call and
// feeds it the background theory followed by the query.
type Process struct {
	cfg    Config
	theory string
	logger *zap.Logger
}

var _ Oracle = (*Process)(nil)

// NewProcess returns a per-call oracle for the given theory text.
func NewProcess(cfg Config, theory string, logger *zap.Logger) *Process {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Process{cfg: cfg, theory: theory, logger: logger}
}

func (p *Process) script() *smt.Script {
	return smt.NewScript(p.cfg.Logic).Raw(p.theory)
}

func (p *Process) CheckValid(ctx context.Context, formula smt.Expr, want []smt.Expr) (Outcome, error) {
	s := p.script().Assert(smt.Not(formula)).CheckSat()
	for _, w := range want {
		s.GetValue(w)
	}
	request := s.String()
	stdout, stderr, err := p.run(ctx, request, nil)
	exitErr, err := splitExit(err)
	if err != nil {
		return Outcome{}, err
	}
	return parseValidReply(request, stdout, stderr, want, exitErr)
}

func (p *Process) CheckBatch(ctx context.Context, formulas []smt.Expr) ([]Outcome, error) {
	if len(formulas) == 0 {
		return nil, nil
	}
	s := p.script()
	for _, f := range formulas {
		s.Scoped(f)
	}
	request := s.String()
	stdout, stderr, err := p.run(ctx, request, p.cfg.IncrementalArgs)
	exitErr, err := splitExit(err)
	if err != nil {
		return nil, err
	}
	if exitErr != nil {
		return nil, protocolError("prover failed: "+exitErr.Error(), request, stdout, stderr)
	}
	return parseBatchReply(len(formulas), request, stdout, stderr)
}

// Simplify never fails on an unrecognized reply; only a prover that
// cannot be run or times out is an error.
func (p *Process) Simplify(ctx context.Context, formula smt.Expr) (smt.Expr, error) {
	request := p.script().Assert(formula).CheckSat().String()
	stdout, _, err := p.run(ctx, request, p.cfg.SimplifyArgs)
	if _, err = splitExit(err); err != nil {
		return nil, err
	}
	return parseSimplifyReply(stdout, formula), nil
}

func (p *Process) run(ctx context.Context, request string, mode []string) (string, string, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	args := p.cfg.args(mode)
	if p.cfg.DumpScripts {
		p.logger.Debug("prover request",
			zap.String("path", p.cfg.Path),
			zap.Strings("args", args),
			zap.String("script", request),
		)
	}

	cmd := exec.CommandContext(ctx, p.cfg.Path, args...)
	cmd.Stdin = strings.NewReader(request)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", "", fmt.Errorf("%w after %s", ErrTimeout, time.Since(start).Round(time.Millisecond))
		}
		return "", "", ctxErr
	}

	if p.cfg.DumpScripts {
		p.logger.Debug("prover reply",
			zap.String("stdout", stdout.String()),
			zap.String("stderr", stderr.String()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return "", "", &EnvironmentError{Path: p.cfg.Path, Reason: "cannot run prover", Err: err}
	}
	return stdout.String(), stderr.String(), err
}

// splitExit separates a non-zero exit status, which the reply parsers
// judge in context, from failures to run the prover at all.
func splitExit(err error) (exitErr, fatal error) {
	if err == nil {
		return nil, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee, nil
	}
	return nil, err
}
