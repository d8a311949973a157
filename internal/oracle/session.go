package oracle

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/smt"
)

// Session is an Oracle backed by one long-lived incremental prover. The
// theory is loaded once and every query runs inside its own push/pop
// scope. Replies are framed by an echoed marker, so a query never waits
// on prover exit.
//
// A Session is safe for concurrent use; queries are serialized. After a
// timeout or a broken pipe the prover is killed and every later call
// fails with the same error.
type Session struct {
	cfg     Config
	logger  *zap.Logger
	oneShot *Process

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	stderr bytes.Buffer
	seq    int
	dead   error
}

var _ Oracle = (*Session)(nil)

// StartSession launches the prover and loads theory into it.
func StartSession(ctx context.Context, cfg Config, theory string, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		cfg:     cfg,
		logger:  logger,
		oneShot: NewProcess(cfg, theory, logger),
		lines:   make(chan string, 64),
	}

	s.cmd = exec.Command(cfg.Path, cfg.args(cfg.IncrementalArgs)...)
	s.cmd.Stderr = &s.stderr
	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, &EnvironmentError{Path: cfg.Path, Reason: "cannot open prover stdin", Err: err}
	}
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, &EnvironmentError{Path: cfg.Path, Reason: "cannot open prover stdout", Err: err}
	}
	if err := s.cmd.Start(); err != nil {
		return nil, &EnvironmentError{Path: cfg.Path, Reason: "cannot start prover", Err: err}
	}
	s.stdin = stdin
	go s.readLines(stdout)

	prelude := new(smt.Script).SetOption("print-success", "false").String() +
		smt.NewScript(cfg.Logic).Raw(theory).String()
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.roundTrip(ctx, prelude)
	if err != nil {
		s.kill(err)
		return nil, err
	}
	if len(lines) > 0 {
		err := protocolError("prover rejected the theory", prelude, strings.Join(lines, "\n"), "")
		s.kill(err)
		return nil, err
	}
	logger.Debug("prover session started", zap.String("path", cfg.Path), zap.Int("pid", s.cmd.Process.Pid))
	return s, nil
}

func (s *Session) readLines(r io.Reader) {
	defer close(s.lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		s.lines <- sc.Text()
	}
}

func (s *Session) CheckValid(ctx context.Context, formula smt.Expr, want []smt.Expr) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request := new(smt.Script).Push().Assert(smt.Not(formula)).CheckSat().String()
	lines, err := s.roundTrip(ctx, request)
	if err != nil {
		return Outcome{}, err
	}
	reply := strings.Join(lines, "\n")

	// get-value is only legal after sat, so values are requested in a
	// second exchange once the verdict is known.
	if len(lines) == 1 && strings.TrimSpace(lines[0]) == verdictSat && len(want) > 0 {
		values := new(smt.Script)
		for _, w := range want {
			values.GetValue(w)
		}
		more, err := s.roundTrip(ctx, values.String())
		if err != nil {
			return Outcome{}, err
		}
		request += values.String()
		reply += "\n" + strings.Join(more, "\n")
	}

	if _, err := s.roundTrip(ctx, new(smt.Script).Pop().String()); err != nil {
		return Outcome{}, err
	}
	return parseValidReply(request, reply, "", want, nil)
}

func (s *Session) CheckBatch(ctx context.Context, formulas []smt.Expr) ([]Outcome, error) {
	if len(formulas) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	script := new(smt.Script)
	for _, f := range formulas {
		script.Scoped(f)
	}
	request := script.String()
	lines, err := s.roundTrip(ctx, request)
	if err != nil {
		return nil, err
	}
	return parseBatchReply(len(formulas), request, strings.Join(lines, "\n"), "")
}

// Simplify needs dump options that an incremental session does not run
// with, so it goes through a one-shot process.
func (s *Session) Simplify(ctx context.Context, formula smt.Expr) (smt.Expr, error) {
	return s.oneShot.Simplify(ctx, formula)
}

// Close asks the prover to exit and waits for it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead != nil {
		return nil
	}
	s.dead = errors.New("oracle: session closed")
	_, _ = io.WriteString(s.stdin, "(exit)\n")
	_ = s.stdin.Close()
	go drain(s.lines)
	return s.cmd.Wait()
}

// roundTrip writes text followed by an echo marker and collects the reply
// lines up to the marker. Callers hold mu.
func (s *Session) roundTrip(ctx context.Context, text string) ([]string, error) {
	if s.dead != nil {
		return nil, s.dead
	}
	s.seq++
	marker := fmt.Sprintf("bowtie-%d", s.seq)
	payload := text + new(smt.Script).Echo(marker).String()

	if s.cfg.DumpScripts {
		s.logger.Debug("prover request", zap.String("script", payload))
	}
	if _, err := io.WriteString(s.stdin, payload); err != nil {
		err = &EnvironmentError{Path: s.cfg.Path, Reason: "prover session is gone", Err: err}
		s.kill(err)
		return nil, err
	}

	var timeout <-chan time.Time
	if s.cfg.Timeout > 0 {
		t := time.NewTimer(s.cfg.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	var lines []string
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				err := protocolError("prover exited mid-reply", payload, strings.Join(lines, "\n"), "")
				s.kill(err)
				err.Stderr = s.stderr.String()
				return nil, err
			}
			if strings.Trim(strings.TrimSpace(line), `"`) == marker {
				if s.cfg.DumpScripts {
					s.logger.Debug("prover reply", zap.Strings("lines", lines))
				}
				return lines, nil
			}
			lines = append(lines, line)
		case <-timeout:
			err := fmt.Errorf("%w after %s", ErrTimeout, s.cfg.Timeout)
			s.kill(err)
			return nil, err
		case <-ctx.Done():
			s.kill(ctx.Err())
			return nil, ctx.Err()
		}
	}
}

// kill terminates the prover and poisons the session with cause.
func (s *Session) kill(cause error) {
	if s.dead != nil {
		return
	}
	s.dead = cause
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	go drain(s.lines)
	_ = s.cmd.Wait()
}

func drain(lines <-chan string) {
	for range lines {
	}
}
