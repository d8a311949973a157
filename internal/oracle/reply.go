package oracle

import (
	"fmt"
	"strings"

	"github.com/gnolang/bowtie/internal/smt"
)

const (
	verdictSat     = "sat"
	verdictUnsat   = "unsat"
	verdictUnknown = "unknown"
)

// parseValidReply interprets the reply to (assert (not f)) (check-sat)
// followed by one get-value per predicate in want. Values are matched to
// want by position, since solvers are free to reprint the requested term.
func parseValidReply(request, response, stderr string, want []smt.Expr, exitErr error) (Outcome, error) {
	es, err := smt.ParseAll(response)
	if err != nil {
		return Outcome{}, protocolError("malformed reply: "+err.Error(), request, response, stderr)
	}
	if len(es) == 0 {
		return Outcome{}, protocolError("empty reply", request, response, stderr)
	}

	switch es[0].String() {
	case verdictUnsat:
		return Outcome{Valid: true}, nil
	case verdictUnknown:
		// Whatever follows, including a failed get-value, is ignored.
		return Outcome{Unknown: true}, nil
	case verdictSat:
		// get-value after unsat is an error, so a failing exit status only
		// matters when the query was satisfiable.
		if exitErr != nil {
			return Outcome{}, protocolError("prover failed after sat: "+exitErr.Error(), request, response, stderr)
		}
	default:
		return Outcome{}, protocolError("unexpected verdict "+es[0].String(), request, response, stderr)
	}

	out := Outcome{}
	if len(want) == 0 {
		return out, nil
	}
	values := es[1:]
	if len(values) < len(want) {
		return Outcome{}, protocolError("missing get-value replies", request, response, stderr)
	}
	out.Model = make(map[string]bool, len(want))
	for i, w := range want {
		v, ok := modelValue(values[i])
		if !ok {
			return Outcome{}, protocolError("unrecognized get-value reply "+values[i].String(), request, response, stderr)
		}
		out.Model[w.String()] = v
	}
	return out, nil
}

// modelValue extracts the boolean from a ((term value)) reply.
func modelValue(e smt.Expr) (bool, bool) {
	outer, ok := e.(smt.List)
	if !ok || len(outer) == 0 {
		return false, false
	}
	pair, ok := outer[0].(smt.List)
	if !ok || len(pair) != 2 {
		return false, false
	}
	switch pair[1].String() {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// parseBatchReply expects exactly one verdict token per scoped query.
func parseBatchReply(n int, request, response, stderr string) ([]Outcome, error) {
	tokens := strings.Fields(response)
	if len(tokens) != n {
		return nil, protocolError(fmt.Sprintf("reply has %d verdicts for %d queries", len(tokens), n), request, response, stderr)
	}
	out := make([]Outcome, n)
	for i, tok := range tokens {
		switch tok {
		case verdictUnsat:
			out[i] = Outcome{Valid: true}
		case verdictSat:
			out[i] = Outcome{Valid: false}
		case verdictUnknown:
			out[i] = Outcome{Unknown: true}
		default:
			return nil, protocolError("unexpected verdict "+tok, request, response, stderr)
		}
	}
	return out, nil
}

// parseSimplifyReply returns the body of the first dumped assertion, or
// fallback when there is none.
func parseSimplifyReply(response string, fallback smt.Expr) smt.Expr {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "(assert ") {
			continue
		}
		e, err := smt.Parse(line)
		if err != nil || smt.Head(e) != "assert" {
			continue
		}
		if args := smt.Args(e); len(args) == 1 {
			return args[0]
		}
	}
	return fallback
}
