package smt

import "strings"

// DefaultLogic is the logic declared by every script unless configured
// otherwise.
const DefaultLogic = "ALL_SUPPORTED"

// Script accumulates SMT-LIB commands, one per line.
type Script struct {
	b strings.Builder
}

// NewScript starts a script with (set-logic logic).
func NewScript(logic string) *Script {
	if logic == "" {
		logic = DefaultLogic
	}
	s := &Script{}
	s.Command("set-logic", Symbol(logic))
	return s
}

// Raw appends pre-rendered text such as a background theory.
func (s *Script) Raw(text string) *Script {
	if text == "" {
		return s
	}
	s.b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		s.b.WriteByte('\n')
	}
	return s
}

// Command appends (name args...).
func (s *Script) Command(name string, args ...Expr) *Script {
	l := make(List, 0, len(args)+1)
	l = append(l, Symbol(name))
	l = append(l, args...)
	s.b.WriteString(l.String())
	s.b.WriteByte('\n')
	return s
}

func (s *Script) Assert(e Expr) *Script { return s.Command("assert", e) }
func (s *Script) CheckSat() *Script      { return s.Command("check-sat") }
func (s *Script) Push() *Script          { return s.Command("push", Symbol("1")) }
func (s *Script) Pop() *Script           { return s.Command("pop", Symbol("1")) }

// GetValue requests the model value of e.
func (s *Script) GetValue(e Expr) *Script {
	return s.Command("get-value", List{e})
}

// SetOption appends (set-option :key value).
func (s *Script) SetOption(key, value string) *Script {
	return s.Command("set-option", Symbol(":"+key), Symbol(value))
}

// Echo makes the solver print text back. Used to frame replies on a
// long-lived session.
func (s *Script) Echo(text string) *Script {
	return s.Command("echo", Symbol(`"`+strings.ReplaceAll(text, `"`, `""`)+`"`))
}

// Scoped appends a validity query for e inside its own assertion scope:
// push, assert (not e), check-sat, pop. The solver answers unsat exactly
// when e is valid.
func (s *Script) Scoped(e Expr) *Script {
	return s.Push().Assert(Not(e)).CheckSat().Pop()
}

func (s *Script) String() string {
	return s.b.String()
}
