// Package spec holds the lifted model of an abstract data type: its state
// fields, its operations and the background theory defining their pre and
// post relations.
package spec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gnolang/bowtie/internal/smt"
)

// ErrUnresolvedOperation matches every UnresolvedOperationError.
var ErrUnresolvedOperation = errors.New("unresolved operation")

// UnresolvedOperationError names an operation missing from the model,
// along with the operations it does define.
type UnresolvedOperationError struct {
	Name      string
	Available []string
}

func (e *UnresolvedOperationError) Error() string {
	msg := fmt.Sprintf("%s: %q definition not found", ErrUnresolvedOperation, e.Name)
	if len(e.Available) > 0 {
		msg += " (available: " + strings.Join(e.Available, ", ") + ")"
	}
	return msg
}

func (e *UnresolvedOperationError) Is(target error) bool {
	return target == ErrUnresolvedOperation
}

// StatesEqual is the relation comparing two states field by field.
const StatesEqual = "states_equal"

// Field is one component of the abstract state.
type Field struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type" validate:"required"`
}

// Operation is the signature of one state transition. Pre and Post name
// the relations defined by the theory:
//
//	(Pre  fields... args...)
//	(Post fields... args... fields'... result)
type Operation struct {
	Name   string   `yaml:"-"`
	Args   []string `yaml:"args"`
	Result string   `yaml:"result" validate:"required"`
	Pre    string   `yaml:"pre,omitempty"`
	Post   string   `yaml:"post,omitempty"`
}

// Model is a loaded specification.
type Model struct {
	Name        string                `yaml:"name"`
	StateFields []Field               `yaml:"fields" validate:"required,min=1,dive"`
	Operations  map[string]*Operation `yaml:"operations" validate:"required,min=1,dive"`
	Theory      string                `yaml:"theory"`
	// Predicates seed the candidate generator.
	Predicates []string `yaml:"predicates,omitempty"`
}

// Fields returns the state fields in declaration order.
func (m *Model) Fields() []Field {
	return m.StateFields
}

// Operation resolves name, filling in default relation names.
func (m *Model) Operation(name string) (Operation, error) {
	op, ok := m.Operations[name]
	if !ok || op == nil {
		return Operation{}, &UnresolvedOperationError{Name: name, Available: m.OperationNames()}
	}
	out := *op
	out.Name = name
	if out.Pre == "" {
		out.Pre = name + "_pre_condition"
	}
	if out.Post == "" {
		out.Post = name + "_post_condition"
	}
	return out, nil
}

// OperationNames returns the operation names in sorted order.
func (m *Model) OperationNames() []string {
	names := make([]string, 0, len(m.Operations))
	for name := range m.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasErrorFlag reports whether the state carries a Bool field named err,
// which the obligations treat as an error indicator.
func (m *Model) HasErrorFlag() bool {
	for _, f := range m.StateFields {
		if f.Name == "err" && f.Type == "Bool" {
			return true
		}
	}
	return false
}

// Definitions returns the theory text, followed by a generated
// states_equal when the theory lacks one.
func (m *Model) Definitions() string {
	theory := m.Theory
	if m.definesStatesEqual() {
		return theory
	}
	if theory != "" && !strings.HasSuffix(theory, "\n") {
		theory += "\n"
	}
	return theory + m.statesEqual().String() + "\n"
}

func (m *Model) definesStatesEqual() bool {
	cmds, err := smt.ParseAll(m.Theory)
	if err != nil {
		return false
	}
	for _, c := range cmds {
		if smt.Head(c) != "define-fun" {
			continue
		}
		if args := smt.Args(c); len(args) > 0 && args[0].String() == StatesEqual {
			return true
		}
	}
	return false
}

func (m *Model) statesEqual() smt.Expr {
	params := make([]smt.Binding, 0, 2*len(m.StateFields))
	for _, side := range []string{"a_", "b_"} {
		for _, f := range m.StateFields {
			params = append(params, smt.Binding{Name: side + f.Name, Sort: f.Type})
		}
	}
	eqs := make([]smt.Expr, 0, len(m.StateFields))
	for _, f := range m.StateFields {
		eqs = append(eqs, smt.Eq(smt.Symbol("a_"+f.Name), smt.Symbol("b_"+f.Name)))
	}
	return smt.DefineFun(StatesEqual, params, "Bool", smt.And(eqs...))
}
