// Package bowtie renders the proof obligations relating two operations of
// a specification.
//
// Variables follow a fixed naming scheme. For a state field f, f is the
// start state, f1 and f2 the states after the first and second operation,
// f12 and f21 the states after both in either order. x1..xn are the
// arguments of the first operation and y1..ym those of the second.
package bowtie

import (
	"fmt"
	"strings"

	"github.com/gnolang/bowtie/internal/smt"
	"github.com/gnolang/bowtie/internal/spec"
)

// Names of the definitions an obligation introduces.
const (
	Oper          = "oper"
	Bowtie        = "bowtie"
	Deterministic = "deterministic"
	Complete      = "complete"
)

var suffixes = []string{"", "1", "2", "12", "21"}

// Obligation is the background theory for one pair of operations.
type Obligation struct {
	Mode    Mode
	First   spec.Operation
	Second  spec.Operation
	ErrFlag bool

	model *spec.Model
	decls []smt.Expr
	defs  []smt.Expr
}

// Generate builds the obligation for op1 and op2 of model.
func Generate(model *spec.Model, op1, op2 string, mode Mode) (*Obligation, error) {
	first, err := model.Operation(op1)
	if err != nil {
		return nil, err
	}
	second, err := model.Operation(op2)
	if err != nil {
		return nil, err
	}
	if mode < ModeBowtie || mode > ModeRightMover {
		return nil, fmt.Errorf("invalid mode %d", mode)
	}

	o := &Obligation{
		Mode:    mode,
		First:   first,
		Second:  second,
		ErrFlag: model.HasErrorFlag(),
		model:   model,
	}
	o.declare()
	o.define()
	return o, nil
}

// FirstArgs returns the argument variables of the first operation.
func (o *Obligation) FirstArgs() []smt.Expr { return argVars("x", len(o.First.Args)) }

// SecondArgs returns the argument variables of the second operation.
func (o *Obligation) SecondArgs() []smt.Expr { return argVars("y", len(o.Second.Args)) }

func argVars(prefix string, n int) []smt.Expr {
	out := make([]smt.Expr, n)
	for i := range out {
		out[i] = smt.Symbol(fmt.Sprintf("%s%d", prefix, i+1))
	}
	return out
}

func (o *Obligation) state(suffix string) []smt.Expr {
	fields := o.model.Fields()
	out := make([]smt.Expr, len(fields))
	for i, f := range fields {
		out[i] = smt.Symbol(f.Name + suffix)
	}
	return out
}

func (o *Obligation) declare() {
	for i, t := range o.First.Args {
		o.decls = append(o.decls, smt.DeclareFun(fmt.Sprintf("x%d", i+1), t))
	}
	for i, t := range o.Second.Args {
		o.decls = append(o.decls, smt.DeclareFun(fmt.Sprintf("y%d", i+1), t))
	}
	for _, f := range o.model.Fields() {
		for _, s := range suffixes {
			o.decls = append(o.decls, smt.DeclareFun(f.Name+s, f.Type))
		}
	}
	o.decls = append(o.decls,
		smt.DeclareFun("result1", o.First.Result),
		smt.DeclareFun("result21", o.First.Result),
		smt.DeclareFun("result2", o.Second.Result),
		smt.DeclareFun("result12", o.Second.Result),
	)
	if o.Mode == ModeDeterministic {
		o.decls = append(o.decls, smt.DeclareFun("result1b", o.First.Result))
	}
}

// pre applies op's pre-condition in the state named by from.
func (o *Obligation) pre(op spec.Operation, from string, args []smt.Expr) smt.Expr {
	return smt.App(op.Pre, concat(o.state(from), args)...)
}

// post relates the state from, args, the state to and result.
func (o *Obligation) post(op spec.Operation, from, to string, args []smt.Expr, result string) smt.Expr {
	return smt.App(op.Post, concat(o.state(from), args, o.state(to), []smt.Expr{smt.Symbol(result)})...)
}

func (o *Obligation) define() {
	x, y := o.FirstArgs(), o.SecondArgs()

	oper := []smt.Expr{
		o.pre(o.First, "", x), o.post(o.First, "", "1", x, "result1"),
		o.pre(o.First, "2", x), o.post(o.First, "2", "21", x, "result21"),
		o.pre(o.Second, "", y), o.post(o.Second, "", "2", y, "result2"),
		o.pre(o.Second, "1", y), o.post(o.Second, "1", "12", y, "result12"),
	}
	if o.ErrFlag {
		switch o.Mode {
		case ModeBowtie:
			oper = append(oper, smt.Or(smt.Not(smt.Symbol("err12")), smt.Not(smt.Symbol("err21"))))
		case ModeLeftMover:
			oper = append(oper, smt.Not(smt.Symbol("err21")))
		case ModeRightMover:
			oper = append(oper, smt.Not(smt.Symbol("err12")))
		}
	}
	o.defs = append(o.defs, smt.DefineFun(Oper, nil, "Bool", smt.And(oper...)))

	switch o.Mode {
	case ModeDeterministic:
		o.defs = append(o.defs, smt.DefineFun(Deterministic, nil, "Bool", o.deterministic(x)))
	case ModeComplete:
		o.defs = append(o.defs, smt.DefineFun(Complete, nil, "Bool", o.complete(x)))
	}

	o.defs = append(o.defs, smt.DefineFun(Bowtie, nil, "Bool", smt.And(
		smt.Eq(smt.Symbol("result1"), smt.Symbol("result21")),
		smt.Eq(smt.Symbol("result2"), smt.Symbol("result12")),
		smt.App(spec.StatesEqual, concat(o.state("12"), o.state("21"))...),
	)))
}

// deterministic runs the first operation twice from the same start state.
func (o *Obligation) deterministic(x []smt.Expr) smt.Expr {
	runs := smt.And(
		o.pre(o.First, "", x), o.post(o.First, "", "1", x, "result1"),
		o.pre(o.First, "", x), o.post(o.First, "", "2", x, "result1b"),
	)
	same := smt.And(
		smt.Eq(smt.Symbol("result1"), smt.Symbol("result1b")),
		smt.App(spec.StatesEqual, concat(o.state("1"), o.state("2"))...),
	)
	if o.ErrFlag {
		same = smt.Or(smt.Symbol("err1"), smt.Symbol("err2"), same)
	}
	return smt.Implies(runs, same)
}

// complete states that some successor exists wherever the first
// operation's pre-condition holds.
func (o *Obligation) complete(x []smt.Expr) smt.Expr {
	var vars []smt.Binding
	for _, f := range o.model.Fields() {
		vars = append(vars, smt.Binding{Name: f.Name + "_", Sort: f.Type})
	}
	vars = append(vars, smt.Binding{Name: "result_", Sort: o.First.Result})
	return smt.Implies(
		o.pre(o.First, "", x),
		smt.Exists(vars, o.post(o.First, "", "_", x, "result_")),
	)
}

// Trigger is the conjunction of the transition obligations.
func (o *Obligation) Trigger() smt.Expr { return smt.Symbol(Oper) }

// Property is the definition the mode asks about.
func (o *Obligation) Property() smt.Expr {
	switch o.Mode {
	case ModeDeterministic:
		return smt.Symbol(Deterministic)
	case ModeComplete:
		return smt.Symbol(Complete)
	}
	return smt.Symbol(Bowtie)
}

// Theory renders the model definitions, the declarations and the
// obligation definitions, one command per line.
func (o *Obligation) Theory() string {
	var b strings.Builder
	b.WriteString(o.model.Definitions())
	for _, e := range o.decls {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	for _, e := range o.defs {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func concat(parts ...[]smt.Expr) []smt.Expr {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]smt.Expr, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
