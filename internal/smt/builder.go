package smt

const (
	True  = Symbol("true")
	False = Symbol("false")
)

// And builds an n-ary conjunction. The empty conjunction is true and a
// single conjunct is returned as is.
func And(es ...Expr) Expr {
	return nary("and", True, es)
}

// Or builds an n-ary disjunction. The empty disjunction is false and a
// single disjunct is returned as is.
func Or(es ...Expr) Expr {
	return nary("or", False, es)
}

func nary(op string, unit Symbol, es []Expr) Expr {
	switch len(es) {
	case 0:
		return unit
	case 1:
		return es[0]
	}
	l := make(List, 0, len(es)+1)
	l = append(l, Symbol(op))
	return append(l, es...)
}

// Not negates e.
func Not(e Expr) Expr {
	return List{Symbol("not"), e}
}

// Implies builds (=> a b).
func Implies(a, b Expr) Expr {
	return List{Symbol("=>"), a, b}
}

// Eq builds (= a b).
func Eq(a, b Expr) Expr {
	return List{Symbol("="), a, b}
}

// App applies the function name to args. With no arguments the bare
// symbol is returned, since nullary functions are referenced unapplied.
func App(name string, args ...Expr) Expr {
	if len(args) == 0 {
		return Symbol(name)
	}
	l := make(List, 0, len(args)+1)
	l = append(l, Symbol(name))
	return append(l, args...)
}

// Symbols converts names to terms.
func Symbols(names ...string) []Expr {
	out := make([]Expr, len(names))
	for i, n := range names {
		out[i] = Symbol(n)
	}
	return out
}

// Binding is a sorted variable used by quantifiers and definitions.
type Binding struct {
	Name string
	Sort string
}

func bindings(bs []Binding) List {
	l := make(List, len(bs))
	for i, b := range bs {
		l[i] = List{Symbol(b.Name), Symbol(b.Sort)}
	}
	return l
}

// Exists builds (exists ((v S) ...) body).
func Exists(vars []Binding, body Expr) Expr {
	if len(vars) == 0 {
		return body
	}
	return List{Symbol("exists"), bindings(vars), body}
}

// DefineFun builds (define-fun name ((p S) ...) sort body).
func DefineFun(name string, params []Binding, sort string, body Expr) Expr {
	return List{Symbol("define-fun"), Symbol(name), bindings(params), Symbol(sort), body}
}

// DeclareFun builds (declare-fun name () sort).
func DeclareFun(name, sort string) Expr {
	return List{Symbol("declare-fun"), Symbol(name), List{}, Symbol(sort)}
}
