package smt

import "strings"

// Expr is an SMT-LIB s-expression.
type Expr interface {
	String() string
	isExpr()
}

// Symbol is an atom: a symbol, a numeral, a keyword or a string literal.
type Symbol string

func (Symbol) isExpr() {}

func (s Symbol) String() string { return string(s) }

// List is a parenthesized sequence of terms.
type List []Expr

func (List) isExpr() {}

func (l List) String() string {
	var b strings.Builder
	l.write(&b)
	return b.String()
}

func (l List) write(b *strings.Builder) {
	b.WriteByte('(')
	for i, e := range l {
		if i > 0 {
			b.WriteByte(' ')
		}
		if sub, ok := e.(List); ok {
			sub.write(b)
			continue
		}
		b.WriteString(e.String())
	}
	b.WriteByte(')')
}

// Head returns the leading symbol of a list, or "" when e is not an
// application.
func Head(e Expr) string {
	l, ok := e.(List)
	if !ok || len(l) == 0 {
		return ""
	}
	s, ok := l[0].(Symbol)
	if !ok {
		return ""
	}
	return string(s)
}

// Args returns the arguments of an application.
func Args(e Expr) []Expr {
	l, ok := e.(List)
	if !ok || len(l) == 0 {
		return nil
	}
	return l[1:]
}

// Weight is the number of whitespace-separated tokens in the rendering
// of e. Shorter predicates have smaller weight.
func Weight(e Expr) int {
	return len(strings.Fields(e.String()))
}
