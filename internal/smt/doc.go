// Package smt builds SMT-LIB terms and scripts.
//
// Terms are plain s-expressions: a Symbol is an atom and a List is an
// application or any other parenthesized form. The package holds no
// state; every builder returns a fresh term.
//
// The reader in this package parses solver replies, predicate files and
// the predicates embedded in a spec model. It understands symbols,
// |quoted| symbols, string literals and ';' line comments.
package smt
