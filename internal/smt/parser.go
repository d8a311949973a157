package smt

import (
	"errors"
	"fmt"
)

// ErrEmpty is returned by Parse when the input holds no term.
var ErrEmpty = errors.New("smt: empty input")

// Parse reads exactly one term from input.
func Parse(input string) (Expr, error) {
	es, err := ParseAll(input)
	if err != nil {
		return nil, err
	}
	switch len(es) {
	case 0:
		return nil, ErrEmpty
	case 1:
		return es[0], nil
	default:
		return nil, fmt.Errorf("smt: expected one term, found %d in %q", len(es), input)
	}
}

// MustParse is Parse for literals known to be well formed.
func MustParse(input string) Expr {
	e, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return e
}

// ParseAll reads every top-level term in input.
func ParseAll(input string) ([]Expr, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}

	var out []Expr
	for p.peek().Type != TokenEOF {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (Expr, error) {
	t := p.next()
	switch t.Type {
	case TokenAtom:
		return Symbol(t.Value), nil
	case TokenLParen:
		l := List{}
		for {
			switch p.peek().Type {
			case TokenRParen:
				p.next()
				return l, nil
			case TokenEOF:
				return nil, fmt.Errorf("smt: unbalanced '(' at offset %d", t.Position)
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			l = append(l, e)
		}
	case TokenRParen:
		return nil, fmt.Errorf("smt: unexpected ')' at offset %d", t.Position)
	default:
		return nil, ErrEmpty
	}
}
