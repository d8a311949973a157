package smt

import "fmt"

// TokenType defines the kinds of tokens produced by the lexer.
type TokenType int

const (
	TokenLParen TokenType = iota // '('
	TokenRParen                  // ')'
	TokenAtom                    // symbol, numeral, keyword, |quoted| symbol or string literal
	TokenEOF                     // end of input
)

// Token is a single lexical token with its starting offset in the input.
type Token struct {
	Type     TokenType
	Value    string
	Position int
}

// Lexer scans SMT-LIB text into tokens.
type Lexer struct {
	input    string
	position int
	tokens   []Token
}

// NewLexer returns a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		tokens: make([]Token, 0),
	}
}

// Tokenize processes the whole input. String literals and quoted
// symbols must be closed before the end of input.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.position < len(l.input) {
		start := l.position
		switch c := l.input[l.position]; {
		case c == '(':
			l.addToken(TokenLParen, "(", start)
			l.position++
		case c == ')':
			l.addToken(TokenRParen, ")", start)
			l.position++
		case c == ';':
			l.skipComment()
		case isWhitespace(c):
			l.position++
		case c == '|':
			if err := l.lexDelimited('|', start); err != nil {
				return nil, err
			}
		case c == '"':
			if err := l.lexString(start); err != nil {
				return nil, err
			}
		default:
			l.lexAtom(start)
		}
	}

	l.addToken(TokenEOF, "", l.position)
	return l.tokens, nil
}

func (l *Lexer) skipComment() {
	for l.position < len(l.input) && l.input[l.position] != '\n' {
		l.position++
	}
}

// lexDelimited scans a |quoted| symbol including both bars.
func (l *Lexer) lexDelimited(delim byte, start int) error {
	l.position++
	for l.position < len(l.input) && l.input[l.position] != delim {
		l.position++
	}
	if l.position >= len(l.input) {
		return fmt.Errorf("unterminated %c at offset %d", delim, start)
	}
	l.position++
	l.addToken(TokenAtom, l.input[start:l.position], start)
	return nil
}

// lexString scans a string literal. A doubled quote is an escaped quote.
func (l *Lexer) lexString(start int) error {
	l.position++
	for l.position < len(l.input) {
		if l.input[l.position] == '"' {
			if l.position+1 < len(l.input) && l.input[l.position+1] == '"' {
				l.position += 2
				continue
			}
			l.position++
			l.addToken(TokenAtom, l.input[start:l.position], start)
			return nil
		}
		l.position++
	}
	return fmt.Errorf("unterminated string literal at offset %d", start)
}

func (l *Lexer) lexAtom(start int) {
	for l.position < len(l.input) {
		c := l.input[l.position]
		if c == '(' || c == ')' || c == ';' || c == '"' || c == '|' || isWhitespace(c) {
			break
		}
		l.position++
	}
	l.addToken(TokenAtom, l.input[start:l.position], start)
}

func (l *Lexer) addToken(tokenType TokenType, value string, pos int) {
	l.tokens = append(l.tokens, Token{
		Type:     tokenType,
		Value:    value,
		Position: pos,
	})
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
