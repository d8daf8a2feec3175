package scanner

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/martin041313/c-minus/pkg/token"
)

// Scanner tokenizes C-minus source text.
type Scanner struct {
	src  []byte
	pos  int
	line int
}

// New creates a Scanner over src.
func New(src []byte) *Scanner {
	return &Scanner{src: src, line: 1}
}

// ScanAll tokenizes the whole input, ending the slice with an EOF token.
func ScanAll(src []byte) ([]token.Token, error) {
	s := New(src)
	var toks []token.Token
	for {
		tok, err := s.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

func (s *Scanner) peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *Scanner) advance() byte {
	c := s.src[s.pos]
	s.pos++
	if c == '\n' {
		s.line++
	}
	return c
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// skipBlanks consumes whitespace and /* */ comments.
func (s *Scanner) skipBlanks() error {
	for s.pos < len(s.src) {
		c := s.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.advance()
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '*':
			start := s.line
			s.advance()
			s.advance()
			for {
				if s.pos >= len(s.src) {
					return errors.Errorf("line %d: unterminated comment", start)
				}
				if s.peek() == '*' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/' {
					s.advance()
					s.advance()
					break
				}
				s.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

// Next returns the next token in the input.
func (s *Scanner) Next() (token.Token, error) {
	if err := s.skipBlanks(); err != nil {
		return token.Token{}, err
	}
	if s.pos >= len(s.src) {
		return token.Token{Type: token.EOF, Line: s.line}, nil
	}

	line := s.line
	c := s.advance()

	switch {
	case isDigit(c):
		start := s.pos - 1
		for s.pos < len(s.src) && isDigit(s.peek()) {
			s.advance()
		}
		lexeme := string(s.src[start:s.pos])
		val, err := strconv.Atoi(lexeme)
		if err != nil {
			return token.Token{}, errors.Wrapf(err, "line %d: bad number %q", line, lexeme)
		}
		return token.Token{Type: token.NUM, Lexeme: lexeme, Val: val, Line: line}, nil

	case isAlpha(c):
		start := s.pos - 1
		for s.pos < len(s.src) && isAlpha(s.peek()) {
			s.advance()
		}
		lexeme := string(s.src[start:s.pos])
		return token.Token{Type: token.LookupIdent(lexeme), Lexeme: lexeme, Line: line}, nil
	}

	two := func(next byte, yes, no token.Type) token.Token {
		if s.peek() == next {
			s.advance()
			return token.Token{Type: yes, Lexeme: yes.String(), Line: line}
		}
		return token.Token{Type: no, Lexeme: no.String(), Line: line}
	}

	switch c {
	case '+':
		return token.Token{Type: token.PLUS, Lexeme: "+", Line: line}, nil
	case '-':
		return token.Token{Type: token.MINUS, Lexeme: "-", Line: line}, nil
	case '*':
		return token.Token{Type: token.TIMES, Lexeme: "*", Line: line}, nil
	case '/':
		return token.Token{Type: token.OVER, Lexeme: "/", Line: line}, nil
	case '<':
		return two('=', token.LTE, token.LT), nil
	case '>':
		return two('=', token.GTE, token.GT), nil
	case '=':
		return two('=', token.EQ, token.ASSIGN), nil
	case '!':
		if s.peek() == '=' {
			s.advance()
			return token.Token{Type: token.NEQ, Lexeme: "!=", Line: line}, nil
		}
		return token.Token{}, errors.Errorf("line %d: unexpected character %q", line, "!")
	case ';':
		return token.Token{Type: token.SEMI, Lexeme: ";", Line: line}, nil
	case ',':
		return token.Token{Type: token.COMMA, Lexeme: ",", Line: line}, nil
	case '(':
		return token.Token{Type: token.LPAREN, Lexeme: "(", Line: line}, nil
	case ')':
		return token.Token{Type: token.RPAREN, Lexeme: ")", Line: line}, nil
	case '[':
		return token.Token{Type: token.LBRACKET, Lexeme: "[", Line: line}, nil
	case ']':
		return token.Token{Type: token.RBRACKET, Lexeme: "]", Line: line}, nil
	case '{':
		return token.Token{Type: token.LBRACE, Lexeme: "{", Line: line}, nil
	case '}':
		return token.Token{Type: token.RBRACE, Lexeme: "}", Line: line}, nil
	}

	return token.Token{}, errors.Errorf("line %d: unexpected character %q", line, string(c))
}
