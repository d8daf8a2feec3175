package scanner

import (
	"testing"

	"github.com/martin041313/c-minus/pkg/token"
)

func TestScanAll(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected []token.Type
	}{
		{
			name:   "keywords and identifiers",
			source: "int x; void main(void)",
			expected: []token.Type{
				token.INT, token.ID, token.SEMI,
				token.VOID, token.ID, token.LPAREN, token.VOID, token.RPAREN,
				token.EOF,
			},
		},
		{
			name:   "two-char operators",
			source: "<= >= == != < > =",
			expected: []token.Type{
				token.LTE, token.GTE, token.EQ, token.NEQ,
				token.LT, token.GT, token.ASSIGN, token.EOF,
			},
		},
		{
			name:   "arithmetic and brackets",
			source: "a[2] = b + c * 4 / d - 1;",
			expected: []token.Type{
				token.ID, token.LBRACKET, token.NUM, token.RBRACKET, token.ASSIGN,
				token.ID, token.PLUS, token.ID, token.TIMES, token.NUM,
				token.OVER, token.ID, token.MINUS, token.NUM, token.SEMI, token.EOF,
			},
		},
		{
			name:     "comments are skipped",
			source:   "x /* a comment * with stars */ y",
			expected: []token.Type{token.ID, token.ID, token.EOF},
		},
		{
			name:     "division next to comment",
			source:   "a / /* c */ b",
			expected: []token.Type{token.ID, token.OVER, token.ID, token.EOF},
		},
		{
			name:     "empty input",
			source:   "  \n\t ",
			expected: []token.Type{token.EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := ScanAll([]byte(tt.source))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(toks) != len(tt.expected) {
				t.Fatalf("got %d tokens, want %d", len(toks), len(tt.expected))
			}
			for i, want := range tt.expected {
				if toks[i].Type != want {
					t.Errorf("token %d: got %v, want %v", i, toks[i].Type, want)
				}
			}
		})
	}
}

func TestScanValues(t *testing.T) {
	toks, err := ScanAll([]byte("count = 4217;"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Lexeme != "count" {
		t.Errorf("got lexeme %q, want %q", toks[0].Lexeme, "count")
	}
	if toks[2].Val != 4217 {
		t.Errorf("got value %d, want 4217", toks[2].Val)
	}
}

func TestScanLineNumbers(t *testing.T) {
	toks, err := ScanAll([]byte("a\n\nb /* multi\nline */ c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := []int{1, 3, 4}
	for i, want := range lines {
		if toks[i].Line != want {
			t.Errorf("token %d: got line %d, want %d", i, toks[i].Line, want)
		}
	}
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unterminated comment", "x /* never closed"},
		{"stray character", "x # y"},
		{"lone bang", "x ! y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ScanAll([]byte(tt.source)); err == nil {
				t.Fatal("expected a scan error")
			}
		})
	}
}
