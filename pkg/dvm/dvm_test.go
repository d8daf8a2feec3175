package dvm

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoadProgram(t *testing.T) {
	listing := `* a comment line
  0:  LD    6, 0(0)	; load max address
main:	; entry
  1:  LDC   0, 42(0)
  2:  ADD   0, 0, 1
  3:  HALT  0, 0, 0
`
	prog, err := LoadProgram(strings.NewReader(listing))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.instrs) != 4 {
		t.Fatalf("got %d instructions, want 4", len(prog.instrs))
	}
	if in := prog.instrs[1]; in.Op != "LDC" || in.Offset != 42 {
		t.Errorf("instruction 1: got %+v, want LDC 0,42(0)", in)
	}
	if in := prog.instrs[2]; in.Op != "ADD" || in.R != 0 || in.T != 1 {
		t.Errorf("instruction 2: got %+v, want ADD 0,0,1", in)
	}
}

func TestLoadProgramErrors(t *testing.T) {
	tests := []struct {
		name    string
		listing string
	}{
		{"unknown opcode", "  0:  NOP   0, 0, 0"},
		{"bad register", "  0:  ADD   9, 0, 0"},
		{"bad operand shape", "  0:  LD    0, 5"},
		{"missing colon", "LD 0, 5(0)"},
		{"duplicate address", "  0:  HALT  0, 0, 0\n  0:  HALT  0, 0, 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadProgram(strings.NewReader(tt.listing)); err == nil {
				t.Fatal("expected a load error")
			}
		})
	}
}

func run(t *testing.T, listing, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := Run(strings.NewReader(listing), strings.NewReader(input), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return out.String()
}

func TestRunArithmetic(t *testing.T) {
	listing := `
  0:  LDC   0, 6(0)
  1:  LDC   1, 7(0)
  2:  MUL   0, 0, 1
  3:  OUT   0, 0, 0
  4:  HALT  0, 0, 0
`
	if got := run(t, listing, ""); got != "42\n" {
		t.Errorf("got %q, want %q", got, "42\n")
	}
}

func TestRunEcho(t *testing.T) {
	listing := `
  0:  IN    0, 0, 0
  1:  OUT   0, 0, 0
  2:  HALT  0, 0, 0
`
	if got := run(t, listing, "17"); got != "17\n" {
		t.Errorf("got %q, want %q", got, "17\n")
	}
}

func TestRunConditionalJump(t *testing.T) {
	// outputs 1 when the input is negative, 0 otherwise
	listing := `
  0:  IN    0, 0, 0
  1:  JLT   0, 4(5)
  2:  LDC   0, 0(0)
  3:  LDA   7, 5(5)
  4:  LDC   0, 1(0)
  5:  OUT   0, 0, 0
  6:  HALT  0, 0, 0
`
	if got := run(t, listing, "-3"); got != "1\n" {
		t.Errorf("negative input: got %q, want %q", got, "1\n")
	}
	if got := run(t, listing, "3"); got != "0\n" {
		t.Errorf("positive input: got %q, want %q", got, "0\n")
	}
}

func TestRunMemory(t *testing.T) {
	listing := `
  0:  LDC   0, 99(0)
  1:  ST    0, 5(1)
  2:  LD    1, 5(1)
  3:  OUT   1, 0, 0
  4:  HALT  0, 0, 0
`
	if got := run(t, listing, ""); got != "99\n" {
		t.Errorf("got %q, want %q", got, "99\n")
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		input   string
	}{
		{"division by zero", "  0:  LDC   0, 1(0)\n  1:  LDC   1, 0(0)\n  2:  DIV   0, 0, 1\n  3:  HALT  0, 0, 0", ""},
		{"missing instruction", "  0:  LDA   7, 50(5)", ""},
		{"data address out of range", "  0:  ST    0, -5(1)\n  1:  HALT  0, 0, 0", ""},
		{"input exhausted", "  0:  IN    0, 0, 0\n  1:  HALT  0, 0, 0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := LoadProgram(strings.NewReader(tt.listing))
			if err != nil {
				return // a load error also satisfies the case
			}
			var out bytes.Buffer
			if err := NewMachine(prog, strings.NewReader(tt.input), &out).Run(); err == nil {
				t.Fatal("expected a runtime error")
			}
		})
	}
}

func TestStepLimit(t *testing.T) {
	listing := "  0:  LDA   7, 0(5)" // tight infinite loop
	prog, err := LoadProgram(strings.NewReader(listing))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := NewMachine(prog, strings.NewReader(""), &bytes.Buffer{})
	m.MaxStep = 1000
	if err := m.Run(); err == nil {
		t.Fatal("expected the step limit to fire")
	}
}
