// Package dvm interprets the textual D-Code listings produced by the code
// generator. It exists so the compiler's output can be executed in tests
// and from the command line without an external virtual machine.
package dvm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/martin041313/c-minus/pkg/codegen"
)

// instrClass distinguishes the two encodings of a D-Code instruction.
type instrClass int

const (
	classRO instrClass = iota
	classRM
)

var opcodes = map[string]instrClass{
	"ADD": classRO, "SUB": classRO, "MUL": classRO, "DIV": classRO,
	"IN": classRO, "OUT": classRO, "HALT": classRO,
	"LD": classRM, "LDA": classRM, "LDC": classRM, "ST": classRM,
	"JLT": classRM, "JLE": classRM, "JGT": classRM, "JGE": classRM,
	"JEQ": classRM, "JNE": classRM,
}

// Instr is one decoded instruction.
type Instr struct {
	Op      string
	Class   instrClass
	R, S, T int // register-only operands
	Offset  int // register-memory offset
	Base    int // register-memory base register
}

// Program is a loaded instruction memory.
type Program struct {
	instrs map[int]Instr
}

// LoadProgram parses a D-Code listing. Label lines and comment lines are
// skipped; instruction addresses may appear in any order but must not
// collide.
func LoadProgram(r io.Reader) (*Program, error) {
	p := &Program{instrs: make(map[int]Instr)}
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if i := strings.Index(line, ";"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}

		colon := strings.Index(line, ":")
		if colon < 0 {
			return nil, errors.Errorf("line %d: missing address separator", lineno)
		}
		addrText := strings.TrimSpace(line[:colon])
		addr, err := strconv.Atoi(addrText)
		if err != nil {
			// a non-numeric prefix is a label definition line
			continue
		}

		instr, err := parseInstr(strings.TrimSpace(line[colon+1:]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineno)
		}
		if _, dup := p.instrs[addr]; dup {
			return nil, errors.Errorf("line %d: duplicate address %d", lineno, addr)
		}
		p.instrs[addr] = instr
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseInstr(text string) (Instr, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Instr{}, errors.New("empty instruction")
	}
	op := fields[0]
	class, ok := opcodes[op]
	if !ok {
		return Instr{}, errors.Errorf("unknown opcode %q", op)
	}
	operands := strings.ReplaceAll(strings.Join(fields[1:], ""), " ", "")

	instr := Instr{Op: op, Class: class}
	if class == classRO {
		parts := strings.Split(operands, ",")
		if len(parts) != 3 {
			return Instr{}, errors.Errorf("%s wants three register operands", op)
		}
		var err error
		if instr.R, err = parseReg(parts[0]); err != nil {
			return Instr{}, err
		}
		if instr.S, err = parseReg(parts[1]); err != nil {
			return Instr{}, err
		}
		if instr.T, err = parseReg(parts[2]); err != nil {
			return Instr{}, err
		}
		return instr, nil
	}

	// RM form: r, offset(base)
	comma := strings.Index(operands, ",")
	lparen := strings.Index(operands, "(")
	if comma < 0 || lparen < comma || !strings.HasSuffix(operands, ")") {
		return Instr{}, errors.Errorf("%s wants r, offset(base)", op)
	}
	var err error
	if instr.R, err = parseReg(operands[:comma]); err != nil {
		return Instr{}, err
	}
	if instr.Offset, err = strconv.Atoi(operands[comma+1 : lparen]); err != nil {
		return Instr{}, errors.Errorf("bad offset %q", operands[comma+1:lparen])
	}
	if instr.Base, err = parseReg(operands[lparen+1 : len(operands)-1]); err != nil {
		return Instr{}, err
	}
	return instr, nil
}

func parseReg(text string) (int, error) {
	r, err := strconv.Atoi(text)
	if err != nil || r < 0 || r >= codegen.NumRegs {
		return 0, errors.Errorf("bad register %q", text)
	}
	return r, nil
}

// Machine executes a loaded Program against a data memory with pluggable
// input and output streams.
type Machine struct {
	prog    *Program
	dMem    []int
	reg     [codegen.NumRegs]int
	in      *bufio.Scanner
	out     io.Writer
	Steps   int
	MaxStep int
}

// DefaultMemSize is the data memory size in words.
const DefaultMemSize = 1024

// DefaultMaxSteps bounds execution so a wrong jump cannot loop forever.
const DefaultMaxSteps = 1_000_000

// NewMachine creates a Machine. The loader convention stores the last data
// address in mem[0]; the program's prologue moves it into mp.
func NewMachine(prog *Program, in io.Reader, out io.Writer) *Machine {
	m := &Machine{
		prog:    prog,
		dMem:    make([]int, DefaultMemSize),
		in:      bufio.NewScanner(in),
		out:     out,
		MaxStep: DefaultMaxSteps,
	}
	m.in.Split(bufio.ScanWords)
	m.dMem[0] = DefaultMemSize - 1
	return m
}

// Run executes from address 0 until HALT.
func (m *Machine) Run() error {
	for {
		if m.Steps >= m.MaxStep {
			return errors.Errorf("step limit of %d exceeded", m.MaxStep)
		}
		m.Steps++

		pc := m.reg[codegen.RegPC]
		instr, ok := m.prog.instrs[pc]
		if !ok {
			return errors.Errorf("no instruction at address %d", pc)
		}
		m.reg[codegen.RegPC] = pc + 1

		halt, err := m.execute(instr)
		if err != nil {
			return errors.Wrapf(err, "at address %d", pc)
		}
		if halt {
			return nil
		}
	}
}

func (m *Machine) execute(instr Instr) (bool, error) {
	switch instr.Op {
	case "HALT":
		return true, nil
	case "IN":
		if !m.in.Scan() {
			return false, errors.New("input exhausted")
		}
		val, err := strconv.Atoi(m.in.Text())
		if err != nil {
			return false, errors.Errorf("bad input %q", m.in.Text())
		}
		m.reg[instr.R] = val
		return false, nil
	case "OUT":
		fmt.Fprintln(m.out, m.reg[instr.R])
		return false, nil
	case "ADD":
		m.reg[instr.R] = m.reg[instr.S] + m.reg[instr.T]
		return false, nil
	case "SUB":
		m.reg[instr.R] = m.reg[instr.S] - m.reg[instr.T]
		return false, nil
	case "MUL":
		m.reg[instr.R] = m.reg[instr.S] * m.reg[instr.T]
		return false, nil
	case "DIV":
		if m.reg[instr.T] == 0 {
			return false, errors.New("division by zero")
		}
		m.reg[instr.R] = m.reg[instr.S] / m.reg[instr.T]
		return false, nil
	}

	addr := instr.Offset + m.reg[instr.Base]
	switch instr.Op {
	case "LD":
		if err := m.checkData(addr); err != nil {
			return false, err
		}
		m.reg[instr.R] = m.dMem[addr]
	case "LDA":
		m.reg[instr.R] = addr
	case "LDC":
		m.reg[instr.R] = instr.Offset
	case "ST":
		if err := m.checkData(addr); err != nil {
			return false, err
		}
		m.dMem[addr] = m.reg[instr.R]
	case "JLT":
		if m.reg[instr.R] < 0 {
			m.reg[codegen.RegPC] = addr
		}
	case "JLE":
		if m.reg[instr.R] <= 0 {
			m.reg[codegen.RegPC] = addr
		}
	case "JGT":
		if m.reg[instr.R] > 0 {
			m.reg[codegen.RegPC] = addr
		}
	case "JGE":
		if m.reg[instr.R] >= 0 {
			m.reg[codegen.RegPC] = addr
		}
	case "JEQ":
		if m.reg[instr.R] == 0 {
			m.reg[codegen.RegPC] = addr
		}
	case "JNE":
		if m.reg[instr.R] != 0 {
			m.reg[codegen.RegPC] = addr
		}
	}
	return false, nil
}

func (m *Machine) checkData(addr int) error {
	if addr < 0 || addr >= len(m.dMem) {
		return errors.Errorf("data address %d out of range", addr)
	}
	return nil
}

// Run loads a listing and executes it in one call.
func Run(listing io.Reader, in io.Reader, out io.Writer) error {
	prog, err := LoadProgram(listing)
	if err != nil {
		return err
	}
	return NewMachine(prog, in, out).Run()
}
