package codegen

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// D-Code registers.
const (
	RegAC  = 0 // accumulator
	RegAC1 = 1 // secondary accumulator
	RegGP  = 5 // global pointer
	RegMP  = 6 // frame (memory) pointer
	RegPC  = 7 // program counter
)

// NumRegs is the size of the register file.
const NumRegs = 8

// Activation-record slot offsets, relative to the frame base.
const (
	OfpFO  = 0  // saved old frame pointer
	RetFO  = -1 // saved return address
	InitFO = -2 // frame size record
)

// WordSize is the size of one machine word in stack slots.
const WordSize = 1

// SaveAreaSize is the number of words of the fixed per-frame save area
// (ofp, ret, init).
const SaveAreaSize = 3

// InstrFormat discriminates the line forms of the D-Code output.
type InstrFormat int

const (
	FormatRO      InstrFormat = iota // OP r, s, t
	FormatRM                         // OP r, offset(base)
	FormatLabel                      // name:
	FormatComment                    // * text
)

// Instruction is one structured line of emitted D-Code. Jump targets are
// either resolved (Offset holds the address) or pending (Label holds the
// symbolic target until the back-fill pass).
type Instruction struct {
	Format  InstrFormat
	Addr    int // emit location; meaningful for FormatRO and FormatRM
	Op      string
	R, S, T int    // register-only operands
	Offset  int    // register-memory offset, or resolved target address
	Base    int    // register-memory base register
	Label   string // label name (FormatLabel) or pending target (FormatRM)
	Pending bool   // true while Offset awaits label resolution
	Comment string
}

// String renders the instruction in the output format, with comments
// included.
func (in *Instruction) String() string {
	switch in.Format {
	case FormatRO:
		s := fmt.Sprintf("%3d:  %-5s %d, %d, %d", in.Addr, in.Op, in.R, in.S, in.T)
		if in.Comment != "" {
			s += "\t; " + in.Comment
		}
		return s
	case FormatRM:
		var s string
		if in.Pending {
			s = fmt.Sprintf("%3d:  %-5s %d, %s(%d)", in.Addr, in.Op, in.R, in.Label, in.Base)
		} else {
			s = fmt.Sprintf("%3d:  %-5s %d, %d(%d)", in.Addr, in.Op, in.R, in.Offset, in.Base)
		}
		if in.Comment != "" {
			s += "\t; " + in.Comment
		}
		return s
	case FormatLabel:
		s := in.Label + ":"
		if in.Comment != "" {
			s += "\t; " + in.Comment
		}
		return s
	default:
		return "* " + in.Comment
	}
}

// Emitter is the instruction-emission facade. It assigns monotonically
// increasing addresses to emitted instructions, records label definitions,
// and defers jumps to labels not yet defined until Backfill.
type Emitter struct {
	instructions []Instruction
	emitLoc      int
	labels       map[string]int
	pending      []int // indices of instructions awaiting resolution
	trace        bool
}

// NewEmitter creates an empty Emitter. When trace is set, comment operands
// and free comment lines are kept in the output.
func NewEmitter(trace bool) *Emitter {
	return &Emitter{labels: make(map[string]int), trace: trace}
}

// Location returns the address the next emitted instruction will get.
func (e *Emitter) Location() int {
	return e.emitLoc
}

// Instructions exposes the emitted records for inspection.
func (e *Emitter) Instructions() []Instruction {
	return e.instructions
}

// EmitRO emits a register-only instruction: r <- s op t.
func (e *Emitter) EmitRO(op string, r, s, t int, comment string) {
	e.instructions = append(e.instructions, Instruction{
		Format: FormatRO, Addr: e.emitLoc, Op: op, R: r, S: s, T: t,
		Comment: comment,
	})
	log.Debugf("%3d: %s %d,%d,%d", e.emitLoc, op, r, s, t)
	e.emitLoc++
}

// EmitRM emits a register-memory instruction: r <-> mem[offset + reg[base]].
func (e *Emitter) EmitRM(op string, r, offset, base int, comment string) {
	e.instructions = append(e.instructions, Instruction{
		Format: FormatRM, Addr: e.emitLoc, Op: op, R: r, Offset: offset, Base: base,
		Comment: comment,
	})
	log.Debugf("%3d: %s %d,%d(%d)", e.emitLoc, op, r, offset, base)
	e.emitLoc++
}

// EmitGoto emits a register-memory instruction whose offset is the address
// of a label, resolved during Backfill. The base register is kept for the
// textual form; it reads as zero at run time.
func (e *Emitter) EmitGoto(op string, r int, label string, base int, comment string) {
	e.pending = append(e.pending, len(e.instructions))
	e.instructions = append(e.instructions, Instruction{
		Format: FormatRM, Addr: e.emitLoc, Op: op, R: r, Base: base,
		Label: label, Pending: true, Comment: comment,
	})
	log.Debugf("%3d: %s %d,%s(%d)", e.emitLoc, op, r, label, base)
	e.emitLoc++
}

// EmitLabel defines name at the current emit location.
func (e *Emitter) EmitLabel(name, comment string) error {
	if _, defined := e.labels[name]; defined {
		return errors.Wrapf(ErrInvalidNode, "label %q defined twice", name)
	}
	e.labels[name] = e.emitLoc
	e.instructions = append(e.instructions, Instruction{
		Format: FormatLabel, Label: name, Comment: comment,
	})
	log.Debugf("%s: (at %d)", name, e.emitLoc)
	return nil
}

// EmitComment emits a free comment line. Dropped unless tracing.
func (e *Emitter) EmitComment(text string) {
	if !e.trace {
		return
	}
	e.instructions = append(e.instructions, Instruction{
		Format: FormatComment, Comment: text,
	})
}

// Backfill resolves every deferred jump against the label table. Any label
// still undefined fails the whole translation.
func (e *Emitter) Backfill() error {
	for _, idx := range e.pending {
		in := &e.instructions[idx]
		addr, ok := e.labels[in.Label]
		if !ok {
			return errors.Wrapf(ErrUnresolvedLabel, "%q", in.Label)
		}
		in.Offset = addr
		in.Pending = false
	}
	e.pending = e.pending[:0]
	return nil
}

// Write renders the instruction stream. Instruction comments are stripped
// unless tracing; pending instructions must have been backfilled.
func (e *Emitter) Write(w io.Writer) error {
	for i := range e.instructions {
		in := e.instructions[i]
		if in.Pending {
			return errors.Wrapf(ErrUnresolvedLabel, "%q", in.Label)
		}
		if !e.trace {
			in.Comment = ""
		}
		if in.Format == FormatComment && in.Comment == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, in.String()); err != nil {
			return err
		}
	}
	return nil
}
