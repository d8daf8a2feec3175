package codegen

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/martin041313/c-minus/pkg/ast"
	"github.com/martin041313/c-minus/pkg/token"
)

// SymbolLookup resolves a function name to its declaration node. The back
// end consults it at call sites only, to read the callee's frame size.
type SymbolLookup interface {
	Lookup(name string) *ast.TreeNode
}

// Generator lowers the decorated AST into D-Code through the emission
// facade. The temporary-stack cursor and the label counter live here; the
// cursor is reset explicitly at each function entry, while the label counter
// runs across the whole program so every label is unique.
type Generator struct {
	em        *Emitter
	syms      SymbolLookup
	tmpOffset int
	nextLabel int
}

// CodeGen opens outputPath and generates D-Code for the decorated
// declaration list. The output file is closed on every exit path.
func CodeGen(tree *ast.TreeNode, syms SymbolLookup, outputPath, moduleName string, trace bool) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrapf(ErrOutputOpen, "%s: %v", outputPath, err)
	}
	defer out.Close()

	return Generate(tree, syms, out, moduleName, trace)
}

// Generate runs the layout analyses and emission, writing the finished
// listing to w. It is the in-memory entry point used by tests; CodeGen
// wraps it for file output.
func Generate(tree *ast.TreeNode, syms SymbolLookup, w io.Writer, moduleName string, trace bool) error {
	AnalyzeLayout(tree)

	g := &Generator{em: NewEmitter(trace), syms: syms}
	if err := g.genProgram(tree, moduleName); err != nil {
		return err
	}
	if err := g.em.Backfill(); err != nil {
		return err
	}
	return g.em.Write(w)
}

// newLabel returns a fresh jump-target label.
func (g *Generator) newLabel() string {
	label := fmt.Sprintf("label%d", g.nextLabel)
	g.nextLabel++
	return label
}

// genProgram emits the register setup, the jump to main, the two built-in
// routines, all top-level declarations, and the closing HALT.
func (g *Generator) genProgram(tree *ast.TreeNode, moduleName string) error {
	g.em.EmitComment("D-Code for module " + moduleName)

	g.em.EmitRM("LD", RegMP, 0, RegAC, "load max address from mem[0]")
	g.em.EmitRM("ST", RegAC, 0, RegAC, "clear mem[0]")
	g.em.EmitGoto("LDA", RegPC, "main", RegGP, "goto main")

	if err := g.em.EmitLabel("input", "input routine"); err != nil {
		return err
	}
	g.em.EmitRM("ST", RegAC, RetFO, RegMP, "save return address")
	g.em.EmitRO("IN", RegAC, 0, 0, "input")
	g.em.EmitRM("LD", RegPC, RetFO, RegMP, "return to caller")

	if err := g.em.EmitLabel("output", "output routine"); err != nil {
		return err
	}
	g.em.EmitRM("ST", RegAC, RetFO, RegMP, "save return address")
	g.em.EmitRM("LD", RegAC, -3, RegMP, "load argument")
	g.em.EmitRO("OUT", RegAC, 0, 0, "output")
	g.em.EmitRM("LD", RegPC, RetFO, RegMP, "return to caller")

	if err := g.genTopLevelDecl(tree); err != nil {
		return err
	}

	g.em.EmitRO("HALT", 0, 0, 0, "halt")
	return nil
}

// genTopLevelDecl walks the top-level declaration list. Global variables
// only contribute trace comments; their storage is gp-relative and needs no
// code.
func (g *Generator) genTopLevelDecl(tree *ast.TreeNode) error {
	for current := tree; current != nil; current = current.Sibling {
		if current.Kind != ast.DecK {
			return errors.Wrapf(ErrInvalidNode, "line %d: top-level node is not a declaration", current.Line)
		}
		switch current.Dec {
		case ast.ScalarDecK:
			g.em.EmitComment(fmt.Sprintf("variable %q is a scalar of type %s",
				current.Name, current.VariableDataType))
		case ast.ArrayDecK:
			g.em.EmitComment(fmt.Sprintf("variable %q is an array of type %s and size %d",
				current.Name, current.VariableDataType, current.Val))
		case ast.FuncDecK:
			if err := g.genFunction(current); err != nil {
				return err
			}
		}
	}
	return nil
}

// genFunction emits one function: entry label, frame setup, body, and the
// return (main halts instead of returning).
func (g *Generator) genFunction(fn *ast.TreeNode) error {
	g.em.EmitComment(fmt.Sprintf("function %q", fn.Name))
	if err := g.em.EmitLabel(fn.Name, "function entry"); err != nil {
		return err
	}
	g.genFunctionLocals(fn)

	g.tmpOffset = -fn.LocalSize

	g.em.EmitRM("ST", RegAC, RetFO, RegMP, "save return address")
	g.em.EmitRM("LDC", RegAC, g.tmpOffset, RegAC, "get function stack size")
	g.em.EmitRM("ST", RegAC, InitFO, RegMP, "set stack size")

	if err := g.genStatement(fn.Body()); err != nil {
		return err
	}

	if fn.Name == "main" {
		g.em.EmitRO("HALT", 0, 0, 0, "halt")
	} else {
		g.em.EmitRM("LD", RegPC, RetFO, RegMP, "return to caller")
	}
	return nil
}

// genFunctionLocals emits a trace comment for every declaration in the
// function, recording its offset and size.
func (g *Generator) genFunctionLocals(fn *ast.TreeNode) {
	for _, child := range fn.Child {
		if child != nil {
			g.genFunctionLocals2(child)
		}
	}
}

func (g *Generator) genFunctionLocals2(tree *ast.TreeNode) {
	for node := tree; node != nil; node = node.Sibling {
		for _, child := range node.Child {
			if child != nil {
				g.genFunctionLocals2(child)
			}
		}
		if node.Kind == ast.DecK {
			g.em.EmitComment(fmt.Sprintf("LOCAL _%s %d,%d", node.Name, node.Offset, varSize(node)))
		}
	}
}

// genStatement emits a sibling-linked statement list. Assignment and call
// nodes are legal in statement position.
func (g *Generator) genStatement(tree *ast.TreeNode) error {
	for current := tree; current != nil; current = current.Sibling {
		var err error
		switch {
		case current.Kind == ast.ExpK && current.Exp == ast.AssignK:
			err = g.genAssign(current)
		case current.Kind == ast.ExpK:
			// an expression without effect in statement position emits nothing
		case current.Kind == ast.StmtK:
			switch current.Stmt {
			case ast.IfK:
				err = g.genIf(current)
			case ast.WhileK:
				err = g.genWhile(current)
			case ast.ReturnK:
				err = g.genReturn(current)
			case ast.CallK:
				err = g.genCall(current)
			case ast.CompoundK:
				err = g.genStatement(current.Child[1])
			}
		default:
			err = errors.Wrapf(ErrInvalidNode, "line %d: declaration in statement position", current.Line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// genIf lowers if/else with two fresh labels: a false condition jumps over
// the then-part, the then-part jumps over the else-part.
func (g *Generator) genIf(tree *ast.TreeNode) error {
	elseLabel := g.newLabel()
	endLabel := g.newLabel()

	g.em.EmitComment("IF statement")
	if err := g.genExpression(tree.Child[0], false); err != nil {
		return err
	}
	g.em.EmitGoto("JEQ", RegAC, elseLabel, RegGP, "if false, jump to else-part")

	if err := g.genStatement(tree.Child[1]); err != nil {
		return err
	}
	g.em.EmitGoto("LDA", RegPC, endLabel, RegGP, "jump past else-part")

	if err := g.em.EmitLabel(elseLabel, "else-part"); err != nil {
		return err
	}
	if err := g.genStatement(tree.Child[2]); err != nil {
		return err
	}
	return g.em.EmitLabel(endLabel, "end of IF")
}

// genWhile lowers a loop: the condition is re-evaluated at the start label,
// a false condition exits through the end label.
func (g *Generator) genWhile(tree *ast.TreeNode) error {
	startLabel := g.newLabel()
	endLabel := g.newLabel()

	g.em.EmitComment("WHILE statement")
	if err := g.em.EmitLabel(startLabel, "loop start"); err != nil {
		return err
	}
	if err := g.genExpression(tree.Child[0], false); err != nil {
		return err
	}
	g.em.EmitGoto("JEQ", RegAC, endLabel, RegGP, "if false, exit loop")

	if err := g.genStatement(tree.Child[1]); err != nil {
		return err
	}
	g.em.EmitGoto("LDA", RegPC, startLabel, RegGP, "repeat loop")

	return g.em.EmitLabel(endLabel, "loop end")
}

// genReturn leaves the return value in ac and jumps through the saved
// return address. A missing value in a non-void function returns 0.
func (g *Generator) genReturn(tree *ast.TreeNode) error {
	if tree.Declaration == nil {
		return errors.Wrapf(ErrInvalidNode, "line %d: return not linked to a function", tree.Line)
	}
	if tree.Declaration.FunctionReturnType != ast.Void {
		if tree.Child[0] != nil {
			if err := g.genExpression(tree.Child[0], false); err != nil {
				return err
			}
		} else {
			g.em.EmitRM("LDC", RegAC, 0, RegAC, "return 0")
		}
	}
	g.em.EmitRM("LD", RegPC, RetFO, RegMP, "return to caller")
	return nil
}

// genAssign stores the right-hand value through the left-hand address. The
// value is parked on the temporary stack while the address is computed.
func (g *Generator) genAssign(tree *ast.TreeNode) error {
	g.em.EmitComment("calculate the rvalue of the assignment")
	if err := g.genExpression(tree.Child[1], false); err != nil {
		return err
	}
	g.em.EmitRM("ST", RegAC, g.tmpOffset, RegMP, "push")
	g.tmpOffset--

	g.em.EmitComment("calculate the lvalue of the assignment")
	if err := g.genExpression(tree.Child[0], true); err != nil {
		return err
	}
	g.tmpOffset++
	g.em.EmitRM("LD", RegAC1, g.tmpOffset, RegMP, "pop")

	g.em.EmitRM("ST", RegAC1, 0, RegAC, "assign")
	return nil
}

// genCall emits the calling convention: save the old frame pointer, reserve
// the return-address slot, record the callee's frame size, push the
// arguments in source order, move the frame pointer, capture the return
// address, and jump. The callee's frame begins at the saved-ofp slot.
func (g *Generator) genCall(tree *ast.TreeNode) error {
	savedOffset := g.tmpOffset

	g.em.EmitRM("ST", RegMP, g.tmpOffset, RegMP, "save ofp")
	g.tmpOffset--
	g.tmpOffset-- // return-address slot, filled by the callee

	callee := g.syms.Lookup(tree.Name)
	if callee == nil || !callee.IsFuncDec() {
		return errors.Wrapf(ErrInvalidNode, "line %d: call to unknown function %q", tree.Line, tree.Name)
	}
	g.em.EmitRM("LDC", RegAC, -callee.LocalSize, RegAC, "callee stack size")
	g.em.EmitRM("ST", RegAC, g.tmpOffset, RegMP, "save init")
	g.tmpOffset--

	for arg := tree.Child[0]; arg != nil; arg = arg.Sibling {
		if err := g.genExpression(arg, false); err != nil {
			return err
		}
		g.em.EmitRM("ST", RegAC, g.tmpOffset, RegMP, "push argument")
		g.tmpOffset--
	}

	g.em.EmitRM("LDA", RegMP, savedOffset, RegMP, "move frame pointer")
	g.em.EmitRM("LDA", RegAC, 1, RegPC, "save return address in ac")
	g.em.EmitGoto("LDA", RegPC, tree.Name, RegGP, "call "+tree.Name)
	g.em.EmitRM("LD", RegMP, OfpFO, RegMP, "restore old frame pointer")

	g.tmpOffset = savedOffset
	return nil
}

// genExpression leaves the expression's value in ac, or its effective
// address when addressNeeded is set. Only identifiers and assignments honor
// addressNeeded; constants and operators always yield values.
func (g *Generator) genExpression(tree *ast.TreeNode, addressNeeded bool) error {
	if tree.Kind == ast.StmtK {
		if tree.Stmt == ast.CallK {
			return g.genCall(tree)
		}
		return errors.Wrapf(ErrInvalidNode, "line %d: statement in expression position", tree.Line)
	}
	if tree.Kind != ast.ExpK {
		return errors.Wrapf(ErrInvalidNode, "line %d: expected an expression", tree.Line)
	}

	switch tree.Exp {
	case ast.IdK:
		return g.genIdentifier(tree, addressNeeded)

	case ast.OpK:
		return g.genOp(tree)

	case ast.ConstK:
		g.em.EmitRM("LDC", RegAC, tree.Val, RegAC, "load constant")
		return nil

	case ast.AssignK:
		return g.genAssign(tree)
	}
	return errors.Wrapf(ErrInvalidNode, "line %d: unknown expression kind", tree.Line)
}

// genIdentifier loads a variable's value or address. Globals are addressed
// through gp, locals and parameters through mp; an array parameter's slot
// holds a pointer to the caller's array.
func (g *Generator) genIdentifier(tree *ast.TreeNode, addressNeeded bool) error {
	dec := tree.Declaration
	if dec == nil {
		return errors.Wrapf(ErrInvalidNode, "line %d: identifier %q has no declaration", tree.Line, tree.Name)
	}

	base := RegMP
	if dec.IsGlobal {
		base = RegGP
	}

	if dec.Dec == ast.ScalarDecK {
		if addressNeeded {
			g.em.EmitRM("LDA", RegAC, dec.Offset, base, "address of "+tree.Name)
		} else {
			g.em.EmitRM("LD", RegAC, dec.Offset, base, "value of "+tree.Name)
		}
		return nil
	}
	if dec.Dec != ast.ArrayDecK {
		return errors.Wrapf(ErrInvalidNode, "line %d: %q does not name a variable", tree.Line, tree.Name)
	}

	if tree.Child[0] == nil {
		// bare array name: pass the base address by reference
		g.em.EmitComment("leave address of array " + tree.Name)
		if dec.IsParameter {
			g.em.EmitRM("LD", RegAC, dec.Offset, RegMP, "parameter slot holds the pointer")
		} else {
			g.em.EmitRM("LDA", RegAC, dec.Offset, base, "address of array "+tree.Name)
		}
		return nil
	}

	g.em.EmitComment("calculate index of array " + tree.Name)
	if err := g.genExpression(tree.Child[0], false); err != nil {
		return err
	}

	op := "LD"
	if addressNeeded {
		op = "LDA"
	}

	if dec.IsParameter {
		// element address is the pointer in the parameter slot plus the index
		g.em.EmitRM("ST", RegAC, g.tmpOffset, RegMP, "push index")
		g.tmpOffset--
		g.em.EmitRM("LD", RegAC, dec.Offset, RegMP, "load array base pointer")
		g.tmpOffset++
		g.em.EmitRM("LD", RegAC1, g.tmpOffset, RegMP, "pop index")
		g.em.EmitRO("ADD", RegAC, RegAC1, RegAC, "element address")
		g.em.EmitRM(op, RegAC, 0, RegAC, "array element")
		return nil
	}

	g.em.EmitRO("ADD", RegAC, RegAC, base, "add array base register")
	g.em.EmitRM(op, RegAC, dec.Offset, RegAC, "array element")
	return nil
}

// relopJump maps a relational operator to its conditional jump.
var relopJump = map[token.Type]string{
	token.LT:  "JLT",
	token.GT:  "JGT",
	token.LTE: "JLE",
	token.GTE: "JGE",
	token.EQ:  "JEQ",
	token.NEQ: "JNE",
}

// genOp evaluates a binary operator. The left operand is parked on the
// temporary stack while the right one is computed. Relational operators
// materialize a 0/1 boolean with a five-instruction sequence.
func (g *Generator) genOp(tree *ast.TreeNode) error {
	if err := g.genExpression(tree.Child[0], false); err != nil {
		return err
	}
	g.em.EmitRM("ST", RegAC, g.tmpOffset, RegMP, "push left operand")
	g.tmpOffset--

	if err := g.genExpression(tree.Child[1], false); err != nil {
		return err
	}
	g.tmpOffset++
	g.em.EmitRM("LD", RegAC1, g.tmpOffset, RegMP, "pop left operand")

	switch tree.Op {
	case token.PLUS:
		g.em.EmitRO("ADD", RegAC, RegAC1, RegAC, "op +")
	case token.MINUS:
		g.em.EmitRO("SUB", RegAC, RegAC1, RegAC, "op -")
	case token.TIMES:
		g.em.EmitRO("MUL", RegAC, RegAC1, RegAC, "op *")
	case token.OVER:
		g.em.EmitRO("DIV", RegAC, RegAC1, RegAC, "op /")
	case token.LT, token.GT, token.LTE, token.GTE, token.EQ, token.NEQ:
		g.em.EmitRO("SUB", RegAC, RegAC1, RegAC, "op "+tree.Op.String())
		g.em.EmitRM(relopJump[tree.Op], RegAC, 2, RegPC, "branch if true")
		g.em.EmitRM("LDC", RegAC, 0, RegAC, "false case")
		g.em.EmitRM("LDA", RegPC, 1, RegPC, "skip true case")
		g.em.EmitRM("LDC", RegAC, 1, RegAC, "true case")
	default:
		return errors.Wrapf(ErrInvalidNode, "line %d: unknown operator %q", tree.Line, tree.Op.String())
	}
	return nil
}
