package semantic

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/martin041313/c-minus/pkg/ast"
)

// Analyzer builds the symbol table and decorates the AST: every identifier
// use gets a Declaration back-reference, declarations are marked global or
// parameter, and return statements are linked to their enclosing function.
type Analyzer struct {
	globals     *SymbolTable
	current     *scope
	currentFunc *ast.TreeNode
}

// NewAnalyzer creates an Analyzer whose global scope is pre-loaded with the
// two built-in I/O routines.
func NewAnalyzer() *Analyzer {
	globals := NewSymbolTable()
	for _, dec := range builtins() {
		globals.Insert(dec.Name, dec)
	}
	return &Analyzer{
		globals: globals,
		current: &scope{table: globals},
	}
}

// builtins synthesizes declarations for "int input(void)" and
// "void output(int x)". Their bodies are emitted by the code generator's
// prologue; the frame sizes here must agree with those stubs (the save area
// is three words, and output's parameter sits at -3(mp)).
func builtins() []*ast.TreeNode {
	input := ast.NewDecNode(ast.FuncDecK, 0)
	input.Name = "input"
	input.FunctionReturnType = ast.Int
	input.LocalSize = 3

	arg := ast.NewDecNode(ast.ScalarDecK, 0)
	arg.Name = "x"
	arg.VariableDataType = ast.Int
	arg.IsParameter = true
	arg.Offset = -3

	output := ast.NewDecNode(ast.FuncDecK, 0)
	output.Name = "output"
	output.FunctionReturnType = ast.Void
	output.LocalSize = 4
	output.Child[0] = arg

	return []*ast.TreeNode{input, output}
}

// Analyze decorates the declaration list and returns the global symbol
// table for the code generator. Analysis must succeed before code
// generation may begin.
func Analyze(tree *ast.TreeNode) (*SymbolTable, error) {
	a := NewAnalyzer()
	if err := a.topLevel(tree); err != nil {
		return nil, err
	}
	main := a.globals.Lookup("main")
	if main == nil || !main.IsFuncDec() {
		return nil, errors.New("semantic error: no function \"main\" declared")
	}
	if main.FunctionReturnType != ast.Void || main.Child[0] != nil {
		return nil, errors.Errorf("line %d: semantic error: main must be declared void main(void)", main.Line)
	}
	return a.globals, nil
}

func (a *Analyzer) pushScope() {
	a.current = &scope{table: NewSymbolTable(), parent: a.current}
}

func (a *Analyzer) popScope() {
	a.current = a.current.parent
}

func (a *Analyzer) declare(dec *ast.TreeNode) error {
	if !a.current.table.Insert(dec.Name, dec) {
		return errors.Errorf("line %d: semantic error: %q redeclared", dec.Line, dec.Name)
	}
	log.Debugf("declared %q (global=%v parameter=%v)", dec.Name, dec.IsGlobal, dec.IsParameter)
	return nil
}

func (a *Analyzer) topLevel(tree *ast.TreeNode) error {
	for dec := tree; dec != nil; dec = dec.Sibling {
		if dec.Kind != ast.DecK {
			return errors.Errorf("line %d: semantic error: expected a declaration at top level", dec.Line)
		}
		if dec.IsVarDec() {
			dec.IsGlobal = true
		}
		if err := a.declare(dec); err != nil {
			return err
		}
		if dec.Dec == ast.FuncDecK {
			if err := a.function(dec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Analyzer) function(fn *ast.TreeNode) error {
	a.currentFunc = fn
	a.pushScope()
	defer a.popScope()

	for param := fn.Child[0]; param != nil; param = param.Sibling {
		param.IsParameter = true
		if err := a.declare(param); err != nil {
			return err
		}
	}
	return a.statement(fn.Body())
}

// statement walks a sibling-linked statement list.
func (a *Analyzer) statement(tree *ast.TreeNode) error {
	for node := tree; node != nil; node = node.Sibling {
		var err error
		switch {
		case node.Kind == ast.ExpK:
			err = a.expression(node)
		case node.Kind == ast.StmtK && node.Stmt == ast.CompoundK:
			err = a.compound(node)
		case node.Kind == ast.StmtK && node.Stmt == ast.IfK:
			err = a.ifStmt(node)
		case node.Kind == ast.StmtK && node.Stmt == ast.WhileK:
			err = a.whileStmt(node)
		case node.Kind == ast.StmtK && node.Stmt == ast.ReturnK:
			err = a.returnStmt(node)
		case node.Kind == ast.StmtK && node.Stmt == ast.CallK:
			err = a.call(node)
		default:
			err = errors.Errorf("line %d: semantic error: unexpected node in statement position", node.Line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) compound(node *ast.TreeNode) error {
	a.pushScope()
	defer a.popScope()

	for dec := node.Child[0]; dec != nil; dec = dec.Sibling {
		if err := a.declare(dec); err != nil {
			return err
		}
	}
	return a.statement(node.Child[1])
}

func (a *Analyzer) ifStmt(node *ast.TreeNode) error {
	if err := a.expression(node.Child[0]); err != nil {
		return err
	}
	if node.Child[1] != nil {
		if err := a.statement(node.Child[1]); err != nil {
			return err
		}
	}
	if node.Child[2] != nil {
		return a.statement(node.Child[2])
	}
	return nil
}

func (a *Analyzer) whileStmt(node *ast.TreeNode) error {
	if err := a.expression(node.Child[0]); err != nil {
		return err
	}
	if node.Child[1] != nil {
		return a.statement(node.Child[1])
	}
	return nil
}

func (a *Analyzer) returnStmt(node *ast.TreeNode) error {
	node.Declaration = a.currentFunc
	if node.Child[0] != nil {
		if a.currentFunc.FunctionReturnType == ast.Void {
			return errors.Errorf("line %d: semantic error: void function %q returns a value",
				node.Line, a.currentFunc.Name)
		}
		return a.expression(node.Child[0])
	}
	return nil
}

// expression resolves identifier uses. A single expression is never
// sibling-linked here; lists (call arguments) are walked by the caller.
func (a *Analyzer) expression(node *ast.TreeNode) error {
	if node.Kind == ast.StmtK && node.Stmt == ast.CallK {
		if err := a.call(node); err != nil {
			return err
		}
		if node.Declaration.FunctionReturnType == ast.Void {
			return errors.Errorf("line %d: semantic error: void function %q used as a value",
				node.Line, node.Name)
		}
		return nil
	}
	if node.Kind != ast.ExpK {
		return errors.Errorf("line %d: semantic error: expected an expression", node.Line)
	}

	switch node.Exp {
	case ast.ConstK:
		return nil

	case ast.IdK:
		dec := a.current.lookup(node.Name)
		if dec == nil {
			return errors.Errorf("line %d: semantic error: %q undeclared", node.Line, node.Name)
		}
		if dec.Dec == ast.FuncDecK {
			return errors.Errorf("line %d: semantic error: function %q used as a variable", node.Line, node.Name)
		}
		node.Declaration = dec
		if node.Child[0] != nil {
			if dec.Dec != ast.ArrayDecK {
				return errors.Errorf("line %d: semantic error: %q subscripted but is not an array",
					node.Line, node.Name)
			}
			return a.expression(node.Child[0])
		}
		return nil

	case ast.OpK:
		if err := a.expression(node.Child[0]); err != nil {
			return err
		}
		return a.expression(node.Child[1])

	case ast.AssignK:
		if err := a.expression(node.Child[0]); err != nil {
			return err
		}
		return a.expression(node.Child[1])
	}
	return errors.Errorf("line %d: semantic error: unknown expression kind", node.Line)
}

func (a *Analyzer) call(node *ast.TreeNode) error {
	dec := a.globals.Lookup(node.Name)
	if dec == nil {
		return errors.Errorf("line %d: semantic error: call to undeclared function %q", node.Line, node.Name)
	}
	if dec.Dec != ast.FuncDecK {
		return errors.Errorf("line %d: semantic error: %q is not a function", node.Line, node.Name)
	}
	node.Declaration = dec

	want := 0
	for param := dec.Child[0]; param != nil; param = param.Sibling {
		want++
	}
	got := 0
	for arg := node.Child[0]; arg != nil; arg = arg.Sibling {
		if err := a.expression(arg); err != nil {
			return err
		}
		got++
	}
	if want != got {
		return errors.Errorf("line %d: semantic error: %q called with %d arguments, wants %d",
			node.Line, node.Name, got, want)
	}
	return nil
}
