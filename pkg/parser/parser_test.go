package parser

import (
	"testing"

	"github.com/martin041313/c-minus/pkg/ast"
	"github.com/martin041313/c-minus/pkg/token"
)

func TestParseDeclarations(t *testing.T) {
	tree, err := Parse([]byte(`
		int x;
		int a[10];
		void main(void) { }
	`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tree.Dec != ast.ScalarDecK || tree.Name != "x" || tree.VariableDataType != ast.Int {
		t.Errorf("first declaration: got %+v, want scalar int x", tree)
	}

	arr := tree.Sibling
	if arr == nil || arr.Dec != ast.ArrayDecK || arr.Name != "a" || arr.Val != 10 {
		t.Fatalf("second declaration: got %+v, want array a[10]", arr)
	}

	fn := arr.Sibling
	if fn == nil || !fn.IsFuncDec() || fn.Name != "main" {
		t.Fatalf("third declaration: got %+v, want function main", fn)
	}
	if fn.FunctionReturnType != ast.Void {
		t.Errorf("main return type: got %v, want void", fn.FunctionReturnType)
	}
	if fn.Child[0] != nil {
		t.Errorf("main should have no parameters")
	}
	if fn.Child[1] == nil || fn.Child[1].Stmt != ast.CompoundK {
		t.Errorf("function body must be a compound statement at child slot 1")
	}
	if fn.Sibling != nil {
		t.Errorf("unexpected trailing declaration")
	}
}

func TestParseParams(t *testing.T) {
	tree, err := Parse([]byte(`void f(int n, int a[]) { }`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n := tree.Child[0]
	if n == nil || n.Dec != ast.ScalarDecK || n.Name != "n" || !n.IsParameter {
		t.Fatalf("first parameter: got %+v, want scalar parameter n", n)
	}
	a := n.Sibling
	if a == nil || a.Dec != ast.ArrayDecK || a.Name != "a" || !a.IsParameter {
		t.Fatalf("second parameter: got %+v, want array parameter a", a)
	}
	if a.Val != 0 {
		t.Errorf("array parameter length: got %d, want 0", a.Val)
	}
}

func TestParseStatements(t *testing.T) {
	tree, err := Parse([]byte(`
		void main(void) {
			int x;
			x = 1;
			if (x < 2) x = 3; else x = 4;
			while (x > 0) x = x - 1;
			return;
		}
	`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := tree.Body()
	if body.Child[0] == nil || body.Child[0].Name != "x" {
		t.Fatal("local declaration x not found in compound child 0")
	}

	assign := body.Child[1]
	if assign.Kind != ast.ExpK || assign.Exp != ast.AssignK {
		t.Fatalf("first statement: got %+v, want assignment", assign)
	}
	if assign.Child[0].Exp != ast.IdK || assign.Child[1].Exp != ast.ConstK {
		t.Error("assignment children: want Id = Const")
	}

	ifStmt := assign.Sibling
	if ifStmt.Stmt != ast.IfK {
		t.Fatalf("second statement: got %+v, want if", ifStmt)
	}
	if ifStmt.Child[0].Op != token.LT {
		t.Errorf("if condition operator: got %v, want <", ifStmt.Child[0].Op)
	}
	if ifStmt.Child[2] == nil {
		t.Error("else branch missing from child slot 2")
	}

	whileStmt := ifStmt.Sibling
	if whileStmt.Stmt != ast.WhileK {
		t.Fatalf("third statement: got %+v, want while", whileStmt)
	}

	ret := whileStmt.Sibling
	if ret.Stmt != ast.ReturnK || ret.Child[0] != nil {
		t.Fatalf("fourth statement: got %+v, want bare return", ret)
	}
}

func TestParsePrecedence(t *testing.T) {
	tree, err := Parse([]byte(`void main(void) { return 1 + 2 * 3 < 4; }`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// ((1 + (2 * 3)) < 4)
	relop := tree.Body().Child[1].Child[0]
	if relop.Op != token.LT {
		t.Fatalf("root operator: got %v, want <", relop.Op)
	}
	add := relop.Child[0]
	if add.Op != token.PLUS {
		t.Fatalf("left of <: got %v, want +", add.Op)
	}
	mul := add.Child[1]
	if mul.Op != token.TIMES {
		t.Fatalf("right of +: got %v, want *", mul.Op)
	}
}

func TestParseCall(t *testing.T) {
	tree, err := Parse([]byte(`void main(void) { f(1, g(), x); }`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := tree.Body().Child[1]
	if call.Kind != ast.StmtK || call.Stmt != ast.CallK || call.Name != "f" {
		t.Fatalf("statement: got %+v, want call to f", call)
	}

	args := 0
	for arg := call.Child[0]; arg != nil; arg = arg.Sibling {
		args++
	}
	if args != 3 {
		t.Errorf("argument count: got %d, want 3", args)
	}
	if inner := call.Child[0].Sibling; inner.Stmt != ast.CallK || inner.Name != "g" {
		t.Errorf("second argument: got %+v, want call to g", inner)
	}
}

func TestParseChainedAssignment(t *testing.T) {
	tree, err := Parse([]byte(`void main(void) { int x; int y; x = y = 5; }`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outer := tree.Body().Child[1]
	if outer.Exp != ast.AssignK {
		t.Fatalf("statement: got %+v, want assignment", outer)
	}
	inner := outer.Child[1]
	if inner.Exp != ast.AssignK || inner.Child[0].Name != "y" {
		t.Fatalf("right of outer assignment: got %+v, want y = 5", inner)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"void variable", "void x;"},
		{"missing semicolon", "void main(void) { int x; x = 1 }"},
		{"missing brace", "void main(void) { int x;"},
		{"assignment to constant", "void main(void) { 3 = 4; }"},
		{"assignment to expression", "void main(void) { int x; x + 1 = 4; }"},
		{"array length not a number", "int a[n];"},
		{"empty program", "  "},
		{"garbage after program", "void main(void) { } }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.source)); err == nil {
				t.Fatal("expected a syntax error")
			}
		})
	}
}
