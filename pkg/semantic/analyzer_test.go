package semantic

import (
	"testing"

	"github.com/martin041313/c-minus/pkg/ast"
	"github.com/martin041313/c-minus/pkg/parser"
)

func mustParse(t *testing.T, source string) *ast.TreeNode {
	t.Helper()
	tree, err := parser.Parse([]byte(source))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return tree
}

func TestAnalyzeDecorations(t *testing.T) {
	tree := mustParse(t, `
		int g;
		int f(int n) {
			int local;
			local = g + n;
			return local;
		}
		void main(void) {
			g = f(2);
		}
	`)

	syms, err := Analyze(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g := tree
	if !g.IsGlobal {
		t.Error("global variable g not marked IsGlobal")
	}

	f := tree.Sibling
	if syms.Lookup("f") != f {
		t.Error("symbol table does not resolve f to its declaration")
	}

	// local = g + n
	assign := f.Body().Child[1]
	localUse := assign.Child[0]
	if localUse.Declaration == nil || localUse.Declaration.Name != "local" {
		t.Error("use of local not linked to its declaration")
	}
	op := assign.Child[1]
	if op.Child[0].Declaration != g {
		t.Error("use of g not linked to the global declaration")
	}
	if op.Child[1].Declaration == nil || !op.Child[1].Declaration.IsParameter {
		t.Error("use of n not linked to the parameter declaration")
	}

	ret := assign.Sibling
	if ret.Declaration != f {
		t.Error("return statement not linked to its enclosing function")
	}

	// g = f(2) in main
	call := tree.Sibling.Sibling.Body().Child[1].Child[1]
	if call.Declaration != f {
		t.Error("call not linked to the function declaration")
	}
}

func TestAnalyzeShadowing(t *testing.T) {
	tree := mustParse(t, `
		int x;
		void main(void) {
			int x;
			x = 1;
			{
				int x;
				x = 2;
			}
		}
	`)

	if _, err := Analyze(tree); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	global := tree
	body := tree.Sibling.Body()
	outerDec := body.Child[0]
	outerUse := body.Child[1].Child[0]
	if outerUse.Declaration != outerDec {
		t.Error("outer use should resolve to the function-level x")
	}
	innerBlock := body.Child[1].Sibling
	innerUse := innerBlock.Child[1].Child[0]
	if innerUse.Declaration != innerBlock.Child[0] {
		t.Error("inner use should resolve to the block-level x")
	}
	if outerUse.Declaration == global || innerUse.Declaration == global {
		t.Error("uses must not resolve to the shadowed global")
	}
}

func TestAnalyzeBuiltins(t *testing.T) {
	tree := mustParse(t, `
		void main(void) {
			int x;
			x = input();
			output(x);
		}
	`)

	syms, err := Analyze(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := syms.Lookup("input")
	if input == nil || !input.IsFuncDec() || input.LocalSize != 3 {
		t.Errorf("input builtin: got %+v, want FuncDec with LocalSize 3", input)
	}
	output := syms.Lookup("output")
	if output == nil || output.LocalSize != 4 {
		t.Errorf("output builtin: got %+v, want FuncDec with LocalSize 4", output)
	}
	if output.Child[0] == nil || output.Child[0].Offset != -3 {
		t.Error("output parameter must sit at offset -3")
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"no main", "int x;"},
		{"main not void", "int main(void) { return 0; }"},
		{"main with params", "void main(int x) { }"},
		{"undeclared variable", "void main(void) { x = 1; }"},
		{"undeclared function", "void main(void) { f(); }"},
		{"redeclared variable", "void main(void) { int x; int x; }"},
		{"redeclared top level", "int f; void f(void) { } void main(void) { }"},
		{"function used as variable", "void f(void) { } void main(void) { int x; x = f + 1; }"},
		{"variable called", "void main(void) { int x; x(); }"},
		{"subscripted scalar", "void main(void) { int x; x[1] = 2; }"},
		{"wrong arity", "void f(int a, int b) { } void main(void) { f(1); }"},
		{"value return from void", "void main(void) { return 3; }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.source)
			if _, err := Analyze(tree); err == nil {
				t.Fatal("expected a semantic error")
			}
		})
	}
}
