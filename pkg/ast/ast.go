package ast

import (
	"github.com/martin041313/c-minus/pkg/token"
)

// MaxChildren is the child-slot arity of a TreeNode. Three slots are enough
// for every C-minus construct (if needs cond/then/else).
const MaxChildren = 3

// NodeKind is the top-level discriminator of a TreeNode.
type NodeKind int

const (
	StmtK NodeKind = iota
	ExpK
	DecK
)

// StmtKind discriminates statement nodes.
type StmtKind int

const (
	IfK StmtKind = iota
	WhileK
	ReturnK
	CallK
	CompoundK
)

// ExpKind discriminates expression nodes.
type ExpKind int

const (
	OpK ExpKind = iota
	ConstK
	IdK
	AssignK
)

// DecKind discriminates declaration nodes.
type DecKind int

const (
	ScalarDecK DecKind = iota
	ArrayDecK
	FuncDecK
)

// DataType is the declared type of a variable or function result.
type DataType int

const (
	Void DataType = iota
	Int
)

func (d DataType) String() string {
	if d == Int {
		return "int"
	}
	return "void"
}

// TreeNode is the single AST node type shared by all phases. The front end
// builds the tree; semantic analysis fills Declaration, IsGlobal and
// IsParameter; the layout analyses fill Offset and LocalSize.
//
// Child-slot conventions:
//
//	FuncDec:  Child[0] params, Child[1] compound body
//	Compound: Child[0] local declarations, Child[1] statement list
//	If:       Child[0] cond, Child[1] then, Child[2] else
//	While:    Child[0] cond, Child[1] body
//	Return:   Child[0] expression (may be nil)
//	Call:     Child[0] argument list (sibling-linked)
//	Assign:   Child[0] lvalue, Child[1] rvalue
//	Op:       Child[0] left, Child[1] right
//	Id:       Child[0] index expression (nil for scalars / bare array names)
type TreeNode struct {
	Child   [MaxChildren]*TreeNode
	Sibling *TreeNode

	Kind NodeKind
	Stmt StmtKind
	Exp  ExpKind
	Dec  DecKind

	Name string     // identifier text
	Val  int        // constant value, or declared array length
	Op   token.Type // operator for OpK

	VariableDataType   DataType
	FunctionReturnType DataType

	// Declaration points at the declaring DecK node for IdK and CallK uses,
	// and at the enclosing FuncDecK for ReturnK statements.
	Declaration *TreeNode

	IsGlobal    bool
	IsParameter bool

	// LocalSize is the frame size in words on FuncDecK (including the
	// three-word save area); on variable declarations it holds the running
	// cumulative size during layout.
	LocalSize int

	// Offset is the final stack offset of a variable declaration, relative
	// to gp for globals and mp for locals and parameters.
	Offset int

	Line int
}

// NewStmtNode allocates a statement node.
func NewStmtNode(kind StmtKind, line int) *TreeNode {
	return &TreeNode{Kind: StmtK, Stmt: kind, Line: line}
}

// NewExpNode allocates an expression node.
func NewExpNode(kind ExpKind, line int) *TreeNode {
	return &TreeNode{Kind: ExpK, Exp: kind, Line: line}
}

// NewDecNode allocates a declaration node.
func NewDecNode(kind DecKind, line int) *TreeNode {
	return &TreeNode{Kind: DecK, Dec: kind, Line: line}
}

// IsFuncDec reports whether n is a function declaration node.
func (n *TreeNode) IsFuncDec() bool {
	return n != nil && n.Kind == DecK && n.Dec == FuncDecK
}

// IsVarDec reports whether n declares storage (scalar or array).
func (n *TreeNode) IsVarDec() bool {
	return n != nil && n.Kind == DecK && (n.Dec == ScalarDecK || n.Dec == ArrayDecK)
}

// Body returns the compound body of a function declaration.
func (n *TreeNode) Body() *TreeNode {
	return n.Child[1]
}
