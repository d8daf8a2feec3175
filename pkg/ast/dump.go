package ast

import (
	"encoding/json"
)

// dumpNode is the JSON shape used by --dump-ast.
type dumpNode struct {
	Kind        string      `json:"kind"`
	Name        string      `json:"name,omitempty"`
	Val         int         `json:"val,omitempty"`
	Op          string      `json:"op,omitempty"`
	Type        string      `json:"type,omitempty"`
	IsGlobal    bool        `json:"isGlobal,omitempty"`
	IsParameter bool        `json:"isParameter,omitempty"`
	Offset      int         `json:"offset,omitempty"`
	LocalSize   int         `json:"localSize,omitempty"`
	Line        int         `json:"line"`
	Children    []*dumpNode `json:"children,omitempty"`
}

func kindName(n *TreeNode) string {
	switch n.Kind {
	case StmtK:
		switch n.Stmt {
		case IfK:
			return "If"
		case WhileK:
			return "While"
		case ReturnK:
			return "Return"
		case CallK:
			return "Call"
		case CompoundK:
			return "Compound"
		}
	case ExpK:
		switch n.Exp {
		case OpK:
			return "Op"
		case ConstK:
			return "Const"
		case IdK:
			return "Id"
		case AssignK:
			return "Assign"
		}
	case DecK:
		switch n.Dec {
		case ScalarDecK:
			return "ScalarDec"
		case ArrayDecK:
			return "ArrayDec"
		case FuncDecK:
			return "FuncDec"
		}
	}
	return "Unknown"
}

func toDump(n *TreeNode) *dumpNode {
	if n == nil {
		return nil
	}
	d := &dumpNode{
		Kind:        kindName(n),
		Name:        n.Name,
		Val:         n.Val,
		IsGlobal:    n.IsGlobal,
		IsParameter: n.IsParameter,
		Offset:      n.Offset,
		LocalSize:   n.LocalSize,
		Line:        n.Line,
	}
	if n.Kind == ExpK && n.Exp == OpK {
		d.Op = n.Op.String()
	}
	if n.Kind == DecK {
		if n.Dec == FuncDecK {
			d.Type = n.FunctionReturnType.String()
		} else {
			d.Type = n.VariableDataType.String()
		}
	}
	for _, c := range n.Child {
		for ; c != nil; c = c.Sibling {
			d.Children = append(d.Children, toDump(c))
		}
	}
	return d
}

// DumpJSON renders a declaration list as indented JSON.
func DumpJSON(tree *TreeNode) ([]byte, error) {
	var nodes []*dumpNode
	for n := tree; n != nil; n = n.Sibling {
		nodes = append(nodes, toDump(n))
	}
	return json.MarshalIndent(nodes, "", "  ")
}
