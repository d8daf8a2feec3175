package semantic

import (
	"github.com/martin041313/c-minus/pkg/ast"
)

// SymbolTable maps names to their declaration nodes. The global table is
// what the code generator consumes: it resolves callee names at call sites
// to read the callee's frame size.
type SymbolTable struct {
	symbols map[string]*ast.TreeNode
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*ast.TreeNode)}
}

// Insert records a declaration; returns false if the name is already taken.
func (t *SymbolTable) Insert(name string, dec *ast.TreeNode) bool {
	if _, exists := t.symbols[name]; exists {
		return false
	}
	t.symbols[name] = dec
	return true
}

// Lookup returns the declaration for name, or nil if none is known.
func (t *SymbolTable) Lookup(name string) *ast.TreeNode {
	return t.symbols[name]
}

// scope is one lexical level of the analyzer's scope stack.
type scope struct {
	table  *SymbolTable
	parent *scope
}

func (s *scope) lookup(name string) *ast.TreeNode {
	for cur := s; cur != nil; cur = cur.parent {
		if dec := cur.table.Lookup(name); dec != nil {
			return dec
		}
	}
	return nil
}
