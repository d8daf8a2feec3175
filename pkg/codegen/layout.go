package codegen

import (
	log "github.com/sirupsen/logrus"

	"github.com/martin041313/c-minus/pkg/ast"
)

// The two layout analyses below must run before emission: every emitted
// call/return sequence assumes the frame sizes and offsets they compute.

// varSize returns the stack footprint of a variable declaration in words:
// one word for scalars, one word for array parameters (passed by
// reference), and the declared length for other arrays.
func varSize(dec *ast.TreeNode) int {
	if !dec.IsVarDec() {
		return 0
	}
	if dec.Dec == ast.ScalarDecK {
		return WordSize
	}
	if dec.IsParameter {
		return WordSize
	}
	return WordSize * dec.Val
}

// AnalyzeLayout runs the size and offset analyses over the declaration
// list. Idempotent; both walks annotate the tree in place.
func AnalyzeLayout(tree *ast.TreeNode) {
	(&sizeWalker{}).walk(tree)
	(&offsetWalker{}).walk(tree)
}

// sizeWalker computes each function's frame size. The cursor starts at
// zero for the global scope and resets on entry to a function, accumulates over the
// function's parameters and locals at post-order, and lands in the
// function's LocalSize plus the three-word save area.
type sizeWalker struct {
	size int
}

func (w *sizeWalker) walk(tree *ast.TreeNode) {
	for node := tree; node != nil; node = node.Sibling {
		if node.IsFuncDec() {
			w.size = 0
		}

		for _, child := range node.Child {
			if child != nil {
				w.walk(child)
			}
		}

		if node.IsVarDec() {
			w.size += varSize(node)
			node.LocalSize = w.size
		}
		if node.IsFuncDec() {
			node.LocalSize = w.size + SaveAreaSize
			log.Debugf("localSize attribute for %s() is %d", node.Name, node.LocalSize)
		}
	}
}

// offsetWalker assigns every variable declaration its stack offset:
// globals get consecutive non-negative offsets from gp, locals and
// parameters descend from -2 below the frame pointer so the first one
// lands under the save area.
type offsetWalker struct {
	gp int
	lp int
}

func (w *offsetWalker) walk(tree *ast.TreeNode) {
	for node := tree; node != nil; node = node.Sibling {
		if node.IsFuncDec() {
			w.lp = InitFO
		}

		for _, child := range node.Child {
			if child != nil {
				w.walk(child)
			}
		}

		if node.IsVarDec() {
			if node.IsGlobal {
				node.Offset = w.gp
				w.gp += varSize(node)
			} else {
				w.lp -= varSize(node)
				node.Offset = w.lp
			}
			log.Debugf("offset attribute for %s is %d", node.Name, node.Offset)
		}
	}
}
