package tree

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/benz9527/xrbtree/lib/infra"
)

var (
	ErrColorViolation = errors.New("rbtree color violation")
	ErrRootViolation  = errors.New("rbtree root violation")
	ErrLeafViolation  = errors.New("rbtree nil leaf violation")
	ErrRedViolation   = errors.New("rbtree red violation")
	ErrBlackViolation = errors.New("rbtree black violation")
	ErrOrderViolation = errors.New("rbtree order violation")
	ErrSizeViolation  = errors.New("rbtree size violation")
)

func isNilLeaf[K infra.OrderedKey](node RBNode[K]) bool {
	return node == nil || node.IsNilLeaf()
}

func isRed[K infra.OrderedKey](node RBNode[K]) bool {
	return !isNilLeaf[K](node) && node.Color() == Red
}

func isBlack[K infra.OrderedKey](node RBNode[K]) bool {
	return isNilLeaf[K](node) || node.Color() == Black
}

// rbtree rule validation utilities.
// They are pure functions of the nodes and walk with explicit
// stacks, so a deep (broken) tree does not grow the call stack.

// Preorder traversal of the nodes, the NIL leaves are skipped.
func preorder[K infra.OrderedKey](root RBNode[K], visit func(node RBNode[K]) error) error {
	if isNilLeaf[K](root) {
		return nil
	}
	stack := make([]RBNode[K], 0, 64)
	stack = append(stack, root)
	for len(stack) > 0 {
		aux := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := visit(aux); err != nil {
			return err
		}
		if r := aux.Right(); !isNilLeaf[K](r) {
			stack = append(stack, r)
		}
		if l := aux.Left(); !isNilLeaf[K](l) {
			stack = append(stack, l)
		}
	}
	return nil
}

// ColorViolationValidate p1. Every node is either red or black.
func ColorViolationValidate[K infra.OrderedKey](root RBNode[K]) error {
	return preorder[K](root, func(node RBNode[K]) error {
		if c := node.Color(); c != Red && c != Black {
			return fmt.Errorf("%w: key %v is colored %s", ErrColorViolation, node.Key(), c)
		}
		return nil
	})
}

// RootViolationValidate p2. The root is black.
func RootViolationValidate[K infra.OrderedKey](root RBNode[K]) error {
	if isNilLeaf[K](root) {
		return nil
	}
	if !isNilLeaf[K](root.Parent()) {
		return fmt.Errorf("%w: root key %v has a parent", ErrRootViolation, root.Key())
	}
	if root.Color() != Black {
		return fmt.Errorf("%w: root key %v is %s", ErrRootViolation, root.Key(), root.Color())
	}
	return nil
}

// LeafViolationValidate p3. All NIL leaves are black.
func LeafViolationValidate[K infra.OrderedKey](root RBNode[K]) error {
	leafIsBlack := func(leaf RBNode[K]) bool {
		return leaf == nil || leaf.Color() == Black
	}
	if isNilLeaf[K](root) {
		if !leafIsBlack(root) {
			return fmt.Errorf("%w: empty tree leaf is %s", ErrLeafViolation, root.Color())
		}
		return nil
	}
	return preorder[K](root, func(node RBNode[K]) error {
		for _, child := range [2]RBNode[K]{node.Left(), node.Right()} {
			if isNilLeaf[K](child) && !leafIsBlack(child) {
				return fmt.Errorf("%w: leaf under key %v is %s", ErrLeafViolation, node.Key(), child.Color())
			}
		}
		return nil
	})
}

// RedViolationValidate p4. A red node has no red parent or child.
func RedViolationValidate[K infra.OrderedKey](root RBNode[K]) error {
	return preorder[K](root, func(node RBNode[K]) error {
		if !isRed[K](node) {
			return nil
		}
		if isRed[K](node.Parent()) || isRed[K](node.Left()) || isRed[K](node.Right()) {
			return fmt.Errorf("%w: red key %v is adjacent to a red node", ErrRedViolation, node.Key())
		}
		return nil
	})
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
	        /  \
	     <8>    [15]
	     / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            <16>

2-3-4 tree like:

	       <8> --- [13] --- <15>
	      /  \             /    \
	     /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each NIL leaf to the root black depth is equal, so is the black
height of every node.
*/
// BlackViolationValidate p5. The black count is threaded down each
// path, the first NIL leaf reached sets the expected black height.
func BlackViolationValidate[K infra.OrderedKey](root RBNode[K]) error {
	if isNilLeaf[K](root) {
		return nil
	}

	type frame struct {
		node   RBNode[K]
		parent RBNode[K]
		blacks int
	}
	expected := -1
	stack := make([]frame, 0, 64)
	stack = append(stack, frame{node: root})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if isNilLeaf[K](f.node) {
			if expected < 0 {
				expected = f.blacks
			} else if f.blacks != expected {
				return fmt.Errorf("%w: leaf under key %v has black depth %d, expected %d",
					ErrBlackViolation, f.parent.Key(), f.blacks, expected)
			}
			continue
		}
		blacks := f.blacks
		if isBlack[K](f.node) {
			blacks++
		}
		stack = append(stack,
			frame{node: f.node.Right(), parent: f.node, blacks: blacks},
			frame{node: f.node.Left(), parent: f.node, blacks: blacks},
		)
	}
	return nil
}

// OrderViolationValidate checks the binary search tree order in the
// inorder traversal and the parent back-references.
func OrderViolationValidate[K infra.OrderedKey](root RBNode[K], compare infra.OrderedKeyComparator[K]) error {
	if isNilLeaf[K](root) {
		return nil
	}
	if compare == nil {
		compare = infra.AscKeyCompare[K]
	}

	var (
		prev    K
		hasPrev bool
		aux     = root
	)
	stack := make([]RBNode[K], 0, 64)
	for ; !isNilLeaf[K](aux); aux = aux.Left() {
		stack = append(stack, aux)
	}
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		key := aux.Key()
		if hasPrev && compare(prev, key) >= 0 {
			return fmt.Errorf("%w: key %v is not after key %v", ErrOrderViolation, key, prev)
		}
		prev, hasPrev = key, true

		for _, child := range [2]RBNode[K]{aux.Left(), aux.Right()} {
			if isNilLeaf[K](child) {
				continue
			}
			if p := child.Parent(); isNilLeaf[K](p) || compare(p.Key(), key) != 0 {
				return fmt.Errorf("%w: key %v has a broken parent link", ErrOrderViolation, child.Key())
			}
		}

		for aux = aux.Right(); !isNilLeaf[K](aux); aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

// VerifyProperties runs all validations and combines the violations.
func VerifyProperties[K infra.OrderedKey](root RBNode[K], compare infra.OrderedKeyComparator[K]) error {
	return multierr.Combine(
		ColorViolationValidate[K](root),
		RootViolationValidate[K](root),
		LeafViolationValidate[K](root),
		RedViolationValidate[K](root),
		BlackViolationValidate[K](root),
		OrderViolationValidate[K](root, compare),
	)
}

func (tree *rbTree[K]) verifySize() error {
	var nodes int64
	tree.Foreach(func(int64, RBColor, K) bool {
		nodes++
		return true
	})
	if used := tree.arena.used(); nodes != tree.count || used != tree.count {
		return fmt.Errorf("%w: %d reachable nodes, %d arena slots in use, length %d",
			ErrSizeViolation, nodes, used, tree.count)
	}
	return nil
}
