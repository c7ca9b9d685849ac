package tree

import (
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/xlog"
)

type rbTree[K infra.OrderedKey] struct {
	arena    *rbArena[K]
	compare  infra.OrderedKeyComparator[K]
	logger   xlog.XLogger
	stats    *rbStats
	root     uint32
	count    int64
	isDesc   bool
	isVerify bool
}

func (tree *rbTree[K]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K]) Root() RBNode[K] {
	return rbNodeRef[K]{tree: tree, idx: tree.root}
}

// Height is the node number of the longest path from the root
// to a NIL leaf. The empty tree height is 0.
func (tree *rbTree[K]) Height() int {
	if tree.root == nilLeaf {
		return 0
	}
	type frame struct {
		idx   uint32
		depth int
	}
	height := 0
	stack := make([]frame, 0, 64)
	stack = append(stack, frame{tree.root, 1})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > height {
			height = f.depth
		}
		n := tree.at(f.idx)
		if n.left != nilLeaf {
			stack = append(stack, frame{n.left, f.depth + 1})
		}
		if n.right != nilLeaf {
			stack = append(stack, frame{n.right, f.depth + 1})
		}
	}
	return height
}

// References:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. The root is black.
// p3. All NIL leaves are black.
// p4. A red node does not have a red parent or child. (red-violation)
// p5. Every path from a given node to any of its descendant
//   NIL leaves goes through the same number of black nodes. (black-violation)
// (Conclusion) If a node X has exactly one child, it must be a red child,
//   because if it were black, its NIL descendants would sit at a different
//   black depth than X's NIL child, violating p5.
// The longest path nodes' number is at most 2 * shortest path nodes' number.

// replaceInParent cuts the old node away from its parent,
// substituting the new node (or the NIL leaf) in its place.
func (tree *rbTree[K]) replaceInParent(oldNode, newNode uint32) {
	p := tree.at(oldNode).parent
	switch dir := tree.direction(oldNode); dir {
	case Root:
		tree.root = newNode
	case Left:
		tree.at(p).left = newNode
	case Right:
		tree.at(p).right = newNode
	default:
	}
	if newNode != nilLeaf {
		tree.at(newNode).parent = p
	}
}

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K]) leftRotate(x uint32) {
	if x == nilLeaf || tree.at(x).right == nilLeaf {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	y := tree.at(x).right
	tree.replaceInParent(x, y)
	sc := tree.at(y).left
	tree.at(x).right = sc
	if sc != nilLeaf {
		tree.at(sc).parent = x
	}
	tree.at(y).left = x
	tree.at(x).parent = y
	tree.stats.rotated(Left)
}

/*
			 |                         |
			 X                         S
			/ \     rightRotate(S)    / \
	       L   S    <============    X   R
			  / \                   / \
			Sc   Sd               Sc   Sd
*/
func (tree *rbTree[K]) rightRotate(x uint32) {
	if x == nilLeaf || tree.at(x).left == nilLeaf {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	y := tree.at(x).left
	tree.replaceInParent(x, y)
	sc := tree.at(y).right
	tree.at(x).left = sc
	if sc != nilLeaf {
		tree.at(sc).parent = x
	}
	tree.at(y).right = x
	tree.at(x).parent = y
	tree.stats.rotated(Right)
}

// rotateTo rotates at x and x moves down to the dir side.
func (tree *rbTree[K]) rotateTo(x uint32, dir RBDirection) {
	switch dir {
	case Left:
		tree.leftRotate(x)
	case Right:
		tree.rightRotate(x)
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] rotate without direction")
	}
}

func (tree *rbTree[K]) search(key K) uint32 {
	for aux := tree.root; aux != nilLeaf; {
		res := tree.compare(key, tree.at(aux).key)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = tree.at(aux).right
		} else {
			aux = tree.at(aux).left
		}
	}
	return nilLeaf
}

func (tree *rbTree[K]) Lookup(key K) (RBNode[K], bool) {
	if x := tree.search(key); x != nilLeaf {
		return rbNodeRef[K]{tree: tree, idx: x}, true
	}
	return nil, false
}

func (tree *rbTree[K]) Contains(key K) bool {
	return tree.search(key) != nilLeaf
}

// Insert returns false if the key is present already and the
// tree is left untouched.
// i1: Empty rbtree, the new node becomes the root and is painted to black.
func (tree *rbTree[K]) Insert(key K) bool {
	var (
		x, y = tree.root, nilLeaf
		res  int64
	)
	for x != nilLeaf {
		y = x
		res = tree.compare(key, tree.at(x).key)
		if /* equal */ res == 0 {
			return false
		} else /* less */ if res < 0 {
			x = tree.at(x).left
		} else /* greater */ {
			x = tree.at(x).right
		}
	}

	z := tree.arena.malloc(key)
	tree.at(z).parent = y
	if /* i1 */ y == nilLeaf {
		tree.root = z
	} else if res < 0 {
		tree.at(y).left = z
	} else {
		tree.at(y).right = z
	}

	tree.count++
	tree.stats.resized(1)
	tree.insertRebalance(z)
	tree.verifyOrPanic("insert", key)
	return true
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

im1: Current node X is the root, repaint it into black.

im2: Current node X's parent P is black, hold p4 and p5.

im3: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Continue to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black. (red-violation)
X is the inner grandchild. Rotate P to the opposite direction of X.
After rotation it is still red-violation. P becomes the outer
grandchild, enter im5 to fix it.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: X is the outer grandchild, the same direction as its parent.

	    [G]                 [P]
	    / \    rotate(G)    / \
	  <P> [U]  ========>  <X> <G>
	  /                         \
	<X>                         [U]
*/
func (tree *rbTree[K]) insertRebalance(x uint32) {
	for {
		if /* im1 */ tree.isRoot(x) {
			tree.at(x).color = Black
			tree.fixed("insert", "root")
			return
		}

		p := tree.at(x).parent
		if /* im2 */ tree.isBlack(p) {
			tree.fixed("insert", "black-parent")
			return
		}

		// A red parent is never the root, the grandpa exists.
		g, u := tree.grandpa(x), tree.uncle(x)
		if /* im3 */ tree.isRed(u) {
			tree.at(p).color = Black
			tree.at(u).color = Black
			tree.at(g).color = Red
			tree.fixed("insert", "red-uncle")
			x = g
			continue
		}

		if dir := tree.direction(x); /* im4 */ dir != tree.direction(p) {
			tree.rotateTo(p, -dir)
			tree.fixed("insert", "inner-grandchild")
			x, p = p, x
		}

		/* im5 */
		tree.at(p).color = Black
		tree.at(g).color = Red
		tree.rotateTo(g, -tree.direction(x))
		tree.fixed("insert", "outer-grandchild")
		return
	}
}

// Delete returns false if the key is absent.
func (tree *rbTree[K]) Delete(key K) bool {
	z := tree.search(key)
	if z == nilLeaf {
		return false
	}
	tree.removeNode(z)
	tree.count--
	tree.stats.resized(-1)
	tree.verifyOrPanic("delete", key)
	return true
}

/*
r1: Current node X has left and right node.
Copy the key of its pred (the maximum node of its left subtree)
into X, then remove the pred instead. The pred has no right node.

	  |                    |
	  X                    L
	 / \                  / \
	L  ..   copy(L, X)   L  ..
	 \      =========>    \
	  P                    P (removed)

r2: Current node X is red. It must be a leaf, remove directly.

r3: Current node X is black with a red child. Replace X by the
child and repaint the child into black.

r4: Current node X is a black leaf. Removing it makes its path one
black node short (black-violation). Rebalance around X before it is
cut away, X stays in the tree as the NIL placeholder meanwhile.
*/
func (tree *rbTree[K]) removeNode(z uint32) {
	y := z
	if /* r1 */ tree.at(y).left != nilLeaf && tree.at(y).right != nilLeaf {
		y = tree.maximum(tree.at(z).left)
		tree.at(z).key = tree.at(y).key
	}

	child := tree.at(y).left
	if child == nilLeaf {
		child = tree.at(y).right
	}

	if /* r4 */ tree.isBlack(y) && tree.isBlack(child) {
		tree.removeRebalance(y)
	}

	tree.replaceInParent(y, child)
	if /* r3 */ child != nilLeaf {
		tree.at(child).color = Black
	}
	if tree.root != nilLeaf {
		tree.at(tree.root).color = Black
	}
	tree.arena.release(y)
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

Sc is the same direction to X and it is X's sibling's child node (near).
Sd is the opposite direction to X and it is X's sibling's child node (far).

rm1: Current node X is the root. Nothing to fix.

rm2: Current node X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. (Otherwise, red-violation)
(1) repaint S into black, P into red.
(2) X is left node of P, left rotate P.
(3) X is right node of P, right rotate P.
X gets a black sibling, enter rm3-rm6.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  =====>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm3: All of current node X's parent P, the sibling S, nephew node Sc and Sd
are black.
Paint the S into red to satisfy p5 locally. Then all paths through P are
one black node short, continue to handle P.

	  [P]             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm4: Current node X's parent P is red, the sibling S, nephew node Sc and Sd
are black.
Repaint S into red and P into black.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm5: Current node X's sibling S is black, nephew node Sc is red and Sd
is black. Ignore X's parent P's color (red or black is okay)
(1) Repaint S into red, Sc into black.
(2) If X is left node of P, right rotate S.
(3) If X is right node of P, left rotate S.
Sc becomes the sibling with a red far child, enter rm6 to fix.

	  {P}                   {P}
	  / \    r-rotate(S)    / \
	[X] [S]  ==========>  [X] [Sc]
	    / \                     \
	  <Sc> [Sd]                 <S>
	                              \
	                              [Sd]

rm6: Current node X's sibling S is black, nephew node Sd is red.
Ignore X's parent P's and Sc's color.
(1) S takes P's color, repaint P and Sd into black.
(2) If X is left node of P, left rotate P.
(3) If X is right node of P, right rotate P.

	  {P}                   {S}
	  / \    l-rotate(P)    / \
	[X] [S]  ==========>  [P] [Sd]
	    / \               / \
	 {Sc} <Sd>          [X] {Sc}
*/
func (tree *rbTree[K]) removeRebalance(x uint32) {
	for {
		if /* rm1 */ tree.isRoot(x) {
			tree.fixed("delete", "root")
			return
		}

		dir := tree.direction(x)
		p, s := tree.at(x).parent, tree.sibling(x)
		if s == nilLeaf {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove rebalance without sibling, black violation")
		}

		if /* rm2 */ tree.isRed(s) {
			tree.at(s).color = Black
			tree.at(p).color = Red
			tree.rotateTo(p, dir)
			tree.fixed("delete", "red-sibling")
			s = tree.sibling(x)
		}

		sc, sd := tree.nephews(s, dir)
		if tree.isBlack(sc) && tree.isBlack(sd) {
			if /* rm3 */ tree.isBlack(p) {
				tree.at(s).color = Red
				tree.fixed("delete", "black-family")
				x = p
				continue
			}
			/* rm4 */
			tree.at(s).color = Red
			tree.at(p).color = Black
			tree.fixed("delete", "red-parent")
			return
		}

		if /* rm5 */ tree.isBlack(sd) {
			tree.at(s).color = Red
			tree.at(sc).color = Black
			tree.rotateTo(s, -dir)
			tree.fixed("delete", "near-nephew")
			s = tree.sibling(x)
			_, sd = tree.nephews(s, dir)
		}

		/* rm6 */
		tree.at(s).color = tree.at(p).color
		tree.at(p).color = Black
		tree.at(sd).color = Black
		tree.rotateTo(p, dir)
		tree.fixed("delete", "far-nephew")
		return
	}
}

// nephews returns the near and far child of the sibling s,
// the near one is at the same side as the current node.
func (tree *rbTree[K]) nephews(s uint32, dir RBDirection) (sc, sd uint32) {
	switch dir {
	case Left:
		return tree.at(s).left, tree.at(s).right
	case Right:
		return tree.at(s).right, tree.at(s).left
	default:
	}
	// impossible run to here
	panic( /* debug assertion */ "[rbtree] root node without nephews")
}

func (tree *rbTree[K]) fixed(op, fixCase string) {
	tree.stats.fixed(op, fixCase)
	if tree.logger != nil {
		tree.logger.Debug("[rbtree] rebalanced",
			zap.String("op", op),
			zap.String("case", fixCase),
		)
	}
}

func (tree *rbTree[K]) Verify() error {
	if err := VerifyProperties[K](tree.Root(), tree.compare); err != nil {
		return err
	}
	return tree.verifySize()
}

func (tree *rbTree[K]) verifyOrPanic(op string, key K) {
	if !tree.isVerify {
		return
	}
	if err := tree.Verify(); err != nil {
		// Skip the verifyOrPanic and the Insert or Delete.
		mutatedAt := infra.CallerFrame(2)
		if tree.logger != nil {
			tree.logger.Error(err, "[rbtree] properties violated",
				zap.String("op", op),
				zap.Any("key", key),
				zap.Any("mutatedAt", mutatedAt),
			)
		}
		panic(fmt.Errorf("%w: %s %v at %v", err, op, key, mutatedAt))
	}
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	aux := tree.root
	if aux == nilLeaf {
		return
	}

	stack := make([]uint32, 0, 64)
	for ; aux != nilLeaf; aux = tree.at(aux).left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		n := tree.at(aux)
		if !action(idx, n.color, n.key) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = n.right; aux != nilLeaf; aux = tree.at(aux).left {
			stack = append(stack, aux)
		}
	}
}

func (tree *rbTree[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		tree.Foreach(func(_ int64, _ RBColor, key K) bool {
			return yield(key)
		})
	}
}

func (tree *rbTree[K]) Release() {
	tree.stats.resized(-tree.count)
	tree.arena.reset()
	tree.root = nilLeaf
	tree.count = 0
}

type RBTreeOpt[K infra.OrderedKey] func(*rbTree[K])

// WithRBTreeDesc keeps the keys in descending order.
func WithRBTreeDesc[K infra.OrderedKey]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isDesc = true
	}
}

// WithRBTreeVerify verifies all the rbtree properties after each
// insertion and deletion. It costs O(n), debug and test only.
// The tree panics on the first violation.
func WithRBTreeVerify[K infra.OrderedKey]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isVerify = true
	}
}

func WithRBTreeLogger[K infra.OrderedKey](logger xlog.XLogger) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		if logger != nil {
			tree.logger = logger.Named("rbtree")
		}
	}
}

// WithRBTreeArenaCap preallocates the node slots.
func WithRBTreeArenaCap[K infra.OrderedKey](capacity int) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.arena = newRBArena[K](capacity)
	}
}

func NewRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) RBTree[K] {
	return newRBTree[K](opts...)
}

func newRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) *rbTree[K] {
	tree := &rbTree[K]{
		root:     nilLeaf,
		count:    0,
		isDesc:   false,
		isVerify: false,
	}

	for _, o := range opts {
		o(tree)
	}

	if tree.arena == nil {
		tree.arena = newRBArena[K](defaultArenaCap)
	}
	if tree.isDesc {
		tree.compare = infra.DescKeyCompare[K]
	} else {
		tree.compare = infra.AscKeyCompare[K]
	}
	return tree
}
