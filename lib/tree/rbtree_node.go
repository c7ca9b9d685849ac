package tree

import (
	"github.com/benz9527/xrbtree/lib/infra"
)

// nilLeaf is the index of the sentinel slot. It is the NIL
// leaf of every absent child and the parent of the root.
// The sentinel is black and its links are never written.
const nilLeaf uint32 = 0

const defaultArenaCap = 16

// The links are arena indices, so the parent back-reference
// is a plain number instead of a pointer cycle.
type rbNode[K infra.OrderedKey] struct {
	parent uint32
	left   uint32
	right  uint32
	key    K
	color  RBColor
}

// References:
// https://github.com/src-d/hercules/blob/master/internal/rbtree/rbtree.go
// Nodes are allocated from a dense slice and the freed slots
// are recycled by a free list. Slot 0 is reserved.
type rbArena[K infra.OrderedKey] struct {
	nodes []rbNode[K]
	free  []uint32
}

func newRBArena[K infra.OrderedKey](capacity int) *rbArena[K] {
	if capacity <= 0 {
		capacity = defaultArenaCap
	}
	arena := &rbArena[K]{
		nodes: make([]rbNode[K], 1, capacity+1),
	}
	arena.nodes[nilLeaf].color = Black
	return arena
}

// The slice may be reallocated, so the node pointers taken
// before malloc are invalid after it.
func (arena *rbArena[K]) malloc(key K) uint32 {
	if l := len(arena.free); l > 0 {
		idx := arena.free[l-1]
		arena.free = arena.free[:l-1]
		arena.nodes[idx] = rbNode[K]{key: key, color: Red}
		return idx
	}
	if uint64(len(arena.nodes)) >= 1<<32-1 {
		panic( /* debug assertion */ "[rbtree] arena is full")
	}
	arena.nodes = append(arena.nodes, rbNode[K]{key: key, color: Red})
	return uint32(len(arena.nodes) - 1)
}

func (arena *rbArena[K]) release(idx uint32) {
	if idx == nilLeaf || int(idx) >= len(arena.nodes) {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] release the nil leaf or an unknown slot")
	}
	arena.nodes[idx] = rbNode[K]{}
	arena.free = append(arena.free, idx)
}

func (arena *rbArena[K]) used() int64 {
	return int64(len(arena.nodes) - 1 - len(arena.free))
}

func (arena *rbArena[K]) reset() {
	clear(arena.nodes)
	arena.nodes = arena.nodes[:1]
	arena.nodes[nilLeaf].color = Black
	arena.free = arena.free[:0]
}

// Node navigation.

func (tree *rbTree[K]) at(x uint32) *rbNode[K] {
	return &tree.arena.nodes[x]
}

func (tree *rbTree[K]) isRed(x uint32) bool {
	return x != nilLeaf && tree.arena.nodes[x].color == Red
}

func (tree *rbTree[K]) isBlack(x uint32) bool {
	return x == nilLeaf || tree.arena.nodes[x].color == Black
}

func (tree *rbTree[K]) isRoot(x uint32) bool {
	return x != nilLeaf && tree.arena.nodes[x].parent == nilLeaf
}

func (tree *rbTree[K]) direction(x uint32) RBDirection {
	if x == nilLeaf {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}

	p := tree.arena.nodes[x].parent
	if p == nilLeaf {
		return Root
	}
	if tree.arena.nodes[p].left == x {
		return Left
	}
	return Right
}

func (tree *rbTree[K]) sibling(x uint32) uint32 {
	switch dir := tree.direction(x); dir {
	case Left:
		return tree.at(tree.at(x).parent).right
	case Right:
		return tree.at(tree.at(x).parent).left
	default:
	}
	// impossible run to here
	panic( /* debug assertion */ "[rbtree] root node without sibling")
}

func (tree *rbTree[K]) grandpa(x uint32) uint32 {
	if x == nilLeaf || tree.isRoot(x) || tree.isRoot(tree.at(x).parent) {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] node without grandpa")
	}
	return tree.at(tree.at(x).parent).parent
}

func (tree *rbTree[K]) uncle(x uint32) uint32 {
	if x == nilLeaf || tree.isRoot(x) {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] node without uncle")
	}
	return tree.sibling(tree.at(x).parent)
}

func (tree *rbTree[K]) minimum(x uint32) uint32 {
	for ; x != nilLeaf && tree.at(x).left != nilLeaf; x = tree.at(x).left {
	}
	return x
}

func (tree *rbTree[K]) maximum(x uint32) uint32 {
	for ; x != nilLeaf && tree.at(x).right != nilLeaf; x = tree.at(x).right {
	}
	return x
}

// rbNodeRef is the RBNode view of an arena slot.
// It stays valid until the slot is deleted.
type rbNodeRef[K infra.OrderedKey] struct {
	tree *rbTree[K]
	idx  uint32
}

var _ RBNode[int] = rbNodeRef[int]{}

func (ref rbNodeRef[K]) Key() K {
	return ref.tree.at(ref.idx).key
}

func (ref rbNodeRef[K]) Color() RBColor {
	return ref.tree.at(ref.idx).color
}

func (ref rbNodeRef[K]) IsNilLeaf() bool {
	return ref.idx == nilLeaf
}

func (ref rbNodeRef[K]) Left() RBNode[K] {
	if ref.idx == nilLeaf {
		return nil
	}
	return rbNodeRef[K]{tree: ref.tree, idx: ref.tree.at(ref.idx).left}
}

func (ref rbNodeRef[K]) Right() RBNode[K] {
	if ref.idx == nilLeaf {
		return nil
	}
	return rbNodeRef[K]{tree: ref.tree, idx: ref.tree.at(ref.idx).right}
}

func (ref rbNodeRef[K]) Parent() RBNode[K] {
	if ref.idx == nilLeaf {
		return nil
	}
	return rbNodeRef[K]{tree: ref.tree, idx: ref.tree.at(ref.idx).parent}
}
