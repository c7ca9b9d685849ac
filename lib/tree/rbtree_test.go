package tree

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireShape(t *testing.T, tree RBTree[uint64], expected []checkData) {
	t.Helper()
	require.Equal(t, int64(len(expected)), tree.Len())
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, expected[idx].color, color, "key %d", key)
		require.Equal(t, expected[idx].key, key)
		return true
	})
	require.NoError(t, tree.Verify())
}

func TestRbtreeLeftAndRightRotate_Pred(t *testing.T) {
	tree := newRBTree[uint64]()

	require.True(t, tree.Insert(52))
	requireShape(t, tree, []checkData{
		{Black, 52},
	})

	require.True(t, tree.Insert(47))
	requireShape(t, tree, []checkData{
		{Red, 47}, {Black, 52},
	})

	require.True(t, tree.Insert(3))
	requireShape(t, tree, []checkData{
		{Red, 3}, {Black, 47}, {Red, 52},
	})

	require.True(t, tree.Insert(35))
	requireShape(t, tree, []checkData{
		{Black, 3},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	require.True(t, tree.Insert(24))
	requireShape(t, tree, []checkData{
		{Red, 3},
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	// remove

	require.True(t, tree.Delete(24))
	requireShape(t, tree, []checkData{
		{Black, 3},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	require.True(t, tree.Delete(47))
	requireShape(t, tree, []checkData{
		{Black, 3},
		{Black, 35},
		{Black, 52},
	})

	require.True(t, tree.Delete(52))
	requireShape(t, tree, []checkData{
		{Red, 3}, {Black, 35},
	})

	require.True(t, tree.Delete(3))
	requireShape(t, tree, []checkData{
		{Black, 35},
	})

	require.True(t, tree.Delete(35))
	require.Equal(t, int64(0), tree.Len())
	require.True(t, tree.Root().IsNilLeaf())
	require.Equal(t, int64(0), tree.arena.used())
}

func TestRbtree_DeleteMinimum(t *testing.T) {
	tree := newRBTree[uint64](WithRBTreeVerify[uint64]())
	for _, key := range []uint64{52, 47, 3, 35, 24} {
		require.True(t, tree.Insert(key))
	}

	require.True(t, tree.Delete(3))
	requireShape(t, tree, []checkData{
		{Black, 24},
		{Red, 35},
		{Black, 47},
		{Black, 52},
	})

	require.True(t, tree.Delete(24))
	requireShape(t, tree, []checkData{
		{Black, 35},
		{Black, 47},
		{Black, 52},
	})

	require.True(t, tree.Delete(35))
	requireShape(t, tree, []checkData{
		{Black, 47}, {Red, 52},
	})

	require.True(t, tree.Delete(47))
	requireShape(t, tree, []checkData{
		{Black, 52},
	})

	require.True(t, tree.Delete(52))
	require.Equal(t, int64(0), tree.Len())
}

func TestRbtree_Scenario(t *testing.T) {
	tree := NewRBTree[int](WithRBTreeVerify[int]())
	require.Empty(t, slices.Collect(tree.All()))

	for _, num := range []int{5, 10, 7, 6, 7, 8} {
		tree.Insert(num)
	}
	require.Equal(t, []int{5, 6, 7, 8, 10}, slices.Collect(tree.All()))
	require.True(t, tree.Contains(7))
	require.False(t, tree.Contains(-10))

	require.True(t, tree.Delete(7))
	require.Equal(t, []int{5, 6, 8, 10}, slices.Collect(tree.All()))
	require.False(t, tree.Contains(7))

	require.True(t, tree.Delete(5))
	require.False(t, tree.Delete(20))
	require.Equal(t, []int{6, 8, 10}, slices.Collect(tree.All()))

	require.False(t, tree.Delete(100))
	require.False(t, tree.Delete(5))
	require.True(t, tree.Delete(8))
	require.Equal(t, []int{6, 10}, slices.Collect(tree.All()))

	require.True(t, tree.Delete(6))
	require.False(t, tree.Delete(8))
	require.True(t, tree.Delete(10))
	require.False(t, tree.Delete(-1))
	require.Empty(t, slices.Collect(tree.All()))
	require.False(t, tree.Contains(8))
	require.Equal(t, int64(0), tree.Len())
	require.Equal(t, 0, tree.Height())
}

func TestRbtree_DuplicateInsertAndMissingDeleteKeepStructure(t *testing.T) {
	tree := newRBTree[int]()
	for _, key := range []int{40, 20, 60, 10, 30, 50, 70, 25, 35} {
		require.True(t, tree.Insert(key))
	}
	require.True(t, tree.Delete(20))

	snapshot := func() ([]rbNode[int], []uint32, uint32, int64) {
		return slices.Clone(tree.arena.nodes), slices.Clone(tree.arena.free), tree.root, tree.count
	}
	nodes, free, root, count := snapshot()

	for _, key := range []int{40, 10, 25, 35, 70} {
		require.False(t, tree.Insert(key))
	}
	for _, key := range []int{20, -1, 100, 33} {
		require.False(t, tree.Delete(key))
	}

	_nodes, _free, _root, _count := snapshot()
	require.Equal(t, nodes, _nodes)
	require.Equal(t, free, _free)
	require.Equal(t, root, _root)
	require.Equal(t, count, _count)
}

func TestRbtree_Lookup(t *testing.T) {
	tree := NewRBTree[uint64]()
	_, ok := tree.Lookup(1)
	require.False(t, ok)

	for _, key := range []uint64{52, 47, 3} {
		tree.Insert(key)
	}
	node, ok := tree.Lookup(47)
	require.True(t, ok)
	require.Equal(t, uint64(47), node.Key())
	require.Equal(t, Black, node.Color())
	require.False(t, node.IsNilLeaf())
	require.True(t, node.Parent().IsNilLeaf())
	require.Equal(t, uint64(3), node.Left().Key())
	require.Equal(t, Red, node.Left().Color())
	require.Equal(t, uint64(52), node.Right().Key())
	require.Equal(t, uint64(47), node.Right().Parent().Key())

	leaf := node.Left().Left()
	require.True(t, leaf.IsNilLeaf())
	require.Equal(t, Black, leaf.Color())
	require.Nil(t, leaf.Left())
	require.Nil(t, leaf.Right())
	require.Nil(t, leaf.Parent())

	node, ok = tree.Lookup(100)
	require.False(t, ok)
	require.Nil(t, node)
}

func TestRbtree_DeleteRetargetsToPredecessor(t *testing.T) {
	tree := newRBTree[int]()
	for _, key := range []int{5, 10, 7, 6, 8} {
		tree.Insert(key)
	}
	// 7 is the root with both children, its pred 6 is copied in place.
	root := tree.root
	require.Equal(t, 7, tree.at(root).key)
	require.True(t, tree.Delete(7))
	require.Equal(t, root, tree.root)
	require.Equal(t, 6, tree.at(root).key)
	require.NoError(t, tree.Verify())
}

func TestRbtree_ArenaSlotsReused(t *testing.T) {
	tree := newRBTree[int](WithRBTreeArenaCap[int](4))
	for i := 0; i < 8; i++ {
		tree.Insert(i)
	}
	slots := len(tree.arena.nodes)
	for i := 0; i < 8; i += 2 {
		require.True(t, tree.Delete(i))
	}
	require.Len(t, tree.arena.free, 4)
	for i := 100; i < 104; i++ {
		require.True(t, tree.Insert(i))
	}
	require.Len(t, tree.arena.nodes, slots)
	require.Empty(t, tree.arena.free)
	require.Equal(t, []int{1, 3, 5, 7, 100, 101, 102, 103}, slices.Collect(tree.All()))
	require.NoError(t, tree.Verify())
}

func TestRbtree_Release(t *testing.T) {
	tree := NewRBTree[string]()
	for _, key := range []string{"b", "a", "c", "d"} {
		tree.Insert(key)
	}
	tree.Release()
	require.Equal(t, int64(0), tree.Len())
	require.Equal(t, 0, tree.Height())
	require.True(t, tree.Root().IsNilLeaf())
	require.False(t, tree.Contains("a"))
	require.Empty(t, slices.Collect(tree.All()))
	require.NoError(t, tree.Verify())

	tree.Insert("z")
	tree.Insert("y")
	require.Equal(t, []string{"y", "z"}, slices.Collect(tree.All()))
	require.NoError(t, tree.Verify())
}

func TestRbtree_Desc(t *testing.T) {
	tree := NewRBTree[float64](WithRBTreeDesc[float64](), WithRBTreeVerify[float64]())
	for _, key := range []float64{1.5, -2, 3.25, 0, 10, 3.25} {
		tree.Insert(key)
	}
	require.Equal(t, []float64{10, 3.25, 1.5, 0, -2}, slices.Collect(tree.All()))
	require.True(t, tree.Delete(3.25))
	require.Equal(t, []float64{10, 1.5, 0, -2}, slices.Collect(tree.All()))
}

func TestRbtree_AllIsLazyAndRestartable(t *testing.T) {
	tree := NewRBTree[int]()
	for i := 9; i >= 0; i-- {
		tree.Insert(i)
	}
	seq := tree.All()

	first := make([]int, 0, 3)
	for key := range seq {
		if len(first) == 3 {
			break
		}
		first = append(first, key)
	}
	require.Equal(t, []int{0, 1, 2}, first)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, slices.Collect(seq))

	visited := 0
	tree.Foreach(func(idx int64, color RBColor, key int) bool {
		visited++
		return idx < 4
	})
	require.Equal(t, 5, visited)
}

func TestRbtree_Height(t *testing.T) {
	tree := NewRBTree[int]()
	require.Equal(t, 0, tree.Height())
	tree.Insert(1)
	require.Equal(t, 1, tree.Height())
	tree.Insert(2)
	require.Equal(t, 2, tree.Height())
	tree.Insert(3)
	require.Equal(t, 2, tree.Height())
	for i := 4; i <= 1023; i++ {
		tree.Insert(i)
	}
	require.LessOrEqual(t, tree.Height(), 20)
}

func TestRbtree_Rotate(t *testing.T) {
	tree := newRBTree[int]()
	for _, key := range []int{2, 1, 4, 3, 5} {
		tree.Insert(key)
	}
	before := slices.Collect(tree.All())
	oldRoot := tree.root

	tree.leftRotate(oldRoot)
	require.Equal(t, 4, tree.at(tree.root).key)
	require.Equal(t, nilLeaf, tree.at(tree.root).parent)
	require.Equal(t, oldRoot, tree.at(tree.root).left)
	require.Equal(t, 3, tree.at(tree.at(oldRoot).right).key)
	require.Equal(t, oldRoot, tree.at(tree.at(oldRoot).right).parent)
	require.Equal(t, before, slices.Collect(tree.All()))
	require.NoError(t, OrderViolationValidate[int](tree.Root(), nil))

	tree.rightRotate(tree.root)
	require.Equal(t, oldRoot, tree.root)
	require.Equal(t, before, slices.Collect(tree.All()))
	require.NoError(t, tree.Verify())
}

func TestRbtree_NavigationAssertions(t *testing.T) {
	tree := newRBTree[int]()
	for _, key := range []int{2, 1, 3, 4} {
		tree.Insert(key)
	}
	root := tree.root
	one, _ := tree.Lookup(1)
	four, _ := tree.Lookup(4)
	x1, x4 := one.(rbNodeRef[int]).idx, four.(rbNodeRef[int]).idx

	require.Equal(t, Root, tree.direction(root))
	require.Equal(t, Left, tree.direction(x1))
	require.Equal(t, root, tree.grandpa(x4))
	require.Equal(t, x1, tree.uncle(x4))
	require.Equal(t, tree.at(root).right, tree.sibling(x1))
	require.Equal(t, nilLeaf, tree.sibling(x4))

	require.Panics(t, func() { tree.direction(nilLeaf) })
	require.Panics(t, func() { tree.sibling(root) })
	require.Panics(t, func() { tree.grandpa(root) })
	require.Panics(t, func() { tree.grandpa(x1) })
	require.Panics(t, func() { tree.uncle(root) })
	require.Panics(t, func() { tree.leftRotate(x1) })
	require.Panics(t, func() { tree.rightRotate(x4) })
	require.Panics(t, func() { tree.rotateTo(root, Root) })
	require.Panics(t, func() { tree.arena.release(nilLeaf) })
	require.NoError(t, tree.Verify())
}

func TestRBColorAndDirectionString(t *testing.T) {
	require.Equal(t, "Black", Black.String())
	require.Equal(t, "Red", Red.String())
	require.Equal(t, "RBColor(7)", RBColor(7).String())
	require.Equal(t, "Left", Left.String())
	require.Equal(t, "Root", Root.String())
	require.Equal(t, "Right", Right.String())
	require.Equal(t, "RBDirection(3)", RBDirection(3).String())
}
