package tree

import (
	"iter"

	"github.com/benz9527/xrbtree/lib/infra"
)

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

// RBNode is a read-only view of a tree node.
// The absent children and the absent parent of the root
// are NIL leaves: IsNilLeaf reports true, they have no key
// and they are expected to be black.
type RBNode[K infra.OrderedKey] interface {
	Key() K
	Color() RBColor
	IsNilLeaf() bool
	Left() RBNode[K]
	Right() RBNode[K]
	Parent() RBNode[K]
}

// RBTree is an ordered set. Duplicated keys are rejected by
// Insert and missing keys are ignored by Delete, both of them
// report whether the tree has been changed.
// It is not safe for concurrent use, see NewSyncRBTree.
type RBTree[K infra.OrderedKey] interface {
	Len() int64
	Height() int
	Root() RBNode[K]
	Insert(key K) bool
	Delete(key K) bool
	Contains(key K) bool
	Lookup(key K) (RBNode[K], bool)
	// Verify checks all the rbtree properties.
	Verify() error
	// All yields the keys in the tree order. It is restartable,
	// but the tree must not be changed during the iteration.
	All() iter.Seq[K]
	Foreach(action func(idx int64, color RBColor, key K) bool)
	Release()
}
