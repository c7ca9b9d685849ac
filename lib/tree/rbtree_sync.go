package tree

import (
	"iter"
	"sync"

	"github.com/benz9527/xrbtree/lib/infra"
)

// syncRBTree serializes the tree operations by one lock.
// Insert, Delete and Release take the write lock.
type syncRBTree[K infra.OrderedKey] struct {
	lock sync.RWMutex
	tree RBTree[K]
}

var _ RBTree[int] = (*syncRBTree[int])(nil)

// NewSyncRBTree wraps the tree for concurrent use.
// The RBNode views returned by Root and Lookup read the tree
// without the lock, do not keep them across mutations.
// Foreach and All hold the read lock during the iteration,
// the actions must not mutate the tree.
func NewSyncRBTree[K infra.OrderedKey](tree RBTree[K]) RBTree[K] {
	if tree == nil {
		tree = NewRBTree[K]()
	}
	return &syncRBTree[K]{tree: tree}
}

func (t *syncRBTree[K]) Len() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Len()
}

func (t *syncRBTree[K]) Height() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Height()
}

func (t *syncRBTree[K]) Root() RBNode[K] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Root()
}

func (t *syncRBTree[K]) Insert(key K) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Insert(key)
}

func (t *syncRBTree[K]) Delete(key K) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Delete(key)
}

func (t *syncRBTree[K]) Contains(key K) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Contains(key)
}

func (t *syncRBTree[K]) Lookup(key K) (RBNode[K], bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Lookup(key)
}

func (t *syncRBTree[K]) Verify() error {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Verify()
}

func (t *syncRBTree[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		t.lock.RLock()
		defer t.lock.RUnlock()
		for key := range t.tree.All() {
			if !yield(key) {
				return
			}
		}
	}
}

func (t *syncRBTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	t.tree.Foreach(action)
}

func (t *syncRBTree[K]) Release() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.tree.Release()
}
