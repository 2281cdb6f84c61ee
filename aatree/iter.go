package aatree

import "iter"

// Iter walks every element in ascending order. Needed for the ordered
// interval index in the collection package; absent from this tree's
// original form since nothing else in this module required full traversal.
func (t *AATree[X]) Iter() iter.Seq[X] {
	return func(yield func(X) bool) {
		t.walk(t.root, yield)
	}
}

func (t *AATree[X]) walk(node *treeNode[X], yield func(X) bool) bool {
	if node == nil {
		return true
	}
	if !t.walk(node.left, yield) {
		return false
	}
	if !yield(node.data) {
		return false
	}
	return t.walk(node.right, yield)
}
