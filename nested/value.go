// Package nested is the tree model the traversers flatten: a value is
// either a leaf holding one scalar or a node holding an ordered list of
// child values. Values are immutable once built.
package nested

import (
	"fmt"
	"iter"
	"strings"
)

// Value is a leaf or a node. The zero Value is an empty node.
type Value[T any] struct {
	leaf     T
	children []Value[T]
	isLeaf   bool
}

// Leaf returns a leaf holding v.
func Leaf[T any](v T) Value[T] {
	return Value[T]{leaf: v, isLeaf: true}
}

// Node returns a node with the given children, in order. The slice is
// copied.
func Node[T any](children ...Value[T]) Value[T] {
	return Value[T]{children: append([]Value[T](nil), children...)}
}

// IsLeaf reports whether v is a leaf.
func (v Value[T]) IsLeaf() bool {
	return v.isLeaf
}

// Leaf returns the scalar held by a leaf. ok is false for nodes.
func (v Value[T]) Leaf() (leaf T, ok bool) {
	return v.leaf, v.isLeaf
}

// Len is the number of children of a node, 0 for a leaf.
func (v Value[T]) Len() int {
	return len(v.children)
}

// Child returns the i-th child of a node.
func (v Value[T]) Child(i int) Value[T] {
	return v.children[i]
}

// Children ranges over the children of a node in order.
func (v Value[T]) Children() iter.Seq[Value[T]] {
	return func(yield func(Value[T]) bool) {
		for _, c := range v.children {
			if !yield(c) {
				return
			}
		}
	}
}

// Depth is 0 for a leaf and one more than the deepest child for a node.
func (v Value[T]) Depth() int {
	if v.isLeaf {
		return 0
	}
	d := 0
	for _, c := range v.children {
		d = max(d, c.Depth())
	}
	return d + 1
}

// Size counts the leaves of v.
func (v Value[T]) Size() int {
	if v.isLeaf {
		return 1
	}
	n := 0
	for _, c := range v.children {
		n += c.Size()
	}
	return n
}

// Flatten returns the leaves of v in pre-order. It builds the whole
// result at once.
func (v Value[T]) Flatten() []T {
	return v.appendLeaves(make([]T, 0, v.Size()))
}

func (v Value[T]) appendLeaves(dst []T) []T {
	if v.isLeaf {
		return append(dst, v.leaf)
	}
	for _, c := range v.children {
		dst = c.appendLeaves(dst)
	}
	return dst
}

// String formats v as a literal, e.g. [1, [[2, 3], [4, 5]], [6, 7, 8]].
func (v Value[T]) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v Value[T]) format(sb *strings.Builder) {
	if v.isLeaf {
		fmt.Fprint(sb, v.leaf)
		return
	}
	sb.WriteByte('[')
	for i, c := range v.children {
		if i > 0 {
			sb.WriteString(", ")
		}
		c.format(sb)
	}
	sb.WriteByte(']')
}
