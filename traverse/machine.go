package traverse

import "github.com/webriots/flatten/nested"

type frame[T any] struct {
	node nested.Value[T]
	next int
}

// Machine flattens a tree without any suspendable context: the
// recursion is unrolled into an explicit stack of frames, each holding
// a node and the index of the next child to descend into. Every Next
// resumes from the saved frames and runs until it reaches a leaf.
type Machine[T any] struct {
	root    nested.Value[T]
	stack   []frame[T]
	started bool
	cfg     *config
}

// NewMachine returns a traversal of root with an empty frame stack.
func NewMachine[T any](root nested.Value[T], opts ...Option) *Machine[T] {
	return &Machine[T]{root: root, cfg: newConfig(opts)}
}

// Next advances the frames to the next leaf.
func (m *Machine[T]) Next() (T, bool, error) {
	var zero T

	if !m.started {
		m.started = true
		m.stack = append(m.stack, frame[T]{node: m.root})
	}

	for len(m.stack) > 0 {
		top := &m.stack[len(m.stack)-1]

		if v, ok := top.node.Leaf(); ok {
			m.stack = m.stack[:len(m.stack)-1]
			m.cfg.onLeaf(len(m.stack))
			return v, true, nil
		}

		if top.next == top.node.Len() {
			m.stack = m.stack[:len(m.stack)-1]
			continue
		}

		child := top.node.Child(top.next)
		top.next++
		m.stack = append(m.stack, frame[T]{node: child})
	}

	return zero, false, nil
}

// Close drops the saved frames.
func (m *Machine[T]) Close() error {
	m.started = true
	m.stack = nil
	return nil
}
