package traverse

import (
	"iter"

	"github.com/webriots/flatten/nested"
)

// Generate returns the leaves of root as a lazy sequence. Each node
// ranges over the sequences of its children in turn and relays what
// they produce, so a pending value travels up a chain of frames as deep
// as the tree and nothing is buffered.
func Generate[T any](root nested.Value[T], opts ...Option) iter.Seq[T] {
	return generate(root, 0, newConfig(opts))
}

func generate[T any](x nested.Value[T], depth int, cfg *config) iter.Seq[T] {
	return func(yield func(T) bool) {
		if v, ok := x.Leaf(); ok {
			cfg.onLeaf(depth)
			yield(v)
			return
		}
		for c := range x.Children() {
			for v := range generate(c, depth+1, cfg) {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// Generator adapts Generate to the Iterator interface.
type Generator[T any] struct {
	next func() (T, bool)
	stop func()
}

// NewGenerator pulls from Generate(root, opts...).
func NewGenerator[T any](root nested.Value[T], opts ...Option) *Generator[T] {
	next, stop := iter.Pull(Generate(root, opts...))
	return &Generator[T]{next: next, stop: stop}
}

// Next returns the next leaf; it never fails.
func (g *Generator[T]) Next() (T, bool, error) {
	v, ok := g.next()
	return v, ok, nil
}

// Close stops the pull iterator.
func (g *Generator[T]) Close() error {
	g.stop()
	return nil
}
