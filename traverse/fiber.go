package traverse

import (
	"errors"

	"github.com/webriots/flatten/coro"
	"github.com/webriots/flatten/nested"
)

// Fiber flattens a tree inside a single coroutine. The traversal is an
// ordinary recursive walk; reaching a leaf suspends the whole stack of
// recursive calls and hands the leaf to whoever resumed the coroutine.
// After the last leaf the coroutine raises coro.ErrStop.
type Fiber[T any] struct {
	ctx  *coro.Context[struct{}, T]
	done bool
}

// NewFiber returns a suspended traversal of root. Nothing runs until
// the first Resume or Next.
func NewFiber[T any](root nested.Value[T], opts ...Option) *Fiber[T] {
	cfg := newConfig(opts)
	return newFiber(func(ctx *coro.Context[struct{}, T]) {
		visitFiber(root, 0, ctx, cfg)
		ctx.Exit(coro.ErrStop)
	})
}

func newFiber[T any](body func(ctx *coro.Context[struct{}, T])) *Fiber[T] {
	return &Fiber[T]{
		ctx: coro.New(func(ctx *coro.Context[struct{}, T], _ struct{}) {
			body(ctx)
		}),
	}
}

func visitFiber[T any](x nested.Value[T], depth int, ctx *coro.Context[struct{}, T], cfg *config) {
	if v, ok := x.Leaf(); ok {
		cfg.onLeaf(depth)
		ctx.Yield(v)
		return
	}
	for c := range x.Children() {
		visitFiber(c, depth+1, ctx, cfg)
	}
}

// Resume runs the traversal up to the next leaf. It returns
// coro.ErrStop once the traversal is complete and coro.ErrFinished if
// it is resumed after that.
func (f *Fiber[T]) Resume() (T, error) {
	return f.ctx.Resume(struct{}{})
}

// State is the state of the underlying coroutine.
func (f *Fiber[T]) State() coro.State {
	return f.ctx.State()
}

// Next resumes the traversal and reports exhaustion instead of
// coro.ErrStop.
func (f *Fiber[T]) Next() (T, bool, error) {
	var zero T
	if f.done {
		return zero, false, nil
	}

	v, err := f.Resume()
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, coro.ErrStop):
		f.done = true
		return zero, false, nil
	default:
		f.done = true
		return zero, false, err
	}
}

// Close unwinds a traversal abandoned before completion.
func (f *Fiber[T]) Close() error {
	f.done = true
	return f.ctx.Close()
}
