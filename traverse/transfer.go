package traverse

import (
	"errors"

	"github.com/webriots/flatten/coro"
	"github.com/webriots/flatten/nested"
)

// Transfer flattens a tree with one fiber per visited value. The fiber
// that creates the traversal is captured once, at construction, and
// every leaf is switched straight to it from whatever depth it was
// found at; the fibers of the enclosing nodes stay suspended and are
// never involved in the hand-off. The consumer resumes whichever fiber
// sent the last leaf. When the walk is complete the top fiber throws
// coro.ErrStop into the captured fiber.
type Transfer[T any] struct {
	main *coro.Fiber[T]
	cur  *coro.Fiber[T]
	done bool
}

// NewTransfer captures a main fiber for the calling goroutine and
// spawns the top fiber of the walk over root.
func NewTransfer[T any](root nested.Value[T], opts ...Option) *Transfer[T] {
	cfg := newConfig(opts)
	return newTransfer(func(self, main *coro.Fiber[T]) {
		visitTransfer(root, 0, self, main, cfg)
		self.Throw(main, coro.ErrStop)
	})
}

func newTransfer[T any](body func(self, main *coro.Fiber[T])) *Transfer[T] {
	main := coro.Main[T]()
	top := main.Spawn(func(self *coro.Fiber[T], _ T) {
		body(self, main)
	})
	return &Transfer[T]{main: main, cur: top}
}

func visitTransfer[T any](x nested.Value[T], depth int, self, main *coro.Fiber[T], cfg *config) {
	var zero T

	if v, ok := x.Leaf(); ok {
		cfg.onLeaf(depth)
		if _, _, err := self.Switch(main, v); err != nil {
			self.Throw(main, err)
		}
		return
	}

	for c := range x.Children() {
		child := self.Spawn(func(me *coro.Fiber[T], _ T) {
			visitTransfer(c, depth+1, me, main, cfg)
		})
		if _, _, err := self.Switch(child, zero); err != nil {
			self.Throw(main, err)
		}
	}
}

// Resume switches into the fiber that produced the previous leaf, or
// into the top fiber the first time, and returns the next leaf. It
// returns coro.ErrStop once the traversal is complete and
// coro.ErrFinished if it is resumed after that.
func (t *Transfer[T]) Resume() (T, error) {
	var zero T

	v, from, err := t.main.Switch(t.cur, zero)
	switch {
	case err != nil:
		if from != nil {
			t.cur = from
		}
		return zero, err
	case from.State() == coro.Finished:
		t.cur = from
		return zero, coro.ErrUnterminated
	}

	t.cur = from
	return v, nil
}

// State is the state of the fiber the traversal will resume next.
func (t *Transfer[T]) State() coro.State {
	return t.cur.State()
}

// Next resumes the traversal. On exhaustion or failure it closes the
// fiber group before returning.
func (t *Transfer[T]) Next() (T, bool, error) {
	var zero T
	if t.done {
		return zero, false, nil
	}

	v, err := t.Resume()
	if err == nil {
		return v, true, nil
	}

	t.done = true
	err = errors.Join(ignoreStop(err), t.main.Close())
	return zero, false, err
}

// Close unwinds every fiber still suspended in the traversal and waits
// for their goroutines to exit.
func (t *Transfer[T]) Close() error {
	t.done = true
	return t.main.Close()
}

func ignoreStop(err error) error {
	if errors.Is(err, coro.ErrStop) {
		return nil
	}
	return err
}
