package traverse

import (
	"errors"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/webriots/flatten/coro"
	"github.com/webriots/flatten/nested"
)

// errClosed unwinds the producer when the consumer closes early.
var errClosed = errors.New("traverse: channel closed")

type item[T any] struct {
	leaf T
	err  error
}

// Channel flattens a tree on a producer goroutine paired with the
// consumer through two unbuffered channels. The producer waits for a
// request before walking to each leaf and blocks again right after
// handing it over, so the two sides strictly alternate. The end of the
// walk is sent as an explicit item carrying coro.ErrStop, and a panic
// on the producer is sent as an item carrying the recovered error.
type Channel[T any] struct {
	req    chan struct{}
	resp   chan item[T]
	quit   chan struct{}
	wg     *conc.WaitGroup
	done   bool
	closed bool
}

// NewChannel starts the producer for root. It walks nothing until the
// first Next.
func NewChannel[T any](root nested.Value[T], opts ...Option) *Channel[T] {
	cfg := newConfig(opts)
	c := &Channel[T]{
		req:  make(chan struct{}),
		resp: make(chan item[T]),
		quit: make(chan struct{}),
		wg:   conc.NewWaitGroup(),
	}
	c.wg.Go(func() { c.produce(root, cfg) })
	return c
}

func (c *Channel[T]) produce(root nested.Value[T], cfg *config) {
	if !c.await() {
		return
	}

	var (
		err error
		pc  panics.Catcher
	)
	pc.Try(func() { err = c.visit(root, 0, cfg) })
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}

	switch {
	case errors.Is(err, errClosed):
		return
	case err == nil:
		err = coro.ErrStop
	}

	select {
	case c.resp <- item[T]{err: err}:
	case <-c.quit:
	}
}

func (c *Channel[T]) visit(x nested.Value[T], depth int, cfg *config) error {
	if v, ok := x.Leaf(); ok {
		cfg.onLeaf(depth)
		select {
		case c.resp <- item[T]{leaf: v}:
		case <-c.quit:
			return errClosed
		}
		if !c.await() {
			return errClosed
		}
		return nil
	}

	for child := range x.Children() {
		if err := c.visit(child, depth+1, cfg); err != nil {
			return err
		}
	}
	return nil
}

// await blocks until the consumer asks for the next leaf. It reports
// false if the consumer closed instead.
func (c *Channel[T]) await() bool {
	select {
	case <-c.req:
		return true
	case <-c.quit:
		return false
	}
}

// Next asks the producer for the next leaf and waits for it.
func (c *Channel[T]) Next() (T, bool, error) {
	var zero T
	if c.done {
		return zero, false, nil
	}

	c.req <- struct{}{}
	it := <-c.resp
	if it.err == nil {
		return it.leaf, true, nil
	}

	c.done = true
	c.wg.Wait()
	if errors.Is(it.err, coro.ErrStop) {
		return zero, false, nil
	}
	return zero, false, it.err
}

// Close stops the producer wherever it is blocked and waits for its
// goroutine to exit.
func (c *Channel[T]) Close() error {
	if c.closed {
		return nil
	}
	c.done, c.closed = true, true
	close(c.quit)
	c.wg.Wait()
	return nil
}
