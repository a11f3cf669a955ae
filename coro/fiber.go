package coro

import (
	"errors"
	"slices"

	"github.com/sourcegraph/conc"
)

var (
	// ErrNotRunning is returned when a fiber that is not the running one
	// tries to hand off control.
	ErrNotRunning = errors.New("coro: fiber is not running")

	// ErrNotMain is returned by operations reserved for the main fiber.
	ErrNotMain = errors.New("coro: not the main fiber")
)

type transfer[T any] struct {
	from *Fiber[T]
	val  T
	err  error
	kill bool
}

// unwind is the panic value a fiber unwinds with after Throw or when it
// is killed by Close.
type unwind struct{}

type group[T any] struct {
	wg   *conc.WaitGroup
	live []*Fiber[T]
}

func (g *group[T]) remove(f *Fiber[T]) {
	if i := slices.Index(g.live, f); i >= 0 {
		g.live = slices.Delete(g.live, i, i+1)
	}
}

// Fiber is a symmetric execution context. Fibers belong to the group of
// the Main fiber they descend from and hand control to each other with
// Switch.
type Fiber[T any] struct {
	group  *group[T]
	parent *Fiber[T]
	fn     func(self *Fiber[T], v T)
	wake   chan transfer[T]
	state  State
	main   bool

	exitTo  *Fiber[T]
	exitErr error
}

// Main returns a handle for the calling goroutine and starts a new
// fiber group around it. The handle is Running from the start.
func Main[T any]() *Fiber[T] {
	return &Fiber[T]{
		group: &group[T]{wg: conc.NewWaitGroup()},
		wake:  make(chan transfer[T]),
		state: Running,
		main:  true,
	}
}

// Spawn creates a fiber that will run fn once something switches into
// it; fn receives the value carried by that first Switch. f becomes the
// parent of the new fiber: when fn returns, control passes to f, or to
// the nearest ancestor that has not finished.
func (f *Fiber[T]) Spawn(fn func(self *Fiber[T], v T)) *Fiber[T] {
	return &Fiber[T]{
		group:  f.group,
		parent: f,
		fn:     fn,
		wake:   make(chan transfer[T]),
	}
}

// State reports where the fiber is in its lifecycle.
func (f *Fiber[T]) State() State {
	return f.state
}

// Switch suspends f, which must be the running fiber, and transfers
// control into to, carrying v. It returns once some fiber transfers
// control back to f: the value it carried, the fiber that sent it, and
// the error thrown into f, if any. A fiber whose body returned sends
// the zero value and is Finished by the time Switch returns.
//
// Switching into a Finished fiber returns ErrFinished without giving
// up control.
func (f *Fiber[T]) Switch(to *Fiber[T], v T) (T, *Fiber[T], error) {
	var zero T

	switch {
	case f.state != Running:
		return zero, nil, ErrNotRunning
	case to == f:
		return v, f, nil
	case to.state == Finished:
		return zero, nil, ErrFinished
	}

	f.state = Suspended
	f.deliver(to, transfer[T]{from: f, val: v})
	return f.receive()
}

// Throw unwinds f, which must be the running fiber spawned by Spawn,
// and then raises err from the pending Switch of to. Deferred calls in
// f run before to resumes. A nil err raises ErrStop. If to has finished
// in the meantime, the error goes to its nearest live ancestor. Throw
// never returns.
func (f *Fiber[T]) Throw(to *Fiber[T], err error) {
	switch {
	case f.main:
		panic(ErrNotMain)
	case f.state != Running:
		panic(ErrNotRunning)
	}
	if err == nil {
		err = ErrStop
	}

	f.exitTo = to
	f.exitErr = err
	panic(unwind{})
}

// Close unwinds every fiber of the group that is still suspended, most
// recently started first, and waits for their goroutines to exit. It
// must be called on the main fiber. Panics raised while unwinding are
// joined into the returned error.
func (f *Fiber[T]) Close() error {
	if !f.main {
		return ErrNotMain
	}

	var errs []error
	for len(f.group.live) > 0 {
		victim := f.group.live[len(f.group.live)-1]
		f.state = Suspended
		f.deliver(victim, transfer[T]{from: f, kill: true})
		t := <-f.wake
		if t.err != nil {
			errs = append(errs, t.err)
		}
	}

	f.group.wg.Wait()
	return errors.Join(errs...)
}

// deliver makes to the running fiber, starting its goroutine on first
// entry.
func (f *Fiber[T]) deliver(to *Fiber[T], t transfer[T]) {
	if to.state == Created {
		to.state = Running
		f.group.live = append(f.group.live, to)
		f.group.wg.Go(func() { to.run(t) })
		return
	}

	to.state = Running
	to.wake <- t
}

func (f *Fiber[T]) receive() (T, *Fiber[T], error) {
	t := <-f.wake
	if t.kill {
		f.exitTo = t.from
		panic(unwind{})
	}
	return t.val, t.from, t.err
}

func (f *Fiber[T]) run(first transfer[T]) {
	defer func() {
		p := recover()

		f.state = Finished
		f.group.remove(f)

		to, out := f.parent, transfer[T]{from: f}
		if f.exitTo != nil {
			to, out.err = f.exitTo, f.exitErr
		}
		if _, ok := p.(unwind); !ok && p != nil {
			out.err = newPanicError(p)
		}

		for to.state == Finished || to.state == Created {
			to = to.parent
		}
		to.state = Running
		to.wake <- out
	}()

	f.fn(f, first.val)
}
