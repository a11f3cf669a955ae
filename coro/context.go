package coro

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrStop is the distinguished termination condition a body raises
	// with Exit once it has produced everything. Consumers treat it as
	// normal completion.
	ErrStop = errors.New("coro: stop iteration")

	// ErrFinished is returned when a Finished context is resumed.
	ErrFinished = errors.New("coro: resume of finished coroutine")

	// ErrRunning is returned when a context is resumed or closed from
	// inside its own body.
	ErrRunning = errors.New("coro: coroutine already running")

	// ErrUnterminated is returned when a body returns without raising a
	// termination condition.
	ErrUnterminated = errors.New("coro: coroutine returned without termination")

	// ErrCanceled is raised inside a body that is closed while
	// suspended, and when Yield is called on a context that is not
	// running.
	ErrCanceled = errors.New("coro: coroutine canceled")

	_ unsafe.Pointer
)

// coroutine represents a native Go coroutine instance. It's an opaque
// struct used by the runtime functions.
type coroutine struct{}

//go:linkname newcoro runtime.newcoro
func newcoro(func(*coroutine)) *coroutine

//go:linkname coroswitch runtime.coroswitch
func coroswitch(*coroutine)

// exit is the panic value Exit unwinds a body with.
type exit struct{ err error }

// Context is an asymmetric coroutine: Yield always returns control to
// the caller of the Resume that entered it.
type Context[In, Out any] struct {
	c     *coroutine
	state State
	in    In
	out   Out
	term  error
	perr  error

	// handoff is touched on both sides of every switch so the race
	// detector sees each transfer of control as a synchronization.
	handoff atomic.Uint64
}

// New creates a coroutine running fn. Nothing executes until the first
// Resume, whose value fn receives as in.
//
// fn hands values out with ctx.Yield and must finish by raising a
// termination condition with ctx.Exit. A body that simply returns is
// reported to the resumer as ErrUnterminated.
func New[In, Out any](fn func(ctx *Context[In, Out], in In)) *Context[In, Out] {
	x := &Context[In, Out]{}

	x.c = newcoro(func(*coroutine) {
		x.handoff.Add(1)
		defer func() {
			switch p := recover().(type) {
			case nil:
				if x.term == nil && x.perr == nil {
					x.term = ErrUnterminated
				}
			case exit:
				x.term = p.err
			default:
				if err, ok := p.(error); !ok || err != x.perr {
					x.perr = newPanicError(p)
				}
			}
			x.state = Finished
			x.handoff.Add(1)
		}()

		if x.perr == nil {
			fn(x, x.in)
		}
	})

	return x
}

// State reports where the context is in its lifecycle.
func (x *Context[In, Out]) State() State {
	return x.state
}

// Resume transfers control into the context, carrying in, and returns
// the next value it yields.
//
// When the body raises a termination condition, Resume returns the
// zero value and that condition (ErrStop for a normal finish). Panics
// are returned as a *PanicError. Once the context is Finished every
// further Resume returns ErrFinished.
func (x *Context[In, Out]) Resume(in In) (Out, error) {
	var zero Out

	switch x.state {
	case Finished:
		return zero, ErrFinished
	case Running:
		return zero, ErrRunning
	}

	x.in = in
	x.state = Running
	x.switchTo()

	if x.state == Finished {
		if x.perr != nil {
			return zero, x.perr
		}
		return zero, x.term
	}
	return x.out, nil
}

// Yield hands out to the resumer and suspends until the next Resume,
// whose value it returns. It must only be called from the body.
func (x *Context[In, Out]) Yield(out Out) In {
	if x.state != Running {
		panic(ErrCanceled)
	}
	if x.perr != nil {
		panic(x.perr)
	}

	x.out = out
	x.state = Suspended
	x.switchTo()

	if x.perr != nil {
		panic(x.perr)
	}
	return x.in
}

// Exit raises err as the termination condition of the body and unwinds
// it; deferred calls in the body run. A nil err raises ErrStop. Exit
// never returns.
func (x *Context[In, Out]) Exit(err error) {
	if x.state != Running {
		panic(ErrCanceled)
	}
	if err == nil {
		err = ErrStop
	}
	panic(exit{err: err})
}

// Close unwinds a context that will not be resumed again. A suspended
// body sees ErrCanceled raised from its pending Yield, so its deferred
// calls run and its stack is released. Close is a no-op on a Finished
// context and returns a *PanicError if the body panics while
// unwinding.
func (x *Context[In, Out]) Close() error {
	switch x.state {
	case Finished:
		return nil
	case Running:
		return ErrRunning
	}

	canceled := fmt.Errorf("%w", ErrCanceled)
	x.perr = canceled
	x.state = Running
	x.switchTo()

	if x.perr != canceled {
		return x.perr
	}
	return nil
}

func (x *Context[In, Out]) switchTo() {
	x.handoff.Add(1)
	coroswitch(x.c)
	x.handoff.Add(1)
}
