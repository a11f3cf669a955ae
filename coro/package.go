// Package coro provides the suspendable execution contexts the
// traversers in this module are built on. It offers two flavors.
//
// A Context is an asymmetric coroutine backed by the Go runtime's
// native coroutine switch. It is created with New, entered with
// Resume, and hands values back to whoever resumed it with Yield. When
// the body has nothing left to produce it raises a termination
// condition with Exit, which unwinds the body and is returned from the
// pending Resume. Close unwinds a context that was abandoned while
// suspended.
//
// A Fiber is a symmetric context: any fiber can Switch into any other
// fiber of its group, carrying a value, and the receiver learns which
// fiber sent it. Every operation takes the current fiber explicitly;
// there is no ambient "current fiber" lookup. The goroutine that
// creates a group obtains its own handle with Main. Fibers run on
// goroutines, but hand-offs are strictly ping-pong over unbuffered
// channels, so exactly one fiber of a group runs at a time.
//
// Panics inside either flavor are recovered, wrapped with the stack of
// the panicking context, and returned to the resumer as a *PanicError
// rather than re-raised.
package coro
