package coro

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// PanicError carries a panic recovered inside a Context or Fiber back
// to the context that resumed it, together with the stack of the
// panicking goroutine.
type PanicError struct {
	value any
	stack []byte
}

func newPanicError(v any) error {
	return &PanicError{
		value: v,
		stack: debug.Stack(),
	}
}

// Value returns the value passed to panic.
func (p *PanicError) Value() any {
	return p.value
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("%v", p.value)
}

// ErrorWithStack is Error followed by the stack captured at recovery.
func (p *PanicError) ErrorWithStack() string {
	return fmt.Sprintf("%v\n\n%s", p.value, p.stack)
}

func (p *PanicError) Unwrap() error {
	err, _ := p.value.(error)
	return err
}

// DebugString walks the error tree rooted at p, printing every
// PanicError with its stack. Panics that crossed several contexts
// therefore show one stack per context.
func (p *PanicError) DebugString() string {
	var (
		sb   strings.Builder
		seen = make(map[error]bool)
		walk func(error)
	)

	walk = func(e error) {
		if e == nil || seen[e] {
			return
		}
		seen[e] = true

		if pe, ok := e.(*PanicError); ok {
			sb.WriteString(pe.ErrorWithStack())
		} else {
			sb.WriteString(e.Error())
		}

		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}

	walk(p)
	return sb.String()
}
