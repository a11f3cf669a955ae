// Package traverse flattens a nested.Value into its leaves in pre-order,
// lazily, one leaf per request. Several interchangeable realizations
// are provided; they differ only in how the traversal is suspended
// between leaves:
//
//   - Generate relays range-over-func sequences through a delegation
//     chain as deep as the tree.
//   - Fiber runs one plain recursive traversal inside a coro.Context
//     and yields every leaf to its resumer.
//   - Transfer spawns a coro.Fiber per child and switches every leaf
//     straight to the fiber that created the traversal.
//   - Channel runs the traversal on a producer goroutine that hands
//     leaves over an unbuffered channel in strict ping-pong.
//   - Machine keeps an explicit stack of frames and advances it by hand.
//
// All of them are exposed as an Iterator.
package traverse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/webriots/flatten/nested"
)

// Iterator is a pull-based stream of leaves.
type Iterator[T any] interface {
	// Next returns the next leaf. ok is false once the stream is
	// exhausted, and stays false on later calls.
	Next() (leaf T, ok bool, err error)

	// Close releases whatever suspended state backs the iterator. It
	// may be called at any point and more than once.
	Close() error
}

// Option configures a traverser.
type Option func(*config)

type config struct {
	onLeaf func(depth int)
}

// OnLeaf registers fn to be called each time the traverser visits a
// leaf, with the leaf's depth below the root.
func OnLeaf(fn func(depth int)) Option {
	return func(c *config) {
		c.onLeaf = fn
	}
}

func newConfig(opts []Option) *config {
	c := &config{onLeaf: func(int) {}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ErrUnknownKind is returned by ParseKind for names it does not know.
var ErrUnknownKind = errors.New("traverse: unknown realization")

// Kind names a realization.
type Kind int

// Realizations, in the order Kinds lists them.
const (
	KindGenerator Kind = iota
	KindFiber
	KindTransfer
	KindChannel
	KindMachine
)

var kindNames = [...]string{
	KindGenerator: "generator",
	KindFiber:     "fiber",
	KindTransfer:  "transfer",
	KindChannel:   "channel",
	KindMachine:   "machine",
}

// Kinds lists every realization.
func Kinds() []Kind {
	return []Kind{KindGenerator, KindFiber, KindTransfer, KindChannel, KindMachine}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a realization name to its Kind, ignoring case.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q (known: %s)", ErrUnknownKind, s, strings.Join(kindNames[:], ", "))
}

// New builds the realization k over root.
func New[T any](k Kind, root nested.Value[T], opts ...Option) (Iterator[T], error) {
	switch k {
	case KindGenerator:
		return NewGenerator(root, opts...), nil
	case KindFiber:
		return NewFiber(root, opts...), nil
	case KindTransfer:
		return NewTransfer(root, opts...), nil
	case KindChannel:
		return NewChannel(root, opts...), nil
	case KindMachine:
		return NewMachine(root, opts...), nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnknownKind, k)
	}
}

// Collect drains it into a slice and closes it.
func Collect[T any](it Iterator[T]) (leaves []T, err error) {
	defer func() {
		err = errors.Join(err, it.Close())
	}()

	for {
		v, ok, nextErr := it.Next()
		if nextErr != nil {
			return leaves, nextErr
		}
		if !ok {
			return leaves, nil
		}
		leaves = append(leaves, v)
	}
}
