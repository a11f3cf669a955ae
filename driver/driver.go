// Package driver drains a traversal and emits its leaves, one line
// each.
package driver

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/webriots/flatten/traverse"
)

// Driver writes leaves to an io.Writer.
type Driver struct {
	out io.Writer
	log *zap.SugaredLogger

	// Limit stops the drain after this many leaves; 0 drains
	// everything. The traversal is closed either way.
	Limit int
}

// New returns a Driver writing to out. A nil log discards log output.
func New(out io.Writer, log *zap.SugaredLogger) *Driver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Driver{out: out, log: log}
}

// Run pulls leaves from it until it is exhausted, fails, or the limit
// is reached, writing each leaf on its own line. It always closes it
// and returns the number of leaves written.
func Run[T any](d *Driver, it traverse.Iterator[T]) (n int, err error) {
	defer func() {
		if cerr := it.Close(); cerr != nil {
			d.log.Warnw("Closing traversal failed", "err", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	for d.Limit <= 0 || n < d.Limit {
		v, ok, nextErr := it.Next()
		if nextErr != nil {
			d.log.Errorw("Traversal failed", "emitted", n, "err", nextErr)
			return n, nextErr
		}
		if !ok {
			d.log.Infow("Traversal complete", "emitted", n)
			return n, nil
		}
		if _, werr := fmt.Fprintln(d.out, v); werr != nil {
			return n, werr
		}
		n++
		d.log.Debugw("Emitted leaf", "index", n, "leaf", v)
	}

	d.log.Infow("Traversal stopped at limit", "emitted", n, "limit", d.Limit)
	return n, nil
}
