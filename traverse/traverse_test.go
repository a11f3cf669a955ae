package traverse

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webriots/flatten/coro"
	"github.com/webriots/flatten/nested"
)

func sample() nested.Value[int] {
	return nested.Node(
		nested.Leaf(1),
		nested.Node(
			nested.Node(nested.Leaf(2), nested.Leaf(3)),
			nested.Node(nested.Leaf(4), nested.Leaf(5)),
		),
		nested.Node(nested.Leaf(6), nested.Leaf(7), nested.Leaf(8)),
	)
}

// chain nests a single leaf depth levels deep.
func chain(depth int) nested.Value[int] {
	v := nested.Leaf(depth)
	for i := 0; i < depth; i++ {
		v = nested.Node(v)
	}
	return v
}

// wide builds a full tree with the given fan-out and depth, numbering
// leaves from 0 in pre-order.
func wide(fanout, depth int) nested.Value[int] {
	next := 0
	var build func(d int) nested.Value[int]
	build = func(d int) nested.Value[int] {
		if d == 0 {
			next++
			return nested.Leaf(next - 1)
		}
		children := make([]nested.Value[int], fanout)
		for i := range children {
			children[i] = build(d - 1)
		}
		return nested.Node(children...)
	}
	return build(depth)
}

func trees() map[string]nested.Value[int] {
	return map[string]nested.Value[int]{
		"sample":      sample(),
		"single leaf": nested.Leaf(5),
		"empty node":  nested.Node[int](),
		"empties":     nested.Node(nested.Node[int](), nested.Node(nested.Node[int](), nested.Leaf(1)), nested.Node[int]()),
		"deep chain":  chain(64),
		"wide":        wide(3, 4),
	}
}

// within fails the test instead of hanging when fn does not return.
func within(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out")
	}
}

func TestRealizationsAgree(t *testing.T) {
	for name, tree := range trees() {
		want := tree.Flatten()
		for _, k := range Kinds() {
			t.Run(fmt.Sprintf("%s/%s", name, k), func(t *testing.T) {
				it, err := New(k, tree)
				require.NoError(t, err)

				var got []int
				within(t, 5*time.Second, func() {
					got, err = Collect(it)
				})
				require.NoError(t, err)
				if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("leaves mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestSample(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			it, err := New(k, sample())
			require.NoError(t, err)
			got, err := Collect(it)
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, got)
		})
	}
}

func TestConcatenationLaw(t *testing.T) {
	tree := sample()
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			var want []int
			for c := range tree.Children() {
				it, err := New(k, c)
				require.NoError(t, err)
				part, err := Collect(it)
				require.NoError(t, err)
				want = append(want, part...)
			}

			it, err := New(k, tree)
			require.NoError(t, err)
			got, err := Collect(it)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDeterminism(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			var first []int
			for i := 0; i < 3; i++ {
				it, err := New(k, wide(2, 5))
				require.NoError(t, err)
				got, err := Collect(it)
				require.NoError(t, err)
				if i == 0 {
					first = got
					continue
				}
				assert.Equal(t, first, got)
			}
		})
	}
}

func TestEmptyNodeVisitsNothing(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			visits := 0
			it, err := New(k, nested.Node[int](), OnLeaf(func(int) { visits++ }))
			require.NoError(t, err)

			_, ok, err := it.Next()
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Zero(t, visits)

			_, ok, err = it.Next()
			require.NoError(t, err)
			assert.False(t, ok)
			require.NoError(t, it.Close())
		})
	}
}

func TestLaziness(t *testing.T) {
	tree := wide(4, 3)
	for _, k := range Kinds() {
		for _, take := range []int{0, 1, 5, 17} {
			t.Run(fmt.Sprintf("%s/%d", k, take), func(t *testing.T) {
				visits, deepest := 0, 0
				it, err := New(k, tree, OnLeaf(func(depth int) {
					visits++
					deepest = max(deepest, depth)
				}))
				require.NoError(t, err)

				for i := 0; i < take; i++ {
					v, ok, err := it.Next()
					require.NoError(t, err)
					require.True(t, ok)
					assert.Equal(t, i, v)
				}
				require.NoError(t, it.Close())

				assert.LessOrEqual(t, visits, take)
				if take > 0 {
					assert.Equal(t, tree.Depth(), deepest)
				}
			})
		}
	}
}

func TestNextAfterExhaustion(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			it, err := New(k, nested.Leaf(5))
			require.NoError(t, err)

			v, ok, err := it.Next()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 5, v)

			for i := 0; i < 3; i++ {
				_, ok, err = it.Next()
				require.NoError(t, err)
				assert.False(t, ok)
			}
			require.NoError(t, it.Close())
			require.NoError(t, it.Close())
		})
	}
}

// rawCoroutine is the protocol shared by the coroutine realizations
// before termination is translated into exhaustion.
type rawCoroutine interface {
	Resume() (int, error)
	State() coro.State
	Close() error
}

func coroutines(root nested.Value[int]) map[string]rawCoroutine {
	return map[string]rawCoroutine{
		"fiber":    NewFiber(root),
		"transfer": NewTransfer(root),
	}
}

func TestCoroutineStates(t *testing.T) {
	for name, c := range coroutines(nested.Node(nested.Leaf(1), nested.Leaf(2))) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, coro.Created, c.State())

			v, err := c.Resume()
			require.NoError(t, err)
			assert.Equal(t, 1, v)
			assert.Equal(t, coro.Suspended, c.State())

			v, err = c.Resume()
			require.NoError(t, err)
			assert.Equal(t, 2, v)

			_, err = c.Resume()
			require.ErrorIs(t, err, coro.ErrStop)
			assert.Equal(t, coro.Finished, c.State())
			require.NoError(t, c.Close())
		})
	}
}

func TestResumeFinished(t *testing.T) {
	for name, c := range coroutines(sample()) {
		t.Run(name, func(t *testing.T) {
			var got []int
			for {
				v, err := c.Resume()
				if errors.Is(err, coro.ErrStop) {
					break
				}
				require.NoError(t, err)
				got = append(got, v)
			}
			assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, got)

			within(t, time.Second, func() {
				v, err := c.Resume()
				assert.ErrorIs(t, err, coro.ErrFinished)
				assert.Zero(t, v)
			})
			require.NoError(t, c.Close())
		})
	}
}

func TestUnterminatedTraversalDoesNotHang(t *testing.T) {
	tree := sample()
	malformed := map[string]Iterator[int]{
		"fiber": newFiber(func(ctx *coro.Context[struct{}, int]) {
			visitFiber(tree, 0, ctx, newConfig(nil))
		}),
		"transfer": newTransfer(func(self, main *coro.Fiber[int]) {
			visitTransfer(tree, 0, self, main, newConfig(nil))
		}),
	}

	for name, it := range malformed {
		t.Run(name, func(t *testing.T) {
			var (
				got []int
				err error
			)
			within(t, 5*time.Second, func() {
				got, err = Collect(it)
			})
			require.ErrorIs(t, err, coro.ErrUnterminated)
			assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, got)
		})
	}
}

func TestAbandonedTraversalUnwinds(t *testing.T) {
	tree := sample()

	t.Run("fiber", func(t *testing.T) {
		unwound := false
		f := newFiber(func(ctx *coro.Context[struct{}, int]) {
			defer func() { unwound = true }()
			visitFiber(tree, 0, ctx, newConfig(nil))
			ctx.Exit(coro.ErrStop)
		})

		_, ok, err := f.Next()
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, f.Close())
		assert.True(t, unwound)
		assert.Equal(t, coro.Finished, f.State())
		_, err = f.Resume()
		require.ErrorIs(t, err, coro.ErrFinished)
	})

	t.Run("transfer", func(t *testing.T) {
		unwound := false
		tr := newTransfer(func(self, main *coro.Fiber[int]) {
			defer func() { unwound = true }()
			visitTransfer(tree, 0, self, main, newConfig(nil))
			self.Throw(main, coro.ErrStop)
		})

		for i := 0; i < 3; i++ {
			_, ok, err := tr.Next()
			require.NoError(t, err)
			require.True(t, ok)
		}

		within(t, 5*time.Second, func() {
			assert.NoError(t, tr.Close())
		})
		assert.True(t, unwound)
		_, ok, err := tr.Next()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("channel", func(t *testing.T) {
		c := NewChannel(tree)
		_, ok, err := c.Next()
		require.NoError(t, err)
		require.True(t, ok)

		within(t, 5*time.Second, func() {
			assert.NoError(t, c.Close())
		})
		_, ok, err = c.Next()
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTransferPanicReachesConsumer(t *testing.T) {
	tr := newTransfer(func(self, main *coro.Fiber[int]) {
		child := self.Spawn(func(me *coro.Fiber[int], _ int) {
			panic("leaf exploded")
		})
		if _, _, err := self.Switch(child, 0); err != nil {
			self.Throw(main, err)
		}
		self.Throw(main, coro.ErrStop)
	})

	var err error
	within(t, 5*time.Second, func() {
		_, err = Collect[int](tr)
	})
	var pe *coro.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "leaf exploded", pe.Value())
}

func TestGenerateStopsEarly(t *testing.T) {
	var got []int
	for v := range Generate(sample()) {
		if v > 3 {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind("TRANSFER")
	require.NoError(t, err)
	assert.Equal(t, KindTransfer, got)

	_, err = ParseKind("greenlet")
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = New(Kind(42), sample())
	require.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestPanickingCallbackDoesNotHang(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			it, err := New(k, nested.Node(nested.Leaf(1)), OnLeaf(func(int) {
				panic("leaf callback exploded")
			}))
			require.NoError(t, err)

			var (
				nextErr   error
				recovered any
			)
			within(t, 5*time.Second, func() {
				defer func() { recovered = recover() }()
				_, _, nextErr = it.Next()
			})

			switch k {
			case KindGenerator, KindMachine:
				assert.Equal(t, "leaf callback exploded", recovered)
			default:
				assert.Nil(t, recovered)
				require.Error(t, nextErr)
				assert.Contains(t, nextErr.Error(), "leaf callback exploded")
			}

			within(t, 5*time.Second, func() {
				assert.NoError(t, it.Close())
			})
		})
	}
}
