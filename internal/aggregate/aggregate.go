// Package aggregate runs a fixed set of independent operations concurrently
// and reports every operation's outcome. A failing operation never cancels
// its siblings: the two pipeline branches consume the same primary artifact
// independently, and failure of either must not deny the caller the results
// of the other.
package aggregate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/daniel/graph-integrator/internal/outcome"
)

// Op is one asynchronous stage operation.
type Op[T any] func(ctx context.Context) outcome.Outcome[T]

// All executes every op concurrently, waits for all of them to reach a
// terminal state, and returns one outcome per op in submitted order. The
// context is passed through as-is: no derived cancellation links the ops to
// each other.
func All[T any](ctx context.Context, ops ...Op[T]) []outcome.Outcome[T] {
	results := make([]outcome.Outcome[T], len(ops))

	var g errgroup.Group
	for i, op := range ops {
		g.Go(func() error {
			results[i] = op(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Join2 executes two differently-typed operations concurrently and returns
// both outcomes. Completion order never changes the reported pair.
func Join2[A, B any](ctx context.Context, first Op[A], second Op[B]) (outcome.Outcome[A], outcome.Outcome[B]) {
	var a outcome.Outcome[A]
	var b outcome.Outcome[B]

	var g errgroup.Group
	g.Go(func() error {
		a = first(ctx)
		return nil
	})
	g.Go(func() error {
		b = second(ctx)
		return nil
	})
	_ = g.Wait()
	return a, b
}
