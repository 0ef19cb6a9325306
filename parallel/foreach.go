// Package parallel provides bounded fan-out helpers whose results keep the
// order of their inputs.
package parallel

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ForEach executes a for loop with a limited number of concurrent goroutines.
// Each goroutine processes one integer, from 0 to length.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			body(i)
		}(i)
	}

	wg.Wait()
}

// Split partitions items into exactly n contiguous groups whose sizes differ
// by at most one. The first len(items)%n groups carry the extra element, so
// trailing groups are empty when n exceeds len(items).
func Split[T any](items []T, n int) [][]T {
	if n < 1 {
		panic(fmt.Sprintf("parallel: split into %d groups", n))
	}

	size, extra := len(items)/n, len(items)%n
	groups := make([][]T, n)
	start := 0
	for i := range groups {
		end := start + size
		if i < extra {
			end++
		}
		groups[i] = items[start:end:end]
		start = end
	}
	return groups
}

// Map calls fn for every input using at most limit goroutines and returns the
// outputs indexed like the inputs. The first failure cancels the context seen
// by the remaining calls and is returned once every started call has exited.
func Map[In, Out any](ctx context.Context, inputs []In, limit int, fn func(ctx context.Context, i int, in In) (Out, error)) ([]Out, error) {
	if limit <= 0 {
		limit = 1
	}

	out := make([]Out, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, in := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(gctx, i, in)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
