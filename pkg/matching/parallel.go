package matching

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanOut splits items into contiguous chunks, runs fn on each chunk over at
// most workers goroutines and concatenates the results in chunk order, so
// the output does not depend on scheduling.
func fanOut[T, R any](ctx context.Context, workers int, items []T, fn func(T) []R) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (len(items) + workers - 1) / workers
	chunks := (len(items) + chunkSize - 1) / chunkSize
	results := make([][]R, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		lo := c * chunkSize
		hi := min(lo+chunkSize, len(items))
		g.Go(func() error {
			out := make([]R, 0)
			for _, item := range items[lo:hi] {
				if err := ctx.Err(); err != nil {
					return err
				}
				out = append(out, fn(item)...)
			}
			results[c] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]R, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}
