// Package parallel runs region-based work on a pool of goroutines.
//
// The output region is split into disjoint chunks, each handed to exactly one
// worker, so workers can write to a shared output buffer without locking.
// Cancellation is observed between chunks, never inside a chunk.
package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"ndvoxel/pkg/faces"
	"ndvoxel/pkg/region"
)

// RegionFunc processes one chunk. chunk is disjoint from every other chunk
// of the same run.
type RegionFunc func(ctx context.Context, chunk region.Region) error

// Executor splits regions and runs a RegionFunc over the chunks.
type Executor struct {
	// NumWorkers is the maximum number of concurrent chunks. Values < 1 mean
	// runtime.NumCPU().
	NumWorkers int

	// ChunksPerWorker oversplits the region so faster workers pick up more
	// chunks. Values < 1 mean 1.
	ChunksPerWorker int
}

// NewExecutor returns an executor with numWorkers workers and four chunks per
// worker.
func NewExecutor(numWorkers int) *Executor {
	return &Executor{NumWorkers: numWorkers, ChunksPerWorker: 4}
}

func (e *Executor) workers() int {
	if e == nil || e.NumWorkers < 1 {
		return runtime.NumCPU()
	}
	return e.NumWorkers
}

// Chunks returns the partition of r the executor would use.
func (e *Executor) Chunks(r region.Region) []region.Region {
	per := 1
	if e != nil && e.ChunksPerWorker > 1 {
		per = e.ChunksPerWorker
	}
	return faces.Split(r, e.workers()*per)
}

// Run calls fn for every chunk of r. The first error cancels the context
// passed to the remaining chunks and is returned. A cancelled ctx stops
// chunks that have not started yet.
func (e *Executor) Run(ctx context.Context, r region.Region, fn RegionFunc) error {
	chunks := e.Chunks(r)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, chunk); err != nil {
				return fmt.Errorf("chunk %d %s: %w", i, chunk, err)
			}
			return nil
		})
	}
	return g.Wait()
}
