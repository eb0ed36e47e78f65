package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency is the worker pool width used when none is configured.
const DefaultMaxConcurrency = 4

type fanOutConfig struct {
	chunkTimeout time.Duration
	onProgress   func(ChunkResult)
	logger       *slog.Logger
}

// FanOutOption customizes RunFanOut.
type FanOutOption func(*fanOutConfig)

// WithChunkTimeout bounds each chunk's summary call. Zero disables the bound.
func WithChunkTimeout(d time.Duration) FanOutOption {
	return func(c *fanOutConfig) { c.chunkTimeout = d }
}

// WithProgress registers a callback invoked from the worker goroutine after
// each chunk completes. It may be called concurrently.
func WithProgress(fn func(ChunkResult)) FanOutOption {
	return func(c *fanOutConfig) { c.onProgress = fn }
}

// WithLogger sets the logger used for recovered panics.
func WithLogger(l *slog.Logger) FanOutOption {
	return func(c *fanOutConfig) { c.logger = l }
}

// RunFanOut summarizes every chunk on a pool of maxConcurrency workers and
// returns the results in chunk order, whatever order they completed in.
//
// If the signal is already stopped no task starts and RunFanOut returns an
// empty slice with ErrCancellationRequested. Every chunk is tracked on the
// signal from dispatch, so a stop join also waits for queued chunks. After a
// stop, running tasks finish and queued chunks degrade without calling fn.
// Every chunk yields exactly one result; a panicking fn degrades its chunk.
func RunFanOut(ctx context.Context, sig *Signal, chunks []Chunk, maxConcurrency int, fn SummarizeFunc, opts ...FanOutOption) ([]ChunkResult, error) {
	if maxConcurrency < 1 {
		return nil, fmt.Errorf("%w: maxConcurrency must be >= 1, got %d", ErrInvalidArgument, maxConcurrency)
	}
	if err := checkIndices(chunks); err != nil {
		return nil, err
	}
	if sig != nil {
		if err := sig.Check(); err != nil {
			return []ChunkResult{}, err
		}
	}

	cfg := fanOutConfig{logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(&cfg)
	}

	results := make([]ChunkResult, len(chunks))
	var g errgroup.Group
	g.SetLimit(maxConcurrency)

	untrack := make([]func(), len(chunks))
	for i := range untrack {
		untrack[i] = func() {}
		if sig != nil {
			untrack[i] = sig.Track()
		}
	}

	for i, c := range chunks {
		g.Go(func() error {
			defer untrack[i]()
			var r ChunkResult
			if sig != nil && sig.Stopped() {
				r = Degraded(c.Index)
			} else {
				r = cfg.run(ctx, c, fn)
			}
			// each task owns results[c.Index]; indices are unique
			results[c.Index] = r
			if cfg.onProgress != nil {
				cfg.onProgress(r)
			}
			return nil
		})
	}
	_ = g.Wait() // tasks never return an error

	return results, nil
}

func (c fanOutConfig) run(ctx context.Context, chunk Chunk, fn SummarizeFunc) (result ChunkResult) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("chunk summary panicked", "chunk", chunk.Index, "panic", p)
			result = Degraded(chunk.Index)
		}
	}()

	if ctx.Err() != nil {
		return Degraded(chunk.Index)
	}
	if c.chunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.chunkTimeout)
		defer cancel()
	}

	result = fn(ctx, chunk)
	result.Index = chunk.Index
	return result
}

// checkIndices verifies that chunk indices are exactly 0..n-1.
func checkIndices(chunks []Chunk) error {
	seen := make([]bool, len(chunks))
	for _, c := range chunks {
		if c.Index < 0 || c.Index >= len(chunks) || seen[c.Index] {
			return fmt.Errorf("%w: chunk indices must be unique and within [0,%d), got %d", ErrInvalidArgument, len(chunks), c.Index)
		}
		seen[c.Index] = true
	}
	return nil
}
