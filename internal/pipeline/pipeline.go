// Package pipeline fans frames out to a pool of processors and hands the
// decoded poses back in frame order.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/types"
)

// Processor turns one frame into poses. Each pool goroutine owns one.
type Processor interface {
	Process(ctx context.Context, task types.FrameTask) ([]pose.Pose, error)
	Close()
}

// ProcessorFunc adapts a plain function into a Processor with no resources.
type ProcessorFunc func(ctx context.Context, task types.FrameTask) ([]pose.Pose, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, task types.FrameTask) ([]pose.Pose, error) {
	return f(ctx, task)
}

// Close is a no-op.
func (f ProcessorFunc) Close() {}

// Factory builds the processor for one pool goroutine.
type Factory func(ctx context.Context, workerID int) (Processor, error)

// Options configures Run.
type Options struct {
	Workers int
	Logger  *slog.Logger
}

// Run starts opts.Workers processors reading from tasks. Task indices must be
// consecutive starting at 0. Results are emitted strictly in index order; a
// failed frame is reported through FrameResult.Err and does not stop the run.
// The returned channel closes once tasks is drained or ctx is cancelled.
func Run(ctx context.Context, tasks <-chan types.FrameTask, newProcessor Factory, opts Options) <-chan types.FrameResult {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Must be buffered and drained concurrently to prevent deadlock on results
	results := make(chan types.FrameResult, workers*2)
	ordered := make(chan types.FrameResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(ctx, workerID, tasks, results, newProcessor, logger)
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(ordered)
		reorder(ctx, results, ordered)
	}()

	return ordered
}

func runWorker(ctx context.Context, id int, tasks <-chan types.FrameTask, results chan<- types.FrameResult, newProcessor Factory, logger *slog.Logger) {
	proc, err := newProcessor(ctx, id)
	if err != nil {
		logger.Error("processor startup failed", "worker", id, "err", err)
		// Keep draining so every frame still gets a result and the aggregator never stalls.
		for task := range tasks {
			if !send(ctx, results, types.FrameResult{Index: task.Index, Err: err}) {
				return
			}
		}
		return
	}
	defer proc.Close()

	for task := range tasks {
		poses, err := proc.Process(ctx, task)
		if err != nil {
			logger.Warn("frame failed", "worker", id, "frame", task.Index, "err", err)
		}
		if !send(ctx, results, types.FrameResult{Index: task.Index, Poses: poses, Err: err}) {
			return
		}
	}
}

func send(ctx context.Context, ch chan<- types.FrameResult, res types.FrameResult) bool {
	select {
	case ch <- res:
		return true
	case <-ctx.Done():
		return false
	}
}

// reorder buffers out-of-order results (worker 2 may finish before worker 1)
// and releases them by index.
func reorder(ctx context.Context, results <-chan types.FrameResult, ordered chan<- types.FrameResult) {
	buffer := make(map[int]types.FrameResult)
	next := 0

	for res := range results {
		buffer[res.Index] = res
		for {
			frame, ok := buffer[next]
			if !ok {
				break
			}
			delete(buffer, next)
			if !send(ctx, ordered, frame) {
				return
			}
			next++
		}
	}
}
