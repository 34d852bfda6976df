package detector

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

// Job is a unit of pure analysis work, typically a Prepare call whose result
// is committed separately in arrival order.
type Job interface {
	Execute(ctx context.Context) error
}

// WorkerPool runs analysis jobs across a fixed set of goroutines.
// Preparation is side-effect free, so jobs may complete in any order; only
// the commit step is order-sensitive and stays outside the pool.
type WorkerPool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWorkerPool creates a pool with workers goroutines; workers <= 0 selects
// a CPU-based size with a quarter of the cores reserved for the rest of the
// process.
func NewWorkerPool(ctx context.Context, workers int) *WorkerPool {
	if workers <= 0 {
		totalCPU := runtime.NumCPU()
		workers = totalCPU - max(1, totalCPU/4)
		if workers < 1 {
			workers = 1
		}
	}
	log.Info().
		Int("workers", workers).
		Msg("Worker pool initialized")

	poolCtx, cancel := context.WithCancel(ctx)
	pool := &WorkerPool{
		workers:  workers,
		jobQueue: make(chan Job, workers*2),
		ctx:      poolCtx,
		cancel:   cancel,
	}
	pool.start()
	return pool
}

func (p *WorkerPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if err := job.Execute(p.ctx); err != nil {
				log.Error().Err(err).Msg("Worker failed to execute job")
			}
		}
	}
}

// Submit enqueues a job, blocking while the queue is full.
func (p *WorkerPool) Submit(job Job) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		return nil
	}
}

// Close drains the pool and waits for all workers to finish.
func (p *WorkerPool) Close() {
	close(p.jobQueue)
	p.cancel()
	p.wg.Wait()
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int {
	return p.workers
}
