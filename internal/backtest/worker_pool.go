package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/This-HW/hantu-quant-sub002/internal/monitoring"
	"github.com/This-HW/hantu-quant-sub002/pkg/data"
	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

// SweepJob is one independent backtest in a parameter sweep. Each job gets
// its own engine and circuit-breaker instance tree; only the underlying
// read-only price source is shared.
type SweepJob struct {
	ID         string
	Config     Config
	Candidates []types.Candidate
	Prices     data.PriceSource
}

// SweepResult is the outcome of one sweep job.
type SweepResult struct {
	ID       string
	Config   Config
	Result   *BacktestResult
	Duration time.Duration
	Err      error
}

// WorkerPool runs embarrassingly parallel backtest jobs. Determinism of the
// no-look-ahead invariant lives inside each job; the pool only fans jobs
// out.
type WorkerPool struct {
	workerCount int
	jobQueue    chan SweepJob
	resultQueue chan SweepResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	log         zerolog.Logger
}

// NewWorkerPool creates a pool with workerCount workers (NumCPU when <= 0).
func NewWorkerPool(workerCount, jobBufferSize int, logger zerolog.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan SweepJob, jobBufferSize),
		resultQueue: make(chan SweepResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
		log:         logger.With().Str("component", "sweep").Logger(),
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop drains the pool gracefully: no new jobs, workers finish, result
// channel closes.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job for execution. Fails once the pool has stopped.
func (wp *WorkerPool) Submit(job SweepJob) error {
	select {
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	default:
	}
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel of completed jobs.
func (wp *WorkerPool) Results() <-chan SweepResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			result := wp.process(job)
			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) process(job SweepJob) SweepResult {
	start := time.Now()
	engine := NewEngine(job.Config, job.Prices, wp.log)
	result, err := engine.Run(job.Candidates)
	elapsed := time.Since(start)
	monitoring.ObserveSweepJob(elapsed.Seconds())
	return SweepResult{
		ID:       job.ID,
		Config:   job.Config,
		Result:   result,
		Duration: elapsed,
		Err:      err,
	}
}

// RunSweep executes all configs against the same candidates and price
// source, in parallel, and returns results in completion order.
func RunSweep(configs []Config, ids []string, candidates []types.Candidate, prices data.PriceSource, workers int, logger zerolog.Logger) []SweepResult {
	pool := NewWorkerPool(workers, len(configs), logger)
	pool.Start()

	go func() {
		for i, cfg := range configs {
			id := ""
			if i < len(ids) {
				id = ids[i]
			}
			if err := pool.Submit(SweepJob{ID: id, Config: cfg, Candidates: candidates, Prices: prices}); err != nil {
				return
			}
		}
	}()

	results := make([]SweepResult, 0, len(configs))
	for i := 0; i < len(configs); i++ {
		results = append(results, <-pool.Results())
	}
	pool.Stop()
	return results
}
