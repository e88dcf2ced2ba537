// Package worker provides the bounded pool that runs submission evaluations
// in the background. Submissions are enqueued at intake time and rejected
// when the queue is full, so a burst of submissions cannot spawn an
// unbounded number of goroutines.
package worker

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "leetai",
		Subsystem: "worker",
		Name:      "jobs_in_flight",
		Help:      "Number of evaluation jobs currently running",
	})

	jobsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leetai",
		Subsystem: "worker",
		Name:      "jobs_rejected_total",
		Help:      "Number of jobs rejected because the queue was full",
	})
)

// Job is one unit of background work.
type Job func(ctx context.Context)

// Pool runs jobs on a fixed number of workers fed by a bounded queue.
type Pool struct {
	queue   chan Job
	workers int
	logger  zerolog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs a pool with the given worker count and queue capacity.
func New(workers, queueSize int, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}

	return &Pool{
		queue:   make(chan Job, queueSize),
		workers: workers,
		logger:  logger.With().Str("component", "worker_pool").Logger(),
	}
}

// Start launches the workers. Jobs run until the queue is closed by Stop;
// ctx is passed through to every job and cancelling it cancels in-flight
// work.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info().Int("workers", p.workers).Int("queue_size", cap(p.queue)).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for job := range p.queue {
		jobsInFlight.Inc()
		p.execute(ctx, id, job)
		jobsInFlight.Dec()
	}
}

func (p *Pool) execute(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Int("worker", id).Interface("panic", r).Msg("job panicked")
		}
	}()
	job(ctx)
}

// Submit enqueues a job without blocking. It reports false when the queue is
// full, leaving backpressure handling to the caller.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.queue <- job:
		return true
	default:
		jobsRejected.Inc()
		return false
	}
}

// Stop closes the queue and waits for queued and in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}
