package executor

import (
	"context"
	"fmt"
	"sync"

	logrus "github.com/sirupsen/logrus"
)

// job is a queued execution together with where to send its result
type job struct {
	ctx    context.Context
	job    ExecutionJob
	result chan Result
}

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	Workers       int         `json:"workers"`
	QueueCapacity int         `json:"queue_capacity"`
	Queued        int         `json:"queued"`
	Active        int         `json:"active"`
	Jobs          []JobStatus `json:"jobs"`
}

// WorkerPool bounds how many jobs execute at once
type WorkerPool struct {
	jobs         chan job
	handler      JobHandler
	tracker      *Tracker
	logger       *logrus.Logger
	maxWorkers   int
	maxJobCount  int
	wg           sync.WaitGroup
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewWorkerPool starts maxWorkers workers feeding jobs to handler. At most
// maxJobCount jobs wait in the queue.
func NewWorkerPool(handler JobHandler, tracker *Tracker, logger *logrus.Logger, maxWorkers, maxJobCount int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxJobCount < 0 {
		maxJobCount = 0
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	pool := &WorkerPool{
		jobs:         make(chan job, maxJobCount),
		handler:      handler,
		tracker:      tracker,
		logger:       logger,
		maxWorkers:   maxWorkers,
		maxJobCount:  maxJobCount,
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.wg.Add(1)
		go pool.worker(i + 1)
	}
	return pool
}

// worker processes jobs from the queue
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	p.logger.Debugf("Worker %d started", id)

	for {
		select {
		case j := <-p.jobs:
			if p.closed() {
				// the submitter already gave up on this job
				p.tracker.End(j.job.ID)
				j.result <- Result{Error: WrapError(ErrPoolClosed, KindBusy, ErrPoolClosed.Error())}
				continue
			}
			p.executeJob(id, j)
		case <-p.shutdownChan:
			p.logger.Debugf("Worker %d received shutdown signal", id)
			return
		}
	}
}

func (p *WorkerPool) executeJob(workerID int, j job) {
	defer p.tracker.End(j.job.ID)

	p.logger.WithFields(logrus.Fields{
		"worker":   workerID,
		"job":      j.job.ID,
		"language": j.job.Language,
	}).Debug("Worker picked up job")

	j.result <- p.handler.Execute(j.ctx, j.job)
}

// ExecuteJob submits a job and waits for its result. It never waits for
// queue space: a full queue is reported as a busy error.
func (p *WorkerPool) ExecuteJob(ctx context.Context, ej ExecutionJob) Result {
	select {
	case <-p.shutdownChan:
		return Result{Error: WrapError(ErrPoolClosed, KindBusy, ErrPoolClosed.Error())}
	default:
	}

	result := make(chan Result, 1)
	p.tracker.Begin(ej)
	select {
	case p.jobs <- job{ctx: ctx, job: ej, result: result}:
	default:
		p.tracker.End(ej.ID)
		p.logger.WithField("job", ej.ID).Warn("Job rejected, queue full")
		return Result{Error: &Error{
			Kind:    KindBusy,
			Message: fmt.Sprintf("job queue full, max capacity: %d", p.maxJobCount),
			Err:     ErrQueueFull,
		}}
	}

	select {
	case res := <-result:
		return res
	case <-p.shutdownChan:
		// a job still running finishes on its worker and its result lands
		// in the buffered channel unread
		select {
		case res := <-result:
			return res
		default:
			p.tracker.End(ej.ID)
			return Result{Error: WrapError(ErrPoolClosed, KindBusy, ErrPoolClosed.Error())}
		}
	}
}

func (p *WorkerPool) closed() bool {
	select {
	case <-p.shutdownChan:
		return true
	default:
		return false
	}
}

// Stats reports capacity and current load.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:       p.maxWorkers,
		QueueCapacity: p.maxJobCount,
		Queued:        len(p.jobs),
		Active:        p.tracker.Active(),
		Jobs:          p.tracker.Snapshot(),
	}
}

// Shutdown stops accepting jobs and waits for running jobs to finish.
func (p *WorkerPool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.logger.Info("Shutting down worker pool...")
		close(p.shutdownChan)
		p.wg.Wait()
		p.logger.Info("Worker pool shutdown complete")
	})
}
