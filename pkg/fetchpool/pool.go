package fetchpool

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Job is one refresh of one data domain. Jobs sharing a Key run on the same
// worker, in dispatch order.
type Job struct {
	Key     string
	Handler func(ctx context.Context) error
}

type PoolStats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	WorkerStats     []WorkerStats  `json:"worker_stats"`
	InFlight        map[string]int `json:"in_flight"` // key -> worker_id
}

type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

// Pool is a fixed set of workers, each with its own queue, sharded by job key.
type Pool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once

	// mu orders enqueues against Start and Stop: no job is accepted once
	// Stop has begun.
	mu      sync.RWMutex
	started bool
	stopped bool

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64

	inFlightMu sync.Mutex
	inFlight   map[string]int
}

type worker struct {
	id            int
	jobQueue      chan Job
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32
	jobsProcessed int64
	pool          *Pool
}

func New(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 3
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
		inFlight:   make(map[string]int),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan Job, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}
	logrus.Infof("[FETCH_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// TryDispatch enqueues without blocking and reports whether the job was accepted.
func (p *Pool) TryDispatch(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started || p.stopped {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardFor(job.Key)
	atomic.AddInt64(&p.totalDispatched, 1)

	select {
	case p.workers[shard].jobQueue <- job:
		return true
	default:
	}

	atomic.AddInt64(&p.totalDropped, 1)
	logrus.Warnf("[FETCH_POOL] Worker %d queue full, dropping job for %s", shard, job.Key)
	return false
}

func (p *Pool) Dispatch(job Job) {
	_ = p.TryDispatch(job)
}

// Stop cancels the workers, runs what is still queued and waits.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		if !p.markStopped() {
			return
		}
		logrus.Info("[FETCH_POOL] Stopping workers...")
		for _, w := range p.workers {
			w.cancel()
			close(w.jobQueue)
		}
		p.wg.Wait()
		logrus.Info("[FETCH_POOL] All workers stopped")
	})
}

// markStopped closes the pool to new jobs and reports whether it was started.
func (p *Pool) markStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	return p.started
}

func (p *Pool) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *Pool) GetStats() PoolStats {
	p.mu.RLock()
	workers := append([]*worker(nil), p.workers...)
	p.mu.RUnlock()

	workerStats := make([]WorkerStats, 0, len(p.workers))
	activeWorkers := 0
	for _, w := range workers {
		if w == nil {
			continue
		}
		isProcessing := atomic.LoadInt32(&w.isProcessing) == 1
		if isProcessing {
			activeWorkers++
		}
		workerStats = append(workerStats, WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobQueue),
			IsProcessing:  isProcessing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		})
	}

	p.inFlightMu.Lock()
	inFlight := make(map[string]int, len(p.inFlight))
	for k, v := range p.inFlight {
		inFlight[k] = v
	}
	p.inFlightMu.Unlock()

	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		WorkerStats:     workerStats,
		InFlight:        inFlight,
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	logrus.Debugf("[FETCH_POOL] Worker %d started", w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				logrus.Debugf("[FETCH_POOL] Worker %d shutting down", w.id)
				return
			}
			w.process(w.ctx, job)
		case <-w.ctx.Done():
			logrus.Debugf("[FETCH_POOL] Worker %d context cancelled, draining queue...", w.id)
			w.pool.markStopped()
			w.drainQueue()
			return
		}
	}
}

func (w *worker) process(ctx context.Context, job Job) {
	p := w.pool
	p.inFlightMu.Lock()
	p.inFlight[job.Key] = w.id
	p.inFlightMu.Unlock()
	atomic.StoreInt32(&w.isProcessing, 1)

	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&p.totalErrors, 1)
			logrus.Errorf("[FETCH_POOL] Worker %d panic for %s: %v", w.id, job.Key, r)
		}
		p.inFlightMu.Lock()
		delete(p.inFlight, job.Key)
		p.inFlightMu.Unlock()
		atomic.StoreInt32(&w.isProcessing, 0)
		atomic.AddInt64(&w.jobsProcessed, 1)
		atomic.AddInt64(&p.totalProcessed, 1)
	}()

	if err := job.Handler(ctx); err != nil {
		atomic.AddInt64(&p.totalErrors, 1)
		logrus.WithError(err).Errorf("[FETCH_POOL] Worker %d job failed for %s", w.id, job.Key)
	}
}

// drainQueue runs queued jobs with the cancelled context so they can exit quickly.
func (w *worker) drainQueue() {
	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			w.process(w.ctx, job)
		default:
			return
		}
	}
}
