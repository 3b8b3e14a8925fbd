package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/disregardfiat/honeygraph/internal/keylock"
)

const (
	blockPoolConcurrency = 4
	opPoolConcurrency = 16
	completedCap = 100
	failedCap = 1000
	dedupTTL = 2 * time.Hour
	dedupSweepInterval = 5 * time.Minute
	baseBackoff = 100 * time.Millisecond
)

// subqueue is one priority-ordered lane with its own concurrency cap,
// a Start/Stop/readLoop lifecycle generalized from a single channel to
// a container/heap priority queue.
type subqueue struct {
	mu sync.Mutex
	cond *sync.Cond
	heap jobHeap
	sem chan struct{}
	closed bool
}

func newSubqueue(concurrency int) *subqueue {
	q := &subqueue{sem: make(chan struct{}, concurrency)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *subqueue) push(j *Job) {
	q.mu.Lock()
	heapPush(&q.heap, j)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *subqueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// pop blocks until a job is available or the queue is closed and empty.
func (q *subqueue) pop() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.heap) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.heap) == 0 {
		return nil, false
	}
	return heapPop(&q.heap), true
}

func (q *subqueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Pool is the Replication Queue Worker: two subqueues (block jobs,
// operation jobs), fork-/market-keyed serialization via keylock, retry
// with backoff, and the processed-operation dedup cache.
type Pool struct {
	blockQ *subqueue
	opQ *subqueue
	keys *keylock.Table
	dedup *dedupCache
	log *logrus.Logger

	completed *ring
	failed *ring

	seqMu sync.Mutex
	seq int64

	wg sync.WaitGroup
	closing chan struct{}

	metrics *poolMetrics
}

type poolMetrics struct {
	queueDepth *prometheus.GaugeVec
	processed *prometheus.CounterVec
	retried *prometheus.CounterVec
	failedTotal *prometheus.CounterVec
}

func newPoolMetrics(reg prometheus.Registerer) *poolMetrics {
	m := &poolMetrics{
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "honeygraph_worker_queue_depth",
			Help: "Pending jobs per queue lane.",
		}, []string{"lane"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeygraph_worker_jobs_processed_total",
			Help: "Jobs that completed successfully, by kind.",
		}, []string{"kind"}),
		retried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeygraph_worker_jobs_retried_total",
			Help: "Job attempts that failed and were requeued, by kind.",
		}, []string{"kind"}),
		failedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeygraph_worker_jobs_failed_total",
			Help: "Jobs that exhausted their retry budget, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.queueDepth, m.processed, m.retried, m.failedTotal)
	}
	return m
}

// New constructs a Pool. reg may be nil to skip prometheus registration
// (tests construct pools repeatedly and would otherwise collide on the
// default registry).
func New(log *logrus.Logger, reg prometheus.Registerer) *Pool {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pool{
		blockQ: newSubqueue(blockPoolConcurrency),
		opQ: newSubqueue(opPoolConcurrency),
		keys: keylock.New(),
		dedup: newDedupCache(dedupTTL),
		log: log,
		completed: newRing(completedCap),
		failed: newRing(failedCap),
		closing: make(chan struct{}),
		metrics: newPoolMetrics(reg),
	}
}

// Submit enqueues a job onto the lane matching its Kind. A job whose
// DedupKey has already been seen within the TTL window is dropped
// silently (replay-safe, not an error condition).
func (p *Pool) Submit(j Job) {
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = 3
	}
	if j.DedupKey != "" && p.dedup.checkAndMark(j.DedupKey) {
		p.log.WithField("dedupKey", j.DedupKey).Debug("worker: dropping duplicate operation")
		return
	}
	p.seqMu.Lock()
	p.seq++
	j.enqueuedAt = p.seq
	p.seqMu.Unlock()

	jp := &j
	if j.Kind.usesBlockPool() {
		p.blockQ.push(jp)
	} else {
		p.opQ.push(jp)
	}
}

// Start launches the two lane dispatchers and the dedup sweep loop.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(3)
	go p.runLane(ctx, p.blockQ, "block")
	go p.runLane(ctx, p.opQ, "operation")
	go p.sweepLoop()
}

// Stop closes both lanes, waits for in-flight jobs to drain, and stops
// the sweep loop.
func (p *Pool) Stop() {
	close(p.closing)
	p.blockQ.close()
	p.opQ.close()
	p.wg.Wait()
}

func (p *Pool) runLane(ctx context.Context, q *subqueue, lane string) {
	defer p.wg.Done()
	for {
		job, ok := q.pop()
		if !ok {
			return
		}
		p.metrics.queueDepth.WithLabelValues(lane).Set(float64(q.depth()))
		q.sem <- struct{}{}
		p.wg.Add(1)
		go func(j *Job) {
			defer p.wg.Done()
			defer func() { <-q.sem }()
			p.runJob(ctx, q, j)
		}(job)
	}
}

func (p *Pool) runJob(ctx context.Context, q *subqueue, j *Job) {
	if j.Key != "" {
		p.keys.Lock(j.Key)
		defer p.keys.Unlock(j.Key)
	}

	j.attempt++
	err := j.Run(ctx)
	if err == nil {
		p.metrics.processed.WithLabelValues(string(j.Kind)).Inc()
		p.completed.add(Outcome{JobID: j.ID, Kind: j.Kind, Attempts: j.attempt, FinishedAt: time.Now()})
		return
	}

	if j.attempt < j.MaxAttempts {
		p.metrics.retried.WithLabelValues(string(j.Kind)).Inc()
		p.log.WithError(err).WithFields(logrus.Fields{"jobId": j.ID, "kind": j.Kind, "attempt": j.attempt}).
			Warn("worker: job failed, retrying after backoff")
		backoff := baseBackoff * time.Duration(1<<uint(j.attempt-1))
		select {
		case <-time.After(backoff):
		case <-p.closing:
			return
		}
		q.push(j)
		return
	}

	p.metrics.failedTotal.WithLabelValues(string(j.Kind)).Inc()
	p.log.WithError(err).WithFields(logrus.Fields{"jobId": j.ID, "kind": j.Kind}).
		Error("worker: job exhausted retry budget")
	p.failed.add(Outcome{JobID: j.ID, Kind: j.Kind, Attempts: j.attempt, Err: err, FinishedAt: time.Now()})
}

func (p *Pool) sweepLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(dedupSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.closing:
			return
		case <-ticker.C:
			evicted := p.dedup.sweep()
			if evicted > 0 {
				p.log.WithField("evicted", evicted).Debug("worker: dedup cache sweep")
			}
		}
	}
}

// Completed returns a snapshot of the last (up to 100) successful jobs.
func (p *Pool) Completed() []Outcome { return p.completed.snapshot() }

// Failed returns a snapshot of the last (up to 1000) exhausted jobs.
func (p *Pool) Failed() []Outcome { return p.failed.snapshot() }
