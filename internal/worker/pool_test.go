package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestJobRunsSuccessfully(t *testing.T) {
	p := New(nil, nil)
	p.Start(context.Background())
	defer p.Stop()

	done := make(chan struct{})
	p.Submit(NewJob(KindProcessOperation, "", 0, func(ctx context.Context) error {
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("job never ran")
	}
}

func TestSameKeySerializesAcrossJobs(t *testing.T) {
	p := New(nil, nil)
	p.Start(context.Background())
	defer p.Stop()

	var mu sync.Mutex
	inCritical := false
	violated := false
	var wg sync.WaitGroup
	wg.Add(5)

	for i := 0; i < 5; i++ {
		p.Submit(NewJob(KindReplicateBlock, "fork:x", 0, func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			if inCritical {
				violated = true
			}
			inCritical = true
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			inCritical = false
			mu.Unlock()
			return nil
		}))
	}

	wg.Wait()
	if violated {
		t.Fatalf("expected same-key jobs to be serialized")
	}
}

func TestRetryThenSucceed(t *testing.T) {
	p := New(nil, nil)
	p.Start(context.Background())
	defer p.Stop()

	var attempts int32
	done := make(chan struct{})
	j := NewJob(KindProcessOperation, "", 0, func(ctx context.Context) error {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	})
	p.Submit(j)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job never succeeded after retry")
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestExhaustsRetryBudgetAndRecordsFailure(t *testing.T) {
	p := New(nil, nil)
	p.Start(context.Background())
	defer p.Stop()

	var attempts int32
	j := NewJob(KindProcessOperation, "", 0, func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("permanent failure")
	})
	j.MaxAttempts = 2
	p.Submit(j)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(p.Failed()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	failed := p.Failed()
	if len(failed) != 1 {
		t.Fatalf("expected exactly one failed outcome, got %d", len(failed))
	}
	if failed[0].Attempts != 2 {
		t.Fatalf("expected 2 attempts before giving up, got %d", failed[0].Attempts)
	}
}

func TestDedupDropsRepeatedOperation(t *testing.T) {
	p := New(nil, nil)
	p.Start(context.Background())
	defer p.Stop()

	var runs int32
	for i := 0; i < 3; i++ {
		p.Submit(NewJob(KindProcessOperation, "", 0, func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		}).withDedupKey("op:1"))
	}

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&runs) != 1 {
		t.Fatalf("expected exactly one run for a deduplicated operation, got %d", runs)
	}
}

func (j Job) withDedupKey(k string) Job {
	j.DedupKey = k
	return j
}
