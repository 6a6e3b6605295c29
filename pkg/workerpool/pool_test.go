package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestPool(workers int) *Pool {
	return New(Config{
		Workers:     workers,
		QueueDepth:  workers * 8,
		TaskTimeout: 5 * time.Second,
	}, zerolog.Nop())
}

func TestPool_RunsTask(t *testing.T) {
	pool := newTestPool(2)
	defer pool.Close()

	out := <-pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	})

	if out.Err != nil {
		t.Fatalf("task failed: %v", out.Err)
	}
	if out.Value.(int) != 42 {
		t.Errorf("value = %v, want 42", out.Value)
	}
}

func TestPool_ConcurrencyBound(t *testing.T) {
	const workers = 3
	pool := newTestPool(workers)
	defer pool.Close()

	var active, peak atomic.Int32
	var wg sync.WaitGroup

	// Three times the pool size; no sampled instant may exceed the bound.
	for i := 0; i < workers*3; i++ {
		wg.Add(1)
		ch := pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			active.Add(-1)
			return nil, nil
		})
		go func() {
			defer wg.Done()
			<-ch
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > workers {
		t.Errorf("peak concurrency = %d, want <= %d", got, workers)
	}
}

func TestPool_FIFO(t *testing.T) {
	pool := newTestPool(1)
	defer pool.Close()

	var order []int
	var mu sync.Mutex

	// Occupy the single worker so the rest queue up in order.
	block := make(chan struct{})
	first := pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})

	var chans []<-chan Outcome
	for i := 1; i <= 4; i++ {
		i := i
		chans = append(chans, pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil, nil
		}))
	}

	close(block)
	<-first
	for _, ch := range chans {
		<-ch
	}

	for i, got := range order {
		if got != i+1 {
			t.Fatalf("execution order = %v, want [1 2 3 4]", order)
		}
	}
}

func TestPool_FailureIsolation(t *testing.T) {
	pool := newTestPool(1)
	defer pool.Close()

	boom := errors.New("parse exploded")
	out := <-pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(out.Err, boom) {
		t.Errorf("err = %v, want %v", out.Err, boom)
	}

	// The worker must still be usable afterwards.
	out = <-pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	if out.Err != nil || out.Value.(string) != "ok" {
		t.Errorf("pool unusable after task failure: %+v", out)
	}
}

func TestPool_TaskDeadline(t *testing.T) {
	pool := New(Config{
		Workers:     1,
		QueueDepth:  4,
		TaskTimeout: 20 * time.Millisecond,
	}, zerolog.Nop())
	defer pool.Close()

	released := make(chan struct{})
	start := time.Now()
	out := <-pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
		defer close(released)
		time.Sleep(200 * time.Millisecond)
		return nil, nil
	})

	if !errors.Is(out.Err, ErrTaskDeadline) {
		t.Fatalf("err = %v, want ErrTaskDeadline", out.Err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("slot not freed at deadline; waited %v", elapsed)
	}

	// The abandoned goroutine finishes on its own without disturbing the
	// next task.
	out = <-pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return "next", nil
	})
	if out.Err != nil {
		t.Errorf("task after abandonment failed: %v", out.Err)
	}
	<-released
}

func TestPool_SubmitAfterClose(t *testing.T) {
	pool := newTestPool(1)
	pool.Close()

	out := <-pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(out.Err, ErrPoolClosed) {
		t.Errorf("err = %v, want ErrPoolClosed", out.Err)
	}
}

func TestPool_SubmitContextCancelledWhileQueueFull(t *testing.T) {
	pool := New(Config{Workers: 1, QueueDepth: 1, TaskTimeout: time.Second}, zerolog.Nop())
	defer pool.Close()

	block := make(chan struct{})
	defer close(block)

	// Fill the worker and the single queue slot.
	pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})
	pool.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := <-pool.Submit(ctx, func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", out.Err)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", config.Workers)
	}
	if config.QueueDepth != config.Workers*4 {
		t.Errorf("QueueDepth = %d, want %d", config.QueueDepth, config.Workers*4)
	}
	if config.TaskTimeout != 2*time.Minute {
		t.Errorf("TaskTimeout = %v, want 2m", config.TaskTimeout)
	}
}
