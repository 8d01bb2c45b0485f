package pool

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPool(t *testing.T) {
	p := New(t.Context(), 2)

	// Add a task that returns a deadline in the future.
	p.Add("a", func(context.Context) time.Time {
		return time.Now().Add(100 * time.Millisecond)
	})

	// Add a task that returns a deadline in the past.
	p.Add("b", func(context.Context) time.Time {
		return time.Now().Add(-100 * time.Millisecond)
	})

	// Add a task that returns a deadline in the future.
	p.Add("c", func(context.Context) time.Time {
		return time.Now().Add(200 * time.Millisecond)
	})

	// Wait for a short period to allow tasks to be processed.
	time.Sleep(300 * time.Millisecond)

	// The pool should have processed all tasks without deadlock.
	// If it had gotten stuck, we'd never reach this line.
	t.Log("All tasks processed successfully")
}

type run struct {
	mu       sync.Mutex
	left     int
	ran      int
	sleep    time.Duration
	deadline time.Duration
}

func (t *run) Execute(context.Context) time.Time {
	time.Sleep(t.sleep)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.left > 0 {
		t.left--
		t.ran++
		return time.Now().Add(t.deadline)
	}

	var zero time.Time
	return zero // dequeue task
}

func (t *run) runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ran
}

func TestTrigger(t *testing.T) {
	t.Run("trigger pulls queued task up from", func(t *testing.T) {
		p := New(t.Context(), 2)

		rx := &run{left: 3, deadline: 200 * time.Millisecond}

		p.Add("t", rx.Execute) // will run once (run #1), and be queued for 200 ms

		_ = p.Trigger("t") // pulled in front, run #2
		time.Sleep(50 * time.Millisecond)
		_ = p.Trigger("t")                 // pulled in front, run #3
		time.Sleep(300 * time.Millisecond) // no other runs, third run dequeued

		if exp, act := 3, rx.runs(); exp != act {
			t.Errorf("expected counter of %d, got %d", exp, act)
		}
	})

	t.Run("trigger reruns executing task right away", func(t *testing.T) {
		p := New(t.Context(), 2)

		// if it wasn't triggered, we'd not see a second run: the next deadline is 1s
		rx := &run{left: 3, sleep: 100 * time.Millisecond, deadline: time.Second}

		p.Add("t", rx.Execute) // will run once (run #1), and be queued for 200 ms
		time.Sleep(50 * time.Millisecond)
		_ = p.Trigger("t") // re-run after it's done, run #2

		time.Sleep(300 * time.Millisecond)

		if exp, act := 2, rx.runs(); exp != act {
			t.Errorf("expected counter of %d, got %d", exp, act)
		}
	})
}

func TestRemoveAndStop(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	p := New(ctx, 1)

	rx := &run{left: 1, deadline: time.Hour}
	p.Add("birch", rx.Execute)
	time.Sleep(50 * time.Millisecond)
	if exp, act := 1, p.Len(); exp != act {
		t.Fatalf("expected %d registered task, got %d", exp, act)
	}

	_ = p.Trigger("birch") // the task has nothing left and asks to be removed
	time.Sleep(50 * time.Millisecond)
	if exp, act := 0, p.Len(); exp != act {
		t.Fatalf("expected %d registered tasks, got %d", exp, act)
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	rf := &run{left: 1, deadline: time.Hour}
	p.Add("foldingtext", rf.Execute) // no worker left to pick it up
	time.Sleep(50 * time.Millisecond)
	if exp, act := 0, rf.runs(); exp != act {
		t.Errorf("expected counter of %d, got %d", exp, act)
	}
}

func TestTriggerWhileWaiting(t *testing.T) {
	p := New(t.Context(), 1)
	rx := &run{left: 100, deadline: time.Hour}
	p.Add("birch", rx.Execute)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				_ = p.Trigger("birch")
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()
	time.Sleep(50 * time.Millisecond)

	if act := rx.runs(); act < 2 {
		t.Errorf("expected triggered reruns, got %d runs", act)
	}
}
