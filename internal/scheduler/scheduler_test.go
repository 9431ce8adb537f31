package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"vvtest/internal/resource"
)

// fakePool is a trivial in-memory resource.Pool stand-in for scheduler
// tests; it only tracks a single free-core counter.
type fakePool struct {
	mu        sync.Mutex
	freeCores int
	running   int
}

func (p *fakePool) Query(np, nd int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeCores >= np
}

func (p *fakePool) Obtain(np, nd int, allowOversubscribe bool) (resource.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.freeCores < np && !(allowOversubscribe && p.running == 0) {
		return resource.Handle{}, errInsufficient
	}
	take := np
	if take > p.freeCores {
		take = p.freeCores
	}
	p.freeCores -= take
	p.running++
	return resource.Handle{}, nil
}

func (p *fakePool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *fakePool) release(np int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freeCores += np
	p.running--
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errInsufficient = fakeErr("insufficient")

func TestSchedulerPicksHighestNPFirst(t *testing.T) {
	pool := &fakePool{freeCores: 8}
	s := New(pool)
	s.MarkReady(Item{ID: "small", NumProcs: 2})
	s.MarkReady(Item{ID: "big", NumProcs: 4})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pick, ok := s.Next(ctx)
	if !ok {
		t.Fatal("expected a pick")
	}
	if pick.Item.ID != "big" {
		t.Fatalf("expected highest-np item picked first, got %s", pick.Item.ID)
	}
}

func TestSchedulerOversubscribesWhenIdle(t *testing.T) {
	pool := &fakePool{freeCores: 2}
	s := New(pool)
	s.MarkReady(Item{ID: "huge", NumProcs: 8})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pick, ok := s.Next(ctx)
	if !ok {
		t.Fatal("expected oversubscription pick to succeed")
	}
	if pick.Item.ID != "huge" {
		t.Fatalf("expected huge picked, got %s", pick.Item.ID)
	}
}

func TestSchedulerTerminatesWhenNothingLeft(t *testing.T) {
	pool := &fakePool{freeCores: 4}
	s := New(pool)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, ok := s.Next(ctx)
	if ok {
		t.Fatal("expected no pick on an empty scheduler")
	}
	if !s.Terminated() {
		t.Fatal("expected scheduler to report terminated")
	}
}

func TestSchedulerWaitsForRunningCompletionThenPicks(t *testing.T) {
	pool := &fakePool{freeCores: 2}
	s := New(pool)

	h, err := pool.Obtain(2, 0, false)
	_ = h
	if err != nil {
		t.Fatalf("setup obtain failed: %v", err)
	}
	s_running := "occupying"
	s.mu.Lock()
	s.running[s_running] = true
	s.mu.Unlock()

	s.MarkReady(Item{ID: "waiter", NumProcs: 2})

	done := make(chan Pick, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go func() {
		pick, ok := s.Next(ctx)
		if ok {
			done <- pick
		}
	}()

	time.Sleep(50 * time.Millisecond)
	pool.release(2)
	s.MarkFinished(s_running)

	select {
	case pick := <-done:
		if pick.Item.ID != "waiter" {
			t.Fatalf("expected waiter picked, got %s", pick.Item.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduler to pick after completion")
	}
}
