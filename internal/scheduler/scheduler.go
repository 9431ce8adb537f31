package scheduler

import (
	"context"
	"sync"
	"time"

	"vvtest/internal/resource"
)

// PollInterval is the bounded sleep the scheduler waits when no test is
// ready and at least one test is already running.
const PollInterval = time.Second

// Pick is one resource-backed selection: the chosen item and the handle the
// pool granted it.
type Pick struct {
	Item   Item
	Handle resource.Handle
}

// Pool is the subset of *resource.Pool the scheduler needs, kept as an
// interface so tests can exercise the poll loop against a fake.
type Pool interface {
	Query(np, nd int) bool
	Obtain(np, nd int, allowOversubscribe bool) (resource.Handle, error)
	Running() int
}

// Scheduler owns the ready set and drives the pick loop. A mutex-guarded
// sync.Cond wakes Next whenever the ready set changes or a running test
// completes, instead of polling on a sleep loop.
type Scheduler struct {
	mu   sync.Mutex
	cond *sync.Cond

	pool Pool
	rq   *readyQueue

	running      map[string]bool
	shuttingDown bool

	// neverRunnable reports items that can never become ready again (every
	// blocking dependency is terminal and unsatisfied). The engine marks
	// these notrun-by-dep and they never enter the ready queue.
	neverRunnable int
	totalKnown    int
}

// New builds a Scheduler backed by pool.
func New(pool Pool) *Scheduler {
	s := &Scheduler{
		pool:    pool,
		rq:      newReadyQueue(),
		running: make(map[string]bool),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// SetTotalKnown records the total number of tests under management. The
// value is only stored; Next and Terminated do not consult it.
func (s *Scheduler) SetTotalKnown(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalKnown = n
}

// MarkReady adds item to the ready set and wakes any blocked Next call.
func (s *Scheduler) MarkReady(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rq.add(item)
	s.cond.Broadcast()
}

// MarkNeverRunnable records that one more test will never become ready
// (its blocking dependency is terminal and unsatisfied), and wakes Next so
// it can re-check the termination condition.
func (s *Scheduler) MarkNeverRunnable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.neverRunnable++
	s.cond.Broadcast()
}

// MarkFinished records that a running test completed, freeing it from the
// running set and waking Next.
func (s *Scheduler) MarkFinished(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
	s.cond.Broadcast()
}

// Shutdown unblocks every waiter so Next returns (false) promptly.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuttingDown = true
	s.cond.Broadcast()
}

// Next blocks until a test can be picked, the run has terminated, the
// scheduler is shut down, or ctx is cancelled. ok is false in every case
// except a successful pick.
func (s *Scheduler) Next(ctx context.Context) (Pick, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.shuttingDown {
			return Pick{}, false
		}

		if pick, found := s.tryPick(); found {
			s.running[pick.Item.ID] = true
			s.rq.remove(pick.Item.ID)
			return pick, true
		}

		if s.rq.isEmpty() && len(s.running) == 0 {
			// Nothing ready, nothing running: either we're fully done, or
			// every remaining test is permanently blocked.
			return Pick{}, false
		}

		select {
		case <-ctx.Done():
			return Pick{}, false
		default:
		}

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				s.mu.Lock()
				s.cond.Broadcast()
				s.mu.Unlock()
			case <-done:
			}
		}()

		if len(s.running) > 0 {
			// Bounded poll: wake periodically even with no explicit signal,
			// in case a completion notification was missed.
			timer := time.AfterFunc(PollInterval, func() {
				s.mu.Lock()
				s.cond.Broadcast()
				s.mu.Unlock()
			})
			s.cond.Wait()
			timer.Stop()
		} else {
			s.cond.Wait()
		}
		close(done)

		select {
		case <-ctx.Done():
			return Pick{}, false
		default:
		}
	}
}

// tryPick walks the ready set from highest np to lowest (and within a
// bucket, longest runtime first), returning the first item whose resource
// demand the pool can currently satisfy. If nothing fits and no test is
// running, the first (highest-np) item is granted anyway under the
// oversubscription rule so a single oversized test cannot deadlock the run.
func (s *Scheduler) tryPick() (Pick, bool) {
	var picked *Item
	s.rq.forEachDescending(func(it Item) bool {
		effNP := it.NumProcs
		effND := it.NumDevices
		if s.pool.Query(effNP, effND) {
			item := it
			picked = &item
			return false
		}
		return true
	})

	if picked != nil {
		h, err := s.pool.Obtain(picked.NumProcs, picked.NumDevices, false)
		if err == nil {
			return Pick{Item: *picked, Handle: h}, true
		}
	}

	if len(s.running) == 0 {
		var first *Item
		s.rq.forEachDescending(func(it Item) bool {
			item := it
			first = &item
			return false
		})
		if first != nil {
			h, err := s.pool.Obtain(first.NumProcs, first.NumDevices, true)
			if err == nil {
				return Pick{Item: *first, Handle: h}, true
			}
		}
	}

	return Pick{}, false
}

// Terminated reports whether the run is complete: nothing is ready and
// nothing is running. It does not consult the never-runnable count.
func (s *Scheduler) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rq.isEmpty() && len(s.running) == 0
}
