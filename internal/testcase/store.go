package testcase

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the canonical index of every TestCase in a run, keyed by TestID
// and by execute directory. It follows the map-backed adjacency style of
// internal/dependency.Graph: callers synchronize through the Store's own
// methods rather than reaching into its internals.
//
// An execute directory normally holds exactly one TestCase. A staged test
// group is the one sanctioned exception: every stage of the group shares an
// xdir, so byXdir indexes a *slice* of cases there, held in registration
// order and sorted into stage order on demand by StageSiblings.
type Store struct {
	mu      sync.RWMutex
	byID    map[TestID]*TestCase
	byXdir  map[string][]*TestCase
	ordered []*TestCase
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		byID:   make(map[TestID]*TestCase),
		byXdir: make(map[string][]*TestCase),
	}
}

// Register adds spec to the store under its canonical TestID. It returns an
// error if the derived execute directory collides with one already
// registered, unless both sides are stages of the same staged group (the
// xdir uniqueness invariant, with its one sanctioned exception).
func (s *Store) Register(spec *TestSpec) (*TestCase, error) {
	id := NewTestID(spec)
	xdir := ExecuteDirForSpec(spec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byID[id]; ok {
		return existing, fmt.Errorf("testcase: duplicate test id %q (existing test %s, new test %s)", id, existing.Spec().Name, spec.Name)
	}

	if group := s.byXdir[xdir]; len(group) > 0 && !spec.IsStaged() {
		return group[0], fmt.Errorf("testcase: duplicate execute directory %q (existing test %s, new test %s)", xdir, group[0].Spec().Name, spec.Name)
	}

	tc := NewTestCase(id, spec)
	s.byID[id] = tc
	s.byXdir[xdir] = append(s.byXdir[xdir], tc)
	s.ordered = append(s.ordered, tc)
	return tc, nil
}

// Get returns the TestCase for id, or nil if not registered.
func (s *Store) Get(id TestID) *TestCase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// GetByXdir returns the first-registered case sharing xdir, or nil. Use
// StageSiblings to get every stage of a staged group.
func (s *Store) GetByXdir(xdir string) *TestCase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group := s.byXdir[xdir]
	if len(group) == 0 {
		return nil
	}
	return group[0]
}

// StageSiblings returns every TestCase sharing xdir, sorted ascending by
// stage index. For a non-staged test this is a single-element slice.
func (s *Store) StageSiblings(xdir string) []*TestCase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group := s.byXdir[xdir]
	out := make([]*TestCase, len(group))
	copy(out, group)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Spec().StageIndex() < out[j].Spec().StageIndex()
	})
	return out
}

// All returns every registered case in registration order.
func (s *Store) All() []*TestCase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*TestCase, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// CountByStatus tallies cases per status, for summary reporting.
func (s *Store) CountByStatus() map[TestStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[TestStatus]int)
	for _, tc := range s.ordered {
		counts[tc.Status()]++
	}
	return counts
}

// ExitCode folds every case's terminal status into the process exit-code
// bitmask: diff=2, fail=4, timeout=8, notdone=16, notrun=32.
func (s *Store) ExitCode() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code := 0
	for _, tc := range s.ordered {
		code |= tc.Status().ExitBit()
	}
	return code
}
