// Package engine wires the test store, dependency graph, resource pool,
// scheduler, executor, and journal into a runnable whole: Start spawns the
// poll loop, Stop cancels it and escalation-kills active work, Wait blocks
// for completion, and state-change events are published to subscribers
// through a non-blocking fan-out.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"vvtest/internal/dependency"
	"vvtest/internal/executor"
	"vvtest/internal/executor/script"
	"vvtest/internal/journal"
	"vvtest/internal/resource"
	"vvtest/internal/scheduler"
	"vvtest/internal/testcase"
	"vvtest/pkg/logging"

	"github.com/google/uuid"
)

// StateChangedEvent describes a single TestCase status transition, published
// to subscribers as the engine runs.
type StateChangedEvent struct {
	ID        testcase.TestID
	OldStatus testcase.TestStatus
	NewStatus testcase.TestStatus
	Timestamp time.Time
}

// Config holds the run-wide settings the engine needs to build its
// collaborators.
type Config struct {
	ExecuteRoot    string
	TotalCores     int
	TotalDevices   int
	NodeShape      resource.NodeShape
	PreClean       bool
	PostClean      bool
	DiffExitStatus int
	SkipExitStatus int
	JournalPath    string
	PollInterval   time.Duration
	Hostname       string
}

// Engine owns the store, pool, scheduler, and journal for one run and
// drives direct-mode execution to completion.
type Engine struct {
	cfg  Config
	hook Hook

	store *testcase.Store
	pool  *resource.Pool
	sched *scheduler.Scheduler
	jrnl  *journal.Writer

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	activeLaunches map[testcase.TestID]*executor.Launch
	subscribers    []chan<- StateChangedEvent
	done           chan struct{}
}

// New builds an Engine from cfg. Call LoadTests before Start.
func New(cfg Config) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	pool := resource.New(cfg.TotalCores, cfg.TotalDevices, cfg.NodeShape)
	return &Engine{
		cfg:            cfg,
		hook:           DefaultHook,
		store:          testcase.NewStore(),
		pool:           pool,
		sched:          scheduler.New(pool),
		activeLaunches: make(map[testcase.TestID]*executor.Launch),
		done:           make(chan struct{}),
	}
}

// SetHook overrides the engine's Hook, used by tests to drive the poll loop
// deterministically instead of sleeping on a wall clock.
func (e *Engine) SetHook(h Hook) {
	if h == nil {
		h = DefaultHook
	}
	e.hook = h
}

// Store exposes the underlying TestCase store for read access (reporting,
// `vvtest list`).
func (e *Engine) Store() *testcase.Store { return e.store }

// LoadTests pulls the active set from discovery, registers every spec in
// the store, resolves dependency edges, checks for cycles, and seeds
// each TestCase's initial Waiting/Ready status.
func (e *Engine) LoadTests(discovery testcase.Discovery) error {
	specs, err := discovery.ActiveSpecs()
	if err != nil {
		return fmt.Errorf("engine: discovery: %w", err)
	}

	xdirs := make(map[string]bool, len(specs))
	for _, spec := range specs {
		tc, err := e.store.Register(spec)
		if err != nil {
			logging.Error("Engine", err, "skipping test with duplicate execute directory")
			continue
		}
		xdirs[tc.Xdir()] = true
	}

	// The dependency graph operates in the execute-directory domain, not
	// the per-stage TestID domain: a staged group is one node there, with
	// firstStage as its entry gate and lastStage as the representative
	// whose terminal status a cross-group predicate actually evaluates.
	firstStage := make(map[string]*testcase.TestCase, len(xdirs))
	lastStage := make(map[string]*testcase.TestCase, len(xdirs))
	for xdir := range xdirs {
		siblings := e.store.StageSiblings(xdir)
		if len(siblings) == 0 {
			continue
		}
		firstStage[xdir] = siblings[0]
		lastStage[xdir] = siblings[len(siblings)-1]

		// Stage N+1 may not start until stage N finishes, independent of
		// stage N's result -- purely structural, so IgnoreResult.
		for i := 1; i < len(siblings); i++ {
			prev, cur := siblings[i-1], siblings[i]
			cur.SetDependencies(append(cur.Dependencies(), &testcase.Dependency{On: prev, Blocking: true, IgnoreResult: true}))
			prev.AddDependent(cur)
		}
	}

	graph := dependency.New()
	patterns := make(map[dependency.NodeID][]dependency.PatternDependency, len(firstStage))
	for xdir, tc := range firstStage {
		graph.AddNode(dependency.Node{ID: dependency.NodeID(xdir)})
		var pats []dependency.PatternDependency
		for _, d := range tc.Spec().Dependencies {
			pats = append(pats, dependency.PatternDependency{Pattern: d.Pattern, ResultExpr: d.ResultExpr})
		}
		patterns[dependency.NodeID(xdir)] = pats
	}

	edges := dependency.Resolve(graph, patterns)
	edges = append(edges, e.analyzeEdges(firstStage)...)

	nodeIDs := make([]dependency.NodeID, 0, len(firstStage))
	for xdir := range firstStage {
		nodeIDs = append(nodeIDs, dependency.NodeID(xdir))
	}
	if err := dependency.DetectCycles(nodeIDs, edges); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	for _, edge := range edges {
		from := firstStage[string(edge.From)]
		to := lastStage[string(edge.To)]
		if from == nil || to == nil {
			continue
		}
		from.SetDependencies(append(from.Dependencies(), &testcase.Dependency{On: to, ResultExpr: edge.ResultExpr, Blocking: true}))
		to.AddDependent(from)
	}

	all := e.store.All()
	for _, tc := range all {
		if e.dependenciesSatisfied(tc) {
			tc.SetStatus(testcase.StatusReady)
		} else {
			tc.SetStatus(testcase.StatusWaiting)
		}
	}

	e.sched.SetTotalKnown(len(all))
	return nil
}

// analyzeEdges wires every staged-analyze TestCase to its non-analyze
// siblings sharing the same pre-stage-suffix execute directory, the way
// connect_analyze_dependencies links an analyze phase to every stage it
// summarizes. cases is keyed by execute directory, one entry per staged
// group (its first-stage representative).
func (e *Engine) analyzeEdges(cases map[string]*testcase.TestCase) []dependency.ResolvedEdge {
	groups := make(map[string][]string)
	isAnalyze := make(map[dependency.NodeID]bool, len(cases))
	for xdir, tc := range cases {
		dir := filepath.Dir(xdir)
		groups[dir] = append(groups[dir], xdir)
		isAnalyze[dependency.NodeID(xdir)] = tc.Spec().IsAnalyze
	}

	var edges []dependency.ResolvedEdge
	for _, xdirs := range groups {
		var siblings []dependency.NodeID
		for _, xdir := range xdirs {
			siblings = append(siblings, dependency.NodeID(xdir))
		}
		for _, xdir := range xdirs {
			if cases[xdir].Spec().IsAnalyze {
				edges = append(edges, dependency.AnalyzeEdges(dependency.NodeID(xdir), siblings, isAnalyze)...)
			}
		}
	}
	return edges
}

func (e *Engine) dependenciesSatisfied(tc *testcase.TestCase) bool {
	for _, dep := range tc.Dependencies() {
		if dep.Blocking && !dep.On.Status().IsFinished() {
			return false
		}
	}
	return true
}

// Start opens the results journal, seeds the ready queue from every
// already-ready TestCase, and launches the direct-mode poll loop in the
// background. ctx governs the whole run; cancelling it begins an orderly
// shutdown (see Stop).
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	jrnl, err := journal.Create(e.cfg.JournalPath, uuid.New(), time.Now())
	if err != nil {
		return fmt.Errorf("engine: open journal: %w", err)
	}
	e.jrnl = jrnl

	for _, tc := range e.store.All() {
		if tc.Status() == testcase.StatusReady {
			e.enqueue(tc)
		}
	}

	notifyReady()
	startWatchdog(e.done)

	go e.runLoop()
	return nil
}

func (e *Engine) enqueue(tc *testcase.TestCase) {
	spec := tc.Spec()
	np := e.pool.EffectiveCores(spec.NumProcs, spec.NumNodes)
	nd := e.pool.EffectiveDevices(spec.NumDevices, spec.NumNodes)
	e.sched.MarkReady(scheduler.Item{
		ID:              string(tc.ID()),
		NumProcs:        np,
		NumDevices:      nd,
		NumNodes:        spec.NumNodes,
		RuntimeEstimate: float64(spec.TimeoutSeconds),
	})
}

func (e *Engine) runLoop() {
	defer close(e.done)
	var wg sync.WaitGroup

	for {
		e.hook.OnPollTick()
		pick, ok := e.sched.Next(e.ctx)
		if !ok {
			break
		}
		wg.Add(1)
		go func(p scheduler.Pick) {
			defer wg.Done()
			e.runOne(p)
		}(pick)
	}
	wg.Wait()

	if e.jrnl != nil {
		e.jrnl.WriteFinish(time.Now())
		e.jrnl.Close()
	}
}

// runOne stages, launches, and polls a single picked test through to a
// terminal status, then propagates readiness to its dependents.
func (e *Engine) runOne(pick scheduler.Pick) {
	tc := e.store.Get(testcase.TestID(pick.Item.ID))
	if tc == nil {
		e.sched.MarkFinished(pick.Item.ID)
		return
	}

	oldStatus := tc.Status()
	tc.SetStatus(testcase.StatusRunning)
	e.publish(tc, oldStatus, testcase.StatusRunning)
	tc.SetAllocation(pick.Item.NumProcs, pick.Item.NumDevices, pick.Item.NumNodes)

	spec := tc.Spec()
	xdir := filepath.Join(e.cfg.ExecuteRoot, tc.Xdir())
	tc.SetRunDir(xdir)
	srcDir := filepath.Join(spec.RootPath, filepath.Dir(spec.FilePath))

	isFirstStage, isLastStage := e.stagePosition(tc)

	execCfg := executor.Config{DiffExitStatus: e.cfg.DiffExitStatus, SkipExitStatus: e.cfg.SkipExitStatus, PreClean: e.cfg.PreClean, PostClean: e.cfg.PostClean}

	finalStatus := testcase.StatusFail
	if err := executor.StageExecuteDirectory(xdir, srcDir, spec, execCfg, isFirstStage); err != nil {
		logging.Error("Engine", err, "failed to stage execute directory for %s", tc.ID())
		e.finishOne(tc, finalStatus)
		return
	}

	if pick.Item.NumNodes > 1 {
		if err := executor.WriteMachineFile(xdir, e.cfg.Hostname, pick.Handle); err != nil {
			logging.ErrorOnce("Engine", err, "failed to write machine file for %s", tc.ID())
		}
	}

	if err := script.WriteFiles(xdir, e.buildScriptData(tc)); err != nil {
		logging.ErrorOnce("Engine", err, "failed to write vvtest_util files for %s", tc.ID())
	}

	cmdPath := filepath.Join(spec.RootPath, spec.FilePath)
	env := executor.ChildEnv{
		Base:        os.Environ(),
		VVTestRoot:  spec.RootPath,
		ExecuteDir:  xdir,
		TimeoutSecs: spec.TimeoutSeconds,
	}
	timeout := time.Duration(spec.TimeoutSeconds) * time.Second
	if spec.TimeoutSeconds <= 0 {
		timeout = 0
	}

	launch, err := executor.LaunchProcess(xdir, cmdPath, env, timeout, e.cfg.DiffExitStatus)
	if err != nil {
		logging.Error("Engine", err, "failed to launch %s", tc.ID())
		e.finishOne(tc, finalStatus)
		return
	}

	e.mu.Lock()
	e.activeLaunches[tc.ID()] = launch
	e.mu.Unlock()

	var result executor.Result
	for {
		e.hook.OnPollTick()
		var done bool
		result, done = launch.Poll()
		if done {
			break
		}
		select {
		case <-e.ctx.Done():
		case <-time.After(e.cfg.PollInterval):
		}
	}

	e.mu.Lock()
	delete(e.activeLaunches, tc.ID())
	e.mu.Unlock()

	e.pool.Release(pick.Handle)

	hasDependents := len(tc.Dependents()) > 0
	if err := executor.FinishExecuteDirectory(xdir, execCfg, result.Status, hasDependents, isLastStage); err != nil {
		logging.ErrorOnce("Engine", err, "post-clean failed for %s", tc.ID())
	}

	e.finishOne(tc, result.Status)
}

// stagePosition reports whether tc is the first and/or last stage of its
// xdir's staged group (both true for a non-staged test).
func (e *Engine) stagePosition(tc *testcase.TestCase) (isFirst, isLast bool) {
	siblings := e.store.StageSiblings(tc.Xdir())
	if len(siblings) == 0 {
		return true, true
	}
	return siblings[0].ID() == tc.ID(), siblings[len(siblings)-1].ID() == tc.ID()
}

func (e *Engine) finishOne(tc *testcase.TestCase, status testcase.TestStatus) {
	old := tc.Status()
	tc.SetStatus(status)
	e.publish(tc, old, status)

	if e.jrnl != nil {
		attrs := map[string]string{"elapsed": tc.Elapsed().String()}
		if err := e.jrnl.WriteTest(string(tc.ID()), status.String(), attrs); err != nil {
			logging.ErrorOnce("Engine", err, "failed to write journal record for %s", tc.ID())
		}
	}

	for _, dependent := range tc.Dependents() {
		e.maybeEnqueue(dependent)
	}

	e.sched.MarkFinished(string(tc.ID()))
}

func (e *Engine) maybeEnqueue(tc *testcase.TestCase) {
	if tc.Status() != testcase.StatusWaiting {
		return
	}
	for _, dep := range tc.Dependencies() {
		if !dep.Blocking {
			continue
		}
		if !dep.On.Status().IsFinished() {
			return // still blocked on something else
		}
		if dep.IgnoreResult {
			continue
		}
		satisfied := dep.On.Status().SatisfiesResult()
		if dep.ResultExpr != "" {
			satisfied = testcase.EvaluateResultExpr(dep.ResultExpr, dep.On.Status())
		}
		if !satisfied {
			e.markNeverRunnable(tc)
			return
		}
	}
	old := tc.Status()
	tc.SetStatus(testcase.StatusReady)
	e.publish(tc, old, testcase.StatusReady)
	e.enqueue(tc)
}

func (e *Engine) markNeverRunnable(tc *testcase.TestCase) {
	old := tc.Status()
	tc.SetStatus(testcase.StatusNotRun)
	e.publish(tc, old, testcase.StatusNotRun)
	e.sched.MarkNeverRunnable()
}

// Stop requests an orderly shutdown: the scheduler stops handing out new
// work and every active launch is escalation-killed concurrently (SIGINT,
// then SIGTERM if it is still running after InterruptToKillTimeout), bounded
// by errgroup rather than an unbounded goroutine fan-out. Stop returns once
// every launch has exited or been sent SIGTERM.
func (e *Engine) Stop() error {
	notifyStopping()
	e.sched.Shutdown()
	if e.cancel != nil {
		e.cancel()
	}

	e.mu.Lock()
	launches := make([]*executor.Launch, 0, len(e.activeLaunches))
	for _, l := range e.activeLaunches {
		launches = append(launches, l)
	}
	e.mu.Unlock()

	g := new(errgroup.Group)
	for _, l := range launches {
		l := l
		g.Go(func() error {
			if err := l.ForwardSignal(syscall.SIGINT); err != nil {
				return err
			}
			deadline := time.Now().Add(executor.InterruptToKillTimeout)
			for time.Now().Before(deadline) {
				if _, done := l.Poll(); done {
					return nil
				}
				time.Sleep(100 * time.Millisecond)
			}
			return l.ForwardSignal(syscall.SIGTERM)
		})
	}
	return g.Wait()
}

// Wait blocks until the run loop finishes and returns the process exit-code
// bitmask folded from every TestCase's terminal status.
func (e *Engine) Wait() int {
	<-e.done
	return e.store.ExitCode()
}

// SubscribeToStateChanges returns a channel of every TestCase status
// transition, published as the run progresses.
func (e *Engine) SubscribeToStateChanges() <-chan StateChangedEvent {
	ch := make(chan StateChangedEvent, 256)
	e.mu.Lock()
	e.subscribers = append(e.subscribers, ch)
	e.mu.Unlock()
	return ch
}

func (e *Engine) publish(tc *testcase.TestCase, oldStatus, newStatus testcase.TestStatus) {
	if oldStatus == newStatus {
		return
	}
	event := StateChangedEvent{ID: tc.ID(), OldStatus: oldStatus, NewStatus: newStatus, Timestamp: time.Now()}

	e.mu.Lock()
	subs := make([]chan<- StateChangedEvent, len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			logging.Debug("Engine", "state-change subscriber blocked, dropping event for %s", tc.ID())
		}
	}
}
