package dependency

import "testing"

func TestDetectCyclesNoCycle(t *testing.T) {
	ids := []NodeID{"A", "B", "C"}
	edges := []ResolvedEdge{
		{From: "A", To: "B"},
		{From: "B", To: "C"},
	}
	if err := DetectCycles(ids, edges); err != nil {
		t.Fatalf("expected no cycle, got %v", err)
	}
}

func TestDetectCyclesFindsCycle(t *testing.T) {
	ids := []NodeID{"A", "B", "C"}
	edges := []ResolvedEdge{
		{From: "A", To: "B"},
		{From: "B", To: "C"},
		{From: "C", To: "A"},
	}
	err := DetectCycles(ids, edges)
	if err == nil {
		t.Fatal("expected a cycle error, got nil")
	}
	var cycleErr *CycleError
	if !asCycleError(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
}

func asCycleError(err error, target **CycleError) bool {
	ce, ok := err.(*CycleError)
	if ok {
		*target = ce
	}
	return ok
}
