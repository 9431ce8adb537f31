package testcase

import "testing"

func newSpec(name string, params map[string]ParamValue) *TestSpec {
	return &TestSpec{Name: name, FilePath: "diamond/" + name + ".vvt", Parameters: params}
}

func TestStoreRegisterAssignsStableID(t *testing.T) {
	store := NewStore()
	spec := newSpec("A", map[string]ParamValue{"np": NewIntParam(4)})

	tc, err := store.Register(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.Status() != StatusWaiting {
		t.Fatalf("expected initial status waiting, got %s", tc.Status())
	}

	got := store.Get(tc.ID())
	if got != tc {
		t.Fatal("Get did not return the registered case")
	}
}

func TestStoreRegisterRejectsDuplicateXdir(t *testing.T) {
	store := NewStore()
	spec1 := newSpec("A", nil)
	spec2 := newSpec("A", nil)

	if _, err := store.Register(spec1); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := store.Register(spec2); err == nil {
		t.Fatal("expected duplicate xdir error, got nil")
	}
}

func TestStoreExitCodeFoldsTerminalStatuses(t *testing.T) {
	store := NewStore()

	tc1, _ := store.Register(newSpec("A", nil))
	tc2, _ := store.Register(newSpec("B", map[string]ParamValue{"np": NewIntParam(2)}))

	tc1.SetStatus(StatusDiff)
	tc2.SetStatus(StatusFail)

	if got, want := store.ExitCode(), 2|4; got != want {
		t.Fatalf("ExitCode() = %d, want %d", got, want)
	}
}

func TestTestIDIncludesSortedParameterSuffix(t *testing.T) {
	spec := newSpec("A", map[string]ParamValue{"np": NewIntParam(4), "dt": NewFloatParam(0.1)})
	id := NewTestID(spec)
	if id != "diamond/A.dt=0.1.np=4" {
		t.Fatalf("unexpected TestID: %s", id)
	}
}

func newStagedSpec(name string, stage int) *TestSpec {
	return &TestSpec{
		Name:       name,
		FilePath:   "diamond/" + name + ".vvt",
		Parameters: map[string]ParamValue{"stage": NewIntParam(stage)},
		StageParam: "stage",
	}
}

func TestStoreRegisterAcceptsAllStagesOfAGroup(t *testing.T) {
	store := NewStore()

	for stage := 1; stage <= 3; stage++ {
		if _, err := store.Register(newStagedSpec("A", stage)); err != nil {
			t.Fatalf("register stage %d: %v", stage, err)
		}
	}

	if got := len(store.All()); got != 3 {
		t.Fatalf("expected 3 registered cases, got %d", got)
	}
}

func TestStoreRegisterStillRejectsDuplicateNonStagedXdir(t *testing.T) {
	store := NewStore()
	if _, err := store.Register(newStagedSpec("A", 1)); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	// A non-staged spec landing on the same xdir as a staged group must
	// still be rejected -- the staged exception only applies between
	// stages of the same group.
	if _, err := store.Register(newSpec("A", nil)); err == nil {
		t.Fatal("expected duplicate xdir error, got nil")
	}
}

func TestStageSiblingsReturnsAscendingStageOrder(t *testing.T) {
	store := NewStore()
	for _, stage := range []int{3, 1, 2} {
		if _, err := store.Register(newStagedSpec("A", stage)); err != nil {
			t.Fatalf("register stage %d: %v", stage, err)
		}
	}

	xdir := ExecuteDirForSpec(newStagedSpec("A", 1))
	siblings := store.StageSiblings(xdir)
	if len(siblings) != 3 {
		t.Fatalf("expected 3 siblings, got %d", len(siblings))
	}
	for i, tc := range siblings {
		if want := i + 1; tc.Spec().StageIndex() != want {
			t.Fatalf("siblings[%d] has stage %d, want %d", i, tc.Spec().StageIndex(), want)
		}
	}
}

func TestStageSiblingsSingleElementForNonStagedTest(t *testing.T) {
	store := NewStore()
	tc, _ := store.Register(newSpec("A", nil))
	siblings := store.StageSiblings(tc.Xdir())
	if len(siblings) != 1 || siblings[0] != tc {
		t.Fatalf("expected single-element sibling list containing tc, got %+v", siblings)
	}
}
