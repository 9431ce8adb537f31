package testcase

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// TestID uniquely names a test case: (name, sorted-parameter-pairs, stage?).
// Two TestSpecs with equal IDs are the same test. Staged siblings share an
// execute directory (see ExecuteDirForSpec) but must still resolve to
// distinct TestIDs -- the stage suffix below is what keeps them distinct.
type TestID string

// ExecuteDirForSpec returns the execute-directory path a spec runs in,
// relative to the run's execute root: the file's directory, the test name,
// and a sorted "key=value" parameter suffix for every parameter that isn't
// the stage parameter. Staged siblings compute to the same value here by
// design -- this is the directory P1/P4 talk about, not the TestID.
func ExecuteDirForSpec(spec *TestSpec) string {
	dir := path.Dir(spec.FilePath)
	base := spec.Name
	if suffix := paramSuffix(spec); suffix != "" {
		base = base + "." + suffix
	}
	if dir == "." || dir == "" {
		return base
	}
	return path.Join(dir, base)
}

// NewTestID derives the canonical TestID for a spec: its execute directory,
// plus a stage suffix when the spec is staged. Without the suffix, every
// stage of a staged group would compute to the identical TestID and the
// store could only ever hold one of them.
func NewTestID(spec *TestSpec) TestID {
	xdir := ExecuteDirForSpec(spec)
	if spec.IsStaged() {
		return TestID(fmt.Sprintf("%s@stage%d", xdir, spec.StageIndex()))
	}
	return TestID(xdir)
}

func paramSuffix(spec *TestSpec) string {
	if len(spec.Parameters) == 0 {
		return ""
	}
	keys := make([]string, 0, len(spec.Parameters))
	for k := range spec.Parameters {
		if k == spec.StageParam {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, spec.Parameters[k].String()))
	}
	return strings.Join(parts, ".")
}

// String satisfies fmt.Stringer.
func (id TestID) String() string { return string(id) }
