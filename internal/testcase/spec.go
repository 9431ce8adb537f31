// Package testcase is the canonical in-memory index of active test cases
// (C1 in the design). It stores TestSpec/TestStatus pairs keyed by TestID
// and execute directory. A TestCase's status changes only through its own
// SetStatus method, which the engine calls.
package testcase

// ParamValue is a single parameter value, typed the way the original's
// parameter dictionary types values: int, float, or string.
type ParamValue struct {
	kind   paramKind
	intV   int
	floatV float64
	strV   string
}

type paramKind int

const (
	paramString paramKind = iota
	paramInt
	paramFloat
)

// NewStringParam builds a string-typed parameter value.
func NewStringParam(v string) ParamValue { return ParamValue{kind: paramString, strV: v} }

// NewIntParam builds an int-typed parameter value.
func NewIntParam(v int) ParamValue { return ParamValue{kind: paramInt, intV: v} }

// NewFloatParam builds a float-typed parameter value.
func NewFloatParam(v float64) ParamValue { return ParamValue{kind: paramFloat, floatV: v} }

// String renders the value as vvtest_util.sh would (quoted string form).
func (p ParamValue) String() string {
	switch p.kind {
	case paramInt:
		return itoa(p.intV)
	case paramFloat:
		return ftoa(p.floatV)
	default:
		return p.strV
	}
}

// IsNumeric reports whether the parameter should be rendered as a typed
// literal (int/float) in vvtest_util.py rather than a quoted string.
func (p ParamValue) IsNumeric() bool { return p.kind == paramInt || p.kind == paramFloat }

// PyLiteral renders the value as vvtest_util.py would (typed Python literal).
func (p ParamValue) PyLiteral() string {
	switch p.kind {
	case paramInt:
		return itoa(p.intV)
	case paramFloat:
		return ftoa(p.floatV)
	default:
		return pyquote(p.strV)
	}
}

// FilePair is a single copy/link/baseline source→destination mapping.
// Destination is empty when the original entry had no explicit name (the
// basename of the resolved source, or of each glob match, is used instead).
type FilePair struct {
	Source      string
	Destination string
}

// DependencyPattern is one textual dependency declared on a TestSpec, before
// resolution into concrete edges (C2's job).
type DependencyPattern struct {
	// Pattern is a glob matched against known execute-directory basenames.
	Pattern string
	// ResultExpr is the boolean predicate text over the dependency's final
	// status word; empty means the default predicate (pass or diff).
	ResultExpr string
	// Expect is the expected-match-count criterion: "+", "*", "?", or a
	// literal count as a decimal string. Empty behaves like "*".
	Expect string
}

// TestSpec is the immutable description of a single test, as produced by the
// external Discovery collaborator. The core treats this as an opaque,
// read-only descriptor; it never re-derives it from a file.
type TestSpec struct {
	Name       string
	RootPath   string
	FilePath   string // relative to RootPath
	Parameters map[string]ParamValue
	Keywords   []string

	Dependencies []DependencyPattern

	TimeoutSeconds int // -1 means "no timeout"

	LinkFiles     []FilePair
	CopyFiles     []FilePair
	BaselineFiles []FilePair

	IsAnalyze bool

	// StageParam is the parameter name carrying the stage index, or empty
	// if this test is not staged.
	StageParam string

	NumProcs    int
	NumDevices  int
	NumNodes    int // explicit node count, 0 if unspecified
}

// IsStaged reports whether this spec participates in a staged group.
func (s *TestSpec) IsStaged() bool { return s.StageParam != "" }

// StageIndex returns the integer value of the stage parameter, or 0 if this
// spec is not staged or the value isn't a parsed int.
func (s *TestSpec) StageIndex() int {
	if s.StageParam == "" {
		return 0
	}
	v, ok := s.Parameters[s.StageParam]
	if !ok || v.kind != paramInt {
		return 0
	}
	return v.intV
}

// Discovery is the external parser/filter collaborator: it produces the
// post-filter active set of TestSpecs this module indexes and schedules.
// Parsing test files and evaluating keyword/platform expressions are both
// out of scope for the core; it only ever sees what Discovery hands it.
type Discovery interface {
	// ActiveSpecs returns every TestSpec that survived filtering.
	ActiveSpecs() ([]*TestSpec, error)
}
