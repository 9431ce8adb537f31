// Package script renders the per-test utility scripts (vvtest_util.py and
// vvtest_util.sh) that every direct-mode or batch-mode test body can source
// to learn its own name, parameters, resource allocation, and dependency
// directories. Both forms are rendered from one shared Data structure. The
// shell form carries every variable of the Python form except DEPDIRMAP,
// which only vvtest_util.py defines.
package script

import "sort"

// ParamEntry is one rendered NAME/value pair, already formatted for both
// target languages (Python typed literal and shell quoted string).
type ParamEntry struct {
	Name       string
	ShellValue string
	PyLiteral  string
}

// DepDirEntry is one matched-pattern -> xdirs mapping for DEPDIRMAP.
type DepDirEntry struct {
	Pattern string
	Xdirs   []string
}

// ResourceBlock carries one resource kind's allocation (np or ndevice).
type ResourceBlock struct {
	Count int
	IDs   []int
	Total int
}

// Data is every value the two rendered scripts need.
type Data struct {
	Name     string
	TestID   string
	Platform string
	Compiler string

	VVTestSrc string
	TestRoot  string
	Project   string
	ConfigDir string
	SrcDir    string

	OptionsOn  []string
	OptionsOff []string

	Timeout  int
	Keywords []string

	Params      []ParamEntry
	AnalyzeDeps []ParamEntry // PARAM_<name> values for an analyze test's children

	DepDirs   []string
	DepDirMap []DepDirEntry

	CPU    ResourceBlock
	Device ResourceBlock

	DiffExitStatus int
	SkipExitStatus int
	OptAnalyze     bool
}

// SortedKeywords returns Keywords in a stable, deterministic order for
// rendering (the collaborator may hand them in arbitrary order).
func (d Data) SortedKeywords() []string {
	out := append([]string{}, d.Keywords...)
	sort.Strings(out)
	return out
}
