package engine

import (
	"path/filepath"
	"sort"

	"vvtest/internal/executor/script"
	"vvtest/internal/testcase"
)

// buildScriptData assembles the vvtest_util.py/.sh contract for tc's current
// run: its own parameters, resolved dependency directories, and the
// resources actually granted by the resource pool. Both rendered forms come
// from this one struct; DepDirMap is left empty here, and only the Python
// form has a DEPDIRMAP variable.
func (e *Engine) buildScriptData(tc *testcase.TestCase) script.Data {
	spec := tc.Spec()
	np, nd, _ := tc.Allocation()
	totalCores, totalDevices := e.pool.Capacity()

	names := make([]string, 0, len(spec.Parameters))
	for name := range spec.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	params := make([]script.ParamEntry, 0, len(names))
	for _, name := range names {
		v := spec.Parameters[name]
		params = append(params, script.ParamEntry{Name: name, ShellValue: v.String(), PyLiteral: v.PyLiteral()})
	}

	var depDirs []string
	for _, dep := range tc.Dependencies() {
		dir := dep.On.RunDir()
		if dir == "" {
			dir = dep.On.Xdir()
		}
		depDirs = append(depDirs, dir)
	}

	return script.Data{
		Name:     spec.Name,
		TestID:   string(tc.ID()),
		SrcDir:   filepath.Join(spec.RootPath, filepath.Dir(spec.FilePath)),
		TestRoot: spec.RootPath,

		Timeout:  spec.TimeoutSeconds,
		Keywords: spec.Keywords,

		Params:  params,
		DepDirs: depDirs,

		CPU:    script.ResourceBlock{Count: np, Total: totalCores},
		Device: script.ResourceBlock{Count: nd, Total: totalDevices},

		DiffExitStatus: e.cfg.DiffExitStatus,
		SkipExitStatus: e.cfg.SkipExitStatus,
		OptAnalyze:     spec.IsAnalyze,
	}
}
