// Package discovery provides the default filesystem-walking Discovery used
// by the CLI when no other collaborator is wired in. It finds `*.vvt` files
// under a root directory and builds one minimal TestSpec per file.
//
// This is deliberately NOT a test-file parser: it does not read keyword or
// platform directives, parameterization, or dependency declarations out of
// the file body. It only answers "which files look like tests" and applies
// a single uniform resource shape to all of them, the way LoadDefinitions
// walks a directory for YAML files without interpreting their contents
// beyond a parse.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vvtest/internal/testcase"
	"vvtest/pkg/logging"
)

// Extension is the file suffix treated as a test script.
const Extension = ".vvt"

// WalkDiscovery implements testcase.Discovery by walking Root for files
// named *.vvt and turning each into a single-process, no-dependency
// TestSpec with DefaultNumProcs and DefaultTimeoutSeconds.
type WalkDiscovery struct {
	Root                 string
	DefaultNumProcs      int
	DefaultTimeoutSeconds int
}

var _ testcase.Discovery = (*WalkDiscovery)(nil)

// ActiveSpecs walks d.Root and returns one TestSpec per *.vvt file found.
func (d *WalkDiscovery) ActiveSpecs() ([]*testcase.TestSpec, error) {
	if d.Root == "" {
		return nil, nil
	}
	if _, err := os.Stat(d.Root); os.IsNotExist(err) {
		logging.Warn("Discovery", "test root does not exist: %s", d.Root)
		return nil, nil
	}

	numProcs := d.DefaultNumProcs
	if numProcs <= 0 {
		numProcs = 1
	}
	timeout := d.DefaultTimeoutSeconds
	if timeout == 0 {
		timeout = 3600
	}

	var specs []*testcase.TestSpec
	err := filepath.Walk(d.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(path), Extension) {
			return nil
		}

		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			logging.Error("Discovery", err, "failed to relativize %s", path)
			return nil
		}

		name := strings.TrimSuffix(filepath.Base(rel), Extension)
		specs = append(specs, &testcase.TestSpec{
			Name:           name,
			RootPath:       d.Root,
			FilePath:       rel,
			Parameters:     map[string]testcase.ParamValue{},
			NumProcs:       numProcs,
			TimeoutSeconds: timeout,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: walk %s: %w", d.Root, err)
	}

	logging.Info("Discovery", "found %d test(s) under %s", len(specs), d.Root)
	return specs, nil
}
