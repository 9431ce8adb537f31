package executor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vvtest/internal/testcase"
)

// preCleanExclude and postCleanExclude are the protected-file sets pre/post
// clean must never remove, ported from pre_clean_execute_directory and
// post_clean_execute_directory.
var (
	preCleanExclude = map[string]bool{
		"execute.log":    true,
		"baseline.log":   true,
		"vvtest_util.py": true,
		"vvtest_util.sh": true,
	}
	postCleanExclude = map[string]bool{
		"execute.log":    true,
		"baseline.log":   true,
		"vvtest_util.py": true,
		"vvtest_util.sh": true,
		"machinefile":    true,
		"testdata.repr":  true,
	}
)

func isProtectedLogGlob(name string) bool {
	ok, _ := filepath.Match("execute_*.log", name)
	return ok
}

// PreClean removes every entry in dir except the protected set and any
// execute_*.log file.
func PreClean(dir string) error {
	return cleanExcept(dir, preCleanExclude, false)
}

// PostClean removes every entry in dir except the protected set, any
// execute_*.log file, and symlinks (which post-clean leaves in place so a
// dependent's linked output isn't yanked out from under it).
func PostClean(dir string) error {
	return cleanExcept(dir, postCleanExclude, true)
}

func cleanExcept(dir string, protect map[string]bool, skipSymlinks bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("executor: clean %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if protect[name] || isProtectedLogGlob(name) {
			continue
		}
		full := filepath.Join(dir, name)
		if skipSymlinks {
			if info, err := os.Lstat(full); err == nil && info.Mode()&os.ModeSymlink != 0 {
				continue
			}
		}
		if err := os.RemoveAll(full); err != nil {
			return fmt.Errorf("executor: remove %s: %w", full, err)
		}
	}
	return nil
}

// resolveSource expands a FilePair's Source against srcDir: absolute paths
// are used as-is, relative paths are resolved against srcDir, and a glob
// source expands to every match. It returns an error if the source doesn't
// exist, or if it expands to more than one file while an explicit
// destination name was given.
func resolveSource(srcDir string, pair testcase.FilePair) ([]string, error) {
	var srcf string
	if filepath.IsAbs(pair.Source) {
		srcf = filepath.Clean(pair.Source)
	} else {
		srcf = filepath.Clean(filepath.Join(srcDir, pair.Source))
	}

	var matches []string
	if _, err := os.Stat(srcf); err == nil {
		matches = []string{srcf}
	} else {
		matches, _ = filepath.Glob(srcf)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("executor: source does not exist: %s", srcf)
	}
	if len(matches) > 1 && pair.Destination != "" {
		return nil, fmt.Errorf("executor: source %s expands to %d files but an explicit destination %q was given", srcf, len(matches), pair.Destination)
	}
	return matches, nil
}

// LinkFiles stages spec.LinkFiles into xdir as symlinks.
func LinkFiles(srcDir, xdir string, pairs []testcase.FilePair) error {
	for _, pair := range pairs {
		matches, err := resolveSource(srcDir, pair)
		if err != nil {
			return err
		}
		for _, src := range matches {
			dest := pair.Destination
			if dest == "" {
				dest = filepath.Base(src)
			}
			if err := forceLinkInto(xdir, src, dest); err != nil {
				return err
			}
		}
	}
	return nil
}

// CopyFiles stages spec.CopyFiles into xdir by recursive copy.
func CopyFiles(srcDir, xdir string, pairs []testcase.FilePair) error {
	for _, pair := range pairs {
		matches, err := resolveSource(srcDir, pair)
		if err != nil {
			return err
		}
		for _, src := range matches {
			dest := pair.Destination
			if dest == "" {
				dest = filepath.Base(src)
			}
			if err := copyInto(filepath.Join(xdir, dest), src); err != nil {
				return err
			}
		}
	}
	return nil
}

func forceLinkInto(xdir, src, destName string) error {
	target := filepath.Join(xdir, destName)
	if info, err := os.Lstat(target); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			if existing, _ := os.Readlink(target); existing == src {
				return nil
			}
		}
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("executor: remove stale link %s: %w", target, err)
		}
	}
	return os.Symlink(src, target)
}

func copyInto(dest, src string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDir(dest, src)
	}
	return copyFile(dest, src, info.Mode())
}

func copyDir(dest, src string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dest, e.Name())
		info, err := e.Info()
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := copyDir(d, s); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(d, s, info.Mode()); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(dest, src string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
