package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTruncated is returned by Read when the file ends without a finish
// record, meaning the writer crashed or was killed mid-run. Callers that
// only care about completed results should treat it as informational, not
// fatal: everything parsed up to the cut is still valid.
var ErrTruncated = errors.New("journal: truncated (no finish record)")

// Read parses every record in path, in order. include records are resolved
// relative to path's directory and their target file's records are spliced
// in at that point, so a batch parent transparently sees everything its
// children wrote. A child journal that ends without a finish record is not
// an error on its own -- only the outermost Read reports ErrTruncated, and
// only when the file it was asked to read ends incomplete.
func Read(path string) ([]Record, error) {
	records, complete, err := readFile(path, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if !complete {
		return records, ErrTruncated
	}
	return records, nil
}

// readFile returns the parsed records and whether the file's tail is a
// well-formed finish record (false if the file was cut short).
func readFile(path string, visiting map[string]bool) ([]Record, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if visiting[abs] {
		return nil, false, fmt.Errorf("journal: include cycle at %s", path)
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()

	var out []Record
	complete := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, perr := ParseLine(line)
		if perr != nil {
			// A malformed trailing line is the signature of a crash mid-write;
			// stop here rather than failing the whole read.
			complete = false
			break
		}
		switch rec.Kind {
		case KindFinish:
			out = append(out, rec)
			complete = true
		case KindInclude:
			childPath := rec.IncludePath
			if !filepath.IsAbs(childPath) {
				childPath = filepath.Join(filepath.Dir(path), childPath)
			}
			childRecords, childComplete, cerr := readFile(childPath, visiting)
			if cerr != nil {
				// Missing or unreadable include target: record the pointer
				// itself and move on rather than failing the parent read.
				out = append(out, rec)
				continue
			}
			out = append(out, childRecords...)
			_ = childComplete // a child without its own finish record is tolerated
		default:
			out = append(out, rec)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return out, complete, fmt.Errorf("journal: scan %s: %w", path, err)
	}

	return out, complete, nil
}
