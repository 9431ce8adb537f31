package journal

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Writer appends records to a single journal file. Each write is flushed
// immediately so a crash leaves at most one partially-written trailing
// line, which Reader is built to tolerate.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// Create opens path for append, creating it if necessary, and writes a
// start record carrying runID and the current time.
func Create(path string, runID uuid.UUID, startTime time.Time) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	w := &Writer{file: f, w: bufio.NewWriter(f)}
	if err := w.writeLine(EncodeStart(runID, startTime)); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Open opens an existing journal file for further appends without writing
// a new start record, used when a batch child resumes into a shared file.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	return &Writer{file: f, w: bufio.NewWriter(f)}, nil
}

func (w *Writer) writeLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("journal: flush: %w", err)
	}
	return w.file.Sync()
}

// WriteTest appends a test-result record for one terminal status
// transition.
func (w *Writer) WriteTest(testID, status string, attrs map[string]string) error {
	return w.writeLine(EncodeTest(testID, status, attrs))
}

// WriteInclude appends a record pointing at another journal file whose
// contents a reader should inline in place, used by a batch parent to
// absorb a child's private journal.
func (w *Writer) WriteInclude(path string) error {
	return w.writeLine(EncodeInclude(path))
}

// WriteFinish appends the finish record marking a clean run completion.
// Read reports ErrTruncated for a file that lacks it.
func (w *Writer) WriteFinish(finishTime time.Time) error {
	return w.writeLine(EncodeFinish(finishTime))
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
