// Package journal implements the append-only, crash-tolerant results log:
// start/test/finish/include records written one per line, readable
// even when the trailing record was cut off mid-write by a crashed run.
package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecordKind identifies a journal line's shape.
type RecordKind string

const (
	KindStart   RecordKind = "start"
	KindTest    RecordKind = "test"
	KindFinish  RecordKind = "finish"
	KindInclude RecordKind = "include"
)

// Record is one parsed journal line.
type Record struct {
	Kind RecordKind

	// Start fields
	RunID   uuid.UUID
	RunDate time.Time

	// Test fields
	TestID  string
	Status  string
	Attrs   map[string]string

	// Finish fields
	FinishTime time.Time

	// Include fields
	IncludePath string
}

const fieldSep = "\t"
const kvSep = "="

func escapeField(s string) string {
	r := strings.NewReplacer("\t", "\\t", "\n", "\\n")
	return r.Replace(s)
}

func unescapeField(s string) string {
	r := strings.NewReplacer("\\t", "\t", "\\n", "\n")
	return r.Replace(s)
}

// EncodeStart renders a start record line.
func EncodeStart(runID uuid.UUID, runDate time.Time) string {
	return fmt.Sprintf("start%srunid=%s%srundate=%s", fieldSep, runID, fieldSep, runDate.Format(time.RFC3339))
}

// EncodeTest renders a test-result record line for one terminal status
// transition, with an arbitrary attribute bag (resource usage, elapsed
// time, etc.) appended as key=value fields.
func EncodeTest(testID, status string, attrs map[string]string) string {
	var b strings.Builder
	b.WriteString(string(KindTest))
	b.WriteString(fieldSep)
	b.WriteString("testid=")
	b.WriteString(escapeField(testID))
	b.WriteString(fieldSep)
	b.WriteString("status=")
	b.WriteString(status)
	for k, v := range attrs {
		b.WriteString(fieldSep)
		b.WriteString(k)
		b.WriteString(kvSep)
		b.WriteString(escapeField(v))
	}
	return b.String()
}

// EncodeFinish renders a finish record line.
func EncodeFinish(finishTime time.Time) string {
	return fmt.Sprintf("finish%stime=%s", fieldSep, finishTime.Format(time.RFC3339))
}

// EncodeInclude renders an include record line pointing at path.
func EncodeInclude(path string) string {
	return fmt.Sprintf("include%spath=%s", fieldSep, escapeField(path))
}

// ParseLine parses one journal line into a Record. It returns an error only
// for a line that cannot be interpreted as any known record kind; a line
// of a known kind with missing fields parses without error, its missing
// fields left at their zero values.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(line, fieldSep)
	if len(fields) == 0 || fields[0] == "" {
		return Record{}, fmt.Errorf("journal: empty record")
	}

	kind := RecordKind(fields[0])
	kv := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		parts := strings.SplitN(f, kvSep, 2)
		if len(parts) != 2 {
			continue
		}
		kv[parts[0]] = unescapeField(parts[1])
	}

	switch kind {
	case KindStart:
		rec := Record{Kind: KindStart}
		if id, err := uuid.Parse(kv["runid"]); err == nil {
			rec.RunID = id
		}
		if t, err := time.Parse(time.RFC3339, kv["rundate"]); err == nil {
			rec.RunDate = t
		}
		return rec, nil
	case KindTest:
		rec := Record{Kind: KindTest, TestID: kv["testid"], Status: kv["status"], Attrs: kv}
		delete(rec.Attrs, "testid")
		delete(rec.Attrs, "status")
		return rec, nil
	case KindFinish:
		rec := Record{Kind: KindFinish}
		if t, err := time.Parse(time.RFC3339, kv["time"]); err == nil {
			rec.FinishTime = t
		}
		return rec, nil
	case KindInclude:
		return Record{Kind: KindInclude, IncludePath: kv["path"]}, nil
	default:
		return Record{}, fmt.Errorf("journal: unknown record kind %q", kind)
	}
}
