// Package activity keeps an append-only CSV record of what changed the data
// root: imports, recurring materializations and template changes.
package activity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Actions recorded in the log.
const (
	ActionImport      = "import"
	ActionMaterialize = "materialize"
	ActionDeactivate  = "deactivate"
	ActionAddTemplate = "add_template"
)

// Entry is one row in the activity log.
type Entry struct {
	Timestamp time.Time
	Source    string // "cli", "api" or "scheduler"
	Action    string
	Subject   string // file name or template ID
	Count     int
	Details   string
}

// Header is the CSV header for activity-log.csv.
const Header = "timestamp,source,action,subject,count,details"

// File is the log path relative to the data root.
const File = "logs/activity-log.csv"

const (
	numFields    = 6
	colTimestamp = 0
	colSource    = 1
	colAction    = 2
	colSubject   = 3
	colCount     = 4
	colDetails   = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colSource] = e.Source
	row[colAction] = e.Action
	row[colSubject] = e.Subject
	row[colCount] = strconv.Itoa(e.Count)
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	count, err := strconv.Atoi(record[colCount])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing count %q: %w", record[colCount], err)
	}

	return Entry{
		Timestamp: ts,
		Source:    record[colSource],
		Action:    record[colAction],
		Subject:   record[colSubject],
		Count:     count,
		Details:   record[colDetails],
	}, nil
}

// Append writes entries to <root>/logs/activity-log.csv, creating the file
// and header if needed.
func Append(root string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	path := filepath.Join(root, File)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from the activity log, or nil if it does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, File))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// Filter returns the entries with the given action.
func Filter(entries []Entry, action string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
