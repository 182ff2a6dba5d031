// Package ledger owns the attendance CSV: the mutable record of who checked
// in on which day. Reads parse the whole file; writes go through a temp file
// and an atomic rename so readers never observe a half-written ledger.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Columns is the fixed ledger CSV schema: the roster columns plus the two
// check-in timestamps.
var Columns = []string{
	"Student ID",
	"First Name",
	"Last Name",
	"Year Of Study",
	"Degree Programme Title",
	"Mdx Email",
	"Mb Phone Number",
	"Nationality Description",
	"Day1",
	"Day2",
}

// Record is one ledger row. Day1/Day2 hold check-in timestamps in
// "2006-01-02 15:04:05" form, or "" when the day has not been scanned.
type Record struct {
	StudentID   string
	FirstName   string
	LastName    string
	YearOfStudy string
	Programme   string
	Email       string
	Phone       string
	Nationality string
	Day1        string
	Day2        string
}

// Day returns the timestamp for day 1 or 2.
func (r Record) Day(day int) string {
	if day == 1 {
		return r.Day1
	}
	return r.Day2
}

// SetDay stamps the given day. Callers enforce first-scan-wins.
func (r *Record) SetDay(day int, ts string) {
	if day == 1 {
		r.Day1 = ts
	} else {
		r.Day2 = ts
	}
}

func (r Record) row() []string {
	return []string{
		r.StudentID, r.FirstName, r.LastName, r.YearOfStudy, r.Programme,
		r.Email, r.Phone, r.Nationality, r.Day1, r.Day2,
	}
}

// Store persists attendance records in a CSV file.
type Store struct {
	path string
}

// NewStore creates a ledger store for path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// EnsureFile creates parent directories and a header-only ledger when the
// file does not exist yet. Called once at startup.
func (s *Store) EnsureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat ledger: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}
	return s.write(nil)
}

// Load parses the full ledger file into a mapping keyed by student ID. The
// ledger is mutated frequently, so it is reloaded on every call rather than
// cached.
func (s *Store) Load() (map[string]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ledger %s: missing header row", s.path)
	}

	records := make(map[string]Record, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < len(Columns) {
			return nil, fmt.Errorf("ledger %s: row %d has %d columns, want %d", s.path, i+2, len(row), len(Columns))
		}
		rec := Record{
			StudentID:   row[0],
			FirstName:   row[1],
			LastName:    row[2],
			YearOfStudy: row[3],
			Programme:   row[4],
			Email:       row[5],
			Phone:       row[6],
			Nationality: row[7],
			Day1:        row[8],
			Day2:        row[9],
		}
		records[rec.StudentID] = rec
	}
	return records, nil
}

// Save serializes the full mapping back to storage. Rows are written in
// student-ID order so repeated saves of the same mapping are byte-identical.
// The update is not applied if Save returns an error.
func (s *Store) Save(records map[string]Record) error {
	return s.write(records)
}

// Raw returns the ledger file verbatim, for export.
func (s *Store) Raw() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return data, nil
}

func (s *Store) write(records map[string]Record) error {
	tmp := s.path + ".temp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		return fmt.Errorf("write ledger header: %w", err)
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := w.Write(records[id].row()); err != nil {
			f.Close()
			return fmt.Errorf("write ledger row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename ledger into place: %w", err)
	}
	return nil
}
