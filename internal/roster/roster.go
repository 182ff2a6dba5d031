// Package roster loads the read-only student roster from its CSV file and
// caches it in memory with a TTL. The roster is maintained out-of-band; this
// service never writes it.
package roster

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"
)

// Columns is the fixed roster CSV schema, in file order.
var Columns = []string{
	"Student ID",
	"First Name",
	"Last Name",
	"Year Of Study",
	"Degree Programme Title",
	"Mdx Email",
	"Mb Phone Number",
	"Nationality Description",
}

// Student is one roster row.
type Student struct {
	ID          string
	FirstName   string
	LastName    string
	YearOfStudy string
	Programme   string
	Email       string
	Phone       string
	Nationality string
}

// DisplayName returns the student's human-readable name.
func (s Student) DisplayName() string {
	return s.FirstName + " " + s.LastName
}

// Store reads the roster file, serving a cached copy within the TTL window.
type Store struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	cache    map[string]Student
	loadedAt time.Time
}

// NewStore creates a roster store for path. A nil now defaults to time.Now.
func NewStore(path string, ttl time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{path: path, ttl: ttl, now: now}
}

// Load returns the roster keyed by student ID. Within the TTL it returns the
// cached mapping without touching storage.
func (s *Store) Load() (map[string]Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && s.now().Sub(s.loadedAt) < s.ttl {
		return s.cache, nil
	}

	students, err := s.read()
	if err != nil {
		return nil, err
	}
	s.cache = students
	s.loadedAt = s.now()
	return students, nil
}

func (s *Store) read() (map[string]Student, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("roster %s: missing header row", s.path)
	}

	students := make(map[string]Student, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < len(Columns) {
			return nil, fmt.Errorf("roster %s: row %d has %d columns, want %d", s.path, i+2, len(row), len(Columns))
		}
		st := Student{
			ID:          row[0],
			FirstName:   row[1],
			LastName:    row[2],
			YearOfStudy: row[3],
			Programme:   row[4],
			Email:       row[5],
			Phone:       row[6],
			Nationality: row[7],
		}
		students[st.ID] = st
	}
	return students, nil
}
