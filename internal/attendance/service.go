// Package attendance implements the check-in workflow: validate the scanned
// student ID, reconcile it against the roster, and merge the result into the
// attendance ledger.
package attendance

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"checkindesk/internal/ledger"
	"checkindesk/internal/roster"
)

// Code classifies a workflow outcome.
type Code string

const (
	CodeOK              Code = "OK"
	CodeAlreadyRecorded Code = "ALREADY_RECORDED"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidDay      Code = "INVALID_DAY"
	CodeNotFound        Code = "NOT_FOUND"
	CodePersistError    Code = "PERSIST_ERROR"
	CodeStorageError    Code = "STORAGE_ERROR"
)

// Result is the structured outcome of one scan.
type Result struct {
	Code           Code
	Success        bool
	AlreadyScanned bool
	StudentName    string
	Timestamp      string
	Message        string
	Err            error
}

// Student IDs are an uppercase M followed by eight digits. Case is not
// normalized; a lowercase scan is rejected as malformed.
var studentIDPattern = regexp.MustCompile(`^M\d{8}$`)

// Service runs the attendance workflow against the roster and ledger stores.
type Service struct {
	roster *roster.Store
	ledger *ledger.Store
	now    func() time.Time
}

// NewService creates a workflow service. A nil now defaults to time.Now.
func NewService(r *roster.Store, l *ledger.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{roster: r, ledger: l, now: now}
}

// Record validates rawID and stamps the requested day in the ledger.
// The first successful scan for a day wins permanently; a repeat scan is an
// idempotent no-op reporting the original timestamp.
func (s *Service) Record(rawID string, day int) Result {
	if rawID == "" {
		return Result{Code: CodeInvalidInput, Message: "Invalid student ID"}
	}

	id := strings.TrimSpace(rawID)
	if !studentIDPattern.MatchString(id) {
		return Result{Code: CodeInvalidFormat, Message: "Invalid Student ID format. Must be M followed by 8 digits."}
	}

	if day != 1 && day != 2 {
		return Result{Code: CodeInvalidDay, Message: "Day must be 1 or 2"}
	}

	students, err := s.roster.Load()
	if err != nil {
		return Result{Code: CodeStorageError, Message: "Failed to read student data", Err: err}
	}

	student, ok := students[id]
	if !ok {
		return Result{Code: CodeNotFound, Message: fmt.Sprintf("Student ID %s not found in database.", id)}
	}

	records, err := s.ledger.Load()
	if err != nil {
		return Result{Code: CodeStorageError, Message: "Failed to read attendance data", Err: err}
	}

	name := student.DisplayName()
	timestamp := s.now().Format("2006-01-02 15:04:05")

	rec, exists := records[id]
	if exists {
		if existing := rec.Day(day); existing != "" {
			return Result{
				Code:           CodeAlreadyRecorded,
				Success:        true,
				AlreadyScanned: true,
				StudentName:    name,
				Timestamp:      existing,
				Message:        fmt.Sprintf("%s was already scanned for Day %d at %s.", name, day, existing),
			}
		}
		rec.SetDay(day, timestamp)
	} else {
		rec = ledger.Record{
			StudentID:   student.ID,
			FirstName:   student.FirstName,
			LastName:    student.LastName,
			YearOfStudy: student.YearOfStudy,
			Programme:   student.Programme,
			Email:       student.Email,
			Phone:       student.Phone,
			Nationality: student.Nationality,
		}
		rec.SetDay(day, timestamp)
	}
	records[id] = rec

	// Persist the whole mapping; on failure the in-memory change is simply
	// discarded since the ledger is reloaded fresh on the next scan.
	if err := s.ledger.Save(records); err != nil {
		return Result{Code: CodePersistError, Message: "Failed to save attendance data", Err: err}
	}

	return Result{
		Code:        CodeOK,
		Success:     true,
		StudentName: name,
		Timestamp:   timestamp,
		Message:     fmt.Sprintf("Attendance recorded for %s on Day %d.", name, day),
	}
}
