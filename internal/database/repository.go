package database

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownRecord indicates a mark/revert against a (session, student)
	// pair that was never seeded. The ledger keyspace is fixed at session
	// creation, so this is an integrity error, never an implicit insert.
	ErrUnknownRecord = errors.New("unknown attendance record")

	// ErrDuplicate indicates a unique constraint violation
	// (registration number, email, or course code already taken).
	ErrDuplicate = errors.New("already exists")
)

// StudentReader provides read access to students.
type StudentReader interface {
	// Get retrieves a student by ID, returns ErrNotFound if missing.
	Get(ctx context.Context, id int64) (*Student, error)
	// GetByRegistration retrieves a student by registration number.
	GetByRegistration(ctx context.Context, regNumber string) (*Student, error)
	// List returns active students, optionally filtered by normalized name /
	// registration substring search and course.
	List(ctx context.Context, search string, courseID int64) ([]Student, error)
	// ListActiveByCourse returns active students of a course ordered by
	// ascending ID. This ordering is what makes match tie-breaks reproducible.
	ListActiveByCourse(ctx context.Context, courseID int64) ([]Student, error)
	// ListWithSignature returns every active student that has a stored
	// signature, across all courses. Used by the duplicate-enrollment index.
	ListWithSignature(ctx context.Context) ([]Student, error)
	// Count returns the number of active students.
	Count(ctx context.Context) (int, error)
}

// StudentWriter provides write access to students.
type StudentWriter interface {
	StudentReader

	// Create inserts a new student and returns it with its assigned ID.
	Create(ctx context.Context, s *Student) (*Student, error)
	// UpdateSignature replaces the stored signature of a student.
	UpdateSignature(ctx context.Context, id int64, encoded string) error
	// Deactivate soft-deletes a student. Existing attendance records stay.
	Deactivate(ctx context.Context, id int64) error
}

// CourseReader provides read access to courses.
type CourseReader interface {
	Get(ctx context.Context, id int64) (*Course, error)
	GetByCode(ctx context.Context, code string) (*Course, error)
	List(ctx context.Context) ([]Course, error)
	Count(ctx context.Context) (int, error)
}

// CourseWriter provides write access to courses.
type CourseWriter interface {
	CourseReader

	Create(ctx context.Context, c *Course) (*Course, error)
}

// SessionRepository manages sessions and their fixed record sets.
type SessionRepository interface {
	// Create inserts a session and seeds one absent/system attendance record
	// per given student, atomically with respect to readers.
	Create(ctx context.Context, s *Session, studentIDs []int64) (*Session, error)
	// Get retrieves a session by ID, returns ErrNotFound if missing.
	Get(ctx context.Context, id int64) (*Session, error)
	// GetByUID retrieves a session by its public UID.
	GetByUID(ctx context.Context, uid string) (*Session, error)
	// List returns sessions, newest first, optionally filtered by course
	// and/or date.
	List(ctx context.Context, courseID int64, date time.Time) ([]Session, error)
	// Delete removes a session and cascades to its attendance records. This
	// cascade is the only path that ever deletes attendance records.
	Delete(ctx context.Context, id int64) error
	// CountForCourse returns the number of sessions for a course
	// (all sessions when courseID is 0).
	CountForCourse(ctx context.Context, courseID int64) (int, error)
	// CountToday returns the number of sessions dated today.
	CountToday(ctx context.Context) (int, error)
}

// AttendanceLedger is the durable store of attendance records. All mutations
// provide atomic check-and-transition semantics per (session, student) key;
// BulkSetManual is additionally atomic over the whole session.
type AttendanceLedger interface {
	// Get retrieves one record, returns ErrUnknownRecord if the pair was
	// never seeded.
	Get(ctx context.Context, sessionID, studentID int64) (*AttendanceRecord, error)
	// ListBySession returns all records of a session ordered by student ID.
	ListBySession(ctx context.Context, sessionID int64) ([]AttendanceRecord, error)
	// Mark transitions a record from absent to present. The transition is
	// atomic: of N concurrent calls for the same pair exactly one observes
	// transitioned == true, the rest get the already-present record back with
	// transitioned == false and no fields overwritten. Confidence is only
	// stored for biometric provenance. Returns ErrUnknownRecord for unseeded
	// pairs.
	Mark(ctx context.Context, sessionID, studentID int64, prov Provenance, confidence *float64, evidenceRef string) (rec *AttendanceRecord, transitioned bool, err error)
	// Revert moves a record back to absent with faculty provenance and clears
	// confidence and evidence. Idempotent on already-absent records.
	Revert(ctx context.Context, sessionID, studentID int64) (*AttendanceRecord, error)
	// BulkSetManual rewrites the whole session in one transaction: students
	// in presentIDs become present, everyone else absent, all with faculty
	// provenance. This is the only bulk path from present back to absent.
	BulkSetManual(ctx context.Context, sessionID int64, presentIDs []int64) error
	// Summary derives the attendance breakdown for a session.
	Summary(ctx context.Context, sessionID int64) (*Summary, error)
	// CountPresent returns the number of present records for a student,
	// optionally restricted to one course (courseID 0 means all).
	CountPresent(ctx context.Context, studentID, courseID int64) (int, error)
	// Report returns records joined with session and student data.
	Report(ctx context.Context, filter ReportFilter) ([]ReportRow, error)
}
