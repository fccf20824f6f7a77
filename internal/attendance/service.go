// Package attendance implements the attendance core: session creation with a
// fixed roster snapshot, the absent/present state machine over the ledger,
// and the recognition flow that feeds biometric matches into it.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/match"
	"github.com/kozaktomas/roll-call/internal/signature"
)

// EmbeddingProvider computes a face signature from a probe image. The
// production implementation is embedding.Client.
type EmbeddingProvider interface {
	ComputeSignature(ctx context.Context, imageData []byte) (signature.Signature, error)
}

// EvidenceSink persists a probe image and returns an opaque reference.
// Evidence storage is best-effort: attendance transitions never wait on it.
type EvidenceSink interface {
	Save(ctx context.Context, sessionID, studentID int64, capturedAt time.Time, imageData []byte) (string, error)
}

// Service is the session coordinator. It owns session creation and routes
// recognition and manual events through the matching engine into the ledger.
type Service struct {
	students database.StudentWriter
	courses  database.CourseWriter
	sessions database.SessionRepository
	ledger   database.AttendanceLedger
	engine   *match.Engine
	embedder EmbeddingProvider
	evidence EvidenceSink             // optional
	dupIndex *database.DuplicateIndex // optional
	dim      int
	now      func() time.Time
}

// NewService wires the attendance service. evidence and dupIndex may be nil.
func NewService(
	students database.StudentWriter,
	courses database.CourseWriter,
	sessions database.SessionRepository,
	ledger database.AttendanceLedger,
	engine *match.Engine,
	embedder EmbeddingProvider,
	evidence EvidenceSink,
	dupIndex *database.DuplicateIndex,
	dim int,
) *Service {
	return &Service{
		students: students,
		courses:  courses,
		sessions: sessions,
		ledger:   ledger,
		engine:   engine,
		embedder: embedder,
		evidence: evidence,
		dupIndex: dupIndex,
		dim:      dim,
		now:      time.Now,
	}
}

// CreateSession creates a session for a course and seeds one absent/system
// record per active enrolled student. The roster is snapshotted here: later
// enrollment changes never touch this session's records.
func (s *Service) CreateSession(ctx context.Context, courseID int64, date time.Time, sessionType string) (*database.Session, error) {
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		return nil, fmt.Errorf("loading course %d: %w", courseID, err)
	}

	students, err := s.students.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("snapshotting roster: %w", err)
	}

	studentIDs := make([]int64, len(students))
	for i, st := range students {
		studentIDs[i] = st.ID
	}

	session := &database.Session{
		UID:         uuid.NewString(),
		CourseID:    courseID,
		SessionDate: date,
		SessionType: sessionType,
	}

	created, err := s.sessions.Create(ctx, session, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return created, nil
}

// Mark marks a single student present on behalf of teaching staff.
// Returns the record and whether this call performed the transition
// (false means the student was already present).
func (s *Service) Mark(ctx context.Context, sessionID, studentID int64) (*database.AttendanceRecord, bool, error) {
	rec, transitioned, err := s.ledger.Mark(ctx, sessionID, studentID, database.ProvenanceFaculty, nil, "")
	if err != nil {
		return nil, false, fmt.Errorf("marking student %d in session %d: %w", studentID, sessionID, err)
	}
	return rec, transitioned, nil
}

// Revert moves a student back to absent. Faculty-only.
func (s *Service) Revert(ctx context.Context, sessionID, studentID int64) (*database.AttendanceRecord, error) {
	rec, err := s.ledger.Revert(ctx, sessionID, studentID)
	if err != nil {
		return nil, fmt.Errorf("reverting student %d in session %d: %w", studentID, sessionID, err)
	}
	return rec, nil
}

// BulkSetManual rewrites attendance for the whole session: students in
// presentIDs become present, everyone else absent, all faculty provenance.
func (s *Service) BulkSetManual(ctx context.Context, sessionID int64, presentIDs []int64) error {
	if err := s.ledger.BulkSetManual(ctx, sessionID, presentIDs); err != nil {
		return fmt.Errorf("bulk marking session %d: %w", sessionID, err)
	}
	return nil
}

// GetSummary returns the derived attendance breakdown for a session.
func (s *Service) GetSummary(ctx context.Context, sessionID int64) (*database.Summary, error) {
	summary, err := s.ledger.Summary(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("summarizing session %d: %w", sessionID, err)
	}
	return summary, nil
}

// AttendancePercentage computes present/totalSessions*100 for a student,
// rounded to 2 decimals. courseID 0 considers all sessions. Returns 0 when
// no sessions exist.
func (s *Service) AttendancePercentage(ctx context.Context, studentID, courseID int64) (float64, error) {
	total, err := s.sessions.CountForCourse(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	if total == 0 {
		return 0, nil
	}

	present, err := s.ledger.CountPresent(ctx, studentID, courseID)
	if err != nil {
		return 0, fmt.Errorf("counting present records: %w", err)
	}

	return database.RoundPercent(float64(present) / float64(total) * 100), nil
}
