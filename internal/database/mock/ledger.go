package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

type recordKey struct {
	sessionID int64
	studentID int64
}

// MockLedger is an in-memory database.AttendanceLedger with the same
// serialization guarantees as the real backend: one mutex per session, so
// concurrent marks for the same key race on a real lock and bulk updates are
// atomic at session granularity.
type MockLedger struct {
	mu            sync.Mutex // guards the maps below
	records       map[recordKey]*database.AttendanceRecord
	sessionLock   map[int64]*sync.Mutex
	sessionCourse map[int64]int64 // session ID -> course ID, for filtered queries

	// Error injection
	MarkError error
}

// NewMockLedger creates an empty ledger.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		records:       make(map[recordKey]*database.AttendanceRecord),
		sessionLock:   make(map[int64]*sync.Mutex),
		sessionCourse: make(map[int64]int64),
	}
}

// Seed creates the initial absent/system records for a session.
func (m *MockLedger) Seed(sessionID, courseID int64, studentIDs []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionCourse[sessionID] = courseID
	for _, id := range studentIDs {
		m.records[recordKey{sessionID, id}] = &database.AttendanceRecord{
			SessionID:  sessionID,
			StudentID:  id,
			Status:     database.StatusAbsent,
			Provenance: database.ProvenanceSystem,
			MarkedAt:   time.Now(),
		}
	}
}

// DeleteSession removes all records of a session (the cascade path).
func (m *MockLedger) DeleteSession(sessionID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.records {
		if key.sessionID == sessionID {
			delete(m.records, key)
		}
	}
	delete(m.sessionLock, sessionID)
	delete(m.sessionCourse, sessionID)
}

func (m *MockLedger) lockFor(sessionID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.sessionLock[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.sessionLock[sessionID] = lock
	}
	return lock
}

func (m *MockLedger) Get(ctx context.Context, sessionID, studentID int64) (*database.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey{sessionID, studentID}]
	if !ok {
		return nil, database.ErrUnknownRecord
	}
	copied := *rec
	return &copied, nil
}

func (m *MockLedger) ListBySession(ctx context.Context, sessionID int64) ([]database.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []database.AttendanceRecord
	for key, rec := range m.records {
		if key.sessionID == sessionID {
			result = append(result, *rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (m *MockLedger) Mark(ctx context.Context, sessionID, studentID int64, prov database.Provenance, confidence *float64, evidenceRef string) (*database.AttendanceRecord, bool, error) {
	if m.MarkError != nil {
		return nil, false, m.MarkError
	}

	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	// m.mu also covers the field writes: readers like ListBySession only
	// hold m.mu, not the session lock.
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey{sessionID, studentID}]
	if !ok {
		return nil, false, database.ErrUnknownRecord
	}

	if rec.Status == database.StatusPresent {
		copied := *rec
		return &copied, false, nil
	}

	rec.Status = database.StatusPresent
	rec.Provenance = prov
	rec.EvidenceRef = evidenceRef
	rec.MarkedAt = time.Now()
	if prov == database.ProvenanceBiometric && confidence != nil {
		c := *confidence
		rec.Confidence = &c
	} else {
		rec.Confidence = nil
	}

	copied := *rec
	return &copied, true, nil
}

func (m *MockLedger) Revert(ctx context.Context, sessionID, studentID int64) (*database.AttendanceRecord, error) {
	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey{sessionID, studentID}]
	if !ok {
		return nil, database.ErrUnknownRecord
	}

	rec.Status = database.StatusAbsent
	rec.Provenance = database.ProvenanceFaculty
	rec.Confidence = nil
	rec.EvidenceRef = ""
	rec.MarkedAt = time.Now()

	copied := *rec
	return &copied, nil
}

func (m *MockLedger) BulkSetManual(ctx context.Context, sessionID int64, presentIDs []int64) error {
	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	present := make(map[int64]struct{}, len(presentIDs))
	for _, id := range presentIDs {
		present[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, rec := range m.records {
		if key.sessionID != sessionID {
			continue
		}
		if _, ok := present[key.studentID]; ok {
			rec.Status = database.StatusPresent
		} else {
			rec.Status = database.StatusAbsent
		}
		rec.Provenance = database.ProvenanceFaculty
		rec.Confidence = nil
		rec.MarkedAt = time.Now()
	}
	return nil
}

func (m *MockLedger) Summary(ctx context.Context, sessionID int64) (*database.Summary, error) {
	records, err := m.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s := database.ComputeSummary(records)
	return &s, nil
}

func (m *MockLedger) CountPresent(ctx context.Context, studentID, courseID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key, rec := range m.records {
		if key.studentID != studentID || rec.Status != database.StatusPresent {
			continue
		}
		if courseID != 0 {
			if session, ok := m.sessionCourse[key.sessionID]; !ok || session != courseID {
				continue
			}
		}
		count++
	}
	return count, nil
}

func (m *MockLedger) Report(ctx context.Context, filter database.ReportFilter) ([]database.ReportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []database.ReportRow
	for key, rec := range m.records {
		if filter.StudentID != 0 && key.studentID != filter.StudentID {
			continue
		}
		if filter.CourseID != 0 {
			if course, ok := m.sessionCourse[key.sessionID]; !ok || course != filter.CourseID {
				continue
			}
		}
		rows = append(rows, database.ReportRow{Record: *rec})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Record.SessionID != rows[j].Record.SessionID {
			return rows[i].Record.SessionID < rows[j].Record.SessionID
		}
		return rows[i].Record.StudentID < rows[j].Record.StudentID
	})
	return rows, nil
}
