package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

// MockSessionRepository is an in-memory database.SessionRepository. It seeds
// the attached MockLedger on Create and cascades deletes into it, mirroring
// the transactional behavior of the real backend.
type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[int64]*database.Session
	nextID   int64
	ledger   *MockLedger

	// Error injection
	CreateError error
}

// NewMockSessionRepository creates a session repository wired to a ledger.
func NewMockSessionRepository(ledger *MockLedger) *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[int64]*database.Session),
		nextID:   1,
		ledger:   ledger,
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, s *database.Session, studentIDs []int64) (*database.Session, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	copied := *s
	copied.ID = m.nextID
	copied.CreatedAt = time.Now()
	m.nextID++
	m.sessions[copied.ID] = &copied
	m.mu.Unlock()

	m.ledger.Seed(copied.ID, copied.CourseID, studentIDs)

	result := copied
	return &result, nil
}

func (m *MockSessionRepository) Get(ctx context.Context, id int64) (*database.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MockSessionRepository) GetByUID(ctx context.Context, uid string) (*database.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.UID == uid {
			copied := *s
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockSessionRepository) List(ctx context.Context, courseID int64, date time.Time) ([]database.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.Session
	for _, s := range m.sessions {
		if courseID != 0 && s.CourseID != courseID {
			continue
		}
		if !date.IsZero() && !sameDay(s.SessionDate, date) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SessionDate.After(result[j].SessionDate)
	})
	return result, nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return database.ErrNotFound
	}
	m.ledger.DeleteSession(id)
	return nil
}

func (m *MockSessionRepository) CountForCourse(ctx context.Context, courseID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if courseID == 0 {
		return len(m.sessions), nil
	}
	count := 0
	for _, s := range m.sessions {
		if s.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (m *MockSessionRepository) CountToday(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	now := time.Now()
	for _, s := range m.sessions {
		if sameDay(s.SessionDate, now) {
			count++
		}
	}
	return count, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
