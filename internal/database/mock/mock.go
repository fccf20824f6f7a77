// Package mock provides in-memory implementations of the database interfaces
// for testing. The ledger mock implements the same atomic check-and-transition
// semantics as the PostgreSQL backend, so concurrency tests are meaningful.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/signature"
)

// MockStudentRepository is an in-memory database.StudentWriter.
type MockStudentRepository struct {
	mu       sync.RWMutex
	students map[int64]*database.Student
	nextID   int64

	// Error injection
	GetError    error
	ListError   error
	CreateError error
}

// NewMockStudentRepository creates an empty student repository.
func NewMockStudentRepository() *MockStudentRepository {
	return &MockStudentRepository{
		students: make(map[int64]*database.Student),
		nextID:   1,
	}
}

// AddStudent seeds a student with an explicit ID.
func (m *MockStudentRepository) AddStudent(s database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = &s
	if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
}

func (m *MockStudentRepository) Get(ctx context.Context, id int64) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MockStudentRepository) GetByRegistration(ctx context.Context, regNumber string) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.RegistrationNumber == regNumber {
			copied := *s
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockStudentRepository) List(ctx context.Context, search string, courseID int64) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	normalized := signature.NormalizeName(search)
	var result []database.Student
	for _, s := range m.students {
		if !s.IsActive {
			continue
		}
		if courseID != 0 && s.CourseID != courseID {
			continue
		}
		if normalized != "" &&
			!strings.Contains(signature.NormalizeName(s.Name), normalized) &&
			!strings.Contains(strings.ToLower(s.RegistrationNumber), normalized) {
			continue
		}
		result = append(result, *s)
	}
	sortStudents(result)
	return result, nil
}

func (m *MockStudentRepository) ListActiveByCourse(ctx context.Context, courseID int64) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.Student
	for _, s := range m.students {
		if s.IsActive && s.CourseID == courseID {
			result = append(result, *s)
		}
	}
	sortStudents(result)
	return result, nil
}

func (m *MockStudentRepository) ListWithSignature(ctx context.Context) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.Student
	for _, s := range m.students {
		if s.IsActive && s.Signature != "" {
			result = append(result, *s)
		}
	}
	sortStudents(result)
	return result, nil
}

func (m *MockStudentRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.students {
		if s.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *MockStudentRepository) Create(ctx context.Context, s *database.Student) (*database.Student, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.students {
		// Email uniqueness only applies to non-empty emails, matching the
		// partial unique index of the postgres schema.
		if existing.RegistrationNumber == s.RegistrationNumber ||
			(s.Email != "" && existing.Email == s.Email) {
			return nil, database.ErrDuplicate
		}
	}

	copied := *s
	copied.ID = m.nextID
	copied.CreatedAt = time.Now()
	m.nextID++
	m.students[copied.ID] = &copied

	result := copied
	return &result, nil
}

func (m *MockStudentRepository) UpdateSignature(ctx context.Context, id int64, encoded string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return database.ErrNotFound
	}
	s.Signature = encoded
	return nil
}

func (m *MockStudentRepository) Deactivate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return database.ErrNotFound
	}
	s.IsActive = false
	return nil
}

func sortStudents(students []database.Student) {
	sort.Slice(students, func(i, j int) bool {
		return students[i].ID < students[j].ID
	})
}

// MockCourseRepository is an in-memory database.CourseWriter.
type MockCourseRepository struct {
	mu      sync.RWMutex
	courses map[int64]*database.Course
	nextID  int64
}

// NewMockCourseRepository creates an empty course repository.
func NewMockCourseRepository() *MockCourseRepository {
	return &MockCourseRepository{
		courses: make(map[int64]*database.Course),
		nextID:  1,
	}
}

// AddCourse seeds a course with an explicit ID.
func (m *MockCourseRepository) AddCourse(c database.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = &c
	if c.ID >= m.nextID {
		m.nextID = c.ID + 1
	}
}

func (m *MockCourseRepository) Get(ctx context.Context, id int64) (*database.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *MockCourseRepository) GetByCode(ctx context.Context, code string) (*database.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.courses {
		if c.Code == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockCourseRepository) List(ctx context.Context) ([]database.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Course, 0, len(m.courses))
	for _, c := range m.courses {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockCourseRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.courses), nil
}

func (m *MockCourseRepository) Create(ctx context.Context, c *database.Course) (*database.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.courses {
		if existing.Code == c.Code {
			return nil, database.ErrDuplicate
		}
	}

	copied := *c
	copied.ID = m.nextID
	copied.CreatedAt = time.Now()
	m.nextID++
	m.courses[copied.ID] = &copied

	result := copied
	return &result, nil
}
