package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/database"
)

// CourseRepository provides PostgreSQL-backed course storage.
type CourseRepository struct {
	pool *Pool
}

// NewCourseRepository creates a new PostgreSQL course repository.
func NewCourseRepository(pool *Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// Get retrieves a course by ID.
func (r *CourseRepository) Get(ctx context.Context, id int64) (*database.Course, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT id, code, name, faculty, created_at FROM courses WHERE id = $1", id)
	return scanCourseRow(row)
}

// GetByCode retrieves a course by its code.
func (r *CourseRepository) GetByCode(ctx context.Context, code string) (*database.Course, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT id, code, name, faculty, created_at FROM courses WHERE code = $1", code)
	return scanCourseRow(row)
}

// List returns all courses ordered by code.
func (r *CourseRepository) List(ctx context.Context) ([]database.Course, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, code, name, faculty, created_at FROM courses ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []database.Course
	for rows.Next() {
		var c database.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Faculty, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return courses, nil
}

// Count returns the number of courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM courses").Scan(&count); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

// Create inserts a new course and returns it with its assigned ID.
func (r *CourseRepository) Create(ctx context.Context, c *database.Course) (*database.Course, error) {
	created := *c
	err := r.pool.QueryRow(ctx,
		"INSERT INTO courses (code, name, faculty) VALUES ($1, $2, $3) RETURNING id, created_at",
		c.Code, c.Name, c.Faculty,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, database.ErrDuplicate
		}
		return nil, fmt.Errorf("insert course: %w", err)
	}
	return &created, nil
}

func scanCourseRow(row *sql.Row) (*database.Course, error) {
	var c database.Course
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Faculty, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan course: %w", err)
	}
	return &c, nil
}
