// Package sis reads rosters from a school information system over a
// read-only MySQL connection. It is used by the bulk import command only;
// nothing in the attendance flow ever talks to the SIS.
package sis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool manages a MySQL connection pool to the SIS.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new SIS connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("SIS DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SIS database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SIS database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing SIS connection: %w", err)
		}
	}
	return nil
}

// Enrollment is one student row from the SIS, keyed by registration number
// and the code of the course they are enrolled in.
type Enrollment struct {
	RegistrationNumber string
	Name               string
	Email              string
	Phone              string
	CourseCode         string
	CourseName         string
}

// ListEnrollments returns all active enrollments, optionally restricted to
// one course code.
func (p *Pool) ListEnrollments(ctx context.Context, courseCode string) ([]Enrollment, error) {
	query := `
		SELECT s.registration_number, s.full_name,
		       COALESCE(s.email, ''), COALESCE(s.phone, ''),
		       c.code, c.name
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		JOIN courses c ON c.id = e.course_id
		WHERE e.active = 1
	`
	var args []any
	if courseCode != "" {
		query += " AND c.code = ?"
		args = append(args, courseCode)
	}
	query += " ORDER BY c.code, s.registration_number"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []Enrollment
	for rows.Next() {
		var e Enrollment
		err := rows.Scan(&e.RegistrationNumber, &e.Name, &e.Email, &e.Phone, &e.CourseCode, &e.CourseName)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return enrollments, nil
}

// CountEnrollments returns the number of active enrollments, optionally
// restricted to one course code. Used to size import progress reporting.
func (p *Pool) CountEnrollments(ctx context.Context, courseCode string) (int, error) {
	query := "SELECT COUNT(*) FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE e.active = 1"
	var args []any
	if courseCode != "" {
		query += " AND c.code = ?"
		args = append(args, courseCode)
	}

	var count int
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}
