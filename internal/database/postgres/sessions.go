package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

// SessionRepository provides PostgreSQL-backed session storage.
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a session and seeds one absent/system attendance record per
// given student. Both happen in one transaction so a session is never visible
// with a partial record set.
func (r *SessionRepository) Create(ctx context.Context, s *database.Session, studentIDs []int64) (*database.Session, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	created := *s
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sessions (uid, course_id, session_date, session_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, s.UID, s.CourseID, s.SessionDate, s.SessionType).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO attendance_records (session_id, student_id) VALUES ($1, $2)")
	if err != nil {
		return nil, fmt.Errorf("prepare record seed: %w", err)
	}
	defer stmt.Close()

	for _, studentID := range studentIDs {
		if _, err := stmt.ExecContext(ctx, created.ID, studentID); err != nil {
			return nil, fmt.Errorf("seed record for student %d: %w", studentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session: %w", err)
	}
	return &created, nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(ctx context.Context, id int64) (*database.Session, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT id, uid, course_id, session_date, session_type, created_at FROM sessions WHERE id = $1", id)
	return scanSessionRow(row)
}

// GetByUID retrieves a session by its public UID.
func (r *SessionRepository) GetByUID(ctx context.Context, uid string) (*database.Session, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT id, uid, course_id, session_date, session_type, created_at FROM sessions WHERE uid = $1", uid)
	return scanSessionRow(row)
}

// List returns sessions, newest first, optionally filtered by course and/or date.
func (r *SessionRepository) List(ctx context.Context, courseID int64, date time.Time) ([]database.Session, error) {
	query := "SELECT id, uid, course_id, session_date, session_type, created_at FROM sessions WHERE TRUE"
	var args []any

	if courseID != 0 {
		args = append(args, courseID)
		query += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	if !date.IsZero() {
		args = append(args, date)
		query += fmt.Sprintf(" AND session_date = $%d::date", len(args))
	}
	query += " ORDER BY session_date DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.Session
	for rows.Next() {
		var s database.Session
		if err := rows.Scan(&s.ID, &s.UID, &s.CourseID, &s.SessionDate, &s.SessionType, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session. Attendance records go with it via the schema's
// ON DELETE CASCADE.
func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// CountForCourse returns the number of sessions for a course (all sessions
// when courseID is 0).
func (r *SessionRepository) CountForCourse(ctx context.Context, courseID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM sessions WHERE $1 = 0 OR course_id = $1", courseID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// CountToday returns the number of sessions dated today.
func (r *SessionRepository) CountToday(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM sessions WHERE session_date = CURRENT_DATE").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count today's sessions: %w", err)
	}
	return count, nil
}

func scanSessionRow(row *sql.Row) (*database.Session, error) {
	var s database.Session
	err := row.Scan(&s.ID, &s.UID, &s.CourseID, &s.SessionDate, &s.SessionType, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}
