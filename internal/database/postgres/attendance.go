package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/roll-call/internal/database"
)

const recordColumns = `session_id, student_id, status, provenance, confidence,
	       evidence_ref, COALESCE(marked_at, 'epoch'::timestamptz)`

// AttendanceRepository provides PostgreSQL-backed attendance records. The
// absent-to-present transition is a single conditional UPDATE, so concurrent
// marks for the same (session, student) pair race inside the database and
// exactly one of them wins.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Get retrieves one record.
func (r *AttendanceRepository) Get(ctx context.Context, sessionID, studentID int64) (*database.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM attendance_records WHERE session_id = $1 AND student_id = $2",
		sessionID, studentID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrUnknownRecord
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListBySession returns all records of a session ordered by student ID.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID int64) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+recordColumns+" FROM attendance_records WHERE session_id = $1 ORDER BY student_id",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Mark transitions a record from absent to present. The WHERE clause only
// touches absent rows, so a record already present comes back unchanged with
// transitioned == false. Confidence is only stored for biometric provenance.
func (r *AttendanceRepository) Mark(
	ctx context.Context, sessionID, studentID int64,
	prov database.Provenance, confidence *float64, evidenceRef string,
) (*database.AttendanceRecord, bool, error) {
	if prov != database.ProvenanceBiometric {
		confidence = nil
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE attendance_records
		SET status = 'present', provenance = $3, confidence = $4, evidence_ref = $5, marked_at = NOW()
		WHERE session_id = $1 AND student_id = $2 AND status = 'absent'
		RETURNING `+recordColumns,
		sessionID, studentID, prov, confidence, evidenceRef)

	rec, err := scanRecord(row)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	// Nothing transitioned: either already present or never seeded.
	rec, err = r.Get(ctx, sessionID, studentID)
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// Revert moves a record back to absent with faculty provenance and clears
// confidence and evidence. Idempotent on already-absent records.
func (r *AttendanceRepository) Revert(ctx context.Context, sessionID, studentID int64) (*database.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE attendance_records
		SET status = 'absent', provenance = 'faculty', confidence = NULL, evidence_ref = '', marked_at = NOW()
		WHERE session_id = $1 AND student_id = $2
		RETURNING `+recordColumns,
		sessionID, studentID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrUnknownRecord
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// BulkSetManual rewrites the whole session in one transaction: students in
// presentIDs become present, everyone else absent, all with faculty
// provenance.
func (r *AttendanceRepository) BulkSetManual(ctx context.Context, sessionID int64, presentIDs []int64) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = CASE WHEN student_id = ANY($2) THEN 'present' ELSE 'absent' END,
		    provenance = 'faculty',
		    confidence = NULL,
		    evidence_ref = '',
		    marked_at = NOW()
		WHERE session_id = $1
	`, sessionID, pq.Array(presentIDs))
	if err != nil {
		return fmt.Errorf("bulk update records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk update: %w", err)
	}
	return nil
}

// Summary derives the attendance breakdown for a session.
func (r *AttendanceRepository) Summary(ctx context.Context, sessionID int64) (*database.Summary, error) {
	records, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := database.ComputeSummary(records)
	return &summary, nil
}

// CountPresent returns the number of present records for a student,
// optionally restricted to one course (courseID 0 means all).
func (r *AttendanceRepository) CountPresent(ctx context.Context, studentID, courseID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM attendance_records ar
		JOIN sessions s ON s.id = ar.session_id
		WHERE ar.student_id = $1 AND ar.status = 'present' AND ($2 = 0 OR s.course_id = $2)
	`, studentID, courseID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count present records: %w", err)
	}
	return count, nil
}

// Report returns records joined with session and student data.
func (r *AttendanceRepository) Report(ctx context.Context, filter database.ReportFilter) ([]database.ReportRow, error) {
	query := `
		SELECT ar.session_id, ar.student_id, ar.status, ar.provenance, ar.confidence,
		       ar.evidence_ref, COALESCE(ar.marked_at, 'epoch'::timestamptz),
		       s.uid, s.session_date, s.session_type, c.code, st.name
		FROM attendance_records ar
		JOIN sessions s ON s.id = ar.session_id
		JOIN courses c ON c.id = s.course_id
		JOIN students st ON st.id = ar.student_id
		WHERE TRUE
	`
	var args []any

	if filter.CourseID != 0 {
		args = append(args, filter.CourseID)
		query += fmt.Sprintf(" AND s.course_id = $%d", len(args))
	}
	if filter.StudentID != 0 {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND ar.student_id = $%d", len(args))
	}
	if !filter.DateFrom.IsZero() {
		args = append(args, filter.DateFrom)
		query += fmt.Sprintf(" AND s.session_date >= $%d::date", len(args))
	}
	if !filter.DateTo.IsZero() {
		args = append(args, filter.DateTo)
		query += fmt.Sprintf(" AND s.session_date <= $%d::date", len(args))
	}
	query += " ORDER BY s.session_date DESC, s.id DESC, ar.student_id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}
	defer rows.Close()

	var report []database.ReportRow
	for rows.Next() {
		var row database.ReportRow
		var confidence sql.NullFloat64
		err := rows.Scan(
			&row.Record.SessionID,
			&row.Record.StudentID,
			&row.Record.Status,
			&row.Record.Provenance,
			&confidence,
			&row.Record.EvidenceRef,
			&row.Record.MarkedAt,
			&row.SessionUID,
			&row.SessionDate,
			&row.SessionType,
			&row.CourseCode,
			&row.StudentName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		if confidence.Valid {
			row.Record.Confidence = &confidence.Float64
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return report, nil
}

func scanRecord(scanner interface{ Scan(...any) error }) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	var confidence sql.NullFloat64

	err := scanner.Scan(
		&rec.SessionID,
		&rec.StudentID,
		&rec.Status,
		&rec.Provenance,
		&confidence,
		&rec.EvidenceRef,
		&rec.MarkedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	if confidence.Valid {
		rec.Confidence = &confidence.Float64
	}
	return &rec, nil
}
