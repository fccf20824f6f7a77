package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/signature"
)

const studentColumns = `id, registration_number, name, email, phone,
	       COALESCE(course_id, 0), signature, is_active, created_at`

// StudentRepository provides PostgreSQL-backed student storage. Signatures
// are stored as pgvector values so neighbor searches can run in SQL.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Get retrieves a student by ID.
func (r *StudentRepository) Get(ctx context.Context, id int64) (*database.Student, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+studentColumns+" FROM students WHERE id = $1", id)
	return scanStudentRow(row)
}

// GetByRegistration retrieves a student by registration number.
func (r *StudentRepository) GetByRegistration(ctx context.Context, regNumber string) (*database.Student, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+studentColumns+" FROM students WHERE registration_number = $1", regNumber)
	return scanStudentRow(row)
}

// List returns active students, optionally filtered by a name / registration
// substring and course. Name matching is diacritics-insensitive: "novak"
// finds "Novák".
func (r *StudentRepository) List(ctx context.Context, search string, courseID int64) ([]database.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE is_active"
	var args []any

	if search != "" {
		args = append(args, "%"+signature.NormalizeName(search)+"%")
		query += fmt.Sprintf(` AND (LOWER(unaccent(name)) LIKE $%d
			OR LOWER(registration_number) LIKE $%d)`, len(args), len(args))
	}
	if courseID != 0 {
		args = append(args, courseID)
		query += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// ListActiveByCourse returns active students of a course ordered by ascending
// ID. Match tie-breaks depend on this ordering.
func (r *StudentRepository) ListActiveByCourse(ctx context.Context, courseID int64) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+studentColumns+" FROM students WHERE is_active AND course_id = $1 ORDER BY id", courseID)
	if err != nil {
		return nil, fmt.Errorf("query course students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// ListWithSignature returns every active student with a stored signature.
func (r *StudentRepository) ListWithSignature(ctx context.Context) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+studentColumns+" FROM students WHERE is_active AND signature IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query students with signature: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// Count returns the number of active students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students WHERE is_active").Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// Create inserts a new student and returns it with its assigned ID.
func (r *StudentRepository) Create(ctx context.Context, s *database.Student) (*database.Student, error) {
	vec, err := vectorOrNull(s.Signature)
	if err != nil {
		return nil, fmt.Errorf("encoding signature: %w", err)
	}

	query := `
		INSERT INTO students (registration_number, name, email, phone, course_id, signature, is_active)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, $7)
		RETURNING id, created_at
	`
	created := *s
	err = r.pool.QueryRow(ctx, query,
		s.RegistrationNumber, s.Name, s.Email, s.Phone, s.CourseID, vec, s.IsActive,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, database.ErrDuplicate
		}
		return nil, fmt.Errorf("insert student: %w", err)
	}
	return &created, nil
}

// UpdateSignature replaces the stored signature of a student.
func (r *StudentRepository) UpdateSignature(ctx context.Context, id int64, encoded string) error {
	vec, err := vectorOrNull(encoded)
	if err != nil {
		return fmt.Errorf("encoding signature: %w", err)
	}

	result, err := r.pool.Exec(ctx, "UPDATE students SET signature = $1 WHERE id = $2", vec, id)
	if err != nil {
		return fmt.Errorf("update signature: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update signature: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a student. Existing attendance records stay.
func (r *StudentRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "UPDATE students SET is_active = FALSE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// FindNearest returns up to limit active students whose signatures lie within
// maxDistance of the query, nearest first. Runs entirely in PostgreSQL using
// the pgvector L2 operator.
func (r *StudentRepository) FindNearest(
	ctx context.Context, query signature.Signature, limit int, maxDistance float64,
) ([]database.Neighbor, error) {
	vec := pgvector.NewVector([]float32(query))

	rows, err := r.pool.Query(ctx, `
		SELECT `+studentColumns+`, signature <-> $1 AS distance
		FROM students
		WHERE is_active AND signature IS NOT NULL AND signature <-> $1 <= $2
		ORDER BY distance
		LIMIT $3
	`, vec, maxDistance, limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest students: %w", err)
	}
	defer rows.Close()

	var neighbors []database.Neighbor
	for rows.Next() {
		var dist float64
		s, err := scanStudent(rows, &dist)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, database.Neighbor{Student: s, Distance: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearest students: %w", err)
	}
	return neighbors, nil
}

// vectorOrNull converts an encoded signature to a nullable pgvector value.
func vectorOrNull(encoded string) (any, error) {
	if encoded == "" {
		return nil, nil
	}
	sig, err := signature.Decode(encoded)
	if err != nil {
		return nil, err
	}
	return pgvector.NewVector([]float32(sig)), nil
}

// nullVector scans a nullable pgvector column.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

// scanStudent scans a single row, with optional extra scan destinations
// appended after the standard student columns (e.g., a distance column).
func scanStudent(scanner interface{ Scan(...any) error }, extraDest ...any) (*database.Student, error) {
	var s database.Student
	var vec nullVector

	dest := make([]any, 0, 9+len(extraDest))
	dest = append(dest,
		&s.ID,
		&s.RegistrationNumber,
		&s.Name,
		&s.Email,
		&s.Phone,
		&s.CourseID,
		&vec,
		&s.IsActive,
		&s.CreatedAt,
	)
	dest = append(dest, extraDest...)

	if err := scanner.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan student: %w", err)
	}
	if vec.valid {
		s.Signature = signature.Encode(signature.Signature(vec.vec.Slice()))
	}
	return &s, nil
}

func scanStudentRow(row *sql.Row) (*database.Student, error) {
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanStudents(rows *sql.Rows) ([]database.Student, error) {
	var students []database.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
