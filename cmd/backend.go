package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/database/postgres"
	"github.com/kozaktomas/roll-call/internal/embedding"
	"github.com/kozaktomas/roll-call/internal/evidence"
	"github.com/kozaktomas/roll-call/internal/match"
)

// backend bundles the wired storage and service layer shared by all
// commands that talk to the database.
type backend struct {
	cfg      *config.Config
	pool     *postgres.Pool
	students *postgres.StudentRepository
	courses  *postgres.CourseRepository
	sessions *postgres.SessionRepository
	ledger   *postgres.AttendanceRepository
	evidence *evidence.Store
	service  *attendance.Service
}

// openBackend connects to PostgreSQL, runs pending migrations, and wires the
// attendance service on top of the repositories.
func openBackend(cfg *config.Config) (*backend, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	b := &backend{
		cfg:      cfg,
		pool:     pool,
		students: postgres.NewStudentRepository(pool),
		courses:  postgres.NewCourseRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
	}
	b.ledger = postgres.NewAttendanceRepository(pool)

	if cfg.Evidence.Dir != "" {
		store, err := evidence.NewStore(cfg.Evidence.Dir, cfg.Evidence.MaxImageSize)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to open evidence store: %w", err)
		}
		b.evidence = store
	}

	embedder := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim)
	engine := match.NewEngine(cfg.Matching.Threshold)

	// The attendance service only writes to the evidence sink through the
	// interface; pass nil explicitly when storage is disabled so the nil
	// check inside the service works.
	var sink attendance.EvidenceSink
	if b.evidence != nil {
		sink = b.evidence
	}

	b.service = attendance.NewService(
		b.students, b.courses, b.sessions, b.ledger,
		engine, embedder, sink, database.NewDuplicateIndex(), cfg.Embedding.Dim,
	)
	return b, nil
}

func (b *backend) Close() {
	if err := b.pool.Close(); err != nil {
		fmt.Printf("Warning: failed to close database pool: %v\n", err)
	}
}
