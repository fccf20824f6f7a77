//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/signature"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

// seedClass creates a course with two students and one session.
func seedClass(t *testing.T, pool *Pool) (courseID, sessionID int64, studentIDs []int64) {
	t.Helper()
	ctx := context.Background()

	courses := NewCourseRepository(pool)
	students := NewStudentRepository(pool)
	sessions := NewSessionRepository(pool)

	course, err := courses.Create(ctx, &database.Course{Code: "CS101", Name: "Intro to CS"})
	if err != nil {
		t.Fatalf("Failed to create course: %v", err)
	}

	sig := make(signature.Signature, 128)
	sig[0] = 0.3
	alice, err := students.Create(ctx, &database.Student{
		RegistrationNumber: "R001", Name: "Alice Nováková", CourseID: course.ID,
		Signature: signature.Encode(sig), IsActive: true,
	})
	if err != nil {
		t.Fatalf("Failed to create student: %v", err)
	}
	bob, err := students.Create(ctx, &database.Student{
		RegistrationNumber: "R002", Name: "Bob", CourseID: course.ID, IsActive: true,
	})
	if err != nil {
		t.Fatalf("Failed to create student: %v", err)
	}

	session, err := sessions.Create(ctx, &database.Session{
		UID: "sess-1", CourseID: course.ID, SessionDate: time.Now(), SessionType: "lecture",
	}, []int64{alice.ID, bob.ID})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	return course.ID, session.ID, []int64{alice.ID, bob.ID}
}

func TestStudentRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	_, _, studentIDs := seedClass(t, pool)
	repo := NewStudentRepository(pool)

	t.Run("GetRoundTripsSignature", func(t *testing.T) {
		got, err := repo.Get(ctx, studentIDs[0])
		if err != nil {
			t.Fatalf("Failed to get student: %v", err)
		}
		sig, err := signature.DecodeWithDim(got.Signature, 128)
		if err != nil {
			t.Fatalf("Stored signature does not decode: %v", err)
		}
		if sig[0] != 0.3 {
			t.Errorf("Expected signature[0] == 0.3, got %f", sig[0])
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, 9999)
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DuplicateRegistration", func(t *testing.T) {
		_, err := repo.Create(ctx, &database.Student{
			RegistrationNumber: "R001", Name: "Impostor", IsActive: true,
		})
		if !errors.Is(err, database.ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("DiacriticsInsensitiveSearch", func(t *testing.T) {
		found, err := repo.List(ctx, "novakova", 0)
		if err != nil {
			t.Fatalf("Failed to list students: %v", err)
		}
		if len(found) != 1 || found[0].Name != "Alice Nováková" {
			t.Errorf("Expected to find Alice Nováková, got %v", found)
		}
	})

	t.Run("FindNearest", func(t *testing.T) {
		query := make(signature.Signature, 128)
		query[0] = 0.31

		neighbors, err := repo.FindNearest(ctx, query, 5, 0.6)
		if err != nil {
			t.Fatalf("Failed to find nearest: %v", err)
		}
		if len(neighbors) != 1 {
			t.Fatalf("Expected 1 neighbor, got %d", len(neighbors))
		}
		if neighbors[0].Student.ID != studentIDs[0] {
			t.Errorf("Expected student %d, got %d", studentIDs[0], neighbors[0].Student.ID)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	courseID, sessionID, studentIDs := seedClass(t, pool)
	repo := NewAttendanceRepository(pool)

	t.Run("SeededAbsent", func(t *testing.T) {
		records, err := repo.ListBySession(ctx, sessionID)
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("Expected 2 seeded records, got %d", len(records))
		}
		for _, rec := range records {
			if rec.Status != database.StatusAbsent || rec.Provenance != database.ProvenanceSystem {
				t.Errorf("Unexpected seeded record: %+v", rec)
			}
		}
	})

	t.Run("MarkTransitionsOnce", func(t *testing.T) {
		c1 := 82.5
		rec, transitioned, err := repo.Mark(ctx, sessionID, studentIDs[0], database.ProvenanceBiometric, &c1, "ev.jpg")
		if err != nil {
			t.Fatalf("Failed to mark: %v", err)
		}
		if !transitioned {
			t.Fatal("Expected first mark to transition")
		}
		if rec.Confidence == nil || *rec.Confidence != 82.5 {
			t.Errorf("Expected confidence 82.5, got %v", rec.Confidence)
		}

		c2 := 60.0
		rec, transitioned, err = repo.Mark(ctx, sessionID, studentIDs[0], database.ProvenanceBiometric, &c2, "")
		if err != nil {
			t.Fatalf("Failed to re-mark: %v", err)
		}
		if transitioned {
			t.Error("Expected second mark to be a no-op")
		}
		if rec.Confidence == nil || *rec.Confidence != 82.5 {
			t.Errorf("Second mark overwrote confidence: %v", rec.Confidence)
		}
	})

	t.Run("ConcurrentMarks", func(t *testing.T) {
		var wg sync.WaitGroup
		transitions := make(chan bool, 16)

		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c := 70.0
				_, transitioned, err := repo.Mark(ctx, sessionID, studentIDs[1], database.ProvenanceBiometric, &c, "")
				if err != nil {
					t.Errorf("Failed to mark: %v", err)
					return
				}
				transitions <- transitioned
			}()
		}
		wg.Wait()
		close(transitions)

		count := 0
		for transitioned := range transitions {
			if transitioned {
				count++
			}
		}
		if count != 1 {
			t.Errorf("Expected exactly 1 transition, got %d", count)
		}
	})

	t.Run("UnknownRecord", func(t *testing.T) {
		_, _, err := repo.Mark(ctx, sessionID, 9999, database.ProvenanceFaculty, nil, "")
		if !errors.Is(err, database.ErrUnknownRecord) {
			t.Errorf("Expected ErrUnknownRecord, got %v", err)
		}
	})

	t.Run("BulkSetManual", func(t *testing.T) {
		if err := repo.BulkSetManual(ctx, sessionID, []int64{studentIDs[0]}); err != nil {
			t.Fatalf("Failed to bulk set: %v", err)
		}

		records, err := repo.ListBySession(ctx, sessionID)
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		for _, rec := range records {
			want := database.StatusAbsent
			if rec.StudentID == studentIDs[0] {
				want = database.StatusPresent
			}
			if rec.Status != want {
				t.Errorf("Student %d: expected %s, got %s", rec.StudentID, want, rec.Status)
			}
			if rec.Provenance != database.ProvenanceFaculty {
				t.Errorf("Student %d: expected faculty provenance, got %s", rec.StudentID, rec.Provenance)
			}
		}
	})

	t.Run("SummaryAndCount", func(t *testing.T) {
		summary, err := repo.Summary(ctx, sessionID)
		if err != nil {
			t.Fatalf("Failed to get summary: %v", err)
		}
		if summary.Total != 2 || summary.Present != 1 || summary.Percentage != 50.0 {
			t.Errorf("Unexpected summary: %+v", summary)
		}

		count, err := repo.CountPresent(ctx, studentIDs[0], courseID)
		if err != nil {
			t.Fatalf("Failed to count present: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 present record, got %d", count)
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		sessions := NewSessionRepository(pool)
		if err := sessions.Delete(ctx, sessionID); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := repo.Get(ctx, sessionID, studentIDs[0]); !errors.Is(err, database.ErrUnknownRecord) {
			t.Errorf("Expected records to cascade away, got %v", err)
		}
	})
}
