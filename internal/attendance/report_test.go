package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/signature"
)

func TestLowAttendance_MeasuresAgainstOwnCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.courses.AddCourse(database.Course{ID: 1, Code: "CS101", Name: "Intro to CS"})
	env.courses.AddCourse(database.Course{ID: 2, Code: "MA201", Name: "Linear Algebra"})
	env.students.AddStudent(database.Student{
		ID: 1, Name: "Alice", RegistrationNumber: "R001", CourseID: 1, IsActive: true,
		Signature: signature.Encode(signature.Signature{0.3, 0, 0, 0}),
	})
	env.students.AddStudent(database.Student{
		ID: 2, Name: "Bob", RegistrationNumber: "R002", CourseID: 2, IsActive: true,
	})

	// Alice attends 1 of 2 CS101 sessions.
	for i := range 2 {
		session, err := env.service.CreateSession(ctx, 1, time.Now(), "lecture")
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if i == 0 {
			if _, _, err := env.service.Mark(ctx, session.ID, 1); err != nil {
				t.Fatalf("Mark failed: %v", err)
			}
		}
	}

	// Bob attends all 4 MA201 sessions. These sessions must not dilute
	// Alice's denominator.
	for range 4 {
		session, err := env.service.CreateSession(ctx, 2, time.Now(), "lecture")
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if _, _, err := env.service.Mark(ctx, session.ID, 2); err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
	}

	entries, err := env.service.LowAttendance(ctx, 75.0)
	if err != nil {
		t.Fatalf("LowAttendance failed: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 student below the cutoff, got %d", len(entries))
	}
	if entries[0].Student.ID != 1 {
		t.Errorf("expected Alice below the cutoff, got student %d", entries[0].Student.ID)
	}
	if entries[0].Percentage != 50.0 {
		t.Errorf("expected 50.0%% within her course, got %v", entries[0].Percentage)
	}
}
