package attendance

import (
	"context"
	"fmt"
	"log"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/signature"
)

// How many near neighbors the duplicate check considers.
const dupSearchLimit = 5

// EnrollResult is the outcome of a successful enrollment.
type EnrollResult struct {
	Student *database.Student
	// PossibleDuplicates lists already-enrolled students whose signatures
	// are suspiciously close to the new one. Advisory only - enrollment
	// still succeeds and staff decide what to do.
	PossibleDuplicates []database.Neighbor
}

// EnrollStudent registers a student together with their face signature.
// The embedding service is invoked synchronously as part of this call and
// its failure fails the enrollment - there is no deferred or background
// signature computation.
func (s *Service) EnrollStudent(ctx context.Context, student *database.Student, photo []byte) (*EnrollResult, error) {
	sig, err := s.embedder.ComputeSignature(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("computing enrollment signature: %w", err)
	}

	var duplicates []database.Neighbor
	if s.dupIndex != nil && s.dupIndex.Count() > 0 {
		duplicates, err = s.dupIndex.Search(sig, dupSearchLimit, s.engine.Threshold)
		if err != nil {
			log.Printf("Warning: duplicate check failed: %v", err)
			duplicates = nil
		}
	}

	student.Signature = signature.Encode(sig)
	student.IsActive = true

	created, err := s.students.Create(ctx, student)
	if err != nil {
		return nil, fmt.Errorf("creating student: %w", err)
	}

	if s.dupIndex != nil {
		if err := s.dupIndex.Add(created); err != nil {
			log.Printf("Warning: failed to index signature of student %d: %v", created.ID, err)
		}
	}

	return &EnrollResult{Student: created, PossibleDuplicates: duplicates}, nil
}

// ReenrollFace replaces the stored signature of an existing student, used
// when the original enrollment data turns out corrupted or outdated.
func (s *Service) ReenrollFace(ctx context.Context, studentID int64, photo []byte) (*database.Student, error) {
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("loading student %d: %w", studentID, err)
	}

	sig, err := s.embedder.ComputeSignature(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("computing enrollment signature: %w", err)
	}

	encoded := signature.Encode(sig)
	if err := s.students.UpdateSignature(ctx, studentID, encoded); err != nil {
		return nil, fmt.Errorf("updating signature of student %d: %w", studentID, err)
	}
	student.Signature = encoded

	if s.dupIndex != nil {
		if err := s.dupIndex.Add(student); err != nil {
			log.Printf("Warning: failed to reindex signature of student %d: %v", studentID, err)
		}
	}
	return student, nil
}

// BuildDuplicateIndex (re)builds the school-wide duplicate-detection index
// from every stored signature. Call at startup and after bulk imports.
func (s *Service) BuildDuplicateIndex(ctx context.Context) (int, error) {
	if s.dupIndex == nil {
		return 0, nil
	}

	students, err := s.students.ListWithSignature(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading signatures: %w", err)
	}
	if err := s.dupIndex.Build(students); err != nil {
		return 0, fmt.Errorf("building duplicate index: %w", err)
	}
	return s.dupIndex.Count(), nil
}
