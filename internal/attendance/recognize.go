package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/embedding"
	"github.com/kozaktomas/roll-call/internal/match"
	"github.com/kozaktomas/roll-call/internal/signature"
)

// OutcomeKind classifies what a recognition attempt did. All kinds except
// OutcomeMarked leave the ledger untouched.
type OutcomeKind string

const (
	// OutcomeMarked - a student was recognized and transitioned to present.
	OutcomeMarked OutcomeKind = "marked"
	// OutcomeAlreadyPresent - recognized, but the student was present already;
	// the earlier record (and its confidence) is kept.
	OutcomeAlreadyPresent OutcomeKind = "already_present"
	// OutcomeNoFaceCandidate - the probe had zero or multiple faces.
	OutcomeNoFaceCandidate OutcomeKind = "no_face_candidate"
	// OutcomeNoStudentsEnrolled - the course roster is empty.
	OutcomeNoStudentsEnrolled OutcomeKind = "no_students_enrolled"
	// OutcomeNoCandidatesWithSignature - students exist but none has an
	// enrolled face signature.
	OutcomeNoCandidatesWithSignature OutcomeKind = "no_candidates_with_signature"
	// OutcomeNoMatch - nobody cleared the distance threshold.
	OutcomeNoMatch OutcomeKind = "no_match"
)

// RecognitionOutcome is the typed result of RecognizeAndMark. Expected
// matching-quality failures land here instead of in the error return.
type RecognitionOutcome struct {
	Kind        OutcomeKind
	Student     *database.Student // set for marked / already_present
	Confidence  float64           // set for marked
	Reason      string            // provider detail for no_face_candidate
	EvidenceRef string            // set when a probe image was stored
}

// RecognizeAndMark runs the full biometric flow for one probe image: compute
// the query signature, build the candidate set from the session's course
// roster, match, and apply the transition to the ledger.
//
// Expected outcomes (no face, empty roster, below threshold) come back as a
// RecognitionOutcome. Integrity failures - malformed stored signatures,
// dimension mismatches, an unseeded ledger key - come back as errors and are
// never downgraded to a no-match, so corrupted enrollment data cannot hide
// behind "not recognized".
func (s *Service) RecognizeAndMark(ctx context.Context, sessionID int64, imageData []byte) (*RecognitionOutcome, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %d: %w", sessionID, err)
	}

	query, err := s.embedder.ComputeSignature(ctx, imageData)
	if err != nil {
		if errors.Is(err, embedding.ErrNoFaceDetected) || errors.Is(err, embedding.ErrMultipleFacesDetected) {
			return &RecognitionOutcome{Kind: OutcomeNoFaceCandidate, Reason: err.Error()}, nil
		}
		return nil, fmt.Errorf("computing probe signature: %w", err)
	}

	candidates, outcome, err := s.buildCandidates(ctx, session.CourseID)
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return outcome, nil
	}

	result, err := s.engine.Match(query, candidates)
	if err != nil {
		return nil, fmt.Errorf("matching against course %d roster: %w", session.CourseID, err)
	}
	if !result.Matched {
		return &RecognitionOutcome{Kind: OutcomeNoMatch}, nil
	}

	student, err := s.students.Get(ctx, result.StudentID)
	if err != nil {
		return nil, fmt.Errorf("loading matched student %d: %w", result.StudentID, err)
	}

	// Evidence is best-effort: the transition must not depend on it.
	evidenceRef := ""
	if s.evidence != nil {
		evidenceRef, err = s.evidence.Save(ctx, sessionID, student.ID, s.now(), imageData)
		if err != nil {
			log.Printf("Warning: failed to store evidence for session %d student %d: %v", sessionID, student.ID, err)
			evidenceRef = ""
		}
	}

	confidence := result.Confidence
	rec, transitioned, err := s.ledger.Mark(ctx, sessionID, student.ID, database.ProvenanceBiometric, &confidence, evidenceRef)
	if err != nil {
		return nil, fmt.Errorf("marking matched student %d: %w", student.ID, err)
	}

	if !transitioned {
		return &RecognitionOutcome{Kind: OutcomeAlreadyPresent, Student: student, EvidenceRef: evidenceRef}, nil
	}
	return &RecognitionOutcome{
		Kind:        OutcomeMarked,
		Student:     student,
		Confidence:  confidence,
		EvidenceRef: rec.EvidenceRef,
	}, nil
}

// buildCandidates assembles the candidate set for a course: active students
// with a decodable signature, ordered by ascending student ID. A malformed
// stored signature aborts the whole attempt.
func (s *Service) buildCandidates(ctx context.Context, courseID int64) ([]match.Candidate, *RecognitionOutcome, error) {
	students, err := s.students.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading course %d roster: %w", courseID, err)
	}
	if len(students) == 0 {
		return nil, &RecognitionOutcome{Kind: OutcomeNoStudentsEnrolled}, nil
	}

	var candidates []match.Candidate
	for _, st := range students {
		if st.Signature == "" {
			continue // never enrolled a face; invisible to the engine
		}
		sig, err := signature.DecodeWithDim(st.Signature, s.dim)
		if err != nil {
			return nil, nil, fmt.Errorf("stored signature of student %d: %w", st.ID, err)
		}
		candidates = append(candidates, match.Candidate{StudentID: st.ID, Signature: sig})
	}
	if len(candidates) == 0 {
		return nil, &RecognitionOutcome{Kind: OutcomeNoCandidatesWithSignature}, nil
	}

	match.SortCandidates(candidates)
	return candidates, nil, nil
}
