package match

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/kozaktomas/roll-call/internal/signature"
)

// vectorAtDistance builds a 4-dim signature at the given Euclidean distance
// from the zero vector.
func vectorAtDistance(d float64) signature.Signature {
	return signature.Signature{float32(d), 0, 0, 0}
}

var zeroQuery = signature.Signature{0, 0, 0, 0}

func TestMatch_EmptyCandidates(t *testing.T) {
	engine := NewEngine(0.6)

	result, err := engine.Match(zeroQuery, nil)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Matched {
		t.Error("expected no match for empty candidate set")
	}
}

func TestMatch_ExactMatch(t *testing.T) {
	engine := NewEngine(0.6)
	candidates := []Candidate{
		{StudentID: 7, Signature: signature.Signature{0.25, -0.5, 0.125, 0.75}},
	}

	result, err := engine.Match(signature.Signature{0.25, -0.5, 0.125, 0.75}, candidates)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if !result.Matched {
		t.Fatal("expected a match for identical signatures")
	}
	if result.StudentID != 7 {
		t.Errorf("expected student 7, got %d", result.StudentID)
	}
	if result.Distance != 0 {
		t.Errorf("expected distance 0, got %v", result.Distance)
	}
	if result.Confidence != 100 {
		t.Errorf("expected confidence 100, got %v", result.Confidence)
	}
}

func TestMatch_BestOfSeveral(t *testing.T) {
	// Scenario from the attendance flow: Alice close (0.3), Bob far (0.9).
	engine := NewEngine(0.6)
	candidates := []Candidate{
		{StudentID: 1, Signature: vectorAtDistance(0.3)}, // Alice
		{StudentID: 2, Signature: vectorAtDistance(0.9)}, // Bob
	}

	result, err := engine.Match(zeroQuery, candidates)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if !result.Matched || result.StudentID != 1 {
		t.Fatalf("expected student 1 to match, got %+v", result)
	}
	if math.Abs(result.Confidence-70.0) > 1e-9 {
		t.Errorf("expected confidence 70.0, got %v", result.Confidence)
	}
}

func TestMatch_NobodyUnderThreshold(t *testing.T) {
	engine := NewEngine(0.6)
	candidates := []Candidate{
		{StudentID: 1, Signature: vectorAtDistance(0.7)},
		{StudentID: 2, Signature: vectorAtDistance(0.61)},
	}

	result, err := engine.Match(zeroQuery, candidates)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Matched {
		t.Errorf("expected no match, got student %d", result.StudentID)
	}
}

func TestMatch_ThresholdIsInclusive(t *testing.T) {
	// 0.5 is exact in float32, so the computed distance equals the
	// threshold instead of landing a rounding error above it.
	engine := NewEngine(0.5)
	candidates := []Candidate{
		{StudentID: 1, Signature: vectorAtDistance(0.5)},
	}

	result, err := engine.Match(zeroQuery, candidates)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !result.Matched {
		t.Error("expected a candidate exactly at the threshold to match")
	}
}

func TestMatch_TieBreakLowestStudentID(t *testing.T) {
	engine := NewEngine(0.6)
	sig := vectorAtDistance(0.4)
	candidates := []Candidate{
		{StudentID: 42, Signature: sig},
		{StudentID: 7, Signature: sig},
	}
	SortCandidates(candidates)

	result, err := engine.Match(zeroQuery, candidates)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.StudentID != 7 {
		t.Errorf("tie must resolve to the lowest student ID, got %d", result.StudentID)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	engine := NewEngine(0.6)
	candidates := []Candidate{
		{StudentID: 1, Signature: vectorAtDistance(0.2)},
		{StudentID: 2, Signature: vectorAtDistance(0.2)},
		{StudentID: 3, Signature: vectorAtDistance(0.5)},
	}
	SortCandidates(candidates)

	first, err := engine.Match(zeroQuery, candidates)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	for range 50 {
		again, err := engine.Match(zeroQuery, candidates)
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if again != first {
			t.Fatalf("non-deterministic result: %+v vs %+v", first, again)
		}
	}
}

func TestMatch_DimensionMismatchIsError(t *testing.T) {
	engine := NewEngine(0.6)
	candidates := []Candidate{
		{StudentID: 1, Signature: signature.Signature{0.1, 0.2}},
	}

	_, err := engine.Match(zeroQuery, candidates)
	if !errors.Is(err, signature.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMatch_DistanceAboveOne(t *testing.T) {
	// Wide-open threshold: a match at distance > 1 must floor confidence at 0.
	engine := NewEngine(2.0)
	candidates := []Candidate{
		{StudentID: 1, Signature: vectorAtDistance(1.5)},
	}

	result, err := engine.Match(zeroQuery, candidates)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !result.Matched {
		t.Fatal("expected a match")
	}
	if result.Confidence != 0 {
		t.Errorf("expected confidence floor 0, got %v", result.Confidence)
	}
}

func TestMatch_ConcurrentCalls(t *testing.T) {
	engine := NewEngine(0.6)
	candidates := []Candidate{
		{StudentID: 1, Signature: vectorAtDistance(0.3)},
		{StudentID: 2, Signature: vectorAtDistance(0.5)},
	}
	SortCandidates(candidates)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := engine.Match(zeroQuery, candidates)
			if err != nil {
				t.Errorf("Match failed: %v", err)
				return
			}
			if result.StudentID != 1 {
				t.Errorf("expected student 1, got %d", result.StudentID)
			}
		}()
	}
	wg.Wait()
}

func TestNewEngine_DefaultThreshold(t *testing.T) {
	engine := NewEngine(0)
	if engine.Threshold != DefaultThreshold {
		t.Errorf("expected default threshold %v, got %v", DefaultThreshold, engine.Threshold)
	}
}

func TestSortCandidates(t *testing.T) {
	candidates := []Candidate{
		{StudentID: 30},
		{StudentID: 10},
		{StudentID: 20},
	}
	SortCandidates(candidates)

	for i, want := range []int64{10, 20, 30} {
		if candidates[i].StudentID != want {
			t.Errorf("position %d: expected student %d, got %d", i, want, candidates[i].StudentID)
		}
	}
}
