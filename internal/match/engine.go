// Package match implements the face matching engine: given one query
// signature and a candidate set, it decides which enrolled student (if any)
// the query belongs to. The engine is pure and safe for concurrent use.
package match

import (
	"fmt"
	"sort"

	"github.com/kozaktomas/roll-call/internal/signature"
)

// DefaultThreshold is the maximum face distance accepted as a match.
const DefaultThreshold = 0.6

// Candidate pairs a student identity with their stored signature.
type Candidate struct {
	StudentID int64
	Signature signature.Signature
}

// Result is the outcome of a match attempt. When Matched is false the query
// cleared no candidate; this is an expected outcome, not an error.
type Result struct {
	Matched    bool
	StudentID  int64
	Distance   float64
	Confidence float64 // percentage in [0, 100], rounded to 2 decimals
}

// Engine matches query signatures against candidate sets.
type Engine struct {
	Threshold float64
}

// NewEngine creates an engine with the given distance threshold.
// A non-positive threshold falls back to DefaultThreshold.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{Threshold: threshold}
}

// SortCandidates orders a candidate set by ascending student ID. This is the
// documented iteration order for the engine: with it, distance ties always
// resolve to the lowest student ID instead of map iteration luck.
func SortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StudentID < candidates[j].StudentID
	})
}

// Match finds the best matching candidate for the query signature.
//
// A candidate is accepted when its Euclidean distance to the query is at most
// the threshold. Among accepted candidates the one with the highest derived
// confidence wins; on an exact tie the first candidate in iteration order is
// kept. Candidates are evaluated in the order given - callers build candidate
// sets with SortCandidates so results are reproducible.
//
// An empty candidate set returns a no-match Result. A dimensionality mismatch
// between the query and any candidate returns an error: mixed dimensions mean
// misconfigured enrollment data and must not be masked as "not recognized".
func (e *Engine) Match(query signature.Signature, candidates []Candidate) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, nil
	}

	best := Result{}
	for _, c := range candidates {
		distance, err := signature.EuclideanDistance(query, c.Signature)
		if err != nil {
			return Result{}, fmt.Errorf("comparing against student %d: %w", c.StudentID, err)
		}

		if distance > e.Threshold {
			continue
		}

		confidence := signature.Confidence(distance)
		if !best.Matched || confidence > best.Confidence {
			best = Result{
				Matched:    true,
				StudentID:  c.StudentID,
				Distance:   distance,
				Confidence: confidence,
			}
		}
	}

	return best, nil
}
