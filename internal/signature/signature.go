// Package signature handles biometric face signatures: fixed-length embedding
// vectors produced by the external embedding service, their textual storage
// encoding, and the distance metric used for matching.
package signature

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMalformedSignature indicates a stored signature that cannot be decoded.
	// This is a data integrity problem (the student must re-enroll), distinct
	// from a student simply having no signature on file.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrDimensionMismatch indicates two signatures of different lengths were
	// compared. Signatures from different embedding models are not comparable,
	// so this is a configuration error rather than a no-match.
	ErrDimensionMismatch = errors.New("signature dimension mismatch")
)

// Signature is a fixed-length face embedding vector.
type Signature []float32

// Dim returns the dimensionality of the signature.
func (s Signature) Dim() int {
	return len(s)
}

// Encode serializes a signature as comma-separated decimal values.
// The encoding is locale-independent and lossless: Decode(Encode(s)) == s.
func Encode(sig Signature) string {
	if len(sig) == 0 {
		return ""
	}
	parts := make([]string, len(sig))
	for i, v := range sig {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

// Decode parses a stored signature string.
// Returns ErrMalformedSignature on empty input, non-numeric tokens, or
// non-finite values. A malformed signature must never be silently treated as
// "no signature" - callers surface it so corrupted enrollments can be fixed.
func Decode(s string) (Signature, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedSignature)
	}

	parts := strings.Split(s, ",")
	sig := make(Signature, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d: %q", ErrMalformedSignature, i, part)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: token %d is not finite", ErrMalformedSignature, i)
		}
		sig[i] = float32(v)
	}
	return sig, nil
}

// DecodeWithDim parses a stored signature and enforces its dimensionality.
func DecodeWithDim(s string, dim int) (Signature, error) {
	sig, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if sig.Dim() != dim {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, sig.Dim(), dim)
	}
	return sig, nil
}

// EuclideanDistance computes the Euclidean distance between two signatures.
// Both must have the same non-zero dimensionality.
func EuclideanDistance(a, b Signature) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty signatures", ErrMalformedSignature)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Confidence converts a face distance into a percentage in [0, 100].
// Lower distance means higher confidence. Distances above 1 (possible with
// some embedding models) clamp to 0 instead of going negative.
func Confidence(distance float64) float64 {
	c := math.Round((1-distance)*100*100) / 100
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
