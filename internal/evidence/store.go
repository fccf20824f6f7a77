// Package evidence stores captured probe images referenced by attendance
// records. The reference is opaque to the rest of the system; records stay
// valid even when the referenced file is missing.
package evidence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Store writes probe images to a directory on disk.
type Store struct {
	dir          string
	maxImageSize int
}

// NewStore creates a filesystem evidence store rooted at dir.
// maxImageSize is the longest allowed edge in pixels; larger probes are
// downscaled before writing.
func NewStore(dir string, maxImageSize int) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("evidence directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating evidence directory: %w", err)
	}
	if maxImageSize <= 0 {
		maxImageSize = 1024
	}
	return &Store{dir: dir, maxImageSize: maxImageSize}, nil
}

// Save re-encodes the probe as JPEG (downscaling if needed) and writes it
// under a unique name. Returns the opaque reference to store on the
// attendance record.
func (s *Store) Save(ctx context.Context, sessionID, studentID int64, capturedAt time.Time, imageData []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	encoded, err := reencodeJPEG(imageData, s.maxImageSize)
	if err != nil {
		return "", fmt.Errorf("processing evidence image: %w", err)
	}

	ref := fmt.Sprintf("%d_%d_%s_%s.jpg",
		sessionID, studentID, capturedAt.UTC().Format("20060102T150405"), uuid.NewString()[:8])

	if err := os.WriteFile(filepath.Join(s.dir, ref), encoded, 0o644); err != nil {
		return "", fmt.Errorf("writing evidence file: %w", err)
	}
	return ref, nil
}

// Open returns the stored image bytes for a reference.
func (s *Store) Open(ref string) ([]byte, error) {
	// References are generated by Save; reject anything path-like.
	if filepath.Base(ref) != ref {
		return nil, fmt.Errorf("invalid evidence reference %q", ref)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref))
	if err != nil {
		return nil, fmt.Errorf("reading evidence file: %w", err)
	}
	return data, nil
}
