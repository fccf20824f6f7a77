// Package embedding talks to the external face embedding service. The
// service owns everything pixel-related: face detection, alignment, and the
// embedding model. This package only moves bytes and classifies the outcome.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kozaktomas/roll-call/internal/signature"
)

const defaultServiceURL = "http://localhost:8000"

var (
	// ErrNoFaceDetected means the probe image contains no usable face.
	// Expected and user-recoverable: the caller prompts for a re-capture.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrMultipleFacesDetected means the probe image is ambiguous (more than
	// one face). Treated like ErrNoFaceDetected by the attendance flow, but
	// surfaced separately so the user gets an accurate prompt.
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
)

// Client computes face signatures via the embedding service HTTP API.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates a new embedding client. dim is the expected signature
// dimensionality; responses with any other dimensionality are rejected.
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{},
	}
}

// signatureResponse represents the response from the embedding service.
type signatureResponse struct {
	Faces     int       `json:"faces"`
	Dim       int       `json:"dim"`
	Signature []float32 `json:"signature"`
}

// ComputeSignature uploads an image and returns the face signature.
// Returns ErrNoFaceDetected / ErrMultipleFacesDetected when the image has no
// single usable face, signature.ErrDimensionMismatch when the service is
// configured for a different model than this deployment expects.
func (c *Client) ComputeSignature(ctx context.Context, imageData []byte) (signature.Signature, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "probe.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/signature/face", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service error (status %d): %s", resp.StatusCode, string(body))
	}

	var sigResp signatureResponse
	if err := json.Unmarshal(body, &sigResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	switch {
	case sigResp.Faces == 0:
		return nil, ErrNoFaceDetected
	case sigResp.Faces > 1:
		return nil, fmt.Errorf("%w: %d faces in frame", ErrMultipleFacesDetected, sigResp.Faces)
	}

	if len(sigResp.Signature) != c.dim {
		return nil, fmt.Errorf("%w: service returned %d values, want %d",
			signature.ErrDimensionMismatch, len(sigResp.Signature), c.dim)
	}

	return signature.Signature(sigResp.Signature), nil
}
