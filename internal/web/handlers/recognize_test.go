package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/kozaktomas/roll-call/internal/embedding"
	"github.com/kozaktomas/roll-call/internal/signature"
)

func TestRecognize_Marked(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	env.embedder.sig = signature.Signature{0.3, 0, 0, 0}
	handler := NewRecognizeHandler(env.service, nil)

	req := multipartPhotoRequest(t, http.MethodPost, "/sessions/1/recognize", nil)
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10)})
	rec := httptest.NewRecorder()
	handler.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp recognitionResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Outcome != "marked" {
		t.Fatalf("expected marked, got %s", resp.Outcome)
	}
	if resp.Student == nil || resp.Student.ID != 1 {
		t.Errorf("expected Alice (id 1), got %+v", resp.Student)
	}
	if resp.Confidence != 100.0 {
		t.Errorf("expected confidence 100.0, got %f", resp.Confidence)
	}
}

func TestRecognize_NoMatch(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	env.embedder.sig = signature.Signature{2.0, 0, 0, 0}
	handler := NewRecognizeHandler(env.service, nil)

	req := multipartPhotoRequest(t, http.MethodPost, "/sessions/1/recognize", nil)
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10)})
	rec := httptest.NewRecorder()
	handler.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp recognitionResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Outcome != "no_match" {
		t.Errorf("expected no_match, got %s", resp.Outcome)
	}
	if resp.Student != nil {
		t.Errorf("no_match must not name a student, got %+v", resp.Student)
	}
}

func TestRecognize_NoFace(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	env.embedder.err = embedding.ErrNoFaceDetected
	handler := NewRecognizeHandler(env.service, nil)

	req := multipartPhotoRequest(t, http.MethodPost, "/sessions/1/recognize", nil)
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10)})
	rec := httptest.NewRecorder()
	handler.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp recognitionResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Outcome != "no_face_candidate" {
		t.Errorf("expected no_face_candidate, got %s", resp.Outcome)
	}
	if resp.Reason == "" {
		t.Error("expected provider detail in reason")
	}
}

func TestRecognize_MissingPhoto(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	handler := NewRecognizeHandler(env.service, nil)

	req := httptest.NewRequest(http.MethodPost, "/sessions/1/recognize", nil)
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10)})
	rec := httptest.NewRecorder()
	handler.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestRecognize_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedClass(t)
	env.embedder.sig = signature.Signature{0.3, 0, 0, 0}
	handler := NewRecognizeHandler(env.service, nil)

	req := multipartPhotoRequest(t, http.MethodPost, "/sessions/99/recognize", nil)
	req = requestWithChiParams(req, map[string]string{"id": "99"})
	rec := httptest.NewRecorder()
	handler.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestEvidence_Disabled(t *testing.T) {
	env := newTestEnv(t)
	handler := NewRecognizeHandler(env.service, nil)

	req := httptest.NewRequest(http.MethodGet, "/evidence/ref.jpg", nil)
	req = requestWithChiParams(req, map[string]string{"ref": "ref.jpg"})
	rec := httptest.NewRecorder()
	handler.Evidence(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}
