package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/evidence"
)

// RecognizeHandler handles the biometric recognition endpoint and serves
// stored evidence images.
type RecognizeHandler struct {
	service  *attendance.Service
	evidence *evidence.Store // nil when evidence storage is disabled
}

// NewRecognizeHandler creates a new recognition handler.
func NewRecognizeHandler(service *attendance.Service, store *evidence.Store) *RecognizeHandler {
	return &RecognizeHandler{service: service, evidence: store}
}

// recognitionResponse is the JSON shape of a recognition outcome.
type recognitionResponse struct {
	Outcome     string           `json:"outcome"`
	Student     *studentResponse `json:"student,omitempty"`
	Confidence  float64          `json:"confidence,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	EvidenceRef string           `json:"evidence_ref,omitempty"`
}

// Recognize runs one probe photo through the recognition flow and applies
// the attendance transition. Matching-quality failures (no face, nobody
// close enough) are 200 responses with the outcome; integrity failures are
// server errors.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	photo, err := readPhoto(r, "photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.service.RecognizeAndMark(r.Context(), sessionID, photo)
	if err != nil {
		log.Printf("Recognition failed for session %d: %v", sessionID, err)
		respondStorageError(w, err)
		return
	}

	resp := recognitionResponse{
		Outcome:     string(outcome.Kind),
		Confidence:  outcome.Confidence,
		Reason:      outcome.Reason,
		EvidenceRef: outcome.EvidenceRef,
	}
	if outcome.Student != nil {
		s := toStudentResponse(outcome.Student)
		resp.Student = &s
	}
	respondJSON(w, http.StatusOK, resp)
}

// Evidence serves a stored probe image by its reference.
func (h *RecognizeHandler) Evidence(w http.ResponseWriter, r *http.Request) {
	if h.evidence == nil {
		respondError(w, http.StatusNotFound, "evidence storage is disabled")
		return
	}

	ref := chi.URLParam(r, "ref")
	data, err := h.evidence.Open(ref)
	if err != nil {
		respondError(w, http.StatusNotFound, "evidence not found")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
