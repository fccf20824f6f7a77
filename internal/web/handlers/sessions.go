package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
)

// dateLayout is the wire format for session dates.
const dateLayout = "2006-01-02"

// SessionsHandler handles session and attendance record endpoints.
type SessionsHandler struct {
	config   *config.Config
	service  *attendance.Service
	sessions database.SessionRepository
	ledger   database.AttendanceLedger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(
	cfg *config.Config,
	service *attendance.Service,
	sessions database.SessionRepository,
	ledger database.AttendanceLedger,
) *SessionsHandler {
	return &SessionsHandler{config: cfg, service: service, sessions: sessions, ledger: ledger}
}

// Create starts a new session for a course. The course roster is snapshotted
// into absent records right here.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourseID    int64  `json:"course_id"`
		Date        string `json:"date"` // YYYY-MM-DD, defaults to today
		SessionType string `json:"session_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.CourseID == 0 {
		respondError(w, http.StatusBadRequest, "course_id is required")
		return
	}
	if !h.config.Defaults.ValidSessionType(req.SessionType) {
		respondError(w, http.StatusBadRequest, "invalid session_type")
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	session, err := h.service.CreateSession(r.Context(), req.CourseID, date, req.SessionType)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// List returns sessions, newest first, filtered by ?course_id= and ?date=.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	var courseID int64
	if v := r.URL.Query().Get("course_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid course_id")
			return
		}
		courseID = id
	}

	var date time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	sessions, err := h.sessions.List(r.Context(), courseID, date)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// Get returns a single session with its summary.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	summary, err := h.ledger.Summary(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"summary": summary,
	})
}

// Delete removes a session and its attendance records.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessions.Delete(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Records returns all attendance records of a session.
func (h *SessionsHandler) Records(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.sessions.Get(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}
	records, err := h.ledger.ListBySession(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// Summary returns the attendance breakdown of a session.
func (h *SessionsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.sessions.Get(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}
	summary, err := h.ledger.Summary(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Mark marks one student present manually.
func (h *SessionsHandler) Mark(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	studentID, err := idParam(r, "studentID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, transitioned, err := h.service.Mark(r.Context(), sessionID, studentID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"record":       rec,
		"transitioned": transitioned,
	})
}

// Revert moves one student back to absent.
func (h *SessionsHandler) Revert(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	studentID, err := idParam(r, "studentID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.service.Revert(r.Context(), sessionID, studentID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// BulkSet rewrites the whole session manually: listed students become
// present, everyone else absent.
func (h *SessionsHandler) BulkSet(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		PresentStudentIDs []int64 `json:"present_student_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if _, err := h.sessions.Get(r.Context(), sessionID); err != nil {
		respondStorageError(w, err)
		return
	}
	if err := h.service.BulkSetManual(r.Context(), sessionID, req.PresentStudentIDs); err != nil {
		respondStorageError(w, err)
		return
	}

	summary, err := h.ledger.Summary(r.Context(), sessionID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
