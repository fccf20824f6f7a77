package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
)

// ReportsHandler handles attendance report endpoints.
type ReportsHandler struct {
	config  *config.Config
	service *attendance.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(cfg *config.Config, service *attendance.Service) *ReportsHandler {
	return &ReportsHandler{config: cfg, service: service}
}

// Attendance returns attendance records joined with session and student
// data, filtered by ?course_id=, ?student_id=, ?from= and ?to=.
func (h *ReportsHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	var filter database.ReportFilter
	q := r.URL.Query()

	if v := q.Get("course_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid course_id")
			return
		}
		filter.CourseID = id
	}
	if v := q.Get("student_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid student_id")
			return
		}
		filter.StudentID = id
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.DateFrom = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		filter.DateTo = to
	}

	rows, err := h.service.Report(r.Context(), filter)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"count": len(rows),
	})
}

// LowAttendance returns students whose overall attendance is below the
// cutoff percentage (?cutoff=, defaults to the configured reporting cutoff).
func (h *ReportsHandler) LowAttendance(w http.ResponseWriter, r *http.Request) {
	cutoff := h.config.Defaults.Reporting.LowAttendanceCutoff
	if v := r.URL.Query().Get("cutoff"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 100 {
			respondError(w, http.StatusBadRequest, "invalid cutoff")
			return
		}
		cutoff = parsed
	}

	entries, err := h.service.LowAttendance(r.Context(), cutoff)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	students := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		students = append(students, map[string]any{
			"student":    toStudentResponse(&e.Student),
			"percentage": e.Percentage,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"cutoff":   cutoff,
		"students": students,
		"count":    len(students),
	})
}
