package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/embedding"
)

// StudentsHandler handles student enrollment and lookup endpoints.
type StudentsHandler struct {
	service  *attendance.Service
	students database.StudentWriter
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(service *attendance.Service, students database.StudentWriter) *StudentsHandler {
	return &StudentsHandler{service: service, students: students}
}

// studentResponse is the JSON shape of a student. The raw signature never
// leaves the server; clients only learn whether one exists.
type studentResponse struct {
	ID                 int64     `json:"id"`
	RegistrationNumber string    `json:"registration_number"`
	Name               string    `json:"name"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	CourseID           int64     `json:"course_id,omitempty"`
	HasSignature       bool      `json:"has_signature"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

func toStudentResponse(s *database.Student) studentResponse {
	return studentResponse{
		ID:                 s.ID,
		RegistrationNumber: s.RegistrationNumber,
		Name:               s.Name,
		Email:              s.Email,
		Phone:              s.Phone,
		CourseID:           s.CourseID,
		HasSignature:       s.Signature != "",
		IsActive:           s.IsActive,
		CreatedAt:          s.CreatedAt,
	}
}

func toStudentResponses(students []database.Student) []studentResponse {
	out := make([]studentResponse, len(students))
	for i := range students {
		out[i] = toStudentResponse(&students[i])
	}
	return out
}

// List returns active students, filtered by ?search= and ?course_id=.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	var courseID int64
	if v := r.URL.Query().Get("course_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid course_id")
			return
		}
		courseID = id
	}

	students, err := h.students.List(r.Context(), r.URL.Query().Get("search"), courseID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"students": toStudentResponses(students),
		"count":    len(students),
	})
}

// Get returns a single student.
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	student, err := h.students.Get(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toStudentResponse(student))
}

// Enroll registers a new student from a multipart form with their face photo.
// The signature is computed synchronously; a photo the provider rejects fails
// the whole enrollment.
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	photo, err := readPhoto(r, "photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	student := &database.Student{
		RegistrationNumber: r.FormValue("registration_number"),
		Name:               r.FormValue("name"),
		Email:              r.FormValue("email"),
		Phone:              r.FormValue("phone"),
	}
	if student.RegistrationNumber == "" || student.Name == "" {
		respondError(w, http.StatusBadRequest, "registration_number and name are required")
		return
	}
	if v := r.FormValue("course_id"); v != "" {
		courseID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid course_id")
			return
		}
		student.CourseID = courseID
	}

	result, err := h.service.EnrollStudent(r.Context(), student, photo)
	if err != nil {
		if errors.Is(err, embedding.ErrNoFaceDetected) || errors.Is(err, embedding.ErrMultipleFacesDetected) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.Printf("Failed to enroll student %s: %v", sanitizeForLog(student.RegistrationNumber), err)
		respondStorageError(w, err)
		return
	}

	duplicates := make([]map[string]any, 0, len(result.PossibleDuplicates))
	for _, n := range result.PossibleDuplicates {
		duplicates = append(duplicates, map[string]any{
			"student":  toStudentResponse(n.Student),
			"distance": n.Distance,
		})
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"student":             toStudentResponse(result.Student),
		"possible_duplicates": duplicates,
	})
}

// UpdateFace replaces a student's stored face signature with one computed
// from a fresh photo.
func (h *StudentsHandler) UpdateFace(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	photo, err := readPhoto(r, "photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	student, err := h.service.ReenrollFace(r.Context(), id, photo)
	if err != nil {
		if errors.Is(err, embedding.ErrNoFaceDetected) || errors.Is(err, embedding.ErrMultipleFacesDetected) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toStudentResponse(student))
}

// Deactivate soft-deletes a student. Their attendance history stays.
func (h *StudentsHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.students.Deactivate(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// Attendance returns a student's overall attendance percentage, optionally
// within one course (?course_id=).
func (h *StudentsHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	student, err := h.students.Get(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}

	courseID := student.CourseID
	if v := r.URL.Query().Get("course_id"); v != "" {
		courseID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid course_id")
			return
		}
	}

	pct, err := h.service.AttendancePercentage(r.Context(), id, courseID)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"student_id": id,
		"course_id":  courseID,
		"percentage": pct,
	})
}
