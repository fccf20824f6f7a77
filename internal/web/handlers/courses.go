package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/roll-call/internal/database"
)

// CoursesHandler handles course endpoints.
type CoursesHandler struct {
	courses  database.CourseWriter
	students database.StudentReader
}

// NewCoursesHandler creates a new courses handler.
func NewCoursesHandler(courses database.CourseWriter, students database.StudentReader) *CoursesHandler {
	return &CoursesHandler{courses: courses, students: students}
}

// List returns all courses.
func (h *CoursesHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.List(r.Context())
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"courses": courses,
		"count":   len(courses),
	})
}

// Create registers a new course.
func (h *CoursesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code    string `json:"code"`
		Name    string `json:"name"`
		Faculty string `json:"faculty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Code == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	course, err := h.courses.Create(r.Context(), &database.Course{
		Code:    req.Code,
		Name:    req.Name,
		Faculty: req.Faculty,
	})
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, course)
}

// Get returns a single course.
func (h *CoursesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courses.Get(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, course)
}

// Students returns the active roster of a course.
func (h *CoursesHandler) Students(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.courses.Get(r.Context(), id); err != nil {
		respondStorageError(w, err)
		return
	}

	students, err := h.students.ListActiveByCourse(r.Context(), id)
	if err != nil {
		respondStorageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"students": toStudentResponses(students),
		"count":    len(students),
	})
}
