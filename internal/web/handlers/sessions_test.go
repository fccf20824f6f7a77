package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/kozaktomas/roll-call/internal/database"
)

func newSessionsHandler(env *testEnv) *SessionsHandler {
	return NewSessionsHandler(env.config, env.service, env.sessions, env.ledger)
}

func TestSessionsCreate(t *testing.T) {
	env := newTestEnv(t)
	env.courses.AddCourse(database.Course{ID: 1, Code: "CS101", Name: "Intro to CS"})
	env.students.AddStudent(database.Student{
		ID: 1, Name: "Alice", RegistrationNumber: "R001", CourseID: 1, IsActive: true,
	})
	handler := newSessionsHandler(env)

	body := `{"course_id": 1, "date": "2026-09-01", "session_type": "lecture"}`
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)

	var session database.Session
	parseJSONResponse(t, rec, &session)
	if session.ID == 0 || session.UID == "" {
		t.Errorf("expected assigned ID and UID, got %+v", session)
	}
	if session.SessionType != "lecture" {
		t.Errorf("expected lecture, got %s", session.SessionType)
	}
}

func TestSessionsCreate_InvalidSessionType(t *testing.T) {
	env := newTestEnv(t)
	env.courses.AddCourse(database.Course{ID: 1, Code: "CS101", Name: "Intro to CS"})
	handler := newSessionsHandler(env)

	body := `{"course_id": 1, "session_type": "seminar"}`
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "invalid session_type")
}

func TestSessionsCreate_UnknownCourse(t *testing.T) {
	env := newTestEnv(t)
	handler := newSessionsHandler(env)

	body := `{"course_id": 42, "session_type": "lecture"}`
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestSessionsRecords(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	handler := newSessionsHandler(env)

	req := httptest.NewRequest(http.MethodGet, "/sessions/1/records", nil)
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10)})
	rec := httptest.NewRecorder()
	handler.Records(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		Records []database.AttendanceRecord `json:"records"`
		Count   int                         `json:"count"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 2 {
		t.Fatalf("expected 2 seeded records, got %d", resp.Count)
	}
	for _, r := range resp.Records {
		if r.Status != database.StatusAbsent {
			t.Errorf("expected absent, got %s", r.Status)
		}
	}
}

func TestSessionsMarkAndRevert(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	handler := newSessionsHandler(env)
	params := map[string]string{"id": strconv.FormatInt(sessionID, 10), "studentID": "1"}

	req := httptest.NewRequest(http.MethodPost, "/sessions/1/records/1/mark", nil)
	req = requestWithChiParams(req, params)
	rec := httptest.NewRecorder()
	handler.Mark(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var markResp struct {
		Record       database.AttendanceRecord `json:"record"`
		Transitioned bool                      `json:"transitioned"`
	}
	parseJSONResponse(t, rec, &markResp)
	if !markResp.Transitioned {
		t.Error("expected first mark to transition")
	}
	if markResp.Record.Provenance != database.ProvenanceFaculty {
		t.Errorf("expected faculty provenance, got %s", markResp.Record.Provenance)
	}

	// A second mark is a no-op.
	req = httptest.NewRequest(http.MethodPost, "/sessions/1/records/1/mark", nil)
	req = requestWithChiParams(req, params)
	rec = httptest.NewRecorder()
	handler.Mark(rec, req)

	parseJSONResponse(t, rec, &markResp)
	if markResp.Transitioned {
		t.Error("expected second mark to be a no-op")
	}

	// Revert back to absent.
	req = httptest.NewRequest(http.MethodPost, "/sessions/1/records/1/revert", nil)
	req = requestWithChiParams(req, params)
	rec = httptest.NewRecorder()
	handler.Revert(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var reverted database.AttendanceRecord
	parseJSONResponse(t, rec, &reverted)
	if reverted.Status != database.StatusAbsent {
		t.Errorf("expected absent after revert, got %s", reverted.Status)
	}
}

func TestSessionsMark_UnknownStudent(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	handler := newSessionsHandler(env)

	req := httptest.NewRequest(http.MethodPost, "/sessions/1/records/99/mark", nil)
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10), "studentID": "99"})
	rec := httptest.NewRecorder()
	handler.Mark(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestSessionsBulkSet(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	handler := newSessionsHandler(env)

	body := `{"present_student_ids": [1]}`
	req := httptest.NewRequest(http.MethodPut, "/sessions/1/records", strings.NewReader(body))
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10)})
	rec := httptest.NewRecorder()
	handler.BulkSet(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var summary database.Summary
	parseJSONResponse(t, rec, &summary)
	if summary.Total != 2 || summary.Present != 1 || summary.Percentage != 50.0 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestSessionsSummary(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	handler := newSessionsHandler(env)

	req := httptest.NewRequest(http.MethodGet, "/sessions/1/summary", nil)
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10)})
	rec := httptest.NewRecorder()
	handler.Summary(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var summary database.Summary
	parseJSONResponse(t, rec, &summary)
	if summary.Total != 2 || summary.Absent != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestSessionsDelete(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.seedClass(t)
	handler := newSessionsHandler(env)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/1", nil)
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10)})
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	req = httptest.NewRequest(http.MethodGet, "/sessions/1/summary", nil)
	req = requestWithChiParams(req, map[string]string{"id": strconv.FormatInt(sessionID, 10)})
	rec = httptest.NewRecorder()
	handler.Summary(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}
