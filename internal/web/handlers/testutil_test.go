package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/database/mock"
	"github.com/kozaktomas/roll-call/internal/match"
	"github.com/kozaktomas/roll-call/internal/signature"
)

const testDim = 4

// fakeEmbedder returns a fixed signature or error.
type fakeEmbedder struct {
	sig signature.Signature
	err error
}

func (f *fakeEmbedder) ComputeSignature(ctx context.Context, imageData []byte) (signature.Signature, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sig, nil
}

// testEnv bundles mock storage behind a wired attendance service.
type testEnv struct {
	config   *config.Config
	students *mock.MockStudentRepository
	courses  *mock.MockCourseRepository
	sessions *mock.MockSessionRepository
	ledger   *mock.MockLedger
	embedder *fakeEmbedder
	service  *attendance.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	students := mock.NewMockStudentRepository()
	courses := mock.NewMockCourseRepository()
	ledger := mock.NewMockLedger()
	sessions := mock.NewMockSessionRepository(ledger)
	embedder := &fakeEmbedder{}

	cfg := config.Load()
	service := attendance.NewService(
		students, courses, sessions, ledger,
		match.NewEngine(0.6), embedder, nil, database.NewDuplicateIndex(), testDim,
	)

	return &testEnv{
		config:   cfg,
		students: students,
		courses:  courses,
		sessions: sessions,
		ledger:   ledger,
		embedder: embedder,
		service:  service,
	}
}

// seedClass creates a course with two students (Alice has a signature) and
// one lecture session. Returns the session ID.
func (env *testEnv) seedClass(t *testing.T) int64 {
	t.Helper()

	env.courses.AddCourse(database.Course{ID: 1, Code: "CS101", Name: "Intro to CS"})
	env.students.AddStudent(database.Student{
		ID: 1, Name: "Alice", RegistrationNumber: "R001", CourseID: 1, IsActive: true,
		Signature: signature.Encode(signature.Signature{0.3, 0, 0, 0}),
	})
	env.students.AddStudent(database.Student{
		ID: 2, Name: "Bob", RegistrationNumber: "R002", CourseID: 1, IsActive: true,
	})

	session, err := env.service.CreateSession(context.Background(), 1, time.Now(), "lecture")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session.ID
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartPhotoRequest builds a multipart request with a photo field and
// optional extra form values.
func multipartPhotoRequest(t *testing.T, method, path string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("photo", "probe.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write([]byte("jpeg bytes"))
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	writer.Close()

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
