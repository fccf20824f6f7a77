package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/roll-call/internal/web/handlers"
	"github.com/kozaktomas/roll-call/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	studentsHandler := handlers.NewStudentsHandler(s.service, s.backends.Students)
	coursesHandler := handlers.NewCoursesHandler(s.backends.Courses, s.backends.Students)
	sessionsHandler := handlers.NewSessionsHandler(s.config, s.service, s.backends.Sessions, s.backends.Ledger)
	recognizeHandler := handlers.NewRecognizeHandler(s.service, s.backends.Evidence)
	reportsHandler := handlers.NewReportsHandler(s.config, s.service)
	statsHandler := handlers.NewStatsHandler(s.service)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.APIToken))

		// Courses
		r.Get("/courses", coursesHandler.List)
		r.Post("/courses", coursesHandler.Create)
		r.Get("/courses/{id}", coursesHandler.Get)
		r.Get("/courses/{id}/students", coursesHandler.Students)

		// Students
		r.Get("/students", studentsHandler.List)
		r.Post("/students", studentsHandler.Enroll)
		r.Get("/students/{id}", studentsHandler.Get)
		r.Post("/students/{id}/face", studentsHandler.UpdateFace)
		r.Delete("/students/{id}", studentsHandler.Deactivate)
		r.Get("/students/{id}/attendance", studentsHandler.Attendance)

		// Sessions and attendance records
		r.Get("/sessions", sessionsHandler.List)
		r.Post("/sessions", sessionsHandler.Create)
		r.Get("/sessions/{id}", sessionsHandler.Get)
		r.Delete("/sessions/{id}", sessionsHandler.Delete)
		r.Get("/sessions/{id}/records", sessionsHandler.Records)
		r.Put("/sessions/{id}/records", sessionsHandler.BulkSet)
		r.Get("/sessions/{id}/summary", sessionsHandler.Summary)
		r.Post("/sessions/{id}/records/{studentID}/mark", sessionsHandler.Mark)
		r.Post("/sessions/{id}/records/{studentID}/revert", sessionsHandler.Revert)

		// Recognition
		r.Post("/sessions/{id}/recognize", recognizeHandler.Recognize)
		r.Get("/evidence/{ref}", recognizeHandler.Evidence)

		// Reports
		r.Get("/reports/attendance", reportsHandler.Attendance)
		r.Get("/reports/low-attendance", reportsHandler.LowAttendance)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})
}
