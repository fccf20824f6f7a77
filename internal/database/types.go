package database

import (
	"math"
	"time"
)

// Status is the attendance state of a student within a session.
type Status string

const (
	StatusAbsent  Status = "absent"
	StatusPresent Status = "present"
)

// Provenance records who or what performed an attendance transition.
type Provenance string

const (
	ProvenanceSystem    Provenance = "system"    // default record created with the session
	ProvenanceFaculty   Provenance = "faculty"   // manual marking by teaching staff
	ProvenanceBiometric Provenance = "biometric" // face recognition match
)

// Student is an enrolled student. Signature holds the encoded face signature
// ("" when the student never enrolled a face photo).
type Student struct {
	ID                 int64
	RegistrationNumber string
	Name               string
	Email              string
	Phone              string
	CourseID           int64 // 0 when not assigned to a course
	Signature          string
	IsActive           bool
	CreatedAt          time.Time
}

// Course is an academic course students enroll in.
type Course struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Faculty   string    `json:"faculty,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one attendance-taking event for a course. Its set of attendance
// records is fixed when the session is created: enrollment changes afterwards
// never add or remove records from existing sessions.
type Session struct {
	ID          int64     `json:"id"`
	UID         string    `json:"uid"` // public identifier used in URLs
	CourseID    int64     `json:"course_id"`
	SessionDate time.Time `json:"session_date"`
	SessionType string    `json:"session_type"` // lecture, lab, tutorial
	CreatedAt   time.Time `json:"created_at"`
}

// AttendanceRecord is the ledger entry for one (session, student) pair.
// Exactly one exists per pair, created absent/system with the session and
// mutated in place afterwards.
type AttendanceRecord struct {
	SessionID   int64      `json:"session_id"`
	StudentID   int64      `json:"student_id"`
	Status      Status     `json:"status"`
	Provenance  Provenance `json:"provenance"`
	Confidence  *float64   `json:"confidence,omitempty"` // only set for biometric transitions
	EvidenceRef string     `json:"evidence_ref,omitempty"` // opaque reference to the captured probe image, "" if none
	MarkedAt    time.Time  `json:"marked_at"`
}

// Summary is the derived per-session attendance breakdown. It is recomputed
// from the records on every read, never stored.
type Summary struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// ComputeSummary derives a summary from a session's records.
func ComputeSummary(records []AttendanceRecord) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.Status == StatusPresent {
			s.Present++
		} else {
			s.Absent++
		}
	}
	if s.Total > 0 {
		s.Percentage = RoundPercent(float64(s.Present) / float64(s.Total) * 100)
	}
	return s
}

// RoundPercent rounds a percentage to 2 decimal places.
func RoundPercent(p float64) float64 {
	return math.Round(p*100) / 100
}

// ReportFilter narrows attendance report queries. Zero values mean "no filter".
type ReportFilter struct {
	CourseID  int64
	StudentID int64
	DateFrom  time.Time
	DateTo    time.Time
}

// ReportRow is one attendance record joined with its session and student.
type ReportRow struct {
	Record      AttendanceRecord `json:"record"`
	SessionUID  string           `json:"session_uid"`
	SessionDate time.Time        `json:"session_date"`
	SessionType string           `json:"session_type"`
	CourseCode  string           `json:"course_code"`
	StudentName string           `json:"student_name"`
}

// DashboardStats are the headline numbers for the dashboard endpoint.
type DashboardStats struct {
	TotalStudents int `json:"total_students"`
	TotalCourses  int `json:"total_courses"`
	TodaySessions int `json:"today_sessions"`
}
