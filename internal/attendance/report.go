package attendance

import (
	"context"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/database"
)

// Report returns attendance records joined with session and student data,
// narrowed by the given filter.
func (s *Service) Report(ctx context.Context, filter database.ReportFilter) ([]database.ReportRow, error) {
	rows, err := s.ledger.Report(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("building attendance report: %w", err)
	}
	return rows, nil
}

// DashboardStats returns the headline numbers for the dashboard.
func (s *Service) DashboardStats(ctx context.Context) (*database.DashboardStats, error) {
	students, err := s.students.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting students: %w", err)
	}
	courses, err := s.courses.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting courses: %w", err)
	}
	today, err := s.sessions.CountToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting today's sessions: %w", err)
	}

	return &database.DashboardStats{
		TotalStudents: students,
		TotalCourses:  courses,
		TodaySessions: today,
	}, nil
}

// LowAttendanceEntry pairs a student with their attendance percentage.
type LowAttendanceEntry struct {
	Student    database.Student `json:"student"`
	Percentage float64          `json:"percentage"`
}

// LowAttendance returns active students whose attendance within their own
// course is below the cutoff percentage. Students without a course are
// measured against all sessions.
func (s *Service) LowAttendance(ctx context.Context, cutoff float64) ([]LowAttendanceEntry, error) {
	students, err := s.students.List(ctx, "", 0)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}

	var entries []LowAttendanceEntry
	for _, st := range students {
		pct, err := s.AttendancePercentage(ctx, st.ID, st.CourseID)
		if err != nil {
			return nil, err
		}
		if pct < cutoff {
			entries = append(entries, LowAttendanceEntry{Student: st, Percentage: pct})
		}
	}
	return entries, nil
}
