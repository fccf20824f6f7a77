package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
)

const sessionDateLayout = "2006-01-02"

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage attendance sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create <course-code>",
	Short: "Create a session and seed its attendance records",
	Long: `Create an attendance session for a course. Every active student enrolled
in the course gets an absent record; the roster is fixed at this moment and
later enrollment changes never touch this session.

Example:
  roll-call session create CS101
  roll-call session create CS101 --type lab --date 2026-09-01`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionCreate,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE:  runSessionList,
}

var sessionSummaryCmd = &cobra.Command{
	Use:   "summary <session-id>",
	Short: "Show the attendance breakdown of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionSummary,
}

var sessionMarkCmd = &cobra.Command{
	Use:   "mark <session-id> <student-id>",
	Short: "Manually mark a student present",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionMark,
}

var sessionRevertCmd = &cobra.Command{
	Use:   "revert <session-id> <student-id>",
	Short: "Revert a student back to absent",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionRevert,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionSummaryCmd)
	sessionCmd.AddCommand(sessionMarkCmd)
	sessionCmd.AddCommand(sessionRevertCmd)

	sessionCreateCmd.Flags().String("type", "lecture", "Session type (lecture, lab, tutorial)")
	sessionCreateCmd.Flags().String("date", "", "Session date as YYYY-MM-DD (defaults to today)")
	sessionListCmd.Flags().String("course", "", "Filter by course code")
	sessionListCmd.Flags().String("date", "", "Filter by date as YYYY-MM-DD")
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	sessionType := mustGetString(cmd, "type")
	if !cfg.Defaults.ValidSessionType(sessionType) {
		return fmt.Errorf("invalid session type %q", sessionType)
	}

	date := time.Now()
	if v := mustGetString(cmd, "date"); v != "" {
		parsed, err := time.Parse(sessionDateLayout, v)
		if err != nil {
			return fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
		}
		date = parsed
	}

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := cmd.Context()
	course, err := b.courses.GetByCode(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get course %s: %w", args[0], err)
	}

	session, err := b.service.CreateSession(ctx, course.ID, date, sessionType)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	summary, err := b.service.GetSummary(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}

	fmt.Printf("Created %s session for %s on %s\n",
		session.SessionType, course.Code, session.SessionDate.Format(sessionDateLayout))
	fmt.Printf("ID: %d\n", session.ID)
	fmt.Printf("UID: %s\n", session.UID)
	fmt.Printf("Seeded records: %d\n", summary.Total)
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := cmd.Context()
	var courseID int64
	if code := mustGetString(cmd, "course"); code != "" {
		course, err := b.courses.GetByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to get course %s: %w", code, err)
		}
		courseID = course.ID
	}

	var date time.Time
	if v := mustGetString(cmd, "date"); v != "" {
		date, err = time.Parse(sessionDateLayout, v)
		if err != nil {
			return fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
		}
	}

	sessions, err := b.sessions.List(ctx, courseID, date)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	fmt.Printf("%-6s %-14s %-8s %-10s %s\n", "ID", "UID", "COURSE", "TYPE", "DATE")
	for _, s := range sessions {
		fmt.Printf("%-6d %-14s %-8d %-10s %s\n",
			s.ID, s.UID, s.CourseID, s.SessionType, s.SessionDate.Format(sessionDateLayout))
	}
	return nil
}

func runSessionSummary(cmd *cobra.Command, args []string) error {
	sessionID, err := parseID(args[0])
	if err != nil {
		return err
	}

	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	summary, err := b.service.GetSummary(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}

	fmt.Printf("Total:      %d\n", summary.Total)
	fmt.Printf("Present:    %d\n", summary.Present)
	fmt.Printf("Absent:     %d\n", summary.Absent)
	fmt.Printf("Attendance: %.2f%%\n", summary.Percentage)
	return nil
}

func runSessionMark(cmd *cobra.Command, args []string) error {
	sessionID, err := parseID(args[0])
	if err != nil {
		return err
	}
	studentID, err := parseID(args[1])
	if err != nil {
		return err
	}

	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	_, transitioned, err := b.service.Mark(cmd.Context(), sessionID, studentID)
	if err != nil {
		return fmt.Errorf("failed to mark student: %w", err)
	}

	if transitioned {
		fmt.Printf("Marked student %d present in session %d\n", studentID, sessionID)
	} else {
		fmt.Printf("Student %d was already present in session %d\n", studentID, sessionID)
	}
	return nil
}

func runSessionRevert(cmd *cobra.Command, args []string) error {
	sessionID, err := parseID(args[0])
	if err != nil {
		return err
	}
	studentID, err := parseID(args[1])
	if err != nil {
		return err
	}

	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if _, err := b.service.Revert(cmd.Context(), sessionID, studentID); err != nil {
		return fmt.Errorf("failed to revert student: %w", err)
	}
	fmt.Printf("Reverted student %d to absent in session %d\n", studentID, sessionID)
	return nil
}
