package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Attendance reports",
}

var reportAttendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "List attendance records with session and student context",
	Long: `List attendance records joined with their session and student, optionally
narrowed by course, student, and date range.

Example:
  roll-call report attendance --course CS101 --from 2026-09-01 --to 2026-09-30`,
	RunE: runReportAttendance,
}

var reportLowAttendanceCmd = &cobra.Command{
	Use:   "low-attendance",
	Short: "List students below the attendance cutoff",
	RunE:  runReportLowAttendance,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportAttendanceCmd)
	reportCmd.AddCommand(reportLowAttendanceCmd)

	reportAttendanceCmd.Flags().String("course", "", "Filter by course code")
	reportAttendanceCmd.Flags().Int64("student", 0, "Filter by student ID")
	reportAttendanceCmd.Flags().String("from", "", "Start date as YYYY-MM-DD")
	reportAttendanceCmd.Flags().String("to", "", "End date as YYYY-MM-DD")
	reportLowAttendanceCmd.Flags().Float64("cutoff", 0, "Attendance percentage cutoff (defaults to the shipped value)")
}

func runReportAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := cmd.Context()
	filter := database.ReportFilter{
		StudentID: mustGetInt64(cmd, "student"),
	}
	if code := mustGetString(cmd, "course"); code != "" {
		course, err := b.courses.GetByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to get course %s: %w", code, err)
		}
		filter.CourseID = course.ID
	}
	if v := mustGetString(cmd, "from"); v != "" {
		filter.DateFrom, err = time.Parse(sessionDateLayout, v)
		if err != nil {
			return fmt.Errorf("invalid from date %q, want YYYY-MM-DD", v)
		}
	}
	if v := mustGetString(cmd, "to"); v != "" {
		filter.DateTo, err = time.Parse(sessionDateLayout, v)
		if err != nil {
			return fmt.Errorf("invalid to date %q, want YYYY-MM-DD", v)
		}
	}

	rows, err := b.service.Report(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	if len(rows) == 0 {
		fmt.Println("No records found")
		return nil
	}

	fmt.Printf("%-12s %-10s %-30s %-8s %s\n", "DATE", "TYPE", "STUDENT", "STATUS", "PROVENANCE")
	for _, row := range rows {
		fmt.Printf("%-12s %-10s %-30s %-8s %s\n",
			row.SessionDate.Format(sessionDateLayout), row.SessionType,
			row.StudentName, row.Record.Status, row.Record.Provenance)
	}
	fmt.Printf("\nTotal: %d records\n", len(rows))
	return nil
}

func runReportLowAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	cutoff := mustGetFloat64(cmd, "cutoff")
	if cutoff == 0 {
		cutoff = cfg.Defaults.Reporting.LowAttendanceCutoff
	}
	if cutoff < 0 || cutoff > 100 {
		return fmt.Errorf("cutoff must be between 0 and 100, got %v", cutoff)
	}

	entries, err := b.service.LowAttendance(cmd.Context(), cutoff)
	if err != nil {
		return fmt.Errorf("failed to build low attendance report: %w", err)
	}

	if len(entries) == 0 {
		fmt.Printf("Nobody is below %.1f%% attendance\n", cutoff)
		return nil
	}

	fmt.Printf("Students below %.1f%% attendance:\n\n", cutoff)
	fmt.Printf("%-6s %-12s %-30s %s\n", "ID", "REG", "NAME", "ATTENDANCE")
	for _, e := range entries {
		fmt.Printf("%-6d %-12s %-30s %.2f%%\n",
			e.Student.ID, e.Student.RegistrationNumber, e.Student.Name, e.Percentage)
	}
	return nil
}
