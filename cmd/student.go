package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/embedding"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Manage students and face enrollment",
}

var studentEnrollCmd = &cobra.Command{
	Use:   "enroll <registration-number> <name> <photo-path>",
	Short: "Enroll a student with their face photo",
	Long: `Enroll a new student. The photo is sent to the embedding service and the
resulting face signature is stored with the student. A photo without exactly
one face fails the whole enrollment.

Example:
  roll-call student enroll R2024-0042 "Alice Novakova" ./alice.jpg --course CS101`,
	Args: cobra.ExactArgs(3),
	RunE: runStudentEnroll,
}

var studentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active students",
	RunE:  runStudentList,
}

var studentUpdateFaceCmd = &cobra.Command{
	Use:   "update-face <student-id> <photo-path>",
	Short: "Replace a student's stored face signature",
	Args:  cobra.ExactArgs(2),
	RunE:  runStudentUpdateFace,
}

var studentDeactivateCmd = &cobra.Command{
	Use:   "deactivate <student-id>",
	Short: "Deactivate a student (attendance history stays)",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentDeactivate,
}

func init() {
	rootCmd.AddCommand(studentCmd)
	studentCmd.AddCommand(studentEnrollCmd)
	studentCmd.AddCommand(studentListCmd)
	studentCmd.AddCommand(studentUpdateFaceCmd)
	studentCmd.AddCommand(studentDeactivateCmd)

	studentEnrollCmd.Flags().String("course", "", "Course code to enroll the student in")
	studentEnrollCmd.Flags().String("email", "", "Student email address")
	studentEnrollCmd.Flags().String("phone", "", "Student phone number")
	studentListCmd.Flags().String("search", "", "Filter by name or registration number")
	studentListCmd.Flags().String("course", "", "Filter by course code")
}

func runStudentEnroll(cmd *cobra.Command, args []string) error {
	photo, err := os.ReadFile(args[2])
	if err != nil {
		return fmt.Errorf("cannot read photo %s: %w", args[2], err)
	}

	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := cmd.Context()
	student := &database.Student{
		RegistrationNumber: args[0],
		Name:               args[1],
		Email:              mustGetString(cmd, "email"),
		Phone:              mustGetString(cmd, "phone"),
	}
	if code := mustGetString(cmd, "course"); code != "" {
		course, err := b.courses.GetByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to get course %s: %w", code, err)
		}
		student.CourseID = course.ID
	}

	// Load existing signatures so near-duplicate enrollment gets flagged.
	if _, err := b.service.BuildDuplicateIndex(ctx); err != nil {
		fmt.Printf("Warning: failed to build duplicate index: %v\n", err)
	}

	result, err := b.service.EnrollStudent(ctx, student, photo)
	if err != nil {
		if errors.Is(err, embedding.ErrNoFaceDetected) || errors.Is(err, embedding.ErrMultipleFacesDetected) {
			return fmt.Errorf("photo rejected: %w (retake the photo with exactly one face)", err)
		}
		return fmt.Errorf("failed to enroll student: %w", err)
	}

	fmt.Printf("Enrolled student: %s (%s)\n", result.Student.Name, result.Student.RegistrationNumber)
	fmt.Printf("ID: %d\n", result.Student.ID)

	if len(result.PossibleDuplicates) > 0 {
		fmt.Printf("\nWarning: the face is close to %d already enrolled student(s):\n", len(result.PossibleDuplicates))
		for _, n := range result.PossibleDuplicates {
			fmt.Printf("  %-6d %-12s %-30s distance %.3f\n",
				n.Student.ID, n.Student.RegistrationNumber, n.Student.Name, n.Distance)
		}
		fmt.Println("Check whether this is a re-enrollment of an existing student.")
	}
	return nil
}

func runStudentList(cmd *cobra.Command, args []string) error {
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

	students, err := b.students.List(ctx, mustGetString(cmd, "search"), courseID)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	if len(students) == 0 {
		fmt.Println("No students found")
		return nil
	}

	fmt.Printf("%-6s %-12s %-30s %-8s %s\n", "ID", "REG", "NAME", "COURSE", "FACE")
	for _, s := range students {
		face := "-"
		if s.Signature != "" {
			face = "enrolled"
		}
		fmt.Printf("%-6d %-12s %-30s %-8d %s\n", s.ID, s.RegistrationNumber, s.Name, s.CourseID, face)
	}
	return nil
}

func runStudentUpdateFace(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	photo, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("cannot read photo %s: %w", args[1], err)
	}

	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	student, err := b.service.ReenrollFace(cmd.Context(), id, photo)
	if err != nil {
		if errors.Is(err, embedding.ErrNoFaceDetected) || errors.Is(err, embedding.ErrMultipleFacesDetected) {
			return fmt.Errorf("photo rejected: %w (retake the photo with exactly one face)", err)
		}
		return fmt.Errorf("failed to update face: %w", err)
	}

	fmt.Printf("Updated face signature for %s (%s)\n", student.Name, student.RegistrationNumber)
	return nil
}

func runStudentDeactivate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.students.Deactivate(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to deactivate student: %w", err)
	}
	fmt.Printf("Deactivated student %d\n", id)
	return nil
}
