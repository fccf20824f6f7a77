package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage courses",
}

var courseCreateCmd = &cobra.Command{
	Use:   "create <code> <name>",
	Short: "Create a new course",
	Long: `Create a new course.

Example:
  roll-call course create CS101 "Introduction to Computer Science"
  roll-call course create CS101 "Introduction to Computer Science" --faculty Engineering`,
	Args: cobra.ExactArgs(2),
	RunE: runCourseCreate,
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all courses",
	RunE:  runCourseList,
}

var courseStudentsCmd = &cobra.Command{
	Use:   "students <course-code>",
	Short: "Show the active roster of a course",
	Args:  cobra.ExactArgs(1),
	RunE:  runCourseStudents,
}

func init() {
	rootCmd.AddCommand(courseCmd)
	courseCmd.AddCommand(courseCreateCmd)
	courseCmd.AddCommand(courseListCmd)
	courseCmd.AddCommand(courseStudentsCmd)

	courseCreateCmd.Flags().String("faculty", "", "Faculty the course belongs to")
}

func runCourseCreate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	course, err := b.courses.Create(cmd.Context(), &database.Course{
		Code:    args[0],
		Name:    args[1],
		Faculty: mustGetString(cmd, "faculty"),
	})
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	fmt.Printf("Created course: %s (%s)\n", course.Name, course.Code)
	fmt.Printf("ID: %d\n", course.ID)
	return nil
}

func runCourseList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	courses, err := b.courses.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	if len(courses) == 0 {
		fmt.Println("No courses found")
		return nil
	}

	fmt.Printf("%-6s %-10s %-40s %s\n", "ID", "CODE", "NAME", "FACULTY")
	for _, c := range courses {
		fmt.Printf("%-6d %-10s %-40s %s\n", c.ID, c.Code, c.Name, c.Faculty)
	}
	return nil
}

func runCourseStudents(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	course, err := b.courses.GetByCode(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get course %s: %w", args[0], err)
	}

	students, err := b.students.ListActiveByCourse(cmd.Context(), course.ID)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	fmt.Printf("Course: %s (%s)\n", course.Name, course.Code)
	fmt.Printf("Students: %d\n\n", len(students))
	for _, s := range students {
		face := "no face"
		if s.Signature != "" {
			face = "enrolled"
		}
		fmt.Printf("%-6d %-12s %-30s [%s]\n", s.ID, s.RegistrationNumber, s.Name, face)
	}
	return nil
}
