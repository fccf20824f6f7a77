package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/database/sis"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import enrollments from the school information system",
	Long: `Import courses and student enrollments from the school information system.
The SIS database is read-only for this tool: imports create missing courses
and students locally, never writing anything back.

Imported students have no face signature until they enroll a photo.

Example:
  roll-call import
  roll-call import --course CS101
  roll-call import --dry-run`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("course", "", "Only import enrollments of one SIS course code")
	importCmd.Flags().Bool("dry-run", false, "Show what would be imported without writing")
}

// importStats counts what one import run did.
type importStats struct {
	coursesCreated  int
	studentsCreated int
	skipped         int
}

// ensureCourse returns the local course for a SIS course code, creating it
// when missing. Courses already present are matched by code only; their
// names are not overwritten.
func ensureCourse(ctx context.Context, b *backend, cache map[string]int64, e sis.Enrollment, dryRun bool, stats *importStats) (int64, error) {
	if id, ok := cache[e.CourseCode]; ok {
		return id, nil
	}

	course, err := b.courses.GetByCode(ctx, e.CourseCode)
	if err == nil {
		cache[e.CourseCode] = course.ID
		return course.ID, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return 0, fmt.Errorf("failed to look up course %s: %w", e.CourseCode, err)
	}

	stats.coursesCreated++
	if dryRun {
		cache[e.CourseCode] = 0
		return 0, nil
	}

	created, err := b.courses.Create(ctx, &database.Course{
		Code: e.CourseCode,
		Name: e.CourseName,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create course %s: %w", e.CourseCode, err)
	}
	cache[e.CourseCode] = created.ID
	return created.ID, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.SIS.DSN == "" {
		return errors.New("SIS_DATABASE_DSN environment variable is required")
	}

	dryRun := mustGetBool(cmd, "dry-run")
	courseCode := mustGetString(cmd, "course")

	fmt.Printf("Connecting to the school information system...\n")
	sisPool, err := sis.NewPool(cfg.SIS.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to SIS: %w", err)
	}
	defer sisPool.Close()

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := cmd.Context()
	total, err := sisPool.CountEnrollments(ctx, courseCode)
	if err != nil {
		return fmt.Errorf("failed to count SIS enrollments: %w", err)
	}
	fmt.Printf("SIS reports %d active enrollments\n", total)

	enrollments, err := sisPool.ListEnrollments(ctx, courseCode)
	if err != nil {
		return fmt.Errorf("failed to list SIS enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		fmt.Println("No enrollments found in SIS")
		return nil
	}

	fmt.Printf("Importing %d enrollments...\n", len(enrollments))
	bar := progressbar.Default(int64(len(enrollments)))

	var stats importStats
	courseCache := make(map[string]int64)

	for _, e := range enrollments {
		bar.Add(1)

		localCourseID, err := ensureCourse(ctx, b, courseCache, e, dryRun, &stats)
		if err != nil {
			return err
		}

		// Students already known locally are left alone: local edits and
		// face enrollments must survive re-imports.
		_, err = b.students.GetByRegistration(ctx, e.RegistrationNumber)
		if err == nil {
			stats.skipped++
			continue
		}
		if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("failed to look up student %s: %w", e.RegistrationNumber, err)
		}

		stats.studentsCreated++
		if dryRun {
			continue
		}

		_, err = b.students.Create(ctx, &database.Student{
			RegistrationNumber: e.RegistrationNumber,
			Name:               e.Name,
			Email:              e.Email,
			Phone:              e.Phone,
			CourseID:           localCourseID,
		})
		if err != nil {
			return fmt.Errorf("failed to create student %s: %w", e.RegistrationNumber, err)
		}
	}

	if dryRun {
		fmt.Printf("\nDry run: would create %d courses and %d students (%d already present)\n",
			stats.coursesCreated, stats.studentsCreated, stats.skipped)
		return nil
	}

	fmt.Printf("\nImport finished: %d courses and %d students created, %d already present\n",
		stats.coursesCreated, stats.studentsCreated, stats.skipped)
	return nil
}
