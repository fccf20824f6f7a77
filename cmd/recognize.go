package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/config"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <session-id> <photo-path>",
	Short: "Recognize a face probe and mark attendance",
	Long: `Run one probe photo through the recognition flow: compute its face
signature, match it against the session's course roster, and mark the
matched student present.

Example:
  roll-call recognize 42 ./probe.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	sessionID, err := parseID(args[0])
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

	outcome, err := b.service.RecognizeAndMark(cmd.Context(), sessionID, photo)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	switch outcome.Kind {
	case attendance.OutcomeMarked:
		fmt.Printf("Marked present: %s (%s), confidence %.2f%%\n",
			outcome.Student.Name, outcome.Student.RegistrationNumber, outcome.Confidence)
		if outcome.EvidenceRef != "" {
			fmt.Printf("Evidence: %s\n", outcome.EvidenceRef)
		}
	case attendance.OutcomeAlreadyPresent:
		fmt.Printf("Already present: %s (%s)\n",
			outcome.Student.Name, outcome.Student.RegistrationNumber)
	case attendance.OutcomeNoFaceCandidate:
		fmt.Printf("No usable face in the photo: %s\n", outcome.Reason)
	case attendance.OutcomeNoStudentsEnrolled:
		fmt.Println("The course roster is empty")
	case attendance.OutcomeNoCandidatesWithSignature:
		fmt.Println("No student in the course has an enrolled face")
	case attendance.OutcomeNoMatch:
		fmt.Println("No match above the threshold, attendance unchanged")
	}
	return nil
}
