package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roll-call",
	Short: "Face recognition attendance for classrooms",
	Long: `Roll Call keeps classroom attendance with face recognition.
Students enroll once with a photo; during a session a camera probe is
matched against the course roster and the student is marked present.
Everything also works without a camera: faculty can mark, revert, and
bulk-correct records by hand.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
