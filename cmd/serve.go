package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the Roll Call HTTP API.
The API serves enrollment, session management, face recognition marking,
and attendance reports for the classroom clients.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := context.Background()
	fmt.Printf("Building duplicate-enrollment index...\n")
	if count, err := b.service.BuildDuplicateIndex(ctx); err != nil {
		fmt.Printf("Warning: failed to build duplicate index: %v\n", err)
		fmt.Printf("Enrollment will not flag near-duplicate faces\n")
	} else {
		fmt.Printf("Duplicate index ready with %d signatures\n", count)
	}

	if b.evidence != nil {
		fmt.Printf("Evidence storage enabled (%s)\n", cfg.Evidence.Dir)
	}
	if cfg.Web.APIToken == "" {
		fmt.Printf("Warning: WEB_API_TOKEN not set, API authentication is disabled\n")
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, b.service, web.Backends{
		Students: b.students,
		Courses:  b.courses,
		Sessions: b.sessions,
		Ledger:   b.ledger,
		Evidence: b.evidence,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Roll Call API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
