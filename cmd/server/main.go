// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Standard log for messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"account_agent/internal/config"

	"go.uber.org/zap"
)

func main() {
	replayCmd := flag.NewFlagSet("replay-outbox", flag.ExitOnError)
	showReport := replayCmd.Bool("report", false, "Print the replay report as a summary line")

	if len(os.Args) > 1 && os.Args[1] == "replay-outbox" {
		_ = replayCmd.Parse(os.Args[2:])
		if err := runReplay(*showReport); err != nil {
			log.Fatalf("FATAL: Outbox replay failed: %v", err)
		}
		return
	}

	startServer()
}

// runReplay pushes queued profile writes once and exits.
func runReplay(showReport bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	job, cleanup, err := initializeReplayJob(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	report := job.RunOnce(context.Background())
	if showReport {
		fmt.Printf("replayed=%d dropped=%d remaining=%d\n", report.Replayed, report.Dropped, report.Remaining)
	}
	if report.Remaining > 0 {
		return fmt.Errorf("%d writes still queued; the document store is unreachable", report.Remaining)
	}
	return nil
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			server.Logger().Fatal("Server failed to start or crashed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	server.Logger().Info("Received signal, shutting down server", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		server.Logger().Error("Server forced to shutdown", zap.Error(err))
	} else {
		server.Logger().Info("Server shutdown complete.")
	}
}
