package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/notekeep/recovery/internal/control"
	"github.com/notekeep/recovery/internal/core/config"
	"github.com/notekeep/recovery/internal/core/domain"
	"github.com/notekeep/recovery/internal/engine"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	simulate := flag.Bool("simulate", false, "Inject synthetic failures for smoke testing")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Load configuration first (before setting up logger)
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	}
	log := slog.New(handler)
	slog.SetDefault(log)
	slog.Info("Logger initialized", "level", slogLevel.String())

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the recovery service
	app, err := control.New(ctx, *cfg, control.Options{
		Presenter: consolePresenter{log: log},
	}, log)
	if err != nil {
		slog.Error("Failed to initialize recovery service", "error", err)
		os.Exit(1)
	}

	// Handle OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start recovery service", "error", err)
		os.Exit(1)
	}

	if *simulate {
		app.Registry().Register("search", func(ctx context.Context) error {
			log.Info("Simulated search component restarted")
			return nil
		})
		go simulateFailures(ctx)
	}

	// Wait for signal
	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Recovery service stopped gracefully")
}

// consolePresenter logs prompts instead of showing UI. The daemon has no
// interactive surface; hosts embedding the engine supply their own.
type consolePresenter struct {
	log *slog.Logger
}

func (p consolePresenter) PresentChoices(f domain.Failure, choices []domain.Choice) {
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.Label
	}
	p.log.Warn("User choice required", "kind", f.Kind, "choices", labels)
}

func (p consolePresenter) RequireIntervention(f domain.Failure, message string) {
	p.log.Error("User intervention required", "kind", f.Kind, "message", message)
}

// simulateFailures feeds a handful of representative failures through the
// engine so a fresh deployment can be smoke tested end to end. The index
// corruption is reported with its retries already spent so the component
// restart path shows up, not just a dropped retry.
func simulateFailures(ctx context.Context) {
	exhausted := domain.NewErrorContext("search", "query", nil, nil)
	exhausted.RetryCount = 3

	failures := []struct {
		f  domain.Failure
		ec domain.ErrorContext
	}{
		{domain.NetworkUnavailable(), domain.NewErrorContext("sync", "push", nil, nil)},
		{domain.CaptureTimeout(5 * time.Second), domain.NewErrorContext("capture", "screenshot", nil, nil)},
		{domain.SyncConflict("v3", "v5"), domain.NewErrorContext("sync", "merge", nil, nil)},
		{domain.Failure{Kind: domain.KindIndexCorrupted, Reason: "checksum mismatch"}, exhausted},
	}

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for _, sim := range failures {
		select {
		case <-ticker.C:
			engine.Report(sim.f, sim.ec)
		case <-ctx.Done():
			return
		}
	}
}
