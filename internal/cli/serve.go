package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/pacer/internal/config"
	"github.com/haskel/pacer/internal/logger"
	"github.com/haskel/pacer/internal/monitor"
	"github.com/haskel/pacer/internal/server"
)

// statusInterval is how often process metrics are sampled for /status.
const statusInterval = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Start the pacer API server",
	Long: `Start the pacer API server in foreground mode.

The learner snapshot is restored from the data directory on start, flushed
periodically while serving and saved again on shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault(cfgFile)

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	log.Info("pacer starting",
		"version", Version,
		"config", cfgFile,
		"learner", cfg.Engine.Learner,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := buildEngine(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	if eng.storage != nil {
		if err := eng.storage.Load(); err != nil {
			log.Warn("failed to load snapshot", "error", err)
		}
		eng.storage.Start(ctx)
	}

	monitors := []monitor.Monitor{monitor.NewMemoryMonitor()}
	if pm, err := monitor.NewProcessMonitor(); err != nil {
		log.Warn("process metrics unavailable", "error", err)
	} else {
		monitors = append(monitors, pm)
	}

	agg := monitor.NewAggregator(monitors, statusInterval, log)
	if err := agg.Start(ctx); err != nil {
		return fmt.Errorf("failed to start aggregator: %w", err)
	}

	if cfg.Server.PIDFile != "" {
		if err := writePIDFile(cfg.Server.PIDFile); err != nil {
			log.Warn("failed to write PID file", "error", err)
		} else {
			defer os.Remove(cfg.Server.PIDFile)
		}
	}

	deps := server.Deps{
		Loop:       eng.loop,
		Storage:    eng.storage,
		Aggregator: agg,
	}
	if eng.events != nil {
		deps.Events = eng.events
	}
	srv := server.New(cfg, deps, log, Version)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		signal.Stop(sigCh)

		log.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}

		if eng.storage != nil {
			if err := eng.storage.Stop(); err != nil {
				log.Error("storage shutdown error", "error", err)
			}
		}

		agg.Stop()
		cancel()
	}()

	log.Info("pacer ready", "addr", srv.Addr())

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-ctx.Done()
	log.Info("pacer stopped")
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}
