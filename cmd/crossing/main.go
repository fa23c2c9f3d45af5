// Package main implements the crossing CLI.
//
// It runs one intersection simulation with the selected backend, prints the
// per-direction panel every poll and optionally publishes snapshots over WebSocket.
//
// Usage:
//
//	crossing --mode threads --cycles 5
//	crossing --config crossing.yaml --serve :8080
//	crossing --mode processes --json
//	crossing --dot phases.dot
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/anggasct/crossing"
	"github.com/anggasct/crossing/pkg/feed"
	"github.com/anggasct/crossing/pkg/observers"
	"github.com/anggasct/crossing/visualization"
	"github.com/charmbracelet/log"
)

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level observers.LogLevel) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "crossing",
	})
	logger.SetLevel(level.Charm())
	return logger
}

func logEnvironment(logger *log.Logger, cfg crossing.Config) {
	exe, _ := os.Executable()
	logger.Info("environment",
		"go", runtime.Version(),
		"os", runtime.GOOS+"/"+runtime.GOARCH,
		"cpus", runtime.NumCPU(),
		"executable", exe)
	logger.Info("configuration", "mode", cfg.Mode, "cycles", cfg.Cycles, "seed", cfg.Seed)
	logger.Info("parameters",
		"tick", cfg.Timing.Tick,
		"green", cfg.Timing.Green,
		"yellow", cfg.Timing.Yellow,
		"arrival_probability", cfg.ArrivalProbability)
}

func run(opts options) error {
	logger := newLogger(opts.logLevel)

	if opts.dotPath != "" {
		if err := visualization.NewDOTGenerator().GenerateToFile(opts.dotPath); err != nil {
			return err
		}
		logger.Info("phase diagram written", "path", opts.dotPath)
		return nil
	}

	logEnvironment(logger, opts.cfg)

	session, err := crossing.NewSession(opts.cfg, observers.NewLoggingObserverWithLogger(logger, opts.logLevel))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.serveAddr != "" {
		srv := feed.NewServer(session, opts.interval, logger)
		httpSrv := &http.Server{Addr: opts.serveAddr, Handler: srv.Handler()}
		go func() { _ = srv.Run(ctx) }()
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("feed server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving snapshots", "addr", opts.serveAddr)
	}

	if err := session.Start(); err != nil {
		return err
	}

	panel := visualization.NewPanel(os.Stdout)
	final := poll(ctx, session, panel, opts)

	if err := session.Stop(); err != nil {
		logger.Warn("stop failed", "err", err)
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(final); err != nil {
			return err
		}
	}

	logger.Info("summary",
		"cycles", final.Cycle,
		"crossed", final.TotalCrossed(),
		"ended", final.Ended,
		"elapsed", final.Elapsed.Round(time.Millisecond))
	if ctx.Err() != nil {
		logger.Warn("interrupted before the cycle target")
	}
	return nil
}

// poll renders the panel until the run ends or ctx is cancelled and returns the
// last live snapshot
func poll(ctx context.Context, session *crossing.Session, panel *visualization.Panel, opts options) crossing.Snapshot {
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	render := func() crossing.Snapshot {
		snap := session.Snapshot()
		if !opts.quiet {
			_, _ = panel.Render(snap)
		}
		return snap
	}

	for {
		select {
		case <-ctx.Done():
			return render()
		case <-session.Done():
			return render()
		case <-ticker.C:
			render()
		}
	}
}
