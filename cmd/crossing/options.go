package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/anggasct/crossing/pkg/config"
	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/feed"
	"github.com/anggasct/crossing/pkg/observers"
)

var errHelp = errors.New("help requested")

type options struct {
	cfg       config.Config
	logLevel  observers.LogLevel
	interval  time.Duration
	serveAddr string
	dotPath   string
	jsonOut   bool
	quiet     bool
}

// parseOptions overlays flags on the configuration file, or on the defaults
func parseOptions(args []string) (options, error) {
	return parseOptionsTo(args, os.Stderr)
}

func parseOptionsTo(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("crossing", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		mode       = fs.String("mode", "", "concurrency backend: shared|threads or isolated|processes")
		cycles     = fs.Int("cycles", 0, "number of full cycles to run")
		configPath = fs.String("config", "", "YAML configuration file")
		seed       = fs.Uint64("seed", 0, "arrival seed, 0 picks one at random")
		arrival    = fs.Float64("arrival", -1, "per-tick arrival probability")
		logLevel   = fs.String("log-level", "info", "error, warning, info or debug")
		interval   = fs.Duration("interval", feed.DefaultInterval, "panel and feed polling interval")
		serveAddr  = fs.String("serve", "", "publish snapshots over WebSocket on this address")
		dotPath    = fs.String("dot", "", "write the phase cycle diagram to this file and exit")
		jsonOut    = fs.Bool("json", false, "print the final snapshot as JSON")
		quiet      = fs.Bool("quiet", false, "do not print the panel")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return options{}, errHelp
		}
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return options{}, err
		}
		cfg = loaded
	}

	if *mode != "" {
		cfg.Mode = core.Mode(*mode)
	}
	if *cycles != 0 {
		cfg.Cycles = *cycles
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *arrival >= 0 {
		cfg.ArrivalProbability = *arrival
	}

	cfg, err := cfg.Normalize()
	if err != nil {
		return options{}, err
	}
	if err := cfg.Validate(); err != nil {
		return options{}, err
	}

	return options{
		cfg:       cfg,
		logLevel:  observers.ParseLogLevel(*logLevel),
		interval:  *interval,
		serveAddr: *serveAddr,
		dotPath:   *dotPath,
		jsonOut:   *jsonOut,
		quiet:     *quiet,
	}, nil
}
