package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/matchtrack/internal/simulator"
	"github.com/okian/matchtrack/pkg/logger"
)

// Default configuration constants.
const (
	defaultPossessions = 40
	defaultTeamSize    = 11
	defaultInterval    = 700 * time.Millisecond
	defaultSettle      = time.Second
	defaultTimeout     = 10 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		matchID     = flag.String("match", "", "Match id (default: generated)")
		possessions = flag.Int("possessions", defaultPossessions, "Number of possession announcements")
		teamSize    = flag.Int("team-size", defaultTeamSize, "Players per team")
		interval    = flag.Duration("interval", defaultInterval, "Pause between announcements")
		settle      = flag.Duration("settle", defaultSettle, "Wait before classifying")
		label       = flag.String("label", "pass_short", "Label for every obligation")
		seed        = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Sequence seed")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Write the stored events to this JSON file")
		logFormat   = flag.String("log-format", "text", "Log format: text or json")
		verbose     = flag.Bool("verbose", false, "Log every announcement")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &simulator.Config{
		BaseURL:     *baseURL,
		MatchID:     *matchID,
		Possessions: *possessions,
		TeamSize:    *teamSize,
		Interval:    *interval,
		Settle:      *settle,
		Timeout:     *timeout,
		Label:       *label,
		Seed:        *seed,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	}

	if _, err := simulator.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
