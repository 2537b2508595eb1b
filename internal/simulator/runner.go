package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrVerification reports stored events that do not match the run.
var ErrVerification = errors.New("verification failed")

// Run executes a simulated match against config.BaseURL.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulator")

	matchID := config.MatchID
	if matchID == "" {
		matchID = "sim-" + uuid.NewString()[:8]
	}
	log.Info(ctx, "starting match simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("match", matchID),
		logger.Int("possessions", config.Possessions),
		logger.Duration("interval", config.Interval),
		logger.Int64("seed", int64(config.Seed)))

	client := NewClient(config.BaseURL, config.Timeout)

	// Step 1: Check service readiness
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Seed the roster and the assignments
	players := Roster(matchID, config.TeamSize)
	if err := seed(ctx, client, matchID, players); err != nil {
		return stats, fmt.Errorf("seeding failed: %w", err)
	}

	// Step 3: Join every tracker
	trackers := []string{BallTracker, HomeTracker, AwayTracker}
	for _, t := range trackers {
		if err := client.Join(ctx, matchID, t); err != nil {
			return stats, fmt.Errorf("join %s: %w", t, err)
		}
	}
	defer func() {
		for _, t := range trackers {
			if err := client.Leave(context.WithoutCancel(ctx), matchID, t); err != nil {
				log.Warn(ctx, "leave failed", logger.String("tracker", t), logger.Error(err))
			}
		}
	}()

	// Step 4: Announce the possession sequence
	seq := Sequence(players, config.Possessions, config.Seed)
	stats.ExpectedMoves = ExpectedMoves(seq)
	if err := announce(ctx, client, config, matchID, seq, stats, log); err != nil {
		return stats, err
	}

	// Step 5: Let broadcasts land, then classify everything
	if err := sleep(ctx, config.Settle); err != nil {
		return stats, err
	}
	for _, t := range []string{HomeTracker, AwayTracker} {
		n, err := client.CommitAll(ctx, matchID, t, config.Label)
		if err != nil {
			return stats, fmt.Errorf("commit-all %s: %w", t, err)
		}
		stats.Committed += n
	}

	// Step 6: Verify what was stored
	rows, err := client.Events(ctx, matchID)
	if err != nil {
		return stats, fmt.Errorf("event retrieval failed: %w", err)
	}
	stats.Stored = len(rows)
	if err := verify(rows, stats); err != nil {
		return stats, err
	}

	if config.OutputFile != "" {
		if err := saveEvents(config.OutputFile, rows); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func seed(ctx context.Context, client *Client, matchID string, players []model.Player) error {
	if err := client.PutRoster(ctx, matchID, players); err != nil {
		return err
	}
	side := func(team model.TeamSide) []string {
		var ids []string
		for _, p := range players {
			if p.Team == team {
				ids = append(ids, p.ID)
			}
		}
		return ids
	}
	assignments := []model.Assignment{
		{MatchID: matchID, TrackerID: BallTracker, Role: model.RolePossession},
		{MatchID: matchID, TrackerID: HomeTracker, Role: model.RolePlayer, PlayerIDs: side(model.TeamHome)},
		{MatchID: matchID, TrackerID: AwayTracker, Role: model.RolePlayer, PlayerIDs: side(model.TeamAway)},
	}
	for _, a := range assignments {
		if err := client.PutAssignment(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func announce(ctx context.Context, client *Client, config *Config, matchID string, seq []model.Player, stats *Stats, log logger.Logger) error {
	for i, p := range seq {
		if i > 0 {
			if err := sleep(ctx, config.Interval); err != nil {
				return err
			}
		}
		inferred, err := client.Possession(ctx, matchID, BallTracker, p.ID)
		if err != nil {
			stats.Rejected++
			log.Warn(ctx, "possession rejected", logger.String("player", p.ID), logger.Error(err))
			continue
		}
		stats.Announced++
		if inferred {
			stats.Inferred++
		}
		if config.Verbose {
			log.Info(ctx, "possession announced",
				logger.Int("step", i+1),
				logger.String("player", p.ID),
				logger.String("team", string(p.Team)),
				logger.Bool("inferred", inferred))
		}
	}
	return nil
}

// verify checks the stored rows against what the run produced.
func verify(rows []model.PersistedEvent, stats *Stats) error {
	moves, inferred, classified := 0, 0, 0
	for _, r := range rows {
		if !r.Details.Inferred {
			classified++
			continue
		}
		inferred++
		if r.EventType == model.EventPass || r.EventType == model.EventInterception {
			moves++
		}
	}
	switch {
	case stats.Rejected == 0 && moves != stats.ExpectedMoves:
		return fmt.Errorf("%w: %d passes and interceptions stored, %d holder changes announced", ErrVerification, moves, stats.ExpectedMoves)
	case inferred != stats.Inferred:
		return fmt.Errorf("%w: %d inferred rows stored, %d reported", ErrVerification, inferred, stats.Inferred)
	case classified != stats.Committed:
		return fmt.Errorf("%w: %d classified rows stored, %d committed", ErrVerification, classified, stats.Committed)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// saveEvents writes rows as a JSON array.
func saveEvents(filename string, rows []model.PersistedEvent) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("announced", stats.Announced),
		logger.Int("rejected", stats.Rejected),
		logger.Int("expectedMoves", stats.ExpectedMoves),
		logger.Int("inferred", stats.Inferred),
		logger.Int("committed", stats.Committed),
		logger.Int("stored", stats.Stored),
		logger.Duration("duration", stats.Duration))
}
