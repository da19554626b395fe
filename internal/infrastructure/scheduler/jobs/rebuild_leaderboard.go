// Package jobs contains implementations of scheduled jobs for the
// LearnSphere progression engine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/leaderboard"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardJob rebuilds the Redis leaderboard view from the
// progress table. The table stays the source of truth; the view only
// has to be fresh enough for ranking pages.
type RebuildLeaderboardJob struct {
	progressRepo   progress.Repository
	cache          leaderboard.Cache
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	config RebuildLeaderboardConfig

	lastRebuildStats atomic.Value // *RebuildStats
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// MaxEntries is the maximum number of users to materialize.
	MaxEntries int

	// PageSize is the batch size for reading the progress table.
	PageSize int

	// CacheTTL is the TTL for the rebuilt view.
	CacheTTL time.Duration

	// Timeout is the maximum duration for the rebuild operation.
	Timeout time.Duration
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		MaxEntries: 10000,
		PageSize:   500,
		CacheTTL:   10 * time.Minute,
		Timeout:    5 * time.Minute,
	}
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	TotalUsers  int
	Entries     int
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
func NewRebuildLeaderboardJob(
	progressRepo progress.Repository,
	cache leaderboard.Cache,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &RebuildLeaderboardJob{
		progressRepo:   progressRepo,
		cache:          cache,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds the XP leaderboard view from the progress table"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RebuildStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	total, err := j.progressRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count progress records: %w", err)
	}
	stats.TotalUsers = total

	entries, err := j.collectEntries(ctx)
	if err != nil {
		return err
	}
	stats.Entries = len(entries)

	if err := j.cache.Rebuild(ctx, entries, j.config.CacheTTL); err != nil {
		return fmt.Errorf("rebuild leaderboard cache: %w", err)
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRebuildStats.Store(stats)

	j.logger.Info("leaderboard rebuilt",
		"entries", stats.Entries,
		"total_users", stats.TotalUsers,
		"duration", stats.Duration.String(),
	)

	if j.eventPublisher != nil {
		event := shared.NewBaseEvent(shared.EventLeaderboardRebuilt, "leaderboard")
		if err := j.eventPublisher.Publish(rebuildEvent{BaseEvent: event, entries: stats.Entries}); err != nil {
			j.logger.Error("failed to publish rebuild event", "error", err)
		}
	}

	return nil
}

// collectEntries pages through the progress table, best ranked first.
func (j *RebuildLeaderboardJob) collectEntries(ctx context.Context) ([]leaderboard.Entry, error) {
	pageSize := j.config.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	entries := make([]leaderboard.Entry, 0, pageSize)
	for offset := 0; j.config.MaxEntries <= 0 || offset < j.config.MaxEntries; offset += pageSize {
		page, err := j.progressRepo.TopByXP(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("read progress page at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		for i, p := range page {
			entries = append(entries, leaderboard.EntryFromProgress(p, offset+i+1))
		}

		if len(page) < pageSize {
			break
		}
	}

	return entries, nil
}

// LastStats returns statistics from the most recent rebuild, if any.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	v := j.lastRebuildStats.Load()
	if v == nil {
		return nil
	}
	return v.(*RebuildStats)
}

// rebuildEvent is the event published after a successful rebuild.
type rebuildEvent struct {
	shared.BaseEvent
	entries int
}

func (e rebuildEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"entries": e.entries,
	}
}
