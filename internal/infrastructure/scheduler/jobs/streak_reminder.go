package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/settings"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
	"github.com/learnsphere/learnsphere-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REMINDER JOB
// ══════════════════════════════════════════════════════════════════════════════

// StreakReminderJob finds users whose streak will break at the next UTC
// midnight and publishes reminder events for them. Per-user settings
// gate delivery: reminders disabled or quiet hours mean skip, not defer.
type StreakReminderJob struct {
	progressRepo   progress.Repository
	settingsRepo   settings.Repository
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	config StreakReminderConfig
}

// StreakReminderConfig contains configuration for the reminder job.
type StreakReminderConfig struct {
	// MinStreakLength is the minimum streak worth reminding about.
	// Single-day streaks are cheap to restart and not worth the noise.
	MinStreakLength int

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultStreakReminderConfig returns sensible defaults.
func DefaultStreakReminderConfig() StreakReminderConfig {
	return StreakReminderConfig{
		MinStreakLength: 2,
		Timeout:         2 * time.Minute,
	}
}

// NewStreakReminderJob creates a new streak reminder job.
func NewStreakReminderJob(
	progressRepo progress.Repository,
	settingsRepo settings.Repository,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config StreakReminderConfig,
) *StreakReminderJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &StreakReminderJob{
		progressRepo:   progressRepo,
		settingsRepo:   settingsRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *StreakReminderJob) Name() string {
	return "streak_reminder"
}

// Description returns a human-readable description.
func (j *StreakReminderJob) Description() string {
	return "Publishes reminders for users whose streak is about to break"
}

// Run executes the reminder job.
func (j *StreakReminderJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	now := time.Now()
	today := timeutil.StartOfDay(now)

	atRisk, err := j.progressRepo.FindStreaksAtRisk(ctx, today)
	if err != nil {
		return fmt.Errorf("find streaks at risk: %w", err)
	}

	var sent, skipped int
	for _, p := range atRisk {
		if p.CurrentStreak < j.config.MinStreakLength {
			skipped++
			continue
		}

		userSettings, err := j.settingsRepo.GetOrDefault(ctx, p.UserID)
		if err != nil {
			j.logger.Error("failed to load user settings",
				"user_id", p.UserID.String(), "error", err)
			continue
		}

		if !userSettings.CanNotify(now) {
			skipped++
			continue
		}

		event := reminderEvent{
			BaseEvent:     shared.NewBaseEvent(shared.EventReminderSent, p.UserID.String()),
			currentStreak: p.CurrentStreak,
		}
		if err := j.eventPublisher.Publish(event); err != nil {
			j.logger.Error("failed to publish reminder",
				"user_id", p.UserID.String(), "error", err)
			continue
		}
		sent++
	}

	j.logger.Info("streak reminders processed",
		"at_risk", len(atRisk),
		"sent", sent,
		"skipped", skipped,
	)

	return nil
}

// reminderEvent is published for each user reminded about their streak.
type reminderEvent struct {
	shared.BaseEvent
	currentStreak int
}

func (e reminderEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.AggregateID(),
		"current_streak": e.currentStreak,
		"kind":           "streak_at_risk",
	}
}
