package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD STREAK COMMAND
// Runs one streak transition for a user. Transitions compare calendar
// dates, not timestamps, so a second call on the same day is a no-op.
// ══════════════════════════════════════════════════════════════════════════════

// RecordStreakCommand contains the data to run a streak transition.
type RecordStreakCommand struct {
	// UserID is the user whose streak is updated.
	UserID string

	// At is when the qualifying activity happened (defaults to now).
	At time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordStreakCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("record_streak: user_id is required")
	}
	if !progress.UserID(c.UserID).IsValid() {
		return fmt.Errorf("record_streak: %w", progress.ErrInvalidUserID)
	}
	return nil
}

// RecordStreakResult contains the result of a streak transition.
type RecordStreakResult struct {
	// UserID is the user whose streak was updated.
	UserID string

	// Outcome describes what the transition did (noop/extended/started).
	Outcome string

	// CurrentStreak is the streak after the transition.
	CurrentStreak int

	// LongestStreak is the best streak after the transition.
	LongestStreak int

	// Broken indicates a non-trivial streak was reset by a gap.
	Broken bool

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordStreakHandler handles the RecordStreakCommand.
type RecordStreakHandler struct {
	progressRepo   progress.Repository
	eventPublisher shared.EventPublisher
}

// NewRecordStreakHandler creates a new RecordStreakHandler.
func NewRecordStreakHandler(
	progressRepo progress.Repository,
	eventPublisher shared.EventPublisher,
) *RecordStreakHandler {
	return &RecordStreakHandler{
		progressRepo:   progressRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the streak transition.
func (h *RecordStreakHandler) Handle(ctx context.Context, cmd RecordStreakCommand) (*RecordStreakResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	at := cmd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	userID := progress.UserID(cmd.UserID)

	p, err := h.progressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("record_streak: failed to load progress: %w", err)
	}

	transition := p.RecordActivity(at)

	// The no-op branch changes nothing, so skip the write entirely
	if transition.Outcome != progress.StreakOutcomeNoop {
		if err := h.progressRepo.SaveStreak(ctx, p); err != nil {
			return nil, fmt.Errorf("record_streak: failed to save streak: %w", err)
		}
	}

	result := &RecordStreakResult{
		UserID:        cmd.UserID,
		Outcome:       string(transition.Outcome),
		CurrentStreak: transition.CurrentStreak,
		LongestStreak: transition.LongestStreak,
		Broken:        transition.Broken(),
		Events:        make([]shared.Event, 0, 2),
	}

	if transition.Outcome != progress.StreakOutcomeNoop {
		updated := shared.NewStreakUpdatedEvent(cmd.UserID, transition.CurrentStreak, transition.LongestStreak)
		updated.BaseEvent = updated.WithCorrelationID(cmd.CorrelationID)
		result.Events = append(result.Events, updated)
	}
	if transition.Broken() {
		broken := shared.NewStreakBrokenEvent(cmd.UserID, transition.PreviousStreak, transition.DaysMissed)
		broken.BaseEvent = broken.WithCorrelationID(cmd.CorrelationID)
		result.Events = append(result.Events, broken)
	}

	if h.eventPublisher != nil {
		for _, e := range result.Events {
			_ = h.eventPublisher.Publish(e)
		}
	}

	return result, nil
}
