// Package command contains write operations (CQRS - Commands).
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
// ADD XP COMMAND
// The single write path for XP. No other handler mutates totalXp or level
// directly: everything funnels through here so the increment-then-raise
// sequence stays race-safe.
// ══════════════════════════════════════════════════════════════════════════════

// XP gain reasons used across the engine.
const (
	ReasonModuleCompleted   = "module_completed"
	ReasonQuizPassed        = "quiz_passed"
	ReasonResourceCompleted = "resource_completed"
	ReasonCertificateEarned = "certificate_earned"
	ReasonAchievementReward = "achievement_reward"
	ReasonManual            = "manual"
)

// AddXPCommand contains the data to credit XP to a user.
type AddXPCommand struct {
	// UserID is the user receiving the XP.
	UserID string

	// Amount is the XP to credit. Must be positive.
	Amount int

	// Reason describes why the XP was credited (for the history ledger).
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AddXPCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("add_xp: user_id is required")
	}
	if !progress.UserID(c.UserID).IsValid() {
		return fmt.Errorf("add_xp: %w", progress.ErrInvalidUserID)
	}
	if c.Amount <= 0 {
		return fmt.Errorf("add_xp: %w", progress.ErrInvalidXPAmount)
	}
	if c.Reason == "" {
		return errors.New("add_xp: reason is required")
	}
	return nil
}

// AddXPResult contains the result of crediting XP.
type AddXPResult struct {
	// UserID is the user that was credited.
	UserID string

	// TotalXP is the XP total after the credit.
	TotalXP int

	// Level is the level after the credit.
	Level int

	// LeveledUp indicates whether this credit raised the level.
	LeveledUp bool

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AddXPHandler handles the AddXPCommand.
type AddXPHandler struct {
	progressRepo   progress.Repository
	historyRepo    progress.HistoryRepository
	eventPublisher shared.EventPublisher
}

// NewAddXPHandler creates a new AddXPHandler.
func NewAddXPHandler(
	progressRepo progress.Repository,
	historyRepo progress.HistoryRepository,
	eventPublisher shared.EventPublisher,
) *AddXPHandler {
	return &AddXPHandler{
		progressRepo:   progressRepo,
		historyRepo:    historyRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the add XP command.
//
// The storage increment is atomic (total_xp = total_xp + amount), so two
// concurrent +250 calls always end at +500 - no read-modify-write races.
// The level raise is a separate conditional update that only ever moves
// the level up; whichever concurrent call computes the highest level wins
// and the others become no-ops.
func (h *AddXPHandler) Handle(ctx context.Context, cmd AddXPCommand) (*AddXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	userID := progress.UserID(cmd.UserID)

	// Ensure the ledger record exists (get-or-create semantics)
	before, err := h.progressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("add_xp: failed to load progress: %w", err)
	}
	oldLevel := before.Level

	newTotal, err := h.progressRepo.IncrementXP(ctx, userID, progress.XP(cmd.Amount))
	if err != nil {
		return nil, fmt.Errorf("add_xp: failed to increment xp: %w", err)
	}

	newLevel := progress.LevelFromXP(newTotal)
	leveledUp := false
	if newLevel > oldLevel {
		raised, err := h.progressRepo.RaiseLevel(ctx, userID, newLevel)
		if err != nil {
			return nil, fmt.Errorf("add_xp: failed to raise level: %w", err)
		}
		leveledUp = raised
	} else {
		newLevel = oldLevel
	}

	entry := progress.XPHistoryEntry{
		UserID:     userID,
		Amount:     progress.XP(cmd.Amount),
		TotalAfter: newTotal,
		Reason:     cmd.Reason,
		Timestamp:  time.Now().UTC(),
	}
	// History is an audit trail, not the source of truth - a failed
	// append must not roll back the credit itself.
	if h.historyRepo != nil {
		_ = h.historyRepo.Append(ctx, entry)
	}

	result := &AddXPResult{
		UserID:  cmd.UserID,
		TotalXP: int(newTotal),
		Level:   int(newLevel),
		Events:  make([]shared.Event, 0, 2),
	}

	gained := shared.NewXPGainedEvent(cmd.UserID, cmd.Amount, int(newTotal), cmd.Reason)
	gained.BaseEvent = gained.WithCorrelationID(cmd.CorrelationID)
	result.Events = append(result.Events, gained)

	if leveledUp {
		result.LeveledUp = true
		levelUp := shared.NewLevelUpEvent(cmd.UserID, int(oldLevel), int(newLevel), int(newTotal))
		levelUp.BaseEvent = levelUp.WithCorrelationID(cmd.CorrelationID)
		result.Events = append(result.Events, levelUp)
	}

	h.publish(result.Events)

	return result, nil
}

// publish sends events; publishing failures are logged by the bus itself.
func (h *AddXPHandler) publish(events []shared.Event) {
	if h.eventPublisher == nil {
		return
	}
	for _, e := range events {
		_ = h.eventPublisher.Publish(e)
	}
}
