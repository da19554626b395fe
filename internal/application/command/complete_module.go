package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE MODULE COMMAND
// Advances the frontier of a learning path by exactly one module and fans
// out the progression chain: XP credit → streak transition → achievement
// evaluation (invoked by the caller via the saga).
// ══════════════════════════════════════════════════════════════════════════════

// XP credited per completed module, scaled by difficulty.
var moduleXPReward = map[learningpath.Difficulty]int{
	learningpath.DifficultyBeginner:     50,
	learningpath.DifficultyIntermediate: 100,
	learningpath.DifficultyAdvanced:     200,
}

// PathCompletionBonus is the extra XP for finishing the whole path.
const PathCompletionBonus = 500

// AchievementEvaluator runs achievement evaluation after the ledger
// update. Implemented by the achievement flow saga.
type AchievementEvaluator interface {
	EvaluateFor(ctx context.Context, userID, trigger, correlationID string) error
}

// CompleteModuleCommand contains the data to complete a module.
type CompleteModuleCommand struct {
	// UserID is the caller; must own the path.
	UserID string

	// PathID identifies the learning path.
	PathID string

	// ModuleIndex is the module being completed. Must equal the
	// current frontier.
	ModuleIndex int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteModuleCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("complete_module: user_id is required")
	}
	if c.PathID == "" {
		return errors.New("complete_module: path_id is required")
	}
	if c.ModuleIndex < 0 {
		return fmt.Errorf("complete_module: %w", learningpath.ErrModuleIndexOutOfRange)
	}
	return nil
}

// CompleteModuleResult contains the result of completing a module.
type CompleteModuleResult struct {
	// PathID is the affected path.
	PathID string

	// CompletedModules is the frontier after the completion.
	CompletedModules int

	// Progress is the completion percentage after the completion.
	Progress int

	// PathCompleted indicates the whole path is now finished.
	PathCompleted bool

	// XPAwarded is the XP credited for this completion (incl. bonus).
	XPAwarded int

	// TotalXP and Level reflect the ledger after the credit.
	TotalXP int
	Level   int

	// CurrentStreak is the streak after the transition.
	CurrentStreak int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteModuleHandler handles the CompleteModuleCommand.
type CompleteModuleHandler struct {
	pathRepo       learningpath.Repository
	addXP          *AddXPHandler
	recordStreak   *RecordStreakHandler
	achievements   AchievementEvaluator
	eventPublisher shared.EventPublisher
}

// NewCompleteModuleHandler creates a new CompleteModuleHandler.
func NewCompleteModuleHandler(
	pathRepo learningpath.Repository,
	addXP *AddXPHandler,
	recordStreak *RecordStreakHandler,
	achievements AchievementEvaluator,
	eventPublisher shared.EventPublisher,
) *CompleteModuleHandler {
	return &CompleteModuleHandler{
		pathRepo:       pathRepo,
		addXP:          addXP,
		recordStreak:   recordStreak,
		achievements:   achievements,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the complete module command.
//
// The frontier advance is an optimistic conditional write: the storage
// update applies only while completedModules still equals the index the
// caller saw. A stale replay or a concurrent duplicate loses that check
// and is rejected as a no-op - the client refetches instead of retrying.
func (h *CompleteModuleHandler) Handle(ctx context.Context, cmd CompleteModuleCommand) (*CompleteModuleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	lp, err := h.pathRepo.GetByID(ctx, learningpath.PathID(cmd.PathID))
	if err != nil {
		return nil, fmt.Errorf("complete_module: %w", err)
	}
	if !lp.OwnedBy(progress.UserID(cmd.UserID)) {
		return nil, fmt.Errorf("complete_module: %w", learningpath.ErrNotOwner)
	}

	// Domain check first: rejects out-of-range and out-of-order without
	// touching storage
	if err := lp.CompleteModule(cmd.ModuleIndex); err != nil {
		return nil, fmt.Errorf("complete_module: %w", err)
	}

	advanced, err := h.pathRepo.AdvanceFrontier(ctx, lp.ID, cmd.ModuleIndex)
	if err != nil {
		return nil, fmt.Errorf("complete_module: failed to advance frontier: %w", err)
	}
	if !advanced {
		return nil, fmt.Errorf("complete_module: %w", learningpath.ErrOutOfOrderCompletion)
	}

	// Frontier advanced - persist the cleared lesson pointer too
	if err := h.pathRepo.Update(ctx, lp); err != nil {
		return nil, fmt.Errorf("complete_module: failed to save path: %w", err)
	}

	result := &CompleteModuleResult{
		PathID:           cmd.PathID,
		CompletedModules: lp.CompletedModules,
		Progress:         lp.Progress(),
		PathCompleted:    lp.Status() == learningpath.StatusCompleted,
	}

	xpAmount := moduleXPReward[lp.Modules[cmd.ModuleIndex].Difficulty]
	if xpAmount == 0 {
		xpAmount = moduleXPReward[learningpath.DifficultyBeginner]
	}
	if result.PathCompleted {
		xpAmount += PathCompletionBonus
	}

	xpResult, err := h.addXP.Handle(ctx, AddXPCommand{
		UserID:        cmd.UserID,
		Amount:        xpAmount,
		Reason:        ReasonModuleCompleted,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("complete_module: failed to credit xp: %w", err)
	}
	result.XPAwarded = xpAmount
	result.TotalXP = xpResult.TotalXP
	result.Level = xpResult.Level

	streakResult, err := h.recordStreak.Handle(ctx, RecordStreakCommand{
		UserID:        cmd.UserID,
		At:            time.Now().UTC(),
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("complete_module: failed to update streak: %w", err)
	}
	result.CurrentStreak = streakResult.CurrentStreak

	// Achievements run last so the evaluation sees the post-credit snapshot
	if h.achievements != nil {
		if err := h.achievements.EvaluateFor(ctx, cmd.UserID, "module_completed", cmd.CorrelationID); err != nil {
			return nil, fmt.Errorf("complete_module: achievement evaluation failed: %w", err)
		}
	}

	if h.eventPublisher != nil {
		moduleEvent := shared.NewModuleCompletedEvent(
			cmd.PathID, cmd.UserID, cmd.ModuleIndex, float64(lp.Progress()),
		)
		moduleEvent.BaseEvent = moduleEvent.WithCorrelationID(cmd.CorrelationID)
		_ = h.eventPublisher.Publish(moduleEvent)

		if result.PathCompleted {
			pathEvent := shared.NewPathCompletedEvent(cmd.PathID, cmd.UserID, len(lp.Modules))
			pathEvent.BaseEvent = pathEvent.WithCorrelationID(cmd.CorrelationID)
			_ = h.eventPublisher.Publish(pathEvent)
		}
	}

	return result, nil
}
