// Package saga contains business processes that orchestrate multiple
// domain operations in a coordinated manner.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/application/command"
	"github.com/learnsphere/learnsphere-backend/internal/domain/achievement"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT FLOW SAGA
// Flow: Load Snapshot → Load Earned → Evaluate Criteria → Grant (unique
// constraint absorbs concurrent double-grants) → Award XP Reward →
// Publish Events
//
// The XP reward re-enters the ledger but deliberately does NOT re-run
// evaluation: reward XP re-triggering the evaluator would loop forever
// on catalog entries keyed off totalXp. Evaluation only runs where a
// command handler explicitly invokes this saga.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementFlowInput contains data needed to evaluate achievements.
type AchievementFlowInput struct {
	// UserID - the user to evaluate achievements for.
	UserID string

	// TriggerEvent - what triggered this evaluation (for tracing).
	TriggerEvent string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate checks if the input is valid.
func (i AchievementFlowInput) Validate() error {
	if i.UserID == "" {
		return errors.New("achievement_flow: user id is required")
	}
	return nil
}

// AchievementFlowResult contains the result of achievement processing.
type AchievementFlowResult struct {
	// UserID - the user who was evaluated.
	UserID string

	// Unlocked - newly granted achievements.
	Unlocked []achievement.Achievement

	// TotalXPReward - total XP awarded for the new achievements.
	TotalXPReward int

	// ProcessedAt - when the flow completed.
	ProcessedAt time.Time
}

// HasNewAchievements returns true if any achievements were granted.
func (r *AchievementFlowResult) HasNewAchievements() bool {
	return len(r.Unlocked) > 0
}

// AchievementFlowSaga orchestrates evaluation, granting and rewarding.
type AchievementFlowSaga struct {
	progressRepo    progress.Repository
	achievementRepo achievement.Repository
	evaluator       *achievement.Evaluator
	addXP           *command.AddXPHandler
	eventPublisher  shared.EventPublisher
}

// NewAchievementFlowSaga creates a new AchievementFlowSaga.
func NewAchievementFlowSaga(
	progressRepo progress.Repository,
	achievementRepo achievement.Repository,
	addXP *command.AddXPHandler,
	eventPublisher shared.EventPublisher,
) *AchievementFlowSaga {
	return &AchievementFlowSaga{
		progressRepo:    progressRepo,
		achievementRepo: achievementRepo,
		evaluator:       achievement.NewEvaluator(),
		addXP:           addXP,
		eventPublisher:  eventPublisher,
	}
}

// Execute runs the achievement flow for a user.
//
// Idempotence: a second run with no intervening state change finds every
// satisfied criterion already granted and returns an empty result. Under
// concurrent evaluation the repository's unique (user, achievement)
// constraint makes Insert return false for the loser, and only the
// winning call awards the XP reward.
func (s *AchievementFlowSaga) Execute(ctx context.Context, input AchievementFlowInput) (*AchievementFlowResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	userID := progress.UserID(input.UserID)

	snapshot, err := s.progressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("achievement_flow: failed to load progress: %w", err)
	}

	earned, err := s.achievementRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("achievement_flow: failed to load earned achievements: %w", err)
	}

	candidates := s.evaluator.Evaluate(snapshot, earned)

	result := &AchievementFlowResult{
		UserID:      input.UserID,
		Unlocked:    make([]achievement.Achievement, 0, len(candidates)),
		ProcessedAt: time.Now().UTC(),
	}

	for _, a := range candidates {
		inserted, err := s.achievementRepo.Insert(ctx, achievement.Grant(userID, a, time.Now()))
		if err != nil {
			return result, fmt.Errorf("achievement_flow: failed to grant %s: %w", a.ID, err)
		}
		if !inserted {
			// A concurrent evaluation got here first - skip reward too
			continue
		}

		result.Unlocked = append(result.Unlocked, a)

		// Reward XP goes through the single ledger write path. This
		// call must not invoke Execute again.
		if s.addXP != nil && a.XPReward > 0 {
			_, err := s.addXP.Handle(ctx, command.AddXPCommand{
				UserID:        input.UserID,
				Amount:        int(a.XPReward),
				Reason:        command.ReasonAchievementReward,
				CorrelationID: input.CorrelationID,
			})
			if err != nil {
				return result, fmt.Errorf("achievement_flow: failed to award xp for %s: %w", a.ID, err)
			}
			result.TotalXPReward += int(a.XPReward)
		}

		if s.eventPublisher != nil {
			ev := shared.NewAchievementUnlockedEvent(
				input.UserID, string(a.ID), string(a.Rarity), int(a.XPReward),
			)
			ev.BaseEvent = ev.WithCorrelationID(input.CorrelationID)
			_ = s.eventPublisher.Publish(ev)
		}
	}

	return result, nil
}

// EvaluateFor is a convenience wrapper used by command handlers that only
// need the side effects. Satisfies command.AchievementEvaluator.
func (s *AchievementFlowSaga) EvaluateFor(ctx context.Context, userID, trigger, correlationID string) error {
	_, err := s.Execute(ctx, AchievementFlowInput{
		UserID:        userID,
		TriggerEvent:  trigger,
		CorrelationID: correlationID,
	})
	return err
}
