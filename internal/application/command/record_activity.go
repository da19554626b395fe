package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMAND
// Records a learning activity outside the module frontier: quiz attempts,
// studied resources, earned certificates and study time. Counters feed the
// achievement criteria; XP for rewarded activities still funnels through
// the single ledger write path.
// ══════════════════════════════════════════════════════════════════════════════

// Activity kinds accepted by the command.
const (
	ActivityQuiz        = "quiz"
	ActivityResource    = "resource"
	ActivityCertificate = "certificate"
	ActivityStudyTime   = "study_time"
)

// XP credited per activity kind. Failed quizzes and study time count
// toward achievements but carry no XP.
const (
	QuizPassXP          = 50
	ResourceCompletedXP = 25
	CertificateXP       = 200
)

// RecordActivityCommand contains the data to record a learning activity.
type RecordActivityCommand struct {
	// UserID is the user the activity belongs to.
	UserID string

	// Activity is one of the Activity* kinds.
	Activity string

	// Passed applies to quiz activities only.
	Passed bool

	// Minutes applies to study_time activities only. Must be non-negative.
	Minutes int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordActivityCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("record_activity: user_id is required")
	}
	if !progress.UserID(c.UserID).IsValid() {
		return fmt.Errorf("record_activity: %w", progress.ErrInvalidUserID)
	}
	switch c.Activity {
	case ActivityQuiz, ActivityResource, ActivityCertificate:
	case ActivityStudyTime:
		if c.Minutes < 0 {
			return fmt.Errorf("record_activity: %w", progress.ErrInvalidStudyTime)
		}
	default:
		return fmt.Errorf("record_activity: %w: %q", progress.ErrInvalidActivityKind, c.Activity)
	}
	return nil
}

// RecordActivityResult contains the result of recording an activity.
type RecordActivityResult struct {
	// UserID is the user whose counters were updated.
	UserID string

	// Activity echoes the recorded kind.
	Activity string

	// Counter values after the update.
	QuizzesCompleted   int
	QuizzesPassed      int
	ResourcesCompleted int
	CertificatesEarned int
	TotalStudyTime     int

	// XPAwarded is the XP credited for this activity (0 for unrewarded
	// kinds).
	XPAwarded int

	// TotalXP and Level reflect the ledger after the credit.
	TotalXP int
	Level   int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityHandler handles the RecordActivityCommand.
type RecordActivityHandler struct {
	progressRepo progress.Repository
	addXP        *AddXPHandler
	achievements AchievementEvaluator
}

// NewRecordActivityHandler creates a new RecordActivityHandler.
func NewRecordActivityHandler(
	progressRepo progress.Repository,
	addXP *AddXPHandler,
	achievements AchievementEvaluator,
) *RecordActivityHandler {
	return &RecordActivityHandler{
		progressRepo: progressRepo,
		addXP:        addXP,
		achievements: achievements,
	}
}

// Handle executes the record activity command.
//
// The counter update is persisted before the XP credit: if the credit
// fails the activity itself is still recorded, and a retry of the credit
// goes through the ledger's own atomic path.
func (h *RecordActivityHandler) Handle(ctx context.Context, cmd RecordActivityCommand) (*RecordActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	userID := progress.UserID(cmd.UserID)

	p, err := h.progressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("record_activity: failed to load progress: %w", err)
	}

	xpAmount := 0
	xpReason := ""

	switch cmd.Activity {
	case ActivityQuiz:
		p.RecordQuiz(cmd.Passed)
		if cmd.Passed {
			xpAmount = QuizPassXP
			xpReason = ReasonQuizPassed
		}
	case ActivityResource:
		p.RecordResourceCompleted()
		xpAmount = ResourceCompletedXP
		xpReason = ReasonResourceCompleted
	case ActivityCertificate:
		p.RecordCertificate()
		xpAmount = CertificateXP
		xpReason = ReasonCertificateEarned
	case ActivityStudyTime:
		if err := p.AddStudyTime(cmd.Minutes); err != nil {
			return nil, fmt.Errorf("record_activity: %w", err)
		}
	}

	if err := h.progressRepo.SaveCounters(ctx, p); err != nil {
		return nil, fmt.Errorf("record_activity: failed to save counters: %w", err)
	}

	result := &RecordActivityResult{
		UserID:             cmd.UserID,
		Activity:           cmd.Activity,
		QuizzesCompleted:   p.QuizzesCompleted,
		QuizzesPassed:      p.QuizzesPassed,
		ResourcesCompleted: p.ResourcesCompleted,
		CertificatesEarned: p.CertificatesEarned,
		TotalStudyTime:     p.TotalStudyTime,
		TotalXP:            int(p.TotalXP),
		Level:              int(p.Level),
	}

	if xpAmount > 0 {
		xpResult, err := h.addXP.Handle(ctx, AddXPCommand{
			UserID:        cmd.UserID,
			Amount:        xpAmount,
			Reason:        xpReason,
			CorrelationID: cmd.CorrelationID,
		})
		if err != nil {
			return nil, fmt.Errorf("record_activity: failed to credit xp: %w", err)
		}
		result.XPAwarded = xpAmount
		result.TotalXP = xpResult.TotalXP
		result.Level = xpResult.Level
	}

	// Achievements run last so the evaluation sees the updated counters
	if h.achievements != nil {
		if err := h.achievements.EvaluateFor(ctx, cmd.UserID, "activity_recorded", cmd.CorrelationID); err != nil {
			return nil, fmt.Errorf("record_activity: achievement evaluation failed: %w", err)
		}
	}

	return result, nil
}
