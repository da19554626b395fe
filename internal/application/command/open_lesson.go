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
// OPEN / CLOSE LESSON COMMANDS
// Opening a lesson serves content from the module's single cache slot;
// a miss invokes the external generator once, bounded by a timeout, and
// persists whatever comes back (real content or the deterministic
// fallback). Closing clears the active pointer and nothing else.
// ══════════════════════════════════════════════════════════════════════════════

// OpenLessonCommand contains the data to open a module lesson.
type OpenLessonCommand struct {
	// UserID is the caller; must own the path.
	UserID string

	// PathID identifies the learning path.
	PathID string

	// ModuleIndex is the module whose lesson is opened. Must be unlocked.
	ModuleIndex int

	// Regenerate forces overwriting the cache slot with fresh content.
	// The only way to refresh an already-cached lesson.
	Regenerate bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c OpenLessonCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("open_lesson: user_id is required")
	}
	if c.PathID == "" {
		return errors.New("open_lesson: path_id is required")
	}
	if c.ModuleIndex < 0 {
		return fmt.Errorf("open_lesson: %w", learningpath.ErrModuleIndexOutOfRange)
	}
	return nil
}

// OpenLessonResult contains the opened lesson.
type OpenLessonResult struct {
	// PathID is the affected path.
	PathID string

	// ModuleIndex is the opened module.
	ModuleIndex int

	// Content is the lesson body (cached, generated, or fallback).
	Content *learningpath.LessonContent

	// CacheHit indicates the content came from the cache slot.
	CacheHit bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// OpenLessonHandler handles the OpenLessonCommand.
type OpenLessonHandler struct {
	pathRepo       learningpath.Repository
	generator      learningpath.Generator
	eventPublisher shared.EventPublisher

	// generationTimeout bounds the external call; on expiry the
	// deterministic fallback is cached instead.
	generationTimeout time.Duration
}

// NewOpenLessonHandler creates a new OpenLessonHandler.
func NewOpenLessonHandler(
	pathRepo learningpath.Repository,
	generator learningpath.Generator,
	eventPublisher shared.EventPublisher,
	generationTimeout time.Duration,
) *OpenLessonHandler {
	if generationTimeout <= 0 {
		generationTimeout = 30 * time.Second
	}
	return &OpenLessonHandler{
		pathRepo:          pathRepo,
		generator:         generator,
		eventPublisher:    eventPublisher,
		generationTimeout: generationTimeout,
	}
}

// Handle executes the open lesson command.
func (h *OpenLessonHandler) Handle(ctx context.Context, cmd OpenLessonCommand) (*OpenLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	lp, err := h.pathRepo.GetByID(ctx, learningpath.PathID(cmd.PathID))
	if err != nil {
		return nil, fmt.Errorf("open_lesson: %w", err)
	}
	if !lp.OwnedBy(progress.UserID(cmd.UserID)) {
		return nil, fmt.Errorf("open_lesson: %w", learningpath.ErrNotOwner)
	}

	if err := lp.OpenLesson(cmd.ModuleIndex, time.Now()); err != nil {
		return nil, fmt.Errorf("open_lesson: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, h.generationTimeout)
	defer cancel()

	var (
		content   *learningpath.LessonContent
		generated bool
	)
	if cmd.Regenerate {
		content, err = lp.Regenerate(genCtx, cmd.ModuleIndex, h.generator)
		generated = true
	} else {
		content, generated, err = lp.GetOrGenerate(genCtx, cmd.ModuleIndex, h.generator)
	}
	if err != nil {
		return nil, fmt.Errorf("open_lesson: %w", err)
	}

	if err := h.pathRepo.Update(ctx, lp); err != nil {
		return nil, fmt.Errorf("open_lesson: failed to save path: %w", err)
	}

	if generated && h.eventPublisher != nil {
		ev := shared.NewLessonGeneratedEvent(cmd.PathID, cmd.ModuleIndex, content.Fallback)
		ev.BaseEvent = ev.WithCorrelationID(cmd.CorrelationID)
		_ = h.eventPublisher.Publish(ev)
	}

	return &OpenLessonResult{
		PathID:      cmd.PathID,
		ModuleIndex: cmd.ModuleIndex,
		Content:     content,
		CacheHit:    !generated,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE LESSON
// ══════════════════════════════════════════════════════════════════════════════

// CloseLessonCommand clears the active lesson pointer of a path.
type CloseLessonCommand struct {
	// UserID is the caller; must own the path.
	UserID string

	// PathID identifies the learning path.
	PathID string
}

// Validate validates the command.
func (c CloseLessonCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("close_lesson: user_id is required")
	}
	if c.PathID == "" {
		return errors.New("close_lesson: path_id is required")
	}
	return nil
}

// CloseLessonHandler handles the CloseLessonCommand.
type CloseLessonHandler struct {
	pathRepo learningpath.Repository
}

// NewCloseLessonHandler creates a new CloseLessonHandler.
func NewCloseLessonHandler(pathRepo learningpath.Repository) *CloseLessonHandler {
	return &CloseLessonHandler{pathRepo: pathRepo}
}

// Handle executes the close lesson command. Idempotent: closing a path
// with no open lesson succeeds without a write.
func (h *CloseLessonHandler) Handle(ctx context.Context, cmd CloseLessonCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	lp, err := h.pathRepo.GetByID(ctx, learningpath.PathID(cmd.PathID))
	if err != nil {
		return fmt.Errorf("close_lesson: %w", err)
	}
	if !lp.OwnedBy(progress.UserID(cmd.UserID)) {
		return fmt.Errorf("close_lesson: %w", learningpath.ErrNotOwner)
	}

	if lp.ActiveLesson == nil {
		return nil
	}

	lp.CloseLesson()

	if err := h.pathRepo.Update(ctx, lp); err != nil {
		return fmt.Errorf("close_lesson: failed to save path: %w", err)
	}
	return nil
}
