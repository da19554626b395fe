package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE / UPDATE / DELETE LEARNING PATH
// ══════════════════════════════════════════════════════════════════════════════

// ModuleInput describes one module of a path being created.
type ModuleInput struct {
	Title            string
	Difficulty       string
	Topics           []string
	EstimatedMinutes int
}

// CreatePathCommand contains the data to create a learning path.
type CreatePathCommand struct {
	// UserID is the owner of the new path.
	UserID string

	// Title is the path title.
	Title string

	// Description is the path description.
	Description string

	// Modules are the ordered modules of the path.
	Modules []ModuleInput

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreatePathCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("create_path: user_id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("create_path: %w", learningpath.ErrInvalidTitle)
	}
	if len(c.Modules) == 0 {
		return fmt.Errorf("create_path: %w", learningpath.ErrNoModules)
	}
	for i, m := range c.Modules {
		if strings.TrimSpace(m.Title) == "" {
			return fmt.Errorf("create_path: module %d: %w", i, learningpath.ErrInvalidTitle)
		}
	}
	return nil
}

// CreatePathHandler handles the CreatePathCommand.
type CreatePathHandler struct {
	pathRepo       learningpath.Repository
	eventPublisher shared.EventPublisher
}

// NewCreatePathHandler creates a new CreatePathHandler.
func NewCreatePathHandler(pathRepo learningpath.Repository, eventPublisher shared.EventPublisher) *CreatePathHandler {
	return &CreatePathHandler{pathRepo: pathRepo, eventPublisher: eventPublisher}
}

// Handle executes the create path command. The new path starts with a
// zero frontier: only the first module is unlocked.
func (h *CreatePathHandler) Handle(ctx context.Context, cmd CreatePathCommand) (*learningpath.LearningPath, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	modules := make([]learningpath.Module, 0, len(cmd.Modules))
	for _, m := range cmd.Modules {
		modules = append(modules, learningpath.Module{
			Title:            strings.TrimSpace(m.Title),
			Difficulty:       learningpath.Difficulty(m.Difficulty),
			Topics:           m.Topics,
			EstimatedMinutes: m.EstimatedMinutes,
		})
	}

	lp, err := learningpath.NewLearningPath(
		progress.UserID(cmd.UserID), cmd.Title, cmd.Description, modules,
	)
	if err != nil {
		return nil, fmt.Errorf("create_path: %w", err)
	}

	if err := h.pathRepo.Create(ctx, lp); err != nil {
		return nil, fmt.Errorf("create_path: failed to save: %w", err)
	}

	if h.eventPublisher != nil {
		ev := shared.NewBaseEvent(shared.EventPathCreated, lp.ID.String()).
			WithCorrelationID(cmd.CorrelationID)
		_ = h.eventPublisher.Publish(pathLifecycleEvent{BaseEvent: ev, UserID: cmd.UserID})
	}

	return lp, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PATH (partial, owner-checked)
// ══════════════════════════════════════════════════════════════════════════════

// UpdatePathCommand contains a partial update of path metadata.
// Frontier and lesson-cache changes do NOT go through here - they have
// their own commands with the proper concurrency guards.
type UpdatePathCommand struct {
	// UserID is the caller; must own the path.
	UserID string

	// PathID identifies the learning path.
	PathID string

	// Title, if non-nil, replaces the path title.
	Title *string

	// Description, if non-nil, replaces the description.
	Description *string
}

// Validate validates the command.
func (c UpdatePathCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("update_path: user_id is required")
	}
	if c.PathID == "" {
		return errors.New("update_path: path_id is required")
	}
	if c.Title == nil && c.Description == nil {
		return errors.New("update_path: nothing to update")
	}
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		return fmt.Errorf("update_path: %w", learningpath.ErrInvalidTitle)
	}
	return nil
}

// UpdatePathHandler handles the UpdatePathCommand.
type UpdatePathHandler struct {
	pathRepo learningpath.Repository
}

// NewUpdatePathHandler creates a new UpdatePathHandler.
func NewUpdatePathHandler(pathRepo learningpath.Repository) *UpdatePathHandler {
	return &UpdatePathHandler{pathRepo: pathRepo}
}

// Handle executes the update path command.
func (h *UpdatePathHandler) Handle(ctx context.Context, cmd UpdatePathCommand) (*learningpath.LearningPath, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	lp, err := h.pathRepo.GetByID(ctx, learningpath.PathID(cmd.PathID))
	if err != nil {
		return nil, fmt.Errorf("update_path: %w", err)
	}
	if !lp.OwnedBy(progress.UserID(cmd.UserID)) {
		return nil, fmt.Errorf("update_path: %w", learningpath.ErrNotOwner)
	}

	if cmd.Title != nil {
		lp.Title = strings.TrimSpace(*cmd.Title)
	}
	if cmd.Description != nil {
		lp.Description = strings.TrimSpace(*cmd.Description)
	}

	if err := h.pathRepo.Update(ctx, lp); err != nil {
		return nil, fmt.Errorf("update_path: failed to save: %w", err)
	}
	return lp, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE PATH
// ══════════════════════════════════════════════════════════════════════════════

// DeletePathCommand deletes a learning path.
type DeletePathCommand struct {
	// UserID is the caller; must own the path.
	UserID string

	// PathID identifies the learning path.
	PathID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c DeletePathCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("delete_path: user_id is required")
	}
	if c.PathID == "" {
		return errors.New("delete_path: path_id is required")
	}
	return nil
}

// DeletePathHandler handles the DeletePathCommand.
type DeletePathHandler struct {
	pathRepo       learningpath.Repository
	eventPublisher shared.EventPublisher
}

// NewDeletePathHandler creates a new DeletePathHandler.
func NewDeletePathHandler(pathRepo learningpath.Repository, eventPublisher shared.EventPublisher) *DeletePathHandler {
	return &DeletePathHandler{pathRepo: pathRepo, eventPublisher: eventPublisher}
}

// Handle executes the delete path command. Deleting an already-deleted
// path reports not-found consistently; callers may treat that as a
// benign idempotent outcome.
func (h *DeletePathHandler) Handle(ctx context.Context, cmd DeletePathCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	lp, err := h.pathRepo.GetByID(ctx, learningpath.PathID(cmd.PathID))
	if err != nil {
		return fmt.Errorf("delete_path: %w", err)
	}
	if !lp.OwnedBy(progress.UserID(cmd.UserID)) {
		return fmt.Errorf("delete_path: %w", learningpath.ErrNotOwner)
	}

	if err := h.pathRepo.Delete(ctx, lp.ID); err != nil {
		return fmt.Errorf("delete_path: %w", err)
	}

	if h.eventPublisher != nil {
		ev := shared.NewBaseEvent(shared.EventPathDeleted, cmd.PathID).
			WithCorrelationID(cmd.CorrelationID)
		_ = h.eventPublisher.Publish(pathLifecycleEvent{BaseEvent: ev, UserID: cmd.UserID})
	}
	return nil
}

// pathLifecycleEvent carries create/delete notifications on the bus.
type pathLifecycleEvent struct {
	shared.BaseEvent
	UserID string `json:"user_id"`
}

// Payload implements shared.Event.
func (e pathLifecycleEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"user_id": e.UserID}
}
