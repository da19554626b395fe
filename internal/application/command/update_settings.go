package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/settings"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE SETTINGS COMMAND
// Settings are an explicit per-user record, updated through this single
// handler and passed into request handling by reference - never read
// from ambient global state.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateSettingsCommand contains a partial settings update.
type UpdateSettingsCommand struct {
	// UserID is the owner of the settings.
	UserID string

	// StreakRemindersEnabled, if non-nil, toggles streak reminders.
	StreakRemindersEnabled *bool

	// AchievementNotificationsEnabled, if non-nil, toggles achievement
	// notifications.
	AchievementNotificationsEnabled *bool

	// QuietHoursStart / QuietHoursEnd, if non-nil, set the quiet window.
	QuietHoursStart *int
	QuietHoursEnd   *int

	// Timezone, if non-nil, sets the IANA timezone name.
	Timezone *string
}

// Validate validates the command.
func (c UpdateSettingsCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("update_settings: user_id is required")
	}
	if !progress.UserID(c.UserID).IsValid() {
		return fmt.Errorf("update_settings: %w", progress.ErrInvalidUserID)
	}
	return nil
}

// UpdateSettingsHandler handles the UpdateSettingsCommand.
type UpdateSettingsHandler struct {
	settingsRepo settings.Repository
}

// NewUpdateSettingsHandler creates a new UpdateSettingsHandler.
func NewUpdateSettingsHandler(settingsRepo settings.Repository) *UpdateSettingsHandler {
	return &UpdateSettingsHandler{settingsRepo: settingsRepo}
}

// Handle executes the update settings command.
func (h *UpdateSettingsHandler) Handle(ctx context.Context, cmd UpdateSettingsCommand) (*settings.UserSettings, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	s, err := h.settingsRepo.GetOrDefault(ctx, progress.UserID(cmd.UserID))
	if err != nil {
		return nil, fmt.Errorf("update_settings: failed to load settings: %w", err)
	}

	if cmd.StreakRemindersEnabled != nil {
		s.StreakRemindersEnabled = *cmd.StreakRemindersEnabled
	}
	if cmd.AchievementNotificationsEnabled != nil {
		s.AchievementNotificationsEnabled = *cmd.AchievementNotificationsEnabled
	}
	if cmd.QuietHoursStart != nil {
		s.QuietHoursStart = *cmd.QuietHoursStart
	}
	if cmd.QuietHoursEnd != nil {
		s.QuietHoursEnd = *cmd.QuietHoursEnd
	}
	if cmd.Timezone != nil {
		s.Timezone = *cmd.Timezone
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("update_settings: %w", err)
	}

	if err := h.settingsRepo.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("update_settings: failed to save: %w", err)
	}
	return s, nil
}
