package postgres

import (
	"context"
	"fmt"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/settings"
)

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SettingsRepository implements settings.Repository for PostgreSQL.
type SettingsRepository struct {
	conn *Connection
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(conn *Connection) *SettingsRepository {
	return &SettingsRepository{conn: conn}
}

// GetOrDefault returns the user's settings, or the defaults if no row
// exists yet. Defaults are not persisted until the first Save.
func (r *SettingsRepository) GetOrDefault(ctx context.Context, userID progress.UserID) (*settings.UserSettings, error) {
	query := `
		SELECT user_id, streak_reminders_enabled, achievement_notifications_enabled,
		       quiet_hours_start, quiet_hours_end, timezone, updated_at
		FROM user_settings
		WHERE user_id = $1
	`

	var (
		s   settings.UserSettings
		uid string
	)
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(
		&uid, &s.StreakRemindersEnabled, &s.AchievementNotificationsEnabled,
		&s.QuietHoursStart, &s.QuietHoursEnd, &s.Timezone, &s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return settings.Defaults(userID), nil
		}
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	s.UserID = progress.UserID(uid)
	return &s, nil
}

// Save upserts the user's settings.
func (r *SettingsRepository) Save(ctx context.Context, s *settings.UserSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO user_settings (
			user_id, streak_reminders_enabled, achievement_notifications_enabled,
			quiet_hours_start, quiet_hours_end, timezone, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			streak_reminders_enabled = EXCLUDED.streak_reminders_enabled,
			achievement_notifications_enabled = EXCLUDED.achievement_notifications_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			timezone = EXCLUDED.timezone,
			updated_at = NOW()
	`

	_, err := r.conn.Exec(ctx, query,
		s.UserID.String(), s.StreakRemindersEnabled, s.AchievementNotificationsEnabled,
		s.QuietHoursStart, s.QuietHoursEnd, s.Timezone,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
