package postgres

import (
	"context"
	"fmt"

	"github.com/learnsphere/learnsphere-backend/internal/domain/achievement"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	conn *Connection
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

// Insert adds an earned-achievement row. The (user_id, achievement_id)
// primary key absorbs concurrent double-grants: ON CONFLICT DO NOTHING
// makes the loser a silent no-op, reported as inserted=false so the
// caller skips the XP reward.
func (r *AchievementRepository) Insert(ctx context.Context, ua achievement.UserAchievement) (bool, error) {
	query := `
		INSERT INTO user_achievements (user_id, achievement_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	tag, err := r.conn.Exec(ctx, query,
		ua.UserID.String(), string(ua.AchievementID), ua.EarnedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert user achievement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByUser returns all achievements earned by a user, newest first.
func (r *AchievementRepository) ListByUser(ctx context.Context, userID progress.UserID) ([]achievement.UserAchievement, error) {
	query := `
		SELECT user_id, achievement_id, earned_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY earned_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query user achievements: %w", err)
	}
	defer rows.Close()

	var earned []achievement.UserAchievement
	for rows.Next() {
		var (
			ua  achievement.UserAchievement
			uid string
			aid string
		)
		if err := rows.Scan(&uid, &aid, &ua.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user achievement row: %w", err)
		}
		ua.UserID = progress.UserID(uid)
		ua.AchievementID = achievement.ID(aid)
		earned = append(earned, ua)
	}
	return earned, rows.Err()
}

// CountByUser returns the number of achievements a user has earned.
func (r *AchievementRepository) CountByUser(ctx context.Context, userID progress.UserID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM user_achievements WHERE user_id = $1",
		userID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user achievements: %w", err)
	}
	return count, nil
}
