package achievement

import (
	"context"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// Repository хранит полученные достижения пользователей.
type Repository interface {
	// Insert добавляет запись о получении. Пара (userID, achievementID)
	// уникальна: при конкурентной вставке дубликат молча поглощается,
	// и Insert возвращает false. true означает, что запись создана
	// именно этим вызовом - только тогда начисляется XP-награда.
	Insert(ctx context.Context, ua UserAchievement) (bool, error)

	// ListByUser возвращает все достижения пользователя
	// (от новых к старым).
	ListByUser(ctx context.Context, userID progress.UserID) ([]UserAchievement, error)

	// CountByUser возвращает количество достижений пользователя.
	CountByUser(ctx context.Context, userID progress.UserID) (int, error)
}
