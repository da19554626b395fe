package settings

import (
	"context"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// Repository хранит настройки пользователей.
type Repository interface {
	// GetOrDefault возвращает настройки пользователя либо дефолтные,
	// если запись ещё не создавалась. Никогда не возвращает "не найдено".
	GetOrDefault(ctx context.Context, userID progress.UserID) (*UserSettings, error)

	// Save сохраняет настройки (upsert).
	Save(ctx context.Context, s *UserSettings) error
}
