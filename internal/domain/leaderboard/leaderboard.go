// Package leaderboard содержит модель рейтинга пользователей по XP.
// Источник истины - таблица прогресса; кэш (Redis sorted set) хранит
// материализованный рейтинг и перестраивается фоновой джобой.
package leaderboard

import (
	"context"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// Entry - одна строка рейтинга.
type Entry struct {
	// Rank - позиция (начиная с 1).
	Rank int `json:"rank"`

	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// TotalXP - суммарный XP.
	TotalXP int `json:"total_xp"`

	// Level - уровень.
	Level int `json:"level"`

	// CurrentStreak - текущая серия.
	CurrentStreak int `json:"current_streak"`
}

// EntryFromProgress строит строку рейтинга из записи прогресса.
func EntryFromProgress(p *progress.UserProgress, rank int) Entry {
	return Entry{
		Rank:          rank,
		UserID:        p.UserID.String(),
		TotalXP:       int(p.TotalXP),
		Level:         int(p.Level),
		CurrentStreak: p.CurrentStreak,
	}
}

// Cache - материализованный рейтинг. Реализуется поверх Redis ZSET;
// при недоступности кэша запросы падают обратно на хранилище прогресса.
type Cache interface {
	// Top возвращает страницу рейтинга.
	Top(ctx context.Context, limit, offset int) ([]Entry, error)

	// Rank возвращает позицию пользователя (0, если его нет в кэше).
	Rank(ctx context.Context, userID string) (int, error)

	// Rebuild атомарно заменяет содержимое кэша новым рейтингом.
	Rebuild(ctx context.Context, entries []Entry, ttl time.Duration) error

	// UpdateScore обновляет XP пользователя в кэше (после начисления).
	UpdateScore(ctx context.Context, userID string, totalXP int) error
}
