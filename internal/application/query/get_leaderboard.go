package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/leaderboard"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Топ-N пользователей по totalXp. Сначала пробуем материализованный
// кэш; при промахе или недоступности кэша читаем хранилище прогресса.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("get_leaderboard: limit cannot be negative")
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		return errors.New("get_leaderboard: offset cannot be negative")
	}
	return nil
}

// GetLeaderboardResult содержит страницу рейтинга.
type GetLeaderboardResult struct {
	// Entries - записи лидерборда.
	Entries []leaderboard.Entry `json:"entries"`

	// TotalCount - общее количество участников.
	TotalCount int `json:"total_count"`

	// FromCache - страница пришла из кэша, а не из хранилища.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`

	// HasMore - есть ли записи после текущей страницы.
	HasMore bool `json:"has_more"`
}

// GetLeaderboardHandler обрабатывает запросы лидерборда.
type GetLeaderboardHandler struct {
	progressRepo progress.Repository
	cache        leaderboard.Cache
}

// NewGetLeaderboardHandler создаёт обработчик запроса лидерборда.
func NewGetLeaderboardHandler(progressRepo progress.Repository, cache leaderboard.Cache) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{progressRepo: progressRepo, cache: cache}
}

// Handle выполняет запрос.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	total, err := h.progressRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: failed to count: %w", err)
	}

	result := &GetLeaderboardResult{
		TotalCount:  total,
		GeneratedAt: time.Now().UTC(),
	}

	// Путь через кэш
	if h.cache != nil {
		entries, err := h.cache.Top(ctx, q.Limit, q.Offset)
		if err == nil && len(entries) > 0 {
			result.Entries = entries
			result.FromCache = true
			result.HasMore = q.Offset+len(entries) < total
			return result, nil
		}
		// Кэш пуст или недоступен - падаем на хранилище
	}

	records, err := h.progressRepo.TopByXP(ctx, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: failed to query storage: %w", err)
	}

	entries := make([]leaderboard.Entry, 0, len(records))
	for i, p := range records {
		entries = append(entries, leaderboard.EntryFromProgress(p, q.Offset+i+1))
	}

	result.Entries = entries
	result.HasMore = q.Offset+len(entries) < total
	return result, nil
}
