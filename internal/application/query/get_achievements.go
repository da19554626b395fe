package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/achievement"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT QUERIES
// Каталог публичен и не требует пользователя; список полученных -
// per-user.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementDTO - запись каталога для ответа API. Критерий наружу не
// отдаётся: клиент видит описание, не предикат.
type AchievementDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	Rarity      string `json:"rarity"`
	XPReward    int    `json:"xp_reward"`
}

// UserAchievementDTO - полученное достижение.
type UserAchievementDTO struct {
	AchievementDTO
	EarnedAt time.Time `json:"earned_at"`
}

// GetAchievementsHandler обрабатывает запросы каталога и полученных
// достижений.
type GetAchievementsHandler struct {
	achievementRepo achievement.Repository
}

// NewGetAchievementsHandler создаёт обработчик.
func NewGetAchievementsHandler(achievementRepo achievement.Repository) *GetAchievementsHandler {
	return &GetAchievementsHandler{achievementRepo: achievementRepo}
}

// Catalog возвращает полный каталог достижений (публичный).
func (h *GetAchievementsHandler) Catalog(_ context.Context) []AchievementDTO {
	catalog := achievement.Catalog()
	dtos := make([]AchievementDTO, 0, len(catalog))
	for _, a := range catalog {
		dtos = append(dtos, achievementDTOFrom(a))
	}
	return dtos
}

// ListEarned возвращает достижения пользователя с данными каталога.
func (h *GetAchievementsHandler) ListEarned(ctx context.Context, userID string) ([]UserAchievementDTO, error) {
	if userID == "" {
		return nil, errors.New("get_achievements: user_id is required")
	}

	earned, err := h.achievementRepo.ListByUser(ctx, progress.UserID(userID))
	if err != nil {
		return nil, fmt.Errorf("get_achievements: %w", err)
	}

	dtos := make([]UserAchievementDTO, 0, len(earned))
	for _, ua := range earned {
		def, ok := achievement.Find(ua.AchievementID)
		if !ok {
			// Запись о снятом с каталога достижении: отдаём без описания
			def = achievement.Achievement{ID: ua.AchievementID}
		}
		dtos = append(dtos, UserAchievementDTO{
			AchievementDTO: achievementDTOFrom(def),
			EarnedAt:       ua.EarnedAt,
		})
	}
	return dtos, nil
}

func achievementDTOFrom(a achievement.Achievement) AchievementDTO {
	return AchievementDTO{
		ID:          string(a.ID),
		Name:        a.Name,
		Description: a.Description,
		Emoji:       a.Emoji,
		Rarity:      string(a.Rarity),
		XPReward:    int(a.XPReward),
	}
}
