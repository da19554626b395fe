// Package query contains read operations following CQRS pattern.
// Queries never modify state beyond get-or-create semantics - they
// read and return data.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Возвращает полную запись прогресса пользователя. Ledger-get никогда
// не отвечает "не найдено": первая выборка создаёт нулевую запись.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery содержит параметры запроса прогресса.
type GetProgressQuery struct {
	// UserID - чей прогресс запрашивается.
	UserID string

	// At - момент, на который вычисляются производные флаги
	// (по умолчанию сейчас).
	At time.Time
}

// Validate проверяет корректность параметров.
func (q *GetProgressQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_progress: user_id is required")
	}
	if !progress.UserID(q.UserID).IsValid() {
		return progress.ErrInvalidUserID
	}
	return nil
}

// ProgressDTO - запись прогресса для ответа API.
type ProgressDTO struct {
	UserID             string     `json:"user_id"`
	TotalXP            int        `json:"total_xp"`
	Level              int        `json:"level"`
	XPToNextLevel      int        `json:"xp_to_next_level"`
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	StreakAtRisk       bool       `json:"streak_at_risk"`
	LastActivityDate   *time.Time `json:"last_activity_date,omitempty"`
	TotalStudyTime     int        `json:"total_study_time"`
	QuizzesCompleted   int        `json:"quizzes_completed"`
	QuizzesPassed      int        `json:"quizzes_passed"`
	ResourcesCompleted int        `json:"resources_completed"`
	CertificatesEarned int        `json:"certificates_earned"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ProgressDTOFrom строит DTO из доменной записи.
func ProgressDTOFrom(p *progress.UserProgress, at time.Time) ProgressDTO {
	dto := ProgressDTO{
		UserID:             p.UserID.String(),
		TotalXP:            int(p.TotalXP),
		Level:              int(p.Level),
		XPToNextLevel:      int(p.XPToNextLevel()),
		CurrentStreak:      p.CurrentStreak,
		LongestStreak:      p.LongestStreak,
		StreakAtRisk:       p.StreakAtRisk(at),
		TotalStudyTime:     p.TotalStudyTime,
		QuizzesCompleted:   p.QuizzesCompleted,
		QuizzesPassed:      p.QuizzesPassed,
		ResourcesCompleted: p.ResourcesCompleted,
		CertificatesEarned: p.CertificatesEarned,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if !p.LastActivityDate.IsZero() {
		d := p.LastActivityDate
		dto.LastActivityDate = &d
	}
	return dto
}

// GetProgressHandler обрабатывает запрос прогресса.
type GetProgressHandler struct {
	progressRepo progress.Repository
	historyRepo  progress.HistoryRepository
}

// NewGetProgressHandler создаёт обработчик запроса прогресса.
func NewGetProgressHandler(progressRepo progress.Repository, historyRepo progress.HistoryRepository) *GetProgressHandler {
	return &GetProgressHandler{progressRepo: progressRepo, historyRepo: historyRepo}
}

// Handle выполняет запрос.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	at := q.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p, err := h.progressRepo.GetOrCreate(ctx, progress.UserID(q.UserID))
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}

	dto := ProgressDTOFrom(p, at)
	return &dto, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET XP HISTORY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// XPHistoryDTO - одна запись журнала начислений.
type XPHistoryDTO struct {
	Amount     int       `json:"amount"`
	TotalAfter int       `json:"total_after"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// GetXPHistory возвращает последние начисления пользователя.
func (h *GetProgressHandler) GetXPHistory(ctx context.Context, userID string, limit int) ([]XPHistoryDTO, error) {
	if userID == "" {
		return nil, errors.New("get_xp_history: user_id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if h.historyRepo == nil {
		return []XPHistoryDTO{}, nil
	}

	entries, err := h.historyRepo.Recent(ctx, progress.UserID(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("get_xp_history: %w", err)
	}

	dtos := make([]XPHistoryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, XPHistoryDTO{
			Amount:     int(e.Amount),
			TotalAfter: int(e.TotalAfter),
			Reason:     e.Reason,
			Timestamp:  e.Timestamp,
		})
	}
	return dtos, nil
}
