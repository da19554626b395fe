package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING PATH QUERIES
// Производные поля (статусы модулей, progress, status) вычисляются при
// чтении из фронтира, а не берутся из хранилища.
// ══════════════════════════════════════════════════════════════════════════════

// ModuleDTO - модуль пути с производным состоянием.
type ModuleDTO struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Difficulty       string   `json:"difficulty"`
	Topics           []string `json:"topics,omitempty"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	State            string   `json:"state"`
	HasCachedLesson  bool     `json:"has_cached_lesson"`
}

// PathDTO - учебный путь для ответа API.
type PathDTO struct {
	ID               string                     `json:"id"`
	UserID           string                     `json:"user_id"`
	Title            string                     `json:"title"`
	Description      string                     `json:"description,omitempty"`
	Modules          []ModuleDTO                `json:"modules"`
	CompletedModules int                        `json:"completed_modules"`
	Progress         int                        `json:"progress"`
	Status           string                     `json:"status"`
	ActiveLesson     *learningpath.ActiveLesson `json:"active_lesson,omitempty"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// PathDTOFrom строит DTO из доменной сущности.
func PathDTOFrom(lp *learningpath.LearningPath) PathDTO {
	modules := make([]ModuleDTO, 0, len(lp.Modules))
	for i, m := range lp.Modules {
		state, _ := lp.ModuleState(i)
		modules = append(modules, ModuleDTO{
			ID:               m.ID,
			Title:            m.Title,
			Difficulty:       string(m.Difficulty),
			Topics:           m.Topics,
			EstimatedMinutes: m.EstimatedMinutes,
			State:            string(state),
			HasCachedLesson:  m.GeneratedContent != nil,
		})
	}

	return PathDTO{
		ID:               lp.ID.String(),
		UserID:           lp.UserID.String(),
		Title:            lp.Title,
		Description:      lp.Description,
		Modules:          modules,
		CompletedModules: lp.CompletedModules,
		Progress:         lp.Progress(),
		Status:           string(lp.Status()),
		ActiveLesson:     lp.ActiveLesson,
		CreatedAt:        lp.CreatedAt,
		UpdatedAt:        lp.UpdatedAt,
	}
}

// ListPathsHandler обрабатывает запросы учебных путей.
type ListPathsHandler struct {
	pathRepo learningpath.Repository
}

// NewListPathsHandler создаёт обработчик.
func NewListPathsHandler(pathRepo learningpath.Repository) *ListPathsHandler {
	return &ListPathsHandler{pathRepo: pathRepo}
}

// ListByUser возвращает все пути пользователя.
func (h *ListPathsHandler) ListByUser(ctx context.Context, userID string) ([]PathDTO, error) {
	if userID == "" {
		return nil, errors.New("list_paths: user_id is required")
	}

	paths, err := h.pathRepo.ListByUser(ctx, progress.UserID(userID))
	if err != nil {
		return nil, fmt.Errorf("list_paths: %w", err)
	}

	dtos := make([]PathDTO, 0, len(paths))
	for _, lp := range paths {
		dtos = append(dtos, PathDTOFrom(lp))
	}
	return dtos, nil
}

// GetByID возвращает путь по идентификатору с проверкой владения.
func (h *ListPathsHandler) GetByID(ctx context.Context, userID, pathID string) (*PathDTO, error) {
	if userID == "" || pathID == "" {
		return nil, errors.New("get_path: user_id and path_id are required")
	}

	lp, err := h.pathRepo.GetByID(ctx, learningpath.PathID(pathID))
	if err != nil {
		return nil, fmt.Errorf("get_path: %w", err)
	}
	if !lp.OwnedBy(progress.UserID(userID)) {
		return nil, fmt.Errorf("get_path: %w", learningpath.ErrNotOwner)
	}

	dto := PathDTOFrom(lp)
	return &dto, nil
}
