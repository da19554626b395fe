// Package learningpath содержит state machine прохождения учебного пути:
// последовательная разблокировка модулей, фронтир completedModules и
// кэш сгенерированных уроков.
package learningpath

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// PathID представляет уникальный идентификатор учебного пути.
type PathID string

// NewPathID генерирует новый идентификатор пути.
func NewPathID() PathID {
	return PathID(uuid.NewString())
}

// IsValid проверяет корректность идентификатора.
func (id PathID) IsValid() bool {
	return len(id) > 0
}

// String возвращает строковое представление.
func (id PathID) String() string {
	return string(id)
}

// Status представляет состояние пути в целом.
type Status string

const (
	// StatusActive - путь в процессе прохождения.
	StatusActive Status = "active"

	// StatusCompleted - все модули пути завершены.
	StatusCompleted Status = "completed"
)

// Difficulty представляет сложность модуля.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// IsValid проверяет корректность сложности.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// ModuleState представляет производное состояние модуля внутри пути.
// Никогда не хранится: вычисляется из индекса и фронтира.
type ModuleState string

const (
	// ModuleLocked - модуль ещё недоступен.
	ModuleLocked ModuleState = "locked"

	// ModuleUnlocked - модуль доступен для прохождения (текущий фронтир).
	ModuleUnlocked ModuleState = "unlocked"

	// ModuleCompleted - модуль завершён (терминальное состояние).
	ModuleCompleted ModuleState = "completed"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidTitle - пустой или слишком длинный заголовок.
	ErrInvalidTitle = errors.New("invalid title: must be 1-200 chars")

	// ErrNoModules - путь должен содержать хотя бы один модуль.
	ErrNoModules = errors.New("learning path must contain at least one module")

	// ErrModuleIndexOutOfRange - индекс модуля вне диапазона.
	ErrModuleIndexOutOfRange = errors.New("module index out of range")

	// ErrModuleLocked - модуль ещё не разблокирован.
	ErrModuleLocked = errors.New("module is locked")

	// ErrOutOfOrderCompletion - завершать можно только текущий фронтир.
	ErrOutOfOrderCompletion = errors.New("module completion is strictly sequential")

	// ErrPathNotFound - путь не найден.
	ErrPathNotFound = errors.New("learning path not found")

	// ErrNotOwner - путь принадлежит другому пользователю.
	ErrNotOwner = errors.New("learning path belongs to another user")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Module - один модуль учебного пути. Статус модуля не хранится:
// он выводится из позиции относительно фронтира пути.
type Module struct {
	// ID - идентификатор модуля внутри пути.
	ID string

	// Title - заголовок модуля.
	Title string

	// Difficulty - сложность.
	Difficulty Difficulty

	// Topics - список тем модуля. Используется генератором уроков
	// и детерминированным fallback-ом.
	Topics []string

	// EstimatedMinutes - оценка времени прохождения.
	EstimatedMinutes int

	// GeneratedContent - закэшированный сгенерированный урок.
	// Одиночный перезаписываемый слот: nil, пока урок не запрошен.
	GeneratedContent *LessonContent
}

// ActiveLesson - указатель на открытый урок внутри пути.
type ActiveLesson struct {
	// ModuleIndex - какой модуль открыт.
	ModuleIndex int `json:"module_index"`

	// StartedAt - когда урок был открыт.
	StartedAt time.Time `json:"started_at"`

	// Generating - идёт ли генерация контента прямо сейчас.
	Generating bool `json:"generating"`
}

// LearningPath - учебный путь пользователя: упорядоченная
// последовательность модулей с фронтиром completedModules.
type LearningPath struct {
	// ID - идентификатор пути.
	ID PathID

	// UserID - владелец. Все операции над путём проверяют владение.
	UserID progress.UserID

	// Title - заголовок пути.
	Title string

	// Description - описание.
	Description string

	// Modules - упорядоченные модули.
	Modules []Module

	// CompletedModules - фронтир: количество завершённых модулей.
	// Модуль i завершён iff i < CompletedModules, разблокирован iff
	// i <= CompletedModules. Монотонно неубывающий.
	CompletedModules int

	// ActiveLesson - открытый урок (nil, если урок не открыт).
	ActiveLesson *ActiveLesson

	// CreatedAt - время создания.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewLearningPath создаёт путь с нулевым фронтиром.
func NewLearningPath(userID progress.UserID, title, description string, modules []Module) (*LearningPath, error) {
	if !userID.IsValid() {
		return nil, progress.ErrInvalidUserID
	}
	if t := strings.TrimSpace(title); len(t) == 0 || len(t) > 200 {
		return nil, ErrInvalidTitle
	}
	if len(modules) == 0 {
		return nil, ErrNoModules
	}

	for i := range modules {
		if modules[i].ID == "" {
			modules[i].ID = uuid.NewString()
		}
		if !modules[i].Difficulty.IsValid() {
			modules[i].Difficulty = DifficultyBeginner
		}
	}

	now := time.Now().UTC()

	return &LearningPath{
		ID:               NewPathID(),
		UserID:           userID,
		Title:            strings.TrimSpace(title),
		Description:      strings.TrimSpace(description),
		Modules:          modules,
		CompletedModules: 0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Validate проверяет инварианты пути. Вызывается на границе
// персистентности: производные поля не берутся из хранилища на веру.
func (lp *LearningPath) Validate() error {
	if !lp.ID.IsValid() {
		return fmt.Errorf("invalid path id")
	}
	if !lp.UserID.IsValid() {
		return progress.ErrInvalidUserID
	}
	if len(lp.Modules) == 0 {
		return ErrNoModules
	}
	if lp.CompletedModules < 0 || lp.CompletedModules > len(lp.Modules) {
		return fmt.Errorf("completed modules %d out of range [0, %d]",
			lp.CompletedModules, len(lp.Modules))
	}
	if lp.ActiveLesson != nil {
		if lp.ActiveLesson.ModuleIndex < 0 || lp.ActiveLesson.ModuleIndex >= len(lp.Modules) {
			return ErrModuleIndexOutOfRange
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DERIVED STATE
// ══════════════════════════════════════════════════════════════════════════════

// ModuleState возвращает производное состояние модуля по индексу.
func (lp *LearningPath) ModuleState(index int) (ModuleState, error) {
	if index < 0 || index >= len(lp.Modules) {
		return "", ErrModuleIndexOutOfRange
	}

	switch {
	case index < lp.CompletedModules:
		return ModuleCompleted, nil
	case index == lp.CompletedModules:
		return ModuleUnlocked, nil
	default:
		return ModuleLocked, nil
	}
}

// IsUnlocked возвращает true, если модуль доступен (завершён или текущий).
func (lp *LearningPath) IsUnlocked(index int) bool {
	return index >= 0 && index < len(lp.Modules) && index <= lp.CompletedModules
}

// Progress возвращает процент прохождения (0-100, округлённый).
func (lp *LearningPath) Progress() int {
	if len(lp.Modules) == 0 {
		return 0
	}
	return int(math.Round(float64(lp.CompletedModules) / float64(len(lp.Modules)) * 100))
}

// Status возвращает производный статус пути.
func (lp *LearningPath) Status() Status {
	if lp.CompletedModules >= len(lp.Modules) {
		return StatusCompleted
	}
	return StatusActive
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// CompleteModule завершает модуль по индексу. Завершение строго
// последовательное: принимается только текущий фронтир. Повтор
// (replay того же индекса) и перескакивание отклоняются без мутации -
// это же правило отбрасывает устаревшие конкурентные запросы.
func (lp *LearningPath) CompleteModule(index int) error {
	if index < 0 || index >= len(lp.Modules) {
		return ErrModuleIndexOutOfRange
	}
	if index != lp.CompletedModules {
		return ErrOutOfOrderCompletion
	}

	lp.CompletedModules++
	lp.UpdatedAt = time.Now().UTC()

	// Указатель на завершённый модуль больше не актуален
	if lp.ActiveLesson != nil && lp.ActiveLesson.ModuleIndex == index {
		lp.ActiveLesson = nil
	}

	return nil
}

// OpenLesson открывает урок модуля. Легально только для
// разблокированного модуля.
func (lp *LearningPath) OpenLesson(index int, at time.Time) error {
	if index < 0 || index >= len(lp.Modules) {
		return ErrModuleIndexOutOfRange
	}
	if !lp.IsUnlocked(index) {
		return ErrModuleLocked
	}

	lp.ActiveLesson = &ActiveLesson{
		ModuleIndex: index,
		StartedAt:   at.UTC(),
		Generating:  lp.Modules[index].GeneratedContent == nil,
	}
	lp.UpdatedAt = time.Now().UTC()

	return nil
}

// CloseLesson закрывает открытый урок. Идемпотентно, без побочных
// эффектов на фронтир.
func (lp *LearningPath) CloseLesson() {
	if lp.ActiveLesson == nil {
		return
	}
	lp.ActiveLesson = nil
	lp.UpdatedAt = time.Now().UTC()
}

// OwnedBy проверяет владение путём.
func (lp *LearningPath) OwnedBy(userID progress.UserID) bool {
	return lp.UserID == userID
}

// String возвращает строковое представление для логирования.
func (lp *LearningPath) String() string {
	return fmt.Sprintf("LearningPath{ID: %s, User: %s, Frontier: %d/%d, Status: %s}",
		lp.ID, lp.UserID, lp.CompletedModules, len(lp.Modules), lp.Status())
}
