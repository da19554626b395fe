package learningpath

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// LESSON CONTENT & CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LessonContent - тело сгенерированного урока модуля.
type LessonContent struct {
	// Title - заголовок урока.
	Title string `json:"title"`

	// Sections - секции урока (введение, теория, упражнения).
	Sections []LessonSection `json:"sections"`

	// Fallback - true, если контент получен детерминированным
	// fallback-ом, а не внешним генератором.
	Fallback bool `json:"fallback"`

	// GeneratedAt - когда контент был сгенерирован.
	GeneratedAt time.Time `json:"generated_at"`
}

// LessonSection - одна секция урока.
type LessonSection struct {
	// Heading - заголовок секции.
	Heading string `json:"heading"`

	// Body - текст секции.
	Body string `json:"body"`
}

// Generator - внешний коллаборатор, генерирующий урок по модулю.
// Вызов может быть медленным и ненадёжным; вызывающая сторона
// обязана ограничивать его контекстом с таймаутом.
type Generator interface {
	GenerateLesson(ctx context.Context, module Module, pathTitle string) (*LessonContent, error)
}

// GetOrGenerate возвращает урок модуля: из кэша, если он есть; иначе -
// через генератор, персистя результат в одиночный слот модуля.
// При отказе генератора возвращается и кэшируется детерминированный
// fallback: дорогой внешний вызов делается максимум один раз на модуль,
// даже через повторные сбои. Слот перезаписывается только явным
// regenerate, не автоматическим ретраем.
//
// Возвращает контент и флаг "сгенерировано этим вызовом" (false = cache hit).
func (lp *LearningPath) GetOrGenerate(ctx context.Context, index int, gen Generator) (*LessonContent, bool, error) {
	if index < 0 || index >= len(lp.Modules) {
		return nil, false, ErrModuleIndexOutOfRange
	}
	if !lp.IsUnlocked(index) {
		return nil, false, ErrModuleLocked
	}

	module := &lp.Modules[index]
	if module.GeneratedContent != nil {
		return module.GeneratedContent, false, nil
	}

	content, err := gen.GenerateLesson(ctx, *module, lp.Title)
	if err != nil || content == nil {
		content = FallbackLesson(*module)
	}
	content.GeneratedAt = time.Now().UTC()

	module.GeneratedContent = content
	lp.UpdatedAt = time.Now().UTC()

	if lp.ActiveLesson != nil && lp.ActiveLesson.ModuleIndex == index {
		lp.ActiveLesson.Generating = false
	}

	return content, true, nil
}

// Regenerate принудительно перегенерирует урок, перезаписывая слот кэша.
// Единственный путь обновления уже закэшированного контента.
func (lp *LearningPath) Regenerate(ctx context.Context, index int, gen Generator) (*LessonContent, error) {
	if index < 0 || index >= len(lp.Modules) {
		return nil, ErrModuleIndexOutOfRange
	}
	if !lp.IsUnlocked(index) {
		return nil, ErrModuleLocked
	}

	lp.Modules[index].GeneratedContent = nil
	content, _, err := lp.GetOrGenerate(ctx, index, gen)
	return content, err
}

// FallbackLesson строит детерминированный урок из собственных тем модуля,
// без внешних вызовов. Пользователь всегда получает хоть какой-то урок.
func FallbackLesson(module Module) *LessonContent {
	sections := make([]LessonSection, 0, len(module.Topics)+1)

	sections = append(sections, LessonSection{
		Heading: "Введение",
		Body: fmt.Sprintf(
			"Модуль %q (уровень: %s). Ориентировочное время прохождения: %d минут.",
			module.Title, module.Difficulty, module.EstimatedMinutes,
		),
	})

	for i, topic := range module.Topics {
		sections = append(sections, LessonSection{
			Heading: fmt.Sprintf("Тема %d: %s", i+1, topic),
			Body: fmt.Sprintf(
				"Изучите тему %q самостоятельно: найдите определение, разберите пример и сформулируйте, как %s связана с %q.",
				topic, strings.ToLower(topic), module.Title,
			),
		})
	}

	if len(module.Topics) == 0 {
		sections = append(sections, LessonSection{
			Heading: "Материал",
			Body:    fmt.Sprintf("Изучите материалы модуля %q и выполните практические упражнения.", module.Title),
		})
	}

	return &LessonContent{
		Title:    module.Title,
		Sections: sections,
		Fallback: true,
	}
}
