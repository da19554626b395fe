package learningpath

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGenerator считает вызовы и отдаёт заранее заданный результат.
type stubGenerator struct {
	calls   int
	content *LessonContent
	err     error
}

func (s *stubGenerator) GenerateLesson(_ context.Context, module Module, _ string) (*LessonContent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.content != nil {
		return s.content, nil
	}
	return &LessonContent{
		Title:    module.Title,
		Sections: []LessonSection{{Heading: "Теория", Body: "сгенерировано"}},
	}, nil
}

func TestGetOrGenerate_CachesResult(t *testing.T) {
	lp := fiveModulePath(t)
	gen := &stubGenerator{}

	content, generated, err := lp.GetOrGenerate(context.Background(), 0, gen)
	require.NoError(t, err)
	assert.True(t, generated)
	assert.False(t, content.Fallback)
	assert.Equal(t, 1, gen.calls)

	// Второй вызов - cache hit, генератор не трогаем
	again, generated, err := lp.GetOrGenerate(context.Background(), 0, gen)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Same(t, content, again)
	assert.Equal(t, 1, gen.calls)
}

func TestGetOrGenerate_FallbackOnFailure(t *testing.T) {
	lp := fiveModulePath(t)
	gen := &stubGenerator{err: errors.New("generation service unavailable")}

	content, generated, err := lp.GetOrGenerate(context.Background(), 0, gen)
	require.NoError(t, err, "generator failure must not surface as a hard error")
	assert.True(t, generated)
	assert.True(t, content.Fallback)
	assert.NotEmpty(t, content.Sections)

	// Fallback тоже кэшируется: повторный вызов не дёргает генератор
	_, generated, err = lp.GetOrGenerate(context.Background(), 0, gen)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, 1, gen.calls, "external call must happen at most once per module")
}

func TestGetOrGenerate_LockedModule(t *testing.T) {
	lp := fiveModulePath(t)
	gen := &stubGenerator{}

	_, _, err := lp.GetOrGenerate(context.Background(), 3, gen)
	assert.ErrorIs(t, err, ErrModuleLocked)
	assert.Zero(t, gen.calls)
}

func TestGetOrGenerate_ClearsGeneratingFlag(t *testing.T) {
	lp := fiveModulePath(t)
	gen := &stubGenerator{}

	require.NoError(t, lp.OpenLesson(0, lp.CreatedAt))
	require.True(t, lp.ActiveLesson.Generating, "fresh module starts in generating state")

	_, _, err := lp.GetOrGenerate(context.Background(), 0, gen)
	require.NoError(t, err)
	assert.False(t, lp.ActiveLesson.Generating)
}

func TestRegenerate_OverwritesCache(t *testing.T) {
	lp := fiveModulePath(t)

	// Сначала fallback из-за сбоя
	failing := &stubGenerator{err: errors.New("timeout")}
	first, _, err := lp.GetOrGenerate(context.Background(), 0, failing)
	require.NoError(t, err)
	require.True(t, first.Fallback)

	// Явный regenerate перезаписывает слот настоящим контентом
	working := &stubGenerator{}
	second, err := lp.Regenerate(context.Background(), 0, working)
	require.NoError(t, err)
	assert.False(t, second.Fallback)
	assert.Equal(t, 1, working.calls)
	assert.Same(t, second, lp.Modules[0].GeneratedContent)
}

func TestFallbackLesson_DerivedFromTopics(t *testing.T) {
	module := Module{
		Title:            "Основы",
		Difficulty:       DifficultyBeginner,
		Topics:           []string{"Переменные", "Типы данных"},
		EstimatedMinutes: 45,
	}

	content := FallbackLesson(module)

	assert.True(t, content.Fallback)
	assert.Equal(t, "Основы", content.Title)
	// Введение + секция на каждую тему
	require.Len(t, content.Sections, 3)
	assert.Contains(t, content.Sections[1].Heading, "Переменные")
	assert.Contains(t, content.Sections[2].Heading, "Типы данных")
}

func TestFallbackLesson_NoTopics(t *testing.T) {
	content := FallbackLesson(Module{Title: "Пустой модуль"})

	assert.True(t, content.Fallback)
	require.Len(t, content.Sections, 2)
}
