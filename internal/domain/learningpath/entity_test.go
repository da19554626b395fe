package learningpath

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveModulePath(t *testing.T) *LearningPath {
	t.Helper()

	modules := []Module{
		{Title: "Основы", Difficulty: DifficultyBeginner, Topics: []string{"переменные", "типы"}},
		{Title: "Функции", Difficulty: DifficultyBeginner},
		{Title: "Структуры", Difficulty: DifficultyIntermediate},
		{Title: "Интерфейсы", Difficulty: DifficultyIntermediate},
		{Title: "Конкурентность", Difficulty: DifficultyAdvanced},
	}

	lp, err := NewLearningPath("user-1", "Go с нуля", "Базовый курс", modules)
	require.NoError(t, err)
	return lp
}

func TestNewLearningPath(t *testing.T) {
	lp := fiveModulePath(t)

	assert.True(t, lp.ID.IsValid())
	assert.Equal(t, 0, lp.CompletedModules)
	assert.Equal(t, StatusActive, lp.Status())
	assert.Equal(t, 0, lp.Progress())
	assert.Nil(t, lp.ActiveLesson)

	for _, m := range lp.Modules {
		assert.NotEmpty(t, m.ID, "module ids must be assigned")
	}
}

func TestNewLearningPath_Validation(t *testing.T) {
	_, err := NewLearningPath("user-1", "", "", []Module{{Title: "m"}})
	assert.ErrorIs(t, err, ErrInvalidTitle)

	_, err = NewLearningPath("user-1", "Курс", "", nil)
	assert.ErrorIs(t, err, ErrNoModules)
}

func TestModuleState_Derivation(t *testing.T) {
	lp := fiveModulePath(t)
	lp.CompletedModules = 2

	tests := []struct {
		index int
		want  ModuleState
	}{
		{0, ModuleCompleted},
		{1, ModuleCompleted},
		{2, ModuleUnlocked},
		{3, ModuleLocked},
		{4, ModuleLocked},
	}

	for _, tt := range tests {
		state, err := lp.ModuleState(tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.want, state, "module %d", tt.index)
	}

	_, err := lp.ModuleState(5)
	assert.ErrorIs(t, err, ErrModuleIndexOutOfRange)
}

func TestCompleteModule_Sequential(t *testing.T) {
	lp := fiveModulePath(t)
	lp.CompletedModules = 2

	err := lp.CompleteModule(2)
	require.NoError(t, err)
	assert.Equal(t, 3, lp.CompletedModules)
	assert.Equal(t, 60, lp.Progress())
	assert.Equal(t, StatusActive, lp.Status())
}

func TestCompleteModule_ReplayRejected(t *testing.T) {
	lp := fiveModulePath(t)
	lp.CompletedModules = 2

	require.NoError(t, lp.CompleteModule(2))

	// Повтор того же индекса - rejected no-op
	err := lp.CompleteModule(2)
	assert.ErrorIs(t, err, ErrOutOfOrderCompletion)
	assert.Equal(t, 3, lp.CompletedModules, "replay must not mutate the frontier")
}

func TestCompleteModule_SkipRejected(t *testing.T) {
	lp := fiveModulePath(t)

	err := lp.CompleteModule(3)
	assert.ErrorIs(t, err, ErrOutOfOrderCompletion)
	assert.Equal(t, 0, lp.CompletedModules)
}

func TestCompleteModule_PathCompletion(t *testing.T) {
	lp := fiveModulePath(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, lp.CompleteModule(i))
	}

	assert.Equal(t, 5, lp.CompletedModules)
	assert.Equal(t, 100, lp.Progress())
	assert.Equal(t, StatusCompleted, lp.Status())
}

func TestCompleteModule_ClearsActiveLesson(t *testing.T) {
	lp := fiveModulePath(t)

	require.NoError(t, lp.OpenLesson(0, time.Now()))
	require.NotNil(t, lp.ActiveLesson)

	require.NoError(t, lp.CompleteModule(0))
	assert.Nil(t, lp.ActiveLesson, "completing the active module must clear the lesson pointer")
}

func TestOpenLesson(t *testing.T) {
	lp := fiveModulePath(t)
	lp.CompletedModules = 1

	// Завершённый и текущий модуль открываются
	require.NoError(t, lp.OpenLesson(0, time.Now()))
	require.NoError(t, lp.OpenLesson(1, time.Now()))
	assert.Equal(t, 1, lp.ActiveLesson.ModuleIndex)

	// Залоченный - нет
	err := lp.OpenLesson(2, time.Now())
	assert.ErrorIs(t, err, ErrModuleLocked)
	assert.Equal(t, 1, lp.ActiveLesson.ModuleIndex, "failed open must not move the pointer")
}

func TestCloseLesson_Idempotent(t *testing.T) {
	lp := fiveModulePath(t)

	require.NoError(t, lp.OpenLesson(0, time.Now()))
	lp.CloseLesson()
	assert.Nil(t, lp.ActiveLesson)

	// Повторное закрытие безопасно
	lp.CloseLesson()
	assert.Nil(t, lp.ActiveLesson)
	assert.Equal(t, 0, lp.CompletedModules, "closing a lesson must not touch the frontier")
}

func TestValidate(t *testing.T) {
	lp := fiveModulePath(t)
	assert.NoError(t, lp.Validate())

	lp.CompletedModules = 6
	assert.Error(t, lp.Validate())

	lp.CompletedModules = 2
	lp.ActiveLesson = &ActiveLesson{ModuleIndex: 7}
	assert.ErrorIs(t, lp.Validate(), ErrModuleIndexOutOfRange)
}

func TestOwnedBy(t *testing.T) {
	lp := fiveModulePath(t)

	assert.True(t, lp.OwnedBy("user-1"))
	assert.False(t, lp.OwnedBy("user-2"))
}

func TestProgress_Rounding(t *testing.T) {
	modules := []Module{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	lp, err := NewLearningPath("user-1", "Короткий курс", "", modules)
	require.NoError(t, err)

	lp.CompletedModules = 1
	assert.Equal(t, 33, lp.Progress())

	lp.CompletedModules = 2
	assert.Equal(t, 67, lp.Progress())
}
