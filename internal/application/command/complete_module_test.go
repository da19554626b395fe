package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
)

type fakeEvaluator struct {
	calls    int
	triggers []string
}

func (f *fakeEvaluator) EvaluateFor(_ context.Context, _, trigger, _ string) error {
	f.calls++
	f.triggers = append(f.triggers, trigger)
	return nil
}

func newTestPath(t *testing.T, repo *fakePathRepo, modules int) *learningpath.LearningPath {
	t.Helper()

	ms := make([]learningpath.Module, 0, modules)
	for i := 0; i < modules; i++ {
		ms = append(ms, learningpath.Module{Title: "Модуль", Difficulty: learningpath.DifficultyBeginner})
	}
	lp, err := learningpath.NewLearningPath("user-1", "Курс", "", ms)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), lp))
	return lp
}

func newCompleteModuleHandler(pathRepo *fakePathRepo, progressRepo *fakeProgressRepo, bus *fakeBus, eval *fakeEvaluator) *CompleteModuleHandler {
	addXP := NewAddXPHandler(progressRepo, &fakeHistoryRepo{}, bus)
	streak := NewRecordStreakHandler(progressRepo, bus)
	return NewCompleteModuleHandler(pathRepo, addXP, streak, eval, bus)
}

func TestCompleteModule_AdvancesFrontierAndCredits(t *testing.T) {
	pathRepo := newFakePathRepo()
	progressRepo := newFakeProgressRepo()
	bus := &fakeBus{}
	eval := &fakeEvaluator{}
	h := newCompleteModuleHandler(pathRepo, progressRepo, bus, eval)

	lp := newTestPath(t, pathRepo, 5)

	result, err := h.Handle(context.Background(), CompleteModuleCommand{
		UserID: "user-1", PathID: lp.ID.String(), ModuleIndex: 0,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.CompletedModules)
	assert.Equal(t, 20, result.Progress)
	assert.False(t, result.PathCompleted)
	assert.Equal(t, 50, result.XPAwarded)
	assert.Equal(t, 50, result.TotalXP)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 1, eval.calls, "achievement evaluation runs once after the credit")
	assert.Contains(t, bus.typesSeen(), shared.EventModuleCompleted)
}

func TestCompleteModule_ReplayRejected(t *testing.T) {
	pathRepo := newFakePathRepo()
	progressRepo := newFakeProgressRepo()
	h := newCompleteModuleHandler(pathRepo, progressRepo, &fakeBus{}, &fakeEvaluator{})

	lp := newTestPath(t, pathRepo, 5)

	_, err := h.Handle(context.Background(), CompleteModuleCommand{
		UserID: "user-1", PathID: lp.ID.String(), ModuleIndex: 0,
	})
	require.NoError(t, err)

	// Replay того же индекса отклоняется и ничего не начисляет
	_, err = h.Handle(context.Background(), CompleteModuleCommand{
		UserID: "user-1", PathID: lp.ID.String(), ModuleIndex: 0,
	})
	assert.ErrorIs(t, err, learningpath.ErrOutOfOrderCompletion)

	p, err := progressRepo.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 50, int(p.TotalXP), "rejected replay must not double-credit")
}

func TestCompleteModule_SkipRejected(t *testing.T) {
	pathRepo := newFakePathRepo()
	h := newCompleteModuleHandler(pathRepo, newFakeProgressRepo(), &fakeBus{}, &fakeEvaluator{})

	lp := newTestPath(t, pathRepo, 5)

	_, err := h.Handle(context.Background(), CompleteModuleCommand{
		UserID: "user-1", PathID: lp.ID.String(), ModuleIndex: 2,
	})
	assert.ErrorIs(t, err, learningpath.ErrOutOfOrderCompletion)
}

func TestCompleteModule_OwnerChecked(t *testing.T) {
	pathRepo := newFakePathRepo()
	h := newCompleteModuleHandler(pathRepo, newFakeProgressRepo(), &fakeBus{}, &fakeEvaluator{})

	lp := newTestPath(t, pathRepo, 3)

	_, err := h.Handle(context.Background(), CompleteModuleCommand{
		UserID: "intruder", PathID: lp.ID.String(), ModuleIndex: 0,
	})
	assert.ErrorIs(t, err, learningpath.ErrNotOwner)
}

func TestCompleteModule_PathCompletionBonus(t *testing.T) {
	pathRepo := newFakePathRepo()
	progressRepo := newFakeProgressRepo()
	bus := &fakeBus{}
	h := newCompleteModuleHandler(pathRepo, progressRepo, bus, &fakeEvaluator{})

	lp := newTestPath(t, pathRepo, 2)

	_, err := h.Handle(context.Background(), CompleteModuleCommand{
		UserID: "user-1", PathID: lp.ID.String(), ModuleIndex: 0,
	})
	require.NoError(t, err)

	result, err := h.Handle(context.Background(), CompleteModuleCommand{
		UserID: "user-1", PathID: lp.ID.String(), ModuleIndex: 1,
	})
	require.NoError(t, err)

	assert.True(t, result.PathCompleted)
	assert.Equal(t, 100, result.Progress)
	assert.Equal(t, 50+PathCompletionBonus, result.XPAwarded)
	assert.Contains(t, bus.typesSeen(), shared.EventPathCompleted)
}

func TestCompleteModule_NotFound(t *testing.T) {
	h := newCompleteModuleHandler(newFakePathRepo(), newFakeProgressRepo(), &fakeBus{}, &fakeEvaluator{})

	_, err := h.Handle(context.Background(), CompleteModuleCommand{
		UserID: "user-1", PathID: "missing", ModuleIndex: 0,
	})
	assert.ErrorIs(t, err, learningpath.ErrPathNotFound)
}

func TestOpenLesson_CachePersistedAcrossCalls(t *testing.T) {
	pathRepo := newFakePathRepo()
	gen := &countingGenerator{}
	h := NewOpenLessonHandler(pathRepo, gen, &fakeBus{}, 0)

	lp := newTestPath(t, pathRepo, 3)

	first, err := h.Handle(context.Background(), OpenLessonCommand{
		UserID: "user-1", PathID: lp.ID.String(), ModuleIndex: 0,
	})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 1, gen.calls)

	// Повторное открытие читает кэш из хранилища
	second, err := h.Handle(context.Background(), OpenLessonCommand{
		UserID: "user-1", PathID: lp.ID.String(), ModuleIndex: 0,
	})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, gen.calls, "generator must not run again for a cached module")
}

func TestOpenLesson_LockedModule(t *testing.T) {
	pathRepo := newFakePathRepo()
	h := NewOpenLessonHandler(pathRepo, &countingGenerator{}, &fakeBus{}, 0)

	lp := newTestPath(t, pathRepo, 3)

	_, err := h.Handle(context.Background(), OpenLessonCommand{
		UserID: "user-1", PathID: lp.ID.String(), ModuleIndex: 2,
	})
	assert.ErrorIs(t, err, learningpath.ErrModuleLocked)
}

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) GenerateLesson(_ context.Context, module learningpath.Module, _ string) (*learningpath.LessonContent, error) {
	g.calls++
	return &learningpath.LessonContent{
		Title:    module.Title,
		Sections: []learningpath.LessonSection{{Heading: "Теория", Body: "текст"}},
	}, nil
}
