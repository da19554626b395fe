package command

import (
	"context"
	"sync"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
)

// In-memory fakes mirroring the storage contracts, including the atomic
// increment and the optimistic frontier check.

type fakeProgressRepo struct {
	mu      sync.Mutex
	records map[progress.UserID]*progress.UserProgress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[progress.UserID]*progress.UserProgress)}
}

func (r *fakeProgressRepo) GetOrCreate(_ context.Context, userID progress.UserID) (*progress.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.records[userID]; ok {
		return p.Clone(), nil
	}
	p, err := progress.NewUserProgress(userID)
	if err != nil {
		return nil, err
	}
	r.records[userID] = p
	return p.Clone(), nil
}

func (r *fakeProgressRepo) IncrementXP(_ context.Context, userID progress.UserID, amount progress.XP) (progress.XP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.records[userID]
	if !ok {
		return 0, progress.ErrProgressNotFound
	}
	p.TotalXP += amount
	return p.TotalXP, nil
}

func (r *fakeProgressRepo) RaiseLevel(_ context.Context, userID progress.UserID, level progress.Level) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.records[userID]
	if !ok {
		return false, progress.ErrProgressNotFound
	}
	if p.Level >= level {
		return false, nil
	}
	p.Level = level
	return true, nil
}

func (r *fakeProgressRepo) SaveStreak(_ context.Context, p *progress.UserProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[p.UserID]
	if !ok {
		return progress.ErrProgressNotFound
	}
	stored.CurrentStreak = p.CurrentStreak
	stored.LongestStreak = p.LongestStreak
	stored.LastActivityDate = p.LastActivityDate
	return nil
}

func (r *fakeProgressRepo) SaveCounters(_ context.Context, p *progress.UserProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[p.UserID]
	if !ok {
		return progress.ErrProgressNotFound
	}
	stored.TotalStudyTime = p.TotalStudyTime
	stored.QuizzesCompleted = p.QuizzesCompleted
	stored.QuizzesPassed = p.QuizzesPassed
	stored.ResourcesCompleted = p.ResourcesCompleted
	stored.CertificatesEarned = p.CertificatesEarned
	return nil
}

func (r *fakeProgressRepo) TopByXP(_ context.Context, limit, offset int) ([]*progress.UserProgress, error) {
	return nil, nil
}

func (r *fakeProgressRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records), nil
}

func (r *fakeProgressRepo) FindStreaksAtRisk(_ context.Context, _ time.Time) ([]*progress.UserProgress, error) {
	return nil, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []progress.XPHistoryEntry
}

func (r *fakeHistoryRepo) Append(_ context.Context, entry progress.XPHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeHistoryRepo) Recent(_ context.Context, userID progress.UserID, limit int) ([]progress.XPHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []progress.XPHistoryEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].UserID == userID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

type fakePathRepo struct {
	mu    sync.Mutex
	paths map[learningpath.PathID]*learningpath.LearningPath
}

func newFakePathRepo() *fakePathRepo {
	return &fakePathRepo{paths: make(map[learningpath.PathID]*learningpath.LearningPath)}
}

func (r *fakePathRepo) Create(_ context.Context, lp *learningpath.LearningPath) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *lp
	r.paths[lp.ID] = &stored
	return nil
}

func (r *fakePathRepo) GetByID(_ context.Context, id learningpath.PathID) (*learningpath.LearningPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lp, ok := r.paths[id]
	if !ok {
		return nil, learningpath.ErrPathNotFound
	}
	copied := *lp
	copied.Modules = append([]learningpath.Module(nil), lp.Modules...)
	return &copied, nil
}

func (r *fakePathRepo) ListByUser(_ context.Context, userID progress.UserID) ([]*learningpath.LearningPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*learningpath.LearningPath
	for _, lp := range r.paths {
		if lp.UserID == userID {
			copied := *lp
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePathRepo) AdvanceFrontier(_ context.Context, id learningpath.PathID, expected int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lp, ok := r.paths[id]
	if !ok {
		return false, learningpath.ErrPathNotFound
	}
	if lp.CompletedModules != expected {
		return false, nil
	}
	lp.CompletedModules++
	return true, nil
}

func (r *fakePathRepo) Update(_ context.Context, lp *learningpath.LearningPath) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.paths[lp.ID]
	if !ok {
		return learningpath.ErrPathNotFound
	}
	stored.Title = lp.Title
	stored.Description = lp.Description
	stored.Modules = append([]learningpath.Module(nil), lp.Modules...)
	stored.ActiveLesson = lp.ActiveLesson
	stored.UpdatedAt = lp.UpdatedAt
	return nil
}

func (r *fakePathRepo) Delete(_ context.Context, id learningpath.PathID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.paths[id]; !ok {
		return learningpath.ErrPathNotFound
	}
	delete(r.paths, id)
	return nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *fakeBus) Publish(e shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *fakeBus) typesSeen() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()

	types := make([]shared.EventType, 0, len(b.events))
	for _, e := range b.events {
		types = append(types, e.EventType())
	}
	return types
}
