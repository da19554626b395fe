package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/learnsphere-backend/internal/domain/leaderboard"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/settings"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
)

// ──────────────────────────────────────────────────────────────────────────────
// FAKES
// ──────────────────────────────────────────────────────────────────────────────

type fakeProgressRepo struct {
	progress.Repository

	top    []*progress.UserProgress
	atRisk []*progress.UserProgress
}

func (f *fakeProgressRepo) Count(ctx context.Context) (int, error) {
	return len(f.top), nil
}

func (f *fakeProgressRepo) TopByXP(ctx context.Context, limit, offset int) ([]*progress.UserProgress, error) {
	if offset >= len(f.top) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.top) {
		end = len(f.top)
	}
	return f.top[offset:end], nil
}

func (f *fakeProgressRepo) FindStreaksAtRisk(ctx context.Context, today time.Time) ([]*progress.UserProgress, error) {
	return f.atRisk, nil
}

type fakeCache struct {
	rebuilt []leaderboard.Entry
	ttl     time.Duration
}

func (f *fakeCache) Top(ctx context.Context, limit, offset int) ([]leaderboard.Entry, error) {
	return nil, nil
}

func (f *fakeCache) Rank(ctx context.Context, userID string) (int, error) { return 0, nil }

func (f *fakeCache) Rebuild(ctx context.Context, entries []leaderboard.Entry, ttl time.Duration) error {
	f.rebuilt = entries
	f.ttl = ttl
	return nil
}

func (f *fakeCache) UpdateScore(ctx context.Context, userID string, totalXP int) error {
	return nil
}

type fakeSettingsRepo struct {
	byUser map[progress.UserID]*settings.UserSettings
}

func (f *fakeSettingsRepo) GetOrDefault(ctx context.Context, userID progress.UserID) (*settings.UserSettings, error) {
	if s, ok := f.byUser[userID]; ok {
		return s, nil
	}
	return settings.Defaults(userID), nil
}

func (f *fakeSettingsRepo) Save(ctx context.Context, s *settings.UserSettings) error {
	f.byUser[s.UserID] = s
	return nil
}

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(e shared.Event) error {
	p.events = append(p.events, e)
	return nil
}

func userWith(id string, xp, streak int) *progress.UserProgress {
	p, _ := progress.NewUserProgress(progress.UserID(id))
	p.TotalXP = progress.XP(xp)
	p.Level = progress.LevelFromXP(p.TotalXP)
	p.CurrentStreak = streak
	p.LongestStreak = streak
	return p
}

// ──────────────────────────────────────────────────────────────────────────────
// REBUILD LEADERBOARD
// ──────────────────────────────────────────────────────────────────────────────

func TestRebuildLeaderboardJob_Run(t *testing.T) {
	repo := &fakeProgressRepo{
		top: []*progress.UserProgress{
			userWith("alice", 900, 5),
			userWith("bob", 400, 2),
			userWith("carol", 100, 0),
		},
	}
	cache := &fakeCache{}
	pub := &capturingPublisher{}

	job := NewRebuildLeaderboardJob(repo, cache, pub, nil, DefaultRebuildLeaderboardConfig())
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, cache.rebuilt, 3)
	assert.Equal(t, 1, cache.rebuilt[0].Rank)
	assert.Equal(t, "alice", cache.rebuilt[0].UserID)
	assert.Equal(t, 900, cache.rebuilt[0].TotalXP)
	assert.Equal(t, 3, cache.rebuilt[2].Rank)
	assert.Equal(t, 10*time.Minute, cache.ttl)

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.Entries)

	require.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventLeaderboardRebuilt, pub.events[0].EventType())
}

func TestRebuildLeaderboardJob_Paginates(t *testing.T) {
	repo := &fakeProgressRepo{}
	for i := 0; i < 7; i++ {
		repo.top = append(repo.top, userWith(
			string(rune('a'+i))+"-user", 1000-i*100, 0))
	}

	cache := &fakeCache{}
	cfg := DefaultRebuildLeaderboardConfig()
	cfg.PageSize = 3

	job := NewRebuildLeaderboardJob(repo, cache, nil, nil, cfg)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, cache.rebuilt, 7)
	// Ранги сквозные через границы страниц
	for i, e := range cache.rebuilt {
		assert.Equal(t, i+1, e.Rank)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// STREAK REMINDER
// ──────────────────────────────────────────────────────────────────────────────

func TestStreakReminderJob_Run(t *testing.T) {
	// Тихие часы выключены (start == end), чтобы тест не зависел от
	// времени запуска
	alice := settings.Defaults("alice")
	alice.QuietHoursStart, alice.QuietHoursEnd = 0, 0

	muted := settings.Defaults("muted")
	muted.StreakRemindersEnabled = false
	muted.QuietHoursStart, muted.QuietHoursEnd = 0, 0

	repo := &fakeProgressRepo{
		atRisk: []*progress.UserProgress{
			userWith("alice", 500, 6),
			userWith("muted", 300, 4),
			userWith("fresh", 100, 1), // ниже MinStreakLength
		},
	}
	settingsRepo := &fakeSettingsRepo{
		byUser: map[progress.UserID]*settings.UserSettings{
			"alice": alice,
			"muted": muted,
		},
	}
	pub := &capturingPublisher{}

	cfg := DefaultStreakReminderConfig()
	job := NewStreakReminderJob(repo, settingsRepo, pub, nil, cfg)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, shared.EventReminderSent, e.EventType())
	assert.Equal(t, "alice", e.AggregateID())
	assert.Equal(t, 6, e.Payload()["current_streak"])
}
