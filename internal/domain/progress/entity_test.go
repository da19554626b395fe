package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		name string
		xp   XP
		want Level
	}{
		{"zero xp is level 1", 0, 1},
		{"just below first boundary", 99, 1},
		{"first boundary", 100, 2},
		{"mid second level", 250, 2},
		{"second boundary", 400, 3},
		{"third boundary", 900, 4},
		{"large xp", 10000, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromXP(tt.xp))
		})
	}
}

func TestLevelFromXP_Properties(t *testing.T) {
	// level(xp) >= 1 и неубывание по xp
	prev := Level(0)
	for xp := XP(0); xp <= 5000; xp += 37 {
		level := LevelFromXP(xp)
		assert.GreaterOrEqual(t, int(level), 1)
		assert.GreaterOrEqual(t, level, prev, "level must be non-decreasing at xp=%d", xp)
		prev = level
	}
}

func TestLevelFromXP_IncreasingDeltas(t *testing.T) {
	// Каждый следующий уровень требует больше XP, чем предыдущий
	prevDelta := XP(0)
	for level := Level(2); level <= 10; level++ {
		delta := XPForLevel(level) - XPForLevel(level-1)
		assert.Greater(t, delta, prevDelta, "delta to level %d must grow", level)
		prevDelta = delta
	}
}

func TestXPForLevel_RoundTrip(t *testing.T) {
	for level := Level(1); level <= 20; level++ {
		boundary := XPForLevel(level)
		assert.Equal(t, level, LevelFromXP(boundary), "boundary xp %d must map back to level %d", boundary, level)
		if boundary > 0 {
			assert.Equal(t, level-1, LevelFromXP(boundary-1))
		}
	}
}

func TestNewUserProgress(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	assert.Equal(t, UserID("user-1"), p.UserID)
	assert.Equal(t, XP(0), p.TotalXP)
	assert.Equal(t, Level(1), p.Level)
	assert.Zero(t, p.CurrentStreak)
	assert.True(t, p.LastActivityDate.IsZero())
}

func TestNewUserProgress_InvalidID(t *testing.T) {
	_, err := NewUserProgress("")
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = NewUserProgress("has whitespace")
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestApplyXP(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	level, leveledUp, err := p.ApplyXP(250)
	require.NoError(t, err)
	assert.Equal(t, XP(250), p.TotalXP)
	assert.Equal(t, Level(2), level)
	assert.True(t, leveledUp)

	// Повторное начисление складывается, а не перетирает
	level, leveledUp, err = p.ApplyXP(250)
	require.NoError(t, err)
	assert.Equal(t, XP(500), p.TotalXP)
	assert.Equal(t, Level(3), level)
	assert.True(t, leveledUp)
}

func TestApplyXP_RejectsNonPositive(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	_, _, err = p.ApplyXP(0)
	assert.ErrorIs(t, err, ErrInvalidXPAmount)

	_, _, err = p.ApplyXP(-50)
	assert.ErrorIs(t, err, ErrInvalidXPAmount)

	assert.Equal(t, XP(0), p.TotalXP, "rejected amount must not mutate state")
}

func TestApplyXP_LevelNeverDecreases(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	// Административно завышенный уровень не должен падать при пересчёте
	p.Level = 10

	level, leveledUp, err := p.ApplyXP(50)
	require.NoError(t, err)
	assert.Equal(t, Level(10), level)
	assert.False(t, leveledUp)
}

func TestRecordQuiz(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	p.RecordQuiz(true)
	p.RecordQuiz(false)
	p.RecordQuiz(true)

	assert.Equal(t, 3, p.QuizzesCompleted)
	assert.Equal(t, 2, p.QuizzesPassed)
}

func TestValidate(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)
	assert.NoError(t, p.Validate())

	p.CurrentStreak = 5
	p.LongestStreak = 3
	assert.Error(t, p.Validate(), "longest streak below current streak must fail validation")

	p.LongestStreak = 5
	assert.NoError(t, p.Validate())
}

func TestXPToNextLevel(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	assert.Equal(t, XP(100), p.XPToNextLevel())

	_, _, err = p.ApplyXP(150)
	require.NoError(t, err)
	assert.Equal(t, XP(250), p.XPToNextLevel()) // уровень 3 с 400 XP
}
