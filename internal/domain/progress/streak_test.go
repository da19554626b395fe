package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 14, 30, 0, 0, time.UTC)
}

func TestRecordActivity_FirstActivity(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	tr := p.RecordActivity(day(2025, time.March, 10))

	assert.Equal(t, StreakOutcomeStarted, tr.Outcome)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)
	assert.Equal(t, DateOnly(day(2025, time.March, 10)), p.LastActivityDate)
	assert.False(t, tr.Broken())
}

func TestRecordActivity_SameDayIsNoop(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	p.RecordActivity(day(2025, time.March, 10))

	// Вторая активность в тот же день - даже позже по времени
	tr := p.RecordActivity(time.Date(2025, time.March, 10, 23, 59, 0, 0, time.UTC))

	assert.Equal(t, StreakOutcomeNoop, tr.Outcome)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)
}

func TestRecordActivity_ConsecutiveDaysExtend(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	p.RecordActivity(day(2025, time.March, 10))
	tr := p.RecordActivity(day(2025, time.March, 11))

	assert.Equal(t, StreakOutcomeExtended, tr.Outcome)
	assert.Equal(t, 2, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak)

	tr = p.RecordActivity(day(2025, time.March, 12))
	assert.Equal(t, 3, tr.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)
}

func TestRecordActivity_GapResetsStreak(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	// День 1, день 2 - серия 2; день 3 пропущен; день 4 - сброс до 1
	p.RecordActivity(day(2025, time.March, 10))
	p.RecordActivity(day(2025, time.March, 11))
	tr := p.RecordActivity(day(2025, time.March, 13))

	assert.Equal(t, StreakOutcomeStarted, tr.Outcome)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak, "longest streak must survive the reset")
	assert.Equal(t, 2, tr.PreviousStreak)
	assert.Equal(t, 1, tr.DaysMissed)
	assert.True(t, tr.Broken())
}

func TestRecordActivity_LongGap(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	p.RecordActivity(day(2025, time.March, 10))
	tr := p.RecordActivity(day(2025, time.March, 25))

	assert.Equal(t, StreakOutcomeStarted, tr.Outcome)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 14, tr.DaysMissed)
	// Серия из одного дня не считается "сломанной" - уведомлять не о чем
	assert.False(t, tr.Broken())
}

func TestRecordActivity_MidnightBoundary(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	// 23:50 одного дня и 00:10 следующего - разные календарные даты,
	// серия продолжается, хотя прошло 20 минут
	p.RecordActivity(time.Date(2025, time.March, 10, 23, 50, 0, 0, time.UTC))
	tr := p.RecordActivity(time.Date(2025, time.March, 11, 0, 10, 0, 0, time.UTC))

	assert.Equal(t, StreakOutcomeExtended, tr.Outcome)
	assert.Equal(t, 2, p.CurrentStreak)
}

func TestRecordActivity_LongestStreakMonotonic(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	// Серия 3, сброс, серия 2 - лучшая остаётся 3
	p.RecordActivity(day(2025, time.April, 1))
	p.RecordActivity(day(2025, time.April, 2))
	p.RecordActivity(day(2025, time.April, 3))
	p.RecordActivity(day(2025, time.April, 7))
	p.RecordActivity(day(2025, time.April, 8))

	assert.Equal(t, 2, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2025, time.June, 5, 18, 45, 12, 999, time.FixedZone("UTC+5", 5*3600))
	got := DateOnly(in)

	// 18:45 UTC+5 это 13:45 UTC - дата в UTC остаётся 5 июня
	assert.Equal(t, time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestStreakAtRisk(t *testing.T) {
	p, err := NewUserProgress("user-1")
	require.NoError(t, err)

	now := day(2025, time.March, 11)

	assert.False(t, p.StreakAtRisk(now), "zero streak is never at risk")

	p.RecordActivity(day(2025, time.March, 10))
	assert.True(t, p.StreakAtRisk(now), "no activity today means the streak can burn")

	p.RecordActivity(now)
	assert.False(t, p.StreakAtRisk(now))
}
