package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Defaults("user-1")

	assert.True(t, s.StreakRemindersEnabled)
	assert.True(t, s.AchievementNotificationsEnabled)
	assert.NoError(t, s.Validate())
}

func TestValidate(t *testing.T) {
	s := Defaults("user-1")

	s.QuietHoursStart = 24
	assert.ErrorIs(t, s.Validate(), ErrInvalidQuietHour)

	s.QuietHoursStart = 22
	s.Timezone = "Not/AZone"
	assert.Error(t, s.Validate())
}

func TestInQuietHours_OverMidnight(t *testing.T) {
	s := Defaults("user-1") // 22 -> 8, UTC

	at := func(hour int) time.Time {
		return time.Date(2025, time.March, 10, hour, 30, 0, 0, time.UTC)
	}

	assert.True(t, s.InQuietHours(at(23)))
	assert.True(t, s.InQuietHours(at(3)))
	assert.False(t, s.InQuietHours(at(12)))
	assert.False(t, s.InQuietHours(at(8)), "end hour is exclusive")
	assert.True(t, s.InQuietHours(at(22)), "start hour is inclusive")
}

func TestInQuietHours_SameDayInterval(t *testing.T) {
	s := Defaults("user-1")
	s.QuietHoursStart = 13
	s.QuietHoursEnd = 15

	at := func(hour int) time.Time {
		return time.Date(2025, time.March, 10, hour, 0, 0, 0, time.UTC)
	}

	assert.True(t, s.InQuietHours(at(13)))
	assert.True(t, s.InQuietHours(at(14)))
	assert.False(t, s.InQuietHours(at(15)))
	assert.False(t, s.InQuietHours(at(12)))
}

func TestInQuietHours_Disabled(t *testing.T) {
	s := Defaults("user-1")
	s.QuietHoursStart = 0
	s.QuietHoursEnd = 0

	assert.False(t, s.InQuietHours(time.Date(2025, time.March, 10, 3, 0, 0, 0, time.UTC)))
}

func TestInQuietHours_Timezone(t *testing.T) {
	s := Defaults("user-1")
	s.Timezone = "Asia/Almaty" // UTC+5
	require.NoError(t, s.Validate())

	// 20:00 UTC = 01:00 в Алматы - тихие часы
	assert.True(t, s.InQuietHours(time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)))
	// 07:00 UTC = 12:00 в Алматы - можно
	assert.False(t, s.InQuietHours(time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)))
}

func TestInQuietHours_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	s := Defaults("user-1") // 22 -> 8
	s.Timezone = "Not/AZone"

	// Нерезолвящаяся зона трактуется как UTC, а не ломает проверку
	assert.True(t, s.InQuietHours(time.Date(2025, time.March, 10, 23, 0, 0, 0, time.UTC)))
	assert.False(t, s.InQuietHours(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)))
}

func TestCanNotify(t *testing.T) {
	s := Defaults("user-1")
	noon := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, s.CanNotify(noon))

	s.StreakRemindersEnabled = false
	assert.False(t, s.CanNotify(noon))
}
