// Package settings содержит явную per-user запись настроек. Настройки
// передаются в обработчики запросов явно, а не читаются из ambient-
// состояния: это делает поведение напоминаний детерминированным.
package settings

import (
	"errors"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// UserSettings - настройки пользователя, влияющие на движок прогресса.
type UserSettings struct {
	// UserID - владелец настроек.
	UserID progress.UserID

	// StreakRemindersEnabled - слать ли напоминания о сгорающей серии.
	StreakRemindersEnabled bool

	// AchievementNotificationsEnabled - уведомлять ли о достижениях.
	AchievementNotificationsEnabled bool

	// QuietHoursStart - начало тихих часов (0-23).
	QuietHoursStart int

	// QuietHoursEnd - конец тихих часов (0-23).
	QuietHoursEnd int

	// Timezone - IANA-имя таймзоны пользователя для вычисления
	// тихих часов. По умолчанию UTC.
	Timezone string

	// UpdatedAt - время последнего изменения.
	UpdatedAt time.Time
}

// ErrInvalidQuietHour - час вне диапазона 0-23.
var ErrInvalidQuietHour = errors.New("quiet hour must be in range 0-23")

// ErrSettingsNotFound - настройки не найдены.
var ErrSettingsNotFound = errors.New("user settings not found")

// Defaults возвращает настройки по умолчанию для пользователя.
func Defaults(userID progress.UserID) *UserSettings {
	return &UserSettings{
		UserID:                          userID,
		StreakRemindersEnabled:          true,
		AchievementNotificationsEnabled: true,
		QuietHoursStart:                 22,
		QuietHoursEnd:                   8,
		Timezone:                        "UTC",
		UpdatedAt:                       time.Now().UTC(),
	}
}

// Validate проверяет корректность настроек.
func (s *UserSettings) Validate() error {
	if !s.UserID.IsValid() {
		return progress.ErrInvalidUserID
	}
	if s.QuietHoursStart < 0 || s.QuietHoursStart > 23 ||
		s.QuietHoursEnd < 0 || s.QuietHoursEnd > 23 {
		return ErrInvalidQuietHour
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return errors.New("unknown timezone: " + s.Timezone)
	}
	return nil
}

// InQuietHours возвращает true, если момент now попадает в тихие часы
// пользователя. Интервал может пересекать полночь (22 -> 8).
func (s *UserSettings) InQuietHours(now time.Time) bool {
	if s.QuietHoursStart == s.QuietHoursEnd {
		return false // тихие часы отключены
	}

	hour := timeutil.LocalHour(now, s.Timezone)

	if s.QuietHoursStart < s.QuietHoursEnd {
		return hour >= s.QuietHoursStart && hour < s.QuietHoursEnd
	}
	// Интервал через полночь
	return hour >= s.QuietHoursStart || hour < s.QuietHoursEnd
}

// CanNotify возвращает true, если сейчас можно слать напоминание о серии.
func (s *UserSettings) CanNotify(now time.Time) bool {
	return s.StreakRemindersEnabled && !s.InQuietHours(now)
}
