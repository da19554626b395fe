package progress

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK (Серия активных дней)
// ══════════════════════════════════════════════════════════════════════════════

// StreakOutcome описывает исход одного перехода streak-автомата.
type StreakOutcome string

const (
	// StreakOutcomeNoop - активность сегодня уже была учтена.
	StreakOutcomeNoop StreakOutcome = "noop"

	// StreakOutcomeExtended - серия продолжена (+1 день).
	StreakOutcomeExtended StreakOutcome = "extended"

	// StreakOutcomeStarted - серия начата заново (первая активность
	// или пропуск в два и более дней).
	StreakOutcomeStarted StreakOutcome = "started"
)

// StreakTransition - результат применения активности к серии.
type StreakTransition struct {
	// Outcome - исход перехода.
	Outcome StreakOutcome

	// CurrentStreak - серия после перехода.
	CurrentStreak int

	// LongestStreak - лучшая серия после перехода.
	LongestStreak int

	// PreviousStreak - серия до перехода (для уведомлений о сбросе).
	PreviousStreak int

	// DaysMissed - сколько дней пропущено (только для Outcome == started
	// при существовавшей ранее серии).
	DaysMissed int
}

// Broken возвращает true, если переход сбросил ненулевую серию.
func (t StreakTransition) Broken() bool {
	return t.Outcome == StreakOutcomeStarted && t.PreviousStreak > 1
}

// DateOnly обрезает время до начала календарного дня в UTC.
// Сравнение серий всегда идёт по датам, а не по меткам времени,
// чтобы не было двойного учёта в рамках одной сессии.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordActivity применяет качественную активность к серии пользователя.
// Переходы (по календарным датам, не по времени):
//   - последняя активность сегодня: no-op, повторный вызов не инкрементит;
//   - последняя активность вчера: серия +1;
//   - иначе (пропуск >= 2 дней или первая активность): серия = 1.
//
// После перехода LongestStreak = max(LongestStreak, CurrentStreak) -
// лучшая серия монотонна и при сбросе не обнуляется.
func (p *UserProgress) RecordActivity(at time.Time) StreakTransition {
	today := DateOnly(at)
	previous := p.CurrentStreak

	// Первая активность пользователя
	if p.LastActivityDate.IsZero() {
		p.CurrentStreak = 1
		if p.LongestStreak < 1 {
			p.LongestStreak = 1
		}
		p.LastActivityDate = today
		p.UpdatedAt = time.Now().UTC()

		return StreakTransition{
			Outcome:        StreakOutcomeStarted,
			CurrentStreak:  p.CurrentStreak,
			LongestStreak:  p.LongestStreak,
			PreviousStreak: previous,
		}
	}

	last := DateOnly(p.LastActivityDate)
	daysDiff := int(today.Sub(last).Hours() / 24)

	switch {
	case daysDiff <= 0:
		// Сегодня уже учтено
		return StreakTransition{
			Outcome:        StreakOutcomeNoop,
			CurrentStreak:  p.CurrentStreak,
			LongestStreak:  p.LongestStreak,
			PreviousStreak: previous,
		}

	case daysDiff == 1:
		// Следующий день - продолжаем серию
		p.CurrentStreak++
		if p.CurrentStreak > p.LongestStreak {
			p.LongestStreak = p.CurrentStreak
		}
		p.LastActivityDate = today
		p.UpdatedAt = time.Now().UTC()

		return StreakTransition{
			Outcome:        StreakOutcomeExtended,
			CurrentStreak:  p.CurrentStreak,
			LongestStreak:  p.LongestStreak,
			PreviousStreak: previous,
		}

	default:
		// Пропущены дни - серия начинается заново
		p.CurrentStreak = 1
		if p.LongestStreak < 1 {
			p.LongestStreak = 1
		}
		p.LastActivityDate = today
		p.UpdatedAt = time.Now().UTC()

		return StreakTransition{
			Outcome:        StreakOutcomeStarted,
			CurrentStreak:  p.CurrentStreak,
			LongestStreak:  p.LongestStreak,
			PreviousStreak: previous,
			DaysMissed:     daysDiff - 1,
		}
	}
}

// StreakAtRisk возвращает true, если серия может сгореть: серия ненулевая,
// а сегодня активности ещё не было. Производный флаг, не персистится -
// используется для предупреждений пользователю.
func (p *UserProgress) StreakAtRisk(now time.Time) bool {
	if p.CurrentStreak == 0 || p.LastActivityDate.IsZero() {
		return false
	}
	return !DateOnly(p.LastActivityDate).Equal(DateOnly(now))
}
