package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации живут в infrastructure/persistence. Контракты сформулированы
// так, чтобы конкурентные вызовы не теряли обновления: инкремент XP -
// атомарная операция на уровне хранилища, повышение уровня - монотонный
// условный апдейт.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции персистентности для UserProgress.
type Repository interface {
	// GetOrCreate возвращает запись прогресса, создавая нулевую при
	// первом обращении. Никогда не возвращает "не найдено".
	GetOrCreate(ctx context.Context, userID UserID) (*UserProgress, error)

	// IncrementXP атомарно прибавляет amount к total_xp и возвращает
	// новое значение. Реализация обязана выполнять настоящий инкремент
	// в хранилище (не read-modify-write): конкурентные вызовы
	// складываются, а не перетирают друг друга.
	IncrementXP(ctx context.Context, userID UserID, amount XP) (XP, error)

	// RaiseLevel монотонно повышает уровень: апдейт применяется только
	// если новый уровень больше сохранённого. Возвращает true, если
	// уровень был повышен этим вызовом.
	RaiseLevel(ctx context.Context, userID UserID, level Level) (bool, error)

	// SaveStreak сохраняет поля серии (current, longest, last_activity_date).
	// Допускает повторное сохранение того же состояния (идемпотентно).
	SaveStreak(ctx context.Context, p *UserProgress) error

	// SaveCounters сохраняет информационные счётчики (study time, квизы,
	// ресурсы, сертификаты).
	SaveCounters(ctx context.Context, p *UserProgress) error

	// TopByXP возвращает топ записей по total_xp для лидерборда.
	TopByXP(ctx context.Context, limit, offset int) ([]*UserProgress, error)

	// Count возвращает общее количество записей прогресса.
	Count(ctx context.Context) (int, error)

	// FindStreaksAtRisk возвращает записи с ненулевой серией, у которых
	// не было активности сегодня (для напоминаний).
	FindStreaksAtRisk(ctx context.Context, today time.Time) ([]*UserProgress, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// XP HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// XPHistoryEntry - одна запись в истории начислений XP.
type XPHistoryEntry struct {
	// UserID - кому начислено.
	UserID UserID

	// Amount - размер начисления (всегда положительный).
	Amount XP

	// TotalAfter - суммарный XP после начисления.
	TotalAfter XP

	// Reason - причина начисления (module_completed, quiz_passed,
	// achievement_reward, ...).
	Reason string

	// Timestamp - время начисления.
	Timestamp time.Time
}

// HistoryRepository хранит журнал начислений XP.
type HistoryRepository interface {
	// Append добавляет запись в журнал.
	Append(ctx context.Context, entry XPHistoryEntry) error

	// Recent возвращает последние записи пользователя (от новых к старым).
	Recent(ctx context.Context, userID UserID, limit int) ([]XPHistoryEntry, error)
}
