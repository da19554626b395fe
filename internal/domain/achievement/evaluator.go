package achievement

import (
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator проверяет критерии каталога против снимка прогресса.
// Чистая логика: ни хранилища, ни часов (время передаётся параметром).
type Evaluator struct {
	catalog []Achievement
}

// NewEvaluator создаёт evaluator со встроенным каталогом.
func NewEvaluator() *Evaluator {
	return &Evaluator{catalog: Catalog()}
}

// Evaluate возвращает достижения, критерии которых выполнены снимком p,
// но которые ещё не получены пользователем. Идемпотентен: повторный
// вызов без изменения снимка возвращает пустой список, потому что
// первый вызов уже перевёл достижения в earned.
//
// Начисление XP-награды делает вызывающая сторона (saga), и это
// начисление НЕ запускает evaluate повторно - иначе награда за
// достижение могла бы рекурсивно открывать новые достижения
// по устаревшему снимку.
func (e *Evaluator) Evaluate(p *progress.UserProgress, earned []UserAchievement) []Achievement {
	have := make(map[ID]bool, len(earned))
	for _, ua := range earned {
		have[ua.AchievementID] = true
	}

	var unlocked []Achievement
	for _, a := range e.catalog {
		if have[a.ID] {
			continue
		}
		if a.Criteria(p) {
			unlocked = append(unlocked, a)
		}
	}

	return unlocked
}

// Grant создаёт запись о получении достижения.
func Grant(userID progress.UserID, a Achievement, at time.Time) UserAchievement {
	return UserAchievement{
		UserID:        userID,
		AchievementID: a.ID,
		EarnedAt:      at.UTC(),
	}
}
