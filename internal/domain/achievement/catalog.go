// Package achievement содержит каталог достижений и чистый evaluator,
// сравнивающий снимок прогресса пользователя с критериями каталога.
package achievement

import (
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ID представляет уникальный идентификатор достижения в каталоге.
type ID string

// Rarity представляет редкость достижения.
type Rarity string

const (
	// RarityCommon - обычное достижение.
	RarityCommon Rarity = "common"
	// RarityRare - редкое достижение.
	RarityRare Rarity = "rare"
	// RarityEpic - эпическое достижение.
	RarityEpic Rarity = "epic"
	// RarityLegendary - легендарное достижение.
	RarityLegendary Rarity = "legendary"
)

// IsValid проверяет корректность значения редкости.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

// Criteria - предикат над снимком прогресса пользователя.
// Критерии чистые: никаких обращений к хранилищу или часам.
type Criteria func(p *progress.UserProgress) bool

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Achievement - запись каталога достижений. Каталог read-only в рантайме:
// записи определяются в коде и никогда не мутируются.
type Achievement struct {
	// ID - уникальный идентификатор достижения.
	ID ID

	// Name - отображаемое имя.
	Name string

	// Description - описание условия получения.
	Description string

	// Emoji - иконка для UI.
	Emoji string

	// Rarity - редкость.
	Rarity Rarity

	// XPReward - награда XP за получение.
	XPReward progress.XP

	// Criteria - предикат разблокировки.
	Criteria Criteria
}

// UserAchievement - факт получения достижения пользователем.
// Пара (UserID, AchievementID) уникальна; запись создаётся один раз
// и никогда не обновляется и не удаляется.
type UserAchievement struct {
	// UserID - кто получил.
	UserID progress.UserID

	// AchievementID - что получено.
	AchievementID ID

	// EarnedAt - когда получено.
	EarnedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// BUILT-IN CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Достижения каталога.
const (
	FirstQuiz     ID = "first_quiz"
	QuizMaster    ID = "quiz_master"
	QuizLegend    ID = "quiz_legend"
	Streak7       ID = "streak_7"
	Streak30      ID = "streak_30"
	Streak100     ID = "streak_100"
	Level5        ID = "level_5"
	Level10       ID = "level_10"
	Bookworm      ID = "bookworm"
	Scholar       ID = "scholar"
	FirstCert     ID = "first_certificate"
	MarathonHours ID = "marathon_hours"
	TenThousandXP ID = "xp_10000"
)

// Catalog возвращает все определения достижений. Порядок стабилен -
// от него зависит порядок выдачи при одновременном выполнении
// нескольких критериев.
func Catalog() []Achievement {
	return []Achievement{
		{
			ID: FirstQuiz, Name: "Первый шаг", Description: "Пройден первый квиз",
			Emoji: "🎯", Rarity: RarityCommon, XPReward: 50,
			Criteria: func(p *progress.UserProgress) bool { return p.QuizzesCompleted >= 1 },
		},
		{
			ID: QuizMaster, Name: "Мастер квизов", Description: "Сдано 10 квизов",
			Emoji: "🧠", Rarity: RarityRare, XPReward: 150,
			Criteria: func(p *progress.UserProgress) bool { return p.QuizzesPassed >= 10 },
		},
		{
			ID: QuizLegend, Name: "Легенда квизов", Description: "Сдано 50 квизов",
			Emoji: "👑", Rarity: RarityLegendary, XPReward: 1000,
			Criteria: func(p *progress.UserProgress) bool { return p.QuizzesPassed >= 50 },
		},
		{
			ID: Streak7, Name: "Неделя огня", Description: "7 дней подряд",
			Emoji: "🔥", Rarity: RarityRare, XPReward: 100,
			Criteria: func(p *progress.UserProgress) bool { return p.CurrentStreak >= 7 },
		},
		{
			ID: Streak30, Name: "Железная воля", Description: "30 дней подряд",
			Emoji: "💪", Rarity: RarityEpic, XPReward: 500,
			Criteria: func(p *progress.UserProgress) bool { return p.CurrentStreak >= 30 },
		},
		{
			ID: Streak100, Name: "Несгибаемый", Description: "100 дней подряд",
			Emoji: "🏔️", Rarity: RarityLegendary, XPReward: 2000,
			Criteria: func(p *progress.UserProgress) bool { return p.CurrentStreak >= 100 },
		},
		{
			ID: Level5, Name: "Подмастерье", Description: "Достигнут 5 уровень",
			Emoji: "📚", Rarity: RarityCommon, XPReward: 100,
			Criteria: func(p *progress.UserProgress) bool { return p.Level >= 5 },
		},
		{
			ID: Level10, Name: "Мастер", Description: "Достигнут 10 уровень",
			Emoji: "🧙", Rarity: RarityEpic, XPReward: 250,
			Criteria: func(p *progress.UserProgress) bool { return p.Level >= 10 },
		},
		{
			ID: Bookworm, Name: "Книжный червь", Description: "Изучено 25 ресурсов",
			Emoji: "📖", Rarity: RarityRare, XPReward: 150,
			Criteria: func(p *progress.UserProgress) bool { return p.ResourcesCompleted >= 25 },
		},
		{
			ID: Scholar, Name: "Учёный", Description: "Изучено 100 ресурсов",
			Emoji: "🎓", Rarity: RarityEpic, XPReward: 600,
			Criteria: func(p *progress.UserProgress) bool { return p.ResourcesCompleted >= 100 },
		},
		{
			ID: FirstCert, Name: "Сертифицирован", Description: "Получен первый сертификат",
			Emoji: "📜", Rarity: RarityRare, XPReward: 200,
			Criteria: func(p *progress.UserProgress) bool { return p.CertificatesEarned >= 1 },
		},
		{
			ID: MarathonHours, Name: "Марафонец", Description: "Больше 1000 минут обучения",
			Emoji: "⏱️", Rarity: RarityEpic, XPReward: 300,
			Criteria: func(p *progress.UserProgress) bool { return p.TotalStudyTime >= 1000 },
		},
		{
			ID: TenThousandXP, Name: "Десять тысяч", Description: "Набрано 10000 XP",
			Emoji: "💎", Rarity: RarityLegendary, XPReward: 1500,
			Criteria: func(p *progress.UserProgress) bool { return p.TotalXP >= 10000 },
		},
	}
}

// Find возвращает определение достижения по идентификатору.
func Find(id ID) (Achievement, bool) {
	for _, a := range Catalog() {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}
