// Package progress содержит доменную модель прогресса пользователя LearnSphere.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package progress

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID представляет уникальный идентификатор пользователя платформы.
type UserID string

// IsValid проверяет корректность идентификатора пользователя.
func (u UserID) IsValid() bool {
	s := string(u)
	return len(s) >= 1 && len(s) <= 64 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление идентификатора.
func (u UserID) String() string {
	return string(u)
}

// XP представляет очки опыта пользователя.
type XP int

// IsValid проверяет, что XP неотрицательный.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add складывает XP.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Level представляет уровень пользователя, вычисляемый из XP.
type Level int

// LevelFromXP вычисляет уровень на основе XP.
// Формула: floor(sqrt(xp / 100)) + 1 - каждый следующий уровень
// требует всё больше XP ("harder to level up" кривая).
// Это единственный источник истины для уровня: никакой код
// не имеет права устанавливать уровень в обход этой функции.
func LevelFromXP(xp XP) Level {
	if xp <= 0 {
		return 1
	}
	return Level(math.Floor(math.Sqrt(float64(xp)/100.0))) + 1
}

// XPForLevel возвращает минимальный XP, необходимый для достижения уровня.
// Обратная функция к LevelFromXP: уровень n начинается с (n-1)^2 * 100 XP.
func XPForLevel(level Level) XP {
	if level <= 1 {
		return 0
	}
	n := int(level) - 1
	return XP(n * n * 100)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress - центральная сущность движка прогресса: одна запись на
// пользователя. Владеет ею исключительно Progress Ledger, все изменения
// идут только через его API.
type UserProgress struct {
	// UserID - идентификатор пользователя (уникальный ключ).
	UserID UserID

	// TotalXP - суммарный XP. Монотонно неубывающий (кроме явного
	// административного сброса).
	TotalXP XP

	// Level - уровень, производная от TotalXP величина.
	// Инвариант: Level == LevelFromXP(TotalXP). Никогда не уменьшается.
	Level Level

	// CurrentStreak - текущая серия дней активности.
	CurrentStreak int

	// LongestStreak - лучшая серия. Инвариант: LongestStreak >= CurrentStreak.
	LongestStreak int

	// LastActivityDate - дата последней активности (только дата, без времени).
	// Нулевое значение означает отсутствие активности.
	LastActivityDate time.Time

	// TotalStudyTime - суммарное время обучения в минутах.
	TotalStudyTime int

	// QuizzesCompleted - количество пройденных квизов.
	QuizzesCompleted int

	// QuizzesPassed - количество успешно сданных квизов.
	QuizzesPassed int

	// ResourcesCompleted - количество изученных ресурсов.
	ResourcesCompleted int

	// CertificatesEarned - количество полученных сертификатов.
	CertificatesEarned int

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidUserID - невалидный идентификатор пользователя.
	ErrInvalidUserID = errors.New("invalid user id: must be 1-64 chars without whitespace")

	// ErrInvalidXPAmount - XP должен быть положительным целым числом.
	ErrInvalidXPAmount = errors.New("invalid xp amount: must be a positive integer")

	// ErrInvalidStudyTime - время обучения должно быть неотрицательным.
	ErrInvalidStudyTime = errors.New("invalid study time: must be non-negative")

	// ErrInvalidActivityKind - неизвестный вид учебной активности.
	ErrInvalidActivityKind = errors.New("invalid activity kind")

	// ErrProgressNotFound - запись прогресса не найдена.
	ErrProgressNotFound = errors.New("user progress not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewUserProgress создаёт нулевую запись прогресса для пользователя.
// Вызывается ledger-ом при первом обращении ("get-or-create").
func NewUserProgress(userID UserID) (*UserProgress, error) {
	if !userID.IsValid() {
		return nil, ErrInvalidUserID
	}

	now := time.Now().UTC()

	return &UserProgress{
		UserID:    userID,
		TotalXP:   0,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate проверяет инварианты записи. Вызывается на границе
// персистентности: производные поля пересчитываются, а не берутся
// из хранилища на веру.
func (p *UserProgress) Validate() error {
	if !p.UserID.IsValid() {
		return ErrInvalidUserID
	}
	if p.TotalXP < 0 {
		return fmt.Errorf("total xp cannot be negative: %d", p.TotalXP)
	}
	if p.CurrentStreak < 0 || p.LongestStreak < 0 {
		return fmt.Errorf("streak counters cannot be negative")
	}
	if p.LongestStreak < p.CurrentStreak {
		return fmt.Errorf("longest streak %d cannot be less than current streak %d",
			p.LongestStreak, p.CurrentStreak)
	}
	if p.TotalStudyTime < 0 || p.QuizzesCompleted < 0 || p.QuizzesPassed < 0 ||
		p.ResourcesCompleted < 0 || p.CertificatesEarned < 0 {
		return fmt.Errorf("counters cannot be negative")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// ApplyXP применяет прибавку XP и пересчитывает уровень.
// Возвращает новый уровень и флаг повышения. Уровень монотонен:
// пересчитанное значение сохраняется, только если оно выросло.
func (p *UserProgress) ApplyXP(amount XP) (newLevel Level, leveledUp bool, err error) {
	if amount <= 0 {
		return p.Level, false, ErrInvalidXPAmount
	}

	p.TotalXP = p.TotalXP.Add(amount)
	p.UpdatedAt = time.Now().UTC()

	recomputed := LevelFromXP(p.TotalXP)
	if recomputed > p.Level {
		p.Level = recomputed
		return p.Level, true, nil
	}

	return p.Level, false, nil
}

// RecordQuiz записывает прохождение квиза.
func (p *UserProgress) RecordQuiz(passed bool) {
	p.QuizzesCompleted++
	if passed {
		p.QuizzesPassed++
	}
	p.UpdatedAt = time.Now().UTC()
}

// RecordResourceCompleted записывает изучение ресурса.
func (p *UserProgress) RecordResourceCompleted() {
	p.ResourcesCompleted++
	p.UpdatedAt = time.Now().UTC()
}

// RecordCertificate записывает получение сертификата.
func (p *UserProgress) RecordCertificate() {
	p.CertificatesEarned++
	p.UpdatedAt = time.Now().UTC()
}

// AddStudyTime добавляет минуты обучения.
func (p *UserProgress) AddStudyTime(minutes int) error {
	if minutes < 0 {
		return ErrInvalidStudyTime
	}
	p.TotalStudyTime += minutes
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// XPToNextLevel возвращает, сколько XP осталось до следующего уровня.
func (p *UserProgress) XPToNextLevel() XP {
	next := XPForLevel(p.Level + 1)
	if next <= p.TotalXP {
		return 0
	}
	return next - p.TotalXP
}

// String возвращает строковое представление для логирования.
func (p *UserProgress) String() string {
	return fmt.Sprintf(
		"UserProgress{User: %s, XP: %d, Level: %d, Streak: %d/%d}",
		p.UserID, p.TotalXP, p.Level, p.CurrentStreak, p.LongestStreak,
	)
}

// Clone создаёт глубокую копию записи прогресса.
func (p *UserProgress) Clone() *UserProgress {
	if p == nil {
		return nil
	}

	clone := *p
	return &clone
}
