package learningpath

import (
	"context"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// Repository определяет операции персистентности для учебных путей.
type Repository interface {
	// Create сохраняет новый путь.
	Create(ctx context.Context, lp *LearningPath) error

	// GetByID возвращает путь по идентификатору.
	// ErrPathNotFound, если путь не существует.
	GetByID(ctx context.Context, id PathID) (*LearningPath, error)

	// ListByUser возвращает все пути пользователя (от новых к старым).
	ListByUser(ctx context.Context, userID progress.UserID) ([]*LearningPath, error)

	// AdvanceFrontier атомарно сдвигает фронтир с expected на expected+1.
	// Оптимистичная проверка: апдейт применяется только если сохранённый
	// CompletedModules всё ещё равен expected. Возвращает false при
	// устаревшем фронтире (конкурентное или повторное завершение) -
	// вызывающая сторона сообщает о rejected no-op, не ретраит.
	AdvanceFrontier(ctx context.Context, id PathID, expected int) (bool, error)

	// Update сохраняет изменяемые поля пути (модули с кэшем уроков,
	// активный урок, заголовок, описание).
	Update(ctx context.Context, lp *LearningPath) error

	// Delete удаляет путь. ErrPathNotFound при повторном удалении -
	// клиент трактует это как идемпотентный успех.
	Delete(ctx context.Context, id PathID) error
}
