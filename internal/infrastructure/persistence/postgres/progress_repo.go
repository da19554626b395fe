package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `
	user_id, total_xp, level, current_streak, longest_streak,
	last_activity_date, total_study_time, quizzes_completed,
	quizzes_passed, resources_completed, certificates_earned,
	created_at, updated_at
`

// GetOrCreate returns the progress record, inserting a zeroed one on
// first access. The upsert makes concurrent first requests converge on
// a single row.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID progress.UserID) (*progress.UserProgress, error) {
	if !userID.IsValid() {
		return nil, progress.ErrInvalidUserID
	}

	query := `
		INSERT INTO user_progress (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + progressColumns

	row := r.conn.QueryRow(ctx, query, string(userID))
	return scanProgress(row)
}

// IncrementXP atomically adds amount to total_xp. The increment happens
// in the database, not in Go, so concurrent credits always add up.
func (r *ProgressRepository) IncrementXP(ctx context.Context, userID progress.UserID, amount progress.XP) (progress.XP, error) {
	if amount <= 0 {
		return 0, progress.ErrInvalidXPAmount
	}

	query := `
		UPDATE user_progress
		SET total_xp = total_xp + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING total_xp
	`

	var total int
	if err := r.conn.QueryRow(ctx, query, string(userID), int(amount)).Scan(&total); err != nil {
		if IsNoRows(err) {
			return 0, progress.ErrProgressNotFound
		}
		return 0, fmt.Errorf("failed to increment xp: %w", err)
	}
	return progress.XP(total), nil
}

// RaiseLevel raises the stored level monotonically: the update applies
// only while the stored level is still lower. Returns true if this call
// performed the raise.
func (r *ProgressRepository) RaiseLevel(ctx context.Context, userID progress.UserID, level progress.Level) (bool, error) {
	query := `
		UPDATE user_progress
		SET level = $2, updated_at = NOW()
		WHERE user_id = $1 AND level < $2
	`

	tag, err := r.conn.Exec(ctx, query, string(userID), int(level))
	if err != nil {
		return false, fmt.Errorf("failed to raise level: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SaveStreak persists the streak fields.
func (r *ProgressRepository) SaveStreak(ctx context.Context, p *progress.UserProgress) error {
	query := `
		UPDATE user_progress
		SET current_streak = $2, longest_streak = $3,
		    last_activity_date = $4, updated_at = NOW()
		WHERE user_id = $1
	`

	var lastActivity interface{}
	if !p.LastActivityDate.IsZero() {
		lastActivity = p.LastActivityDate
	}

	tag, err := r.conn.Exec(ctx, query,
		p.UserID.String(), p.CurrentStreak, p.LongestStreak, lastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return progress.ErrProgressNotFound
	}
	return nil
}

// SaveCounters persists the informational counters.
func (r *ProgressRepository) SaveCounters(ctx context.Context, p *progress.UserProgress) error {
	query := `
		UPDATE user_progress
		SET total_study_time = $2, quizzes_completed = $3, quizzes_passed = $4,
		    resources_completed = $5, certificates_earned = $6, updated_at = NOW()
		WHERE user_id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		p.UserID.String(), p.TotalStudyTime, p.QuizzesCompleted,
		p.QuizzesPassed, p.ResourcesCompleted, p.CertificatesEarned,
	)
	if err != nil {
		return fmt.Errorf("failed to save counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return progress.ErrProgressNotFound
	}
	return nil
}

// TopByXP returns a leaderboard page ordered by total_xp.
func (r *ProgressRepository) TopByXP(ctx context.Context, limit, offset int) ([]*progress.UserProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_progress
		ORDER BY total_xp DESC, user_id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.conn.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var records []*progress.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// Count returns the total number of progress records.
func (r *ProgressRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM user_progress").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count progress records: %w", err)
	}
	return count, nil
}

// FindStreaksAtRisk returns records with a live streak and no activity
// today, for the reminder digest.
func (r *ProgressRepository) FindStreaksAtRisk(ctx context.Context, today time.Time) ([]*progress.UserProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_progress
		WHERE current_streak > 0 AND last_activity_date < $1
	`

	rows, err := r.conn.Query(ctx, query, progress.DateOnly(today))
	if err != nil {
		return nil, fmt.Errorf("failed to query streaks at risk: %w", err)
	}
	defer rows.Close()

	var records []*progress.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// rowScanner abstracts pgx.Row and pgx.Rows for scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgress(row rowScanner) (*progress.UserProgress, error) {
	var (
		p            progress.UserProgress
		userID       string
		totalXP      int
		level        int
		lastActivity *time.Time
	)

	err := row.Scan(
		&userID, &totalXP, &level, &p.CurrentStreak, &p.LongestStreak,
		&lastActivity, &p.TotalStudyTime, &p.QuizzesCompleted,
		&p.QuizzesPassed, &p.ResourcesCompleted, &p.CertificatesEarned,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, progress.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to scan progress row: %w", err)
	}

	p.UserID = progress.UserID(userID)
	p.TotalXP = progress.XP(totalXP)
	p.Level = progress.Level(level)
	if lastActivity != nil {
		p.LastActivityDate = progress.DateOnly(*lastActivity)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("stored progress record is invalid: %w", err)
	}
	return &p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// XP HISTORY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// HistoryRepository implements progress.HistoryRepository for PostgreSQL.
type HistoryRepository struct {
	conn *Connection
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(conn *Connection) *HistoryRepository {
	return &HistoryRepository{conn: conn}
}

// Append adds an entry to the XP history ledger.
func (r *HistoryRepository) Append(ctx context.Context, entry progress.XPHistoryEntry) error {
	query := `
		INSERT INTO xp_history (user_id, amount, total_after, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := r.conn.Exec(ctx, query,
		entry.UserID.String(), int(entry.Amount), int(entry.TotalAfter),
		entry.Reason, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to append xp history: %w", err)
	}
	return nil
}

// Recent returns the latest history entries for a user.
func (r *HistoryRepository) Recent(ctx context.Context, userID progress.UserID, limit int) ([]progress.XPHistoryEntry, error) {
	query := `
		SELECT user_id, amount, total_after, reason, created_at
		FROM xp_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query xp history: %w", err)
	}
	defer rows.Close()

	var entries []progress.XPHistoryEntry
	for rows.Next() {
		var (
			e   progress.XPHistoryEntry
			uid string
			amt int
			tot int
		)
		if err := rows.Scan(&uid, &amt, &tot, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan xp history row: %w", err)
		}
		e.UserID = progress.UserID(uid)
		e.Amount = progress.XP(amt)
		e.TotalAfter = progress.XP(tot)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
