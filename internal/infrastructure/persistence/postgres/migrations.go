// Package postgres implements the PostgreSQL persistence layer for the
// LearnSphere progression engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create user_progress ledger
-- Version: 001

CREATE TABLE IF NOT EXISTS user_progress (
    user_id VARCHAR(64) PRIMARY KEY,
    total_xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_activity_date DATE,
    total_study_time INTEGER NOT NULL DEFAULT 0,
    quizzes_completed INTEGER NOT NULL DEFAULT 0,
    quizzes_passed INTEGER NOT NULL DEFAULT 0,
    resources_completed INTEGER NOT NULL DEFAULT 0,
    certificates_earned INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_xp CHECK (total_xp >= 0),
    CONSTRAINT valid_level CHECK (level >= 1),
    CONSTRAINT valid_streaks CHECK (
        current_streak >= 0 AND longest_streak >= current_streak
    ),
    CONSTRAINT valid_counters CHECK (
        total_study_time >= 0 AND quizzes_completed >= 0 AND
        quizzes_passed >= 0 AND resources_completed >= 0 AND
        certificates_earned >= 0
    )
);

-- Leaderboard reads sort by XP
CREATE INDEX IF NOT EXISTS idx_user_progress_total_xp ON user_progress(total_xp DESC);

-- Streak-risk digest scans by activity date
CREATE INDEX IF NOT EXISTS idx_user_progress_last_activity
    ON user_progress(last_activity_date) WHERE current_streak > 0;

CREATE TABLE IF NOT EXISTS xp_history (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    amount INTEGER NOT NULL,
    total_after INTEGER NOT NULL,
    reason VARCHAR(50) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT positive_amount CHECK (amount > 0)
);

CREATE INDEX IF NOT EXISTS idx_xp_history_user ON xp_history(user_id, created_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS xp_history;
DROP TABLE IF EXISTS user_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: USER ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create user_achievements
-- Version: 002

CREATE TABLE IF NOT EXISTS user_achievements (
    user_id VARCHAR(64) NOT NULL,
    achievement_id VARCHAR(50) NOT NULL,
    earned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Concurrent evaluation relies on this to absorb double-grants
    PRIMARY KEY (user_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_user_achievements_user
    ON user_achievements(user_id, earned_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS user_achievements;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: LEARNING PATHS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create learning_paths
-- Version: 003

CREATE TABLE IF NOT EXISTS learning_paths (
    id UUID PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    -- Modules embed each module's optional cached lesson content
    modules JSONB NOT NULL,
    completed_modules INTEGER NOT NULL DEFAULT 0,
    active_lesson JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_frontier CHECK (completed_modules >= 0)
);

CREATE INDEX IF NOT EXISTS idx_learning_paths_user
    ON learning_paths(user_id, created_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS learning_paths;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: USER SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create user_settings
-- Version: 004

CREATE TABLE IF NOT EXISTS user_settings (
    user_id VARCHAR(64) PRIMARY KEY,
    streak_reminders_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    achievement_notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    quiet_hours_start INTEGER NOT NULL DEFAULT 22,
    quiet_hours_end INTEGER NOT NULL DEFAULT 8,
    timezone VARCHAR(50) NOT NULL DEFAULT 'UTC',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_quiet_hours CHECK (
        quiet_hours_start BETWEEN 0 AND 23 AND quiet_hours_end BETWEEN 0 AND 23
    )
);
`

const migration004Down = `
DROP TABLE IF EXISTS user_settings;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_user_progress", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_user_achievements", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_learning_paths", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_user_settings", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}
