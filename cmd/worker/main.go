// Package main - точка входа фоновых процессов (Worker) LearnSphere.
//
// Worker отвечает за периодические задачи:
// - Пересборка материализованного лидерборда в Redis
// - Вечерние напоминания о стрике под угрозой
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/learnsphere/learnsphere-backend/config"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
	"github.com/learnsphere/learnsphere-backend/internal/infrastructure/messaging"
	"github.com/learnsphere/learnsphere-backend/internal/infrastructure/persistence/postgres"
	"github.com/learnsphere/learnsphere-backend/internal/infrastructure/persistence/redis"
	"github.com/learnsphere/learnsphere-backend/internal/infrastructure/scheduler"
	"github.com/learnsphere/learnsphere-backend/internal/infrastructure/scheduler/jobs"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting LearnSphere Worker",
		"env", cfg.App.Environment,
		"timezone", cfg.App.Timezone,
	)

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler is disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// Worker тоже должен работать с актуальной схемой
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (нужен для пересборки лидерборда)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}

		redisCache, err = redis.NewCache(ctx, redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, leaderboard rebuild disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	localBusCfg := messaging.DefaultInMemoryEventBusConfig()
	localBusCfg.Logger = log

	var publisher shared.EventPublisher
	if redisCache != nil {
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redisCache.Client(),
			LocalBusConfig: localBusCfg,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		defer func() { _ = bus.Close() }()
		publisher = bus
	} else {
		bus := messaging.NewInMemoryEventBus(localBusCfg)
		defer func() { _ = bus.Close() }()
		publisher = bus
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ПЛАНИРОВЩИК И ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	progressRepo := postgres.NewProgressRepository(dbConn)
	settingsRepo := postgres.NewSettingsRepository(dbConn)

	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:        log,
		Timezone:      cfg.App.Location,
		EnableMetrics: true,
	})

	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureLeaderboardRebuildJob, nil) {
		rebuildCfg := jobs.DefaultRebuildLeaderboardConfig()
		// TTL переживает один пропущенный цикл пересборки
		rebuildCfg.CacheTTL = 2 * cfg.Scheduler.RebuildLeaderboardInterval
		rebuildCfg.Timeout = cfg.Scheduler.JobTimeout

		rebuildJob := jobs.NewRebuildLeaderboardJob(
			progressRepo,
			redis.NewLeaderboardCache(redisCache),
			publisher,
			log,
			rebuildCfg,
		)
		if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
			return fmt.Errorf("failed to register rebuild job: %w", err)
		}
	}

	if cfg.Features.IsEnabled(config.FeatureNotifyStreakReminder, nil) {
		reminderCfg := jobs.DefaultStreakReminderConfig()
		reminderCfg.Timeout = cfg.Scheduler.JobTimeout

		reminderJob := jobs.NewStreakReminderJob(
			progressRepo,
			settingsRepo,
			publisher,
			log,
			reminderCfg,
		)
		reminderSchedule := scheduler.NewDailySchedule(
			cfg.Scheduler.StreakReminderHour,
			cfg.Scheduler.StreakReminderMinute,
			cfg.App.Location,
		)
		if err := sched.Register(reminderJob, reminderSchedule); err != nil {
			return fmt.Errorf("failed to register reminder job: %w", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	for _, job := range sched.ListJobs() {
		log.Info("job registered", "name", job.Name, "description", job.Description)
	}
	log.Info("LearnSphere Worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop reported error", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slogLevel(cfg.Observability.LogLevel),
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
