// Package main - точка входа REST API движка прогрессии LearnSphere.
//
// API обслуживает весь пользовательский трафик:
// - Журнал прогресса (XP, уровни, история начислений)
// - Стрики и достижения
// - Учебные пути и фронтир модулей
// - Кэш сгенерированных уроков
// - Настройки напоминаний
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
	"github.com/learnsphere/learnsphere-backend/internal/application/command"
	"github.com/learnsphere/learnsphere-backend/internal/application/query"
	"github.com/learnsphere/learnsphere-backend/internal/application/saga"
	"github.com/learnsphere/learnsphere-backend/internal/domain/leaderboard"
	"github.com/learnsphere/learnsphere-backend/internal/domain/shared"
	"github.com/learnsphere/learnsphere-backend/internal/infrastructure/generation"
	"github.com/learnsphere/learnsphere-backend/internal/infrastructure/messaging"
	"github.com/learnsphere/learnsphere-backend/internal/infrastructure/persistence/postgres"
	"github.com/learnsphere/learnsphere-backend/internal/infrastructure/persistence/redis"
	httpapi "github.com/learnsphere/learnsphere-backend/internal/interface/http"
	"github.com/learnsphere/learnsphere-backend/pkg/logger"
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
	log.Info("starting LearnSphere API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. МИГРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (опционально)
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
			// Лидерборд умеет падать на хранилище, поэтому без Redis
			// API всё равно поднимается
			log.Warn("failed to connect to Redis, cache disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
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
	// 7. РЕПОЗИТОРИИ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	progressRepo := postgres.NewProgressRepository(dbConn)
	historyRepo := postgres.NewHistoryRepository(dbConn)
	achievementRepo := postgres.NewAchievementRepository(dbConn)
	pathRepo := postgres.NewPathRepository(dbConn)
	settingsRepo := postgres.NewSettingsRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ВНЕШНИЕ КЛИЕНТЫ
	// ─────────────────────────────────────────────────────────────────────────
	genCfg := generation.DefaultClientConfig(cfg.Generator.BaseURL)
	genCfg.APIKey = cfg.Generator.APIKey
	genCfg.Timeout = cfg.Generator.RequestTimeout
	genCfg.Logger = log
	genCfg.Debug = cfg.App.Debug
	genClient := generation.NewClient(genCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER (CQRS)
	// ─────────────────────────────────────────────────────────────────────────
	addXP := command.NewAddXPHandler(progressRepo, historyRepo, publisher)
	recordStreak := command.NewRecordStreakHandler(progressRepo, publisher)
	achievementFlow := saga.NewAchievementFlowSaga(progressRepo, achievementRepo, addXP, publisher)

	completeModule := command.NewCompleteModuleHandler(pathRepo, addXP, recordStreak, achievementFlow, publisher)
	openLesson := command.NewOpenLessonHandler(pathRepo, genClient, publisher, cfg.Generator.RequestTimeout)
	closeLesson := command.NewCloseLessonHandler(pathRepo)
	createPath := command.NewCreatePathHandler(pathRepo, publisher)
	updatePath := command.NewUpdatePathHandler(pathRepo)
	deletePath := command.NewDeletePathHandler(pathRepo, publisher)
	updateSettings := command.NewUpdateSettingsHandler(settingsRepo)
	recordActivity := command.NewRecordActivityHandler(progressRepo, addXP, achievementFlow)

	var lbCache leaderboard.Cache
	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureLeaderboardCache, nil) {
		lbCache = redis.NewLeaderboardCache(redisCache)
	}

	getProgress := query.NewGetProgressHandler(progressRepo, historyRepo)
	getLeaderboard := query.NewGetLeaderboardHandler(progressRepo, lbCache)
	getAchievements := query.NewGetAchievementsHandler(achievementRepo)
	listPaths := query.NewListPathsHandler(pathRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	httpLogger := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  httpLogLevel(cfg.Observability.LogLevel),
	})

	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.JWTSecret = cfg.Auth.JWTSecret

	server := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		AddXPHandler:           addXP,
		RecordStreakHandler:    recordStreak,
		CompleteModuleHandler:  completeModule,
		OpenLessonHandler:      openLesson,
		CloseLessonHandler:     closeLesson,
		CreatePathHandler:      createPath,
		UpdatePathHandler:      updatePath,
		DeletePathHandler:      deletePath,
		UpdateSettingsHandler:  updateSettings,
		RecordActivityHandler:  recordActivity,
		AchievementFlow:        achievementFlow,
		GetProgressHandler:     getProgress,
		GetLeaderboardHandler:  getLeaderboard,
		GetAchievementsHandler: getAchievements,
		ListPathsHandler:       listPaths,
		SettingsRepo:           settingsRepo,
		Features:               cfg.Features,
		ReadyCheck: func(ctx context.Context) error {
			return dbConn.Ping(ctx)
		},
		Logger: httpLogger,
	})

	errCh := server.StartAsync()
	log.Info("LearnSphere API is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
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

func httpLogLevel(level string) logger.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}
