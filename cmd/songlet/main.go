// Точка входа songlet — сервиса коротких аудиоклипов со сроком хранения.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/gosonglet/internal/api/handlers"
	"github.com/bigkaa/gosonglet/internal/cache"
	"github.com/bigkaa/gosonglet/internal/captcha"
	"github.com/bigkaa/gosonglet/internal/config"
	"github.com/bigkaa/gosonglet/internal/feed"
	"github.com/bigkaa/gosonglet/internal/server"
	"github.com/bigkaa/gosonglet/internal/service"
	"github.com/bigkaa/gosonglet/internal/storage/blobstore"
	"github.com/bigkaa/gosonglet/internal/tokenstore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Songlet запускается",
		slog.String("instance_id", cfg.InstanceID),
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("feed_backend", cfg.FeedBackend),
	)

	// --- Инициализация компонентов ---

	ctx := context.Background()

	// 1. Объектное хранилище клипов
	store, err := blobstore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Лента метаданных
	var songs feed.Feed
	switch cfg.FeedBackend {
	case "firebase":
		fb := feed.NewFirebase(cfg.FeedURL, cfg.FeedAuthToken, cfg.MaxCacheSize, nil, logger)
		fb.Start(ctx)
		songs = fb
	default:
		songs = feed.NewMemory()
		logger.Warn("Используется in-memory лента: записи не переживут перезапуск")
	}

	// 3. Кэш метаданных: наполняется live-событиями ленты
	songCache := cache.New(cfg.MaxCacheSize, logger)
	go songCache.Run(ctx, songs.Events())

	// 4. Реестр ожидающих токенов загрузки
	tokens := tokenstore.New(cfg.MaxPendingTokens, cfg.MaxUploadPendingTime)

	// 5. Оракул капчи
	oracle := captcha.New(cfg.CaptchaVerifyURL, cfg.CaptchaSecret, nil, logger)

	// 6. Сервисы
	validator := service.NewTagValidator(tokens, cfg.MaxUploadPendingTime, logger)
	verifySvc := service.NewVerifyService(oracle, tokens, logger)
	uploadSvc := service.NewUploadService(store, songs, validator, logger)
	readSvc := service.NewReadService(songCache, songs, cfg.ChunkSize, logger)
	deleteSvc := service.NewDeleteService(oracle, songs, store, logger)

	// 7. Фоновая уборка по сроку хранения
	sweeper := service.NewRetentionSweeper(tokens, songs, store,
		cfg.RetentionWindow, cfg.SweepInterval, logger)
	sweeper.Start(ctx)

	// 8. topologymetrics — мониторинг зависимостей
	targets := []service.DependencyTarget{
		{Name: "captcha", URL: cfg.CaptchaVerifyURL},
	}
	if cfg.FeedBackend == "firebase" {
		targets = append(targets, service.DependencyTarget{Name: "feed", URL: cfg.FeedURL})
	}
	dephealthSvc, dephealthErr := service.NewDephealthService(
		cfg.InstanceID,
		cfg.DephealthGroup,
		targets,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 9. Handlers
	apiHandler := handlers.NewAPIHandler(
		verifySvc,
		uploadSvc,
		readSvc,
		deleteSvc,
		sweeper,
		handlers.QueryLimits{MaxBytes: cfg.MaxQueryBytes, MaxElapsed: cfg.MaxQueryTime},
		handlers.QueryLimits{MaxBytes: cfg.MaxPostBytes, MaxElapsed: cfg.MaxPostTime},
		cfg.URLRoot,
		logger,
	)

	var deps handlers.DependencyHealth
	if dephealthSvc != nil && dephealthErr == nil {
		deps = dephealthSvc
	}
	healthHandler := handlers.NewHealthHandler(cfg.DataDir, deps)
	staticHandler := handlers.NewStaticHandler(cfg.StaticDir, store, logger)

	// 10. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, healthHandler, staticHandler)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	sweeper.Stop()
	if dephealthErr == nil && dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Songlet остановлен")
}
