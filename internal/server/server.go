// Пакет server — HTTP-сервер songlet с graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "github.com/bigkaa/gosonglet/internal/api/errors"
	"github.com/bigkaa/gosonglet/internal/api/handlers"
	"github.com/bigkaa/gosonglet/internal/api/middleware"
	"github.com/bigkaa/gosonglet/internal/config"
)

// Server — HTTP-сервер songlet.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	api *handlers.APIHandler,
	health *handlers.HealthHandler,
	static *handlers.StaticHandler,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// Несовпадение метода на известном маршруте — общий отказ,
	// а не 405: клиент различает только успех и отказ
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteFail(w)
	})

	// JSON API: все эндпоинты — POST, как у клиента
	router.Post("/verify", api.Verify)
	router.Post("/create", api.Create)
	router.Post("/read", api.Read)
	router.Post("/delete", api.Delete)
	router.Post("/clean", api.Clean)

	// Health endpoints для Kubernetes probes
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)

	// Prometheus метрики
	router.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Опубликованные клипы
	router.Get("/files/{name}", static.ServeClip)

	// Всё остальное — клиентская сборка (SPA)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			apierrors.WriteFail(w)
			return
		}
		static.ServeClient(w, r)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
		// WriteTimeout не задаётся: приём клипа ограничивает
		// admission control (SL_MAX_POST_TIME), а не таймаут сервера
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// SL_SHUTDOWN_TIMEOUT.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
