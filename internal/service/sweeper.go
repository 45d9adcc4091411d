// sweeper.go — сервис фоновой уборки по сроку хранения.
//
// Уборщик выполняет три прохода:
//  1. Чистит реестр ожидающих загрузок от просроченных токенов
//  2. Удаляет из ленты и хранилища клипы старше срока хранения
//  3. Подбирает осиротевшие объекты: файлы без записи в ленте
//
// Запускается как горутина с периодическим тикером (SL_SWEEP_INTERVAL)
// и по требованию через эндпоинт /clean.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gosonglet/internal/domain/model"
	"github.com/bigkaa/gosonglet/internal/feed"
	"github.com/bigkaa/gosonglet/internal/storage/blobstore"
	"github.com/bigkaa/gosonglet/internal/tokenstore"
)

// Prometheus метрики уборщика
var (
	// sweepRunsTotal — количество запусков уборки.
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sl_sweep_runs_total",
		Help: "Общее количество запусков уборки",
	})

	// sweepTokensPurgedTotal — количество удалённых просроченных токенов.
	sweepTokensPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sl_sweep_tokens_purged_total",
		Help: "Общее количество просроченных токенов загрузки, удалённых уборкой",
	})

	// sweepSongsRemovedTotal — количество клипов, удалённых по сроку хранения.
	sweepSongsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sl_sweep_songs_removed_total",
		Help: "Общее количество клипов, удалённых по сроку хранения",
	})

	// sweepOrphansRemovedTotal — количество удалённых осиротевших объектов.
	sweepOrphansRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sl_sweep_orphans_removed_total",
		Help: "Общее количество осиротевших объектов, удалённых уборкой",
	})

	// sweepDurationSeconds — длительность выполнения уборки.
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sl_sweep_duration_seconds",
		Help:    "Длительность выполнения уборки в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// SweepResult — результат одного запуска уборки.
type SweepResult struct {
	// TokensPurged — количество удалённых просроченных токенов
	TokensPurged int
	// SongsRemoved — количество клипов, удалённых по сроку хранения
	SongsRemoved int
	// OrphansRemoved — количество удалённых осиротевших объектов
	OrphansRemoved int
	// Errors — количество ошибок при обработке
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// RetentionSweeper — сервис фоновой уборки.
type RetentionSweeper struct {
	tokens    *tokenstore.Store
	songs     feed.Feed
	store     *blobstore.Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc

	now func() time.Time
}

// NewRetentionSweeper создаёт уборщик. retention — срок хранения клипа,
// interval — период фоновых запусков.
func NewRetentionSweeper(
	tokens *tokenstore.Store,
	songs feed.Feed,
	store *blobstore.Store,
	retention time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *RetentionSweeper {
	return &RetentionSweeper{
		tokens:    tokens,
		songs:     songs,
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "sweeper")),
		now:       time.Now,
	}
}

// Start запускает фоновую горутину уборки с периодическим тикером.
// Вызывается один раз при старте приложения.
func (sw *RetentionSweeper) Start(ctx context.Context) {
	swCtx, cancel := context.WithCancel(ctx)
	sw.cancel = cancel

	go sw.run(swCtx)

	sw.logger.Info("Уборщик запущен",
		slog.String("retention", sw.retention.String()),
		slog.String("interval", sw.interval.String()),
	)
}

// Stop останавливает фоновый процесс уборки.
func (sw *RetentionSweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	sw.logger.Info("Уборщик остановлен")
}

// run — основной цикл фоновой горутины.
func (sw *RetentionSweeper) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	sw.RunOnce(ctx)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл уборки.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
func (sw *RetentionSweeper) RunOnce(ctx context.Context) *SweepResult {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	start := sw.now()
	result := &SweepResult{}

	sw.logger.Debug("Уборка начата")

	// Фаза 1: просроченные токены загрузки
	result.TokensPurged = sw.tokens.Sweep(start)

	// Фаза 2: клипы старше срока хранения
	removed, errs := sw.removeExpired(ctx, start)
	result.SongsRemoved = removed
	result.Errors += errs

	// Фаза 3: осиротевшие объекты
	orphans, errs := sw.removeOrphans(ctx, start)
	result.OrphansRemoved = orphans
	result.Errors += errs

	result.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepTokensPurgedTotal.Add(float64(result.TokensPurged))
	sweepSongsRemovedTotal.Add(float64(result.SongsRemoved))
	sweepOrphansRemovedTotal.Add(float64(result.OrphansRemoved))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	sw.logger.Info("Уборка завершена",
		slog.Int("tokens_purged", result.TokensPurged),
		slog.Int("songs_removed", result.SongsRemoved),
		slog.Int("orphans_removed", result.OrphansRemoved),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}

// removeExpired удаляет клипы, опубликованные раньше среза срока хранения.
// Удаление объекта — best-effort: запись в ленте удаляется в любом случае,
// осиротевший объект подберёт третья фаза.
func (sw *RetentionSweeper) removeExpired(ctx context.Context, now time.Time) (removed, errors int) {
	cutoff := now.Add(-sw.retention).Unix()

	recs, err := sw.songs.OlderThan(ctx, cutoff)
	if err != nil {
		sw.logger.Error("Уборка: ошибка выборки устаревших записей",
			slog.String("error", err.Error()),
		)
		return 0, 1
	}

	for _, rec := range recs {
		objectName := model.ObjectName(rec.Timestamp, rec.Key)
		if err := sw.store.Delete(objectName); err != nil {
			sw.logger.Error("Уборка: ошибка удаления объекта",
				slog.String("key", rec.Key),
				slog.String("object", objectName),
				slog.String("error", err.Error()),
			)
			errors++
		}

		if err := sw.songs.Remove(ctx, rec.Key); err != nil {
			sw.logger.Error("Уборка: ошибка удаления записи из ленты",
				slog.String("key", rec.Key),
				slog.String("error", err.Error()),
			)
			errors++
			continue
		}

		sw.logger.Debug("Уборка: клип удалён по сроку хранения",
			slog.String("key", rec.Key),
			slog.String("title", rec.Title),
			slog.String("artist", rec.Artist),
		)
		removed++
	}

	return removed, errors
}

// removeOrphans удаляет объекты хранилища, не имеющие записи в ленте.
// Рассматриваются только объекты старше срока хранения: свежий объект может
// находиться в процессе публикации.
func (sw *RetentionSweeper) removeOrphans(ctx context.Context, now time.Time) (removed, errors int) {
	cutoff := now.Add(-sw.retention)

	names, err := sw.store.ScanOlderThan(cutoff)
	if err != nil {
		sw.logger.Error("Уборка: ошибка сканирования хранилища",
			slog.String("error", err.Error()),
		)
		return 0, 1
	}

	for _, name := range names {
		key, ok := model.KeyFromObjectName(name)
		if !ok {
			sw.logger.Warn("Уборка: объект с нераспознанным именем",
				slog.String("object", name),
			)
			continue
		}

		_, found, err := sw.songs.Get(ctx, key)
		if err != nil {
			sw.logger.Error("Уборка: ошибка проверки записи в ленте",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			errors++
			continue
		}
		if found {
			continue
		}

		if err := sw.store.Delete(name); err != nil {
			sw.logger.Error("Уборка: ошибка удаления осиротевшего объекта",
				slog.String("object", name),
				slog.String("error", err.Error()),
			)
			errors++
			continue
		}

		sw.logger.Debug("Уборка: осиротевший объект удалён",
			slog.String("object", name),
		)
		removed++
	}

	return removed, errors
}
