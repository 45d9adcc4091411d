// Пакет cache — ограниченный упорядоченный in-memory кэш метаданных клипов.
//
// Кэш зеркалирует события внешней ленты (add/remove) с отставанием и
// ограничением по размеру. Инвариант: срез строго отсортирован по убыванию
// ключа, без дубликатов, длина <= maxSize. Кэш — best-effort ускоритель,
// никогда не источник истины: всё, что он не может ответить точно,
// запрашивается напрямую у ленты.
//
// Потокобезопасен через sync.Mutex: обработчики событий ленты и read-запросы
// работают из разных горутин.
package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gosonglet/internal/domain/model"
	"github.com/bigkaa/gosonglet/internal/feed"
)

// Prometheus-метрики кэша.
var (
	cacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sl_song_cache_size",
		Help: "Текущее количество записей в кэше метаданных клипов",
	})
	cacheEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sl_song_cache_events_total",
			Help: "Количество применённых событий ленты",
		},
		[]string{"type"},
	)
	cacheLateArrivalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sl_song_cache_late_arrivals_total",
		Help: "Количество событий add, пришедших с опозданием (не по порядку)",
	})
)

// SongCache — упорядоченный кэш записей ленты.
type SongCache struct {
	mu      sync.Mutex
	entries []model.SongRecord
	// lastInOrder — ключ последней записи, пришедшей по порядку.
	// Пустая строка — записей по порядку ещё не было.
	lastInOrder string
	maxSize     int
	logger      *slog.Logger
}

// New создаёт пустой кэш с ограничением maxSize записей.
func New(maxSize int, logger *slog.Logger) *SongCache {
	return &SongCache{
		maxSize: maxSize,
		logger:  logger.With(slog.String("component", "song_cache")),
	}
}

// ApplyAdd применяет событие добавления записи.
//
// Обычный путь: ключ новее всех пришедших по порядку — запись ставится
// в голову среза. Поздний приход (ключ <= lastInOrder) вставляется в свою
// позицию через бинарный поиск; если ключ уже есть, вставка пропускается.
// После любой вставки хвост усечётся до maxSize.
func (c *SongCache) ApplyAdd(rec model.SongRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastInOrder != "" && c.lastInOrder >= rec.Key {
		// Поздний приход: ищем отсортированную позицию
		cacheLateArrivalsTotal.Inc()
		idx, found := Locate(c.entries, rec.Key)
		if !found {
			c.entries = append(c.entries, model.SongRecord{})
			copy(c.entries[idx+1:], c.entries[idx:])
			c.entries[idx] = rec
		}
	} else {
		// Приход по порядку: просто в голову
		c.lastInOrder = rec.Key
		c.entries = append([]model.SongRecord{rec}, c.entries...)
	}

	if len(c.entries) > c.maxSize {
		c.entries = c.entries[:c.maxSize]
	}

	cacheEventsTotal.WithLabelValues("add").Inc()
	cacheSize.Set(float64(len(c.entries)))
}

// ApplyRemove применяет событие удаления записи по ключу.
// Отсутствующий ключ — no-op: запись могла быть вытеснена или не кэширована.
func (c *SongCache) ApplyRemove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, found := Locate(c.entries, key)
	if found {
		c.entries = append(c.entries[:idx], c.entries[idx+1:]...)
	}

	cacheEventsTotal.WithLabelValues("remove").Inc()
	cacheSize.Set(float64(len(c.entries)))
}

// Snapshot возвращает копию свежайших limit записей (или всех, если их меньше).
// limit <= 0 — все записи.
func (c *SongCache) Snapshot(limit int) []model.SongRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.SongRecord, n)
	copy(out, c.entries[:n])
	return out
}

// Len возвращает текущую длину кэша.
func (c *SongCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CountSince возвращает количество записей новее key и флаг plus.
//
// key == "" — длина кэша, ограниченная chunkSize; plus выставляется,
// когда длина достигла chunkSize (записей может быть больше).
// Ключ найден в кэше — его индекс (количество строго более новых записей),
// plus=false. Ключ не найден — полная длина кэша и plus=true: настоящее
// количество как минимум такое, дальше кэш не знает.
func (c *SongCache) CountSince(key string, chunkSize int) (count int, plus bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == "" {
		count = len(c.entries)
		if count >= chunkSize {
			count = chunkSize
			plus = true
		}
		return count, plus
	}

	idx, found := Locate(c.entries, key)
	if found {
		return idx, false
	}
	return len(c.entries), true
}

// Run читает события ленты и применяет их к кэшу до отмены ctx
// или закрытия канала событий. Ошибки доставки логируются и игнорируются.
// Запускается как горутина при старте приложения.
func (c *SongCache) Run(ctx context.Context, events <-chan feed.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.logger.Warn("Канал событий ленты закрыт, кэш больше не обновляется")
				return
			}
			switch ev.Type {
			case feed.EventAdd:
				c.ApplyAdd(ev.Record)
			case feed.EventRemove:
				c.ApplyRemove(ev.Record.Key)
			case feed.EventError:
				// Кэш — best-effort: сбой доставки не фатален
				c.logger.Error("Ошибка доставки события ленты",
					slog.String("error", ev.Err.Error()),
				)
			}
		}
	}
}
