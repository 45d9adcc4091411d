// Пакет tokenstore — хранилище pending upload-токенов.
//
// Токен создаётся на шаге верификации (/verify) и связывает её с последующей
// загрузкой: валидатор тегов находит токен по идентификатору из трейлера и
// проверяет свежесть. Хранилище ограничено по размеру и по TTL — обёртка над
// hashicorp/golang-lru/v2/expirable с TTL, равным окну свежести загрузки.
package tokenstore

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики хранилища токенов.
var (
	tokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sl_pending_tokens_issued_total",
		Help: "Общее количество выданных upload-токенов",
	})
	tokenLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sl_pending_token_lookups_total",
			Help: "Количество поисков upload-токенов",
		},
		[]string{"result"},
	)
)

// Store — хранилище pending-токенов с ограничением размера и TTL.
type Store struct {
	cache  *expirable.LRU[string, time.Time]
	maxAge time.Duration
}

// New создаёт хранилище на maxSize токенов с TTL maxAge.
// maxAge — окно свежести загрузки (maxUploadPendingTime).
func New(maxSize int, maxAge time.Duration) *Store {
	return &Store{
		cache:  expirable.NewLRU[string, time.Time](maxSize, nil, maxAge),
		maxAge: maxAge,
	}
}

// Put регистрирует токен с моментом выдачи.
func (s *Store) Put(id string, issuedAt time.Time) {
	s.cache.Add(id, issuedAt)
	tokensIssuedTotal.Inc()
}

// Lookup возвращает момент выдачи токена. Токен не удаляется:
// лента pending-токенов чистится по TTL и sweep-проходом.
func (s *Store) Lookup(id string) (time.Time, bool) {
	issuedAt, ok := s.cache.Get(id)
	if ok {
		tokenLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		tokenLookupsTotal.WithLabelValues("miss").Inc()
	}
	return issuedAt, ok
}

// Remove удаляет токен.
func (s *Store) Remove(id string) {
	s.cache.Remove(id)
}

// Len возвращает текущее количество токенов (включая ещё не вычищенные TTL).
func (s *Store) Len() int {
	return s.cache.Len()
}

// Sweep удаляет токены старше maxAge относительно now и возвращает
// количество удалённых. LRU чистит просроченные записи и сам, но sweep
// даёт явную гарантию прохода для /clean.
func (s *Store) Sweep(now time.Time) int {
	purged := 0
	for _, id := range s.cache.Keys() {
		issuedAt, ok := s.cache.Peek(id)
		if !ok {
			continue
		}
		if now.Sub(issuedAt) > s.maxAge {
			s.cache.Remove(id)
			purged++
		}
	}
	return purged
}
