// Пакет feed — контракт внешней упорядоченной ленты метаданных клипов.
//
// Лента — источник истины о существовании и порядке записей: append/remove
// лог, где каждая запись имеет непрозрачный строго возрастающий ключ.
// Сервис консультируется с лентой и мутирует её, но не реализует её
// семантику: пакет содержит контракт, in-memory реализацию (тесты, dev)
// и REST-клиент к Firebase Realtime Database (прод, как в исходном
// развёртывании).
package feed

import (
	"context"

	"github.com/bigkaa/gosonglet/internal/domain/model"
)

// EventType — тип события ленты.
type EventType int

const (
	// EventAdd — запись добавлена в ленту.
	EventAdd EventType = iota
	// EventRemove — запись удалена из ленты.
	EventRemove
	// EventError — сбой доставки; подписчик решает, как реагировать.
	EventError
)

// Event — событие live-подписки на ленту.
// Для EventRemove заполнен как минимум Record.Key.
type Event struct {
	Type   EventType
	Record model.SongRecord
	Err    error
}

// Feed — контракт внешней упорядоченной ленты.
//
// Все блокирующие операции принимают context. Ключи сравниваются как строки;
// порядок ключей совпадает с порядком появления записей в ленте.
type Feed interface {
	// NewKey выделяет новый ключ ленты. Ключи строго возрастают
	// относительно ранее выделенных этим процессом.
	NewKey() string

	// Push записывает rec в ленту под rec.Key.
	Push(ctx context.Context, rec model.SongRecord) error

	// Get возвращает запись по ключу. Второй результат false — записи нет.
	Get(ctx context.Context, key string) (model.SongRecord, bool, error)

	// Remove удаляет запись по ключу. Удаление отсутствующего ключа — не ошибка.
	Remove(ctx context.Context, key string) error

	// EndingAt возвращает до limit записей с ключом <= key
	// в порядке убывания ключа (самые новые первыми).
	EndingAt(ctx context.Context, key string, limit int) ([]model.SongRecord, error)

	// OlderThan возвращает записи с timestamp <= cutoff (Unix-секунды).
	OlderThan(ctx context.Context, cutoff int64) ([]model.SongRecord, error)

	// Events возвращает канал live-событий add/remove.
	// Канал один на экземпляр ленты; читатель — кэш метаданных.
	Events() <-chan Event
}
