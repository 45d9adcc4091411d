// memory.go — in-memory реализация ленты для тестов и dev-режима.
package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/bigkaa/gosonglet/internal/domain/model"
)

// Memory — лента в памяти процесса. Потокобезопасна.
// Семантика операций повторяет контракт Feed; события add/remove
// доставляются подписчику через буферизованный канал.
type Memory struct {
	mu      sync.Mutex
	records map[string]model.SongRecord
	keys    []string // отсортированы по возрастанию
	gen     *keyGenerator
	events  chan Event
}

// NewMemory создаёт пустую in-memory ленту.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]model.SongRecord),
		gen:     newKeyGenerator(),
		events:  make(chan Event, 256),
	}
}

// NewKey выделяет новый строго возрастающий ключ.
func (m *Memory) NewKey() string {
	return m.gen.Next()
}

// Push записывает rec под rec.Key и публикует событие add.
func (m *Memory) Push(_ context.Context, rec model.SongRecord) error {
	m.mu.Lock()
	if _, exists := m.records[rec.Key]; !exists {
		idx := sort.SearchStrings(m.keys, rec.Key)
		m.keys = append(m.keys, "")
		copy(m.keys[idx+1:], m.keys[idx:])
		m.keys[idx] = rec.Key
	}
	m.records[rec.Key] = rec
	m.mu.Unlock()

	m.emit(Event{Type: EventAdd, Record: rec})
	return nil
}

// Get возвращает запись по ключу.
func (m *Memory) Get(_ context.Context, key string) (model.SongRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

// Remove удаляет запись по ключу и публикует событие remove.
// Отсутствующий ключ — no-op без события.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	_, ok := m.records[key]
	if ok {
		delete(m.records, key)
		idx := sort.SearchStrings(m.keys, key)
		if idx < len(m.keys) && m.keys[idx] == key {
			m.keys = append(m.keys[:idx], m.keys[idx+1:]...)
		}
	}
	m.mu.Unlock()

	if ok {
		m.emit(Event{Type: EventRemove, Record: model.SongRecord{Key: key}})
	}
	return nil
}

// EndingAt возвращает до limit записей с ключом <= key по убыванию.
func (m *Memory) EndingAt(_ context.Context, key string, limit int) ([]model.SongRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Позиция первого ключа > key
	hi := sort.SearchStrings(m.keys, key)
	if hi < len(m.keys) && m.keys[hi] == key {
		hi++
	}

	var out []model.SongRecord
	for i := hi - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[m.keys[i]])
	}
	return out, nil
}

// OlderThan возвращает записи с timestamp <= cutoff.
func (m *Memory) OlderThan(_ context.Context, cutoff int64) ([]model.SongRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.SongRecord
	for _, k := range m.keys {
		if rec := m.records[k]; rec.Timestamp <= cutoff {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Events возвращает канал событий ленты.
func (m *Memory) Events() <-chan Event {
	return m.events
}

// emit публикует событие, не блокируясь при переполнении буфера:
// лента не должна зависеть от скорости подписчика, кэш — best-effort.
func (m *Memory) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}

// Проверка соответствия контракту на этапе компиляции.
var _ Feed = (*Memory)(nil)
