// index.go — бинарный поиск по убывающему (по ключу) срезу записей.
package cache

import "github.com/bigkaa/gosonglet/internal/domain/model"

// Locate ищет key в срезе entries, отсортированном строго по убыванию ключа.
// Возвращает (index, true), если entries[index].Key == key.
// Иначе возвращает (index, false), где index — позиция вставки,
// сохраняющая порядок сортировки. O(log n).
func Locate(entries []model.SongRecord, key string) (int, bool) {
	lo := 0
	hi := len(entries) - 1
	for lo <= hi {
		m := (lo + hi) / 2
		switch {
		case entries[m].Key > key:
			lo = m + 1
		case entries[m].Key < key:
			hi = m - 1
		default:
			return m, true
		}
	}
	return lo, false
}
