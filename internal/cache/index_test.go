package cache

import (
	"testing"

	"github.com/bigkaa/gosonglet/internal/domain/model"
)

func descending(keys ...string) []model.SongRecord {
	out := make([]model.SongRecord, len(keys))
	for i, k := range keys {
		out[i] = model.SongRecord{Key: k}
	}
	return out
}

func TestLocate_Found(t *testing.T) {
	entries := descending("key9", "key7", "key5", "key3", "key1")

	for want, key := range []string{"key9", "key7", "key5", "key3", "key1"} {
		idx, found := Locate(entries, key)
		if !found {
			t.Errorf("Ключ %s не найден", key)
		}
		if idx != want {
			t.Errorf("Ключ %s: индекс %d, ожидался %d", key, idx, want)
		}
	}
}

func TestLocate_NotFound(t *testing.T) {
	entries := descending("key9", "key7", "key5")

	tests := []struct {
		key     string
		wantIdx int
	}{
		{"key8", 1}, // между key9 и key7
		{"key6", 2},
		{"key0", 3}, // старше всех — вставка в хвост
		{"keyZ", 0}, // новее всех — вставка в голову
	}

	for _, tt := range tests {
		idx, found := Locate(entries, tt.key)
		if found {
			t.Errorf("Ключ %s найден, хотя его нет в срезе", tt.key)
		}
		if idx != tt.wantIdx {
			t.Errorf("Ключ %s: позиция вставки %d, ожидалась %d", tt.key, idx, tt.wantIdx)
		}
	}
}

func TestLocate_Empty(t *testing.T) {
	idx, found := Locate(nil, "key1")
	if found {
		t.Error("Ключ найден в пустом срезе")
	}
	if idx != 0 {
		t.Errorf("Позиция вставки в пустой срез %d, ожидалась 0", idx)
	}
}
