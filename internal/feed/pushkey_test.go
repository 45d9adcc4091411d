package feed

import (
	"sort"
	"testing"
	"time"
)

func TestKeyGenerator_Format(t *testing.T) {
	g := newKeyGenerator()
	key := g.Next()

	if len(key) != 20 {
		t.Fatalf("Длина ключа %d, ожидалось 20", len(key))
	}
	for i, c := range key {
		found := false
		for _, p := range pushChars {
			if c == p {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Символ %q на позиции %d вне алфавита push-ключей", c, i)
		}
	}
}

func TestKeyGenerator_StrictlyIncreasing(t *testing.T) {
	g := newKeyGenerator()

	keys := make([]string, 1000)
	for i := range keys {
		keys[i] = g.Next()
	}

	// Лексикографический порядок совпадает с порядком генерации
	if !sort.StringsAreSorted(keys) {
		t.Fatal("Ключи не отсортированы в порядке генерации")
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] == keys[i-1] {
			t.Fatalf("Дубликат ключа %s на позиции %d", keys[i], i)
		}
	}
}

func TestKeyGenerator_SameMillisecond(t *testing.T) {
	g := newKeyGenerator()
	fixed := time.UnixMilli(1700000000000)
	g.now = func() time.Time { return fixed }

	// Все ключи в одной миллисекунде: timestamp-префикс общий,
	// суффикс строго инкрементируется
	prev := g.Next()
	for i := 0; i < 100; i++ {
		next := g.Next()
		if next[:8] != prev[:8] {
			t.Fatalf("Timestamp-префикс изменился в одной миллисекунде: %s -> %s", prev, next)
		}
		if next <= prev {
			t.Fatalf("Ключ %s не больше предыдущего %s", next, prev)
		}
		prev = next
	}
}

func TestKeyGenerator_TimestampPrefix(t *testing.T) {
	g := newKeyGenerator()
	earlier := time.UnixMilli(1700000000000)
	later := time.UnixMilli(1700000000001)

	g.now = func() time.Time { return earlier }
	k1 := g.Next()
	g.now = func() time.Time { return later }
	k2 := g.Next()

	if k1[:8] == k2[:8] {
		t.Error("Разные миллисекунды дали одинаковый timestamp-префикс")
	}
	if k2 <= k1 {
		t.Errorf("Ключ поздней миллисекунды %s не больше раннего %s", k2, k1)
	}
}
