package tokenstore

import (
	"fmt"
	"testing"
	"time"
)

func TestStore_PutLookup(t *testing.T) {
	s := New(16, time.Minute)
	issued := time.Now()

	s.Put("token-1", issued)

	got, ok := s.Lookup("token-1")
	if !ok {
		t.Fatal("Токен не найден после Put")
	}
	if !got.Equal(issued) {
		t.Errorf("Момент выдачи %v, ожидался %v", got, issued)
	}

	// Lookup не удаляет токен
	if _, ok := s.Lookup("token-1"); !ok {
		t.Error("Токен исчез после первого Lookup")
	}
}

func TestStore_LookupMiss(t *testing.T) {
	s := New(16, time.Minute)
	if _, ok := s.Lookup("nonexistent"); ok {
		t.Error("Lookup вернул несуществующий токен")
	}
}

func TestStore_Remove(t *testing.T) {
	s := New(16, time.Minute)
	s.Put("token-1", time.Now())

	s.Remove("token-1")
	if _, ok := s.Lookup("token-1"); ok {
		t.Error("Токен найден после Remove")
	}

	// Повторное удаление — no-op
	s.Remove("token-1")
}

func TestStore_SizeBound(t *testing.T) {
	s := New(3, time.Minute)
	now := time.Now()
	for i := 0; i < 5; i++ {
		s.Put(fmt.Sprintf("token-%d", i), now)
	}

	if s.Len() != 3 {
		t.Errorf("В хранилище %d токенов, ожидалось 3 (вытеснение по размеру)", s.Len())
	}

	// Старейшие вытеснены, свежайшие живы
	if _, ok := s.Lookup("token-0"); ok {
		t.Error("Старейший токен пережил вытеснение")
	}
	if _, ok := s.Lookup("token-4"); !ok {
		t.Error("Свежайший токен вытеснен")
	}
}

func TestStore_Sweep(t *testing.T) {
	s := New(16, time.Minute)
	now := time.Now()

	s.Put("fresh", now.Add(-30*time.Second))
	s.Put("stale-1", now.Add(-2*time.Minute))
	s.Put("stale-2", now.Add(-time.Hour))

	purged := s.Sweep(now)
	if purged != 2 {
		t.Errorf("Sweep удалил %d токенов, ожидалось 2", purged)
	}

	if _, ok := s.Lookup("fresh"); !ok {
		t.Error("Свежий токен удалён sweep-проходом")
	}
	if _, ok := s.Lookup("stale-1"); ok {
		t.Error("Просроченный токен пережил sweep")
	}
}

func TestStore_SweepEmpty(t *testing.T) {
	s := New(16, time.Minute)
	if purged := s.Sweep(time.Now()); purged != 0 {
		t.Errorf("Sweep пустого хранилища удалил %d токенов", purged)
	}
}
