package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания хранилища: %v", err)
	}
	return s
}

func TestStore_WriteFinalize(t *testing.T) {
	s := newTestStore(t)
	content := []byte("mp3 audio payload")

	w, err := s.Create("1000000000clip.mp3")
	if err != nil {
		t.Fatalf("Ошибка Create: %v", err)
	}

	// До финализации объект не виден
	if s.Exists("1000000000clip.mp3") {
		t.Error("Объект виден до Finalize")
	}

	if _, err := w.Write(content[:5]); err != nil {
		t.Fatalf("Ошибка записи: %v", err)
	}
	if _, err := w.Write(content[5:]); err != nil {
		t.Fatalf("Ошибка записи: %v", err)
	}

	res, err := w.Finalize()
	if err != nil {
		t.Fatalf("Ошибка Finalize: %v", err)
	}
	if res.Size != int64(len(content)) {
		t.Errorf("Size = %d, ожидалось %d", res.Size, len(content))
	}
	wantSum := sha256.Sum256(content)
	if res.Checksum != hex.EncodeToString(wantSum[:]) {
		t.Errorf("Checksum = %s, ожидалось %s", res.Checksum, hex.EncodeToString(wantSum[:]))
	}

	if !s.Exists("1000000000clip.mp3") {
		t.Fatal("Объект не виден после Finalize")
	}

	f, err := s.Open("1000000000clip.mp3")
	if err != nil {
		t.Fatalf("Ошибка Open: %v", err)
	}
	defer f.Close()
	got, _ := io.ReadAll(f)
	if string(got) != string(content) {
		t.Errorf("Содержимое объекта %q, ожидалось %q", got, content)
	}
}

func TestStore_Discard(t *testing.T) {
	s := newTestStore(t)

	w, err := s.Create("partial.mp3")
	if err != nil {
		t.Fatalf("Ошибка Create: %v", err)
	}
	w.Write([]byte("partial data"))
	w.Discard()

	if s.Exists("partial.mp3") {
		t.Error("Отброшенный объект виден в хранилище")
	}
	entries, _ := os.ReadDir(s.DataDir())
	if len(entries) != 0 {
		t.Errorf("После Discard в директории осталось %d файлов", len(entries))
	}

	// Повторный Discard — no-op
	w.Discard()

	// Finalize после Discard — ошибка
	if _, err := w.Finalize(); err == nil {
		t.Error("Finalize после Discard не вернул ошибку")
	}
}

func TestStore_FinalizeTwice(t *testing.T) {
	s := newTestStore(t)

	w, _ := s.Create("once.mp3")
	w.Write([]byte("data"))
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("Ошибка Finalize: %v", err)
	}
	if _, err := w.Finalize(); err == nil {
		t.Error("Повторный Finalize не вернул ошибку")
	}
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)

	w, _ := s.Create("victim.mp3")
	w.Write([]byte("data"))
	w.Finalize()

	if err := s.Delete("victim.mp3"); err != nil {
		t.Fatalf("Ошибка Delete: %v", err)
	}
	if s.Exists("victim.mp3") {
		t.Error("Объект виден после Delete")
	}

	// Удаление отсутствующего объекта — не ошибка
	if err := s.Delete("victim.mp3"); err != nil {
		t.Errorf("Повторный Delete вернул ошибку: %v", err)
	}
}

func TestStore_InvalidNames(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", ".", "..", "a/b.mp3", `a\b.mp3`, "../escape.mp3"} {
		if _, err := s.Create(name); err == nil {
			t.Errorf("Create(%q) не вернул ошибку", name)
		}
		if s.Exists(name) {
			t.Errorf("Exists(%q) вернул true", name)
		}
	}
}

func TestStore_ScanOlderThan(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for _, name := range []string{"old1.mp3", "old2.mp3", "fresh.mp3"} {
		w, _ := s.Create(name)
		w.Write([]byte("x"))
		if _, err := w.Finalize(); err != nil {
			t.Fatalf("Ошибка Finalize %s: %v", name, err)
		}
	}
	// Состариваем два объекта через mtime
	for _, name := range []string{"old1.mp3", "old2.mp3"} {
		old := now.Add(-48 * time.Hour)
		if err := os.Chtimes(filepath.Join(s.DataDir(), name), old, old); err != nil {
			t.Fatalf("Ошибка Chtimes: %v", err)
		}
	}
	// Временные файлы сканом игнорируются
	if err := os.WriteFile(filepath.Join(s.DataDir(), "inflight.mp3.tmp"), []byte("x"), 0o600); err != nil {
		t.Fatalf("Ошибка создания tmp-файла: %v", err)
	}
	oldTmp := now.Add(-48 * time.Hour)
	os.Chtimes(filepath.Join(s.DataDir(), "inflight.mp3.tmp"), oldTmp, oldTmp)

	names, err := s.ScanOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Ошибка ScanOlderThan: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("Скан вернул %d объектов %v, ожидалось 2", len(names), names)
	}
	found := map[string]bool{names[0]: true, names[1]: true}
	if !found["old1.mp3"] || !found["old2.mp3"] {
		t.Errorf("Скан вернул %v, ожидались old1.mp3 и old2.mp3", names)
	}
}
