package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigkaa/gosonglet/internal/domain/model"
	"github.com/bigkaa/gosonglet/internal/feed"
	"github.com/bigkaa/gosonglet/internal/storage/blobstore"
	"github.com/bigkaa/gosonglet/internal/tokenstore"
)

// sweeperFixture — уборщик с суточным сроком хранения поверх in-memory
// ленты и временной директории.
type sweeperFixture struct {
	tokens *tokenstore.Store
	songs  *feed.Memory
	store  *blobstore.Store
	sw     *RetentionSweeper
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()

	store, err := blobstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}
	tokens := tokenstore.New(16, time.Hour)
	songs := feed.NewMemory()

	return &sweeperFixture{
		tokens: tokens,
		songs:  songs,
		store:  store,
		sw:     NewRetentionSweeper(tokens, songs, store, 24*time.Hour, time.Hour, testLogger()),
	}
}

// putSong публикует запись с заданным возрастом и кладёт её объект в хранилище.
func (fx *sweeperFixture) putSong(t *testing.T, age time.Duration) model.SongRecord {
	t.Helper()

	rec := model.SongRecord{
		Key:       fx.songs.NewKey(),
		Title:     "Song",
		Artist:    "Band",
		Timestamp: time.Now().Add(-age).Unix(),
	}
	if err := fx.songs.Push(context.Background(), rec); err != nil {
		t.Fatalf("ошибка наполнения ленты: %v", err)
	}

	w, err := fx.store.Create(rec.ObjectName())
	if err != nil {
		t.Fatalf("ошибка создания объекта: %v", err)
	}
	w.Write([]byte("mp3 data"))
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("ошибка финализации объекта: %v", err)
	}
	return rec
}

func TestRetentionSweeper_RemovesExpiredSongs(t *testing.T) {
	fx := newSweeperFixture(t)

	old := fx.putSong(t, 25*time.Hour)
	fresh := fx.putSong(t, time.Hour)

	result := fx.sw.RunOnce(context.Background())
	if result.SongsRemoved != 1 {
		t.Errorf("SongsRemoved = %d, ожидается 1", result.SongsRemoved)
	}

	if _, found, _ := fx.songs.Get(context.Background(), old.Key); found {
		t.Error("устаревшая запись должна быть удалена из ленты")
	}
	if fx.store.Exists(old.ObjectName()) {
		t.Error("объект устаревшей записи должен быть удалён")
	}

	if _, found, _ := fx.songs.Get(context.Background(), fresh.Key); !found {
		t.Error("свежая запись должна остаться")
	}
	if !fx.store.Exists(fresh.ObjectName()) {
		t.Error("объект свежей записи должен остаться")
	}
}

func TestRetentionSweeper_PurgesStaleTokens(t *testing.T) {
	fx := newSweeperFixture(t)

	fx.tokens.Put("stale", time.Now().Add(-25*time.Hour))
	fx.tokens.Put("fresh", time.Now())

	result := fx.sw.RunOnce(context.Background())
	if result.TokensPurged != 1 {
		t.Errorf("TokensPurged = %d, ожидается 1", result.TokensPurged)
	}
	if fx.tokens.Len() != 1 {
		t.Errorf("в реестре осталось %d токенов, ожидается 1", fx.tokens.Len())
	}
}

// Объект без записи в ленте, переживший срок хранения — сирота, удаляется.
func TestRetentionSweeper_RemovesOrphans(t *testing.T) {
	fx := newSweeperFixture(t)

	orphanName := model.ObjectName(time.Now().Add(-30*time.Hour).Unix(), fx.songs.NewKey())
	w, err := fx.store.Create(orphanName)
	if err != nil {
		t.Fatalf("ошибка создания объекта: %v", err)
	}
	w.Write([]byte("orphan data"))
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("ошибка финализации: %v", err)
	}
	// Состариваем mtime за пределы срока хранения
	past := time.Now().Add(-30 * time.Hour)
	if err := os.Chtimes(filepath.Join(fx.store.DataDir(), orphanName), past, past); err != nil {
		t.Fatalf("ошибка изменения mtime: %v", err)
	}

	result := fx.sw.RunOnce(context.Background())
	if result.OrphansRemoved != 1 {
		t.Errorf("OrphansRemoved = %d, ожидается 1", result.OrphansRemoved)
	}
	if fx.store.Exists(orphanName) {
		t.Error("осиротевший объект должен быть удалён")
	}
}

// Свежий объект без записи не трогаем: публикация может быть в процессе.
func TestRetentionSweeper_KeepsFreshUnpublishedObject(t *testing.T) {
	fx := newSweeperFixture(t)

	name := model.ObjectName(time.Now().Unix(), fx.songs.NewKey())
	w, err := fx.store.Create(name)
	if err != nil {
		t.Fatalf("ошибка создания объекта: %v", err)
	}
	w.Write([]byte("in-flight data"))
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("ошибка финализации: %v", err)
	}

	result := fx.sw.RunOnce(context.Background())
	if result.OrphansRemoved != 0 {
		t.Errorf("OrphansRemoved = %d, ожидается 0", result.OrphansRemoved)
	}
	if !fx.store.Exists(name) {
		t.Error("свежий объект должен остаться")
	}
}

func TestRetentionSweeper_StartStop(t *testing.T) {
	fx := newSweeperFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fx.sw.Start(ctx)
	fx.sw.Stop()
}
