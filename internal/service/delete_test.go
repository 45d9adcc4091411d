package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bigkaa/gosonglet/internal/captcha"
	"github.com/bigkaa/gosonglet/internal/domain/model"
	"github.com/bigkaa/gosonglet/internal/feed"
	"github.com/bigkaa/gosonglet/internal/storage/blobstore"
)

// captchaServer — тестовый оракул капчи с фиксированным вердиктом.
func captchaServer(t *testing.T, success bool) *captcha.Verifier {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if success {
			w.Write([]byte(`{"success": true}`))
		} else {
			w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return captcha.New(srv.URL, "test-secret", srv.Client(), testLogger())
}

// deleteFixture — лента с одной записью и хранилище с её объектом.
func deleteFixture(t *testing.T, success bool) (*DeleteService, *feed.Memory, *blobstore.Store, model.SongRecord) {
	t.Helper()

	store, err := blobstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания хранилища: %v", err)
	}
	songs := feed.NewMemory()

	rec := model.SongRecord{
		Key:       songs.NewKey(),
		Title:     "Song",
		Artist:    "Band",
		Timestamp: time.Now().Unix(),
	}
	if err := songs.Push(context.Background(), rec); err != nil {
		t.Fatalf("ошибка наполнения ленты: %v", err)
	}

	w, err := store.Create(rec.ObjectName())
	if err != nil {
		t.Fatalf("ошибка создания объекта: %v", err)
	}
	w.Write([]byte("mp3 data"))
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("ошибка финализации объекта: %v", err)
	}

	svc := NewDeleteService(captchaServer(t, success), songs, store, testLogger())
	return svc, songs, store, rec
}

func TestDeleteService_Delete(t *testing.T) {
	svc, songs, store, rec := deleteFixture(t, true)

	if err := svc.Delete(context.Background(), rec.Key, "captcha-ok", "127.0.0.1"); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}

	if _, found, _ := songs.Get(context.Background(), rec.Key); found {
		t.Error("запись должна быть удалена из ленты")
	}
	if store.Exists(rec.ObjectName()) {
		t.Error("объект должен быть удалён из хранилища")
	}
}

// Ошибка хранилища не мешает удалению записи: исход определяет лента.
func TestDeleteService_BestEffortStorage(t *testing.T) {
	svc, songs, store, rec := deleteFixture(t, true)

	// Объект уже исчез из хранилища (чужая уборка, ручное вмешательство)
	if err := store.Delete(rec.ObjectName()); err != nil {
		t.Fatalf("подготовка: %v", err)
	}

	if err := svc.Delete(context.Background(), rec.Key, "captcha-ok", "127.0.0.1"); err != nil {
		t.Fatalf("удаление должно пройти несмотря на отсутствие объекта: %v", err)
	}
	if _, found, _ := songs.Get(context.Background(), rec.Key); found {
		t.Error("запись должна быть удалена из ленты")
	}
}

func TestDeleteService_CaptchaRejected(t *testing.T) {
	svc, songs, _, rec := deleteFixture(t, false)

	if err := svc.Delete(context.Background(), rec.Key, "captcha-bad", "127.0.0.1"); err == nil {
		t.Fatal("удаление с плохой капчей должно быть отклонено")
	}
	if _, found, _ := songs.Get(context.Background(), rec.Key); !found {
		t.Error("запись не должна быть удалена")
	}
}

func TestDeleteService_UnknownKey(t *testing.T) {
	svc, _, _, _ := deleteFixture(t, true)

	if err := svc.Delete(context.Background(), "00000000000000000000", "captcha-ok", "127.0.0.1"); err == nil {
		t.Error("удаление неизвестного ключа должно быть ошибкой")
	}
}
