// delete.go — удаление клипа по требованию пользователя.
package service

import (
	"context"
	"log/slog"

	"github.com/bigkaa/gosonglet/internal/captcha"
	"github.com/bigkaa/gosonglet/internal/domain/fault"
	"github.com/bigkaa/gosonglet/internal/domain/model"
	"github.com/bigkaa/gosonglet/internal/feed"
	"github.com/bigkaa/gosonglet/internal/storage/blobstore"
)

// DeleteService удаляет клип: объект из хранилища и запись из ленты.
//
// Удаление объекта — best-effort: ошибка хранилища логируется, но не мешает
// удалению записи из ленты. Исход запроса определяет лента: пока запись в
// ней, клип считается существующим.
type DeleteService struct {
	oracle *captcha.Verifier
	songs  feed.Feed
	store  *blobstore.Store
	logger *slog.Logger
}

// NewDeleteService создаёт сервис удаления.
func NewDeleteService(oracle *captcha.Verifier, songs feed.Feed, store *blobstore.Store, logger *slog.Logger) *DeleteService {
	return &DeleteService{
		oracle: oracle,
		songs:  songs,
		store:  store,
		logger: logger.With(slog.String("component", "delete")),
	}
}

// Delete проверяет капчу и удаляет клип с ключом key.
func (s *DeleteService) Delete(ctx context.Context, key, captchaResponse, remoteAddr string) error {
	if err := s.oracle.Check(ctx, captchaResponse, remoteAddr); err != nil {
		return err
	}

	rec, found, err := s.songs.Get(ctx, key)
	if err != nil {
		return &fault.FeedError{Op: "get", Err: err}
	}
	if !found {
		return &fault.FeedError{Op: "get", Err: errNotFound(key)}
	}

	objectName := model.ObjectName(rec.Timestamp, key)
	if err := s.store.Delete(objectName); err != nil {
		s.logger.Error("Не удалось удалить объект из хранилища, запись в ленте всё равно будет удалена",
			slog.String("key", key),
			slog.String("object", objectName),
			slog.String("error", err.Error()))
	}

	if err := s.songs.Remove(ctx, key); err != nil {
		return &fault.FeedError{Op: "remove", Err: err}
	}

	s.logger.Info("Клип удалён", slog.String("key", key), slog.String("object", objectName))
	return nil
}

type errNotFound string

func (e errNotFound) Error() string { return "запись не найдена в ленте: " + string(e) }
