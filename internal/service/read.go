// read.go — выдача окон ленты клипов.
package service

import (
	"context"
	"log/slog"

	"github.com/bigkaa/gosonglet/internal/cache"
	"github.com/bigkaa/gosonglet/internal/domain/fault"
	"github.com/bigkaa/gosonglet/internal/domain/model"
	"github.com/bigkaa/gosonglet/internal/feed"
)

// ReadWindow — окно ленты, отдаваемое клиенту.
type ReadWindow struct {
	// Songs — записи по убыванию ключа, не больше размера окна.
	Songs []model.SongRecord
	// RequestedKey — ключ-граница, если окно запрошено с границей.
	RequestedKey string
}

// ReadService выдаёт окна ленты: свежие — из кэша, исторические — из ленты.
type ReadService struct {
	cache     *cache.SongCache
	songs     feed.Feed
	chunkSize int
	logger    *slog.Logger
}

// NewReadService создаёт сервис чтения. chunkSize — размер окна выдачи.
func NewReadService(songCache *cache.SongCache, songs feed.Feed, chunkSize int, logger *slog.Logger) *ReadService {
	return &ReadService{
		cache:     songCache,
		songs:     songs,
		chunkSize: chunkSize,
		logger:    logger.With(slog.String("component", "read")),
	}
}

// Window возвращает окно ленты. Пустой key — самые свежие записи из кэша.
// Непустой key — окно из ленты, начинающееся сразу за границей: записи с
// ключом меньше key, по убыванию. Сама граница в окно не входит.
func (s *ReadService) Window(ctx context.Context, key string) (*ReadWindow, error) {
	if key == "" {
		return &ReadWindow{Songs: s.cache.Snapshot(s.chunkSize)}, nil
	}

	recs, err := s.songs.EndingAt(ctx, key, s.chunkSize)
	if err != nil {
		return nil, &fault.FeedError{Op: "ending-at", Err: err}
	}

	// Граница — ключ, который у клиента уже есть; из окна она исключается.
	songs := make([]model.SongRecord, 0, len(recs))
	for _, rec := range recs {
		if rec.Key == key {
			continue
		}
		songs = append(songs, rec)
	}
	return &ReadWindow{Songs: songs, RequestedKey: key}, nil
}

// CountSince возвращает число записей кэша новее key и признак того, что
// записей может быть больше (key за пределами кэша либо кэш полон).
func (s *ReadService) CountSince(key string) (int, bool) {
	return s.cache.CountSince(key, s.chunkSize)
}
