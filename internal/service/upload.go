// upload.go — конвейер приёма клипа.
//
// Тело запроса читается один раз и разветвляется: каждый прочитанный блок
// подаётся в сканер трейлера ID3v1 и одновременно отправляется писателю
// хранилища через небуферизованный канал. Небуферизованный канал даёт
// обратное давление: чтение из сети не обгоняет запись на диск.
//
// Исходы валидации и записи сходятся на барьере; решивший вызов
// финализирует объект и публикует запись в ленте либо отбрасывает
// частичный объект.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/bigkaa/gosonglet/internal/domain/fault"
	"github.com/bigkaa/gosonglet/internal/domain/model"
	"github.com/bigkaa/gosonglet/internal/feed"
	"github.com/bigkaa/gosonglet/internal/id3"
	"github.com/bigkaa/gosonglet/internal/storage/blobstore"
)

// readBufSize — размер блока чтения тела запроса.
const readBufSize = 32 * 1024

// UploadService принимает клипы: читает поток, валидирует теги, пишет объект
// в хранилище и публикует запись в ленте.
type UploadService struct {
	store     *blobstore.Store
	songs     feed.Feed
	validator *TagValidator
	logger    *slog.Logger

	now func() time.Time
}

// NewUploadService создаёт конвейер приёма.
func NewUploadService(store *blobstore.Store, songs feed.Feed, validator *TagValidator, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:     store,
		songs:     songs,
		validator: validator,
		logger:    logger.With(slog.String("component", "upload")),
		now:       time.Now,
	}
}

// Process принимает один клип из body. Возвращает опубликованную запись либо
// ошибку. Ошибка admission control (лимиты тела запроса) различима через
// fault.IsAdmission: такой запрос обрывается без ответа.
func (s *UploadService) Process(ctx context.Context, body io.Reader) (*model.SongRecord, error) {
	key := s.songs.NewKey()
	timestamp := s.now().Unix()
	objectName := model.ObjectName(timestamp, key)

	logger := s.logger.With(slog.String("key", key), slog.String("object", objectName))
	logger.Info("Начало приёма клипа")

	w, err := s.store.Create(objectName)
	if err != nil {
		return nil, &fault.StorageError{Op: "create", Err: err}
	}

	barrier := NewUploadBarrier()
	scanner := id3.NewTrailerScanner()

	// Писатель хранилища: принимает блоки до закрытия канала. После первой
	// ошибки записи оставшиеся блоки вычитываются вхолостую, чтобы не
	// блокировать читающую сторону.
	chunks := make(chan []byte)
	writerDone := make(chan bool, 1)
	go func() {
		ok := true
		for chunk := range chunks {
			if !ok {
				continue
			}
			if _, werr := w.Write(chunk); werr != nil {
				logger.Error("Ошибка записи блока в хранилище", slog.String("error", werr.Error()))
				ok = false
			}
		}
		writerDone <- ok
	}()

	// Читающая сторона: сеть -> сканер тегов -> писатель.
	var readErr error
	readOK := false
	buf := make([]byte, readBufSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			scanner.Feed(chunk)
			chunks <- chunk
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				readOK = true
			} else {
				readErr = rerr
			}
			break
		}
	}
	close(chunks)
	writeOK := <-writerDone

	if readErr != nil && fault.IsAdmission(readErr) {
		if barrier.Cancel() {
			w.Discard()
		}
		return nil, readErr
	}

	decision := barrier.OnStorageDone(readOK && writeOK)

	tags, verr := s.validator.Validate(scanner)
	if verr != nil {
		logger.Info("Клип отклонён валидацией", slog.String("reason", verr.Error()))
	}
	if d := barrier.OnValidationDone(verr == nil); d != DecisionNone {
		decision = d
	}

	switch decision {
	case DecisionCommit:
		return s.commit(ctx, w, key, timestamp, tags, logger)
	case DecisionAbort:
		w.Discard()
		if verr != nil {
			return nil, verr
		}
		if readErr != nil {
			return nil, &fault.StorageError{Op: "read", Err: readErr}
		}
		return nil, &fault.StorageError{Op: "write", Err: errors.New("ошибка записи потока")}
	default:
		// Недостижимо: обе стороны завершены к этому моменту.
		w.Discard()
		return nil, errors.New("барьер не принял решение")
	}
}

// commit финализирует объект и публикует запись в ленте.
func (s *UploadService) commit(ctx context.Context, w *blobstore.Writer, key string, timestamp int64, tags *SongTags, logger *slog.Logger) (*model.SongRecord, error) {
	res, err := w.Finalize()
	if err != nil {
		return nil, &fault.StorageError{Op: "finalize", Err: err}
	}

	rec := model.SongRecord{
		Key:       key,
		Title:     tags.Title,
		Artist:    tags.Artist,
		Timestamp: timestamp,
	}
	if err := s.songs.Push(ctx, rec); err != nil {
		// Объект уже сохранён; осиротевший файл подберёт уборщик при
		// следующем обходе.
		logger.Error("Объект сохранён, но публикация в ленте не удалась",
			slog.String("error", err.Error()))
		return nil, &fault.FeedError{Op: "push", Err: err}
	}

	logger.Info("Клип принят",
		slog.String("title", tags.Title),
		slog.String("artist", tags.Artist),
		slog.Int64("size", res.Size),
		slog.String("checksum", res.Checksum))
	return &rec, nil
}
