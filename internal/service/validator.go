// validator.go — проверка тегов трейлера ID3v1 загружаемого клипа.
package service

import (
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/gosonglet/internal/domain/fault"
	"github.com/bigkaa/gosonglet/internal/id3"
	"github.com/bigkaa/gosonglet/internal/tokenstore"
)

// SongTags — результат успешной валидации: очищенные метаданные клипа.
type SongTags struct {
	Title  string
	Artist string
}

// TagValidator проверяет теги загруженного клипа и предъявленный в них токен.
//
// Принимаются только клипы с трейлером ID3v1: TITLE и ARTIST обязательны
// (после очистки), COMMENT несёт токен загрузки, остальные поля должны быть
// пустыми. Наличие заголовка ID3v2 — ошибка.
type TagValidator struct {
	tokens     *tokenstore.Store
	maxPending time.Duration
	logger     *slog.Logger

	now func() time.Time
}

// NewTagValidator создаёт валидатор. maxPending — максимальный возраст
// токена загрузки на момент предъявления.
func NewTagValidator(tokens *tokenstore.Store, maxPending time.Duration, logger *slog.Logger) *TagValidator {
	return &TagValidator{
		tokens:     tokens,
		maxPending: maxPending,
		logger:     logger.With(slog.String("component", "validator")),
		now:        time.Now,
	}
}

// Validate проверяет накопленные сканером теги. Токен загрузки при успехе
// остаётся в реестре до истечения TTL или sweep-прохода: повторная загрузка
// в окне свежести допустима.
func (v *TagValidator) Validate(scanner *id3.TrailerScanner) (*SongTags, error) {
	if scanner.HasID3v2() {
		return nil, &fault.ValidationError{Reason: "присутствует заголовок ID3v2"}
	}

	frame, ok := scanner.Frame()
	if !ok {
		return nil, &fault.ValidationError{Reason: "отсутствует трейлер ID3v1"}
	}

	title := SanitizeTag(frame.Title)
	if title == "" {
		return nil, &fault.ValidationError{Reason: "пустой тег TITLE"}
	}
	artist := SanitizeTag(frame.Artist)
	if artist == "" {
		return nil, &fault.ValidationError{Reason: "пустой тег ARTIST"}
	}

	if frame.Album != "" {
		return nil, &fault.ValidationError{Reason: "непустой тег ALBUM"}
	}
	if frame.Year != "" {
		return nil, &fault.ValidationError{Reason: "непустой тег YEAR"}
	}
	if frame.Track != 0 {
		return nil, &fault.ValidationError{Reason: "ненулевой тег TRACK"}
	}
	if frame.Genre != 0 {
		return nil, &fault.ValidationError{Reason: "ненулевой тег GENRE"}
	}

	if frame.Comment == "" {
		return nil, &fault.ValidationError{Reason: "отсутствует токен загрузки в теге COMMENT"}
	}
	token, err := DecodeToken(frame.Comment)
	if err != nil {
		return nil, &fault.ValidationError{Reason: "нечитаемый токен загрузки"}
	}
	issued, ok := v.tokens.Lookup(token)
	if !ok {
		return nil, &fault.ValidationError{Reason: "неизвестный токен загрузки"}
	}
	if v.now().Sub(issued) > v.maxPending {
		v.tokens.Remove(token)
		return nil, &fault.ValidationError{Reason: "просроченный токен загрузки"}
	}

	return &SongTags{Title: title, Artist: artist}, nil
}

// SanitizeTag оставляет в значении тега только латинские буквы, цифры и
// пробелы; управляющие и прочие символы отбрасываются.
func SanitizeTag(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r == ' ':
			b.WriteRune(r)
		}
	}
	return b.String()
}
