// Пакет model — доменные структуры сервиса songlet.
package model

import (
	"fmt"
	"strings"
)

// FileExt — расширение файлов клипов в хранилище.
const FileExt = ".mp3"

// FileContentType — MIME-тип файлов клипов.
const FileContentType = "audio/mpeg"

// SongRecord — метаданные опубликованного клипа.
// Key — непрозрачный ключ ленты (feed), задающий полный порядок записей.
// Запись неизменяема после создания, удаляется целиком.
type SongRecord struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Timestamp int64  `json:"timestamp"` // Unix-секунды публикации
}

// ObjectName возвращает имя объекта в хранилище для записи.
// Формат: {timestamp}{key}.mp3 — timestamp участвует в имени,
// чтобы retention-очистка могла восстановить имя из метаданных.
func (r SongRecord) ObjectName() string {
	return ObjectName(r.Timestamp, r.Key)
}

// ObjectName строит имя объекта хранилища из timestamp и ключа ленты.
func ObjectName(timestamp int64, key string) string {
	return fmt.Sprintf("%d%s%s", timestamp, key, FileExt)
}

// KeyLen — длина ключа ленты в символах.
const KeyLen = 20

// KeyFromObjectName извлекает ключ ленты из имени объекта хранилища.
// Возвращает false, если имя не соответствует формату {timestamp}{key}.mp3.
func KeyFromObjectName(name string) (string, bool) {
	base, ok := strings.CutSuffix(name, FileExt)
	if !ok || len(base) <= KeyLen {
		return "", false
	}
	timestamp := base[:len(base)-KeyLen]
	for _, r := range timestamp {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return base[len(base)-KeyLen:], true
}
