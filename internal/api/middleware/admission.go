// admission.go — admission control входящих потоков.
//
// Каждый endpoint ограничивает тело запроса двумя потолками: количеством байт
// и временем с первого байта. Срабатывание — жёсткая отсечка: соединение
// разрывается без HTTP-ответа (panic с http.ErrAbortHandler), а вся ещё не
// завершённая асинхронная работа запроса обязана проверить флаг живости
// и стать no-op.
package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/gosonglet/internal/domain/fault"
)

// AdmissionGuard оборачивает поток тела запроса потолками по байтам и времени.
// Не потокобезопасен: читается одной горутиной запроса.
type AdmissionGuard struct {
	r          io.Reader
	maxBytes   int64
	maxElapsed time.Duration

	started time.Time // нулевое значение — чтение ещё не началось
	read    int64
	tripped *fault.AdmissionError

	// now подменяется в тестах
	now func() time.Time
}

// NewAdmissionGuard создаёт guard над r.
// Поток ровно в maxBytes проходит; maxBytes+1 — срабатывание.
func NewAdmissionGuard(r io.Reader, maxBytes int64, maxElapsed time.Duration) *AdmissionGuard {
	return &AdmissionGuard{
		r:          r,
		maxBytes:   maxBytes,
		maxElapsed: maxElapsed,
		now:        time.Now,
	}
}

// Read читает очередной чанк и пересчитывает потолки.
// При превышении любого из них (или движении часов назад) возвращает
// *fault.AdmissionError; дальнейшие чтения возвращают ту же ошибку.
func (g *AdmissionGuard) Read(p []byte) (int, error) {
	if g.tripped != nil {
		return 0, g.tripped
	}

	n, err := g.r.Read(p)
	if n > 0 {
		if g.started.IsZero() {
			g.started = g.now()
		}
		g.read += int64(n)

		elapsed := g.now().Sub(g.started)
		switch {
		case elapsed > g.maxElapsed || elapsed < 0:
			g.tripped = &fault.AdmissionError{Reason: "превышено максимальное время передачи"}
			return n, g.tripped
		case g.read > g.maxBytes:
			g.tripped = &fault.AdmissionError{Reason: "превышен максимальный размер тела"}
			return n, g.tripped
		}
	}
	return n, err
}

// Tripped возвращает сработавшую ошибку admission или nil.
func (g *AdmissionGuard) Tripped() *fault.AdmissionError {
	return g.tripped
}

// ReadBody вычитывает тело целиком под защитой guard.
// Используется JSON-endpoint'ами с малыми потолками.
func (g *AdmissionGuard) ReadBody() ([]byte, error) {
	data, err := io.ReadAll(g)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Abort разрывает соединение без HTTP-ответа.
// http.ErrAbortHandler — признанный net/http способ прервать обработчик,
// не отправляя клиенту статус.
func Abort(logger *slog.Logger, r *http.Request, reason string) {
	logger.Error("Запрос уничтожен admission control",
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("reason", reason),
	)
	panic(http.ErrAbortHandler)
}
