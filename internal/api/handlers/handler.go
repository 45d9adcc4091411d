// handler.go — APIHandler собирает обработчики эндпоинтов songlet.
//
// Пять JSON-эндпоинтов API (verify/create/read/delete/clean) плюс раздача
// клиентских файлов и клипов. Все JSON-эндпоинты — POST; тело каждого
// запроса проходит через admission control: превышение лимита размера или
// времени обрывает соединение без HTTP-ответа.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/gosonglet/internal/api/middleware"
	"github.com/bigkaa/gosonglet/internal/service"
)

// QueryLimits — лимиты admission control для JSON-эндпоинтов.
type QueryLimits struct {
	// MaxBytes — потолок размера тела запроса
	MaxBytes int64
	// MaxElapsed — потолок времени чтения тела
	MaxElapsed time.Duration
}

// APIHandler — единый обработчик всех эндпоинтов.
type APIHandler struct {
	verify  *service.VerifyService
	upload  *service.UploadService
	read    *service.ReadService
	deleter *service.DeleteService
	sweeper *service.RetentionSweeper

	// queryLimits — лимиты JSON-эндпоинтов (verify/read/delete/clean)
	queryLimits QueryLimits
	// postLimits — лимиты загрузки клипа (/create)
	postLimits QueryLimits
	// urlRoot — префикс URL, по которому клиенты скачивают клипы
	urlRoot string

	logger *slog.Logger
}

// NewAPIHandler создаёт единый handler для всех эндпоинтов.
func NewAPIHandler(
	verify *service.VerifyService,
	upload *service.UploadService,
	read *service.ReadService,
	deleter *service.DeleteService,
	sweeper *service.RetentionSweeper,
	queryLimits QueryLimits,
	postLimits QueryLimits,
	urlRoot string,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		verify:      verify,
		upload:      upload,
		read:        read,
		deleter:     deleter,
		sweeper:     sweeper,
		queryLimits: queryLimits,
		postLimits:  postLimits,
		urlRoot:     urlRoot,
		logger:      logger.With(slog.String("component", "api")),
	}
}

// readQueryBody читает тело JSON-запроса под admission control.
// При нарушении лимитов соединение обрывается (паника http.ErrAbortHandler,
// которую net/http превращает в разрыв без ответа).
func (h *APIHandler) readQueryBody(r *http.Request) []byte {
	guard := middleware.NewAdmissionGuard(r.Body, h.queryLimits.MaxBytes, h.queryLimits.MaxElapsed)
	body, err := guard.ReadBody()
	if err != nil {
		if tripped := guard.Tripped(); tripped != nil {
			middleware.AdmissionTripsTotal.WithLabelValues(r.URL.Path).Inc()
			middleware.Abort(h.logger, r, tripped.Reason)
		}
		// Ошибка чтения, не связанная с лимитами: отдаём что прочитали,
		// разбор JSON решит судьбу запроса
		return body
	}
	return body
}

// decodeQuery разбирает JSON-тело в dst. Пустое тело — не ошибка:
// эндпоинты допускают запрос без параметров.
func decodeQuery(body []byte, dst any) error {
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}
