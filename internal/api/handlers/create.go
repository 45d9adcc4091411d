// create.go — обработчик POST /create: приём клипа.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/gosonglet/internal/api/errors"
	"github.com/bigkaa/gosonglet/internal/api/middleware"
	"github.com/bigkaa/gosonglet/internal/domain/fault"
	"github.com/bigkaa/gosonglet/internal/domain/model"
)

// Create обрабатывает POST /create. Тело — сырой аудиопоток с трейлером
// ID3v1; ответ 200 {} при коммите, 500 при любом отказе. Превышение лимитов
// admission control обрывает соединение без ответа.
func (h *APIHandler) Create(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != model.FileContentType {
		h.logger.Error("Неверный content-type загрузки", slog.String("content_type", ct))
		middleware.UploadsTotal.WithLabelValues("rejected").Inc()
		apierrors.WriteFail(w)
		return
	}

	guard := middleware.NewAdmissionGuard(r.Body, h.postLimits.MaxBytes, h.postLimits.MaxElapsed)

	rec, err := h.upload.Process(r.Context(), guard)
	if err != nil {
		if fault.IsAdmission(err) {
			middleware.UploadsTotal.WithLabelValues("admission").Inc()
			middleware.AdmissionTripsTotal.WithLabelValues(r.URL.Path).Inc()
			middleware.Abort(h.logger, r, err.Error())
		}
		h.logger.Error("Отказ приёма клипа", slog.String("error", err.Error()))
		middleware.UploadsTotal.WithLabelValues("rejected").Inc()
		apierrors.WriteFail(w)
		return
	}

	h.logger.Info("Клип опубликован",
		slog.String("key", rec.Key),
		slog.String("title", rec.Title),
		slog.String("artist", rec.Artist),
	)
	middleware.UploadsTotal.WithLabelValues("accepted").Inc()
	apierrors.WriteEmptySuccess(w)
}
