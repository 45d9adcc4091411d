// delete.go — обработчик POST /delete: удаление клипа по требованию.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/gosonglet/internal/api/errors"
	"github.com/bigkaa/gosonglet/internal/api/middleware"
)

// deleteRequest — тело запроса /delete.
type deleteRequest struct {
	DeleteKey       string `json:"deleteKey"`
	CaptchaResponse string `json:"captchaResponse"`
}

// deleteResponse — тело успешного ответа /delete.
type deleteResponse struct {
	Success bool `json:"success"`
}

// Delete обрабатывает POST /delete.
func (h *APIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	body := h.readQueryBody(r)

	var req deleteRequest
	if err := decodeQuery(body, &req); err != nil {
		h.logger.Error("Некорректное тело запроса /delete", slog.String("error", err.Error()))
		apierrors.WriteFail(w)
		return
	}

	if err := h.deleter.Delete(r.Context(), req.DeleteKey, req.CaptchaResponse, r.RemoteAddr); err != nil {
		h.logger.Error("Отказ удаления клипа",
			slog.String("key", req.DeleteKey),
			slog.String("error", err.Error()))
		middleware.DeletesTotal.WithLabelValues("rejected").Inc()
		apierrors.WriteFail(w)
		return
	}

	middleware.DeletesTotal.WithLabelValues("deleted").Inc()
	apierrors.WriteSuccess(w, deleteResponse{Success: true})
}
