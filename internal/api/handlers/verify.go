// verify.go — обработчик POST /verify: выдача токена загрузки.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/gosonglet/internal/api/errors"
)

// verifyRequest — тело запроса /verify.
type verifyRequest struct {
	CaptchaResponse string `json:"captchaResponse"`
}

// verifyResponse — тело успешного ответа /verify.
type verifyResponse struct {
	UploadToken string `json:"uploadToken"`
}

// Verify обрабатывает POST /verify.
func (h *APIHandler) Verify(w http.ResponseWriter, r *http.Request) {
	body := h.readQueryBody(r)

	var req verifyRequest
	if err := decodeQuery(body, &req); err != nil {
		h.logger.Error("Некорректное тело запроса /verify", slog.String("error", err.Error()))
		apierrors.WriteFail(w)
		return
	}

	token, err := h.verify.Issue(r.Context(), req.CaptchaResponse, r.RemoteAddr)
	if err != nil {
		h.logger.Error("Отказ выдачи токена", slog.String("error", err.Error()))
		apierrors.WriteFail(w)
		return
	}

	apierrors.WriteSuccess(w, verifyResponse{UploadToken: token})
}
