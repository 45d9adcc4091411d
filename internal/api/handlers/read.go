// read.go — обработчик POST /read: окна ленты и счётчик обновлений.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/gosonglet/internal/api/errors"
	"github.com/bigkaa/gosonglet/internal/domain/model"
)

// readRequest — тело запроса /read. Пустое тело — запрос свежего окна.
type readRequest struct {
	Key            string `json:"key"`
	GetUpdateCount bool   `json:"getUpdateCount"`
}

// windowResponse — ответ в режиме пагинации/снимка.
type windowResponse struct {
	URLRoot          string             `json:"urlRoot"`
	SongInfo         []model.SongRecord `json:"songInfo"`
	RequestedSongKey string             `json:"requestedSongKey,omitempty"`
}

// updateCountResponse — ответ в режиме счётчика.
type updateCountResponse struct {
	UpdateCount int  `json:"updateCount"`
	Plus        bool `json:"plus"`
}

// Read обрабатывает POST /read.
func (h *APIHandler) Read(w http.ResponseWriter, r *http.Request) {
	body := h.readQueryBody(r)

	var req readRequest
	if err := decodeQuery(body, &req); err != nil {
		h.logger.Error("Некорректное тело запроса /read", slog.String("error", err.Error()))
		apierrors.WriteFail(w)
		return
	}

	if req.GetUpdateCount {
		count, plus := h.read.CountSince(req.Key)
		apierrors.WriteSuccess(w, updateCountResponse{UpdateCount: count, Plus: plus})
		return
	}

	window, err := h.read.Window(r.Context(), req.Key)
	if err != nil {
		h.logger.Error("Отказ чтения окна ленты",
			slog.String("key", req.Key),
			slog.String("error", err.Error()))
		apierrors.WriteFail(w)
		return
	}

	songs := window.Songs
	if songs == nil {
		songs = []model.SongRecord{}
	}
	apierrors.WriteSuccess(w, windowResponse{
		URLRoot:          h.urlRoot,
		SongInfo:         songs,
		RequestedSongKey: window.RequestedKey,
	})
}
