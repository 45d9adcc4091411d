// clean.go — обработчик POST /clean: внеплановый запуск уборки.
package handlers

import (
	"context"
	"net/http"

	apierrors "github.com/bigkaa/gosonglet/internal/api/errors"
)

// Clean обрабатывает POST /clean. Уборка запускается асинхронно:
// ответ 200 {} уходит сразу, не дожидаясь завершения прохода.
// RunOnce сериализован мьютексом, параллельные /clean безопасны.
func (h *APIHandler) Clean(w http.ResponseWriter, r *http.Request) {
	// Вычитываем тело под admission control даже без параметров:
	// лимиты действуют на всех JSON-эндпоинтах
	h.readQueryBody(r)

	go h.sweeper.RunOnce(context.Background())

	apierrors.WriteEmptySuccess(w)
}
