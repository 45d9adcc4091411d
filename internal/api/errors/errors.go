// Пакет errors — запись HTTP-ответов в формате songlet.
//
// Формат нарочито скуп: успех — 200 с JSON-телом результата, отказ — 500
// с пустым объектом {}. Причина отказа пишется только в лог: тело ответа
// не раскрывает клиенту внутренние детали (валидация, хранилище, капча
// неразличимы снаружи).
package errors //nolint:revive // TODO: переименовать пакет errors, конфликт со stdlib

import (
	"encoding/json"
	"net/http"
)

// WriteSuccess записывает 200 с JSON-сериализацией object.
func WriteSuccess(w http.ResponseWriter, object any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(object)
}

// WriteEmptySuccess записывает 200 с пустым объектом {}.
func WriteEmptySuccess(w http.ResponseWriter) {
	WriteSuccess(w, struct{}{})
}

// WriteFail записывает 500 с пустым объектом {}.
// Любой отказ эндпоинта выглядит для клиента одинаково.
func WriteFail(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(struct{}{})
}
