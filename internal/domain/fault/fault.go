// Пакет fault — таксономия ошибок сервиса songlet.
//
// Каждая внешне-инициированная ошибка перехватывается на своей границе
// и превращается в терминальный ответ запроса. Клиент видит только
// успех или общий статус отказа: детали ошибок наружу не выходят.
package fault

import (
	"errors"
	"fmt"
)

// AdmissionError — превышение лимита размера или времени входящего потока.
// Невосстановимо: соединение разрывается без HTTP-ответа.
type AdmissionError struct {
	Reason string
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission: %s", e.Reason)
}

// ValidationError — некорректные/отсутствующие теги или недействительный
// upload-токен. Отображается в отказ загрузки.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// StorageError — ошибка записи/финализации/публикации объекта.
// Отображается в отказ операции; частичный объект удаляется.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// FeedError — ошибка чтения/записи внешней упорядоченной ленты.
type FeedError struct {
	Op  string
	Err error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Op, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

// OracleError — оракул верификации недоступен или вернул отказ.
type OracleError struct {
	Reason string
	Err    error
}

func (e *OracleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("oracle: %s", e.Reason)
}

func (e *OracleError) Unwrap() error { return e.Err }

// IsAdmission сообщает, является ли ошибка (в цепочке) AdmissionError.
func IsAdmission(err error) bool {
	var ae *AdmissionError
	return errors.As(err, &ae)
}
