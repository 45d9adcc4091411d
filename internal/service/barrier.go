// barrier.go — двусторонний барьер завершения загрузки.
//
// Загрузка завершается двумя независимыми сторонами: валидацией тегов и
// чтением потока в хранилище. Порядок их завершения непредсказуем. Барьер —
// явный конечный автомат на произведении состояний
// {validationFinished, storageFinished}: первый вызов, увидевший обе стороны
// завершёнными, принимает единственное решение commit/abort. Отмена
// (admission) вытесняет: после Cancel все колбэки — no-op.
//
// Потокобезопасен через sync.Mutex.
package service

import "sync"

// Decision — решение барьера.
type Decision int

const (
	// DecisionNone — решение ещё не принято (вторая сторона не завершилась)
	// либо уже было принято ранее.
	DecisionNone Decision = iota
	// DecisionCommit — обе стороны завершились успешно: финализировать объект.
	DecisionCommit
	// DecisionAbort — хотя бы одна сторона завершилась неуспешно:
	// отбросить частичный объект.
	DecisionAbort
)

// UploadBarrier — rendezvous валидации и записи в хранилище.
type UploadBarrier struct {
	mu sync.Mutex

	validationFinished bool
	validationOK       bool
	storageFinished    bool
	storageOK          bool

	// done — решение принято или запрос отменён; дальнейшие вызовы no-op
	done bool
}

// NewUploadBarrier создаёт барьер для одной загрузки.
func NewUploadBarrier() *UploadBarrier {
	return &UploadBarrier{}
}

// OnValidationDone сообщает исход валидации. Исход принимается только один
// раз; повторные вызовы и вызовы после отмены возвращают DecisionNone.
func (b *UploadBarrier) OnValidationDone(ok bool) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done || b.validationFinished {
		return DecisionNone
	}
	b.validationFinished = true
	b.validationOK = ok
	return b.maybeDecide()
}

// OnStorageDone сообщает исход стороны хранилища (чтение потока + запись).
// Семантика идентична OnValidationDone.
func (b *UploadBarrier) OnStorageDone(ok bool) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done || b.storageFinished {
		return DecisionNone
	}
	b.storageFinished = true
	b.storageOK = ok
	return b.maybeDecide()
}

// Cancel отменяет запрос (admission control). Возвращает true, если отмена
// произошла до принятия решения: вызывающий обязан отбросить частичный объект.
func (b *UploadBarrier) Cancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return false
	}
	b.done = true
	return true
}

// Done сообщает, принято ли решение (или произошла отмена).
func (b *UploadBarrier) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// maybeDecide принимает решение, когда обе стороны завершились.
// Вызывается под мьютексом.
func (b *UploadBarrier) maybeDecide() Decision {
	if !b.validationFinished || !b.storageFinished {
		return DecisionNone
	}
	b.done = true
	if b.validationOK && b.storageOK {
		return DecisionCommit
	}
	return DecisionAbort
}
