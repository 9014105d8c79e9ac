package flow

import "errors"

// Ошибки диалога. Все восстановимые: сессия остается рабочей,
// пользователь может повторить ввод или отменить заказ.
var (
	// ErrInvalidSelection — выбранной услуги нет в каталоге.
	ErrInvalidSelection = errors.New("unknown service selection")

	// ErrInvalidPhone — в тексте меньше десяти цифр.
	ErrInvalidPhone = errors.New("phone number has fewer than 10 digits")

	// ErrUnmatchedEvent — событие не подходит текущему состоянию
	// (например, callback с устаревшей клавиатуры).
	ErrUnmatchedEvent = errors.New("event does not match current state")
)
