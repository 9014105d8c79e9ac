package models

// Состояния диалога. Пустая строка — Idle: активного заказа нет.
const (
	StateIdle            = ""
	StateChoosingService = "choosing_service"
	StateAwaitingPhone   = "awaiting_phone"
	StateAwaitingComment = "awaiting_comment"
	StateConfirming      = "confirming"
	StateAwaitingPayment = "awaiting_payment"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DefaultSessionTTL время жизни неактивной сессии
	DefaultSessionTTL = 30 * 60 // 30 минут в секундах

	// MinPhoneDigits минимальное число цифр в номере телефона
	MinPhoneDigits = 10

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах

	// NotifyTimeout бюджет на доставку одного уведомления владельцу
	NotifyTimeout = 10 // секунд

	// CommentPlaceholder показывается вместо пропущенного комментария
	CommentPlaceholder = "—"
)
