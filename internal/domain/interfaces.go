package domain

import (
	"context"
	"time"

	"fotobot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SessionRepository хранит сессии диалогов. Отсутствующая сессия — не
// ошибка: Get возвращает nil, nil.
type SessionRepository interface {
	GetSession(ctx context.Context, userID int64) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	ClearSession(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// SessionManager — сервисный слой над репозиторием: отдает готовую
// Idle-сессию вместо отсутствующей и сериализует события одного
// пользователя через Acquire.
type SessionManager interface {
	// Acquire блокирует обработку событий пользователя. Возвращенная
	// функция снимает блокировку.
	Acquire(userID int64) func()
	Session(ctx context.Context, userID, chatID int64) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Clear(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// Notifier доставляет уведомления владельцу. Неуспех — DeliveryError,
// он логируется и никогда не влияет на пользовательский сценарий.
type Notifier interface {
	NotifyOrder(ctx context.Context, n models.OrderNotification) error
	NotifyPayment(ctx context.Context, n models.OrderNotification) error
}

// OrderJournal — журнал принятых заказов. CreateOrder присваивает
// монотонно растущий номер заказа.
type OrderJournal interface {
	CreateOrder(ctx context.Context, order *models.Order) (int64, error)
	MarkPaymentClaimed(ctx context.Context, orderID int64) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrdersByDateRange(ctx context.Context, start, end time.Time) ([]*models.Order, error)
}

// EventPublisher публикует события заказов во внутреннюю шину.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// TelegramSender — минимальный контракт транспорта Telegram.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
