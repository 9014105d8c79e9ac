package models

import "time"

// Статусы заказа в журнале.
const (
	OrderStatusNew     = "new"
	OrderStatusPending = "awaiting_payment"
	OrderStatusPaid    = "paid_claimed"
)

// Order — запись журнала принятых заказов. Номер заказа (ID) растет
// монотонно и используется как человекочитаемая ссылка "Заказ #N".
type Order struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	ServiceID   string    `json:"service_id"`
	ServiceName string    `json:"service_name"`
	PriceFrom   int       `json:"price_from"`
	Phone       string    `json:"phone,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderNotification — неизменяемый снимок сессии в момент уведомления
// владельца. Не хранится: собирается, отправляется, забывается.
type OrderNotification struct {
	OrderID     int64
	UserID      int64
	Username    string
	ServiceName string
	PriceFrom   int
	Phone       string
	Comment     string
}
