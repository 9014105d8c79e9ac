package models

import "time"

// Session хранит состояние диалога одного пользователя и накопленные
// поля заказа. Живет только в памяти процесса (или в Redis с TTL),
// очищается при завершении или отмене заказа.
type Session struct {
	UserID      int64     `json:"user_id"`
	ChatID      int64     `json:"chat_id"`
	Username    string    `json:"username,omitempty"`
	State       string    `json:"state"`
	ServiceID   string    `json:"service_id,omitempty"`
	ServiceName string    `json:"service_name,omitempty"`
	PriceFrom   int       `json:"price_from,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	OrderID     int64     `json:"order_id,omitempty"`
	ConfirmedAt time.Time `json:"confirmed_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reset возвращает сессию в исходное состояние, сохраняя идентичность
// пользователя. Все накопленные поля заказа стираются.
func (s *Session) Reset() {
	s.State = ""
	s.ServiceID = ""
	s.ServiceName = ""
	s.PriceFrom = 0
	s.Phone = ""
	s.Comment = ""
	s.OrderID = 0
	s.ConfirmedAt = time.Time{}
}

// Snapshot снимает неизменяемую копию полей заказа для уведомления
// владельца. Снимок делается до очистки сессии.
func (s *Session) Snapshot() OrderNotification {
	return OrderNotification{
		OrderID:     s.OrderID,
		UserID:      s.UserID,
		Username:    s.Username,
		ServiceName: s.ServiceName,
		PriceFrom:   s.PriceFrom,
		Phone:       s.Phone,
		Comment:     s.Comment,
	}
}

// IsIdle сообщает, что активного заказа нет.
func (s *Session) IsIdle() bool {
	return s.State == ""
}
