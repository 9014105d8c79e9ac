package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"fotobot/internal/domain"
	"fotobot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// DeliveryError — отказ канала уведомлений. Логируется, на
// пользовательский сценарий не влияет.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify: delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// TelegramNotifier шлет уведомления владельцу в его чат. Нулевой
// ownerChatID отключает уведомления — это не ошибка.
type TelegramNotifier struct {
	tg          domain.TelegramSender
	ownerChatID int64
	retry       RetryPolicy
	logger      *zerolog.Logger
}

func NewTelegramNotifier(tg domain.TelegramSender, ownerChatID int64, retry RetryPolicy, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		tg:          tg,
		ownerChatID: ownerChatID,
		retry:       retry,
		logger:      logger,
	}
}

func (n *TelegramNotifier) NotifyOrder(ctx context.Context, notification models.OrderNotification) error {
	return n.deliver(ctx, FormatOrder(notification))
}

func (n *TelegramNotifier) NotifyPayment(ctx context.Context, notification models.OrderNotification) error {
	return n.deliver(ctx, FormatPaymentClaim(notification))
}

func (n *TelegramNotifier) deliver(ctx context.Context, text string) error {
	if n.ownerChatID == 0 {
		n.logger.Debug().Msg("Owner chat is not configured, skipping notification")
		return nil
	}

	msg := tgbotapi.NewMessage(n.ownerChatID, text)
	msg.ParseMode = models.ParseModeHTML

	attempts := n.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if _, lastErr = n.tg.Send(msg); lastErr == nil {
			return nil
		}

		n.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("Owner notification attempt failed")

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return &DeliveryError{Err: ctx.Err()}
		case <-time.After(n.retry.NextDelay(attempt)):
		}
	}

	return &DeliveryError{Err: lastErr}
}

// FormatOrder собирает текст уведомления о новом заказе.
func FormatOrder(n models.OrderNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 НОВЫЙ ЗАКАЗ! (Заказ #%d)\n", n.OrderID)
	fmt.Fprintf(&b, "Пользователь: @%s (ID: %d)\n", displayUsername(n.Username), n.UserID)
	if n.Phone != "" {
		fmt.Fprintf(&b, "Телефон: <code>%s</code>\n", html.EscapeString(n.Phone))
	}
	fmt.Fprintf(&b, "Услуга: %s\n", html.EscapeString(n.ServiceName))
	fmt.Fprintf(&b, "Примерная стоимость: от %d ₽", n.PriceFrom)
	if n.Comment != "" {
		fmt.Fprintf(&b, "\nКомментарий: %s", html.EscapeString(n.Comment))
	}
	return b.String()
}

// FormatPaymentClaim собирает текст о заявленной оплате. Намеренно
// отличается от уведомления о создании заказа.
func FormatPaymentClaim(n models.OrderNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 ОПЛАТА ПО ЗАКАЗУ #%d\n", n.OrderID)
	fmt.Fprintf(&b, "Пользователь: @%s (ID: %d)\n", displayUsername(n.Username), n.UserID)
	fmt.Fprintf(&b, "Услуга: %s\n", html.EscapeString(n.ServiceName))
	fmt.Fprintf(&b, "Сумма: от %d ₽\n", n.PriceFrom)
	b.WriteString("Клиент сообщил, что оплатил заказ. Проверьте поступление.")
	return b.String()
}

func displayUsername(username string) string {
	if username == "" {
		return models.CommentPlaceholder
	}
	return html.EscapeString(username)
}
