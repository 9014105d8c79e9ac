package flow

import (
	"context"
	"strings"
	"time"

	"fotobot/internal/config"
	"fotobot/internal/events"
	"fotobot/internal/models"

	"github.com/rs/zerolog"
)

// handleWelcome — свободный текст в Idle показывает приветствие со
// входом в заказ. Это и есть точка повторного входа.
func (m *Machine) handleWelcome(ctx context.Context, session *models.Session, e Event) error {
	return m.sender.SendChoices(session.ChatID, textWelcome, startKeyboard())
}

// handleStart — /start всегда начинает с чистого листа.
func (m *Machine) handleStart(ctx context.Context, session *models.Session, e Event) error {
	if !session.IsIdle() {
		if err := m.sessions.Clear(ctx, session.UserID); err != nil {
			return err
		}
	}
	return m.sender.SendChoices(session.ChatID, textWelcome, startKeyboard())
}

func (m *Machine) handleCancelCommand(ctx context.Context, session *models.Session, e Event) error {
	return m.cancel(ctx, session)
}

func (m *Machine) handleCancelCallback(ctx context.Context, session *models.Session, e Event) error {
	_ = m.sender.AnswerCallback(e.CallbackID, "")
	if session.IsIdle() {
		// устаревшая кнопка, отменять нечего
		return nil
	}
	return m.cancel(ctx, session)
}

func (m *Machine) cancel(ctx context.Context, session *models.Session) error {
	if session.OrderID != 0 {
		m.publish(events.EventOrderCancelled, session)
	}
	if err := m.sessions.Clear(ctx, session.UserID); err != nil {
		return err
	}
	return m.sender.SendChoices(session.ChatID, textCancelled, startKeyboard())
}

func (m *Machine) handleStartOrder(ctx context.Context, session *models.Session, e Event) error {
	_ = m.sender.AnswerCallback(e.CallbackID, "")

	session.Reset()
	session.State = models.StateChoosingService
	if err := m.sessions.Save(ctx, session); err != nil {
		return err
	}
	return m.sender.SendChoices(session.ChatID, textChooseService, serviceKeyboard(m.catalog.All()))
}

func (m *Machine) handleServiceSelected(ctx context.Context, session *models.Session, e Event) error {
	id := strings.TrimPrefix(e.Data, ServiceDataPrefix)
	offering, ok := m.catalog.Lookup(id)
	if !ok {
		// сессия не трогается, пользователь выбирает заново
		_ = m.sender.AnswerCallback(e.CallbackID, textUnknownService)
		zerolog.Ctx(ctx).Warn().Str("service_id", id).Msg("Выбрана неизвестная услуга")
		return ErrInvalidSelection
	}

	_ = m.sender.AnswerCallback(e.CallbackID, offering.Name)
	session.ServiceID = offering.ID
	session.ServiceName = offering.Name
	session.PriceFrom = offering.PriceFrom

	switch m.Mode() {
	case config.ModePhone:
		session.State = models.StateAwaitingPhone
		if err := m.sessions.Save(ctx, session); err != nil {
			return err
		}
		return m.sender.SendChoices(session.ChatID, textAskPhone, [][]Choice{cancelRow()})

	case config.ModeComment:
		session.State = models.StateAwaitingComment
		if err := m.sessions.Save(ctx, session); err != nil {
			return err
		}
		return m.sender.SendChoices(session.ChatID, textAskComment, commentKeyboard())

	case config.ModePrepay:
		session.State = models.StateConfirming
		if err := m.sessions.Save(ctx, session); err != nil {
			return err
		}
		summary := textOrderSummary(offering.Name, offering.PriceFrom)
		return m.sender.SendChoices(session.ChatID, summary, confirmKeyboard())

	default: // config.ModeDirect
		return m.finalize(ctx, session)
	}
}

func (m *Machine) handlePhoneText(ctx context.Context, session *models.Session, e Event) error {
	phone, err := ValidatePhone(e.Text)
	if err != nil {
		// неограниченные повторы, состояние не меняется
		if sendErr := m.sender.SendText(session.ChatID, textPhoneInvalid); sendErr != nil {
			return sendErr
		}
		return err
	}

	session.Phone = phone
	return m.finalize(ctx, session)
}

// handleContact — карточке контакта доверяем без проверки цифр.
func (m *Machine) handleContact(ctx context.Context, session *models.Session, e Event) error {
	session.Phone = strings.TrimSpace(e.Phone)
	return m.finalize(ctx, session)
}

func (m *Machine) handleCommentText(ctx context.Context, session *models.Session, e Event) error {
	session.Comment = strings.TrimSpace(e.Text)
	return m.finalize(ctx, session)
}

func (m *Machine) handleSkipComment(ctx context.Context, session *models.Session, e Event) error {
	_ = m.sender.AnswerCallback(e.CallbackID, "")
	session.Comment = models.CommentPlaceholder
	return m.finalize(ctx, session)
}

// handleConfirm создает заказ и переводит диалог в ожидание оплаты.
// Сессия не очищается: номер заказа нужен для сверки платежа.
func (m *Machine) handleConfirm(ctx context.Context, session *models.Session, e Event) error {
	_ = m.sender.AnswerCallback(e.CallbackID, "")

	session.ConfirmedAt = time.Now()
	orderID, err := m.createOrder(ctx, session, models.OrderStatusPending)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", session.UserID).
			Msg("Не удалось записать заказ в журнал")
		return m.sender.SendText(session.ChatID, textOrderFailed)
	}

	session.OrderID = orderID
	session.State = models.StateAwaitingPayment
	if err := m.sessions.Save(ctx, session); err != nil {
		return err
	}

	m.publish(events.EventOrderCreated, session)
	m.notifyAsync(session.Snapshot(), m.notifier.NotifyOrder)

	instructions := textPaymentInstructions(orderID, session.PriceFrom,
		m.opts.PaymentContact, m.opts.PaymentRecipient)
	return m.sender.SendChoices(session.ChatID, instructions, paidKeyboard())
}

func (m *Machine) handlePaid(ctx context.Context, session *models.Session, e Event) error {
	_ = m.sender.AnswerCallback(e.CallbackID, "")

	if err := m.orders.MarkPaymentClaimed(ctx, session.OrderID); err != nil {
		// заявка всё равно уходит владельцу, он сверит вручную
		zerolog.Ctx(ctx).Error().Err(err).Int64("order_id", session.OrderID).
			Msg("Не удалось отметить оплату в журнале")
	}

	m.publish(events.EventPaymentClaimed, session)
	m.notifyAsync(session.Snapshot(), m.notifier.NotifyPayment)

	thanks := textPaymentThanks(session.OrderID)
	if err := m.sessions.Clear(ctx, session.UserID); err != nil {
		return err
	}
	return m.sender.SendChoices(session.ChatID, thanks, startKeyboard())
}

// handleUnmatched — событие вне таблицы переходов: подтверждаем
// callback, чтобы кнопка не «висела», и ничего не меняем.
func (m *Machine) handleUnmatched(ctx context.Context, session *models.Session, e Event) error {
	if e.Kind == KindCallback {
		_ = m.sender.AnswerCallback(e.CallbackID, textStaleButton)
	}
	zerolog.Ctx(ctx).Debug().
		Str("kind", string(e.Kind)).
		Str("state", session.State).
		Int64("user_id", e.UserID).
		Msg("Событие не подходит текущему состоянию, игнорируется")
	return ErrUnmatchedEvent
}

// finalize — общий финал заказа: запись в журнал, уведомление
// владельца (асинхронно, с собственным таймаутом), подтверждение
// пользователю и сброс сессии.
func (m *Machine) finalize(ctx context.Context, session *models.Session) error {
	session.ConfirmedAt = time.Now()

	orderID, err := m.createOrder(ctx, session, models.OrderStatusNew)
	if err != nil {
		// заказ важнее журнала: уведомляем и подтверждаем без номера
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", session.UserID).
			Msg("Не удалось записать заказ в журнал")
	}
	session.OrderID = orderID

	m.publish(events.EventOrderCreated, session)
	m.notifyAsync(session.Snapshot(), m.notifier.NotifyOrder)

	if err := m.sessions.Clear(ctx, session.UserID); err != nil {
		return err
	}
	return m.sender.SendChoices(session.ChatID, textOrderAccepted(orderID), startKeyboard())
}

func (m *Machine) createOrder(ctx context.Context, session *models.Session, status string) (int64, error) {
	return m.orders.CreateOrder(ctx, &models.Order{
		UserID:      session.UserID,
		Username:    session.Username,
		ServiceID:   session.ServiceID,
		ServiceName: session.ServiceName,
		PriceFrom:   session.PriceFrom,
		Phone:       session.Phone,
		Comment:     session.Comment,
		Status:      status,
	})
}

func (m *Machine) publish(eventType string, session *models.Session) {
	if m.bus == nil {
		return
	}
	err := m.bus.PublishJSON(eventType, events.OrderEventPayload{
		OrderID:     session.OrderID,
		UserID:      session.UserID,
		Username:    session.Username,
		ServiceID:   session.ServiceID,
		ServiceName: session.ServiceName,
		PriceFrom:   session.PriceFrom,
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("event", eventType).Msg("Не удалось опубликовать событие")
	}
}

// notifyAsync доставляет уведомление владельцу из отдельной горутины:
// медленный канал не должен задерживать ответ пользователю.
func (m *Machine) notifyAsync(n models.OrderNotification, send func(context.Context, models.OrderNotification) error) {
	m.notifyWG.Add(1)
	go func() {
		defer m.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), models.NotifyTimeout*time.Second)
		defer cancel()
		if err := send(ctx, n); err != nil {
			if m.onNotifyFailure != nil {
				m.onNotifyFailure()
			}
			m.logger.Error().Err(err).Int64("order_id", n.OrderID).
				Msg("Уведомление владельцу не доставлено")
		}
	}()
}
