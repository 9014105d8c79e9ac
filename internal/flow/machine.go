package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"fotobot/internal/catalog"
	"fotobot/internal/config"
	"fotobot/internal/domain"
	"fotobot/internal/models"

	"github.com/rs/zerolog"
)

// Options задают вариант диалога и платежные реквизиты для текстов.
type Options struct {
	Mode             string // config.Mode*
	PaymentContact   string
	PaymentRecipient string
}

// Machine — автомат диалога. Все события одного пользователя проходят
// через него последовательно: HandleEvent держит блокировку сессии на
// всё время обработки.
type Machine struct {
	sessions domain.SessionManager
	catalog  *catalog.Catalog
	orders   domain.OrderJournal
	bus      domain.EventPublisher
	notifier domain.Notifier
	sender   Sender
	opts     Options
	logger   *zerolog.Logger

	routes          []route
	notifyWG        sync.WaitGroup
	onNotifyFailure func()
}

type handlerFunc func(ctx context.Context, session *models.Session, e Event) error

// route — строка таблицы переходов: состояние, тип события и
// необязательный предикат по содержимому. Таблица просматривается
// сверху вниз, специфичные правила стоят раньше общих.
type route struct {
	state  string
	kind   EventKind
	match  func(Event) bool
	handle handlerFunc
}

// anyState сопоставляется с любым состоянием сессии.
const anyState = "*"

func NewMachine(
	sessions domain.SessionManager,
	cat *catalog.Catalog,
	orders domain.OrderJournal,
	bus domain.EventPublisher,
	notifier domain.Notifier,
	sender Sender,
	opts Options,
	logger *zerolog.Logger,
) *Machine {
	m := &Machine{
		sessions: sessions,
		catalog:  cat,
		orders:   orders,
		bus:      bus,
		notifier: notifier,
		sender:   sender,
		opts:     opts,
		logger:   logger,
	}
	m.routes = m.buildRoutes()
	return m
}

func (m *Machine) buildRoutes() []route {
	return []route{
		// Команды и отмена работают из любого состояния
		{anyState, KindText, commandIs("start"), m.handleStart},
		{anyState, KindText, commandIs("cancel"), m.handleCancelCommand},
		{anyState, KindCallback, dataIs(DataCancel), m.handleCancelCallback},

		{models.StateChoosingService, KindCallback, dataHasPrefix(ServiceDataPrefix), m.handleServiceSelected},

		{models.StateAwaitingPhone, KindContact, nil, m.handleContact},
		{models.StateAwaitingPhone, KindText, nil, m.handlePhoneText},

		{models.StateAwaitingComment, KindCallback, dataIs(DataSkipComment), m.handleSkipComment},
		{models.StateAwaitingComment, KindText, nil, m.handleCommentText},

		{models.StateConfirming, KindCallback, dataIs(DataConfirmOrder), m.handleConfirm},
		{models.StateAwaitingPayment, KindCallback, dataIs(DataPaid), m.handlePaid},

		// Вход в заказ и приветствие — только из Idle; в остальных
		// состояниях такие события считаются устаревшими
		{models.StateIdle, KindCallback, dataIs(DataStartOrder), m.handleStartOrder},
		{models.StateIdle, KindText, nil, m.handleWelcome},
	}
}

// HandleEvent прогоняет событие через таблицу переходов под
// блокировкой сессии пользователя. Несовпавшее событие — не сбой:
// оно подтверждается и игнорируется.
func (m *Machine) HandleEvent(ctx context.Context, e Event) error {
	release := m.sessions.Acquire(e.UserID)
	defer release()

	session, err := m.sessions.Session(ctx, e.UserID, e.ChatID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if e.Username != "" {
		session.Username = e.Username
	}

	for _, r := range m.routes {
		if r.state != anyState && r.state != session.State {
			continue
		}
		if r.kind != e.Kind {
			continue
		}
		if r.match != nil && !r.match(e) {
			continue
		}
		return r.handle(ctx, session, e)
	}

	return m.handleUnmatched(ctx, session, e)
}

// OnNotifyFailure регистрирует обработчик неудачной доставки
// уведомления (например, счетчик метрики).
func (m *Machine) OnNotifyFailure(f func()) {
	m.onNotifyFailure = f
}

// Wait дожидается незавершенных уведомлений владельцу. Вызывается при
// остановке, чтобы не потерять заказ, принятый в последний момент.
func (m *Machine) Wait() {
	m.notifyWG.Wait()
}

func commandIs(name string) func(Event) bool {
	return func(e Event) bool {
		text := strings.TrimSpace(e.Text)
		if !strings.HasPrefix(text, "/") {
			return false
		}
		cmd := strings.TrimPrefix(text, "/")
		// отрезаем упоминание бота: "/start@fotobot"
		if at := strings.IndexByte(cmd, '@'); at != -1 {
			cmd = cmd[:at]
		}
		return cmd == name
	}
}

func dataIs(token string) func(Event) bool {
	return func(e Event) bool { return e.Data == token }
}

func dataHasPrefix(prefix string) func(Event) bool {
	return func(e Event) bool { return strings.HasPrefix(e.Data, prefix) }
}

// Mode возвращает активный режим диалога.
func (m *Machine) Mode() string {
	if m.opts.Mode == "" {
		return config.ModePhone
	}
	return m.opts.Mode
}
