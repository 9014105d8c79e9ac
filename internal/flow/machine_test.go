package flow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"fotobot/internal/catalog"
	"fotobot/internal/config"
	"fotobot/internal/domain"
	"fotobot/internal/events"
	"fotobot/internal/models"
	"fotobot/internal/repository"
	"fotobot/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID int64
	text   string
	rows   [][]Choice
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	answers []string
}

func (f *fakeSender) SendText(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) SendChoices(chatID int64, text string, rows [][]Choice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, rows: rows})
	return nil
}

func (f *fakeSender) AnswerCallback(callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) flatChoices(msg sentMessage) []Choice {
	var out []Choice
	for _, row := range msg.rows {
		out = append(out, row...)
	}
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	orders   []models.OrderNotification
	payments []models.OrderNotification
}

func (f *fakeNotifier) NotifyOrder(ctx context.Context, n models.OrderNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, n)
	return nil
}

func (f *fakeNotifier) NotifyPayment(ctx context.Context, n models.OrderNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, n)
	return nil
}

func (f *fakeNotifier) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeNotifier) paymentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payments)
}

type fakeJournal struct {
	mu      sync.Mutex
	nextID  int64
	orders  map[int64]*models.Order
	claimed []int64
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{orders: make(map[int64]*models.Order)}
}

func (f *fakeJournal) CreateOrder(ctx context.Context, order *models.Order) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	stored := *order
	stored.ID = f.nextID
	f.orders[f.nextID] = &stored
	return f.nextID, nil
}

func (f *fakeJournal) MarkPaymentClaimed(ctx context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[orderID]; !ok {
		return fmt.Errorf("order %d not found", orderID)
	}
	f.claimed = append(f.claimed, orderID)
	return nil
}

func (f *fakeJournal) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d not found", id)
	}
	return order, nil
}

func (f *fakeJournal) GetOrdersByDateRange(ctx context.Context, start, end time.Time) ([]*models.Order, error) {
	return nil, nil
}

func (f *fakeJournal) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type harness struct {
	machine  *Machine
	sender   *fakeSender
	notifier *fakeNotifier
	journal  *fakeJournal
	sessions domain.SessionManager
	bus      *events.EventBus
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Offering{
		{ID: "restoration", Name: "Реставрация фото", PriceFrom: 500},
		{ID: "animation", Name: "Оживление фото", PriceFrom: 400},
		{ID: "souvenirs", Name: "Сувениры", PriceFrom: 300},
		{ID: "editing", Name: "Обработка фотографий", PriceFrom: 250},
	})
	require.NoError(t, err)
	return cat
}

func newHarness(t *testing.T, mode string) *harness {
	t.Helper()

	logger := zerolog.Nop()
	repo := repository.NewMemorySessionRepository(30 * time.Minute)
	sessions := service.NewSessionService(repo, &logger)
	sender := &fakeSender{}
	notifier := &fakeNotifier{}
	journal := newFakeJournal()
	bus := events.NewEventBus()

	opts := Options{Mode: mode, PaymentContact: "+7 900 000-00-00", PaymentRecipient: "Иван И."}
	m := NewMachine(sessions, testCatalog(t), journal, bus, notifier, sender, opts, &logger)

	return &harness{machine: m, sender: sender, notifier: notifier, journal: journal, sessions: sessions, bus: bus}
}

func (h *harness) session(t *testing.T, userID int64) *models.Session {
	t.Helper()
	s, err := h.sessions.Session(context.Background(), userID, 0)
	require.NoError(t, err)
	return s
}

func (h *harness) seed(t *testing.T, s *models.Session) {
	t.Helper()
	require.NoError(t, h.sessions.Save(context.Background(), s))
}

func textEvent(userID int64, text string) Event {
	return Event{Kind: KindText, UserID: userID, ChatID: userID, Username: "ivan", Text: text}
}

func callbackEvent(userID int64, data string) Event {
	return Event{Kind: KindCallback, UserID: userID, ChatID: userID, Username: "ivan", Data: data, CallbackID: "cb-1"}
}

func contactEvent(userID int64, phone string) Event {
	return Event{Kind: KindContact, UserID: userID, ChatID: userID, Username: "ivan", Phone: phone}
}

func TestIdleTextShowsWelcome(t *testing.T) {
	h := newHarness(t, config.ModePhone)

	require.NoError(t, h.machine.HandleEvent(context.Background(), textEvent(1, "привет")))

	msg := h.sender.last(t)
	assert.Equal(t, textWelcome, msg.text)
	choices := h.sender.flatChoices(msg)
	require.Len(t, choices, 1)
	assert.Equal(t, DataStartOrder, choices[0].Data)
}

func TestStartOrderRendersFullCatalog(t *testing.T) {
	h := newHarness(t, config.ModePhone)

	require.NoError(t, h.machine.HandleEvent(context.Background(), callbackEvent(1, DataStartOrder)))

	s := h.session(t, 1)
	assert.Equal(t, models.StateChoosingService, s.State)

	msg := h.sender.last(t)
	choices := h.sender.flatChoices(msg)
	// четыре услуги и кнопка отмены
	require.Len(t, choices, 5)
	assert.Equal(t, "service_restoration", choices[0].Data)
	assert.Contains(t, choices[0].Label, "Реставрация фото")
	assert.Contains(t, choices[0].Label, "от 500 ₽")
	assert.Equal(t, "service_animation", choices[1].Data)
	assert.Equal(t, "service_souvenirs", choices[2].Data)
	assert.Equal(t, "service_editing", choices[3].Data)
	assert.Equal(t, DataCancel, choices[4].Data)
}

func TestServiceSelectionStoresFields(t *testing.T) {
	h := newHarness(t, config.ModePhone)
	ctx := context.Background()

	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataStartOrder)))
	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, "service_restoration")))

	s := h.session(t, 1)
	assert.Equal(t, models.StateAwaitingPhone, s.State)
	assert.Equal(t, "restoration", s.ServiceID)
	assert.Equal(t, "Реставрация фото", s.ServiceName)
	assert.Equal(t, 500, s.PriceFrom)
	assert.Equal(t, textAskPhone, h.sender.last(t).text)
}

func TestUnknownServiceLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t, config.ModePhone)
	ctx := context.Background()

	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataStartOrder)))

	err := h.machine.HandleEvent(ctx, callbackEvent(1, "service_video_montage"))
	assert.ErrorIs(t, err, ErrInvalidSelection)

	s := h.session(t, 1)
	assert.Equal(t, models.StateChoosingService, s.State)
	assert.Empty(t, s.ServiceID)
	assert.Empty(t, s.ServiceName)
	assert.Zero(t, s.PriceFrom)

	h.machine.Wait()
	assert.Zero(t, h.notifier.orderCount())
}

func TestCancelClearsSessionFromEveryState(t *testing.T) {
	states := []string{
		models.StateChoosingService,
		models.StateAwaitingPhone,
		models.StateAwaitingComment,
		models.StateConfirming,
		models.StateAwaitingPayment,
	}

	for _, state := range states {
		t.Run(state, func(t *testing.T) {
			h := newHarness(t, config.ModePrepay)
			h.seed(t, &models.Session{
				UserID:      7,
				ChatID:      7,
				State:       state,
				ServiceID:   "souvenirs",
				ServiceName: "Сувениры",
				PriceFrom:   300,
				Phone:       "89123456789",
				OrderID:     3,
			})

			require.NoError(t, h.machine.HandleEvent(context.Background(), callbackEvent(7, DataCancel)))

			s := h.session(t, 7)
			assert.True(t, s.IsIdle())
			assert.Empty(t, s.ServiceID)
			assert.Empty(t, s.Phone)
			assert.Zero(t, s.OrderID)
			assert.Equal(t, textCancelled, h.sender.last(t).text)
		})
	}
}

func TestCancelCommandWorksToo(t *testing.T) {
	h := newHarness(t, config.ModePhone)
	h.seed(t, &models.Session{UserID: 7, ChatID: 7, State: models.StateAwaitingPhone})

	require.NoError(t, h.machine.HandleEvent(context.Background(), textEvent(7, "/cancel")))
	assert.True(t, h.session(t, 7).IsIdle())
}

func TestPhoneValidationTable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		want    string
	}{
		{"formatted 11 digits", "+7 (912) 345-67-89", false, "+7 (912) 345-67-89"},
		{"bare 11 digits", "89123456789", false, "89123456789"},
		{"exactly 10 digits", "9123456789", false, "9123456789"},
		{"too short", "12345", true, ""},
		{"way too short", "123", true, ""},
		{"letters only", "позвоните мне", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePhone(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhoneRejectionKeepsStateAndReprompts(t *testing.T) {
	h := newHarness(t, config.ModePhone)
	h.seed(t, &models.Session{
		UserID: 1, ChatID: 1, State: models.StateAwaitingPhone,
		ServiceID: "restoration", ServiceName: "Реставрация фото", PriceFrom: 500,
	})

	err := h.machine.HandleEvent(context.Background(), textEvent(1, "123"))
	assert.ErrorIs(t, err, ErrInvalidPhone)

	s := h.session(t, 1)
	assert.Equal(t, models.StateAwaitingPhone, s.State)
	assert.Equal(t, textPhoneInvalid, h.sender.last(t).text)

	h.machine.Wait()
	assert.Zero(t, h.notifier.orderCount())
	assert.Zero(t, h.journal.count())
}

func TestPhoneAcceptedFinalizesOrder(t *testing.T) {
	h := newHarness(t, config.ModePhone)
	ctx := context.Background()

	var created int
	h.bus.Subscribe(events.EventOrderCreated, func(*events.Event) error {
		created++
		return nil
	})

	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataStartOrder)))
	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, "service_restoration")))
	require.NoError(t, h.machine.HandleEvent(ctx, textEvent(1, "89123456789")))

	h.machine.Wait()
	require.Equal(t, 1, h.notifier.orderCount())
	n := h.notifier.orders[0]
	assert.Equal(t, "89123456789", n.Phone)
	assert.Equal(t, "Реставрация фото", n.ServiceName)
	assert.Equal(t, int64(1), n.OrderID)

	assert.True(t, h.session(t, 1).IsIdle())
	assert.Equal(t, 1, h.journal.count())
	assert.Equal(t, 1, created)
	assert.Contains(t, h.sender.last(t).text, "Заказ #1 принят")
}

func TestContactCardIsTrusted(t *testing.T) {
	h := newHarness(t, config.ModePhone)
	h.seed(t, &models.Session{
		UserID: 1, ChatID: 1, State: models.StateAwaitingPhone,
		ServiceID: "animation", ServiceName: "Оживление фото", PriceFrom: 400,
	})

	// цифр меньше десяти, но карточка контакта проверку не проходит
	require.NoError(t, h.machine.HandleEvent(context.Background(), contactEvent(1, "123")))

	h.machine.Wait()
	require.Equal(t, 1, h.notifier.orderCount())
	assert.Equal(t, "123", h.notifier.orders[0].Phone)
	assert.True(t, h.session(t, 1).IsIdle())
}

func TestCommentStoredVerbatim(t *testing.T) {
	h := newHarness(t, config.ModeComment)
	h.seed(t, &models.Session{
		UserID: 1, ChatID: 1, State: models.StateAwaitingComment,
		ServiceID: "souvenirs", ServiceName: "Сувениры", PriceFrom: 300,
	})

	require.NoError(t, h.machine.HandleEvent(context.Background(), textEvent(1, "кружка с фото кота")))

	h.machine.Wait()
	require.Equal(t, 1, h.notifier.orderCount())
	assert.Equal(t, "кружка с фото кота", h.notifier.orders[0].Comment)
	assert.True(t, h.session(t, 1).IsIdle())
}

func TestCommentSkipUsesPlaceholder(t *testing.T) {
	h := newHarness(t, config.ModeComment)
	h.seed(t, &models.Session{
		UserID: 1, ChatID: 1, State: models.StateAwaitingComment,
		ServiceID: "souvenirs", ServiceName: "Сувениры", PriceFrom: 300,
	})

	require.NoError(t, h.machine.HandleEvent(context.Background(), callbackEvent(1, DataSkipComment)))

	h.machine.Wait()
	require.Equal(t, 1, h.notifier.orderCount())
	assert.Equal(t, models.CommentPlaceholder, h.notifier.orders[0].Comment)
	assert.True(t, h.session(t, 1).IsIdle())
}

func TestDirectModeFinalizesOnSelection(t *testing.T) {
	h := newHarness(t, config.ModeDirect)
	ctx := context.Background()

	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataStartOrder)))
	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, "service_editing")))

	h.machine.Wait()
	require.Equal(t, 1, h.notifier.orderCount())
	assert.Equal(t, "Обработка фотографий", h.notifier.orders[0].ServiceName)
	assert.Empty(t, h.notifier.orders[0].Phone)
	assert.True(t, h.session(t, 1).IsIdle())
}

func TestPrepayFullScenario(t *testing.T) {
	h := newHarness(t, config.ModePrepay)
	ctx := context.Background()

	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataStartOrder)))
	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, "service_restoration")))

	s := h.session(t, 1)
	require.Equal(t, models.StateConfirming, s.State)
	assert.Contains(t, h.sender.last(t).text, "Подтверждаете?")

	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataConfirmOrder)))

	s = h.session(t, 1)
	require.Equal(t, models.StateAwaitingPayment, s.State)
	require.Equal(t, int64(1), s.OrderID)

	instructions := h.sender.last(t)
	assert.Contains(t, instructions.text, "Заказ #1")
	assert.Contains(t, instructions.text, "+7 900 000-00-00")
	assert.Contains(t, instructions.text, "Иван И.")

	order, err := h.journal.GetOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataPaid)))

	h.machine.Wait()
	require.Equal(t, 1, h.notifier.orderCount())
	require.Equal(t, 1, h.notifier.paymentCount())
	assert.Equal(t, []int64{1}, h.journal.claimed)
	assert.True(t, h.session(t, 1).IsIdle())
	assert.Contains(t, h.sender.last(t).text, "Спасибо")
}

func TestDuplicateConfirmDoesNotDoubleNotify(t *testing.T) {
	h := newHarness(t, config.ModePrepay)
	ctx := context.Background()

	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataStartOrder)))
	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, "service_restoration")))
	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataConfirmOrder)))

	// повторный confirm в AwaitingPayment не подходит таблице переходов
	err := h.machine.HandleEvent(ctx, callbackEvent(1, DataConfirmOrder))
	assert.ErrorIs(t, err, ErrUnmatchedEvent)

	s := h.session(t, 1)
	assert.Equal(t, models.StateAwaitingPayment, s.State)
	assert.Equal(t, int64(1), s.OrderID)

	h.machine.Wait()
	assert.Equal(t, 1, h.notifier.orderCount())
	assert.Equal(t, 1, h.journal.count())
}

func TestDuplicateSkipAfterFinalizeIsIgnored(t *testing.T) {
	h := newHarness(t, config.ModeComment)
	h.seed(t, &models.Session{
		UserID: 1, ChatID: 1, State: models.StateAwaitingComment,
		ServiceID: "souvenirs", ServiceName: "Сувениры", PriceFrom: 300,
	})
	ctx := context.Background()

	require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataSkipComment)))

	// сессия уже Idle, повторный skip со старой клавиатуры игнорируется
	err := h.machine.HandleEvent(ctx, callbackEvent(1, DataSkipComment))
	assert.ErrorIs(t, err, ErrUnmatchedEvent)

	h.machine.Wait()
	assert.Equal(t, 1, h.notifier.orderCount())
	assert.True(t, h.session(t, 1).IsIdle())
}

func TestStaleServiceCallbackWhileIdle(t *testing.T) {
	h := newHarness(t, config.ModePhone)

	err := h.machine.HandleEvent(context.Background(), callbackEvent(1, "service_restoration"))
	assert.ErrorIs(t, err, ErrUnmatchedEvent)

	s := h.session(t, 1)
	assert.True(t, s.IsIdle())
	assert.Empty(t, s.ServiceID)

	// callback подтвержден, кнопка не «висит»
	h.sender.mu.Lock()
	defer h.sender.mu.Unlock()
	require.NotEmpty(t, h.sender.answers)
}

func TestStartCommandResetsActiveOrder(t *testing.T) {
	h := newHarness(t, config.ModePhone)
	h.seed(t, &models.Session{
		UserID: 1, ChatID: 1, State: models.StateAwaitingPhone,
		ServiceID: "restoration", ServiceName: "Реставрация фото", PriceFrom: 500,
	})

	require.NoError(t, h.machine.HandleEvent(context.Background(), textEvent(1, "/start")))

	s := h.session(t, 1)
	assert.True(t, s.IsIdle())
	assert.Empty(t, s.ServiceID)
	assert.Equal(t, textWelcome, h.sender.last(t).text)
}

func TestRepeatOrdersLoopForever(t *testing.T) {
	h := newHarness(t, config.ModePhone)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, DataStartOrder)))
		require.NoError(t, h.machine.HandleEvent(ctx, callbackEvent(1, "service_animation")))
		require.NoError(t, h.machine.HandleEvent(ctx, textEvent(1, "89123456789")))
	}

	h.machine.Wait()
	assert.Equal(t, 2, h.notifier.orderCount())
	assert.Equal(t, 2, h.journal.count())
	// номера заказов растут
	assert.Equal(t, int64(2), h.notifier.orders[1].OrderID)
}
