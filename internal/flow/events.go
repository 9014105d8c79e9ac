package flow

// EventKind — тип входящего события диалога.
type EventKind string

const (
	KindText     EventKind = "text"     // свободный текст или команда
	KindCallback EventKind = "callback" // нажатие inline-кнопки
	KindContact  EventKind = "contact"  // пересланная карточка контакта
)

// Токены callback-данных. Выбор услуги кодируется как "service_<id>".
const (
	DataStartOrder   = "start_order"
	DataCancel       = "cancel"
	DataSkipComment  = "skip_comment"
	DataConfirmOrder = "confirm_order"
	DataPaid         = "paid"

	ServiceDataPrefix = "service_"
)

// Event — транспортно-нейтральное входящее событие. Конвертация из
// telegram-обновлений живет в internal/bot, автомат о Telegram не знает.
type Event struct {
	Kind       EventKind
	UserID     int64
	ChatID     int64
	Username   string
	Text       string // KindText
	Data       string // KindCallback
	Phone      string // KindContact
	CallbackID string // непустой для KindCallback
}

// Choice — подпись и полезная нагрузка одной кнопки.
type Choice struct {
	Label string
	Data  string
}

// Sender — исходящий контракт автомата: отправить текст или текст с
// кнопками, подтвердить callback. Доставка — забота транспорта.
type Sender interface {
	SendText(chatID int64, text string) error
	SendChoices(chatID int64, text string, rows [][]Choice) error
	AnswerCallback(callbackID, text string) error
}
