package bot

import (
	"fotobot/internal/flow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// eventFromUpdate переводит обновление Telegram в событие диалога.
// Обновления без полезной нагрузки (редактирования, стикеры, фото)
// отбрасываются.
func eventFromUpdate(update tgbotapi.Update) (flow.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		var chatID int64
		if cb.Message != nil {
			chatID = cb.Message.Chat.ID
		}
		return flow.Event{
			Kind:       flow.KindCallback,
			UserID:     cb.From.ID,
			ChatID:     chatID,
			Username:   cb.From.UserName,
			Data:       cb.Data,
			CallbackID: cb.ID,
		}, true

	case update.Message != nil && update.Message.Contact != nil:
		m := update.Message
		return flow.Event{
			Kind:     flow.KindContact,
			UserID:   m.From.ID,
			ChatID:   m.Chat.ID,
			Username: m.From.UserName,
			Phone:    m.Contact.PhoneNumber,
		}, true

	case update.Message != nil && update.Message.Text != "":
		m := update.Message
		return flow.Event{
			Kind:     flow.KindText,
			UserID:   m.From.ID,
			ChatID:   m.Chat.ID,
			Username: m.From.UserName,
			Text:     m.Text,
		}, true
	}

	return flow.Event{}, false
}
