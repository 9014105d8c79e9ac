package bot

import (
	"fotobot/internal/domain"
	"fotobot/internal/flow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// flowSender реализует исходящий контракт автомата поверх Telegram:
// ряды Choice превращаются в inline-клавиатуру.
type flowSender struct {
	tg domain.TelegramSender
}

func NewFlowSender(tg domain.TelegramSender) flow.Sender {
	return &flowSender{tg: tg}
}

func (s *flowSender) SendText(chatID int64, text string) error {
	_, err := s.tg.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (s *flowSender) SendChoices(chatID int64, text string, rows [][]flow.Choice) error {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, choice := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Data))
		}
		keyboard = append(keyboard, buttons)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	_, err := s.tg.Send(msg)
	return err
}

func (s *flowSender) AnswerCallback(callbackID, text string) error {
	_, err := s.tg.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}
