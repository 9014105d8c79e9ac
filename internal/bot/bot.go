package bot

import (
	"context"
	"errors"
	"os"
	"time"

	"fotobot/internal/config"
	"fotobot/internal/domain"
	"fotobot/internal/flow"
	"fotobot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Bot — транспортный слой: принимает обновления Telegram, конвертирует
// их в события диалога и передает автомату. Вся логика заказа живет в
// internal/flow.
type Bot struct {
	tgService domain.TelegramSender
	config    *config.Config
	sessions  domain.SessionManager
	machine   *flow.Machine
	journal   domain.OrderJournal
	metrics   *metrics.Metrics
	logger    *zerolog.Logger
}

func NewBot(
	tgService domain.TelegramSender,
	cfg *config.Config,
	sessions domain.SessionManager,
	machine *flow.Machine,
	journal domain.OrderJournal,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	return &Bot{
		tgService: tgService,
		config:    cfg,
		sessions:  sessions,
		machine:   machine,
		journal:   journal,
		metrics:   m,
		logger:    logger,
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdatesProcessed.Inc()
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Отдельный контекст на каждое обновление
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		event, ok := eventFromUpdate(update)
		if !ok {
			return
		}

		if update.Message != nil && b.handleOwnerCommand(updateCtx, update.Message) {
			return
		}

		if !b.isOwner(event.UserID) {
			allowed, err := b.sessions.CheckRateLimit(updateCtx, event.UserID,
				b.config.Bot.RateLimitMessages, time.Duration(b.config.Bot.RateLimitWindow)*time.Second)
			if err != nil {
				l.Error().Err(err).Int64("user_id", event.UserID).Msg("Rate limit check failed")
			} else if !allowed {
				if b.metrics != nil {
					b.metrics.RateLimited.Inc()
				}
				l.Warn().Int64("user_id", event.UserID).Msg("Rate limit exceeded")
				b.sendMessage(event.ChatID, "⚠️ Вы отправляете сообщения слишком часто. Пожалуйста, подождите немного.")
				return
			}
		}

		if err := b.machine.HandleEvent(updateCtx, event); err != nil {
			b.reportFlowError(&l, event, err)
		}
	})
}

// reportFlowError разделяет восстановимые ошибки диалога и сбои:
// первые ожидаемы и не считаются ошибками обработки.
func (b *Bot) reportFlowError(l *zerolog.Logger, event flow.Event, err error) {
	switch {
	case errors.Is(err, flow.ErrUnmatchedEvent),
		errors.Is(err, flow.ErrInvalidSelection),
		errors.Is(err, flow.ErrInvalidPhone):
		l.Debug().Err(err).Int64("user_id", event.UserID).Msg("Recoverable flow error")
	default:
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		l.Error().Err(err).Int64("user_id", event.UserID).Msg("Failed to process event")
	}
}

func (b *Bot) isOwner(userID int64) bool {
	return b.config.Owner.ChatID != 0 && userID == b.config.Owner.ChatID
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if chatID == 0 {
		return
	}
	if _, err := b.tgService.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}
