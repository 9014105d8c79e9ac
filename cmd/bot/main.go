package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fotobot/internal/bot"
	"fotobot/internal/catalog"
	"fotobot/internal/config"
	"fotobot/internal/database"
	"fotobot/internal/events"
	"fotobot/internal/flow"
	"fotobot/internal/logging"
	"fotobot/internal/metrics"
	"fotobot/internal/notify"
	"fotobot/internal/repository"
	"fotobot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, cat, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, sessionService := initSessionService(ctx, cfg, logger)
	if redisClient != nil {
		defer (func(c *redis.Client) { _ = repository.Close(c) })(redisClient)
	}

	m := metrics.NewMetrics()

	eventBus := events.NewEventBus()
	subscribeOrderEvents(eventBus, m, logger)

	if cfg.Monitoring.PrometheusEnabled {
		monitoring := metrics.NewServer(cfg.Monitoring.PrometheusPort, logger)
		go func() {
			if err := monitoring.Start(); err != nil {
				logger.Error().Err(err).Msg("Monitoring server error")
			}
		}()
		defer func() {
			_ = monitoring.Shutdown(context.Background())
		}()
	}

	return startBot(ctx, cfg, cat, sessionService, db, eventBus, m, logger)
}

func loadConfigAndLogger() (*config.Config, *catalog.Catalog, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	servicesPath := os.Getenv("SERVICES_PATH")
	if servicesPath == "" {
		servicesPath = "configs/services.yaml"
	}
	servicesData, err := os.ReadFile(servicesPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", servicesPath)
		return nil, nil, nil, closer, err
	}

	var servicesConfig struct {
		Services []catalog.Offering `yaml:"services"`
	}
	if err := yaml.Unmarshal(servicesData, &servicesConfig); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга services.yaml")
		return nil, nil, nil, closer, err
	}

	cat, err := catalog.New(servicesConfig.Services)
	if err != nil {
		logger.Error().Err(err).Msg("Services validation failed")
		return nil, nil, nil, closer, err
	}

	return cfg, cat, &logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

// initSessionService собирает хранилище сессий: Redis с памятью на
// подхвате, либо только память, если Redis не сконфигурирован.
func initSessionService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.SessionService) {
	ttl := time.Duration(cfg.Bot.SessionTTL) * time.Second
	memoryRepo := repository.NewMemorySessionRepository(ttl)

	if cfg.Redis.Address == "" {
		return nil, service.NewSessionService(memoryRepo, logger)
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}

	primaryRepo := repository.NewRedisSessionRepository(redisClient, ttl)
	sessionRepo := repository.NewFailoverSessionRepository(primaryRepo, memoryRepo, logger)
	return redisClient, service.NewSessionService(sessionRepo, logger)
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	cat *catalog.Catalog,
	sessionService *service.SessionService,
	db *database.DB,
	eventBus *events.EventBus,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	botWrapper := bot.NewBotWrapper(botAPI)
	tgService := service.NewTelegramService(botWrapper)

	notifier := notify.NewTelegramNotifier(tgService, cfg.Owner.ChatID, notify.DefaultRetryPolicy(), logger)

	machine := flow.NewMachine(
		sessionService, cat, db, eventBus, notifier,
		bot.NewFlowSender(tgService),
		flow.Options{
			Mode:             cfg.Flow.Mode,
			PaymentContact:   cfg.Flow.Payment.Contact,
			PaymentRecipient: cfg.Flow.Payment.Recipient,
		},
		logger,
	)
	machine.OnNotifyFailure(m.NotifyFailures.Inc)

	telegramBot, err := bot.NewBot(tgService, cfg, sessionService, machine, db, m, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания бота")
		return err
	}

	logger.Info().Str("mode", cfg.Flow.Mode).Msg("Бот запущен...")
	telegramBot.Start(ctx)

	// Дожидаемся уведомлений о заказах, принятых перед остановкой
	machine.Wait()

	logger.Info().Msg("Shutdown complete.")
	return nil
}

// subscribeOrderEvents подключает счетчики метрик к шине событий.
func subscribeOrderEvents(bus *events.EventBus, m *metrics.Metrics, logger *zerolog.Logger) {
	if bus == nil || m == nil {
		return
	}

	decode := func(ev *events.Event) (events.OrderEventPayload, error) {
		var payload events.OrderEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return payload, err
		}
		return payload, nil
	}

	bus.Subscribe(events.EventOrderCreated, func(ev *events.Event) error {
		payload, err := decode(ev)
		if err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		m.OrdersCreated.WithLabelValues(payload.ServiceName).Inc()
		return nil
	})

	bus.Subscribe(events.EventOrderCancelled, func(ev *events.Event) error {
		m.OrdersCancelled.Inc()
		return nil
	})

	bus.Subscribe(events.EventPaymentClaimed, func(ev *events.Event) error {
		m.PaymentClaims.Inc()
		return nil
	})
}
