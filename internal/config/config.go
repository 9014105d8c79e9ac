package config

import (
	"errors"
	"fmt"
	"os"

	"fotobot/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Режимы диалога: какой шаг сбора данных вставлен после выбора услуги.
const (
	ModeDirect  = "direct"  // выбор услуги сразу завершает заказ
	ModePhone   = "phone"   // запрашивается номер телефона
	ModeComment = "comment" // запрашивается комментарий
	ModePrepay  = "prepay"  // подтверждение и ожидание оплаты
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Owner      OwnerConfig      `yaml:"owner"`
	Flow       FlowConfig       `yaml:"flow"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Bot        BotConfig        `yaml:"bot"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

// OwnerConfig задает получателя уведомлений о заказах. Нулевой chat_id
// легален и отключает уведомления.
type OwnerConfig struct {
	ChatID int64 `yaml:"chat_id"`
}

type FlowConfig struct {
	Mode    string        `yaml:"mode"`
	Payment PaymentConfig `yaml:"payment"`
}

// PaymentConfig — реквизиты, подставляемые в текст платежной инструкции.
// На логику не влияют.
type PaymentConfig struct {
	Contact   string `yaml:"contact"`
	Recipient string `yaml:"recipient"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type BotConfig struct {
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
	SessionTTL        int `yaml:"session_ttl"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен: переменные могут прийти из окружения
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	switch c.Flow.Mode {
	case ModeDirect, ModePhone, ModeComment, ModePrepay:
	default:
		return fmt.Errorf("unknown flow mode: %q", c.Flow.Mode)
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Flow.Mode == "" {
		c.Flow.Mode = ModePhone
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/fotobot.db"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// Bot defaults
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
	if c.Bot.SessionTTL == 0 {
		c.Bot.SessionTTL = models.DefaultSessionTTL
	}
}
