package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Telegram transport modes
const (
	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Worker    WorkerConfig    `yaml:"worker"`
	Providers ProvidersConfig `yaml:"providers"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Bot       BotConfig       `yaml:"bot"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectInterval time.Duration `yaml:"connect_interval"`
}

// RabbitMQConfig holds the job event publisher settings
type RabbitMQConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds an optional queue bound to the events exchange
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// RedisConfig holds the optional shared rate limit store
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// WorkerConfig holds job pool configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	QueueSize       int           `yaml:"queue_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProvidersConfig holds the text-editing provider settings
type ProvidersConfig struct {
	CallTimeout time.Duration  `yaml:"call_timeout"`
	Cooldown    time.Duration  `yaml:"cooldown"`
	OpenAI      ProviderConfig `yaml:"openai"`
	Gemini      ProviderConfig `yaml:"gemini"`
}

// ProviderConfig holds one provider's endpoint and key source
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// KeysEnv names a comma separated list of keys, KeyEnv a single key used when the list is empty
	KeysEnv string `yaml:"keys_env"`
	KeyEnv  string `yaml:"key_env"`
}

// TelegramConfig holds the chat transport settings
type TelegramConfig struct {
	Mode          string        `yaml:"mode"`
	APIURL        string        `yaml:"api_url"`
	PollTimeout   time.Duration `yaml:"poll_timeout"`
	WebhookURL    string        `yaml:"webhook_url"`
	WebhookSecret string        `yaml:"webhook_secret"`
	Token         string        `yaml:"-"`
}

// BotConfig holds chat level behaviour
type BotConfig struct {
	DefaultInstruction string  `yaml:"default_instruction"`
	AdminIDs           []int64 `yaml:"admin_ids"`
	AdminAPIToken      string  `yaml:"-"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 3
	}
	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = 1000
	}
	if c.Worker.ShutdownTimeout == 0 {
		c.Worker.ShutdownTimeout = 2 * time.Minute
	}
	if c.Providers.CallTimeout == 0 {
		c.Providers.CallTimeout = 60 * time.Second
	}
	if c.Providers.Cooldown == 0 {
		c.Providers.Cooldown = 600 * time.Second
	}
	if c.Providers.OpenAI.BaseURL == "" {
		c.Providers.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.Providers.OpenAI.Model == "" {
		c.Providers.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Providers.OpenAI.KeysEnv == "" {
		c.Providers.OpenAI.KeysEnv = "OPENAI_API_KEYS"
	}
	if c.Providers.OpenAI.KeyEnv == "" {
		c.Providers.OpenAI.KeyEnv = "OPENAI_API_KEY"
	}
	if c.Providers.Gemini.BaseURL == "" {
		c.Providers.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Providers.Gemini.Model == "" {
		c.Providers.Gemini.Model = "gemini-1.5-flash"
	}
	if c.Providers.Gemini.KeysEnv == "" {
		c.Providers.Gemini.KeysEnv = "GEMINI_API_KEYS"
	}
	if c.Providers.Gemini.KeyEnv == "" {
		c.Providers.Gemini.KeyEnv = "GEMINI_API_KEY"
	}
	if c.Telegram.Mode == "" {
		c.Telegram.Mode = TelegramModePolling
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 30 * time.Second
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "editor-bot:ratelimit:"
	}
}

// LoadSecrets copies secrets from the environment into the config.
// BOT_TOKEN and ADMIN_IDS are required at runtime; ADMIN_IDS extends admin_ids from the file.
func (c *Config) LoadSecrets(getenv func(string) string) error {
	c.Telegram.Token = strings.TrimSpace(getenv("BOT_TOKEN"))
	c.Bot.AdminAPIToken = strings.TrimSpace(getenv("ADMIN_API_TOKEN"))

	if pw := getenv("DATABASE_PASSWORD"); pw != "" {
		c.Database.Password = pw
	}
	if pw := getenv("RABBITMQ_PASSWORD"); pw != "" {
		c.RabbitMQ.Password = pw
	}
	if pw := getenv("REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}

	ids, err := ParseAdminIDs(getenv("ADMIN_IDS"))
	if err != nil {
		return err
	}
	c.Bot.AdminIDs = append(c.Bot.AdminIDs, ids...)

	return nil
}

// ParseAdminIDs parses a comma separated list of chat user ids
func ParseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.ValidateDatabaseConfig(); err != nil {
		return err
	}

	if err := c.ValidateWorkerConfig(); err != nil {
		return err
	}

	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}
		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}
		if c.RabbitMQ.Exchange.Name == "" {
			return fmt.Errorf("rabbitmq exchange name is required")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}

	switch c.Telegram.Mode {
	case TelegramModePolling:
	case TelegramModeWebhook:
		if c.Telegram.WebhookSecret == "" {
			return fmt.Errorf("telegram webhook_secret is required in webhook mode")
		}
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("telegram webhook_url is required in webhook mode")
		}
	default:
		return fmt.Errorf("invalid telegram mode: %q", c.Telegram.Mode)
	}

	return nil
}

// ValidateDatabaseConfig checks the PostgreSQL settings
func (c *Config) ValidateDatabaseConfig() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

// ValidateWorkerConfig checks the pool and provider settings
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker queue_size must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Providers.CallTimeout <= 0 {
		return fmt.Errorf("providers call_timeout must be greater than 0")
	}

	if c.Providers.Cooldown <= 0 {
		return fmt.Errorf("providers cooldown must be greater than 0")
	}

	return nil
}
