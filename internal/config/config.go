package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Transport names
const (
	TransportTelegram = "telegram"
	TransportDiscord  = "discord"
)

// Session backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds all configuration for the application
type Config struct {
	// Transport configuration
	Transport    string `env:"TRANSPORT" envDefault:"telegram"`
	BotToken     string `env:"BOT_TOKEN"`
	DiscordToken string `env:"DISCORD_TOKEN"`
	AppID        string `env:"APP_ID"`
	GuildID      string `env:"GUILD_ID"`

	// Storage
	DataDir string `env:"DATA_DIR"`
	DBPath  string `env:"DB_PATH"`

	// Access control
	OwnerIDs             []int64 `env:"OWNER_IDS" envSeparator:","`
	DepositReviewOwnerID int64   `env:"DEPOSIT_REVIEW_OWNER_ID"`
	ForceJoinChatID      string  `env:"FORCE_JOIN_CHAT_ID"`
	ForceJoinChannelLink string  `env:"FORCE_JOIN_CHANNEL_LINK"`

	// Ledger
	WalletRules string `env:"WALLET_RULES" envDefault:"tg1=wallet_2;tg2=wallet_1;whatsapp=wallet_1|wallet_2"`

	// Deposit capture sessions
	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"memory"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"15m"`
	RedisAddr      string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`

	// Journal archive
	ElasticsearchURL      string        `env:"ELASTICSEARCH_URL"`
	ElasticsearchUsername string        `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string        `env:"ELASTICSEARCH_PASSWORD"`
	ElasticsearchIndex    string        `env:"ELASTICSEARCH_INDEX_PREFIX" envDefault:"numberledger"`
	JournalExportInterval time.Duration `env:"JOURNAL_EXPORT_INTERVAL" envDefault:"1m"`

	// Operations
	MetricsAddr   string  `env:"METRICS_ADDR" envDefault:":9090"`
	BroadcastRate float64 `env:"BROADCAST_RATE" envDefault:"20"`
	IntentRate    float64 `env:"INTENT_RATE" envDefault:"2"`

	// Presentation
	BrandName       string `env:"BRAND_NAME" envDefault:"Number Store"`
	SupportLink     string `env:"SUPPORT_LINK"`
	HowToUseLink    string `env:"HOW_TO_USE_LINK"`
	DefaultPassword string `env:"DEFAULT_PASSWORD" envDefault:"1010"`
	DepositQRPath   string `env:"DEPOSIT_QR_PATH"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development" or "production"
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Only return error if file exists but couldn't be loaded
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// Parse builds a Config from the current environment without touching .env or the filesystem
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if cfg.DataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.DataDir = filepath.Join(wd, "data")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "ledger.db")
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportTelegram:
		if c.BotToken == "" {
			return fmt.Errorf("BOT_TOKEN is required")
		}
	case TransportDiscord:
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required")
		}
		if c.AppID == "" {
			return fmt.Errorf("APP_ID is required")
		}
	default:
		return fmt.Errorf("unknown TRANSPORT %q", c.Transport)
	}

	if len(c.OwnerIDs) == 0 {
		return fmt.Errorf("OWNER_IDS is required")
	}

	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.BroadcastRate <= 0 {
		return fmt.Errorf("BROADCAST_RATE must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ReviewOwnerID returns the actor that reviews deposits, falling back to the first owner
func (c *Config) ReviewOwnerID() int64 {
	if c.DepositReviewOwnerID != 0 {
		return c.DepositReviewOwnerID
	}
	if len(c.OwnerIDs) > 0 {
		return c.OwnerIDs[0]
	}
	return 0
}

// ElasticsearchEnabled reports whether the journal archive is configured
func (c *Config) ElasticsearchEnabled() bool {
	return c.ElasticsearchURL != ""
}
