package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	BotToken   string `env:"BOT_TOKEN,required"`
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://api.telegram.org"`

	// WebhookAddr switches update delivery from long polling to a webhook
	// listener on this address. Empty keeps polling.
	WebhookAddr   string `env:"WEBHOOK_ADDR"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DBHost      string `env:"DB_HOST,required"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER,required"`
	DBPassword  string `env:"DB_PASSWORD,required"`
	DBName      string `env:"DB_NAME,required"`
	EnableCache bool   `env:"ENABLE_CACHE" envDefault:"true"`

	// RedisURL switches the profile-check cooldown store to Redis. Empty
	// keeps the in-memory store.
	RedisURL string `env:"REDIS_URL"`

	EnableTelemetry bool    `env:"ENABLE_TELEMETRY" envDefault:"true"`
	AdminUserIDs    []int64 `env:"ADMIN_USER_IDS" envSeparator:","`

	ModerateAdmins bool `env:"MODERATE_ADMINS" envDefault:"false"`
	ModerateBots   bool `env:"MODERATE_BOTS" envDefault:"false"`

	MaxWarnings  int           `env:"MAX_WARNINGS" envDefault:"2"`
	MuteDuration time.Duration `env:"MUTE_DURATION" envDefault:"30m"`

	FloodThreshold int           `env:"FLOOD_THRESHOLD" envDefault:"3"`
	FloodWindow    time.Duration `env:"FLOOD_WINDOW" envDefault:"60s"`
	CapsMinLength  int           `env:"CAPS_MIN_LENGTH" envDefault:"8"`
	CapsThreshold  int           `env:"CAPS_THRESHOLD" envDefault:"8"`

	ZalgoMinMarks int     `env:"ZALGO_MIN_MARKS" envDefault:"4"`
	ZalgoRatio    float64 `env:"ZALGO_RATIO" envDefault:"0.5"`

	AvatarHashThreshold  int           `env:"AVATAR_HASH_THRESHOLD" envDefault:"5"`
	ProfileCheckCooldown time.Duration `env:"PROFILE_CHECK_COOLDOWN" envDefault:"5m"`

	CaptchaTimeout        time.Duration `env:"CAPTCHA_TIMEOUT" envDefault:"10m"`
	MediaRestrictDuration time.Duration `env:"MEDIA_RESTRICT_DURATION" envDefault:"30m"`

	NoticeTTL      time.Duration `env:"NOTICE_TTL" envDefault:"15s"`
	RescanInterval time.Duration `env:"RESCAN_INTERVAL" envDefault:"2m"`
	RescanBatch    int           `env:"RESCAN_BATCH" envDefault:"25"`
	ReportHourUTC  int           `env:"REPORT_HOUR_UTC" envDefault:"8"`

	// PersistWarnings keeps warning counters rehydratable across restarts.
	// Off reproduces the purely in-memory behavior where a restart resets
	// all escalation progress.
	PersistWarnings bool `env:"PERSIST_WARNINGS" envDefault:"true"`
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Printf("Config loaded. MetricsAddr: %s, LogLevel: %s", cfg.MetricsAddr, cfg.LogLevel)
	return cfg, nil
}
