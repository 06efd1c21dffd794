package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	TransportTelegram = "telegram"
	TransportMatrix   = "matrix"
	TransportNone     = "none"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	JobsMemory   = "memory"
	JobsSQLite   = "sqlite"
	JobsPostgres = "postgres"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Bot          BotConfig          `yaml:"bot"`
	Summary      SummaryConfig      `yaml:"summary"`
	LLM          LLMConfig          `yaml:"llm"`
	STT          STTConfig          `yaml:"stt"`
	Storage      StorageConfig      `yaml:"storage"`
	Conversation ConversationConfig `yaml:"conversation"`
	Jobs         JobsConfig         `yaml:"jobs"`
	Auth         AuthConfig         `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Enabled        bool            `yaml:"enabled"`
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	MaxUploadBytes int64           `yaml:"maxUploadBytes"`
	CORSOrigins    []string        `yaml:"corsOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// BotConfig selects the chat transport.
type BotConfig struct {
	Transport string         `yaml:"transport"`
	Telegram  TelegramConfig `yaml:"telegram"`
	Matrix    MatrixConfig   `yaml:"matrix"`
}

// TelegramConfig holds Bot API credentials.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	PollTimeout int    `yaml:"pollTimeout"`
	Debug       bool   `yaml:"debug"`
}

// MatrixConfig holds client-server API credentials.
type MatrixConfig struct {
	Homeserver  string `yaml:"homeserver"`
	UserID      string `yaml:"userId"`
	AccessToken string `yaml:"accessToken"`
}

// SummaryConfig tunes chunking and reply sizes.
type SummaryConfig struct {
	ChunkWords   int `yaml:"chunkWords"`
	MessageLimit int `yaml:"messageLimit"`
	TimecodeStep int `yaml:"timecodeStep"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Gemini      GeminiConfig  `yaml:"gemini"`
}

// GeminiConfig is used when llm.provider is gemini.
type GeminiConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseUrl"`
}

// STTConfig configures the remote speech-to-text model.
type STTConfig struct {
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseUrl"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// StorageConfig controls where artifacts are written.
type StorageConfig struct {
	Root string   `yaml:"root"`
	R2   R2Config `yaml:"r2"`
}

// R2Config enables the S3-compatible artifact mirror.
type R2Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// ConversationConfig controls session persistence.
type ConversationConfig struct {
	TTL   time.Duration `yaml:"ttl"`
	Redis RedisConfig   `yaml:"redis"`
}

// RedisConfig contains connection information for session storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// JobsConfig selects the job history backend.
type JobsConfig struct {
	Driver   string         `yaml:"driver"`
	Capacity int            `yaml:"capacity"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig points at the local database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// AuthConfig enables bearer-token auth on the HTTP API when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTtl"`
}

// Load reads configuration from a YAML file, a .env file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// loadDotEnv loads ENV_FILE (or .env) without overriding variables already set.
func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setBool(&cfg.HTTP.Enabled, "HTTP_ENABLED")
	setInt64(&cfg.HTTP.MaxUploadBytes, "HTTP_MAX_UPLOAD_BYTES")
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = lo.Compact(lo.Map(strings.Split(v, ","), func(item string, _ int) string {
			return strings.TrimSpace(item)
		}))
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")

	setString(&cfg.Bot.Transport, "BOT_TRANSPORT")
	setString(&cfg.Bot.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setBool(&cfg.Bot.Telegram.Debug, "TELEGRAM_DEBUG")
	setString(&cfg.Bot.Matrix.Homeserver, "MATRIX_HOMESERVER")
	setString(&cfg.Bot.Matrix.UserID, "MATRIX_USER_ID")
	setString(&cfg.Bot.Matrix.AccessToken, "MATRIX_ACCESS_TOKEN")

	setInt(&cfg.Summary.ChunkWords, "SUMMARY_CHUNK_WORDS")
	setInt(&cfg.Summary.MessageLimit, "SUMMARY_MESSAGE_LIMIT")
	setInt(&cfg.Summary.TimecodeStep, "SUMMARY_TIMECODE_STEP")

	// OPENAI_API_KEY is the conventional name; LLM_API_KEY and STT_API_KEY win when set.
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.STT.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	setDuration(&cfg.LLM.Timeout, "LLM_TIMEOUT")
	setString(&cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.LLM.Gemini.Model, "GEMINI_MODEL")

	setString(&cfg.STT.APIKey, "STT_API_KEY")
	setString(&cfg.STT.BaseURL, "STT_BASE_URL")
	setString(&cfg.STT.Model, "STT_MODEL")
	setString(&cfg.STT.Language, "STT_LANGUAGE")

	setString(&cfg.Storage.Root, "STORAGE_ROOT")
	setBool(&cfg.Storage.R2.Enabled, "STORAGE_R2_ENABLED")
	setString(&cfg.Storage.R2.Endpoint, "STORAGE_R2_ENDPOINT")
	setString(&cfg.Storage.R2.AccessKey, "STORAGE_R2_ACCESS_KEY")
	setString(&cfg.Storage.R2.SecretKey, "STORAGE_R2_SECRET_KEY")
	setString(&cfg.Storage.R2.Bucket, "STORAGE_R2_BUCKET")
	setString(&cfg.Storage.R2.Region, "STORAGE_R2_REGION")

	setDuration(&cfg.Conversation.TTL, "CONVERSATION_TTL")
	setBool(&cfg.Conversation.Redis.Enabled, "CONVERSATION_REDIS_ENABLED")
	setString(&cfg.Conversation.Redis.Addr, "CONVERSATION_REDIS_ADDR")

	setString(&cfg.Jobs.Driver, "JOBS_DRIVER")
	setString(&cfg.Jobs.SQLite.Path, "JOBS_SQLITE_PATH")
	setString(&cfg.Jobs.Postgres.DSN, "JOBS_POSTGRES_DSN")
	if v := os.Getenv("JOBS_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Jobs.Postgres.MaxConns = int32(parsed)
		}
	}

	setString(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setDuration(&cfg.Auth.TokenTTL, "AUTH_TOKEN_TTL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Enabled:        true,
			Address:        ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   10 * time.Minute,
			MaxUploadBytes: 25 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
			},
		},
		Bot: BotConfig{
			Transport: TransportTelegram,
			Telegram: TelegramConfig{
				PollTimeout: 60,
			},
		},
		Summary: SummaryConfig{
			ChunkWords:   1300,
			MessageLimit: 4096,
			TimecodeStep: 5,
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-3.5-turbo",
			Temperature: 0.6,
			Timeout:     2 * time.Minute,
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		STT: STTConfig{
			Model: "whisper-1",
		},
		Storage: StorageConfig{
			Root: ".",
		},
		Conversation: ConversationConfig{
			TTL: time.Hour,
			Redis: RedisConfig{
				Prefix: "digestbot",
			},
		},
		Jobs: JobsConfig{
			Driver:   JobsMemory,
			Capacity: 500,
			SQLite: SQLiteConfig{
				Path: "digestbot.db",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use. Credentials are checked
// by the adapters that need them so one-shot commands can run without them.
func (c *Config) Validate() error {
	if c.HTTP.Enabled && c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return errors.New("http.maxUploadBytes must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	switch c.Bot.Transport {
	case TransportTelegram, TransportMatrix, TransportNone:
	default:
		return fmt.Errorf("bot.transport %q must be one of telegram, matrix, none", c.Bot.Transport)
	}
	if c.Summary.ChunkWords <= 0 {
		return errors.New("summary.chunkWords must be positive")
	}
	if c.Summary.MessageLimit <= 0 {
		return errors.New("summary.messageLimit must be positive")
	}
	if c.Summary.TimecodeStep <= 0 {
		return errors.New("summary.timecodeStep must be positive")
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider %q must be openai or gemini", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		return errors.New("storage.root cannot be empty")
	}
	if c.Storage.R2.Enabled && strings.TrimSpace(c.Storage.R2.Bucket) == "" {
		return errors.New("storage.r2.bucket cannot be empty when the mirror is enabled")
	}
	if c.Conversation.TTL < 0 {
		return errors.New("conversation.ttl cannot be negative")
	}
	if c.Conversation.Redis.Enabled && strings.TrimSpace(c.Conversation.Redis.Addr) == "" {
		return errors.New("conversation.redis.addr cannot be empty when redis is enabled")
	}
	switch c.Jobs.Driver {
	case JobsMemory:
	case JobsSQLite:
		if strings.TrimSpace(c.Jobs.SQLite.Path) == "" {
			return errors.New("jobs.sqlite.path cannot be empty")
		}
	case JobsPostgres:
		if strings.TrimSpace(c.Jobs.Postgres.DSN) == "" {
			return errors.New("jobs.postgres.dsn cannot be empty")
		}
	default:
		return fmt.Errorf("jobs.driver %q must be one of memory, sqlite, postgres", c.Jobs.Driver)
	}
	if c.Auth.TokenTTL < 0 {
		return errors.New("auth.tokenTtl cannot be negative")
	}
	return nil
}
