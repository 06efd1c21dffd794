package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/digestbot/internal/domain/auth"
	"github.com/yanqian/digestbot/internal/domain/bot"
	"github.com/yanqian/digestbot/internal/domain/conversation"
	"github.com/yanqian/digestbot/internal/domain/summarizer"
	"github.com/yanqian/digestbot/internal/domain/transcript"
	"github.com/yanqian/digestbot/internal/infra/artifacts"
	"github.com/yanqian/digestbot/internal/infra/config"
	"github.com/yanqian/digestbot/internal/infra/convstore"
	"github.com/yanqian/digestbot/internal/infra/jobrepo"
	"github.com/yanqian/digestbot/internal/infra/llm/chatgpt"
	"github.com/yanqian/digestbot/internal/infra/llm/gemini"
	"github.com/yanqian/digestbot/internal/infra/stt/whisper"
	"github.com/yanqian/digestbot/internal/infra/tokens"
	"github.com/yanqian/digestbot/pkg/metrics"
)

// ProvideRegistry returns the process-wide Prometheus registry.
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideRecorder registers the application collectors.
func ProvideRecorder(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.NewRecorder(reg)
}

// ProvideSummaryConfig maps config onto the summarizer.
func ProvideSummaryConfig(cfg *config.Config) summarizer.Config {
	return summarizer.Config{
		ChunkWords:   cfg.Summary.ChunkWords,
		MessageLimit: cfg.Summary.MessageLimit,
	}
}

// ProvideBotConfig maps config onto the dispatcher.
func ProvideBotConfig(cfg *config.Config) bot.Config {
	return bot.Config{
		MessageLimit: cfg.Summary.MessageLimit,
		TimecodeStep: cfg.Summary.TimecodeStep,
	}
}

// ProvideAuthConfig maps config onto the token service.
func ProvideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		TokenTTL: cfg.Auth.TokenTTL,
	}
}

// ProvideCompleter builds the completion adapter for llm.provider.
func ProvideCompleter(cfg *config.Config, recorder *metrics.Recorder, logger *slog.Logger) (summarizer.Completer, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return gemini.NewCompleter(context.Background(), gemini.Config{
			APIKey:      cfg.LLM.Gemini.APIKey,
			Model:       cfg.LLM.Gemini.Model,
			Temperature: cfg.LLM.Temperature,
			BaseURL:     cfg.LLM.Gemini.BaseURL,
		}, recorder, logger)
	default:
		client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
		if err != nil {
			return nil, err
		}
		return chatgpt.NewCompleter(client, cfg.LLM.Model, cfg.LLM.Temperature, recorder, logger), nil
	}
}

// ProvideTokenCounter returns the tokenizer used for usage estimates.
// Gemini models have no BPE table in tiktoken, so they get the word estimate.
func ProvideTokenCounter(cfg *config.Config, logger *slog.Logger) summarizer.TokenCounter {
	if cfg.LLM.Provider == config.ProviderGemini {
		return tokens.NewWordEstimator()
	}
	return tokens.NewCounter(cfg.LLM.Model, logger)
}

// ProvideTranscriber builds the speech-to-text adapter.
func ProvideTranscriber(cfg *config.Config, recorder *metrics.Recorder, logger *slog.Logger) (transcript.Transcriber, error) {
	return whisper.NewTranscriber(whisper.Config{
		APIKey:   cfg.STT.APIKey,
		BaseURL:  cfg.STT.BaseURL,
		Model:    cfg.STT.Model,
		Language: cfg.STT.Language,
	}, recorder, logger)
}

// ProvideArtifactStore writes under storage.root and mirrors to R2 when enabled.
func ProvideArtifactStore(cfg *config.Config, logger *slog.Logger) (bot.ArtifactStore, error) {
	local, err := artifacts.NewLocalStore(cfg.Storage.Root)
	if err != nil {
		return nil, err
	}
	if !cfg.Storage.R2.Enabled {
		return local, nil
	}
	r2 := cfg.Storage.R2
	mirror, err := artifacts.NewR2Store(artifacts.R2Config{
		Endpoint:  r2.Endpoint,
		AccessKey: r2.AccessKey,
		SecretKey: r2.SecretKey,
		Bucket:    r2.Bucket,
		Region:    r2.Region,
		Prefix:    r2.Prefix,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize r2 mirror, writing locally only", "error", err)
		return local, nil
	}
	logger.Info("r2 artifact mirror enabled", "bucket", r2.Bucket)
	return artifacts.NewMirroredStore(local, mirror, logger), nil
}

// ProvideConversationStore uses Valkey when enabled and reachable, memory otherwise.
func ProvideConversationStore(cfg *config.Config, logger *slog.Logger) (conversation.Store, func()) {
	noop := func() {}
	if !cfg.Conversation.Redis.Enabled {
		return convstore.NewMemoryStore(), noop
	}
	opt, err := buildValkeyOptions(cfg.Conversation.Redis.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
		return convstore.NewMemoryStore(), noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory store", "error", err)
		return convstore.NewMemoryStore(), noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory store", "error", err)
		client.Close()
		return convstore.NewMemoryStore(), noop
	}
	logger.Info("conversation valkey store enabled", "addr", cfg.Conversation.Redis.Addr)
	return convstore.NewValkeyStore(client, cfg.Conversation.Redis.Prefix), client.Close
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	if strings.TrimSpace(addr) == "" {
		return valkey.ClientOption{}, fmt.Errorf("valkey address cannot be empty")
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// ProvideMachine builds the per-conversation state machine.
func ProvideMachine(cfg *config.Config, store conversation.Store, logger *slog.Logger) *conversation.Machine {
	return conversation.NewMachine(store, cfg.Conversation.TTL, logger)
}

// ProvideJobRepository selects the job history backend, falling back to memory.
func ProvideJobRepository(cfg *config.Config, logger *slog.Logger) (bot.JobRepository, func()) {
	noop := func() {}
	fallback := jobrepo.NewMemoryRepository(cfg.Jobs.Capacity)
	switch cfg.Jobs.Driver {
	case config.JobsSQLite:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		repo, err := jobrepo.OpenSQLite(ctx, cfg.Jobs.SQLite.Path)
		if err != nil {
			logger.Error("failed to open sqlite job repository, using memory repository", "error", err)
			return fallback, noop
		}
		logger.Info("sqlite job repository enabled", "path", cfg.Jobs.SQLite.Path)
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Warn("close sqlite job repository", "error", err)
			}
		}
	case config.JobsPostgres:
		pool, err := openPostgres(cfg.Jobs.Postgres, logger)
		if err != nil {
			logger.Error("postgres unavailable, using memory repository", "error", err)
			return fallback, noop
		}
		repo := jobrepo.NewPostgresRepository(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Migrate(ctx); err != nil {
			logger.Error("postgres migration failed, using memory repository", "error", err)
			pool.Close()
			return fallback, noop
		}
		logger.Info("postgres job repository enabled")
		return repo, pool.Close
	default:
		return fallback, noop
	}
}

func openPostgres(cfg config.PostgresConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("jobs.postgres.dsn is not set")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
