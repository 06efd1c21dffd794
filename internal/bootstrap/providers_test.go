package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/digestbot/internal/infra/config"
	"github.com/yanqian/digestbot/internal/infra/convstore"
	"github.com/yanqian/digestbot/internal/infra/jobrepo"
	"github.com/yanqian/digestbot/internal/infra/tokens"
)

func TestProvideJobRepositoryFallsBackToMemory(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.JobsConfig
	}{
		{name: "memory", cfg: config.JobsConfig{Driver: config.JobsMemory}},
		{name: "postgres without dsn", cfg: config.JobsConfig{Driver: config.JobsPostgres}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo, cleanup := ProvideJobRepository(&config.Config{Jobs: tt.cfg}, discardLogger())
			defer cleanup()
			require.IsType(t, &jobrepo.MemoryRepository{}, repo)
		})
	}
}

func TestProvideJobRepositorySQLite(t *testing.T) {
	cfg := &config.Config{Jobs: config.JobsConfig{Driver: config.JobsSQLite, SQLite: config.SQLiteConfig{Path: t.TempDir() + "/jobs.db"}}}
	repo, cleanup := ProvideJobRepository(cfg, discardLogger())
	defer cleanup()
	require.IsType(t, &jobrepo.SQLiteRepository{}, repo)

	jobs, err := repo.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestProvideConversationStoreDefaultsToMemory(t *testing.T) {
	store, cleanup := ProvideConversationStore(&config.Config{}, discardLogger())
	defer cleanup()
	require.IsType(t, &convstore.MemoryStore{}, store)

	cfg := &config.Config{Conversation: config.ConversationConfig{Redis: config.RedisConfig{Enabled: true}}}
	store, cleanup2 := ProvideConversationStore(cfg, discardLogger())
	defer cleanup2()
	require.IsType(t, &convstore.MemoryStore{}, store)
}

func TestProvideCompleterSelectsProvider(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{Provider: config.ProviderOpenAI, APIKey: "sk-test", Model: "gpt-3.5-turbo"}}
	completer, err := ProvideCompleter(cfg, nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, completer)

	cfg.LLM.Provider = config.ProviderGemini
	_, err = ProvideCompleter(cfg, nil, discardLogger())
	require.Error(t, err)
}

func TestProvideTokenCounterForGeminiUsesWordEstimate(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{
		Provider: config.ProviderGemini,
		Model:    "gpt-3.5-turbo",
		Gemini:   config.GeminiConfig{Model: "gemini-2.0-flash"},
	}}
	counter := ProvideTokenCounter(cfg, discardLogger())
	require.Equal(t, tokens.NewWordEstimator(), counter)
	require.Equal(t, 4, counter.Count("one two three"))
}

func TestProvideArtifactStoreLocal(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Root: t.TempDir()}}
	store, err := ProvideArtifactStore(cfg, discardLogger())
	require.NoError(t, err)

	artifact, err := store.Put(context.Background(), "documents/summary.txt", []byte("ok"), "text/plain")
	require.NoError(t, err)
	require.Equal(t, int64(2), artifact.Size)
}
