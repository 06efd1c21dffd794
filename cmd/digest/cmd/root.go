package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yanqian/digestbot/internal/bootstrap"
	"github.com/yanqian/digestbot/internal/domain/bot"
	"github.com/yanqian/digestbot/internal/domain/summarizer"
	"github.com/yanqian/digestbot/internal/domain/transcript"
	"github.com/yanqian/digestbot/internal/infra/config"
	"github.com/yanqian/digestbot/internal/infra/convstore"
	"github.com/yanqian/digestbot/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "digest",
	Short: "Transcribe audio and summarize long texts from the command line",
	Long: `digest runs the same flows as the chat bot against local files.

- summarize: chunked summary of a text file
- transcribe: speech-to-text with timecodes
- jobs: recent job history from the configured backend
- token: mint a bearer token for the HTTP API`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(tokenCmd)
}

// runtime holds what every subcommand needs; cleanup must be called when done.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	jobs    bot.JobRepository
	cleanup func()
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(os.Stderr)
	jobs, cleanup := bootstrap.ProvideJobRepository(cfg, log)
	return &runtime{cfg: cfg, logger: log, jobs: jobs, cleanup: cleanup}, nil
}

// dispatcher builds the flow service. The transcriber is only constructed
// when needed so summarize works without speech-to-text credentials.
func (r *runtime) dispatcher(withTranscriber bool) (bot.Service, error) {
	registry := bootstrap.ProvideRegistry()
	recorder := bootstrap.ProvideRecorder(registry)

	completer, err := bootstrap.ProvideCompleter(r.cfg, recorder, r.logger)
	if err != nil {
		return nil, err
	}
	summarizerSvc := summarizer.NewService(bootstrap.ProvideSummaryConfig(r.cfg), completer, bootstrap.ProvideTokenCounter(r.cfg, r.logger), r.logger)

	var transcriber transcript.Transcriber
	if withTranscriber {
		transcriber, err = bootstrap.ProvideTranscriber(r.cfg, recorder, r.logger)
		if err != nil {
			return nil, err
		}
	}

	artifactStore, err := bootstrap.ProvideArtifactStore(r.cfg, r.logger)
	if err != nil {
		return nil, err
	}
	// one-shot commands never hold a conversation
	machine := bootstrap.ProvideMachine(r.cfg, convstore.NewMemoryStore(), r.logger)

	return bot.NewService(bootstrap.ProvideBotConfig(r.cfg), machine, summarizerSvc, transcriber, artifactStore, r.jobs, recorder, r.logger), nil
}

func cliConversationID() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli:local"
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
