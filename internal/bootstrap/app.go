package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/digestbot/internal/infra/config"
)

// Transport is a long-running chat integration.
type Transport interface {
	Name() string
	Run(ctx context.Context) error
}

// App encapsulates the HTTP server and chat transport lifecycle.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	transport Transport
}

type componentExit struct {
	name string
	err  error
}

// NewApp is used by Wire to build the runnable app. transport may be nil.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, transport Transport) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, transport: transport}
}

// Run starts the enabled surfaces and blocks until shutdown or the first failure.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan componentExit, 2)
	running := 0

	if a.cfg.HTTP.Enabled && a.server != nil {
		running++
		go func() {
			a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
			err := a.server.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			errCh <- componentExit{name: "http server", err: err}
		}()
	}

	if a.transport != nil {
		running++
		go func() {
			a.logger.Info("chat transport starting", "transport", a.transport.Name())
			err := a.transport.Run(ctx)
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			errCh <- componentExit{name: a.transport.Name() + " transport", err: err}
		}()
	}

	if running == 0 {
		return errors.New("nothing to run: http is disabled and bot.transport is none")
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case exit := <-errCh:
		running--
		runErr = exit.err
		if runErr == nil && ctx.Err() == nil {
			runErr = fmt.Errorf("%s stopped unexpectedly", exit.name)
		}
		if runErr != nil {
			a.logger.Error("component stopped", "component", exit.name, "error", runErr)
		}
	}

	cancel()
	if a.cfg.HTTP.Enabled && a.server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
	}
	for ; running > 0; running-- {
		if exit := <-errCh; exit.err != nil && runErr == nil {
			runErr = exit.err
		}
	}
	return runErr
}
