package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanqian/digestbot/internal/bootstrap"
	"github.com/yanqian/digestbot/internal/domain/auth"
	"github.com/yanqian/digestbot/internal/domain/bot"
	"github.com/yanqian/digestbot/internal/infra/config"
	httpiface "github.com/yanqian/digestbot/internal/interface/http"
	"github.com/yanqian/digestbot/internal/interface/matrix"
	"github.com/yanqian/digestbot/internal/interface/telegram"
)

func provideHandler(cfg *config.Config, dispatcher bot.Service, jobs bot.JobRepository, logger *slog.Logger) *httpiface.Handler {
	return httpiface.NewHandler(dispatcher, jobs, cfg.Summary.TimecodeStep, cfg.HTTP.MaxUploadBytes, logger)
}

func provideServer(cfg *config.Config, handler *httpiface.Handler, authSvc auth.Service, registry *prometheus.Registry) *http.Server {
	return httpiface.NewRouter(cfg, handler, authSvc, registry)
}

// provideTransport returns nil when bot.transport is none so only HTTP runs.
func provideTransport(cfg *config.Config, dispatcher bot.Service, logger *slog.Logger) (bootstrap.Transport, error) {
	switch cfg.Bot.Transport {
	case config.TransportTelegram:
		return telegram.NewTransport(telegram.Config{
			Token:       cfg.Bot.Telegram.Token,
			PollTimeout: cfg.Bot.Telegram.PollTimeout,
			Debug:       cfg.Bot.Telegram.Debug,
		}, dispatcher, logger)
	case config.TransportMatrix:
		return matrix.NewTransport(matrix.Config{
			Homeserver:  cfg.Bot.Matrix.Homeserver,
			UserID:      cfg.Bot.Matrix.UserID,
			AccessToken: cfg.Bot.Matrix.AccessToken,
		}, dispatcher, logger)
	default:
		logger.Info("chat transport disabled")
		return nil, nil
	}
}
