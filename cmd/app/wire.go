//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/digestbot/internal/bootstrap"
	"github.com/yanqian/digestbot/internal/domain/auth"
	"github.com/yanqian/digestbot/internal/domain/bot"
	"github.com/yanqian/digestbot/internal/domain/summarizer"
	"github.com/yanqian/digestbot/internal/infra/config"
	"github.com/yanqian/digestbot/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		bootstrap.ProvideRegistry,
		bootstrap.ProvideRecorder,
		bootstrap.ProvideSummaryConfig,
		bootstrap.ProvideBotConfig,
		bootstrap.ProvideAuthConfig,
		bootstrap.ProvideCompleter,
		bootstrap.ProvideTokenCounter,
		bootstrap.ProvideTranscriber,
		bootstrap.ProvideArtifactStore,
		bootstrap.ProvideConversationStore,
		bootstrap.ProvideMachine,
		bootstrap.ProvideJobRepository,
		summarizer.NewService,
		bot.NewService,
		auth.NewService,
		provideHandler,
		provideServer,
		provideTransport,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
