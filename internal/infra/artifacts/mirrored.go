package artifacts

import (
	"context"
	"log/slog"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

// MirroredStore writes to a primary store and copies every artifact to a mirror.
// Mirror failures are logged and never fail the write.
type MirroredStore struct {
	primary bot.ArtifactStore
	mirror  bot.ArtifactStore
	logger  *slog.Logger
}

// NewMirroredStore wraps primary. A nil mirror makes it a pass-through.
func NewMirroredStore(primary, mirror bot.ArtifactStore, logger *slog.Logger) *MirroredStore {
	return &MirroredStore{
		primary: primary,
		mirror:  mirror,
		logger:  logger.With("component", "artifacts.mirrored"),
	}
}

func (s *MirroredStore) Put(ctx context.Context, key string, data []byte, mimeType string) (bot.Artifact, error) {
	artifact, err := s.primary.Put(ctx, key, data, mimeType)
	if err != nil {
		return bot.Artifact{}, err
	}
	if s.mirror == nil {
		return artifact, nil
	}
	if _, err := s.mirror.Put(ctx, artifact.Key, data, artifact.MimeType); err != nil {
		s.logger.Warn("artifact mirror failed", "key", artifact.Key, "error", err)
	}
	return artifact, nil
}

var _ bot.ArtifactStore = (*MirroredStore)(nil)
