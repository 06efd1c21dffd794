package artifacts

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

// LocalStore writes artifacts below a root directory, overwriting on every Put.
type LocalStore struct {
	root string
}

// NewLocalStore constructs a store rooted at root. The directory is created lazily.
func NewLocalStore(root string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the absolute storage root.
func (s *LocalStore) Root() string {
	return s.root
}

// Put implements bot.ArtifactStore.
func (s *LocalStore) Put(_ context.Context, key string, data []byte, mimeType string) (bot.Artifact, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return bot.Artifact{}, err
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return bot.Artifact{}, fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return bot.Artifact{}, fmt.Errorf("write artifact %s: %w", clean, err)
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(clean))
	}
	hash := md5.Sum(data)
	return bot.Artifact{
		Key:      clean,
		Path:     full,
		Size:     int64(len(data)),
		MimeType: mimeType,
		ETag:     hex.EncodeToString(hash[:]),
	}, nil
}

// CleanKey normalizes key to a relative slash path that cannot leave the root.
func CleanKey(key string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(strings.TrimSpace(key), "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("artifact key %q is empty", key)
	}
	return clean, nil
}

var _ bot.ArtifactStore = (*LocalStore)(nil)
