package artifacts

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

// MemoryStore keeps artifacts in memory. Useful for tests and as a no-op mirror.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]storedBlob
}

type storedBlob struct {
	data     []byte
	mimeType string
	etag     string
}

// NewMemoryStore constructs storage.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]storedBlob)}
}

// Put stores the blob and returns metadata. Path is a memory:// reference.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, mimeType string) (bot.Artifact, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return bot.Artifact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hash := md5.Sum(data)
	etag := hex.EncodeToString(hash[:])
	s.blobs[clean] = storedBlob{data: append([]byte(nil), data...), mimeType: mimeType, etag: etag}
	return bot.Artifact{
		Key:      clean,
		Path:     "memory://" + clean,
		Size:     int64(len(data)),
		MimeType: mimeType,
		ETag:     etag,
	}, nil
}

// Get returns a copy of the stored blob.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", key)
	}
	return append([]byte(nil), blob.data...), nil
}

var _ bot.ArtifactStore = (*MemoryStore)(nil)
