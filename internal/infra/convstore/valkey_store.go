package convstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/digestbot/internal/domain/conversation"
)

// ValkeyStore persists conversation sessions using a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "digestbot"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Get(ctx context.Context, conversationID string) (conversation.Session, bool, error) {
	cmd := s.client.B().Get().Key(s.sessionKey(conversationID)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return conversation.Session{}, false, nil
		}
		return conversation.Session{}, false, err
	}
	var session conversation.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return conversation.Session{}, false, err
	}
	return session, true, nil
}

func (s *ValkeyStore) Save(ctx context.Context, session conversation.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.sessionKey(session.ConversationID)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) Delete(ctx context.Context, conversationID string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.sessionKey(conversationID)).Build()).Error()
}

func (s *ValkeyStore) sessionKey(conversationID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, conversationID)
}

var _ conversation.Store = (*ValkeyStore)(nil)
