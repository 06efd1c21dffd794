package convstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/digestbot/internal/domain/conversation"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	require.False(t, ok)

	session := conversation.Session{ConversationID: "telegram:1", State: conversation.StateAwaitingText, Flow: conversation.FlowSummarize}
	require.NoError(t, store.Save(ctx, session, 0))

	got, ok, err := store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, session, got)

	require.NoError(t, store.Delete(ctx, "telegram:1"))
	_, ok, err = store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, conversation.Session{ConversationID: "c"}, time.Millisecond))

	require.Eventually(t, func() bool {
		_, ok, _ := store.Get(ctx, "c")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
