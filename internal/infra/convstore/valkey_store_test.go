package convstore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/digestbot/internal/domain/conversation"
)

func TestValkeyStoreCommands(t *testing.T) {
	t.Parallel()
	server := newRespServer(t)
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{server.addr},
		ForceSingleClient: true,
		DisableCache:      true,
		AlwaysRESP2:       true,
		ClientSetInfo:     valkey.DisableClientSetInfo,
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	store := NewValkeyStore(client, "")
	const key = "digestbot:session:telegram:1"

	_, ok, err := store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	require.False(t, ok)

	session := conversation.Session{ConversationID: "telegram:1", State: conversation.StateAwaitingAudio, Flow: conversation.FlowTranscribe}
	require.NoError(t, store.Save(ctx, session, 200*time.Millisecond))
	require.NoError(t, store.Save(ctx, session, 0))

	got, ok, err := store.Get(ctx, "telegram:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, session, got)

	require.NoError(t, store.Delete(ctx, "telegram:1"))

	commands := server.commands()
	require.Len(t, commands, 5)
	require.Equal(t, []string{"GET", key}, commands[0])
	require.Equal(t, "SET", commands[1][0])
	require.Equal(t, key, commands[1][1])
	require.Equal(t, []string{"EX", "1"}, commands[1][3:])
	require.Len(t, commands[2], 3)
	require.Equal(t, []string{"GET", key}, commands[3])
	require.Equal(t, []string{"DEL", key}, commands[4])
}

func TestValkeyStorePrefix(t *testing.T) {
	t.Parallel()
	store := NewValkeyStore(nil, "bot")
	require.Equal(t, "bot:session:matrix:!room", store.sessionKey("matrix:!room"))
}

// respServer speaks enough RESP2 for GET, SET and DEL against an in-memory map.
type respServer struct {
	addr string

	mu   sync.Mutex
	data map[string]string
	seen [][]string
}

func newRespServer(t *testing.T) *respServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &respServer{addr: ln.Addr().String(), data: make(map[string]string)}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *respServer) commands() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.seen...)
}

func (s *respServer) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, s.reply(args)); err != nil {
			return
		}
	}
}

func (s *respServer) reply(args []string) string {
	name := strings.ToUpper(args[0])
	switch name {
	case "HELLO":
		return "-ERR unknown command 'HELLO'\r\n"
	case "PING":
		return "+PONG\r\n"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, args)
	switch name {
	case "GET":
		value, ok := s.data[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(value), value)
	case "SET":
		s.data[args[1]] = args[2]
		return "+OK\r\n"
	case "DEL":
		delete(s.data, args[1])
		return ":1\r\n"
	default:
		return "+OK\r\n"
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("unexpected frame %q", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		header, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(header[1:]))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}
