package reload

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/devkit/internal/logging"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestHubBroadcastsReload(t *testing.T) {
	hub := NewHub(nil, logging.NewNopLogger())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(server), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"app://obsidian.md"}},
	})
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(Message{Type: TypeReload, Plugin: "sample-plugin"})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, TypeReload, msg.Type)
	assert.Equal(t, "sample-plugin", msg.Plugin)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestHubAcceptsLocalOriginOnAnyPort(t *testing.T) {
	for _, origin := range []string{"http://localhost:5173", "http://127.0.0.1:8080"} {
		t.Run(origin, func(t *testing.T) {
			hub := NewHub(nil, logging.NewNopLogger())
			server := httptest.NewServer(hub)
			defer server.Close()
			defer hub.Shutdown()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			conn, _, err := websocket.Dial(ctx, wsURL(server), &websocket.DialOptions{
				HTTPHeader: http.Header{"Origin": []string{origin}},
			})
			require.NoError(t, err)
			defer conn.CloseNow()

			require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil, logging.NewNopLogger())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(server), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"https://evil.example"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Clients())
}

func TestHubClientDisconnect(t *testing.T) {
	hub := NewHub(nil, logging.NewNopLogger())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(server), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubShutdown(t *testing.T) {
	hub := NewHub(nil, logging.NewNopLogger())
	hub.Shutdown()
	hub.Shutdown()

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeListenerStopsWithContext(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hub := NewHub(nil, logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.ServeListener(ctx, listener) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
