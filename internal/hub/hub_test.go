package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.Subscribe))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(frame, &ev))
	return ev
}

func TestBroadcastReachesAllViewers(t *testing.T) {
	h, srv := newTestHub(t)

	first := dial(t, srv)
	second := dial(t, srv)

	// Give the hub a beat to register both connections.
	time.Sleep(100 * time.Millisecond)

	h.Broadcast(EventOrderCreated, map[string]string{"number": "0042"})

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventOrderCreated, ev.Name)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		assert.Equal(t, "0042", payload["number"])
	}
}

func TestBroadcastPreservesOrder(t *testing.T) {
	h, srv := newTestHub(t)

	conn := dial(t, srv)
	time.Sleep(100 * time.Millisecond)

	h.Broadcast(EventOrderStatusUpdate, map[string]bool{"isActive": true})
	h.Broadcast(EventOrderStatusUpdate, map[string]bool{"isActive": false})

	assert.Equal(t, EventOrderStatusUpdate, readEvent(t, conn).Name)

	ev := readEvent(t, conn)
	var payload map[string]bool
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.False(t, payload["isActive"])
}

func TestBroadcastWithNoViewers(t *testing.T) {
	h, _ := newTestHub(t)

	// Must not block or panic.
	h.Broadcast(EventOrdersUpdate, []string{})
}

func TestViewerDisconnectUnregisters(t *testing.T) {
	h, srv := newTestHub(t)

	conn := dial(t, srv)
	keeper := dial(t, srv)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, conn.Close())
	time.Sleep(100 * time.Millisecond)

	// The surviving viewer still gets events after the other one left.
	h.Broadcast(EventSessionUpdated, map[string]string{"orderNumber": "0001"})
	assert.Equal(t, EventSessionUpdated, readEvent(t, keeper).Name)
}
