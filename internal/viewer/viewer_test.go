package viewer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/station42/shopfloor/internal/hub"
	"github.com/station42/shopfloor/internal/model"
)

var t0 = time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func closedSession(employee string, start time.Time, duration int64) model.WorkSession {
	end := start.Add(time.Duration(duration) * time.Second)
	return model.WorkSession{
		EmployeeName: employee,
		StartTime:    model.NewTime(start),
		EndTime:      model.NewTimeRef(end),
		Duration:     duration,
	}
}

func testOrder(id model.ID, number string, sessions ...model.WorkSession) model.WorkOrder {
	return model.WorkOrder{
		ID:          id,
		Number:      number,
		Type:        "Repair",
		Status:      model.StatusProductive,
		Description: "gearbox overhaul",
		StartDate:   model.NewTime(t0),
		DueDate:     model.NewTime(t0.AddDate(0, 0, 7)),
		CreatedAt:   model.NewTime(t0),
		UpdatedAt:   model.NewTime(t0),
		Sessions:    sessions,
	}
}

// testServer is a stand-in for the API server: fixture-backed order and
// session endpoints plus a live hub on /ws.
type testServer struct {
	hub *hub.Hub
	srv *httptest.Server

	mu     sync.Mutex
	orders []model.WorkOrder
}

func newTestServer(t *testing.T, orders ...model.WorkOrder) *testServer {
	t.Helper()

	ts := &testServer{
		hub:    hub.New(discardLogger()),
		orders: orders,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go ts.hub.Run(ctx)

	mux := chi.NewRouter()
	mux.Get("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		_ = json.NewEncoder(w).Encode(ts.orders)
	})
	mux.Get("/api/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		defer ts.mu.Unlock()

		type feedItem struct {
			OrderID model.ID          `json:"orderId"`
			Session model.WorkSession `json:"session"`
		}
		feed := []feedItem{}
		for _, order := range ts.orders {
			for _, sess := range order.Sessions {
				feed = append(feed, feedItem{OrderID: order.ID, Session: sess})
			}
		}
		_ = json.NewEncoder(w).Encode(feed)
	})
	mux.Get("/ws", ts.hub.Subscribe)

	ts.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		ts.srv.Close()
		cancel()
	})

	return ts
}

func (ts *testServer) addOrder(order model.WorkOrder) {
	ts.mu.Lock()
	ts.orders = append([]model.WorkOrder{order}, ts.orders...)
	ts.mu.Unlock()

	ts.hub.Broadcast(hub.EventOrderCreated, order)
}

func startViewer(t *testing.T, ts *testServer) *Viewer {
	t.Helper()

	v := New(ts.srv.URL, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = v.Run(ctx) }()
	t.Cleanup(cancel)

	require.Eventually(t, func() bool {
		return v.State() == StateSynced
	}, 3*time.Second, 20*time.Millisecond)

	// The hub may still be registering the connection when the state
	// flips to synced; give it a beat so broadcasts are not lost.
	time.Sleep(100 * time.Millisecond)

	return v
}

func TestViewerResyncsOnConnect(t *testing.T) {
	ts := newTestServer(t,
		testOrder("a", "0001", closedSession("maria", t0, 100), closedSession("jonas", t0.Add(time.Hour), 50)),
		testOrder("b", "0002"),
	)

	v := startViewer(t, ts)

	orders := v.Orders()
	require.Len(t, orders, 2)

	ot, ok := v.OrderTime("0001")
	require.True(t, ok)
	assert.EqualValues(t, 150, ot.TotalSeconds)
	assert.False(t, ot.IsActive)

	// The session feed repeats what the order list already carried; the
	// dedupe rule absorbs it.
	assert.Len(t, ot.Sessions, 2)
}

func TestOrderCreatedEvent(t *testing.T) {
	ts := newTestServer(t, testOrder("a", "0001"))
	v := startViewer(t, ts)

	ts.addOrder(testOrder("b", "0002", closedSession("maria", t0, 60)))

	require.Eventually(t, func() bool {
		return len(v.Orders()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	// Newest first.
	assert.Equal(t, "0002", v.Orders()[0].Number)

	ot, ok := v.OrderTime("0002")
	require.True(t, ok)
	assert.EqualValues(t, 60, ot.TotalSeconds)
}

func TestLateJoinerConverges(t *testing.T) {
	ts := newTestServer(t, testOrder("a", "0001", closedSession("maria", t0, 100)))
	early := startViewer(t, ts)

	ts.addOrder(testOrder("b", "0002", closedSession("jonas", t0, 30)))
	require.Eventually(t, func() bool {
		return len(early.Orders()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	// A viewer joining after the event sees the same state via resync.
	late := startViewer(t, ts)

	require.Eventually(t, func() bool {
		return len(late.Orders()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	for _, number := range []string{"0001", "0002"} {
		a, ok := early.OrderTime(number)
		require.True(t, ok)
		b, ok := late.OrderTime(number)
		require.True(t, ok)
		assert.Equal(t, a.TotalSeconds, b.TotalSeconds, "order %s", number)
		assert.Equal(t, a.IsActive, b.IsActive, "order %s", number)
	}
}

func TestSessionUpdatedEventIsIdempotent(t *testing.T) {
	ts := newTestServer(t, testOrder("a", "0001"))
	v := startViewer(t, ts)

	update := model.SessionUpdate{
		OrderNumber: "0001",
		Session:     closedSession("maria", t0, 45),
	}
	ts.hub.Broadcast(hub.EventSessionUpdated, update)
	ts.hub.Broadcast(hub.EventSessionUpdated, update)

	require.Eventually(t, func() bool {
		ot, _ := v.OrderTime("0001")
		return ot.TotalSeconds > 0
	}, 3*time.Second, 20*time.Millisecond)

	// The redelivered copy added nothing.
	time.Sleep(100 * time.Millisecond)
	ot, _ := v.OrderTime("0001")
	assert.EqualValues(t, 45, ot.TotalSeconds)
	assert.Len(t, ot.Sessions, 1)
}

func TestStatusUpdateEvents(t *testing.T) {
	ts := newTestServer(t, testOrder("a", "0001"))
	v := startViewer(t, ts)

	start := model.NewTime(time.Now())
	ts.hub.Broadcast(hub.EventOrderStatusUpdate, model.StatusUpdate{
		OrderNumber:  "0001",
		EmployeeName: "maria",
		IsActive:     true,
		StartTime:    &start,
	})

	require.Eventually(t, func() bool {
		ot, _ := v.OrderTime("0001")
		return ot.IsActive
	}, 3*time.Second, 20*time.Millisecond)

	ot, _ := v.OrderTime("0001")
	assert.Equal(t, "maria", ot.EmployeeName)

	ts.hub.Broadcast(hub.EventOrderStatusUpdate, model.StatusUpdate{
		OrderNumber: "0001",
		IsActive:    false,
	})

	require.Eventually(t, func() bool {
		ot, _ := v.OrderTime("0001")
		return !ot.IsActive
	}, 3*time.Second, 20*time.Millisecond)
}

func TestApplyDuplicateStatusUpdateIsNoop(t *testing.T) {
	v := New("http://unused", discardLogger())

	start := model.NewTime(t0)
	update := model.StatusUpdate{
		OrderNumber:  "0001",
		EmployeeName: "maria",
		IsActive:     true,
		StartTime:    &start,
	}

	payload, err := json.Marshal(update)
	require.NoError(t, err)

	require.NoError(t, v.apply(hub.Event{Name: hub.EventOrderStatusUpdate, Payload: payload}))
	require.NoError(t, v.apply(hub.Event{Name: hub.EventOrderStatusUpdate, Payload: payload}))

	ot, ok := v.OrderTime("0001")
	require.True(t, ok)
	assert.True(t, ot.IsActive)
	assert.Equal(t, "maria", ot.EmployeeName)
}

func TestApplyIgnoresUnknownEvent(t *testing.T) {
	v := New("http://unused", discardLogger())

	err := v.apply(hub.Event{Name: "somethingElse", Payload: json.RawMessage(`{}`)})
	assert.NoError(t, err)
	assert.Empty(t, v.Orders())
}

func TestApplyOrdersUpdateResyncsSubset(t *testing.T) {
	v := New("http://unused", discardLogger())

	orders := []model.WorkOrder{
		testOrder("a", "0001", closedSession("maria", t0, 100)),
		testOrder("b", "0002"),
	}
	payload, err := json.Marshal(orders)
	require.NoError(t, err)

	require.NoError(t, v.apply(hub.Event{Name: hub.EventOrdersUpdate, Payload: payload}))

	assert.Len(t, v.Orders(), 2)
	ot, ok := v.OrderTime("0001")
	require.True(t, ok)
	assert.EqualValues(t, 100, ot.TotalSeconds)

	// Replaying the same event changes nothing.
	require.NoError(t, v.apply(hub.Event{Name: hub.EventOrdersUpdate, Payload: payload}))
	assert.Len(t, v.Orders(), 2)
	ot, _ = v.OrderTime("0001")
	assert.EqualValues(t, 100, ot.TotalSeconds)
}
