// Package viewer is the client half of the synchronization protocol: it
// keeps a local registry consistent with the server by resyncing from the
// order store on every (re)connect and applying incremental push events in
// between.
package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/station42/shopfloor/internal/hub"
	"github.com/station42/shopfloor/internal/model"
	"github.com/station42/shopfloor/internal/registry"
)

// State is the connection state of a viewer.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSynced       State = "synced"
	StateDegraded     State = "degraded"
)

const (
	_initialBackoff = time.Second
	_maxBackoff     = 30 * time.Second
	_connectTimeout = 10 * time.Second
)

// Viewer maintains its own order set and live-timer registry, fed by the
// server's HTTP API (resync) and websocket events (deltas). Retries are
// unbounded; a lost transport is never fatal.
type Viewer struct {
	logger  *slog.Logger
	baseURL string
	httpc   *http.Client
	reg     *registry.Registry

	mu         sync.RWMutex
	state      State
	orders     []model.WorkOrder // newest first
	idToNumber map[model.ID]string
}

func New(baseURL string, logger *slog.Logger) *Viewer {
	logger = logger.With("module", "viewer")
	return &Viewer{
		logger:     logger,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpc:      &http.Client{Timeout: _connectTimeout},
		reg:        registry.New(logger),
		state:      StateDisconnected,
		idToNumber: make(map[model.ID]string),
	}
}

// Run connects, resyncs and applies events until ctx is cancelled,
// reconnecting with capped exponential backoff after any transport error.
func (v *Viewer) Run(ctx context.Context) error {
	go v.reg.Run(ctx)

	backoff := _initialBackoff
	for {
		if err := ctx.Err(); err != nil {
			v.setState(StateDisconnected)
			return err
		}

		v.setState(StateConnecting)

		conn, err := v.dial(ctx)
		if err == nil {
			err = v.resync(ctx)
			if err != nil {
				_ = conn.Close()
			}
		}
		if err != nil {
			v.setState(StateDegraded)
			v.logger.Warn("connect failed", "error", err, "retryIn", backoff)
			if !sleep(ctx, backoff) {
				v.setState(StateDisconnected)
				return ctx.Err()
			}
			backoff = min(backoff*2, _maxBackoff)
			continue
		}

		v.setState(StateSynced)
		backoff = _initialBackoff

		err = v.readLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			v.setState(StateDisconnected)
			return ctx.Err()
		}

		v.setState(StateDegraded)
		v.logger.Warn("connection lost", "error", err, "retryIn", backoff)
		if !sleep(ctx, backoff) {
			v.setState(StateDisconnected)
			return ctx.Err()
		}
		backoff = min(backoff*2, _maxBackoff)
	}
}

// State returns the current connection state.
func (v *Viewer) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Orders returns a copy of the known orders, newest first.
func (v *Viewer) Orders() []model.WorkOrder {
	v.mu.RLock()
	defer v.mu.RUnlock()

	orders := make([]model.WorkOrder, len(v.orders))
	copy(orders, v.orders)
	return orders
}

// Snapshot returns the live-timer state of every known order.
func (v *Viewer) Snapshot() map[string]model.OrderTime {
	return v.reg.Snapshot()
}

// OrderTime returns one order's live-timer state.
func (v *Viewer) OrderTime(number string) (model.OrderTime, bool) {
	return v.reg.OrderTime(number)
}

func (v *Viewer) setState(s State) {
	v.mu.Lock()
	changed := v.state != s
	v.state = s
	v.mu.Unlock()

	if changed {
		v.logger.Debug("state change", "state", s)
	}
}

func (v *Viewer) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := strings.Replace(v.baseURL, "http", "ws", 1) + "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: _connectTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return conn, nil
}

// resync replaces all local state from the authoritative store: the full
// order list seeds the registry, then the cross-order session feed is merged
// on top. Everything the feed repeats is absorbed by the dedupe rule.
func (v *Viewer) resync(ctx context.Context) error {
	var orders []model.WorkOrder
	if err := v.getJSON(ctx, "/api/v1/orders", &orders); err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}

	now := time.Now()
	states := make([]registry.OrderState, 0, len(orders))
	idToNumber := make(map[model.ID]string, len(orders))
	for _, order := range orders {
		idToNumber[order.ID] = order.Number

		states = append(states, orderState(order))
	}
	v.reg.SetOrders(now, states)

	var feed []struct {
		OrderID model.ID          `json:"orderId"`
		Session model.WorkSession `json:"session"`
	}
	if err := v.getJSON(ctx, "/api/v1/sessions", &feed); err != nil {
		return fmt.Errorf("fetch sessions: %w", err)
	}
	for _, item := range feed {
		number, ok := idToNumber[item.OrderID]
		if !ok {
			continue
		}
		v.reg.MergeSession(number, item.Session)
	}

	v.mu.Lock()
	v.orders = orders
	v.idToNumber = idToNumber
	v.mu.Unlock()

	v.logger.Info("resynced", "orders", len(orders), "sessions", len(feed))
	return nil
}

func (v *Viewer) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event hub.Event
		if err := json.Unmarshal(frame, &event); err != nil {
			v.logger.Warn("malformed event", "error", err)
			continue
		}

		if err := v.apply(event); err != nil {
			v.logger.Warn("event not applied", "event", event.Name, "error", err)
		}
	}
}

// apply dispatches one push event. Every branch is idempotent: replays and
// duplicate deliveries leave the state unchanged.
func (v *Viewer) apply(event hub.Event) error {
	switch event.Name {
	case hub.EventOrderCreated:
		var order model.WorkOrder
		if err := json.Unmarshal(event.Payload, &order); err != nil {
			return err
		}
		v.addOrder(order)

	case hub.EventOrderStatusUpdate:
		var update model.StatusUpdate
		if err := json.Unmarshal(event.Payload, &update); err != nil {
			return err
		}
		v.applyStatusUpdate(update)

	case hub.EventSessionUpdated:
		var update model.SessionUpdate
		if err := json.Unmarshal(event.Payload, &update); err != nil {
			return err
		}
		v.reg.MergeSession(update.OrderNumber, update.Session)

	case hub.EventOrdersUpdate:
		var orders []model.WorkOrder
		if err := json.Unmarshal(event.Payload, &orders); err != nil {
			return err
		}
		v.applyOrdersUpdate(orders)

	default:
		v.logger.Debug("ignoring unknown event", "event", event.Name)
	}
	return nil
}

func (v *Viewer) addOrder(order model.WorkOrder) {
	if !v.trackOrder(order) {
		return
	}
	v.reg.ResyncOrder(time.Now(), orderState(order))
}

// trackOrder adds the order to the local order set, deduped by number.
// Returns whether the order was new.
func (v *Viewer) trackOrder(order model.WorkOrder) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, known := range v.orders {
		if known.Number == order.Number {
			return false
		}
	}
	v.orders = append([]model.WorkOrder{order}, v.orders...)
	v.idToNumber[order.ID] = order.Number
	return true
}

// applyStatusUpdate starts or stops a session only when the requested
// transition differs from the current state, which guards against duplicate
// delivery.
func (v *Viewer) applyStatusUpdate(update model.StatusUpdate) {
	now := time.Now()

	current, ok := v.reg.OrderTime(update.OrderNumber)
	if ok && current.IsActive == update.IsActive {
		return
	}

	if update.IsActive {
		start := now
		if update.StartTime != nil {
			start = update.StartTime.Time
		}
		if _, err := v.reg.StartSession(update.OrderNumber, update.EmployeeName, start); err != nil {
			v.logger.Debug("ignored duplicate start", "order", update.OrderNumber)
		}
		return
	}

	if _, err := v.reg.StopSession(update.OrderNumber, now); err != nil {
		v.logger.Debug("ignored duplicate stop", "order", update.OrderNumber)
	}
}

// applyOrdersUpdate is a resync limited to the orders carried by the event.
func (v *Viewer) applyOrdersUpdate(orders []model.WorkOrder) {
	now := time.Now()
	for _, order := range orders {
		v.trackOrder(order)
		v.reg.ResyncOrder(now, orderState(order))
	}
}

func orderState(order model.WorkOrder) registry.OrderState {
	state := registry.OrderState{Number: order.Number, Sessions: order.Sessions}
	if len(order.ActiveSessions) > 0 {
		active := order.ActiveSessions[0]
		state.Active = &active
	}
	return state
}

func (v *Viewer) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := v.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
