// Package registry holds the process-wide map from order number to session
// ledger and drives the once-per-second clock that advances all active
// ledgers. It is the authoritative in-memory view of what is happening on
// the floor right now.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/station42/shopfloor/internal/ledger"
	"github.com/station42/shopfloor/internal/model"
)

const tickInterval = time.Second

// OrderState is the resync input for one order: its closed sessions from the
// store plus at most one currently-active session descriptor.
type OrderState struct {
	Number   string
	Sessions []model.WorkSession
	Active   *model.WorkSession
}

// Registry maps order numbers to ledgers. Entries are created lazily on
// first reference and survive for the life of the process. A single mutex
// serializes the ticker and all event handlers, which keeps every mutation
// on one logical timeline.
type Registry struct {
	logger *slog.Logger

	mu      sync.Mutex
	ledgers map[string]*ledger.Ledger
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger.With("module", "registry"),
		ledgers: make(map[string]*ledger.Ledger),
	}
}

// SetOrders is a full resync: every entry is rebuilt from scratch from the
// authoritative store. Used at startup and after a reconnect.
func (r *Registry) SetOrders(now time.Time, orders []OrderState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ledgers = make(map[string]*ledger.Ledger, len(orders))
	for _, order := range orders {
		r.resyncLocked(now, order)
	}

	r.logger.Debug("full resync", "orders", len(orders))
}

// ResyncOrder rebuilds a single order's ledger from the store, leaving the
// rest of the registry alone. Backs the ordersUpdate subset resync.
func (r *Registry) ResyncOrder(now time.Time, order OrderState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resyncLocked(now, order)
}

func (r *Registry) resyncLocked(now time.Time, order OrderState) {
	led := r.ledgers[order.Number]
	if led == nil {
		led = ledger.New()
		r.ledgers[order.Number] = led
	}
	led.Resync(now, order.Sessions, order.Active)
}

// StartSession opens a session on the order's ledger, creating the ledger if
// this is the first time the order is observed.
func (r *Registry) StartSession(number, employee string, now time.Time) (model.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledgerLocked(number).Start(employee, now)
}

// StopSession closes the order's open session, if any.
func (r *Registry) StopSession(number string, now time.Time) (model.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledgerLocked(number).Stop(now)
}

// MergeSession applies the idempotent session insert. Returns whether the
// session was new to this registry.
func (r *Registry) MergeSession(number string, sess model.WorkSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := r.ledgerLocked(number).Merge(sess)
	if !merged {
		r.logger.Debug("discarded duplicate session",
			"order", number,
			"employee", sess.EmployeeName,
			"start", sess.StartTime)
	}
	return merged
}

// OrderTime returns a copy of one order's live-timer state.
func (r *Registry) OrderTime(number string) (model.OrderTime, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	led, ok := r.ledgers[number]
	if !ok {
		return model.OrderTime{}, false
	}
	return led.State(), true
}

// Snapshot returns a copy of every ledger's state, keyed by order number.
func (r *Registry) Snapshot() map[string]model.OrderTime {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := make(map[string]model.OrderTime, len(r.ledgers))
	for number, led := range r.ledgers {
		snap[number] = led.State()
	}
	return snap
}

// Numbers returns the known order numbers in sorted order.
func (r *Registry) Numbers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	numbers := maps.Keys(r.ledgers)
	slices.Sort(numbers)
	return numbers
}

// Tick advances every active ledger to now.
func (r *Registry) Tick(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, led := range r.ledgers {
		led.Tick(now)
	}
}

// Run drives the clock until ctx is cancelled. This loop is the only source
// of continuous time advancement; events only mark session boundaries.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Tick(now)
		}
	}
}

func (r *Registry) ledgerLocked(number string) *ledger.Ledger {
	led, ok := r.ledgers[number]
	if !ok {
		led = ledger.New()
		r.ledgers[number] = led
	}
	return led
}
