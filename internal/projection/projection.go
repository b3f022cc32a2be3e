// Package projection derives display-ready aggregates from a registry
// snapshot. Everything here is pure and recomputed on each query, never
// cached.
package projection

import (
	"time"

	"github.com/station42/shopfloor/internal/model"
)

// Stats is the dashboard headline view.
type Stats struct {
	ActiveOrders      int   `json:"activeOrders"`
	OrdersToday       int   `json:"ordersToday"`
	TotalSecondsToday int64 `json:"totalSecondsToday"`
}

// Compute derives the stats for the calendar date of now. Orders supplies
// creation dates for orders that have no sessions yet; times is a registry
// snapshot keyed by order number.
func Compute(now time.Time, orders []model.WorkOrder, times map[string]model.OrderTime) Stats {
	var stats Stats

	for _, ot := range times {
		if ot.IsActive {
			stats.ActiveOrders++
		}
		stats.TotalSecondsToday += secondsToday(now, ot)
	}

	for _, order := range orders {
		if startedToday(now, order, times[order.Number]) {
			stats.OrdersToday++
		}
	}

	return stats
}

// Elapsed is the per-order elapsed time. TotalSeconds already includes the
// ticking open session, so nothing is added on top.
func Elapsed(ot model.OrderTime) int64 {
	return ot.TotalSeconds
}

// secondsToday sums the durations of sessions started today, plus the open
// session's elapsed seconds when the ledger is active and was last active
// today.
func secondsToday(now time.Time, ot model.OrderTime) int64 {
	var total int64
	for _, sess := range ot.Sessions {
		if !sess.Open() && sameDay(now, sess.StartTime.Time) {
			total += sess.Duration
		}
	}
	if ot.IsActive && sameDay(now, ot.LastActiveDate.Time) {
		total += ot.CurrentSessionSeconds
	}
	return total
}

// startedToday reports whether the order's earliest session, or its start
// date if it has none, falls on today's calendar date.
func startedToday(now time.Time, order model.WorkOrder, ot model.OrderTime) bool {
	var earliest time.Time
	for _, sess := range ot.Sessions {
		if earliest.IsZero() || sess.StartTime.Before(earliest) {
			earliest = sess.StartTime.Time
		}
	}
	if earliest.IsZero() {
		for _, sess := range order.Sessions {
			if earliest.IsZero() || sess.StartTime.Before(earliest) {
				earliest = sess.StartTime.Time
			}
		}
	}
	if earliest.IsZero() {
		earliest = order.CreatedAt.Time
	}
	return sameDay(now, earliest)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
