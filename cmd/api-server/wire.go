package main

import (
	"time"

	"github.com/station42/shopfloor/internal/model"
	"github.com/station42/shopfloor/internal/registry"
)

// wireOrder fills the derived parts of an order's wire shape: the due status
// is recomputed at read time so it never goes stale, and the registry
// contributes the in-flight session, if any.
func (app *application) wireOrder(now time.Time, order model.WorkOrder) model.WorkOrder {
	order.DueStatus = model.DueStatusFor(now, order.DueDate.Time)

	if order.Sessions == nil {
		order.Sessions = []model.WorkSession{}
	}

	if ot, ok := app.reg.OrderTime(order.Number); ok && ot.IsActive {
		if open, ok := ot.OpenSession(); ok {
			open.Duration = ot.CurrentSessionSeconds
			order.ActiveSessions = []model.WorkSession{open}
		}
	}

	return order
}

func orderState(order model.WorkOrder) registry.OrderState {
	state := registry.OrderState{Number: order.Number, Sessions: order.Sessions}
	if len(order.ActiveSessions) > 0 {
		active := order.ActiveSessions[0]
		state.Active = &active
	}
	return state
}
