package main

import (
	"context"
	"time"

	"github.com/station42/shopfloor/internal/database"
	"github.com/station42/shopfloor/internal/hub"
	"github.com/station42/shopfloor/internal/model"
	"github.com/station42/shopfloor/internal/registry"
)

// rehydrate rebuilds the registry from the order store at startup. The store
// only holds closed sessions, so everything comes up idle; live sessions are
// marked by start/stop requests after that.
func (app *application) rehydrate(ctx context.Context) error {
	dao := database.NewOrderDAO(app.logger, app.db)

	orders, err := dao.List(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	states := make([]registry.OrderState, 0, len(orders))
	for _, order := range orders {
		states = append(states, orderState(order))
	}
	app.reg.SetOrders(now, states)

	app.logger.Info("registry rehydrated", "orders", len(orders))
	return nil
}

// resyncLoop periodically re-reads the store and pushes an ordersUpdate so
// viewers can correct any drift without reconnecting. Open sessions known to
// the registry are preserved across the rebuild.
func (app *application) resyncLoop(ctx context.Context) {
	ticker := time.NewTicker(app.config.resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.resyncFromStore(ctx); err != nil {
				app.logger.Warn("periodic resync failed", "error", err)
			}
		}
	}
}

func (app *application) resyncFromStore(ctx context.Context) error {
	dao := database.NewOrderDAO(app.logger, app.db)

	orders, err := dao.List(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	wires := make([]model.WorkOrder, 0, len(orders))
	for _, order := range orders {
		wire := app.wireOrder(now, order)
		app.reg.ResyncOrder(now, orderState(wire))
		wires = append(wires, wire)
	}

	app.hub.Broadcast(hub.EventOrdersUpdate, wires)

	app.logger.Debug("periodic resync", "orders", len(orders))
	return nil
}
