package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (app *application) routes() http.Handler {
	mux := chi.NewRouter()

	mux.NotFound(app.notFound)
	mux.MethodNotAllowed(app.methodNotAllowed)

	mux.Use(app.traceID)
	mux.Use(app.recoverPanic)

	mux.Use(app.CORS)

	mux.Group(func(r chi.Router) {
		r.Use(app.logAccess)

		r.Get("/api/v1/status", app.handleStatus)

		r.Get("/api/v1/orders", app.handleListOrders)
		r.Post("/api/v1/orders", app.handleCreateOrder)
		r.Get("/api/v1/orders/{orderId}", app.handleGetOrder)
		r.Post("/api/v1/orders/{orderId}/start", app.handleStartSession)
		r.Post("/api/v1/orders/{orderId}/stop", app.handleStopSession)

		r.Get("/api/v1/sessions", app.handleListSessions)
		r.Post("/api/v1/sessions", app.handleAppendSession)

		r.Get("/api/v1/stats", app.handleStats)
	})

	// Outside logAccess: the metrics writer would hide the Hijacker the
	// websocket upgrade needs.
	mux.Get("/ws", app.handleSubscribe)

	app.logger.Debug("routes configured", "routes", chiRoutesToStrings(mux.Routes()))

	return mux
}

func chiRoutesToStrings(routes []chi.Route) []string {
	parsedRoutes := make([]string, 0, len(routes))
	for _, route := range routes {
		parsedRoutes = append(parsedRoutes, route.Pattern)
	}
	return parsedRoutes
}
