package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/station42/shopfloor/internal/ctxstore"
	"github.com/station42/shopfloor/internal/database"
	"github.com/station42/shopfloor/internal/hub"
	"github.com/station42/shopfloor/internal/model"
	"github.com/station42/shopfloor/internal/projection"
	"github.com/station42/shopfloor/internal/request"
	"github.com/station42/shopfloor/internal/response"
	"github.com/station42/shopfloor/internal/validator"
)

// Handle Status
// @Summary Server Status
// @Description Check if the server is up and running
// @Router /status [get]
func (app *application) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := response.JSON(w, http.StatusOK, response.JSONObject{"status": "OK"}); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle List Orders
// @Summary List Orders
// @Description All orders, newest first, with sessions and live activity
// @Router /orders [get]
func (app *application) handleListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := app.logger.With(
		_traceIDKey.String(), ctxstore.MustFrom[string](ctx, _traceIDKey),
	)

	dao := database.NewOrderDAO(logger, app.db)

	orders, err := dao.List(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	now := time.Now()
	for i := range orders {
		orders[i] = app.wireOrder(now, orders[i])
	}

	if err := response.JSON(w, http.StatusOK, orders); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Create Order
// @Summary Create Order
// @Description Create a new work order with a fresh 4-digit number
// @Router /orders [post]
func (app *application) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := app.logger.With(
		_traceIDKey.String(), ctxstore.MustFrom[string](ctx, _traceIDKey),
	)

	var input requestCreateOrder
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	validateCreateOrder(&v, input)

	startDate, errStart := model.ParseTime(input.StartDate)
	dueDate, errDue := model.ParseTime(input.DueDate)
	v.CheckField(errStart == nil, "startDate", "must be a valid date")
	v.CheckField(errDue == nil, "dueDate", "must be a valid date")
	if errStart == nil && errDue == nil {
		v.CheckField(!dueDate.Before(startDate.Time), "dueDate", "cannot be before the start date")
	}

	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	dao := database.NewOrderDAO(logger, app.db)

	order, err := dao.Insert(ctx, database.InsertOrderDTO{
		Type:        input.Type,
		Status:      model.NormalizeStatus(input.Status),
		Description: input.Description,
		StartDate:   startDate.Time,
		DueDate:     dueDate.Time,
	})
	if err != nil {
		if errors.Is(err, model.ErrExists) {
			app.errorMessage(w, r, http.StatusConflict, err.Error(), nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	now := time.Now()
	app.reg.ResyncOrder(now, orderState(order))
	wire := app.wireOrder(now, order)

	app.hub.Broadcast(hub.EventOrderCreated, wire)

	logger.Info("order created", "order", order.Number)

	if err := response.JSON(w, http.StatusCreated, wire); err != nil {
		app.serverError(w, r, err)
	}
}

type requestCreateOrder struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	DueDate     string `json:"dueDate"`
}

// Handle Get Order
// @Summary Get Order
// @Description One order by id
// @Router /orders/{orderId} [get]
func (app *application) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := app.logger.With(
		_traceIDKey.String(), ctxstore.MustFrom[string](ctx, _traceIDKey),
	)

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	dao := database.NewOrderDAO(logger, app.db)

	order, err := dao.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, err.Error(), nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, app.wireOrder(time.Now(), order)); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Start Session
// @Summary Start Session
// @Description Open a work session on an order
// @Router /orders/{orderId}/start [post]
func (app *application) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := app.logger.With(
		_traceIDKey.String(), ctxstore.MustFrom[string](ctx, _traceIDKey),
	)

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	var input requestStartSession
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	v.CheckField(validator.NotBlank(input.EmployeeName), "employeeName", "cannot be blank")
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	dao := database.NewOrderDAO(logger, app.db)

	order, err := dao.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, err.Error(), nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	sess, err := app.reg.StartSession(order.Number, input.EmployeeName, time.Now())
	if err != nil {
		if !errors.Is(err, model.ErrAlreadyActive) {
			app.serverError(w, r, err)
			return
		}

		// Duplicate start: ignore, the order is already being worked.
		logger.Debug("ignored duplicate start", "order", order.Number)
		if err := response.JSON(w, http.StatusOK, response.JSONObject{
			"orderNumber":   order.Number,
			"alreadyActive": true,
		}); err != nil {
			app.serverError(w, r, err)
		}
		return
	}

	app.hub.Broadcast(hub.EventOrderStatusUpdate, model.StatusUpdate{
		OrderNumber:  order.Number,
		EmployeeName: input.EmployeeName,
		IsActive:     true,
		StartTime:    &sess.StartTime,
	})

	logger.Info("session started", "order", order.Number, "employee", input.EmployeeName)

	if err := response.JSON(w, http.StatusOK, response.JSONObject{
		"orderNumber": order.Number,
		"session":     sess,
	}); err != nil {
		app.serverError(w, r, err)
	}
}

type requestStartSession struct {
	EmployeeName string `json:"employeeName"`
}

// Handle Stop Session
// @Summary Stop Session
// @Description Close an order's open work session and persist it
// @Router /orders/{orderId}/stop [post]
func (app *application) handleStopSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := app.logger.With(
		_traceIDKey.String(), ctxstore.MustFrom[string](ctx, _traceIDKey),
	)

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	dao := database.NewOrderDAO(logger, app.db)

	order, err := dao.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, err.Error(), nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	sess, err := app.reg.StopSession(order.Number, time.Now())
	if err != nil {
		if !errors.Is(err, model.ErrNoActiveSession) {
			app.serverError(w, r, err)
			return
		}

		// Nothing was running: ignore, duplicate stops are expected.
		logger.Debug("ignored duplicate stop", "order", order.Number)
		if err := response.JSON(w, http.StatusOK, response.JSONObject{
			"orderNumber": order.Number,
			"active":      false,
		}); err != nil {
			app.serverError(w, r, err)
		}
		return
	}

	sessionDAO := database.NewSessionDAO(logger, app.db)
	if err := sessionDAO.Append(ctx, order.ID, sess); err != nil {
		app.serverError(w, r, err)
		return
	}

	app.hub.Broadcast(hub.EventOrderStatusUpdate, model.StatusUpdate{
		OrderNumber:  order.Number,
		EmployeeName: sess.EmployeeName,
		IsActive:     false,
	})
	app.hub.Broadcast(hub.EventSessionUpdated, model.SessionUpdate{
		OrderNumber: order.Number,
		Session:     sess,
	})

	logger.Info("session stopped",
		"order", order.Number,
		"employee", sess.EmployeeName,
		"duration", sess.Duration)

	if err := response.JSON(w, http.StatusOK, response.JSONObject{
		"orderNumber": order.Number,
		"session":     sess,
	}); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle List Sessions
// @Summary List Sessions
// @Description Every stored session across all orders, the resync feed
// @Router /sessions [get]
func (app *application) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := app.logger.With(
		_traceIDKey.String(), ctxstore.MustFrom[string](ctx, _traceIDKey),
	)

	dao := database.NewSessionDAO(logger, app.db)

	sessions, err := dao.ListAcrossOrders(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, sessions); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Append Session
// @Summary Append Session
// @Description Record a closed session reported by an external client
// @Router /sessions [post]
func (app *application) handleAppendSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := app.logger.With(
		_traceIDKey.String(), ctxstore.MustFrom[string](ctx, _traceIDKey),
	)

	var input requestAppendSession
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	validateAppendSession(&v, input)
	if v.HasErrors() {
		app.failedValidation(w, r, v)
		return
	}

	dao := database.NewOrderDAO(logger, app.db)

	order, err := dao.Get(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, err.Error(), nil)
			return
		}

		app.serverError(w, r, err)
		return
	}

	sessionDAO := database.NewSessionDAO(logger, app.db)
	if err := sessionDAO.Append(ctx, order.ID, input.Session); err != nil {
		app.serverError(w, r, err)
		return
	}

	app.reg.MergeSession(order.Number, input.Session)

	app.hub.Broadcast(hub.EventSessionUpdated, model.SessionUpdate{
		OrderNumber: order.Number,
		Session:     input.Session,
	})

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"message": "session saved"}); err != nil {
		app.serverError(w, r, err)
	}
}

type requestAppendSession struct {
	OrderID model.ID          `json:"orderId"`
	Session model.WorkSession `json:"session"`
}

// Handle Stats
// @Summary Dashboard Stats
// @Description Active order count and today's totals
// @Router /stats [get]
func (app *application) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := app.logger.With(
		_traceIDKey.String(), ctxstore.MustFrom[string](ctx, _traceIDKey),
	)

	dao := database.NewOrderDAO(logger, app.db)

	orders, err := dao.List(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	stats := projection.Compute(time.Now(), orders, app.reg.Snapshot())

	if err := response.JSON(w, http.StatusOK, stats); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Subscribe
// @Summary Subscribe
// @Description Attach a viewer to the push-notification stream
// @Router /ws [get]
func (app *application) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	app.hub.Subscribe(w, r)
}
