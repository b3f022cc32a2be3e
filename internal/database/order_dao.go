package database

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/station42/shopfloor/internal/model"
)

// Order numbers are short 4-digit strings. Generation retries on collision
// with an existing number before giving up.
const _maxNumberAttempts = 10

type OrderDAO struct {
	Logger *slog.Logger
	*DB
}

func NewOrderDAO(logger *slog.Logger, db *DB) *OrderDAO {
	return &OrderDAO{
		Logger: logger.With("dao", "order"),
		DB:     db,
	}
}

type InsertOrderDTO struct {
	Type        string
	Status      model.Status
	Description string
	StartDate   time.Time
	DueDate     time.Time
}

func (dao *OrderDAO) Insert(ctx context.Context, dto InsertOrderDTO) (model.WorkOrder, error) {
	logger := dao.Logger.With("query", "insert")

	for attempt := 0; attempt < _maxNumberAttempts; attempt++ {
		number := genOrderNumber()

		query, args, err := dao.Builder.
			Insert("orders").
			Columns("id", "number", "type", "status", "description", "start_date", "due_date").
			Values(uuid.NewString(), number, dto.Type, dto.Status, dto.Description, dto.StartDate, dto.DueDate).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return model.WorkOrder{}, err
		}

		logger.Debug("build query", "sql", query, "args", args)

		var id model.ID
		row := dao.QueryRowxContext(ctx, query, args...)
		if err := row.Scan(&id); err != nil {
			if IsUniqueViolation(err) {
				logger.Debug("order number collision, retrying", "number", number)
				continue
			}

			logger.Warn("failed query execute", "error", err)
			return model.WorkOrder{}, err
		}

		return dao.Get(ctx, id)
	}

	return model.WorkOrder{}, model.NewError("order", model.ErrExists)
}

func (dao *OrderDAO) Get(ctx context.Context, id model.ID) (model.WorkOrder, error) {
	logger := dao.Logger.With("query", "get")

	query, args, err := dao.Builder.
		Select("*").
		From("orders").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.WorkOrder{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var order model.WorkOrder
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&order); err != nil {
		if IsNoRows(err) {
			return model.WorkOrder{}, model.NewError("order", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)
		return model.WorkOrder{}, err
	}

	order.Sessions, err = NewSessionDAO(dao.Logger, dao.DB).ListByOrder(ctx, order.ID)
	if err != nil {
		return model.WorkOrder{}, err
	}

	return order, nil
}

// List returns all orders newest-created-first, with their sessions
// attached.
func (dao *OrderDAO) List(ctx context.Context) ([]model.WorkOrder, error) {
	logger := dao.Logger.With("query", "list")

	query, args, err := dao.Builder.
		Select("*").
		From("orders").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	orders := make([]model.WorkOrder, 0)
	if err := dao.SelectContext(ctx, &orders, query, args...); err != nil {
		if IsNoRows(err) {
			return orders, nil
		}

		logger.Warn("failed query execute", "error", err)
		return nil, err
	}

	all, err := NewSessionDAO(dao.Logger, dao.DB).ListAcrossOrders(ctx)
	if err != nil {
		return nil, err
	}

	byOrder := make(map[model.ID][]model.WorkSession, len(orders))
	for _, item := range all {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item.Session)
	}
	for i := range orders {
		orders[i].Sessions = byOrder[orders[i].ID]
		if orders[i].Sessions == nil {
			orders[i].Sessions = []model.WorkSession{}
		}
	}

	logger.Debug("success query execute", "countOrders", len(orders))

	return orders, nil
}

func genOrderNumber() string {
	digits := []byte("0123456789")
	number := make([]byte, 4)
	for i := range number {
		number[i] = digits[rand.Intn(len(digits))]
	}
	return string(number)
}
