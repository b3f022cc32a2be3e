package database

import (
	"context"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/station42/shopfloor/internal/model"
)

type SessionDAO struct {
	Logger *slog.Logger
	*DB
}

func NewSessionDAO(logger *slog.Logger, db *DB) *SessionDAO {
	return &SessionDAO{
		Logger: logger.With("dao", "session"),
		DB:     db,
	}
}

// OrderSession pairs a session with the order it belongs to, in the shape
// the resync feed uses.
type OrderSession struct {
	OrderID model.ID          `json:"orderId"`
	Session model.WorkSession `json:"session"`
}

// Append stores a closed session against an order. Returns ErrNotFound when
// the order does not exist.
func (dao *SessionDAO) Append(ctx context.Context, orderID model.ID, sess model.WorkSession) error {
	logger := dao.Logger.With("query", "append")

	query, args, err := dao.Builder.
		Insert("sessions").
		Columns("id", "order_id", "employee_name", "started_at", "ended_at", "duration").
		Values(uuid.NewString(), orderID, sess.EmployeeName, sess.StartTime, sess.EndTime, sess.Duration).
		ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	if _, err := dao.ExecContext(ctx, query, args...); err != nil {
		if IsForeignKeyViolation(err) {
			return model.NewError("order", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)
		return err
	}

	return nil
}

func (dao *SessionDAO) ListByOrder(ctx context.Context, orderID model.ID) ([]model.WorkSession, error) {
	logger := dao.Logger.With("query", "listByOrder")

	query, args, err := dao.Builder.
		Select("employee_name", "started_at", "ended_at", "duration").
		From("sessions").
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("started_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	sessions := make([]model.WorkSession, 0)
	if err := dao.SelectContext(ctx, &sessions, query, args...); err != nil {
		if IsNoRows(err) {
			return sessions, nil
		}

		logger.Warn("failed query execute", "error", err)
		return nil, err
	}

	return sessions, nil
}

// ListAcrossOrders returns every stored session paired with its order, the
// feed viewers replay during a full resync.
func (dao *SessionDAO) ListAcrossOrders(ctx context.Context) ([]OrderSession, error) {
	logger := dao.Logger.With("query", "listAcrossOrders")

	query, args, err := dao.Builder.
		Select("order_id", "employee_name", "started_at", "ended_at", "duration").
		From("sessions").
		OrderBy("started_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	type row struct {
		OrderID      model.ID    `db:"order_id"`
		EmployeeName string      `db:"employee_name"`
		StartedAt    model.Time  `db:"started_at"`
		EndedAt      *model.Time `db:"ended_at"`
		Duration     int64       `db:"duration"`
	}

	rows := make([]row, 0)
	if err := dao.SelectContext(ctx, &rows, query, args...); err != nil {
		if IsNoRows(err) {
			return []OrderSession{}, nil
		}

		logger.Warn("failed query execute", "error", err)
		return nil, err
	}

	sessions := make([]OrderSession, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, OrderSession{
			OrderID: r.OrderID,
			Session: model.WorkSession{
				EmployeeName: r.EmployeeName,
				StartTime:    r.StartedAt,
				EndTime:      r.EndedAt,
				Duration:     r.Duration,
			},
		})
	}

	logger.Debug("success query execute", "countSessions", len(sessions))

	return sessions, nil
}
