// Package postgres is the PostgreSQL-backed order and history store.
package postgres

import (
	"context"
	_ "embed"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nsridhar76/go-ordermgmt/internal/domain"
)

//go:embed schema.sql
var schema string

// ErrNotConnected is returned when the store is used before Connect or after
// Close.
var ErrNotConnected = errors.New("postgres store is not connected")

// Store owns a pgx connection pool. Connect it at startup and Close it on
// shutdown.
type Store struct {
	url    string
	logger watermill.LoggerAdapter
	pool   *pgxpool.Pool
}

func NewStore(url string, logger watermill.LoggerAdapter) *Store {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Store{url: url, logger: logger}
}

// Connect creates the pool and waits for the database to answer, retrying
// with exponential backoff until ctx is done.
func (s *Store) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, s.url)
	if err != nil {
		return errors.Wrap(err, "cannot create pool")
	}

	ping := func() error {
		err := pool.Ping(ctx)
		if err != nil {
			s.logger.Info("Database not ready, retrying", watermill.LogFields{"err": err.Error()})
		}
		return err
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		pool.Close()
		return errors.Wrap(err, "cannot connect to database")
	}

	s.pool = pool
	s.logger.Info("Connected to database", nil)
	return nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if s.pool == nil {
		return ErrNotConnected
	}
	_, err := s.pool.Exec(ctx, schema)
	return errors.Wrap(err, "cannot apply schema")
}

func (s *Store) Close() {
	if s.pool == nil {
		return
	}
	s.pool.Close()
	s.pool = nil
	s.logger.Info("Disconnected from database", nil)
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return ErrNotConnected
	}
	return s.pool.Ping(ctx)
}

// CreateOrder inserts the header and its lines in one transaction.
func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if s.pool == nil {
		return domain.Order{}, ErrNotConnected
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "cannot begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO order_headers (customer_id, order_date, status, total_amount)
		 VALUES ($1, $2, $3, $4::text::numeric)
		 RETURNING id, created_at, updated_at`,
		order.CustomerID, order.OrderDate, string(order.Status), order.TotalAmount.StringFixed(2),
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "cannot insert order header")
	}

	for i := range order.Lines {
		l := &order.Lines[i]
		l.OrderID = order.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4::text::numeric)
			 RETURNING id, created_at`,
			l.OrderID, l.ProductID, l.Quantity, l.UnitPrice.StringFixed(2),
		).Scan(&l.ID, &l.CreatedAt)
		if err != nil {
			return domain.Order{}, errors.Wrap(err, "cannot insert order line")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, errors.Wrap(err, "cannot commit order")
	}
	return order, nil
}

// FindOrder loads an order with its lines from a single snapshot.
func (s *Store) FindOrder(ctx context.Context, orderID, customerID int64) (domain.Order, error) {
	var order domain.Order
	err := s.readTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, selectHeader+` WHERE id = $1 AND customer_id = $2`, orderID, customerID)
		o, err := scanHeader(row)
		if err != nil {
			return err
		}
		lines, err := loadLines(ctx, tx, []int64{o.ID})
		if err != nil {
			return err
		}
		o.Lines = lines[o.ID]
		order = o
		return nil
	})
	return order, err
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (domain.Order, error) {
	if s.pool == nil {
		return domain.Order{}, ErrNotConnected
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "cannot begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`UPDATE order_headers SET status = $2, updated_at = now() WHERE id = $1
		 RETURNING `+headerColumns,
		orderID, string(status),
	)
	order, err := scanHeader(row)
	if err != nil {
		return domain.Order{}, err
	}

	lines, err := loadLines(ctx, tx, []int64{order.ID})
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines[order.ID]

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, errors.Wrap(err, "cannot commit order update")
	}
	return order, nil
}

// DeleteOrder removes the header; lines go with it through the cascade.
func (s *Store) DeleteOrder(ctx context.Context, orderID int64) error {
	if s.pool == nil {
		return ErrNotConnected
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM order_headers WHERE id = $1`, orderID)
	if err != nil {
		return errors.Wrap(err, "cannot delete order")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ListOrders returns a page of the customer's orders, newest first.
func (s *Store) ListOrders(ctx context.Context, customerID int64, skip, take int) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.readTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			selectHeader+` WHERE customer_id = $1 ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3`,
			customerID, skip, take,
		)
		if err != nil {
			return errors.Wrap(err, "cannot list orders")
		}
		orders, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
			return scanHeader(row)
		})
		if err != nil {
			return err
		}

		ids := make([]int64, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		lines, err := loadLines(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i := range orders {
			orders[i].Lines = lines[orders[i].ID]
		}
		return nil
	})
	if orders == nil && err == nil {
		orders = []domain.Order{}
	}
	return orders, err
}

func (s *Store) CountOrders(ctx context.Context, customerID int64) (int, error) {
	if s.pool == nil {
		return 0, ErrNotConnected
	}
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM order_headers WHERE customer_id = $1`, customerID).Scan(&n)
	return n, errors.Wrap(err, "cannot count orders")
}

func (s *Store) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	if s.pool == nil {
		return ErrNotConnected
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO order_history (order_id, action, changes, performed_by) VALUES ($1, $2, $3, $4)`,
		entry.OrderID, string(entry.Action), entry.Changes, entry.PerformedBy,
	)
	return errors.Wrap(err, "cannot insert history entry")
}

func (s *Store) ListHistory(ctx context.Context, orderID int64) ([]domain.HistoryEntry, error) {
	if s.pool == nil {
		return nil, ErrNotConnected
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, action, changes, performed_by, created_at
		 FROM order_history WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list history")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HistoryEntry, error) {
		var e domain.HistoryEntry
		var action string
		err := row.Scan(&e.ID, &e.OrderID, &action, &e.Changes, &e.PerformedBy, &e.CreatedAt)
		e.Action = domain.HistoryAction(action)
		return e, err
	})
}

func (s *Store) readTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if s.pool == nil {
		return ErrNotConnected
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return errors.Wrap(err, "cannot begin read transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const headerColumns = `id, customer_id, order_date, status, total_amount::text, created_at, updated_at`

const selectHeader = `SELECT ` + headerColumns + ` FROM order_headers`

func scanHeader(row pgx.Row) (domain.Order, error) {
	var (
		o      domain.Order
		status string
		total  string
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &status, &total, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "cannot scan order header")
	}

	o.Status = domain.OrderStatus(status)
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return domain.Order{}, errors.Wrap(err, "invalid total amount")
	}
	o.Lines = []domain.OrderLine{}
	return o, nil
}

func loadLines(ctx context.Context, tx pgx.Tx, orderIDs []int64) (map[int64][]domain.OrderLine, error) {
	out := make(map[int64][]domain.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := tx.Query(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price::text, created_at
		 FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, id`,
		orderIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load order lines")
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderLine, error) {
		var (
			l     domain.OrderLine
			price string
		)
		if err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &price, &l.CreatedAt); err != nil {
			return l, err
		}
		var err error
		l.UnitPrice, err = decimal.NewFromString(price)
		return l, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot scan order lines")
	}

	for _, l := range lines {
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, nil
}
