package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository читает заказы и корзину из PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		delays: []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	return retry(ctx, r.delays, fn)
}

func retry(ctx context.Context, delays []time.Duration, fn func() error) error {
	var err error
	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil || !isRetryable(err) || i == len(delays) {
			return err
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// GetCart возвращает исходное содержимое корзины.
func (r *PostgresRepository) GetCart(ctx context.Context) (model.Cart, error) {
	var cart model.Cart
	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT item_id, product_id, name, unit_price::text, quantity, stock
			 FROM cart_items
			 ORDER BY position, item_id`,
		)
		if err != nil {
			return fmt.Errorf("select cart items: %w", err)
		}
		items, err := pgx.CollectRows(rows, scanLineItem)
		if err != nil {
			return fmt.Errorf("scan cart items: %w", err)
		}
		cart = model.Cart{Items: items}
		return nil
	})
	if err != nil {
		return model.Cart{}, err
	}

	if len(cart.Items) == 0 {
		return model.Cart{}, ErrCartNotFound
	}
	return cart, nil
}

const orderColumns = `id, number, tracking_number, carrier, status, coupon_code, placed_at, estimated_delivery`

func scanOrder(row pgx.CollectableRow) (model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := row.Scan(&o.ID, &o.Number, &o.TrackingNumber, &o.Carrier, &status, &o.CouponCode, &o.PlacedAt, &o.EstimatedDelivery)
	o.Status = model.OrderStatus(status)
	return o, err
}

func scanLineItem(row pgx.CollectableRow) (model.LineItem, error) {
	var (
		item  model.LineItem
		price string
	)
	if err := row.Scan(&item.ID, &item.ProductID, &item.Name, &price, &item.Quantity, &item.Stock); err != nil {
		return model.LineItem{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return model.LineItem{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	item.UnitPrice = p
	return item, nil
}

// ListOrders возвращает все заказы, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+orderColumns+` FROM orders ORDER BY placed_at DESC`,
		)
		if err != nil {
			return fmt.Errorf("select orders: %w", err)
		}
		orders, err = pgx.CollectRows(rows, scanOrder)
		if err != nil {
			return fmt.Errorf("scan order: %w", err)
		}
		return r.loadDetails(ctx, orders)
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// FindOrder ищет заказ по номеру заказа или трек-номеру.
func (r *PostgresRepository) FindOrder(ctx context.Context, number string) (*model.Order, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrOrderNotFound
	}
	return r.getOne(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE number = $1 OR (tracking_number <> '' AND tracking_number = $1)
		 ORDER BY id
		 LIMIT 1`,
		number,
	)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*model.Order, error) {
	var order model.Order
	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx, query, arg)
		if err != nil {
			return fmt.Errorf("select order: %w", err)
		}
		order, err = pgx.CollectExactlyOneRow(rows, scanOrder)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("scan order: %w", err)
		}
		orders := []model.Order{order}
		if err := r.loadDetails(ctx, orders); err != nil {
			return err
		}
		order = orders[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// loadDetails подгружает позиции и даты этапов для списка заказов двумя запросами.
func (r *PostgresRepository) loadDetails(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*model.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
		orders[i].Items = []model.LineItem{}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, item_id, product_id, name, unit_price::text, quantity
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position, item_id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			item    model.LineItem
			price   string
		)
		if err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.Name, &price, &item.Quantity); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		item.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("parse price %q: %w", price, err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	mrows, err := r.pool.Query(ctx,
		`SELECT order_id, milestone, occurred_at
		 FROM order_milestones
		 WHERE order_id = ANY($1)`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("select order milestones: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var (
			orderID    int64
			milestone  string
			occurredAt time.Time
		)
		if err := mrows.Scan(&orderID, &milestone, &occurredAt); err != nil {
			return fmt.Errorf("scan milestone: %w", err)
		}
		o, ok := byID[orderID]
		if !ok {
			continue
		}
		if o.MilestoneDates == nil {
			o.MilestoneDates = make(map[model.OrderStatus]time.Time)
		}
		o.MilestoneDates[model.OrderStatus(milestone)] = occurredAt
	}
	if err := mrows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}
