package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&repositoryTx{q: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_price, created_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil || order == nil {
		return nil, err
	}

	if order.Items, err = listItems(ctx, r.db, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) FindPendingOrder(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_price, created_at
		FROM orders
		WHERE user_id = $1 AND status = 'PENDING'
	`, userID))
	if err != nil || order == nil {
		return nil, err
	}

	if order.Items, err = listItems(ctx, r.db, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

type repositoryTx struct {
	q querier
}

// GetOrCreatePendingOrder relies on the partial unique index on
// orders(user_id) WHERE status = 'PENDING': a concurrent insert for the same
// user becomes a no-op and the SELECT then waits on the winner's row lock.
func (t *repositoryTx) GetOrCreatePendingOrder(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, total_price, created_at)
		VALUES ($1, $2, 'PENDING', 0, $3)
		ON CONFLICT (user_id) WHERE status = 'PENDING' DO NOTHING
	`, uuid.New(), userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return t.LockPendingOrder(ctx, userID)
}

func (t *repositoryTx) LockPendingOrder(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	return scanOrder(t.q.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_price, created_at
		FROM orders
		WHERE user_id = $1 AND status = 'PENDING'
		FOR UPDATE
	`, userID))
}

func (t *repositoryTx) LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return scanOrder(t.q.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_price, created_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func (t *repositoryTx) FindItem(ctx context.Context, orderID, productID uuid.UUID) (*domain.OrderItem, error) {
	item := &domain.OrderItem{}

	err := t.q.QueryRowContext(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1 AND product_id = $2
	`, orderID, productID).Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return item, nil
}

func (t *repositoryTx) InsertItem(ctx context.Context, item *domain.OrderItem) error {
	item.ID = uuid.New()

	_, err := t.q.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price)
	return err
}

func (t *repositoryTx) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE order_items SET quantity = $1
		WHERE id = $2
	`, quantity, itemID)
	return err
}

func (t *repositoryTx) DeleteItems(ctx context.Context, orderID, productID uuid.UUID) (int64, error) {
	result, err := t.q.ExecContext(ctx, `
		DELETE FROM order_items
		WHERE order_id = $1 AND product_id = $2
	`, orderID, productID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (t *repositoryTx) ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	return listItems(ctx, t.q, orderID)
}

func (t *repositoryTx) UpdateTotal(ctx context.Context, orderID uuid.UUID, total decimal.Decimal) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE orders SET total_price = $1
		WHERE id = $2
	`, total, orderID)
	return err
}

func (t *repositoryTx) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2
	`, status, orderID)
	return err
}

func scanOrder(row *sql.Row) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(&order.ID, &order.UserID, &order.Status, &order.TotalPrice, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	order.Items = []domain.OrderItem{}
	return order, nil
}

func listItems(ctx context.Context, q querier, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY p.name
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
