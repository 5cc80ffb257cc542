package repository

import (
	"context"
	"errors"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/NateWesth/aleph-order-tracker/internal/repository/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const pgErrUniqueViolationCode = "23505"

const (
	insertOrderQuery = `
						INSERT INTO orders (id, number, reference, company_ref, status, urgency, description, created_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	insertItemQuery = `
						INSERT INTO order_items (id, order_id, name, code, quantity, delivered, stock_status, progress_stage, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	selectOrderByIDQuery = `
						SELECT id, number, reference, company_ref, status, urgency, description, completed_at, created_at FROM orders
						WHERE id = $1
`
	selectOrderByNumberQuery = `
						SELECT id, number, reference, company_ref, status, urgency, description, completed_at, created_at FROM orders
						WHERE number = $1
`
	selectOrdersByReferencesQuery = `
						SELECT id, number, reference, company_ref, status, urgency, description, completed_at, created_at FROM orders
						WHERE reference = ANY($1)
						ORDER BY created_at DESC
`
	selectOrdersByStatusQuery = `
						SELECT id, number, reference, company_ref, status, urgency, description, completed_at, created_at FROM orders
						WHERE status = ANY($1)
						ORDER BY created_at DESC
`
	selectItemsByOrderIDQuery = `
						SELECT id, order_id, name, code, quantity, delivered, stock_status, progress_stage, updated_at FROM order_items
						WHERE order_id = $1
						ORDER BY name
`
	updateOrderStatusQuery = `
						UPDATE orders
						SET status = $1, completed_at = $2
						WHERE id = $3
`
	updateItemQuery = `
						UPDATE order_items
						SET delivered = $1, stock_status = $2, progress_stage = $3, updated_at = $4
						WHERE id = $5
`
	updateOrderDescriptionQuery = `
						UPDATE orders
						SET description = $1
						WHERE id = $2
`
	deleteOrderQuery = `
						DELETE FROM orders
						WHERE id = $1
`
	insertPurchaseOrderQuery = `
						INSERT INTO order_purchase_orders (id, order_id, po_number, created_at)
						VALUES ($1, $2, $3, $4)
`
)

// OrderRepository persists orders and their items
type OrderRepository struct {
	db *postgres.DB
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder inserts the order and its items in one transaction
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, error) {
	tx, err := or.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertOrderQuery,
		order.ID, order.Number, order.Reference, order.CompanyRef,
		order.Status, order.Urgency, order.Description, order.CreatedAt)
	if err != nil {
		if errCode := or.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return nil, models.ErrConflictData
		}
		return nil, err
	}

	for _, item := range items {
		_, err = tx.Exec(ctx, insertItemQuery,
			item.ID, item.OrderID, item.Name, item.Code,
			item.Quantity, item.Delivered, item.StockStatus, item.Stage, item.UpdatedAt)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrder returns order by id
func (or *OrderRepository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order := models.Order{}
	err := or.db.QueryRow(ctx, selectOrderByIDQuery, id).Scan(
		&order.ID, &order.Number, &order.Reference, &order.CompanyRef,
		&order.Status, &order.Urgency, &order.Description, &order.CompletedAt, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return &order, nil
}

// FindOrderByNumber returns order by its human-facing number
func (or *OrderRepository) FindOrderByNumber(ctx context.Context, num string) (*models.Order, error) {
	order := models.Order{}
	err := or.db.QueryRow(ctx, selectOrderByNumberQuery, num).Scan(
		&order.ID, &order.Number, &order.Reference, &order.CompanyRef,
		&order.Status, &order.Urgency, &order.Description, &order.CompletedAt, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return &order, nil
}

// FindOrdersByReferences returns orders whose reference matches any candidate
func (or *OrderRepository) FindOrdersByReferences(ctx context.Context, refs []string) ([]models.Order, error) {
	return or.queryOrders(ctx, selectOrdersByReferencesQuery, refs)
}

// ListOrdersByStatus returns orders in any of the given statuses
func (or *OrderRepository) ListOrdersByStatus(ctx context.Context, statuses []string) ([]models.Order, error) {
	return or.queryOrders(ctx, selectOrdersByStatusQuery, statuses)
}

func (or *OrderRepository) queryOrders(ctx context.Context, query string, arg []string) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}

	for rows.Next() {
		order := models.Order{}
		err = rows.Scan(
			&order.ID, &order.Number, &order.Reference, &order.CompanyRef,
			&order.Status, &order.Urgency, &order.Description, &order.CompletedAt, &order.CreatedAt)
		if err != nil {
			continue
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetOrderItems returns the items of an order
func (or *OrderRepository) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := or.db.Query(ctx, selectItemsByOrderIDQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}

	for rows.Next() {
		item := models.OrderItem{}
		err = rows.Scan(
			&item.ID, &item.OrderID, &item.Name, &item.Code,
			&item.Quantity, &item.Delivered, &item.StockStatus, &item.Stage, &item.UpdatedAt)
		if err != nil {
			continue
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// UpdateOrderStatus updates order status and completed timestamp
func (or *OrderRepository) UpdateOrderStatus(ctx context.Context, order models.Order) error {
	cmd, err := or.db.Exec(ctx, updateOrderStatusQuery, order.Status, order.CompletedAt, order.ID)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}

// UpdateItemProgress updates the item and the order's encoded description
// mirror in one transaction, so a failure between the two writes cannot
// leave them diverged.
func (or *OrderRepository) UpdateItemProgress(ctx context.Context, item models.OrderItem, description string) error {
	tx, err := or.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, updateItemQuery,
		item.Delivered, item.StockStatus, item.Stage, item.UpdatedAt, item.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	if _, err := tx.Exec(ctx, updateOrderDescriptionQuery, description, item.OrderID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteOrder removes the order; items and purchase-order links cascade
func (or *OrderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	cmd, err := or.db.Exec(ctx, deleteOrderQuery, id)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}

// AddPurchaseOrder links a purchase order number to an order
func (or *OrderRepository) AddPurchaseOrder(ctx context.Context, link models.PurchaseOrderLink) error {
	_, err := or.db.Exec(ctx, insertPurchaseOrderQuery,
		link.ID, link.OrderID, link.PONumber, link.CreatedAt)
	if err != nil {
		if errCode := or.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}
	return nil
}
