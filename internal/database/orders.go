package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fotobot/internal/models"
)

// CreateOrder записывает заказ и возвращает присвоенный номер.
func (d *DB) CreateOrder(ctx context.Context, order *models.Order) (int64, error) {
	query := `
        INSERT INTO orders (user_id, username, service_id, service_name, price_from, phone, comment, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `

	status := order.Status
	if status == "" {
		status = models.OrderStatusNew
	}

	res, err := d.db.ExecContext(ctx, query,
		order.UserID,
		order.Username,
		order.ServiceID,
		order.ServiceName,
		order.PriceFrom,
		order.Phone,
		order.Comment,
		status,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get order id: %w", err)
	}

	order.ID = id
	order.Status = status
	return id, nil
}

// MarkPaymentClaimed отмечает, что пользователь заявил об оплате.
func (d *DB) MarkPaymentClaimed(ctx context.Context, orderID int64) error {
	query := `UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	res, err := d.db.ExecContext(ctx, query, models.OrderStatusPaid, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark payment claimed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %d not found", orderID)
	}
	return nil
}

// GetOrder возвращает заказ по номеру.
func (d *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	query := `
        SELECT id, user_id, username, service_id, service_name, price_from, phone, comment, status, created_at, updated_at
        FROM orders WHERE id = ?
    `

	order, err := scanOrder(d.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetOrdersByDateRange возвращает заказы за период, новые первыми.
func (d *DB) GetOrdersByDateRange(ctx context.Context, start, end time.Time) ([]*models.Order, error) {
	query := `
        SELECT id, user_id, username, service_id, service_name, price_from, phone, comment, status, created_at, updated_at
        FROM orders
        WHERE created_at >= ? AND created_at < ?
        ORDER BY id DESC
    `

	// created_at хранится строкой CURRENT_TIMESTAMP (UTC), сравниваем в том же формате
	rows, err := d.db.QueryContext(ctx, query,
		start.UTC().Format("2006-01-02 15:04:05"),
		end.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var username, phone, comment sql.NullString

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&username,
		&order.ServiceID,
		&order.ServiceName,
		&order.PriceFrom,
		&phone,
		&comment,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Username = username.String
	order.Phone = phone.String
	order.Comment = comment.String
	return &order, nil
}
