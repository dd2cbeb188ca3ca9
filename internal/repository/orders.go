package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/valelectronic/DERA-PROJECT/internal/model"
)

// OrderItemParams описывает позицию создаваемого заказа.
// Цена указывается в минимальных единицах валюты.
type OrderItemParams struct {
	ProductID  int64
	Quantity   int
	PriceCents int64
}

// PaymentUpdate содержит данные вебхука для отметки заказа оплаченным.
// Сумма указывается в минимальных единицах валюты.
type PaymentUpdate struct {
	Status          model.PaymentStatus
	Email           string
	AmountCents     int64
	TransactionID   string
	PaidAt          time.Time
	TransactionDate time.Time
}

// CreateOrder сохраняет новый заказ со статусом pending и его позиции в одной транзакции.
// Транзакция повторяется при сбоях сериализации и дедлоках.
func (r *PostgresRepository) CreateOrder(ctx context.Context, userID int64, reference string, totalCents int64, items []OrderItemParams) (int64, error) {
	var orderID int64
	err := r.withRetry(ctx, func() error {
		id, err := r.createOrderTx(ctx, userID, reference, totalCents, items)
		if err != nil {
			return err
		}
		orderID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

func (r *PostgresRepository) createOrderTx(ctx context.Context, userID int64, reference string, totalCents int64, items []OrderItemParams) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, total_amount, payment_reference, order_status)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, totalCents, reference, string(model.OrderStatusPending),
	).Scan(&orderID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrOrderExists, reference)
		}
		return 0, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)`,
			orderID, it.ProductID, it.Quantity, it.PriceCents,
		)
		if err != nil {
			return 0, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return orderID, nil
}

// GetOrderByPaymentReference возвращает заказ по платёжной ссылке вместе с позициями.
func (r *PostgresRepository) GetOrderByPaymentReference(ctx context.Context, reference string) (*model.Order, error) {
	var (
		o          model.Order
		totalCents int64
		status     string
		payStatus  *string
		payEmail   *string
		payAmount  *int64
		payTxID    *string
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, total_amount, payment_reference, is_paid, paid_at,
		        payment_status, payment_email, payment_amount, payment_transaction_id,
		        transaction_date, order_status, created_at
		 FROM orders
		 WHERE payment_reference = $1`,
		reference,
	).Scan(&o.ID, &o.UserID, &totalCents, &o.PaymentReference, &o.IsPaid, &o.PaidAt,
		&payStatus, &payEmail, &payAmount, &payTxID,
		&o.TransactionDate, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	o.TotalAmount = fromCents(totalCents)
	o.Status = model.OrderStatus(status)

	if payStatus != nil {
		res := model.PaymentResult{Status: model.PaymentStatus(*payStatus)}
		if payEmail != nil {
			res.Email = *payEmail
		}
		if payAmount != nil {
			res.Amount = fromCents(*payAmount)
		}
		if payTxID != nil {
			res.TransactionID = *payTxID
		}
		o.PaymentResult = &res
	}

	items, err := r.getOrderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.LineItems = items

	return &o, nil
}

func (r *PostgresRepository) getOrderItems(ctx context.Context, orderID int64) ([]model.OrderLineItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, quantity, price FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderLineItem
	for rows.Next() {
		var (
			it         model.OrderLineItem
			priceCents int64
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &priceCents); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Price = fromCents(priceCents)
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// MarkOrderPaid отмечает неоплаченный заказ оплаченным и сохраняет результат платежа.
// Условие NOT is_paid гарантирует, что повторная доставка вебхука не изменит заказ:
// возвращается false без побочных эффектов.
func (r *PostgresRepository) MarkOrderPaid(ctx context.Context, reference string, upd PaymentUpdate) (bool, error) {
	var updated bool
	err := r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE orders
			 SET is_paid = TRUE,
			     paid_at = $2,
			     payment_status = $3,
			     payment_email = $4,
			     payment_amount = $5,
			     payment_transaction_id = $6,
			     transaction_date = $7,
			     order_status = $8
			 WHERE payment_reference = $1 AND NOT is_paid`,
			reference, upd.PaidAt, string(upd.Status), upd.Email, upd.AmountCents,
			upd.TransactionID, upd.TransactionDate, string(model.OrderStatusProcessing),
		)
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		updated = cmdTag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

// CreateCoupon сохраняет новый купон пользователя.
func (r *PostgresRepository) CreateCoupon(ctx context.Context, c model.Coupon) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO coupons (code, user_id, discount_percentage, is_active)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Code, c.UserID, c.DiscountPercentage, c.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create coupon: %w", err)
	}
	return id, nil
}

// DeactivateCoupon отмечает купон пользователя использованным.
func (r *PostgresRepository) DeactivateCoupon(ctx context.Context, code string, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE coupons SET is_active = FALSE WHERE code = $1 AND user_id = $2`,
		code, userID,
	)
	if err != nil {
		return fmt.Errorf("deactivate coupon: %w", err)
	}
	return nil
}

// GetActiveCoupon возвращает активный купон с указанным кодом, закреплённый за пользователем.
func (r *PostgresRepository) GetActiveCoupon(ctx context.Context, code string, userID int64) (*model.Coupon, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, code, user_id, discount_percentage, is_active
		 FROM coupons
		 WHERE code = $1 AND user_id = $2 AND is_active`,
		code, userID,
	)
	return scanCoupon(row)
}

// GetActiveCouponForUser возвращает активный купон пользователя, если он есть.
func (r *PostgresRepository) GetActiveCouponForUser(ctx context.Context, userID int64) (*model.Coupon, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, code, user_id, discount_percentage, is_active
		 FROM coupons
		 WHERE user_id = $1 AND is_active
		 ORDER BY id DESC
		 LIMIT 1`,
		userID,
	)
	return scanCoupon(row)
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.UserID, &c.DiscountPercentage, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return &c, nil
}
