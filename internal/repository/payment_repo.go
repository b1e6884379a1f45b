package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"voicecast/internal/model"
)

// PaymentRepository stores payment-gateway order correlations.
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Payment, error)
}

type paymentRepo struct {
	pool *pgxpool.Pool
}

// NewPaymentRepo creates a new PaymentRepository.
func NewPaymentRepo(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `
		INSERT INTO payments (id, user_id, order_id, amount, currency, status, plan_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, q, p.ID, p.UserID, p.OrderID, p.Amount, p.Currency, p.Status, p.PlanID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating payment for order %s: %w", p.OrderID, err)
	}
	return nil
}

func (r *paymentRepo) GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	const q = `
		SELECT id, user_id, order_id, payment_id, amount, currency, status, plan_id, subscription_id, created_at, updated_at
		FROM payments
		WHERE order_id = $1
	`
	var p model.Payment
	err := r.pool.QueryRow(ctx, q, orderID).Scan(
		&p.ID, &p.UserID, &p.OrderID, &p.PaymentID, &p.Amount, &p.Currency,
		&p.Status, &p.PlanID, &p.SubscriptionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching payment for order %s: %w", orderID, err)
	}
	return &p, nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Payment, error) {
	const q = `
		SELECT id, user_id, order_id, payment_id, amount, currency, status, plan_id, subscription_id, created_at, updated_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing payments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.OrderID, &p.PaymentID, &p.Amount, &p.Currency,
			&p.Status, &p.PlanID, &p.SubscriptionID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
