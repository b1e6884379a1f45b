package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"voicecast/internal/model"
)

// Activation outcomes for payment verification.
var (
	// ErrOrderNotFound means no payment record exists for the order.
	ErrOrderNotFound = errors.New("order_not_found")
	// ErrOrderAlreadyProcessed means the order was finalized before. A
	// second verification of the same order must not double-activate.
	ErrOrderAlreadyProcessed = errors.New("order_already_processed")
)

// subscriptionTerm is how long a paid subscription runs before renewal.
const subscriptionTerm = 30 * 24 * time.Hour

// SubscriptionRepository maintains the one-active-subscription-per-user
// invariant.
type SubscriptionRepository interface {
	// GetActive returns the user's current active, unexpired subscription,
	// or nil when the user is on the implicit free tier.
	GetActive(ctx context.Context, userID string) (*model.Subscription, error)
	// ActivateFromOrder finalizes a verified payment and swaps the user
	// onto the paid plan in a single transaction: payment completed, prior
	// active subscriptions cancelled, new subscription created, user plan
	// updated, current-month usage reset. A crash mid-sequence rolls the
	// whole activation back.
	ActivateFromOrder(ctx context.Context, orderID, paymentID string) (*model.Subscription, error)
}

type subscriptionRepo struct {
	pool      *pgxpool.Pool
	usageRepo UsageRepository
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool, usageRepo UsageRepository) SubscriptionRepository {
	return &subscriptionRepo{pool: pool, usageRepo: usageRepo}
}

func (r *subscriptionRepo) GetActive(ctx context.Context, userID string) (*model.Subscription, error) {
	const q = `
		SELECT id, user_id, plan_id, status, payment_id, order_id, amount, currency,
		       activated_at, expires_at, cancelled_at, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		  AND status = 'active'
		  AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`
	var s model.Subscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.PaymentID, &s.OrderID,
		&s.Amount, &s.Currency, &s.ActivatedAt, &s.ExpiresAt, &s.CancelledAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching active subscription for user %s: %w", userID, err)
	}
	return &s, nil
}

func (r *subscriptionRepo) ActivateFromOrder(ctx context.Context, orderID, paymentID string) (*model.Subscription, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("starting activation transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Finalize the payment exactly once: only a pending row transitions.
	const completeQ = `
		UPDATE payments
		SET payment_id = $2, status = 'completed', updated_at = NOW()
		WHERE order_id = $1 AND status = 'pending'
		RETURNING id, user_id, plan_id, amount, currency
	`
	var pmtID, userID, planID, currency string
	var amount int
	err = tx.QueryRow(ctx, completeQ, orderID, paymentID).Scan(&pmtID, &userID, &planID, &amount, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyMissingOrder(ctx, tx, orderID)
		}
		return nil, fmt.Errorf("completing payment for order %s: %w", orderID, err)
	}

	// Cancel prior active rows so exactly one active subscription remains.
	const cancelQ = `
		UPDATE subscriptions
		SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND status = 'active'
	`
	if _, err := tx.Exec(ctx, cancelQ, userID); err != nil {
		return nil, fmt.Errorf("cancelling prior subscriptions for user %s: %w", userID, err)
	}

	sub := &model.Subscription{
		ID:          uuid.NewString(),
		UserID:      userID,
		PlanID:      planID,
		Status:      model.SubscriptionActive,
		PaymentID:   &paymentID,
		OrderID:     &orderID,
		Amount:      amount,
		Currency:    currency,
		ActivatedAt: time.Now(),
		ExpiresAt:   time.Now().Add(subscriptionTerm),
	}
	const insertQ = `
		INSERT INTO subscriptions (id, user_id, plan_id, status, payment_id, order_id, amount, currency, activated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, insertQ,
		sub.ID, sub.UserID, sub.PlanID, sub.Status, sub.PaymentID, sub.OrderID,
		sub.Amount, sub.Currency, sub.ActivatedAt, sub.ExpiresAt,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating subscription for user %s: %w", userID, err)
	}

	if _, err := tx.Exec(ctx, `UPDATE payments SET subscription_id = $1, updated_at = NOW() WHERE id = $2`, sub.ID, pmtID); err != nil {
		return nil, fmt.Errorf("linking payment %s to subscription: %w", pmtID, err)
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET plan = $2, updated_at = NOW() WHERE user_id = $1`, userID, planID); err != nil {
		return nil, fmt.Errorf("updating plan for user %s: %w", userID, err)
	}

	if err := r.usageRepo.ResetForNewSubscription(ctx, tx, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing activation for order %s: %w", orderID, err)
	}
	return sub, nil
}

// classifyMissingOrder distinguishes an unknown order from one that was
// already finalized, for idempotent verification.
func (r *subscriptionRepo) classifyMissingOrder(ctx context.Context, tx pgx.Tx, orderID string) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM payments WHERE order_id = $1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("checking payment status for order %s: %w", orderID, err)
	}
	if status == model.PaymentCompleted {
		return ErrOrderAlreadyProcessed
	}
	return fmt.Errorf("order %s is %s, cannot activate", orderID, status)
}
