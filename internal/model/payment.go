package model

import "time"

// Payment statuses. A payment is finalized exactly once: verifying the same
// order twice must not double-activate the subscription.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Payment correlates a payment-gateway order with a subscription.
// Completed implies a non-nil PaymentID and a linked subscription.
type Payment struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	OrderID        string    `db:"order_id" json:"order_id"`
	PaymentID      *string   `db:"payment_id" json:"payment_id,omitempty"`
	Amount         int       `db:"amount" json:"amount"`
	Currency       string    `db:"currency" json:"currency"`
	Status         string    `db:"status" json:"status"`
	PlanID         string    `db:"plan_id" json:"plan_id"`
	SubscriptionID *string   `db:"subscription_id" json:"subscription_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
