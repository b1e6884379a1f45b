package model

import "time"

// Subscription statuses. A user has at most one active subscription at any
// instant; prior active rows are cancelled, never deleted.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
	SubscriptionPending   = "pending"
)

type Subscription struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	PlanID      string     `db:"plan_id" json:"plan_id"`
	Status      string     `db:"status" json:"status"`
	PaymentID   *string    `db:"payment_id" json:"payment_id,omitempty"`
	OrderID     *string    `db:"order_id" json:"order_id,omitempty"`
	Amount      int        `db:"amount" json:"amount"`
	Currency    string     `db:"currency" json:"currency"`
	ActivatedAt time.Time  `db:"activated_at" json:"activated_at"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
