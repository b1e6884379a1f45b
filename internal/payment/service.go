package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voicecast/internal/model"
	"voicecast/internal/plan"
	"voicecast/internal/repository"
)

var (
	// ErrSignatureMismatch means the gateway callback's signature did not
	// verify. No subscription mutation happens on mismatch.
	ErrSignatureMismatch = errors.New("signature_mismatch")
	// ErrNotPurchasable means the plan has no price to collect, e.g. the
	// free tier.
	ErrNotPurchasable = errors.New("plan_not_purchasable")
)

// OrderClient is the slice of the gateway SDK the service needs. The
// razorpay client's Order endpoint satisfies it.
type OrderClient interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Activator finalizes a verified order into an active subscription.
type Activator interface {
	ActivateFromOrder(ctx context.Context, orderID, paymentID string) (*model.Subscription, error)
}

// Order is a created checkout order, returned to the frontend to open the
// gateway widget.
type Order struct {
	OrderID  string    `json:"orderId"`
	Amount   int       `json:"amount"` // paise
	Currency string    `json:"currency"`
	KeyID    string    `json:"keyId"`
	Plan     plan.Plan `json:"plan"`
}

// Service brokers checkout: it creates gateway orders, records them as
// pending payments, and on a verified callback activates the subscription.
type Service struct {
	orders        OrderClient
	payments      repository.PaymentRepository
	subscriptions Activator
	keyID         string
	keySecret     string
	logger        zerolog.Logger
}

func NewService(orders OrderClient, payments repository.PaymentRepository, subscriptions Activator, keyID, keySecret string, logger zerolog.Logger) *Service {
	return &Service{
		orders:        orders,
		payments:      payments,
		subscriptions: subscriptions,
		keyID:         keyID,
		keySecret:     keySecret,
		logger:        logger.With().Str("service", "PaymentService").Logger(),
	}
}

// Configured reports whether gateway credentials are present.
func (s *Service) Configured() bool {
	return s.orders != nil && s.keyID != "" && s.keySecret != ""
}

// CreateOrder opens checkout for a paid plan: one gateway order plus one
// pending payment row correlating it to the user and plan.
func (s *Service) CreateOrder(ctx context.Context, userID, planID string) (*Order, error) {
	p, err := plan.Lookup(planID)
	if err != nil {
		return nil, err
	}
	if p.Price <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotPurchasable, planID)
	}

	amount := p.Price * 100 // rupees to paise
	data := map[string]interface{}{
		"amount":   amount,
		"currency": p.Currency,
		"receipt":  receipt(userID),
		"notes": map[string]interface{}{
			"user_id": userID,
			"plan_id": planID,
		},
	}
	created, err := s.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("creating gateway order: %w", err)
	}
	orderID, _ := created["id"].(string)
	if orderID == "" {
		return nil, errors.New("gateway order response missing id")
	}

	record := &model.Payment{
		ID:       uuid.NewString(),
		UserID:   userID,
		OrderID:  orderID,
		Amount:   amount,
		Currency: p.Currency,
		Status:   model.PaymentPending,
		PlanID:   planID,
	}
	if err := s.payments.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", orderID).Str("plan", planID).Msg("Checkout order created")
	return &Order{
		OrderID:  orderID,
		Amount:   amount,
		Currency: p.Currency,
		KeyID:    s.keyID,
		Plan:     p,
	}, nil
}

// VerifyPayment checks the gateway callback signature and, when valid,
// activates the subscription. The signature is checked before any mutation;
// verifying the same order twice surfaces ErrOrderAlreadyProcessed from the
// activation, never a second activation.
func (s *Service) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*model.Subscription, error) {
	if !s.VerifySignature(orderID, paymentID, signature) {
		return nil, ErrSignatureMismatch
	}
	sub, err := s.subscriptions.ActivateFromOrder(ctx, orderID, paymentID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID).Str("plan", sub.PlanID).Msg("Subscription activated")
	return sub, nil
}

// VerifySignature computes HMAC-SHA256 over "<orderID>|<paymentID>" with
// the key secret and compares in constant time.
func (s *Service) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// receipt builds the gateway receipt token, capped well under the 40-char
// gateway limit.
func receipt(userID string) string {
	uid := userID
	if len(uid) > 8 {
		uid = uid[:8]
	}
	ts := fmt.Sprintf("%d", time.Now().Unix())
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}
	return fmt.Sprintf("rcpt_%s_%s", uid, ts)
}
