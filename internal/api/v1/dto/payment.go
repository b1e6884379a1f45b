package dto

// CreateOrderRequest is the body of POST /payments/create-order.
type CreateOrderRequest struct {
	PlanID string `json:"planId" validate:"required"`
}

// VerifyPaymentRequest is the gateway callback relayed by the frontend
// after checkout completes.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}
