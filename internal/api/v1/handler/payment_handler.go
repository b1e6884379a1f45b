package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"voicecast/internal/api/v1/dto"
	"voicecast/internal/middleware"
	"voicecast/internal/payment"
	"voicecast/internal/plan"
	"voicecast/internal/repository"
)

// PaymentHandler serves checkout and payment verification.
type PaymentHandler struct {
	payments   *payment.Service
	validate   *validator.Validate
	production bool
	logger     zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *payment.Service, validate *validator.Validate, production bool, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, validate: validate, production: production, logger: logger}
}

// RegisterRoutes registers the payment endpoints. Both require auth.
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/payments/create-order", authMw(http.HandlerFunc(h.createOrder)))
	mux.Handle("/payments/verify", authMw(http.HandlerFunc(h.verify)))
}

// createOrder godoc
// @Summary Open checkout for a paid plan
// @Description Creates a gateway order and a pending payment record.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body dto.CreateOrderRequest true "Order request"
// @Success 200 {object} payment.Order
// @Failure 400 {string} string "unknown or free plan"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to create order"
// @Router /payments/create-order [post]
func (h *PaymentHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON payload", Details: h.details(err)})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Kind: "invalid_input", Details: h.details(err)})
		return
	}
	if !h.payments.Configured() {
		writeError(w, http.StatusServiceUnavailable, errorBody{Error: "Payments are not configured", Kind: "payments_unavailable"})
		return
	}

	order, err := h.payments.CreateOrder(r.Context(), userID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, plan.ErrPlanNotFound):
			writeError(w, http.StatusBadRequest, errorBody{Error: "Unknown plan", Kind: "plan_not_found"})
		case errors.Is(err, payment.ErrNotPurchasable):
			writeError(w, http.StatusBadRequest, errorBody{Error: "Plan has nothing to purchase", Kind: "plan_not_purchasable"})
		default:
			h.logger.Error().Err(err).Str("plan", req.PlanID).Msg("Failed to create checkout order")
			writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to create order", Details: h.details(err)})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}

// verify godoc
// @Summary Verify a gateway payment and activate the subscription
// @Description Checks the callback signature and swaps the user onto the paid plan.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body dto.VerifyPaymentRequest true "Gateway callback fields"
// @Success 200 {object} map[string]any "activated subscription"
// @Failure 400 {string} string "signature mismatch or unknown order"
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "order already processed"
// @Failure 500 {string} string "activation failed"
// @Router /payments/verify [post]
func (h *PaymentHandler) verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.VerifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON payload", Details: h.details(err)})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Kind: "invalid_input", Details: h.details(err)})
		return
	}

	sub, err := h.payments.VerifyPayment(r.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrSignatureMismatch):
			writeError(w, http.StatusBadRequest, errorBody{Error: "Payment signature verification failed", Kind: "signature_mismatch"})
		case errors.Is(err, repository.ErrOrderNotFound):
			writeError(w, http.StatusBadRequest, errorBody{Error: "Unknown payment order", Kind: "order_not_found"})
		case errors.Is(err, repository.ErrOrderAlreadyProcessed):
			writeError(w, http.StatusConflict, errorBody{Error: "Payment already processed", Kind: "order_already_processed"})
		default:
			h.logger.Error().Err(err).Str("order_id", req.OrderID).Msg("Payment verification failed")
			writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to verify payment", Details: h.details(err)})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"subscription": sub,
	})
}

func (h *PaymentHandler) details(err error) string {
	if h.production {
		return ""
	}
	return err.Error()
}
