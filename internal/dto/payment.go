package dto

type InitiatePaymentRequest struct {
	OrderID string `json:"order_id"`
}

type InitiatePaymentResponse struct {
	TraceID          string `json:"traceId"`
	OrderID          string `json:"order_id"`
	GatewayIntentID  string `json:"gateway_intent_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Currency         string `json:"currency"`
	GatewayPublicKey string `json:"gateway_public_key"`
}

// VerifyPaymentRequest accepts the field names the gateway checkout posts.
type VerifyPaymentRequest struct {
	GatewayIntentID string `json:"razorpay_order_id"`
	PaymentID       string `json:"razorpay_payment_id"`
	Signature       string `json:"razorpay_signature"`
}

type VerifyPaymentResponse struct {
	TraceID         string `json:"traceId"`
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
	AlreadyVerified bool   `json:"already_verified"`
}
