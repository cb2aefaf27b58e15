package controller

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"zerox/internal/auth"
	"zerox/internal/commons"
	"zerox/internal/domain"
	"zerox/internal/dto"
	apperrors "zerox/internal/errors"
	"zerox/internal/payment/service"
)

type Reconciler interface {
	Initiate(ctx context.Context, principal domain.Principal, orderID string) (*service.Initiation, error)
	Verify(ctx context.Context, cb service.Callback) (*service.Verification, error)
}

type PaymentController struct {
	reconciler Reconciler
	logger     *zap.Logger
}

func NewPaymentController(reconciler Reconciler, logger *zap.Logger) *PaymentController {
	return &PaymentController{reconciler: reconciler, logger: logger}
}

func (c *PaymentController) Initiate(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		commons.WriteError(w, traceID, apperrors.NewForbiddenError("no authenticated principal"), logger)
		return
	}

	var req dto.InitiatePaymentRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}
	if req.OrderID == "" {
		commons.WriteValidationError(w, traceID, "validation failed", logger, apperrors.ValidationDetail{
			Field:   "order_id",
			Message: "order_id is required",
		})
		return
	}

	started, err := c.reconciler.Initiate(r.Context(), principal, req.OrderID)
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, dto.InitiatePaymentResponse{
		TraceID:          traceID,
		OrderID:          started.OrderID,
		GatewayIntentID:  started.GatewayOrderID,
		AmountMinorUnits: started.AmountMinorUnits,
		Currency:         started.Currency,
		GatewayPublicKey: started.PublicKey,
	}, logger)
}

// Verify handles the gateway callback. It is unauthenticated; the signature
// is the credential.
func (c *PaymentController) Verify(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.VerifyPaymentRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	result, err := c.reconciler.Verify(r.Context(), service.Callback{
		GatewayOrderID: req.GatewayIntentID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	})
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, dto.VerifyPaymentResponse{
		TraceID:         traceID,
		OrderID:         result.OrderID,
		Status:          string(result.Status),
		AlreadyVerified: result.AlreadyVerified,
	}, logger)
}
