package commons

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"zerox/internal/dto"
	apperrors "zerox/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// WriteError maps the error taxonomy onto HTTP. Unknown errors are logged and
// reported as INTERNAL_ERROR without leaking their message.
func WriteError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	resp := dto.ErrorResponse{
		TraceID:   traceID,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}

	if ve, ok := apperrors.IsValidationError(err); ok {
		resp.Status, resp.Code, resp.Details = http.StatusBadRequest, "VALIDATION_ERROR", ve.Details
	} else if _, ok := apperrors.IsEmptyOrderError(err); ok {
		resp.Status, resp.Code = http.StatusBadRequest, "EMPTY_ORDER"
	} else if mre, ok := apperrors.IsMissingRateError(err); ok {
		resp.Status, resp.Code = http.StatusUnprocessableEntity, "MISSING_RATE"
		resp.Missing = []string{mre.PrintType + "/" + mre.PaperSize}
	} else if irc, ok := apperrors.IsIncompleteRateCardError(err); ok {
		resp.Status, resp.Code, resp.Missing = http.StatusUnprocessableEntity, "INCOMPLETE_RATE_CARD", irc.Missing
	} else if _, ok := apperrors.IsNotFoundError(err); ok {
		resp.Status, resp.Code = http.StatusNotFound, "NOT_FOUND"
	} else if _, ok := apperrors.IsForbiddenError(err); ok {
		resp.Status, resp.Code = http.StatusForbidden, "FORBIDDEN"
	} else if ite, ok := apperrors.IsInvalidTransitionError(err); ok {
		resp.Status, resp.Code = http.StatusUnprocessableEntity, "INVALID_TRANSITION"
		resp.Current, resp.Requested = ite.Current, ite.Requested
	} else if ise, ok := apperrors.IsInvalidStateError(err); ok {
		resp.Status, resp.Code, resp.Current = http.StatusConflict, "INVALID_STATE", ise.Current
	} else if ce, ok := apperrors.IsConflictError(err); ok {
		resp.Status, resp.Code, resp.Current = http.StatusConflict, "CONFLICT", ce.Current
	} else if _, ok := apperrors.IsSignatureMismatchError(err); ok {
		resp.Status, resp.Code = http.StatusBadRequest, "SIGNATURE_MISMATCH"
	} else if _, ok := apperrors.IsUpstreamUnavailableError(err); ok {
		resp.Status, resp.Code = http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"
		w.Header().Set("Retry-After", "5")
	} else {
		logger.Error("unexpected error", zap.String("traceId", traceID), zap.Error(err))
		resp.Status, resp.Code, resp.Message = http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred"
	}

	WriteJSON(w, resp.Status, resp, logger)
}

func WriteValidationError(w http.ResponseWriter, traceID string, message string, logger *zap.Logger, details ...apperrors.ValidationDetail) {
	WriteError(w, traceID, apperrors.NewValidationError(message, details...), logger)
}
