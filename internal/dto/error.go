package dto

import (
	"time"

	apperrors "zerox/internal/errors"
)

type ErrorResponse struct {
	TraceID   string                       `json:"traceId"`
	Status    int                          `json:"status"`
	Code      string                       `json:"code"`
	Message   string                       `json:"message"`
	Current   string                       `json:"current,omitempty"`
	Requested string                       `json:"requested,omitempty"`
	Missing   []string                     `json:"missing,omitempty"`
	Details   []apperrors.ValidationDetail `json:"details,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}
