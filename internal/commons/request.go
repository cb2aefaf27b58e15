package commons

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	apperrors "zerox/internal/errors"
	"zerox/internal/infrastructure/logger"
)

const maxBodyBytes = 1 << 20

// TraceID returns the id assigned by the request logger, or a fresh one.
func TraceID(r *http.Request) string {
	if id := r.Header.Get(logger.TraceHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// DecodeJSON reads a bounded JSON body into dst. Unknown fields are allowed.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
	}
	return nil
}
