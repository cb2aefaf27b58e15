package controller

import (
	"context"
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"zerox/internal/auth"
	"zerox/internal/commons"
	"zerox/internal/domain"
	"zerox/internal/dto"
	apperrors "zerox/internal/errors"
	"zerox/internal/files/service"
)

// WorkerKeyHeader carries the shared key of the storage worker.
const WorkerKeyHeader = "X-Worker-Key"

type Broker interface {
	RequestUploadGrant(ctx context.Context, principal domain.Principal) (*service.Grant, error)
	RequestDownloadGrant(ctx context.Context, principal domain.Principal, storageKey string) (*service.Grant, error)
	Redeem(ctx context.Context, token string) (*service.Redemption, error)
}

type FileController struct {
	broker    Broker
	workerKey []byte
	logger    *zap.Logger
}

func NewFileController(broker Broker, workerKey string, logger *zap.Logger) *FileController {
	return &FileController{broker: broker, workerKey: []byte(workerKey), logger: logger}
}

func (c *FileController) UploadGrant(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		commons.WriteError(w, traceID, apperrors.NewForbiddenError("no authenticated principal"), logger)
		return
	}

	grant, err := c.broker.RequestUploadGrant(r.Context(), principal)
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toGrantDTO(traceID, grant), logger)
}

func (c *FileController) DownloadGrant(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		commons.WriteError(w, traceID, apperrors.NewForbiddenError("no authenticated principal"), logger)
		return
	}

	var req dto.DownloadGrantRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	grant, err := c.broker.RequestDownloadGrant(r.Context(), principal, req.StorageKey)
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toGrantDTO(traceID, grant), logger)
}

// Redeem is called by the storage worker, never by end users.
func (c *FileController) Redeem(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	presented := []byte(r.Header.Get(WorkerKeyHeader))
	if len(c.workerKey) == 0 || subtle.ConstantTimeCompare(presented, c.workerKey) != 1 {
		logger.Warn("redeem rejected: bad worker key", zap.String("remoteAddr", r.RemoteAddr))
		commons.WriteError(w, traceID, apperrors.NewForbiddenError("caller is not the storage worker"), logger)
		return
	}

	var req dto.RedeemRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}
	if req.Token == "" {
		commons.WriteValidationError(w, traceID, "validation failed", logger, apperrors.ValidationDetail{
			Field:   "token",
			Message: "token is required",
		})
		return
	}

	redeemed, err := c.broker.Redeem(r.Context(), req.Token)
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, dto.RedeemResponse{
		Scope:      string(redeemed.Scope),
		Subject:    redeemed.Subject,
		StorageKey: redeemed.StorageKey,
	}, logger)
}

func toGrantDTO(traceID string, g *service.Grant) dto.GrantResponse {
	return dto.GrantResponse{
		TraceID:    traceID,
		Token:      g.Token,
		TargetURI:  g.TargetURI,
		StorageKey: g.StorageKey,
		ExpiresAt:  g.ExpiresAt,
	}
}
