package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"zerox/internal/auth"
	"zerox/internal/commons"
	"zerox/internal/domain"
	"zerox/internal/dto"
	apperrors "zerox/internal/errors"
	"zerox/internal/pricing"
)

type OrderUseCase interface {
	Quote(ctx context.Context, principal domain.Principal, shopID string, specs []domain.FileSpec) (*pricing.Quote, error)
	CreateOrder(ctx context.Context, principal domain.Principal, shopID string, specs []domain.FileSpec) (*domain.Order, error)
	GetOrder(ctx context.Context, principal domain.Principal, orderID string) (*domain.Order, error)
	ListMyOrders(ctx context.Context, principal domain.Principal) ([]domain.Order, error)
	ListShopOrders(ctx context.Context, principal domain.Principal) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, principal domain.Principal, orderID string, requested string) (*domain.Order, error)
}

type OrderController struct {
	useCase OrderUseCase
	logger  *zap.Logger
}

func NewOrderController(useCase OrderUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *OrderController) Quote(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, req, ok := c.decodeCreate(w, r, traceID, logger)
	if !ok {
		return
	}

	quote, err := c.useCase.Quote(r.Context(), principal, req.ShopID, toSpecs(req.Files))
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	lines := make([]dto.QuoteLineDTO, len(quote.Lines))
	for i, l := range quote.Lines {
		lines[i] = dto.QuoteLineDTO{
			FileName:     l.File.FileName,
			PrintType:    string(l.File.PrintType),
			PaperSize:    string(l.File.PaperSize),
			Pages:        l.File.Pages,
			Copies:       l.File.Copies,
			PricePerPage: l.Rate.StringFixed(2),
			LineTotal:    l.LineTotal.StringFixed(2),
		}
	}

	commons.WriteJSON(w, http.StatusOK, dto.QuoteResponse{
		TraceID:     traceID,
		ShopID:      quote.ShopID,
		Lines:       lines,
		TotalAmount: quote.Total.StringFixed(2),
	}, logger)
}

func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, req, ok := c.decodeCreate(w, r, traceID, logger)
	if !ok {
		return
	}

	order, err := c.useCase.CreateOrder(r.Context(), principal, req.ShopID, toSpecs(req.Files))
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusCreated, dto.CreateOrderResponse{
		TraceID:     traceID,
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Status:      string(order.Status),
		Timestamp:   time.Now().UTC(),
	}, logger)
}

func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := c.principal(w, traceID, r, logger)
	if !ok {
		return
	}

	order, err := c.useCase.GetOrder(r.Context(), principal, chi.URLParam(r, "orderId"))
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, toOrderDTO(*order, principal.Role), logger)
}

func (c *OrderController) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, c.useCase.ListMyOrders)
}

func (c *OrderController) ListShopOrders(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, c.useCase.ListShopOrders)
}

func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := c.principal(w, traceID, r, logger)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		commons.WriteError(w, traceID, err, logger)
		return
	}

	order, err := c.useCase.UpdateStatus(r.Context(), principal, chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	commons.WriteJSON(w, http.StatusOK, dto.UpdateStatusResponse{
		TraceID:   traceID,
		OrderID:   order.ID,
		Status:    string(order.Status),
		Timestamp: time.Now().UTC(),
	}, logger)
}

func (c *OrderController) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, domain.Principal) ([]domain.Order, error)) {
	traceID := commons.TraceID(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := c.principal(w, traceID, r, logger)
	if !ok {
		return
	}

	orders, err := fetch(r.Context(), principal)
	if err != nil {
		commons.WriteError(w, traceID, err, logger)
		return
	}

	resp := dto.OrderListResponse{TraceID: traceID, Orders: make([]dto.OrderDTO, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderDTO(o, principal.Role))
	}
	commons.WriteJSON(w, http.StatusOK, resp, logger)
}

func (c *OrderController) decodeCreate(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger) (domain.Principal, dto.CreateOrderRequest, bool) {
	var req dto.CreateOrderRequest

	principal, ok := c.principal(w, traceID, r, logger)
	if !ok {
		return principal, req, false
	}

	if err := commons.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		commons.WriteError(w, traceID, err, logger)
		return principal, req, false
	}
	return principal, req, true
}

func (c *OrderController) principal(w http.ResponseWriter, traceID string, r *http.Request, logger *zap.Logger) (domain.Principal, bool) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		commons.WriteError(w, traceID, apperrors.NewForbiddenError("no authenticated principal"), logger)
	}
	return principal, ok
}

func toSpecs(files []dto.OrderFileRequest) []domain.FileSpec {
	specs := make([]domain.FileSpec, len(files))
	for i, f := range files {
		specs[i] = domain.FileSpec{
			StorageKey: f.StorageKey,
			FileName:   f.FileName,
			Pages:      f.Pages,
			PrintType:  f.PrintType,
			PaperSize:  f.PaperSize,
			Copies:     f.Copies,
			Sides:      f.Sides,
		}
	}
	return specs
}

func toOrderDTO(o domain.Order, viewer domain.Role) dto.OrderDTO {
	files := make([]dto.OrderFileDTO, len(o.Files))
	for i, f := range o.Files {
		files[i] = dto.OrderFileDTO{
			StorageKey: f.StorageKey,
			FileName:   f.FileName,
			Pages:      f.Pages,
			PrintType:  string(f.PrintType),
			PaperSize:  string(f.PaperSize),
			Copies:     f.Copies,
			Sides:      string(f.Sides),
		}
	}

	allowed := []string{}
	for _, s := range domain.AllowedTargets(o.Status, viewer) {
		allowed = append(allowed, string(s))
	}

	return dto.OrderDTO{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		ShopID:             o.ShopID,
		Status:             string(o.Status),
		TotalAmount:        o.TotalAmount.StringFixed(2),
		TotalPages:         o.TotalPages(),
		Files:              files,
		AllowedTransitions: allowed,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}
