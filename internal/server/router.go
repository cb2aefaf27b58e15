package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	filescontroller "zerox/internal/files/controller"
	"zerox/internal/infrastructure/logger"
	ordercontroller "zerox/internal/order/controller"
	paymentcontroller "zerox/internal/payment/controller"
)

// Authenticator turns a session token into a principal on the request context.
type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

type Controllers struct {
	Orders   *ordercontroller.OrderController
	Payments *paymentcontroller.PaymentController
	Files    *filescontroller.FileController
}

func NewRouter(ctrls Controllers, sessions Authenticator, verifyLimiter *ClientRateLimiter, zapLogger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLog(zapLogger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Credentialed by the gateway signature and the worker key.
		r.With(verifyLimiter.Middleware).Post("/payments/verify", ctrls.Payments.Verify)
		r.Post("/files/token/redeem", ctrls.Files.Redeem)

		r.Group(func(r chi.Router) {
			r.Use(sessions.Middleware)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/quote", ctrls.Orders.Quote)
				r.Post("/", ctrls.Orders.CreateOrder)
				r.Get("/my", ctrls.Orders.ListMyOrders)
				r.Get("/shop", ctrls.Orders.ListShopOrders)
				r.Get("/{orderId}", ctrls.Orders.GetOrder)
				r.Put("/{orderId}/status", ctrls.Orders.UpdateStatus)
			})

			r.Post("/payments", ctrls.Payments.Initiate)

			r.Post("/files/token/upload", ctrls.Files.UploadGrant)
			r.Post("/files/token/download", ctrls.Files.DownloadGrant)
		})
	})

	return r
}
