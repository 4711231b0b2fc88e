package handler

import (
	"net/http"

	"github.com/graficahorizonte/payments-go/internal/infra/observability"
	"github.com/graficahorizonte/payments-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Checkout routes require a storefront session token; operational
// endpoints are open.
func NewRouter(svc *service.CheckoutService, sessions *service.SessionValidator, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/payments", paymentsMetricsHandler(metrics))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(sessions, logger))

			// Checkout
			r.Post("/checkout/pix", pixCheckoutHandler(svc, logger))
			r.Post("/checkout/card", cardCheckoutHandler(svc, logger))
			r.Post("/payment-links", paymentLinkHandler(svc, logger))

			// Tracking
			r.Get("/payments/{orderId}", paymentStatusHandler(svc, logger))
			r.Get("/pix/{txid}/qrcode", pixQRCodeHandler(svc, logger))
			r.Get("/orders", listOrdersHandler(svc, logger))
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func paymentsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPaymentsSnapshot())
	}
}
