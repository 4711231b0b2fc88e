package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/graficahorizonte/payments-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Checkout & payment handlers
// ============================================================

func pixCheckoutHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/pix")
		defer span.End()

		var req service.PixCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CustomerID == "" {
			req.CustomerID = CustomerIDFromContext(ctx)
		}

		resp, err := svc.PixCheckout(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func cardCheckoutHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/card")
		defer span.End()

		var req service.CardCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CustomerID == "" {
			req.CustomerID = CustomerIDFromContext(ctx)
		}

		resp, err := svc.CardCheckout(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func paymentLinkHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payment-links")
		defer span.End()

		var req service.PaymentLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CustomerID == "" {
			req.CustomerID = CustomerIDFromContext(ctx)
		}

		link, err := svc.CreatePaymentLink(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, link)
	}
}

func paymentStatusHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payments/{orderId}")
		defer span.End()

		orderID := chi.URLParam(r, "orderId")
		status, err := svc.PaymentStatus(ctx, orderID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, status)
	}
}

func pixQRCodeHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pix/{txid}/qrcode")
		defer span.End()

		txid := chi.URLParam(r, "txid")
		qr, err := svc.GetQRCode(ctx, txid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, qr)
	}
}

func listOrdersHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders")
		defer span.End()

		customerID := r.URL.Query().Get("customerId")
		if customerID == "" {
			customerID = CustomerIDFromContext(ctx)
		}
		page, pageSize := parsePagination(r)

		refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

		var err error
		var orders any
		if refresh {
			orders, err = svc.RefreshPendingOrders(ctx, customerID, page, pageSize)
		} else {
			orders, err = svc.ListOrders(ctx, customerID, page, pageSize)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}
