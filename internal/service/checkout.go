package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/graficahorizonte/payments-go/internal/domain"
	"github.com/graficahorizonte/payments-go/internal/infra/observability"
	"github.com/graficahorizonte/payments-go/internal/port"
)

var tracer = otel.Tracer("service")

// CheckoutService orchestrates order creation against the gateway
// clients and the order store. It owns the write ordering that keeps
// charges trackable: order row first, charge second, identifier
// persisted immediately after the gateway returns it.
//
// Nothing here retries a charge creation. Any error aborts the
// checkout with the order left pending; the caller must not assume a
// financial state change occurred.
type CheckoutService struct {
	pix     port.PixCharger
	card    port.CardCharger
	orders  port.OrderStore
	qrCache port.Cache[domain.PixQRCode]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCheckoutService wires the checkout orchestrator.
func NewCheckoutService(pix port.PixCharger, card port.CardCharger, orders port.OrderStore, qrCache port.Cache[domain.PixQRCode], metrics *observability.Metrics, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		pix:     pix,
		card:    card,
		orders:  orders,
		qrCache: qrCache,
		metrics: metrics,
		logger:  logger,
	}
}

// PixCheckoutRequest is the storefront's input for a PIX checkout.
type PixCheckoutRequest struct {
	CustomerID     string `json:"customerId"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	Document       string `json:"document"`
	Name           string `json:"name"`
	Amount         string `json:"amount"` // decimal string, e.g. "49.90"
}

// PixCheckoutResponse carries everything the storefront renders on the
// payment screen.
type PixCheckoutResponse struct {
	OrderID string            `json:"orderId"`
	TxID    string            `json:"txid"`
	Status  string            `json:"status"`
	Amount  string            `json:"amount"`
	QRCode  *domain.PixQRCode `json:"qrCode"`
}

// PixCheckout runs the full PIX flow: order row, charge, txid
// persisted, QR code fetched.
func (s *CheckoutService) PixCheckout(ctx context.Context, req *PixCheckoutRequest) (*PixCheckoutResponse, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.PixCheckout")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", req.CustomerID))

	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("pix_checkout", time.Since(start)) }()

	// Validate before the order row exists: a malformed document must
	// not leave a pending order behind.
	if _, _, err := domain.ClassifyDocument(req.Document); err != nil {
		return nil, err
	}
	if req.Amount == "" {
		return nil, &domain.ErrValidation{Field: "amount", Message: "valor é obrigatório"}
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}

	order, err := s.orders.CreateOrder(ctx, &domain.OrderRequest{
		IdempotencyKey: key,
		CustomerID:     req.CustomerID,
		Method:         domain.PaymentMethodPix,
		Amount:         req.Amount,
	})
	if err != nil {
		return nil, err
	}

	charge, err := s.pix.CreatePixCharge(ctx, req.Document, req.Name, req.Amount)
	if err != nil {
		s.metrics.IncrCharge(domain.PaymentMethodPix, "error")
		s.logger.Error("pix checkout failed at charge creation",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.IncrCharge(domain.PaymentMethodPix, "success")

	// The txid must hit the database before the checkout is considered
	// in flight. Losing it would orphan a live charge.
	if err := s.orders.AttachCharge(ctx, order.ID, charge.TxID, 0, "", domain.OrderStatusPending); err != nil {
		s.logger.Error("charge created but not persisted; manual reconciliation needed",
			zap.String("order_id", order.ID),
			zap.String("txid", charge.TxID),
			zap.Error(err),
		)
		return nil, err
	}

	qr, err := s.fetchQRCode(ctx, charge.LocationID)
	if err != nil {
		// The charge exists and is tracked; the storefront can retry
		// the QR fetch on its own.
		s.logger.Warn("qr code fetch failed after charge creation",
			zap.String("txid", charge.TxID),
			zap.Error(err),
		)
		return nil, err
	}

	return &PixCheckoutResponse{
		OrderID: order.ID,
		TxID:    charge.TxID,
		Status:  charge.Status,
		Amount:  charge.Amount,
		QRCode:  qr,
	}, nil
}

// fetchQRCode returns the QR for a location, from cache when possible.
// QR codes are immutable per location id.
func (s *CheckoutService) fetchQRCode(ctx context.Context, locationID int64) (*domain.PixQRCode, error) {
	key := fmt.Sprintf("loc:%d", locationID)
	if qr, ok := s.qrCache.Get(key); ok {
		s.metrics.IncrCacheHit("qrcode")
		return &qr, nil
	}
	s.metrics.IncrCacheMiss("qrcode")

	qr, err := s.pix.GetQRCode(ctx, locationID)
	if err != nil {
		return nil, err
	}
	s.qrCache.Set(key, *qr)
	return qr, nil
}

// GetQRCode exposes the cached QR fetch for re-rendering the payment
// screen without a new charge.
func (s *CheckoutService) GetQRCode(ctx context.Context, txid string) (*domain.PixQRCode, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.GetQRCode")
	defer span.End()

	charge, err := s.pix.GetPixStatus(ctx, txid)
	if err != nil {
		return nil, err
	}
	// A charge without a loc block has no QR code; asking the gateway
	// for location 0 would be a bogus request.
	if charge.LocationID == 0 {
		return nil, &domain.ErrNotFound{Resource: "qr code location for charge", ID: txid}
	}
	return s.fetchQRCode(ctx, charge.LocationID)
}

// CardCheckoutRequest is the storefront's input for a card checkout.
type CardCheckoutRequest struct {
	CustomerID     string                   `json:"customerId"`
	IdempotencyKey string                   `json:"idempotencyKey,omitempty"`
	Charge         domain.CardChargeRequest `json:"charge"`
}

// CardCheckoutResponse is returned by the card checkout flow.
type CardCheckoutResponse struct {
	OrderID  string `json:"orderId"`
	ChargeID int64  `json:"chargeId"`
	Status   string `json:"status"`
	Total    int    `json:"total"`
}

// CardCheckout runs the one-step card flow. A "waiting" status is a
// success: the charge is under anti-fraud review and will settle (or
// not) asynchronously.
func (s *CheckoutService) CardCheckout(ctx context.Context, req *CardCheckoutRequest) (*CardCheckoutResponse, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.CardCheckout")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", req.CustomerID))

	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("card_checkout", time.Since(start)) }()

	total := 0
	for _, it := range req.Charge.Items {
		total += it.Value * it.Amount
	}
	if total <= 0 {
		return nil, &domain.ErrValidation{Field: "items", Message: "valor total deve ser maior que zero"}
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}

	order, err := s.orders.CreateOrder(ctx, &domain.OrderRequest{
		IdempotencyKey: key,
		CustomerID:     req.CustomerID,
		Method:         domain.PaymentMethodCard,
		Amount:         centsToDecimal(total),
	})
	if err != nil {
		return nil, err
	}

	charge, err := s.card.CreateOneStepCharge(ctx, &req.Charge)
	if err != nil {
		s.metrics.IncrCharge(domain.PaymentMethodCard, "error")
		s.logger.Error("card checkout failed at charge creation",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.IncrCharge(domain.PaymentMethodCard, "success")

	status := domain.OrderStatusWaiting
	if charge.Status == domain.CardStatusApproved || charge.Status == domain.CardStatusPaid {
		status = domain.OrderStatusPaid
	}
	if err := s.orders.AttachCharge(ctx, order.ID, "", charge.ChargeID, "", status); err != nil {
		s.logger.Error("charge created but not persisted; manual reconciliation needed",
			zap.String("order_id", order.ID),
			zap.Int64("charge_id", charge.ChargeID),
			zap.Error(err),
		)
		return nil, err
	}

	return &CardCheckoutResponse{
		OrderID:  order.ID,
		ChargeID: charge.ChargeID,
		Status:   charge.Status,
		Total:    charge.Total,
	}, nil
}

// PaymentLinkRequest is the input to create a boleto/card payment link.
type PaymentLinkRequest struct {
	CustomerID     string `json:"customerId"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	Title          string `json:"title"`
	PriceCents     int    `json:"priceCents"`
	ShippingCents  int    `json:"shippingCents,omitempty"`
	ExpireAt       string `json:"expireAt,omitempty"` // YYYY-MM-DD, default now+3d
}

// CreatePaymentLink creates the prerequisite charge and then the link.
func (s *CheckoutService) CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*domain.PaymentLink, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.CreatePaymentLink")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("payment_link", time.Since(start)) }()

	if req.Title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "título é obrigatório"}
	}
	if req.PriceCents <= 0 {
		return nil, &domain.ErrValidation{Field: "priceCents", Message: "preço deve ser maior que zero"}
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}

	order, err := s.orders.CreateOrder(ctx, &domain.OrderRequest{
		IdempotencyKey: key,
		CustomerID:     req.CustomerID,
		Method:         domain.PaymentMethodLink,
		Amount:         centsToDecimal(req.PriceCents + req.ShippingCents),
	})
	if err != nil {
		return nil, err
	}

	var shippings []domain.Shipping
	if req.ShippingCents > 0 {
		shippings = []domain.Shipping{{Name: "frete", Value: req.ShippingCents}}
	}
	charge, err := s.card.CreateCharge(ctx, []domain.ChargeItem{
		{Name: req.Title, Value: req.PriceCents, Amount: 1},
	}, shippings)
	if err != nil {
		s.metrics.IncrCharge(domain.PaymentMethodLink, "error")
		return nil, err
	}

	link, err := s.card.CreatePaymentLink(ctx, charge.ChargeID, req.ExpireAt)
	if err != nil {
		s.metrics.IncrCharge(domain.PaymentMethodLink, "error")
		s.logger.Error("charge created but link creation failed",
			zap.String("order_id", order.ID),
			zap.Int64("charge_id", charge.ChargeID),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.IncrCharge(domain.PaymentMethodLink, "success")

	if err := s.orders.AttachCharge(ctx, order.ID, "", charge.ChargeID, link.PaymentURL, domain.OrderStatusPending); err != nil {
		s.logger.Error("link created but not persisted; manual reconciliation needed",
			zap.String("order_id", order.ID),
			zap.Int64("charge_id", charge.ChargeID),
			zap.Error(err),
		)
		return nil, err
	}

	return link, nil
}

// PaymentStatus merges the order row with the live gateway status.
// The order row is updated when the gateway reports the charge settled.
func (s *CheckoutService) PaymentStatus(ctx context.Context, orderID string) (*domain.PaymentStatus, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.PaymentStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	gatewayStatus, err := s.gatewayStatus(ctx, order)
	if err != nil {
		return nil, err
	}

	paid := gatewayStatus == domain.PixStatusConcluded ||
		gatewayStatus == domain.CardStatusPaid ||
		gatewayStatus == domain.CardStatusApproved

	if paid && order.Status != domain.OrderStatusPaid {
		if err := s.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPaid); err != nil {
			// The gateway state is authoritative; report it even when
			// the local update lags.
			s.logger.Warn("failed to mark order paid",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		} else {
			order.Status = domain.OrderStatusPaid
		}
	}

	return &domain.PaymentStatus{
		Order:         order,
		GatewayStatus: gatewayStatus,
		Paid:          paid,
	}, nil
}

// gatewayStatus asks the gateway for the live state of the order's
// charge, routed by payment method.
func (s *CheckoutService) gatewayStatus(ctx context.Context, order *domain.Order) (string, error) {
	switch order.Method {
	case domain.PaymentMethodPix:
		if order.TxID == "" {
			return "", &domain.ErrNotFound{Resource: "pix charge for order", ID: order.ID}
		}
		charge, err := s.pix.GetPixStatus(ctx, order.TxID)
		if err != nil {
			return "", err
		}
		return charge.Status, nil
	default:
		if order.ChargeID == 0 {
			return "", &domain.ErrNotFound{Resource: "charge for order", ID: order.ID}
		}
		return s.card.GetChargeStatus(ctx, order.ChargeID)
	}
}

// ListOrders returns a customer's orders.
func (s *CheckoutService) ListOrders(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.ListOrders")
	defer span.End()

	return s.orders.ListOrders(ctx, customerID, page, pageSize)
}

// RefreshPendingOrders polls the gateway for every non-terminal order
// of a customer, concurrently, and settles the ones the gateway
// reports as paid. Used by the storefront's order history page.
func (s *CheckoutService) RefreshPendingOrders(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.RefreshPendingOrders")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	orders, err := s.orders.ListOrders(ctx, customerID, page, pageSize)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i := range orders {
		if orders[i].Status == domain.OrderStatusPaid || orders[i].Status == domain.OrderStatusCanceled {
			continue
		}
		order := &orders[i]
		g.Go(func() error {
			status, err := s.gatewayStatus(gCtx, order)
			if err != nil {
				// One unreachable charge must not hide the rest of the
				// history; the stale local status is still shown.
				s.logger.Warn("status refresh failed",
					zap.String("order_id", order.ID),
					zap.Error(err),
				)
				return nil
			}
			if status == domain.PixStatusConcluded || status == domain.CardStatusPaid || status == domain.CardStatusApproved {
				if err := s.orders.UpdateOrderStatus(gCtx, order.ID, domain.OrderStatusPaid); err == nil {
					order.Status = domain.OrderStatusPaid
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return orders, nil
}

// centsToDecimal renders centavos as the gateway's decimal string
// format, e.g. 4990 → "49.90".
func centsToDecimal(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
