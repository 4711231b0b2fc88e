// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/graficahorizonte/payments-go/internal/domain"
)

// PixCharger creates and tracks immediate PIX charges at the gateway.
type PixCharger interface {
	// CreatePixCharge validates the payer document (11 digits → CPF,
	// 14 → CNPJ, anything else fails before any network call) and
	// creates an immediate charge with a 3600s expiration window.
	CreatePixCharge(ctx context.Context, document, name, amount string) (*domain.PixCharge, error)

	// GetQRCode fetches the QR code for a charge's location id.
	GetQRCode(ctx context.Context, locationID int64) (*domain.PixQRCode, error)

	// GetPixStatus fetches the current charge state by txid. No
	// polling loop: cadence and terminal-state detection are the
	// caller's job.
	GetPixStatus(ctx context.Context, txid string) (*domain.PixCharge, error)
}

// CardCharger creates card charges and payment links at the gateway.
type CardCharger interface {
	CreateOneStepCharge(ctx context.Context, req *domain.CardChargeRequest) (*domain.CardCharge, error)
	CreateCharge(ctx context.Context, items []domain.ChargeItem, shippings []domain.Shipping) (*domain.Charge, error)
	CreatePaymentLink(ctx context.Context, chargeID int64, expireAt string) (*domain.PaymentLink, error)
	GetChargeStatus(ctx context.Context, chargeID int64) (string, error)
}

// OrderStore persists checkout orders. Implemented by the Supabase
// adapter (or any other persistence layer).
type OrderStore interface {
	CreateOrder(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error)
	AttachCharge(ctx context.Context, orderID string, txid string, chargeID int64, paymentURL, status string) error
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
	ListOrders(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
