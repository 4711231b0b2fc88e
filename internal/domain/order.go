package domain

import "time"

// Payment methods an order can be settled with.
const (
	PaymentMethodPix  = "pix"
	PaymentMethodCard = "credit_card"
	PaymentMethodLink = "payment_link"
)

// Order statuses tracked by the storefront. An order only moves to
// "paid" after the gateway reports the charge as settled.
const (
	OrderStatusPending  = "pending"
	OrderStatusWaiting  = "waiting" // card charge under anti-fraud review
	OrderStatusPaid     = "paid"
	OrderStatusCanceled = "canceled"
)

// Order is the storefront's record of a checkout. The row is created
// before the gateway is called and the charge identifier is attached
// immediately after the gateway returns it, so a charge never exists
// without a durable pointer to it.
type Order struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	CustomerID     string    `json:"customer_id"`
	Method         string    `json:"method"`
	Amount         string    `json:"amount"` // decimal string, e.g. "49.90"
	Status         string    `json:"status"`
	TxID           string    `json:"txid,omitempty"`       // PIX charges
	ChargeID       int64     `json:"charge_id,omitempty"`  // card/link charges
	PaymentURL     string    `json:"payment_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// OrderRequest is the input to create an order row.
type OrderRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	CustomerID     string `json:"customer_id"`
	Method         string `json:"method"`
	Amount         string `json:"amount"`
}

// PaymentStatus is the merged view of an order row and the live
// gateway status of its charge.
type PaymentStatus struct {
	Order         *Order `json:"order"`
	GatewayStatus string `json:"gatewayStatus"`
	Paid          bool   `json:"paid"`
}
