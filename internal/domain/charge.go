package domain

// ============================================================
// PIX charges
// ============================================================

// PIX charge statuses as reported by the gateway.
const (
	PixStatusActive    = "ATIVA"
	PixStatusConcluded = "CONCLUIDA"
)

// PixCharge represents an immediate PIX charge (cobrança) created at
// the gateway. The txid and location id are assigned by the gateway;
// the caller must persist the txid before treating the charge as
// in flight.
type PixCharge struct {
	TxID       string `json:"txid"`
	LocationID int64  `json:"locationId"`
	Status     string `json:"status"`
	Amount     string `json:"amount"` // decimal string, e.g. "49.90"
	PayerName  string `json:"payerName,omitempty"`
	PayerDoc   string `json:"payerDocument,omitempty"`
	CopyPaste  string `json:"copyPaste,omitempty"` // "copia e cola" payload
	ExpiresIn  int    `json:"expiresIn"`           // seconds from creation
}

// PixQRCode is the scannable representation of a PIX charge.
type PixQRCode struct {
	QRCode       string `json:"qrcode"`       // copy-paste string
	ImagemQRCode string `json:"imagemQrcode"` // base64-encoded PNG
}

// ============================================================
// Card / generic charges
// ============================================================

// Card charge statuses the gateway may report. "waiting" means the
// charge is under asynchronous anti-fraud review: non-terminal,
// pollable, not a failure.
const (
	CardStatusApproved = "approved"
	CardStatusWaiting  = "waiting"
	CardStatusUnpaid   = "unpaid"
	CardStatusPaid     = "paid"
)

// ChargeItem is a single line item of a card or generic charge.
// Value is in centavos.
type ChargeItem struct {
	Name   string `json:"name"`
	Value  int    `json:"value"`
	Amount int    `json:"amount"`
}

// Shipping is an optional freight line on a generic charge.
// Value is in centavos.
type Shipping struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// CardCustomer identifies the paying customer for a card charge.
type CardCustomer struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	CPF       string `json:"cpf"`
	BirthDate string `json:"birth,omitempty"` // YYYY-MM-DD
	Phone     string `json:"phoneNumber"`
}

// BillingAddress is the cardholder's billing address.
type BillingAddress struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	ZipCode      string `json:"zipcode"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// CardChargeRequest is the input for a one-step credit-card charge.
// PaymentToken is opaque and single-use, produced upstream by
// client-side tokenization.
type CardChargeRequest struct {
	Items          []ChargeItem   `json:"items"`
	Customer       CardCustomer   `json:"customer"`
	BillingAddress BillingAddress `json:"billingAddress"`
	PaymentToken   string         `json:"paymentToken"`
	Installments   int            `json:"installments"`
}

// CardCharge is the result of a one-step card charge.
type CardCharge struct {
	ChargeID int64  `json:"chargeId"`
	Status   string `json:"status"`
	Total    int    `json:"total"` // centavos
}

// Charge is a generic multi-item charge, used as the prerequisite for
// payment links.
type Charge struct {
	ChargeID int64  `json:"chargeId"`
	Status   string `json:"status"`
	Total    int    `json:"total"`
}

// PaymentLink is a hosted checkout page for an existing charge,
// accepting both boleto and card.
type PaymentLink struct {
	ChargeID      int64  `json:"chargeId"`
	PaymentLinkID int64  `json:"paymentLinkId"`
	PaymentURL    string `json:"paymentUrl"`
	ExpireAt      string `json:"expireAt"` // YYYY-MM-DD
}
