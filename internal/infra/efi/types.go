package efi

// Wire types for the Efí gateway. Field names and nesting follow the
// gateway's schema exactly and must round-trip unchanged.

// ==================== PIX (/v2) ====================

type pixCalendario struct {
	Criacao   string `json:"criacao,omitempty"`
	Expiracao int    `json:"expiracao"` // seconds until the charge expires
}

type pixDevedor struct {
	CPF  string `json:"cpf,omitempty"`
	CNPJ string `json:"cnpj,omitempty"`
	Nome string `json:"nome"`
}

type pixValor struct {
	Original string `json:"original"` // decimal string, e.g. "49.90"
}

type pixCobRequest struct {
	Calendario pixCalendario `json:"calendario"`
	Devedor    *pixDevedor   `json:"devedor,omitempty"`
	Valor      pixValor      `json:"valor"`
	Chave      string        `json:"chave"` // merchant's PIX key
}

type pixLoc struct {
	ID       int64  `json:"id"`
	Location string `json:"location,omitempty"`
	TipoCob  string `json:"tipoCob,omitempty"`
}

type pixCobResponse struct {
	Calendario    pixCalendario `json:"calendario"`
	TxID          string        `json:"txid"`
	Revisao       int           `json:"revisao"`
	Loc           *pixLoc       `json:"loc,omitempty"`
	Status        string        `json:"status"`
	Devedor       *pixDevedor   `json:"devedor,omitempty"`
	Valor         pixValor      `json:"valor"`
	Chave         string        `json:"chave"`
	PixCopiaECola string        `json:"pixCopiaECola,omitempty"`
}

type qrCodeResponse struct {
	QRCode       string `json:"qrcode"`       // copy-paste string
	ImagemQRCode string `json:"imagemQrcode"` // base64 PNG
}

// ==================== Charges (/v1) ====================

type chargeItem struct {
	Name   string `json:"name"`
	Value  int    `json:"value"` // centavos
	Amount int    `json:"amount"`
}

type chargeCustomer struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	CPF         string `json:"cpf"`
	Birth       string `json:"birth"`
	PhoneNumber string `json:"phone_number"`
}

type chargeBillingAddress struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	ZipCode      string `json:"zipcode"`
	City         string `json:"city"`
	State        string `json:"state"`
}

type oneStepCreditCard struct {
	Installments   int                  `json:"installments"`
	PaymentToken   string               `json:"payment_token"`
	BillingAddress chargeBillingAddress `json:"billing_address"`
	Customer       *chargeCustomer      `json:"customer"`
}

type oneStepPayment struct {
	CreditCard oneStepCreditCard `json:"credit_card"`
}

// oneStepRequest carries the customer block twice: at the top level
// and inside payment.credit_card. That is the gateway's schema, not a
// mistake, and both copies must be sent.
type oneStepRequest struct {
	Items    []chargeItem    `json:"items"`
	Customer *chargeCustomer `json:"customer"`
	Payment  oneStepPayment  `json:"payment"`
}

type chargeRequest struct {
	Items     []chargeItem `json:"items"`
	Shippings []shipping   `json:"shippings,omitempty"`
}

type shipping struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type paymentLinkRequest struct {
	ExpireAt               string `json:"expire_at"` // YYYY-MM-DD
	RequestDeliveryAddress bool   `json:"request_delivery_address"`
	PaymentMethod          string `json:"payment_method"` // "all" permits boleto and card
}

type chargeData struct {
	ChargeID      int64  `json:"charge_id"`
	Status        string `json:"status"`
	Total         int    `json:"total"`
	PaymentURL    string `json:"payment_url,omitempty"`
	PaymentLinkID int64  `json:"payment_link_id,omitempty"`
	ExpireAt      string `json:"expire_at,omitempty"`
}

// chargeEnvelope wraps every /v1 response. A 2xx without a data object
// is treated as an unexpected response, never as success.
type chargeEnvelope struct {
	Code int         `json:"code"`
	Data *chargeData `json:"data"`
}
