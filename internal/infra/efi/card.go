package efi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/graficahorizonte/payments-go/internal/domain"
)

// defaultBirthDate is sent when the storefront has no birth date for
// the customer. The gateway requires the field; a real birth date
// supplied upstream always takes precedence.
const defaultBirthDate = "1990-01-01"

// paymentLinkDays is the default link validity when no expiry is given.
const paymentLinkDays = 3

// CreateOneStepCharge creates a credit-card charge in a single call
// using a pre-generated single-use payment token (client-side
// tokenization happens upstream). The resulting status may be
// "waiting" while the gateway's anti-fraud review runs; that is a
// valid, pollable state, not a failure.
func (c *Client) CreateOneStepCharge(ctx context.Context, req *domain.CardChargeRequest) (*domain.CardCharge, error) {
	ctx, span := tracer.Start(ctx, "Efi.CreateOneStepCharge")
	defer span.End()

	if req.PaymentToken == "" {
		return nil, &domain.ErrValidation{Field: "paymentToken", Message: "token de pagamento é obrigatório"}
	}
	if len(req.Items) == 0 {
		return nil, &domain.ErrValidation{Field: "items", Message: "pelo menos um item é obrigatório"}
	}

	installments := req.Installments
	if installments <= 0 {
		installments = 1
	}

	customer := &chargeCustomer{
		Name:        req.Customer.Name,
		Email:       req.Customer.Email,
		CPF:         domain.OnlyDigits(req.Customer.CPF),
		Birth:       req.Customer.BirthDate,
		PhoneNumber: domain.OnlyDigits(req.Customer.Phone),
	}
	if customer.Birth == "" {
		customer.Birth = defaultBirthDate
	}

	items := make([]chargeItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, chargeItem{Name: it.Name, Value: it.Value, Amount: it.Amount})
	}

	// The customer block appears twice on purpose: the gateway schema
	// wants it at the top level and inside payment.credit_card.
	body := oneStepRequest{
		Items:    items,
		Customer: customer,
		Payment: oneStepPayment{
			CreditCard: oneStepCreditCard{
				Installments: installments,
				PaymentToken: req.PaymentToken,
				BillingAddress: chargeBillingAddress{
					Street:       req.BillingAddress.Street,
					Number:       req.BillingAddress.Number,
					Neighborhood: req.BillingAddress.Neighborhood,
					ZipCode:      domain.OnlyDigits(req.BillingAddress.ZipCode),
					City:         req.BillingAddress.City,
					State:        req.BillingAddress.State,
				},
				Customer: customer,
			},
		},
	}

	data, err := c.chargeCall(ctx, "create_one_step_charge", http.MethodPost, "/v1/charge/one-step", body, false)
	if err != nil {
		c.logger.Error("efi: falha ao criar cobrança de cartão", zap.Error(err))
		return nil, fmt.Errorf("erro ao processar pagamento com cartão: %w", err)
	}

	span.SetAttributes(attribute.Int64("charge.id", data.ChargeID))
	c.logger.Info("efi: cobrança de cartão criada",
		zap.Int64("charge_id", data.ChargeID),
		zap.String("status", data.Status),
		zap.Int("installments", installments),
	)

	return &domain.CardCharge{
		ChargeID: data.ChargeID,
		Status:   data.Status,
		Total:    data.Total,
	}, nil
}

// CreateCharge creates a generic multi-item charge, the prerequisite
// for a payment link. shippings is optional freight; pass nil for none.
func (c *Client) CreateCharge(ctx context.Context, items []domain.ChargeItem, shippings []domain.Shipping) (*domain.Charge, error) {
	ctx, span := tracer.Start(ctx, "Efi.CreateCharge")
	defer span.End()

	if len(items) == 0 {
		return nil, &domain.ErrValidation{Field: "items", Message: "pelo menos um item é obrigatório"}
	}

	wireItems := make([]chargeItem, 0, len(items))
	for _, it := range items {
		wireItems = append(wireItems, chargeItem{Name: it.Name, Value: it.Value, Amount: it.Amount})
	}
	var wireShippings []shipping
	for _, sh := range shippings {
		wireShippings = append(wireShippings, shipping{Name: sh.Name, Value: sh.Value})
	}

	data, err := c.chargeCall(ctx, "create_charge", http.MethodPost, "/v1/charge", chargeRequest{Items: wireItems, Shippings: wireShippings}, false)
	if err != nil {
		c.logger.Error("efi: falha ao criar cobrança", zap.Error(err))
		return nil, fmt.Errorf("erro ao criar cobrança: %w", err)
	}

	return &domain.Charge{
		ChargeID: data.ChargeID,
		Status:   data.Status,
		Total:    data.Total,
	}, nil
}

// CreatePaymentLink creates a hosted payment page for an existing
// charge, accepting all payment methods (boleto and card). When
// expireAt is empty the link is valid for three days.
func (c *Client) CreatePaymentLink(ctx context.Context, chargeID int64, expireAt string) (*domain.PaymentLink, error) {
	ctx, span := tracer.Start(ctx, "Efi.CreatePaymentLink")
	defer span.End()
	span.SetAttributes(attribute.Int64("charge.id", chargeID))

	if expireAt == "" {
		expireAt = time.Now().AddDate(0, 0, paymentLinkDays).Format("2006-01-02")
	}

	body := paymentLinkRequest{
		ExpireAt:               expireAt,
		RequestDeliveryAddress: false,
		PaymentMethod:          "all",
	}

	path := fmt.Sprintf("/v1/charge/%d/link", chargeID)
	data, err := c.chargeCall(ctx, "create_payment_link", http.MethodPost, path, body, false)
	if err != nil {
		c.logger.Error("efi: falha ao criar link de pagamento",
			zap.Int64("charge_id", chargeID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("erro ao criar link de pagamento: %w", err)
	}

	return &domain.PaymentLink{
		ChargeID:      chargeID,
		PaymentLinkID: data.PaymentLinkID,
		PaymentURL:    data.PaymentURL,
		ExpireAt:      data.ExpireAt,
	}, nil
}

// GetChargeStatus fetches the current status of a card/generic charge.
func (c *Client) GetChargeStatus(ctx context.Context, chargeID int64) (string, error) {
	ctx, span := tracer.Start(ctx, "Efi.GetChargeStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("charge.id", chargeID))

	path := fmt.Sprintf("/v1/charge/%d", chargeID)
	data, err := c.chargeCall(ctx, "get_charge_status", http.MethodGet, path, nil, true)
	if err != nil {
		c.logger.Error("efi: falha ao consultar cobrança",
			zap.Int64("charge_id", chargeID),
			zap.Error(err),
		)
		return "", fmt.Errorf("erro ao consultar cobrança: %w", err)
	}
	return data.Status, nil
}

// chargeCall executes one /v1 request and unwraps the response
// envelope. A 2xx without a data object is an unexpected response and
// is surfaced as an error, never as partial success.
func (c *Client) chargeCall(ctx context.Context, operation, method, path string, body any, read bool) (*chargeData, error) {
	var envelope chargeEnvelope

	fn := func() error {
		respBody, err := c.doRequest(ctx, c.chargeAuth, c.chargeBaseURL, operation, method, path, body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("erro ao decodificar resposta: %w", err)
		}
		if envelope.Data == nil {
			return fmt.Errorf("resposta inesperada da API de cobrança: %s", string(respBody))
		}
		return nil
	}

	var err error
	if read {
		err = c.executeRead(ctx, fn)
	} else {
		err = c.execute(fn)
	}
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
