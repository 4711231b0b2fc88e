package efi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/graficahorizonte/payments-go/internal/domain"
)

// pixExpirationSeconds is the fixed expiration window for immediate
// charges. After it elapses with no payment the charge silently
// expires at the gateway; callers infer that from elapsed time.
const pixExpirationSeconds = 3600

// CreatePixCharge creates an immediate PIX charge for the given payer.
// The document is classified before anything touches the network:
// 11 digits go to devedor.cpf, 14 to devedor.cnpj, anything else is a
// validation error. amount is a decimal string like "49.90".
//
// The returned charge's LocationID is required to fetch the QR code.
func (c *Client) CreatePixCharge(ctx context.Context, document, name, amount string) (*domain.PixCharge, error) {
	ctx, span := tracer.Start(ctx, "Efi.CreatePixCharge")
	defer span.End()

	kind, digits, err := domain.ClassifyDocument(document)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("document.kind", string(kind)))

	devedor := &pixDevedor{Nome: name}
	switch kind {
	case domain.DocumentCPF:
		devedor.CPF = digits
	case domain.DocumentCNPJ:
		devedor.CNPJ = digits
	}

	reqBody := pixCobRequest{
		Calendario: pixCalendario{Expiracao: pixExpirationSeconds},
		Devedor:    devedor,
		Valor:      pixValor{Original: amount},
		Chave:      c.pixKey,
	}

	var cob pixCobResponse
	err = c.execute(func() error {
		body, err := c.doRequest(ctx, c.pixAuth, c.pixBaseURL, "create_pix_charge", http.MethodPost, "/v2/cob", reqBody)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &cob)
	})
	if err != nil {
		c.logger.Error("efi: falha ao criar cobrança PIX",
			zap.String("document_kind", string(kind)),
			zap.String("amount", amount),
			zap.Error(err),
		)
		return nil, fmt.Errorf("erro ao gerar cobrança PIX: %w", err)
	}

	charge := toPixCharge(&cob)
	c.logger.Info("efi: cobrança PIX criada",
		zap.String("txid", charge.TxID),
		zap.Int64("location_id", charge.LocationID),
		zap.String("status", charge.Status),
	)
	return charge, nil
}

// GetQRCode fetches the QR code (copy-paste string + base64 PNG) for a
// charge's location id.
func (c *Client) GetQRCode(ctx context.Context, locationID int64) (*domain.PixQRCode, error) {
	ctx, span := tracer.Start(ctx, "Efi.GetQRCode")
	defer span.End()
	span.SetAttributes(attribute.Int64("location.id", locationID))

	var qr qrCodeResponse
	err := c.executeRead(ctx, func() error {
		path := fmt.Sprintf("/v2/loc/%d/qrcode", locationID)
		body, err := c.doRequest(ctx, c.pixAuth, c.pixBaseURL, "get_qrcode", http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &qr)
	})
	if err != nil {
		c.logger.Error("efi: falha ao obter QR code",
			zap.Int64("location_id", locationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("erro ao obter QR code: %w", err)
	}

	return &domain.PixQRCode{
		QRCode:       qr.QRCode,
		ImagemQRCode: qr.ImagemQRCode,
	}, nil
}

// GetPixStatus fetches the current state of a charge by txid. Polling
// cadence and terminal-state detection are the caller's concern.
func (c *Client) GetPixStatus(ctx context.Context, txid string) (*domain.PixCharge, error) {
	ctx, span := tracer.Start(ctx, "Efi.GetPixStatus")
	defer span.End()
	span.SetAttributes(attribute.String("txid", txid))

	var cob pixCobResponse
	err := c.executeRead(ctx, func() error {
		body, err := c.doRequest(ctx, c.pixAuth, c.pixBaseURL, "get_pix_status", http.MethodGet, "/v2/cob/"+txid, nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &cob)
	})
	if err != nil {
		c.logger.Error("efi: falha ao consultar cobrança PIX",
			zap.String("txid", txid),
			zap.Error(err),
		)
		return nil, fmt.Errorf("erro ao consultar cobrança PIX: %w", err)
	}

	return toPixCharge(&cob), nil
}

func toPixCharge(cob *pixCobResponse) *domain.PixCharge {
	charge := &domain.PixCharge{
		TxID:      cob.TxID,
		Status:    cob.Status,
		Amount:    cob.Valor.Original,
		CopyPaste: cob.PixCopiaECola,
		ExpiresIn: cob.Calendario.Expiracao,
	}
	if cob.Loc != nil {
		charge.LocationID = cob.Loc.ID
	}
	if cob.Devedor != nil {
		charge.PayerName = cob.Devedor.Nome
		if cob.Devedor.CPF != "" {
			charge.PayerDoc = cob.Devedor.CPF
		} else {
			charge.PayerDoc = cob.Devedor.CNPJ
		}
	}
	return charge
}
