package efi_test

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/graficahorizonte/payments-go/internal/domain"
)

func TestCreatePixCharge_CPF(t *testing.T) {
	var captured struct {
		Calendario struct {
			Expiracao int `json:"expiracao"`
		} `json:"calendario"`
		Devedor struct {
			CPF  string `json:"cpf"`
			CNPJ string `json:"cnpj"`
			Nome string `json:"nome"`
		} `json:"devedor"`
		Valor struct {
			Original string `json:"original"`
		} `json:"valor"`
		Chave string `json:"chave"`
	}

	m := newGatewayMock(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/cob" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		decodeJSONBody(t, r, &captured)
		fmt.Fprint(w, `{
			"txid": "tx-abc-123",
			"status": "ATIVA",
			"calendario": {"expiracao": 3600},
			"loc": {"id": 77, "location": "pix.example.com/qr/77", "tipoCob": "cob"},
			"devedor": {"cpf": "12345678909", "nome": "Maria Silva"},
			"valor": {"original": "49.90"},
			"chave": "chave-pix-teste",
			"pixCopiaECola": "00020126...6304ABCD"
		}`)
	})
	client := newTestClient(t, m)

	charge, err := client.CreatePixCharge(testContext(t), "123.456.789-09", "Maria Silva", "49.90")
	if err != nil {
		t.Fatalf("CreatePixCharge: %v", err)
	}

	if captured.Devedor.CPF != "12345678909" {
		t.Errorf("expected devedor.cpf=12345678909, got %q", captured.Devedor.CPF)
	}
	if captured.Devedor.CNPJ != "" {
		t.Errorf("cpf payer must never set devedor.cnpj, got %q", captured.Devedor.CNPJ)
	}
	if captured.Devedor.Nome != "Maria Silva" {
		t.Errorf("expected devedor.nome=Maria Silva, got %q", captured.Devedor.Nome)
	}
	if captured.Calendario.Expiracao != 3600 {
		t.Errorf("expected expiracao=3600, got %d", captured.Calendario.Expiracao)
	}
	if captured.Valor.Original != "49.90" {
		t.Errorf("expected valor.original=49.90, got %q", captured.Valor.Original)
	}
	if captured.Chave != "chave-pix-teste" {
		t.Errorf("expected chave=chave-pix-teste, got %q", captured.Chave)
	}

	if charge.TxID != "tx-abc-123" {
		t.Errorf("expected txid tx-abc-123, got %q", charge.TxID)
	}
	if charge.LocationID != 77 {
		t.Errorf("expected location id 77, got %d", charge.LocationID)
	}
	if charge.Status != domain.PixStatusActive {
		t.Errorf("expected status ATIVA, got %q", charge.Status)
	}
	if charge.CopyPaste == "" {
		t.Error("expected pixCopiaECola to be mapped")
	}
}

func TestCreatePixCharge_CNPJ(t *testing.T) {
	var devedor struct {
		Devedor struct {
			CPF  string `json:"cpf"`
			CNPJ string `json:"cnpj"`
		} `json:"devedor"`
	}

	m := newGatewayMock(t, func(w http.ResponseWriter, r *http.Request) {
		decodeJSONBody(t, r, &devedor)
		fmt.Fprint(w, `{"txid":"tx-cnpj","status":"ATIVA","calendario":{"expiracao":3600},"loc":{"id":5},"valor":{"original":"100.00"},"chave":"chave-pix-teste"}`)
	})
	client := newTestClient(t, m)

	_, err := client.CreatePixCharge(testContext(t), "12.345.678/0001-95", "Gráfica Horizonte LTDA", "100.00")
	if err != nil {
		t.Fatalf("CreatePixCharge: %v", err)
	}

	if devedor.Devedor.CNPJ != "12345678000195" {
		t.Errorf("expected devedor.cnpj=12345678000195, got %q", devedor.Devedor.CNPJ)
	}
	if devedor.Devedor.CPF != "" {
		t.Errorf("cnpj payer must never set devedor.cpf, got %q", devedor.Devedor.CPF)
	}
}

func TestCreatePixCharge_InvalidDocument_NoNetworkCall(t *testing.T) {
	m := newGatewayMock(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no gateway request expected for an invalid document")
	})
	client := newTestClient(t, m)

	_, err := client.CreatePixCharge(testContext(t), "123", "Maria Silva", "49.90")

	var validationErr *domain.ErrValidation
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *domain.ErrValidation, got %v", err)
	}
	if got := atomic.LoadInt64(&m.tokenCalls); got != 0 {
		t.Errorf("expected 0 token calls, got %d", got)
	}
	if got := atomic.LoadInt64(&m.apiCalls); got != 0 {
		t.Errorf("expected 0 api calls, got %d", got)
	}
}

func TestCreatePixCharge_GatewayErrorIncludesBody(t *testing.T) {
	m := newGatewayMock(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "mensagem"}`)
	})
	client := newTestClient(t, m)

	_, err := client.CreatePixCharge(testContext(t), "12345678909", "Maria Silva", "49.90")
	if err == nil {
		t.Fatal("expected gateway error")
	}

	var gatewayErr *domain.ErrGateway
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected *domain.ErrGateway, got %v", err)
	}
	if gatewayErr.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", gatewayErr.Status)
	}
	if !contains(err.Error(), "mensagem") {
		t.Errorf("error message should carry the upstream body, got: %v", err)
	}
}

func TestGetQRCode(t *testing.T) {
	m := newGatewayMock(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v2/loc/77/qrcode" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"qrcode":"00020126...6304ABCD","imagemQrcode":"data:image/png;base64,iVBOR"}`)
	})
	client := newTestClient(t, m)

	qr, err := client.GetQRCode(testContext(t), 77)
	if err != nil {
		t.Fatalf("GetQRCode: %v", err)
	}
	if qr.QRCode != "00020126...6304ABCD" {
		t.Errorf("unexpected qrcode: %q", qr.QRCode)
	}
	if qr.ImagemQRCode != "data:image/png;base64,iVBOR" {
		t.Errorf("unexpected imagemQrcode: %q", qr.ImagemQRCode)
	}
}

// Full flow: create the charge, then fetch the QR code with the
// location id the gateway returned.
func TestPixChargeThenQRCode(t *testing.T) {
	m := newGatewayMock(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/cob":
			fmt.Fprint(w, `{"txid":"tx-flow","status":"ATIVA","calendario":{"expiracao":3600},"loc":{"id":42},"valor":{"original":"49.90"},"chave":"chave-pix-teste"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/v2/loc/42/qrcode":
			fmt.Fprint(w, `{"qrcode":"copia-e-cola","imagemQrcode":"base64-png"}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})
	client := newTestClient(t, m)
	ctx := testContext(t)

	charge, err := client.CreatePixCharge(ctx, "123.456.789-09", "Maria Silva", "49.90")
	if err != nil {
		t.Fatalf("CreatePixCharge: %v", err)
	}
	qr, err := client.GetQRCode(ctx, charge.LocationID)
	if err != nil {
		t.Fatalf("GetQRCode: %v", err)
	}
	if qr.QRCode != "copia-e-cola" || qr.ImagemQRCode != "base64-png" {
		t.Errorf("unexpected qr payload: %+v", qr)
	}
}

func TestGetPixStatus_Concluded(t *testing.T) {
	m := newGatewayMock(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/cob/tx-done" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"txid":"tx-done","status":"CONCLUIDA","calendario":{"expiracao":3600},"valor":{"original":"49.90"},"chave":"chave-pix-teste"}`)
	})
	client := newTestClient(t, m)

	charge, err := client.GetPixStatus(testContext(t), "tx-done")
	if err != nil {
		t.Fatalf("GetPixStatus: %v", err)
	}
	if charge.Status != domain.PixStatusConcluded {
		t.Errorf("expected CONCLUIDA, got %q", charge.Status)
	}
}
