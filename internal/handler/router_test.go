package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/graficahorizonte/payments-go/internal/domain"
	"github.com/graficahorizonte/payments-go/internal/handler"
	"github.com/graficahorizonte/payments-go/internal/infra/cache"
	"github.com/graficahorizonte/payments-go/internal/infra/observability"
	"github.com/graficahorizonte/payments-go/internal/service"
)

const testSecret = "router-test-secret"

// ============================================================
// Port stubs
// ============================================================

type stubPix struct {
	createErr error
}

func (s *stubPix) CreatePixCharge(ctx context.Context, document, name, amount string) (*domain.PixCharge, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &domain.PixCharge{TxID: "tx-1", LocationID: 77, Status: domain.PixStatusActive, Amount: amount}, nil
}

func (s *stubPix) GetQRCode(ctx context.Context, locationID int64) (*domain.PixQRCode, error) {
	return &domain.PixQRCode{QRCode: "copia-e-cola", ImagemQRCode: "base64"}, nil
}

func (s *stubPix) GetPixStatus(ctx context.Context, txid string) (*domain.PixCharge, error) {
	return &domain.PixCharge{TxID: txid, LocationID: 77, Status: domain.PixStatusActive}, nil
}

type stubCard struct{}

func (s *stubCard) CreateOneStepCharge(ctx context.Context, req *domain.CardChargeRequest) (*domain.CardCharge, error) {
	return &domain.CardCharge{ChargeID: 123, Status: domain.CardStatusWaiting, Total: 4990}, nil
}

func (s *stubCard) CreateCharge(ctx context.Context, items []domain.ChargeItem, shippings []domain.Shipping) (*domain.Charge, error) {
	return &domain.Charge{ChargeID: 555, Status: "new"}, nil
}

func (s *stubCard) CreatePaymentLink(ctx context.Context, chargeID int64, expireAt string) (*domain.PaymentLink, error) {
	return &domain.PaymentLink{ChargeID: chargeID, PaymentLinkID: 9001, PaymentURL: "https://pagamento.example.com/l/9001"}, nil
}

func (s *stubCard) GetChargeStatus(ctx context.Context, chargeID int64) (string, error) {
	return domain.CardStatusWaiting, nil
}

type stubStore struct {
	lastCustomerID string
}

func (s *stubStore) CreateOrder(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error) {
	s.lastCustomerID = req.CustomerID
	return &domain.Order{ID: "order-1", CustomerID: req.CustomerID, Method: req.Method, Status: domain.OrderStatusPending}, nil
}

func (s *stubStore) AttachCharge(ctx context.Context, orderID, txid string, chargeID int64, paymentURL, status string) error {
	return nil
}

func (s *stubStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return nil, &domain.ErrNotFound{Resource: "order", ID: orderID}
}

func (s *stubStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	return nil
}

func (s *stubStore) ListOrders(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, error) {
	s.lastCustomerID = customerID
	return []domain.Order{}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *stubStore) {
	t.Helper()
	store := &stubStore{}
	svc := service.NewCheckoutService(
		&stubPix{}, &stubCard{}, store,
		cache.New[domain.PixQRCode](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
	sessions := service.NewSessionValidator(testSecret)
	return handler.NewRouter(svc, sessions, observability.NewMetrics(), zap.NewNop()), store
}

func validToken(t *testing.T, sub string) string {
	t.Helper()
	claims := service.SessionClaims{
		Sub:  sub,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// ============================================================
// Tests
// ============================================================

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestPaymentsMetricsIsOpen(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics/payments", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("payments metrics must not require auth, got %d", rec.Code)
	}
}

func TestCheckout_RequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	body := strings.NewReader(`{"document":"12345678909","name":"Maria","amount":"49.90"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/checkout/pix", body))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestCheckout_RejectsMalformedAuthHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/pix", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for non-bearer auth, got %d", rec.Code)
	}
}

func TestPixCheckout_EndToEnd(t *testing.T) {
	router, store := newTestRouter(t)

	body := strings.NewReader(`{"document":"123.456.789-09","name":"Maria Silva","amount":"49.90"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/pix", body)
	req.Header.Set("Authorization", "Bearer "+validToken(t, "cust-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp service.PixCheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.TxID != "tx-1" || resp.QRCode == nil {
		t.Errorf("unexpected response: %+v", resp)
	}

	// The customer id comes from the session token when the body omits it.
	if store.lastCustomerID != "cust-1" {
		t.Errorf("expected customer id from token, got %q", store.lastCustomerID)
	}
}

func TestPixCheckout_InvalidDocumentIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	body := strings.NewReader(`{"document":"123","name":"Maria","amount":"49.90"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/pix", body)
	req.Header.Set("Authorization", "Bearer "+validToken(t, "cust-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestPixCheckout_InvalidBodyIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/pix", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+validToken(t, "cust-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestPaymentStatus_UnknownOrderIs404(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/missing", nil)
	req.Header.Set("Authorization", "Bearer "+validToken(t, "cust-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListOrders_UsesTokenCustomer(t *testing.T) {
	router, store := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+validToken(t, "cust-42"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.lastCustomerID != "cust-42" {
		t.Errorf("expected customer id from token, got %q", store.lastCustomerID)
	}
}

func TestCardCheckout_EndToEnd(t *testing.T) {
	router, _ := newTestRouter(t)

	body := strings.NewReader(`{
		"charge": {
			"items": [{"name": "Cartões de visita", "value": 4990, "amount": 1}],
			"paymentToken": "tok-single-use"
		}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/card", body)
	req.Header.Set("Authorization", "Bearer "+validToken(t, "cust-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp service.CardCheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Status != domain.CardStatusWaiting {
		t.Errorf("expected waiting, got %q", resp.Status)
	}
}
