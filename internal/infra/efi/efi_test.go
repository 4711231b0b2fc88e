package efi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/graficahorizonte/payments-go/internal/config"
	"github.com/graficahorizonte/payments-go/internal/infra/efi"
	"github.com/graficahorizonte/payments-go/internal/infra/observability"
	"github.com/graficahorizonte/payments-go/internal/infra/resilience"
)

// gatewayMock is an httptest server that answers the OAuth endpoint
// and delegates everything else to the per-test handler.
type gatewayMock struct {
	server     *httptest.Server
	tokenCalls int64
	apiCalls   int64
}

func newGatewayMock(t *testing.T, handle http.HandlerFunc) *gatewayMock {
	t.Helper()
	m := &gatewayMock{}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&m.tokenCalls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("token endpoint called with method %s", r.Method)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("token endpoint missing basic auth, got %q:%q", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"T","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&m.apiCalls, 1)
		handle(w, r)
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func newTestClient(t *testing.T, m *gatewayMock) *efi.Client {
	t.Helper()
	cfg := config.EfiConfig{
		Environment:   "sandbox",
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		PixKey:        "chave-pix-teste",
		PixBaseURL:    m.server.URL,
		ChargeBaseURL: m.server.URL,
	}
	client, err := efi.NewClient(
		m.server.Client(),
		cfg,
		resilience.NewCircuitBreaker("test"),
		resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond},
		zap.NewNop(),
		observability.NewMetrics(),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := efi.NewClient(
		http.DefaultClient,
		config.EfiConfig{PixKey: "k"},
		resilience.NewCircuitBreaker("test"),
		resilience.Config{},
		zap.NewNop(),
		nil,
	)
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestNewClient_MissingPixKey(t *testing.T) {
	_, err := efi.NewClient(
		http.DefaultClient,
		config.EfiConfig{ClientID: "id", ClientSecret: "secret"},
		resilience.NewCircuitBreaker("test"),
		resilience.Config{},
		zap.NewNop(),
		nil,
	)
	if err == nil {
		t.Fatal("expected error for missing pix key")
	}
}

func TestTokenCaching_SingleFetchAcrossCalls(t *testing.T) {
	m := newGatewayMock(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer T" {
			t.Errorf("expected Bearer T, got %q", got)
		}
		w.Write([]byte(`{"txid":"tx1","status":"ATIVA","calendario":{"expiracao":3600},"valor":{"original":"10.00"},"chave":"chave-pix-teste"}`))
	})
	client := newTestClient(t, m)

	ctx := testContext(t)
	if _, err := client.GetPixStatus(ctx, "tx1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := client.GetPixStatus(ctx, "tx1"); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if got := atomic.LoadInt64(&m.tokenCalls); got != 1 {
		t.Errorf("expected 1 token fetch (cached), got %d", got)
	}
	if got := atomic.LoadInt64(&m.apiCalls); got != 2 {
		t.Errorf("expected 2 api calls, got %d", got)
	}
}

func TestAuthFailure_IncludesBaseURLAndBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := config.EfiConfig{
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		PixKey:        "chave-pix-teste",
		PixBaseURL:    server.URL,
		ChargeBaseURL: server.URL,
	}
	client, err := efi.NewClient(server.Client(), cfg, resilience.NewCircuitBreaker("test"),
		resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.GetPixStatus(testContext(t), "tx1")
	if err == nil {
		t.Fatal("expected auth error")
	}
	if !contains(err.Error(), server.URL) {
		t.Errorf("error should mention base URL, got: %v", err)
	}
	if !contains(err.Error(), "invalid_client") {
		t.Errorf("error should include upstream body, got: %v", err)
	}
}

func decodeJSONBody(t *testing.T, r *http.Request, into any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		t.Fatalf("failed to decode request body: %v", err)
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
