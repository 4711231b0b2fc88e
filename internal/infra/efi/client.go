// Package efi implements the client for the Efí Bank payment gateway:
// mTLS client-certificate auth, OAuth2 token lifecycle, immediate PIX
// charges with QR codes, one-step credit-card charges and payment
// links.
//
// Nothing in this package retries a charge-creating request. A
// timed-out creation may have succeeded upstream; retrying it risks a
// duplicate charge. Callers must treat any returned error as "no
// financial state change is known to have occurred".
package efi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/graficahorizonte/payments-go/internal/config"
	"github.com/graficahorizonte/payments-go/internal/domain"
	"github.com/graficahorizonte/payments-go/internal/infra/observability"
	"github.com/graficahorizonte/payments-go/internal/infra/resilience"
)

var tracer = otel.Tracer("efi")

// Client talks to the Efí gateway. Credentials, pix key and the mTLS
// HTTP client are read-only after construction, so concurrent charge
// creations from multiple in-flight checkouts are safe.
type Client struct {
	httpClient    *http.Client
	pixBaseURL    string
	chargeBaseURL string
	pixKey        string
	pixAuth       *TokenManager
	chargeAuth    *TokenManager
	cb            *gobreaker.CircuitBreaker
	retry         resilience.Config
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// NewClient creates a gateway client. httpClient must carry the mTLS
// certificate (see NewHTTPClient). Missing credentials or pix key fail
// here, not at the first network call.
func NewClient(httpClient *http.Client, cfg config.EfiConfig, cb *gobreaker.CircuitBreaker, retry resilience.Config, logger *zap.Logger, metrics *observability.Metrics) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, &domain.ErrConfiguration{
			Option:  "EFI_CLIENT_ID/EFI_CLIENT_SECRET",
			Message: "credenciais do gateway não configuradas",
		}
	}
	if cfg.PixKey == "" {
		return nil, &domain.ErrConfiguration{
			Option:  "EFI_PIX_KEY",
			Message: "chave PIX do recebedor não configurada",
		}
	}

	onRefresh := func(api string) {
		if metrics != nil {
			metrics.IncrTokenRefresh(api)
		}
	}

	return &Client{
		httpClient:    httpClient,
		pixBaseURL:    cfg.PixBaseURL,
		chargeBaseURL: cfg.ChargeBaseURL,
		pixKey:        cfg.PixKey,
		pixAuth:       NewTokenManager(cfg.ClientID, cfg.ClientSecret, cfg.PixBaseURL, "pix", httpClient, logger, onRefresh),
		chargeAuth:    NewTokenManager(cfg.ClientID, cfg.ClientSecret, cfg.ChargeBaseURL, "charge", httpClient, logger, onRefresh),
		cb:            cb,
		retry:         retry,
		logger:        logger,
		metrics:       metrics,
	}, nil
}

// doRequest executes one authenticated gateway request and returns the
// raw response body. Non-2xx responses come back as *domain.ErrGateway
// carrying the upstream payload verbatim.
func (c *Client) doRequest(ctx context.Context, tm *TokenManager, baseURL, operation, method, path string, body any) ([]byte, error) {
	token, err := tm.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("erro ao serializar requisição: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar requisição: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro na requisição HTTP: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler resposta: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		tm.Invalidate()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("efi: resposta de erro do gateway",
			zap.String("operation", operation),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		if c.metrics != nil {
			c.metrics.IncrGatewayError(operation)
		}
		return nil, &domain.ErrGateway{
			Operation: operation,
			Status:    resp.StatusCode,
			Body:      string(respBody),
		}
	}

	return respBody, nil
}

// execute runs fn through the circuit breaker, without retry. Used for
// charge-creating operations.
func (c *Client) execute(fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return c.mapBreakerErr(err)
}

// executeRead runs fn through the circuit breaker with retry+backoff.
// Only for read operations (status, QR code), where a repeated request
// is harmless.
func (c *Client) executeRead(ctx context.Context, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.retry, fn)
	})
	return c.mapBreakerErr(err)
}

func (c *Client) mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "efi"}
	}
	return err
}
