package efi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// tokenResponse is the OAuth2 client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// TokenManager performs the OAuth2 client-credentials exchange against
// one gateway API root (PIX or charges) and caches the bearer token
// until shortly before it expires. It is safe for concurrent use.
//
// The gateway issues tokens valid for about an hour; re-authenticating
// on every operation would double the round trips of each call.
type TokenManager struct {
	clientID     string
	clientSecret string
	baseURL      string
	apiLabel     string // "pix" or "charge", for metrics
	httpClient   *http.Client
	logger       *zap.Logger
	onRefresh    func(api string)

	mu          sync.RWMutex
	token       string
	expiresAt   time.Time
	refreshLead time.Duration
}

// NewTokenManager creates a token manager bound to one API root.
// onRefresh is invoked on every actual token fetch (may be nil).
func NewTokenManager(clientID, clientSecret, baseURL, apiLabel string, httpClient *http.Client, logger *zap.Logger, onRefresh func(api string)) *TokenManager {
	return &TokenManager{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		apiLabel:     apiLabel,
		httpClient:   httpClient,
		logger:       logger,
		onRefresh:    onRefresh,
		refreshLead:  60 * time.Second,
	}
}

// GetToken returns a valid bearer token, fetching a new one when the
// cached token is missing or about to expire.
func (tm *TokenManager) GetToken(ctx context.Context) (string, error) {
	tm.mu.RLock()
	if tm.token != "" && time.Now().Add(tm.refreshLead).Before(tm.expiresAt) {
		token := tm.token
		tm.mu.RUnlock()
		return token, nil
	}
	tm.mu.RUnlock()

	return tm.refresh(ctx)
}

func (tm *TokenManager) refresh(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	// Double-check: another goroutine may have refreshed while we
	// waited for the lock.
	if tm.token != "" && time.Now().Add(tm.refreshLead).Before(tm.expiresAt) {
		return tm.token, nil
	}

	authURL := fmt.Sprintf("%s/oauth/token", tm.baseURL)

	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, body)
	if err != nil {
		return "", fmt.Errorf("erro ao criar requisição de autenticação: %w", err)
	}

	credentials := base64.StdEncoding.EncodeToString(
		[]byte(fmt.Sprintf("%s:%s", tm.clientID, tm.clientSecret)),
	)
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("erro na requisição de autenticação em %s: %w", tm.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("erro ao ler resposta de autenticação: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tm.logger.Error("efi: autenticação falhou",
			zap.String("base_url", tm.baseURL),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return "", fmt.Errorf("erro de autenticação em %s: status %d: %s", tm.baseURL, resp.StatusCode, string(respBody))
	}

	var tok tokenResponse
	if err := json.Unmarshal(respBody, &tok); err != nil {
		return "", fmt.Errorf("erro ao decodificar token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("resposta de autenticação sem access_token: %s", string(respBody))
	}

	tm.token = tok.AccessToken
	tm.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	if tm.onRefresh != nil {
		tm.onRefresh(tm.apiLabel)
	}
	tm.logger.Debug("efi: token renovado",
		zap.String("api", tm.apiLabel),
		zap.Int("expires_in", tok.ExpiresIn),
	)

	return tm.token, nil
}

// Invalidate forces a refresh on the next call. Used after a 401.
func (tm *TokenManager) Invalidate() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.token = ""
	tm.expiresAt = time.Time{}
}
