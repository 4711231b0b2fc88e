package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/graficahorizonte/payments-go/internal/domain"
)

// SessionValidator checks the storefront's session tokens. Tokens are
// issued by the storefront backend (HS256 with a shared secret); this
// service only validates them before letting a checkout through.
type SessionValidator struct {
	secret []byte
}

// NewSessionValidator creates a validator for the shared JWT secret.
func NewSessionValidator(secret string) *SessionValidator {
	return &SessionValidator{secret: []byte(secret)}
}

// SessionClaims represents the custom claims in storefront tokens.
type SessionClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// ValidateAccessToken parses and validates a session token, returning
// its claims.
func (v *SessionValidator) ValidateAccessToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}

	return claims, nil
}
