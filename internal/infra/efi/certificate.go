package efi

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/graficahorizonte/payments-go/internal/config"
	"github.com/graficahorizonte/payments-go/internal/domain"
)

// LoadTLSConfig resolves the PKCS#12 client certificate for mTLS.
// EFI_CERT_BASE64 takes precedence; EFI_CERT_PATH is the fallback.
// Efí certificates carry an empty passphrase.
//
// A missing or undecodable certificate is an error here, at startup.
// The service must never reach the first live payment call with a
// misconfigured identity.
func LoadTLSConfig(cfg config.EfiConfig) (*tls.Config, error) {
	var certData []byte

	switch {
	case cfg.CertBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.CertBase64)
		if err != nil {
			return nil, &domain.ErrConfiguration{
				Option:  "EFI_CERT_BASE64",
				Message: fmt.Sprintf("certificado inline inválido: %v", err),
			}
		}
		certData = decoded
	default:
		read, err := os.ReadFile(cfg.CertPath)
		if err != nil {
			return nil, &domain.ErrConfiguration{
				Option:  "EFI_CERT_PATH",
				Message: fmt.Sprintf("erro ao ler certificado %q: %v", cfg.CertPath, err),
			}
		}
		certData = read
	}

	privateKey, certificate, err := pkcs12.Decode(certData, "")
	if err != nil {
		return nil, &domain.ErrConfiguration{
			Option:  "EFI_CERT_BASE64/EFI_CERT_PATH",
			Message: fmt.Sprintf("erro ao decodificar certificado PKCS12: %v", err),
		}
	}

	tlsCert := tls.Certificate{
		Certificate: [][]byte{certificate.Raw},
		PrivateKey:  privateKey,
	}

	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// NewHTTPClient builds the process-wide HTTP client used for every
// gateway call: client certificate plus connection keep-alive pool,
// constructed once and shared. It holds no per-request state, so
// concurrent checkouts may use it freely.
func NewHTTPClient(cfg config.EfiConfig, timeout time.Duration) (*http.Client, error) {
	tlsConfig, err := LoadTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}, nil
}
