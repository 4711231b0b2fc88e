package config

import (
	"os"
	"strconv"
	"time"
)

// Efí Bank base URLs per environment.
const (
	pixURLProduction    = "https://pix.api.efipay.com.br"
	pixURLSandbox       = "https://pix-h.api.efipay.com.br"
	chargeURLProduction = "https://cobrancas.api.efipay.com.br"
	chargeURLSandbox    = "https://cobrancas-h.api.efipay.com.br"

	certFileProduction = "producao.p12"
	certFileSandbox    = "homologacao.p12"
)

// EfiConfig holds everything needed to talk to the Efí gateway.
type EfiConfig struct {
	Environment   string // "production" or "sandbox"
	ClientID      string
	ClientSecret  string
	CertBase64    string // inline PKCS#12, takes precedence over CertPath
	CertPath      string
	PixKey        string // merchant's registered PIX key (the "chave" field)
	PixBaseURL    string
	ChargeBaseURL string
}

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Efí gateway
	Efi EfiConfig

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase (order persistence)
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// JWT (storefront session tokens)
	JWTSecret string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	env := getEnv("EFI_ENV", "sandbox")

	pixURL := pixURLSandbox
	chargeURL := chargeURLSandbox
	certFile := certFileSandbox
	if env == "production" {
		pixURL = pixURLProduction
		chargeURL = chargeURLProduction
		certFile = certFileProduction
	}

	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Efi: EfiConfig{
			Environment:   env,
			ClientID:      getEnv("EFI_CLIENT_ID", ""),
			ClientSecret:  getEnv("EFI_CLIENT_SECRET", ""),
			CertBase64:    getEnv("EFI_CERT_BASE64", ""),
			CertPath:      getEnv("EFI_CERT_PATH", certFile),
			PixKey:        getEnv("EFI_PIX_KEY", ""),
			PixBaseURL:    getEnv("EFI_PIX_URL", pixURL),
			ChargeBaseURL: getEnv("EFI_CHARGE_URL", chargeURL),
		},

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		JWTSecret: getEnv("JWT_SECRET", "grafica-default-dev-secret-change-me"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
