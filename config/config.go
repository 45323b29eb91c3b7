package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Return URL modes accepted by RETURN_URL_MODE.
const (
	ReturnURLModeHTTPSRelay     = "https-relay"
	ReturnURLModeDirectDeepLink = "direct-deeplink"
)

// secretEnvKeys lists the accepted gateway secret variables in lookup order.
var secretEnvKeys = []string{"CHAPA_SECRET", "CHAPA_SECRET_KEY"}

// Config holds application configuration. It is built once at startup and
// treated as read-only afterwards.
type Config struct {
	ServiceName          string
	OTELEndpoint         string
	Port                 string
	GatewayBaseURL       string
	GatewaySecret        string
	GatewayTimeout       time.Duration
	GatewaySendReference bool
	ReturnURLMode        string
	PublicBaseURL        string
	DeepLinkScheme       string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when one exists; real environment variables
// take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:          "checkout-relay",
		OTELEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Port:                 getEnv("PORT", "3000"),
		GatewayBaseURL:       strings.TrimRight(getEnv("CHAPA_BASE_URL", "https://api.chapa.co"), "/"),
		GatewaySecret:        firstEnv(secretEnvKeys...),
		GatewayTimeout:       getDuration("GATEWAY_TIMEOUT", 15*time.Second),
		GatewaySendReference: getBool("GATEWAY_SEND_REFERENCE", false),
		ReturnURLMode:        getEnv("RETURN_URL_MODE", ReturnURLModeHTTPSRelay),
		PublicBaseURL:        strings.TrimRight(getEnv("PUBLIC_BASE_URL", "https://chapa-backend-i1wy.onrender.com"), "/"),
		DeepLinkScheme:       getEnv("DEEP_LINK_SCHEME", "myeduapp"),
	}
}

// Validate reports settings that would make the service misbehave at request time.
// A missing gateway secret is not an error here; requests fail with a
// configuration error instead.
func (c *Config) Validate() error {
	switch c.ReturnURLMode {
	case ReturnURLModeHTTPSRelay:
		if c.PublicBaseURL == "" {
			return fmt.Errorf("PUBLIC_BASE_URL is required when RETURN_URL_MODE=%s", ReturnURLModeHTTPSRelay)
		}
	case ReturnURLModeDirectDeepLink:
	default:
		return fmt.Errorf("unknown RETURN_URL_MODE %q", c.ReturnURLMode)
	}
	if c.DeepLinkScheme == "" {
		return fmt.Errorf("DEEP_LINK_SCHEME must not be empty")
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive, got %s", c.GatewayTimeout)
	}
	return nil
}

// DeepLink returns the mobile app URI the payment result redirect points at.
func (c *Config) DeepLink() string {
	return c.DeepLinkScheme + "://payment-result"
}

// ReturnURL returns the URL the gateway sends the user to after checkout.
func (c *Config) ReturnURL() string {
	if c.ReturnURLMode == ReturnURLModeDirectDeepLink {
		return c.DeepLink()
	}
	return c.PublicBaseURL + "/payment-result"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
