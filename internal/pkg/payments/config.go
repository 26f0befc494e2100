package payments

import (
	"time"

	"github.com/astromitra/astromitra/internal/pkg/env"
)

// ProviderConfig carries the per-provider webhook credentials. It is built
// once at process start and handed to the endpoint handlers explicitly;
// request handling never reads the environment.
type ProviderConfig struct {
	// Secret is the shared signing secret / endpoint secret registered with
	// the provider.
	Secret string
	// NotificationURL is the public callback URL exactly as registered with
	// the provider. Square signs URL+body, so any deviation (trailing slash,
	// scheme, query string) makes legitimate events fail verification.
	NotificationURL string
	// Tolerance is the allowed clock skew for timestamped signature schemes.
	Tolerance time.Duration
}

// Config bundles the provider configurations for all webhook endpoints.
type Config struct {
	Stripe ProviderConfig
	Square ProviderConfig
}

// LoadConfig reads the provider webhook settings from the environment.
func LoadConfig() Config {
	return Config{
		Stripe: ProviderConfig{
			Secret:    env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
			Tolerance: 5 * time.Minute,
		},
		Square: ProviderConfig{
			Secret:          env.GetEnv("SQUARE_WEBHOOK_SECRET", ""),
			NotificationURL: env.GetEnv("SQUARE_NOTIFICATION_URL", ""),
		},
	}
}
