package apiclient

import (
	"net/http"
	"time"
)

type Config struct {
	// BaseURL is the root of the notification backend, e.g. "https://api.example.com/api".
	BaseURL string `env:"NOTIFICATIONS_API_URL,required"`
	// RequestTimeout bounds every REST round-trip.
	RequestTimeout time.Duration `env:"NOTIFICATIONS_API_TIMEOUT" envDefault:"30s"`
	// PageLimit is the default page size for list requests.
	PageLimit int `env:"NOTIFICATIONS_API_PAGE_LIMIT" envDefault:"20"`
}

// FromConfig creates a client from an env-parsed Config.
func FromConfig(cfg Config, credential CredentialSupplier, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	}
	return New(cfg.BaseURL, credential, append(base, opts...)...)
}
