package api

import "time"

// Config tunes the HTTP surface. Loaded from the environment via
// config.Load.
type Config struct {
	// MaxBodyBytes caps webhook and API request bodies. Provider payloads
	// are small; anything above this is hostile or broken.
	MaxBodyBytes int64 `env:"API_MAX_BODY_BYTES" envDefault:"1048576"`

	// RequestTimeout bounds handler execution, including outbound provider
	// calls.
	RequestTimeout time.Duration `env:"API_REQUEST_TIMEOUT" envDefault:"30s"`

	// AuthToken is the static bearer token required on /api routes. The
	// webhook endpoint is excluded; it is authenticated by its signature.
	AuthToken string `env:"API_AUTH_TOKEN,required"`
}
