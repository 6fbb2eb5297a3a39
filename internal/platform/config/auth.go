package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// AuthConfig configures HS512 token issuing and verification.
type AuthConfig struct {
	// Secret is the shared HMAC signing key. It must be non-empty.
	Secret []byte
	// TTL is the token lifetime counted from issue time.
	TTL time.Duration
}

const defaultJWTExpirationMS = 86400000

func LoadAuthConfigFromEnv() (AuthConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	cfg := AuthConfig{
		Secret: []byte(secret),
		TTL:    defaultJWTExpirationMS * time.Millisecond,
	}

	if v := os.Getenv("JWT_EXPIRATION_MS"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms <= 0 {
			return AuthConfig{}, fmt.Errorf("JWT_EXPIRATION_MS must be a positive integer of milliseconds (e.g. 86400000)")
		}
		cfg.TTL = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}
