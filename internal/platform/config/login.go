package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// LoginConfig configures credential checks at login.
type LoginConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
	BcryptCost  int
	// RedisAddr selects the Redis limiter when set; the in-memory limiter is used otherwise.
	RedisAddr string
	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

func LoadLoginConfigFromEnv() (LoginConfig, error) {
	cfg := LoginConfig{
		MaxAttempts: 5,
		Cooldown:    15 * time.Minute,
		BcryptCost:  bcrypt.DefaultCost,
		RedisAddr:   os.Getenv("REDIS_ADDR"),
	}

	if v := os.Getenv("LOGIN_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return LoginConfig{}, fmt.Errorf("LOGIN_MAX_ATTEMPTS must be a positive integer (e.g. 5)")
		}
		cfg.MaxAttempts = n
	}
	if v := os.Getenv("LOGIN_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return LoginConfig{}, fmt.Errorf("LOGIN_COOLDOWN must be a duration (e.g. 15m): %w", err)
		}
		cfg.Cooldown = d
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < bcrypt.MinCost || n > bcrypt.MaxCost {
			return LoginConfig{}, fmt.Errorf("BCRYPT_COST must be an integer in [%d,%d]", bcrypt.MinCost, bcrypt.MaxCost)
		}
		cfg.BcryptCost = n
	}

	if v := os.Getenv("TRUST_PROXY_HEADERS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return LoginConfig{}, fmt.Errorf("TRUST_PROXY_HEADERS must be a boolean (e.g. true): %w", err)
		}
		cfg.TrustProxyHeaders = b
	}

	return cfg, nil
}
