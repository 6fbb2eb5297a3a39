// Package tokencodec issues and verifies the HS512 bearer tokens used by the API.
package tokencodec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/platform/config"
	"github.com/yoga-studio/booking-api/internal/ports/out/clock"
)

var (
	// ErrInvalid is wrapped by every decode failure.
	ErrInvalid = errors.New("invalid token")

	ErrMalformed    = fmt.Errorf("%w: malformed", ErrInvalid)
	ErrBadSignature = fmt.Errorf("%w: bad signature", ErrInvalid)
	ErrExpired      = fmt.Errorf("%w: expired", ErrInvalid)
)

var signingMethod = jwt.SigningMethodHS512

// Token is the verified content of a bearer token.
type Token struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Codec is safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func New(cfg config.AuthConfig, clk clock.Clock) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret must be non-empty")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if clk == nil {
		return nil, errors.New("nil clock")
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &Codec{secret: secret, ttl: cfg.TTL, clock: clk}, nil
}

// Issue signs a token for p. The expiry is now+TTL truncated to the whole second, the
// resolution of the exp claim, so a token never outlives its configured TTL.
func (c *Codec) Issue(p domain.Principal) (Token, string, error) {
	if p.IsZero() {
		return Token{}, "", errors.New("issue token: empty principal")
	}
	now := c.clock.Now()
	exp := now.Add(c.ttl).Truncate(time.Second)
	iat := now.Truncate(time.Second)

	tok := Token{
		Subject:   string(p.Username()),
		IssuedAt:  iat,
		ExpiresAt: exp,
		ID:        uuid.NewString(),
	}
	claims := jwt.RegisteredClaims{
		Subject:   tok.Subject,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        tok.ID,
	}
	raw, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, "", fmt.Errorf("sign token: %w", err)
	}
	return tok, raw, nil
}

// Decode verifies the signature and freshness of raw against the injected clock.
// A token is accepted at its exp instant and expired once now passes it.
func (c *Codec) Decode(raw string) (tok Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			tok, err = Token{}, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()
	if raw == "" {
		return Token{}, ErrMalformed
	}

	claims := &jwt.RegisteredClaims{}
	_, err = c.parser(jwt.WithExpirationRequired(), jwt.WithTimeFunc(c.clock.Now), jwt.WithLeeway(time.Nanosecond)).
		ParseWithClaims(raw, claims, c.key)
	if err != nil {
		return Token{}, classify(err)
	}
	return tokenFromClaims(claims)
}

// Subject verifies the signature of raw and returns its subject without checking expiry.
func (c *Codec) Subject(raw string) (string, error) {
	if raw == "" {
		return "", ErrMalformed
	}
	claims := &jwt.RegisteredClaims{}
	if _, err := c.parser(jwt.WithoutClaimsValidation()).ParseWithClaims(raw, claims, c.key); err != nil {
		return "", classify(err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing sub", ErrMalformed)
	}
	return claims.Subject, nil
}

func (c *Codec) parser(opts ...jwt.ParserOption) *jwt.Parser {
	opts = append([]jwt.ParserOption{jwt.WithValidMethods([]string{signingMethod.Alg()})}, opts...)
	return jwt.NewParser(opts...)
}

func (c *Codec) key(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != signingMethod.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	return c.secret, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func tokenFromClaims(claims *jwt.RegisteredClaims) (Token, error) {
	if claims.Subject == "" {
		return Token{}, fmt.Errorf("%w: missing sub", ErrMalformed)
	}
	tok := Token{Subject: claims.Subject, ID: claims.ID}
	if claims.IssuedAt != nil {
		tok.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		tok.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return tok, nil
}
