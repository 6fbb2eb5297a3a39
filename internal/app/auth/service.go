package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/platform/auth/tokencodec"
	"github.com/yoga-studio/booking-api/internal/platform/metrics"
	clockport "github.com/yoga-studio/booking-api/internal/ports/out/clock"
	"github.com/yoga-studio/booking-api/internal/ports/out/loginlimiter"
	"github.com/yoga-studio/booking-api/internal/ports/out/passwordhash"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

// TokenIssuer signs tokens for authenticated principals.
type TokenIssuer interface {
	Issue(p domain.Principal) (tokencodec.Token, string, error)
}

type Service struct {
	users   userrepo.Repository
	hasher  passwordhash.Hasher
	tokens  TokenIssuer
	limiter loginlimiter.Limiter
	clk     clockport.Clock

	// Metrics is optional.
	Metrics *metrics.Metrics

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires the login and registration use cases. limiter may be nil to disable throttling.
func NewService(users userrepo.Repository, hasher passwordhash.Hasher, tokens TokenIssuer, limiter loginlimiter.Limiter, clk clockport.Clock) *Service {
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
		clk:     clk,
	}
}

func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	username := domain.NormalizeUsername(in.Email)
	keys := limiterKeys(username, in.ClientIP)

	if err := s.checkLimiter(ctx, keys); err != nil {
		return LoginResult{}, err
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, userrepo.ErrNotFound) {
			return LoginResult{}, err
		}
		// Same work as a wrong password so unknown emails are not observable.
		_ = s.hasher.Compare(s.dummy(), in.Password)
		return LoginResult{}, s.fail(ctx, keys)
	}

	if err := s.hasher.Compare(u.PasswordHash, in.Password); err != nil {
		if errors.Is(err, passwordhash.ErrMismatch) {
			return LoginResult{}, s.fail(ctx, keys)
		}
		return LoginResult{}, fmt.Errorf("compare password: %w", err)
	}

	p, err := principalFromUser(u)
	if err != nil {
		return LoginResult{}, fmt.Errorf("load principal %d: %w", u.ID, err)
	}
	tok, raw, err := s.tokens.Issue(p)
	if err != nil {
		return LoginResult{}, err
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, keys[0]); err != nil {
			return LoginResult{}, err
		}
	}
	s.Metrics.LoginAttempt("success")

	return LoginResult{
		Token:     raw,
		Type:      TokenType,
		ExpiresAt: tok.ExpiresAt,
		ID:        int64(u.ID),
		Username:  u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Admin:     u.Admin,
	}, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	email := strings.TrimSpace(in.Email)
	firstName := domain.NormalizeHumanName(in.FirstName)
	lastName := domain.NormalizeHumanName(in.LastName)

	details := map[string]any{}
	if err := validateEmail(email); err != nil {
		details["email"] = err.Error()
	}
	if msg := lengthBetween(firstName, 3, 20); msg != "" {
		details["firstName"] = msg
	}
	if msg := lengthBetween(lastName, 3, 20); msg != "" {
		details["lastName"] = msg
	}
	if msg := lengthBetween(in.Password, 6, 40); msg != "" {
		details["password"] = msg
	}
	if len(details) > 0 {
		return &Error{
			Status:  400,
			Code:    "VALIDATION_ERROR",
			Message: "invalid registration",
			Details: details,
		}
	}

	username := domain.NormalizeUsername(email)
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return emailTaken()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return err
	}
	now := s.clk.Now()
	_, err = s.users.Create(ctx, userrepo.User{
		Email:        string(username),
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Admin:        false,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrAlreadyExists) {
			return emailTaken()
		}
		return err
	}
	return nil
}

func (s *Service) checkLimiter(ctx context.Context, keys []string) error {
	if s.limiter == nil {
		return nil
	}
	for _, k := range keys {
		ok, err := s.limiter.Allow(ctx, k)
		if err != nil {
			return err
		}
		if !ok {
			s.Metrics.LoginAttempt("throttled")
			return &Error{
				Status:  429,
				Code:    "TOO_MANY_ATTEMPTS",
				Message: "too many failed login attempts; try again later",
			}
		}
	}
	return nil
}

func (s *Service) fail(ctx context.Context, keys []string) error {
	s.Metrics.LoginAttempt("failure")
	if s.limiter != nil {
		for _, k := range keys {
			if err := s.limiter.RecordFailure(ctx, k); err != nil {
				return err
			}
		}
	}
	return ErrBadCredentials
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// limiterKeys returns the email key first; it is the only one cleared on success.
func limiterKeys(username domain.Username, clientIP string) []string {
	keys := []string{"email:" + string(username)}
	if ip := strings.TrimSpace(clientIP); ip != "" {
		keys = append(keys, "ip:"+ip)
	}
	return keys
}

func emailTaken() error {
	return &Error{
		Status:  400,
		Code:    "EMAIL_TAKEN",
		Message: EmailTakenMessage,
	}
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	if utf8.RuneCountInString(email) > 50 {
		return errors.New("must be at most 50 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func lengthBetween(v string, lo, hi int) string {
	n := utf8.RuneCountInString(v)
	if n < lo || n > hi {
		return fmt.Sprintf("size must be between %d and %d", lo, hi)
	}
	return ""
}
