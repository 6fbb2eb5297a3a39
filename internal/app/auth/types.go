package auth

import "time"

// TokenType is reported to clients alongside every issued token.
const TokenType = "Bearer"

// RegisteredMessage is the confirmation returned after a successful registration.
const RegisteredMessage = "User registered successfully!"

// EmailTakenMessage is returned when registering an email that already has an account.
const EmailTakenMessage = "Error: Email is already taken!"

type LoginInput struct {
	Email    string
	Password string
	// ClientIP, when set, is throttled alongside the email.
	ClientIP string
}

type LoginResult struct {
	Token     string
	Type      string
	ExpiresAt time.Time

	ID        int64
	Username  string
	FirstName string
	LastName  string
	Admin     bool
}

type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}
