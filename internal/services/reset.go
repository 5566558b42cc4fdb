package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

// ResetTokenTTL is how long a password-reset token stays valid.
const ResetTokenTTL = time.Hour

var (
	ErrResetTokenInvalid = errors.New("invalid or unknown reset token")
	ErrResetTokenExpired = errors.New("reset token has expired")
)

// ResetStore is the storage surface the password-reset flow needs.
type ResetStore interface {
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error
	GetUserByResetToken(ctx context.Context, token string) (core.User, error)
	// UpdatePassword stores the new hash and clears any reset token.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	ClearResetToken(ctx context.Context, userID int64) error
}

// TokenSender delivers a reset token out-of-band (email queue, log). The
// token never appears in the HTTP response.
type TokenSender interface {
	SendPasswordReset(ctx context.Context, email, token string, expires time.Time) error
}

// LogTokenSender writes the token to the log. Development fallback used when
// no broker is configured.
type LogTokenSender struct{}

func (LogTokenSender) SendPasswordReset(ctx context.Context, email, token string, expires time.Time) error {
	slog.InfoContext(ctx, "Password reset token issued",
		"email", email, "token", token, "expires", expires.Format(time.RFC3339))
	return nil
}

// PasswordResetService issues and consumes single-use reset tokens.
type PasswordResetService struct {
	store  ResetStore
	sender TokenSender
	now    func() time.Time
}

func NewPasswordResetService(store ResetStore, sender TokenSender) *PasswordResetService {
	if sender == nil {
		sender = LogTokenSender{}
	}
	return &PasswordResetService{store: store, sender: sender, now: time.Now}
}

// Forgot issues a reset token for the account behind email and hands it to
// the delivery channel. Unknown emails are a silent no-op so the endpoint
// cannot be used to probe for accounts.
func (s *PasswordResetService) Forgot(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		slog.InfoContext(ctx, "Password reset requested for unknown email")
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expires := s.now().Add(ResetTokenTTL)

	if err := s.store.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if err := s.sender.SendPasswordReset(ctx, user.Email, token, expires); err != nil {
		// The token is stored; delivery failure must not leak account existence.
		slog.ErrorContext(ctx, "Failed to deliver reset token", "user_id", user.ID, "error", err)
	}
	return nil
}

// Reset consumes a token and sets a new password. The token is single-use:
// both success and expiry clear it.
func (s *PasswordResetService) Reset(ctx context.Context, token, newPassword string) error {
	if len(token) != resetTokenLength {
		return ErrResetTokenInvalid
	}
	user, err := s.store.GetUserByResetToken(ctx, token)
	if err != nil {
		return ErrResetTokenInvalid
	}
	if user.ResetTokenExpires.IsZero() || s.now().After(user.ResetTokenExpires) {
		if err := s.store.ClearResetToken(ctx, user.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to clear expired reset token", "user_id", user.ID, "error", err)
		}
		return ErrResetTokenExpired
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	slog.InfoContext(ctx, "Password reset completed", "user_id", user.ID)
	return nil
}

// resetTokenLength is the exact length of an issued token.
const resetTokenLength = 32

// generateResetToken returns a 32-character random hex string.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
