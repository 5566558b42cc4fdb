package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

type fakeResetStore struct {
	user    core.User
	hasUser bool
}

var errResetNotFound = errors.New("not found")

func (f *fakeResetStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	if f.hasUser && f.user.Email == email {
		return f.user, nil
	}
	return core.User{}, errResetNotFound
}

func (f *fakeResetStore) SetResetToken(_ context.Context, userID int64, token string, expires time.Time) error {
	f.user.ResetToken = token
	f.user.ResetTokenExpires = expires
	return nil
}

func (f *fakeResetStore) GetUserByResetToken(_ context.Context, token string) (core.User, error) {
	if f.hasUser && f.user.ResetToken != "" && f.user.ResetToken == token {
		return f.user, nil
	}
	return core.User{}, errResetNotFound
}

func (f *fakeResetStore) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	f.user.PasswordHash = passwordHash
	f.user.ResetToken = ""
	f.user.ResetTokenExpires = time.Time{}
	return nil
}

func (f *fakeResetStore) ClearResetToken(_ context.Context, userID int64) error {
	f.user.ResetToken = ""
	f.user.ResetTokenExpires = time.Time{}
	return nil
}

type captureSender struct {
	email string
	token string
}

func (c *captureSender) SendPasswordReset(_ context.Context, email, token string, _ time.Time) error {
	c.email = email
	c.token = token
	return nil
}

func TestForgotIssuesToken(t *testing.T) {
	store := &fakeResetStore{
		user:    core.User{ID: 1, Email: "alice@example.com"},
		hasUser: true,
	}
	sender := &captureSender{}
	svc := NewPasswordResetService(store, sender)

	if err := svc.Forgot(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("Forgot: %v", err)
	}
	if len(store.user.ResetToken) != 32 {
		t.Errorf("token length = %d, want 32", len(store.user.ResetToken))
	}
	if sender.token != store.user.ResetToken {
		t.Error("delivered token differs from stored token")
	}
	if sender.email != "alice@example.com" {
		t.Errorf("delivered to %q", sender.email)
	}
	ttl := time.Until(store.user.ResetTokenExpires)
	if ttl < 59*time.Minute || ttl > 61*time.Minute {
		t.Errorf("expiry = %v from now, want about 1h", ttl)
	}
}

func TestForgotUnknownEmailIsSilent(t *testing.T) {
	store := &fakeResetStore{}
	sender := &captureSender{}
	svc := NewPasswordResetService(store, sender)

	if err := svc.Forgot(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("Forgot must not reveal unknown accounts: %v", err)
	}
	if sender.token != "" {
		t.Error("no token should be delivered for unknown email")
	}
}

func TestResetUpdatesPasswordAndConsumesToken(t *testing.T) {
	store := &fakeResetStore{
		user:    core.User{ID: 1, Email: "alice@example.com"},
		hasUser: true,
	}
	svc := NewPasswordResetService(store, &captureSender{})

	if err := svc.Forgot(context.Background(), "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	token := store.user.ResetToken

	if err := svc.Reset(context.Background(), token, "new-password-123"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !auth.CheckPassword(store.user.PasswordHash, "new-password-123") {
		t.Error("stored hash does not match new password")
	}
	if store.user.ResetToken != "" {
		t.Error("token must be cleared after use")
	}

	if err := svc.Reset(context.Background(), token, "another-password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("reusing a consumed token: err = %v, want ErrResetTokenInvalid", err)
	}
}

func TestResetRejectsExpiredToken(t *testing.T) {
	store := &fakeResetStore{
		user:    core.User{ID: 1, Email: "alice@example.com"},
		hasUser: true,
	}
	svc := NewPasswordResetService(store, &captureSender{})

	if err := svc.Forgot(context.Background(), "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	token := store.user.ResetToken
	store.user.ResetTokenExpires = time.Now().Add(-time.Minute)

	if err := svc.Reset(context.Background(), token, "new-password-123"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("err = %v, want ErrResetTokenExpired", err)
	}
	if store.user.ResetToken != "" {
		t.Error("expired token must be cleared")
	}
}

func TestResetRejectsMalformedToken(t *testing.T) {
	svc := NewPasswordResetService(&fakeResetStore{}, &captureSender{})
	if err := svc.Reset(context.Background(), "short", "new-password-123"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("err = %v, want ErrResetTokenInvalid", err)
	}
}
