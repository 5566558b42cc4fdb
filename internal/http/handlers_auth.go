package http

import (
	"errors"
	"net/http"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	if req.ConfirmPassword != "" && req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		s.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := core.User{
		Username:             req.Username,
		Email:                req.Email,
		PasswordHash:         hash,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Currency:             core.INR,
		MonthlyBudget:        core.Money{Cents: core.DefaultMonthlyBudgetCents},
		AlertThreshold:       core.DefaultAlertThreshold,
		EnableAlerts:         true,
		NotificationsEnabled: true,
		ThemeColor:           core.DefaultThemeColor,
	}
	created, err := s.store.CreateUser(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUsernameExists):
			writeError(w, http.StatusBadRequest, "username already exists")
		case errors.Is(err, storage.ErrEmailExists):
			writeError(w, http.StatusBadRequest, "email already exists")
		default:
			s.logger.Error("create user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	tokens, err := s.tokens.IssuePair(created.ID)
	if err != nil {
		s.logger.Error("issue tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user created successfully",
		"user":    toUserJSON(created),
		"tokens":  tokens,
	})
}

// handleLogin accepts a username or an email; the mobile and web
// clients send different fields.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		user core.User
		err  error
	)
	switch {
	case req.Username != "":
		user, err = s.store.GetUserByUsername(r.Context(), req.Username)
		if errors.Is(err, storage.ErrNotFound) {
			user, err = s.store.GetUserByEmail(r.Context(), req.Username)
		}
	case req.Email != "":
		user, err = s.store.GetUserByEmail(r.Context(), strings.ToLower(req.Email))
	default:
		writeError(w, http.StatusBadRequest, "username or email is required")
		return
	}
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		s.logger.Error("issue tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"user":    toUserJSON(user),
		"tokens":  tokens,
	})
}

// handleToken is the bare credentials-to-token-pair exchange.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		user core.User
		err  error
	)
	switch {
	case req.Email != "":
		user, err = s.store.GetUserByEmail(r.Context(), strings.ToLower(req.Email))
	case req.Username != "":
		user, err = s.store.GetUserByUsername(r.Context(), req.Username)
	default:
		writeError(w, http.StatusBadRequest, "username or email is required")
		return
	}
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		s.logger.Error("issue tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r.Body, &req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	userID, err := s.tokens.VerifyRefresh(req.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	if _, err := s.store.GetUserByID(r.Context(), userID); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	tokens, err := s.tokens.IssuePair(userID)
	if err != nil {
		s.logger.Error("issue tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": tokens.Access})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r.Body, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := s.resets.Forgot(r.Context(), strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		s.logger.Error("forgot password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Same response whether or not the account exists.
	writeMessage(w, http.StatusOK, "if an account with that email exists, a reset link has been sent")
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "token and password are required")
		return
	}

	err := s.resets.Reset(r.Context(), req.Token, req.Password)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "password reset successful")
	case errors.Is(err, services.ErrResetTokenExpired):
		writeError(w, http.StatusBadRequest, "reset token has expired")
	case errors.Is(err, services.ErrResetTokenInvalid):
		writeError(w, http.StatusBadRequest, "invalid reset token")
	case errors.Is(err, auth.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
	default:
		s.logger.Error("reset password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
