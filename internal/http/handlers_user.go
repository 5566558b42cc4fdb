package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserJSON(currentUser(r)))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := currentUser(r)
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email == "" {
			writeError(w, http.StatusBadRequest, "email cannot be empty")
			return
		}
		user.Email = email
	}

	updated, err := s.store.UpdateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, storage.ErrEmailExists) {
			writeError(w, http.StatusBadRequest, "email already exists")
			return
		}
		s.logger.Error("update profile", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "profile updated successfully",
		"user":    toUserJSON(updated),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserJSON(currentUser(r))})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := currentUser(r)
	if req.Currency != nil {
		currency := core.Currency(strings.ToUpper(*req.Currency))
		if !currency.Valid() {
			writeError(w, http.StatusBadRequest, "invalid currency")
			return
		}
		user.Currency = currency
	}
	if req.ThemeColor != nil {
		user.ThemeColor = *req.ThemeColor
	}
	if req.NotificationsEnabled != nil {
		user.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.DarkMode != nil {
		user.DarkMode = *req.DarkMode
	}
	if req.CompactMode != nil {
		user.CompactMode = *req.CompactMode
	}

	updated, err := s.store.UpdateUser(r.Context(), user)
	if err != nil {
		s.logger.Error("update settings", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "settings updated successfully",
		"user":    toUserJSON(updated),
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	user := currentUser(r)
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		s.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := s.store.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.logger.Error("update password", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeMessage(w, http.StatusOK, "password changed successfully")
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	today := core.DateOf(time.Now().UTC())

	monthExpenses, err := s.store.ListExpensesBetween(r.Context(), user.ID, today.StartOfMonth(), today)
	if err != nil {
		s.logger.Error("list month expenses", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	stats := core.ComputeBudgetStats(user, monthExpenses, today)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":         toUserJSON(user),
		"budget_stats": budgetStatsJSON(stats, today),
		"alerts": map[string]bool{
			"threshold_reached": stats.ThresholdReached,
			"budget_exceeded":   stats.Exceeded,
		},
	})
}

func budgetStatsJSON(stats core.BudgetStats, asOf core.Date) map[string]any {
	return map[string]any{
		"monthly_budget":         stats.MonthlyBudget.Float64(),
		"current_month_expenses": stats.CurrentMonthExpenses.Float64(),
		"budget_remaining":       stats.BudgetRemaining.Float64(),
		"budget_percentage":      stats.BudgetPercentage,
		"daily_average":          stats.DailyAverage,
		"projected_spending":     stats.ProjectedSpending,
		"days_elapsed":           stats.DaysElapsed,
		"days_in_month":          core.DaysInMonth(asOf.Year(), asOf.Month()),
		"alert_threshold":        stats.AlertThreshold,
	}
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetUpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := currentUser(r)
	if req.MonthlyBudget != nil {
		if req.MonthlyBudget.Cents() <= 0 {
			writeError(w, http.StatusBadRequest, "monthly budget must be greater than 0")
			return
		}
		user.MonthlyBudget = core.Money{Cents: req.MonthlyBudget.Cents()}
	}
	if req.AlertThreshold != nil {
		if *req.AlertThreshold < 0 || *req.AlertThreshold > 100 {
			writeError(w, http.StatusBadRequest, "alert threshold must be between 0 and 100")
			return
		}
		user.AlertThreshold = *req.AlertThreshold
	}
	if req.EnableAlerts != nil {
		user.EnableAlerts = *req.EnableAlerts
	}

	updated, err := s.store.UpdateUser(r.Context(), user)
	if err != nil {
		s.logger.Error("update budget", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "budget updated successfully",
		"user":    toUserJSON(updated),
	})
}
