package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	items, err := s.store.ListRecurring(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("list recurring", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(items),
		"results": toRecurringList(items),
	})
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := currentUser(r)
	template, err := recurringFromRequest(req, user.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateRecurring(r.Context(), template)
	if err != nil {
		s.logger.Error("create recurring", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":           "recurring expense created successfully",
		"recurring_expense": toRecurringJSON(created),
	})
}

func recurringFromRequest(req recurringRequest, userID int64) (core.RecurringExpense, error) {
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	frequency := core.Frequency(strings.ToLower(req.Frequency))
	if !frequency.Valid() {
		return core.RecurringExpense{}, core.ErrInvalidFrequency
	}
	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		return core.RecurringExpense{}, errors.New("invalid start_date format, use YYYY-MM-DD")
	}
	var end core.Date
	if req.EndDate != "" {
		end, err = core.ParseDate(req.EndDate)
		if err != nil {
			return core.RecurringExpense{}, errors.New("invalid end_date format, use YYYY-MM-DD")
		}
	}

	template := core.RecurringExpense{
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Amount:      core.Money{Cents: req.Amount.Cents()},
		Category:    category,
		Frequency:   frequency,
		StartDate:   start,
		EndDate:     end,
		NextDate:    start,
		IsActive:    true,
		Description: req.Description,
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if err := template.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	return template, nil
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}

	item, err := s.store.GetRecurring(r.Context(), user.ID, id)
	if err != nil {
		s.respondStoreError(w, err, "get recurring", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringJSON(item))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}

	existing, err := s.store.GetRecurring(r.Context(), user.ID, id)
	if err != nil {
		s.respondStoreError(w, err, "get recurring", user.ID)
		return
	}

	var req recurringRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	template, err := recurringFromRequest(req, user.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	template.ID = id
	template.IsActive = existing.IsActive
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	// Keep the schedule position unless the start date moved.
	template.NextDate = existing.NextDate
	if !template.StartDate.Equal(existing.StartDate) {
		template.NextDate = template.StartDate
	}

	updated, err := s.store.UpdateRecurring(r.Context(), template)
	if err != nil {
		s.respondStoreError(w, err, "update recurring", user.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":           "recurring expense updated successfully",
		"recurring_expense": toRecurringJSON(updated),
	})
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}

	if err := s.store.DeleteRecurring(r.Context(), user.ID, id); err != nil {
		s.respondStoreError(w, err, "delete recurring", user.ID)
		return
	}
	writeMessage(w, http.StatusOK, "recurring expense deleted successfully")
}

func (s *Server) handleToggleRecurring(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}

	// Ownership check before flipping the flag.
	item, err := s.store.GetRecurring(r.Context(), user.ID, id)
	if err != nil {
		s.respondStoreError(w, err, "get recurring", user.ID)
		return
	}

	active := !item.IsActive
	if err := s.store.SetRecurringActive(r.Context(), id, active); err != nil {
		s.respondStoreError(w, err, "toggle recurring", user.ID)
		return
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   fmt.Sprintf("recurring expense %s successfully", state),
		"is_active": active,
	})
}

// handleGenerateExpenses materializes every due occurrence across the
// caller's active templates.
func (s *Server) handleGenerateExpenses(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	count, err := s.generator.GenerateDue(r.Context(), user, core.DateOf(time.Now().UTC()))
	if err != nil {
		s.logger.Error("generate expenses", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if count > 0 {
		s.reports.invalidate(user.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         fmt.Sprintf("generated %d expenses", count),
		"generated_count": count,
	})
}

// handleGenerateAll backfills the current month for the caller,
// creating any scheduled expenses that are missing.
func (s *Server) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	count, err := s.generator.BackfillMonth(r.Context(), user, core.DateOf(time.Now().UTC()))
	if err != nil {
		s.logger.Error("backfill month", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if count > 0 {
		s.reports.invalidate(user.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         fmt.Sprintf("generated %d expenses", count),
		"generated_count": count,
	})
}
