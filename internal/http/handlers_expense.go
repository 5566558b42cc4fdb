package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()

	filter := storage.ExpenseFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Page:     1,
		PageSize: defaultPageSize,
	}
	if raw := q.Get("category"); raw != "" {
		category, err := core.ParseCategory(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		filter.Category = category
	}
	if raw := q.Get("start_date"); raw != "" {
		start, err := core.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
			return
		}
		filter.Start = start
	}
	if raw := q.Get("end_date"); raw != "" {
		end, err := core.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
			return
		}
		filter.End = end
	}
	if raw := q.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			filter.PageSize = min(size, maxPageSize)
		}
	}

	expenses, total, err := s.store.ListExpenses(r.Context(), user.ID, filter)
	if err != nil {
		s.logger.Error("list expenses", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
		"results":   toExpenseList(expenses),
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := s.expenseFromRequest(req, currentUser(r).ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := currentUser(r)
	today := core.DateOf(time.Now().UTC())
	created, err := s.expenses.CreateExpense(r.Context(), user, expense, today)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("create expense", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.reports.invalidate(user.ID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "expense created successfully",
		"expense": toExpenseJSON(created),
	})
}

func (s *Server) expenseFromRequest(req expenseRequest, userID int64) (core.Expense, error) {
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Expense{}, errors.New("invalid date format, use YYYY-MM-DD")
	}
	expense := core.Expense{
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Amount:      core.Money{Cents: req.Amount.Cents()},
		Category:    category,
		Date:        date,
		Description: req.Description,
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, err
	}
	return expense, nil
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	expense, err := s.store.GetExpense(r.Context(), user.ID, id)
	if err != nil {
		s.respondStoreError(w, err, "get expense", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseJSON(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req expenseRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	expense, err := s.expenseFromRequest(req, user.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expense.ID = id

	updated, err := s.store.UpdateExpense(r.Context(), expense)
	if err != nil {
		s.respondStoreError(w, err, "update expense", user.ID)
		return
	}
	s.reports.invalidate(user.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "expense updated successfully",
		"expense": toExpenseJSON(updated),
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.store.DeleteExpense(r.Context(), user.ID, id); err != nil {
		s.respondStoreError(w, err, "delete expense", user.ID)
		return
	}
	s.reports.invalidate(user.ID)
	writeMessage(w, http.StatusOK, "expense deleted successfully")
}

// handleExpenseStats summarizes recent spending: today, this week,
// this month, with a category breakdown and the five newest expenses.
func (s *Server) handleExpenseStats(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	if payload, ok := s.reports.get(user.ID, r); ok {
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	today := core.DateOf(time.Now().UTC())
	// Week starts on Monday.
	weekOffset := (int(today.Weekday()) - int(time.Monday) + 7) % 7
	weekStart := today.AddDays(-weekOffset)
	monthStart := today.StartOfMonth()

	// The week can begin before the month does.
	listStart := monthStart
	if weekStart.Before(monthStart) {
		listStart = weekStart
	}
	expenses, err := s.store.ListExpensesBetween(r.Context(), user.ID, listStart, today)
	if err != nil {
		s.logger.Error("list month expenses", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var todayCents, weekCents int64
	var monthExpenses []core.Expense
	for _, e := range expenses {
		if e.Date.Equal(today) {
			todayCents += e.Amount.Cents
		}
		if !e.Date.Before(weekStart) {
			weekCents += e.Amount.Cents
		}
		if !e.Date.Before(monthStart) {
			monthExpenses = append(monthExpenses, e)
		}
	}
	monthTotal, count := core.TotalAndCount(monthExpenses)

	breakdown := map[string]float64{}
	for _, stat := range core.CategoryBreakdown(monthExpenses) {
		breakdown[stat.Category.Label()] = stat.Amount.Float64()
	}

	recent, _, err := s.store.ListExpenses(r.Context(), user.ID, storage.ExpenseFilter{Page: 1, PageSize: 5})
	if err != nil {
		s.logger.Error("list recent expenses", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.respondCached(w, user.ID, r, map[string]any{
		"total_expenses":     monthTotal.Float64(),
		"expense_count":      count,
		"today_expenses":     core.Money{Cents: todayCents}.Float64(),
		"week_expenses":      core.Money{Cents: weekCents}.Float64(),
		"month_expenses":     monthTotal.Float64(),
		"category_breakdown": breakdown,
		"recent_expenses":    toExpenseList(recent),
	})
}

func (s *Server) handleExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	if payload, ok := s.reports.get(user.ID, r); ok {
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	expenses, _, err := s.store.ListExpenses(r.Context(), user.ID, storage.ExpenseFilter{})
	if err != nil {
		s.logger.Error("list expenses", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	grouped := map[string][]expenseJSON{}
	for _, e := range expenses {
		label := e.Category.Label()
		grouped[label] = append(grouped[label], toExpenseJSON(e))
	}
	s.respondCached(w, user.ID, r, grouped)
}

func (s *Server) handleExpensesByDateRange(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()

	start, err := core.ParseDate(q.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
		return
	}
	end, err := core.ParseDate(q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}

	expenses, err := s.store.ListExpensesBetween(r.Context(), user.ID, start, end)
	if err != nil {
		s.logger.Error("list expenses by range", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	total, count := core.TotalAndCount(expenses)
	writeJSON(w, http.StatusOK, map[string]any{
		"start_date": start.String(),
		"end_date":   end.String(),
		"total":      total.Float64(),
		"count":      count,
		"results":    toExpenseList(expenses),
	})
}

func (s *Server) handleExpensesMonthlyGrouped(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	if payload, ok := s.reports.get(user.ID, r); ok {
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	expenses, _, err := s.store.ListExpenses(r.Context(), user.ID, storage.ExpenseFilter{})
	if err != nil {
		s.logger.Error("list expenses", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	keys, buckets := core.GroupByMonth(expenses)
	months := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		bucket := buckets[key]
		total, count := core.TotalAndCount(bucket)
		months = append(months, map[string]any{
			"month":    key,
			"total":    total.Float64(),
			"count":    count,
			"expenses": toExpenseList(bucket),
		})
	}
	s.respondCached(w, user.ID, r, map[string]any{"months": months})
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidFrequency),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEndBeforeStart):
		return true
	}
	return false
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error, op string, userID int64) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.logger.Error(op, "error", err, "user_id", userID)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
