package http

import (
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()

	var filter storage.ExpenseFilter
	var startStr, endStr *string
	if raw := q.Get("start_date"); raw != "" {
		start, err := core.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
			return
		}
		filter.Start = start
		v := start.String()
		startStr = &v
	}
	if raw := q.Get("end_date"); raw != "" {
		end, err := core.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
			return
		}
		filter.End = end
		v := end.String()
		endStr = &v
	}

	if payload, ok := s.reports.get(user.ID, r); ok {
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	expenses, _, err := s.store.ListExpenses(r.Context(), user.ID, filter)
	if err != nil {
		s.logger.Error("list expenses for report", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	total, count := core.TotalAndCount(expenses)
	breakdown := core.CategoryBreakdown(expenses)

	breakdownJSON := map[string]map[string]float64{}
	for _, stat := range breakdown {
		breakdownJSON[stat.Category.Label()] = map[string]float64{
			"amount":     stat.Amount.Float64(),
			"percentage": stat.Percentage,
		}
	}

	var topJSON map[string]any
	if top := core.TopCategory(breakdown); top != nil {
		topJSON = map[string]any{
			"name":   top.Category.Label(),
			"amount": top.Amount.Float64(),
		}
	}

	today := core.DateOf(time.Now().UTC())
	trend := make([]map[string]any, 0, 6)
	for _, pt := range core.MonthlyTrend(expenses, 6, today) {
		trend = append(trend, map[string]any{
			"month":  pt.Period,
			"amount": pt.Amount.Float64(),
		})
	}

	s.respondCached(w, user.ID, r, map[string]any{
		"total_expenses":     total.Float64(),
		"total_count":        count,
		"daily_average":      core.DailyAverage(expenses),
		"category_breakdown": breakdownJSON,
		"top_category":       topJSON,
		"monthly_trend":      trend,
		"date_range":         map[string]any{"start": startStr, "end": endStr},
	})
}

// handleSpendingTrend returns period totals for charting, monthly by
// default or yearly with ?view=yearly.
func (s *Server) handleSpendingTrend(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()

	view := q.Get("view")
	if view == "" {
		view = "monthly"
	}
	if view != "monthly" && view != "yearly" {
		writeError(w, http.StatusBadRequest, "view must be monthly or yearly")
		return
	}

	periods := 12
	if view == "yearly" {
		periods = 3
	} else if raw := q.Get("months"); raw != "" {
		// months only applies to the monthly view.
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 60 {
			writeError(w, http.StatusBadRequest, "months must be between 1 and 60")
			return
		}
		periods = n
	}

	if payload, ok := s.reports.get(user.ID, r); ok {
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	expenses, _, err := s.store.ListExpenses(r.Context(), user.ID, storage.ExpenseFilter{})
	if err != nil {
		s.logger.Error("list expenses for trend", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	today := core.DateOf(time.Now().UTC())
	var totals []core.PeriodTotal
	layout := "Jan 2006"
	if view == "yearly" {
		totals = core.YearlyTrend(expenses, periods, today)
		layout = "2006"
	} else {
		totals = core.MonthlyTrend(expenses, periods, today)
	}

	trend := make([]map[string]any, 0, len(totals))
	for _, pt := range totals {
		entry := map[string]any{
			"period": pt.Period,
			"amount": pt.Amount.Float64(),
		}
		if t, err := time.Parse(layout, pt.Period); err == nil {
			entry["date"] = t.Format("2006-01-02")
		}
		trend = append(trend, entry)
	}
	s.respondCached(w, user.ID, r, trend)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	if payload, ok := s.reports.get(user.ID, r); ok {
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	expenses, _, err := s.store.ListExpenses(r.Context(), user.ID, storage.ExpenseFilter{})
	if err != nil {
		s.logger.Error("list expenses for summary", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	counts := map[core.Category]int{}
	for _, e := range expenses {
		counts[e.Category]++
	}

	data := make([]map[string]any, 0)
	for _, stat := range core.CategoryBreakdown(expenses) {
		data = append(data, map[string]any{
			"category":   stat.Category.Label(),
			"amount":     stat.Amount.Float64(),
			"percentage": stat.Percentage,
			"count":      counts[stat.Category],
		})
	}
	s.respondCached(w, user.ID, r, map[string]any{"category_data": data})
}
