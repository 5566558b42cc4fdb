package core

import (
	"sort"
)

// This file contains the read-only aggregation layer. Every function here is
// a pure projection over a slice of expenses; none of them touch storage.
// Zero denominators (empty budget, empty slice, zero total) always yield 0.

// CategoryStat is one row of a category breakdown.
type CategoryStat struct {
	Category   Category
	Amount     Money
	Percentage float64
}

// PeriodTotal is the total spent in one trend period (month or year).
type PeriodTotal struct {
	Period string
	Amount Money
}

// BudgetStats summarizes budget consumption for one calendar month.
type BudgetStats struct {
	MonthlyBudget        Money
	CurrentMonthExpenses Money
	BudgetRemaining      Money
	BudgetPercentage     float64
	DailyAverage         float64
	ProjectedSpending    float64
	DaysElapsed          int
	AlertThreshold       int
	ThresholdReached     bool
	Exceeded             bool
}

// TotalAndCount returns the sum of amounts and the number of expenses.
func TotalAndCount(expenses []Expense) (Money, int) {
	var total int64
	for _, e := range expenses {
		total += e.Amount.Cents
	}
	return Money{Cents: total}, len(expenses)
}

// CategoryBreakdown sums expenses per category, omitting categories with no
// spend. Percentages are of the grand total and 0 when the total is 0.
// Rows come back in the fixed category display order.
func CategoryBreakdown(expenses []Expense) []CategoryStat {
	sums := make(map[Category]int64)
	var grand int64
	for _, e := range expenses {
		sums[e.Category] += e.Amount.Cents
		grand += e.Amount.Cents
	}

	stats := make([]CategoryStat, 0, len(sums))
	for _, c := range Categories {
		cents := sums[c]
		if cents == 0 {
			continue
		}
		pct := 0.0
		if grand > 0 {
			pct = float64(cents) / float64(grand) * 100
		}
		stats = append(stats, CategoryStat{Category: c, Amount: Money{Cents: cents}, Percentage: pct})
	}
	return stats
}

// TopCategory returns the category with the highest total, or nil when the
// breakdown is empty. Ties resolve to the lexicographically smallest label so
// the result is deterministic.
func TopCategory(breakdown []CategoryStat) *CategoryStat {
	if len(breakdown) == 0 {
		return nil
	}
	top := breakdown[0]
	for _, s := range breakdown[1:] {
		if s.Amount.Cents > top.Amount.Cents ||
			(s.Amount.Cents == top.Amount.Cents && s.Category.Label() < top.Category.Label()) {
			top = s
		}
	}
	return &top
}

// DailyAverage returns the average spend per day across the inclusive span
// from the earliest to the latest expense date. Returns 0 for an empty slice.
func DailyAverage(expenses []Expense) float64 {
	if len(expenses) == 0 {
		return 0
	}
	minDate, maxDate := expenses[0].Date, expenses[0].Date
	var total int64
	for _, e := range expenses {
		if e.Date.Before(minDate) {
			minDate = e.Date
		}
		if e.Date.After(maxDate) {
			maxDate = e.Date
		}
		total += e.Amount.Cents
	}
	days := int(maxDate.Sub(minDate.Time).Hours()/24) + 1
	if days <= 0 {
		return 0
	}
	return float64(total) / 100.0 / float64(days)
}

// MonthlyTrend totals the last n calendar months ending with ref's month,
// ordered oldest to newest. Month boundaries are calendar-accurate.
func MonthlyTrend(expenses []Expense, n int, ref Date) []PeriodTotal {
	trend := make([]PeriodTotal, 0, n)
	for i := n - 1; i >= 0; i-- {
		monthStart := NewDate(ref.Year(), ref.Month(), 1)
		monthStart = Date{Time: monthStart.AddDate(0, -i, 0)}
		monthEnd := monthStart.EndOfMonth()

		var total int64
		for _, e := range expenses {
			if !e.Date.Before(monthStart) && !e.Date.After(monthEnd) {
				total += e.Amount.Cents
			}
		}
		trend = append(trend, PeriodTotal{
			Period: monthStart.Format("Jan 2006"),
			Amount: Money{Cents: total},
		})
	}
	return trend
}

// YearlyTrend totals the last n calendar years ending with ref's year,
// ordered oldest to newest.
func YearlyTrend(expenses []Expense, n int, ref Date) []PeriodTotal {
	trend := make([]PeriodTotal, 0, n)
	for i := n - 1; i >= 0; i-- {
		year := ref.Year() - i
		var total int64
		for _, e := range expenses {
			if e.Date.Year() == year {
				total += e.Amount.Cents
			}
		}
		trend = append(trend, PeriodTotal{
			Period: NewDate(year, 1, 1).Format("2006"),
			Amount: Money{Cents: total},
		})
	}
	return trend
}

// ComputeBudgetStats derives the budget view for the calendar month of asOf.
// monthExpenses must already be filtered to [start-of-month, asOf].
// Projection uses a fixed 30-day horizon regardless of the month's length.
func ComputeBudgetStats(user User, monthExpenses []Expense, asOf Date) BudgetStats {
	total, _ := TotalAndCount(monthExpenses)
	budget := user.MonthlyBudget

	stats := BudgetStats{
		MonthlyBudget:        budget,
		CurrentMonthExpenses: total,
		BudgetRemaining:      Money{Cents: budget.Cents - total.Cents},
		AlertThreshold:       user.AlertThreshold,
		DaysElapsed:          asOf.Day(),
	}

	if budget.Cents > 0 {
		stats.BudgetPercentage = float64(total.Cents) / float64(budget.Cents) * 100
	}
	if stats.DaysElapsed > 0 {
		stats.DailyAverage = float64(total.Cents) / 100.0 / float64(stats.DaysElapsed)
	}
	stats.ProjectedSpending = stats.DailyAverage * 30
	stats.ThresholdReached = stats.BudgetPercentage >= float64(user.AlertThreshold)
	stats.Exceeded = total.Cents > budget.Cents
	return stats
}

// GroupByMonth buckets expenses by YYYY-MM key, each bucket keeping the
// repository's date-descending order. Keys come back newest first.
func GroupByMonth(expenses []Expense) ([]string, map[string][]Expense) {
	groups := make(map[string][]Expense)
	keys := make([]string, 0)
	for _, e := range expenses {
		key := e.Date.Format("2006-01")
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], e)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, groups
}
