package core

import (
	"math"
	"testing"
)

func exp(cents int64, cat Category, d Date) Expense {
	return Expense{Title: "t", Amount: Money{Cents: cents}, Category: cat, Date: d}
}

func TestTotalAndCount(t *testing.T) {
	total, count := TotalAndCount(nil)
	if total.Cents != 0 || count != 0 {
		t.Fatalf("empty: got %d/%d", total.Cents, count)
	}

	expenses := []Expense{
		exp(100, CategoryFood, NewDate(2025, 1, 1)),
		exp(250, CategoryTravel, NewDate(2025, 1, 2)),
	}
	total, count = TotalAndCount(expenses)
	if total.Cents != 350 || count != 2 {
		t.Fatalf("got %d/%d", total.Cents, count)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	expenses := []Expense{
		exp(7500, CategoryFood, NewDate(2025, 1, 1)),
		exp(2500, CategoryTravel, NewDate(2025, 1, 2)),
	}
	stats := CategoryBreakdown(expenses)
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	// Zero categories omitted, percentages sum to 100.
	var pctSum float64
	for _, s := range stats {
		if s.Amount.Cents == 0 {
			t.Fatalf("zero category %s present", s.Category)
		}
		pctSum += s.Percentage
	}
	if math.Abs(pctSum-100) > 1e-9 {
		t.Fatalf("percentages sum to %v", pctSum)
	}
	if stats[0].Category != CategoryFood || stats[0].Percentage != 75 {
		t.Fatalf("food row wrong: %+v", stats[0])
	}
}

func TestCategoryBreakdownEmpty(t *testing.T) {
	if stats := CategoryBreakdown(nil); len(stats) != 0 {
		t.Fatalf("expected empty breakdown, got %d rows", len(stats))
	}
}

func TestTopCategory(t *testing.T) {
	if top := TopCategory(nil); top != nil {
		t.Fatal("expected nil for empty breakdown")
	}

	stats := CategoryBreakdown([]Expense{
		exp(100, CategoryTravel, NewDate(2025, 1, 1)),
		exp(300, CategoryFood, NewDate(2025, 1, 2)),
	})
	top := TopCategory(stats)
	if top == nil || top.Category != CategoryFood {
		t.Fatalf("got %+v", top)
	}

	// Equal totals resolve to the lexicographically smallest label.
	tied := CategoryBreakdown([]Expense{
		exp(100, CategoryTravel, NewDate(2025, 1, 1)),
		exp(100, CategoryEducation, NewDate(2025, 1, 2)),
	})
	top = TopCategory(tied)
	if top == nil || top.Category != CategoryEducation {
		t.Fatalf("tie-break got %+v", top)
	}
}

func TestDailyAverage(t *testing.T) {
	if got := DailyAverage(nil); got != 0 {
		t.Fatalf("empty: got %v", got)
	}

	// 30.00 over Jan 1..Jan 3 inclusive = 10.00/day
	expenses := []Expense{
		exp(1000, CategoryFood, NewDate(2025, 1, 1)),
		exp(1000, CategoryFood, NewDate(2025, 1, 2)),
		exp(1000, CategoryFood, NewDate(2025, 1, 3)),
	}
	if got := DailyAverage(expenses); math.Abs(got-10) > 1e-9 {
		t.Fatalf("got %v", got)
	}

	// Single day span counts as one day.
	single := []Expense{exp(500, CategoryFood, NewDate(2025, 1, 1))}
	if got := DailyAverage(single); math.Abs(got-5) > 1e-9 {
		t.Fatalf("single day got %v", got)
	}
}

func TestMonthlyTrend(t *testing.T) {
	ref := NewDate(2025, 3, 15)
	expenses := []Expense{
		exp(1000, CategoryFood, NewDate(2025, 1, 31)),
		exp(2000, CategoryFood, NewDate(2025, 2, 1)),
		exp(4000, CategoryFood, NewDate(2025, 3, 10)),
		exp(9999, CategoryFood, NewDate(2024, 12, 31)), // outside window
	}
	trend := MonthlyTrend(expenses, 3, ref)
	if len(trend) != 3 {
		t.Fatalf("expected 3 periods, got %d", len(trend))
	}
	// Oldest first.
	if trend[0].Period != "Jan 2025" || trend[0].Amount.Cents != 1000 {
		t.Fatalf("jan: %+v", trend[0])
	}
	if trend[1].Amount.Cents != 2000 || trend[2].Amount.Cents != 4000 {
		t.Fatalf("feb/mar: %+v %+v", trend[1], trend[2])
	}
}

func TestYearlyTrend(t *testing.T) {
	ref := NewDate(2025, 6, 1)
	expenses := []Expense{
		exp(1000, CategoryFood, NewDate(2024, 5, 1)),
		exp(3000, CategoryFood, NewDate(2025, 2, 1)),
	}
	trend := YearlyTrend(expenses, 2, ref)
	if len(trend) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(trend))
	}
	if trend[0].Period != "2024" || trend[0].Amount.Cents != 1000 {
		t.Fatalf("2024: %+v", trend[0])
	}
	if trend[1].Period != "2025" || trend[1].Amount.Cents != 3000 {
		t.Fatalf("2025: %+v", trend[1])
	}
}

func TestComputeBudgetStats(t *testing.T) {
	user := User{
		MonthlyBudget:  Money{Cents: 1000000}, // 10000.00
		AlertThreshold: 80,
	}
	asOf := NewDate(2025, 1, 20)
	monthExpenses := []Expense{exp(850000, CategoryFood, NewDate(2025, 1, 5))}

	stats := ComputeBudgetStats(user, monthExpenses, asOf)
	if math.Abs(stats.BudgetPercentage-85) > 1e-9 {
		t.Fatalf("percentage got %v", stats.BudgetPercentage)
	}
	if !stats.ThresholdReached {
		t.Fatal("expected threshold reached")
	}
	if stats.Exceeded {
		t.Fatal("did not expect budget exceeded")
	}
	if stats.BudgetRemaining.Cents != 150000 {
		t.Fatalf("remaining got %d", stats.BudgetRemaining.Cents)
	}
	if stats.DaysElapsed != 20 {
		t.Fatalf("days elapsed got %d", stats.DaysElapsed)
	}
	wantDaily := 8500.0 / 20
	if math.Abs(stats.DailyAverage-wantDaily) > 1e-9 {
		t.Fatalf("daily average got %v", stats.DailyAverage)
	}
	if math.Abs(stats.ProjectedSpending-wantDaily*30) > 1e-9 {
		t.Fatalf("projection got %v", stats.ProjectedSpending)
	}
}

func TestComputeBudgetStatsZeroBudget(t *testing.T) {
	user := User{MonthlyBudget: Money{Cents: 0}, AlertThreshold: 80}
	stats := ComputeBudgetStats(user, []Expense{exp(100, CategoryFood, NewDate(2025, 1, 1))}, NewDate(2025, 1, 1))
	if stats.BudgetPercentage != 0 {
		t.Fatalf("zero budget must report 0%%, got %v", stats.BudgetPercentage)
	}
	if !stats.Exceeded {
		t.Fatal("any spend exceeds a zero budget")
	}
}

func TestGroupByMonth(t *testing.T) {
	expenses := []Expense{
		exp(100, CategoryFood, NewDate(2025, 2, 10)),
		exp(200, CategoryFood, NewDate(2025, 1, 5)),
		exp(300, CategoryFood, NewDate(2025, 2, 1)),
	}
	keys, groups := GroupByMonth(expenses)
	if len(keys) != 2 || keys[0] != "2025-02" || keys[1] != "2025-01" {
		t.Fatalf("keys: %v", keys)
	}
	if len(groups["2025-02"]) != 2 || len(groups["2025-01"]) != 1 {
		t.Fatalf("groups: %v", groups)
	}
}
