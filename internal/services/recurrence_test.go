package services

import (
	"testing"

	"fintrack/internal/core"
)

func TestDailyCheckerIsDueOn(t *testing.T) {
	checker := DailyChecker{}
	start := core.NewDate(2026, 1, 15)

	for _, day := range []core.Date{
		core.NewDate(2026, 1, 15),
		core.NewDate(2026, 1, 16),
		core.NewDate(2026, 6, 3),
	} {
		if !checker.IsDueOn(start, day) {
			t.Errorf("daily checker should be due on %s", day)
		}
	}
}

func TestWeeklyCheckerIsDueOn(t *testing.T) {
	checker := WeeklyChecker{}
	// 2026-01-05 is a Monday.
	start := core.NewDate(2026, 1, 5)

	tests := []struct {
		name string
		day  core.Date
		want bool
	}{
		{"same day", core.NewDate(2026, 1, 5), true},
		{"next monday", core.NewDate(2026, 1, 12), true},
		{"monday months later", core.NewDate(2026, 3, 2), true},
		{"tuesday", core.NewDate(2026, 1, 6), false},
		{"sunday", core.NewDate(2026, 1, 11), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDueOn(start, tt.day); got != tt.want {
				t.Errorf("IsDueOn(%s, %s) = %v, want %v", start, tt.day, got, tt.want)
			}
		})
	}
}

func TestMonthlyCheckerIsDueOn(t *testing.T) {
	checker := MonthlyChecker{}

	tests := []struct {
		name  string
		start core.Date
		day   core.Date
		want  bool
	}{
		{"same day of month", core.NewDate(2026, 1, 15), core.NewDate(2026, 2, 15), true},
		{"different day", core.NewDate(2026, 1, 15), core.NewDate(2026, 2, 14), false},
		{"31st clamps to apr 30", core.NewDate(2026, 1, 31), core.NewDate(2026, 4, 30), true},
		{"31st not due apr 29", core.NewDate(2026, 1, 31), core.NewDate(2026, 4, 29), false},
		{"31st clamps to feb 28", core.NewDate(2026, 1, 31), core.NewDate(2026, 2, 28), true},
		{"31st clamps to feb 29 leap", core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 29), true},
		{"31st due on the 31st itself", core.NewDate(2026, 1, 31), core.NewDate(2026, 3, 31), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDueOn(tt.start, tt.day); got != tt.want {
				t.Errorf("IsDueOn(%s, %s) = %v, want %v", tt.start, tt.day, got, tt.want)
			}
		})
	}
}

func TestYearlyCheckerIsDueOn(t *testing.T) {
	checker := YearlyChecker{}

	tests := []struct {
		name  string
		start core.Date
		day   core.Date
		want  bool
	}{
		{"anniversary", core.NewDate(2025, 6, 10), core.NewDate(2026, 6, 10), true},
		{"wrong month", core.NewDate(2025, 6, 10), core.NewDate(2026, 7, 10), false},
		{"wrong day", core.NewDate(2025, 6, 10), core.NewDate(2026, 6, 11), false},
		{"feb 29 clamps to feb 28", core.NewDate(2024, 2, 29), core.NewDate(2026, 2, 28), true},
		{"feb 29 due in leap year", core.NewDate(2024, 2, 29), core.NewDate(2028, 2, 29), true},
		{"feb 29 not due feb 27", core.NewDate(2024, 2, 29), core.NewDate(2026, 2, 27), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDueOn(tt.start, tt.day); got != tt.want {
				t.Errorf("IsDueOn(%s, %s) = %v, want %v", tt.start, tt.day, got, tt.want)
			}
		})
	}
}

func TestGetOccurrenceChecker(t *testing.T) {
	for _, freq := range []core.Frequency{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetOccurrenceChecker(freq); err != nil {
			t.Errorf("GetOccurrenceChecker(%s) returned error: %v", freq, err)
		}
	}
	if _, err := GetOccurrenceChecker(core.Frequency("hourly")); err == nil {
		t.Error("expected error for unknown frequency")
	}
}

func TestNextOccurrenceDailyWeekly(t *testing.T) {
	daily := core.RecurringExpense{Frequency: core.Daily, StartDate: core.NewDate(2026, 1, 1)}
	if got := NextOccurrence(daily, core.NewDate(2026, 1, 31)); !got.Equal(core.NewDate(2026, 2, 1)) {
		t.Errorf("daily next = %s, want 2026-02-01", got)
	}

	weekly := core.RecurringExpense{Frequency: core.Weekly, StartDate: core.NewDate(2026, 1, 5)}
	if got := NextOccurrence(weekly, core.NewDate(2026, 1, 26)); !got.Equal(core.NewDate(2026, 2, 2)) {
		t.Errorf("weekly next = %s, want 2026-02-02", got)
	}
}

// A monthly template anchored on the 31st must visit every month exactly
// once, clamping in short months and springing back in long ones.
func TestNextOccurrenceMonthlyEndOfMonthChain(t *testing.T) {
	tpl := core.RecurringExpense{
		Frequency: core.Monthly,
		StartDate: core.NewDate(2024, 1, 31),
	}

	want := []core.Date{
		core.NewDate(2024, 2, 29), // leap february
		core.NewDate(2024, 3, 31),
		core.NewDate(2024, 4, 30),
		core.NewDate(2024, 5, 31),
		core.NewDate(2024, 6, 30),
	}

	cur := tpl.StartDate
	for i, expected := range want {
		cur = NextOccurrence(tpl, cur)
		if !cur.Equal(expected) {
			t.Fatalf("step %d: got %s, want %s", i+1, cur, expected)
		}
	}
}

func TestNextOccurrenceMonthlyNonLeapFebruary(t *testing.T) {
	tpl := core.RecurringExpense{
		Frequency: core.Monthly,
		StartDate: core.NewDate(2026, 1, 31),
	}

	next := NextOccurrence(tpl, tpl.StartDate)
	if !next.Equal(core.NewDate(2026, 2, 28)) {
		t.Errorf("got %s, want 2026-02-28", next)
	}
	next = NextOccurrence(tpl, next)
	if !next.Equal(core.NewDate(2026, 3, 31)) {
		t.Errorf("got %s, want 2026-03-31", next)
	}
}

func TestNextOccurrenceYearlyDecemberRollover(t *testing.T) {
	tpl := core.RecurringExpense{
		Frequency: core.Monthly,
		StartDate: core.NewDate(2025, 12, 15),
	}
	if got := NextOccurrence(tpl, core.NewDate(2025, 12, 15)); !got.Equal(core.NewDate(2026, 1, 15)) {
		t.Errorf("monthly december rollover: got %s, want 2026-01-15", got)
	}

	yearly := core.RecurringExpense{
		Frequency: core.Yearly,
		StartDate: core.NewDate(2024, 2, 29),
	}
	if got := NextOccurrence(yearly, core.NewDate(2024, 2, 29)); !got.Equal(core.NewDate(2025, 2, 28)) {
		t.Errorf("yearly leap start: got %s, want 2025-02-28", got)
	}
}
