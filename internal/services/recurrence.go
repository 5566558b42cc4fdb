// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring expense occurrence
// checks. Each frequency type (daily, weekly, monthly, yearly) has its own
// strategy that decides whether a template is due on a given calendar day.
package services

import (
	"fmt"

	"fintrack/internal/core"
)

// OccurrenceChecker is the strategy interface for deciding whether a
// recurring expense template is due on a candidate date.
type OccurrenceChecker interface {
	// IsDueOn returns true when a template with the given start date should
	// materialize an expense on day.
	IsDueOn(start, day core.Date) bool
}

// DailyChecker implements OccurrenceChecker for daily templates.
type DailyChecker struct{}

// IsDueOn returns true for every day.
func (DailyChecker) IsDueOn(_, _ core.Date) bool {
	return true
}

// WeeklyChecker implements OccurrenceChecker for weekly templates.
type WeeklyChecker struct{}

// IsDueOn returns true when day falls on the start date's weekday.
func (WeeklyChecker) IsDueOn(start, day core.Date) bool {
	return day.Weekday() == start.Weekday()
}

// MonthlyChecker implements OccurrenceChecker for monthly templates.
type MonthlyChecker struct{}

// IsDueOn returns true when day matches the start date's day of the month.
// When the target day does not exist in day's month (e.g. the 31st in April)
// the occurrence clamps to the month's last day.
func (MonthlyChecker) IsDueOn(start, day core.Date) bool {
	target := clampDay(start.Day(), day.Year(), day.Month())
	return day.Day() == target
}

// YearlyChecker implements OccurrenceChecker for yearly templates.
type YearlyChecker struct{}

// IsDueOn returns true when day matches the start date's month and day,
// with Feb-29 templates clamping to Feb 28 in non-leap years.
func (YearlyChecker) IsDueOn(start, day core.Date) bool {
	if day.Month() != start.Month() {
		return false
	}
	target := clampDay(start.Day(), day.Year(), start.Month())
	return day.Day() == target
}

// clampDay limits a target day-of-month to the number of days in the month.
func clampDay(target, year, month int) int {
	if last := core.DaysInMonth(year, month); target > last {
		return last
	}
	return target
}

// occurrenceStrategies maps frequencies to their corresponding checkers.
var occurrenceStrategies = map[core.Frequency]OccurrenceChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetOccurrenceChecker returns the checker for a frequency.
// Returns an error for unknown frequencies.
func GetOccurrenceChecker(frequency core.Frequency) (OccurrenceChecker, error) {
	checker, ok := occurrenceStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return checker, nil
}

// NextOccurrence computes the occurrence date that follows from for the
// template's frequency. Pure function, no side effects.
//
// Monthly and yearly stepping anchors the day of month on the template's
// start date and clamps to the last day of shorter months, so a template
// started on Jan 31 yields Feb 29 (leap) -> Mar 31 -> Apr 30 without ever
// skipping or duplicating a month.
func NextOccurrence(template core.RecurringExpense, from core.Date) core.Date {
	switch template.Frequency {
	case core.Daily:
		return from.AddDays(1)
	case core.Weekly:
		return from.AddDays(7)
	case core.Monthly:
		year, month := from.Year(), from.Month()+1
		if month > 12 {
			month = 1
			year++
		}
		return core.NewDate(year, month, clampDay(template.StartDate.Day(), year, month))
	case core.Yearly:
		year := from.Year() + 1
		month := template.StartDate.Month()
		return core.NewDate(year, month, clampDay(template.StartDate.Day(), year, month))
	}
	return from
}
