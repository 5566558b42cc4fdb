package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fintrack/internal/core"
)

// GeneratedTitleSuffix marks expenses materialized from recurring templates.
const GeneratedTitleSuffix = " (Auto-generated)"

// GeneratorStore is the storage surface the recurrence engine needs.
type GeneratorStore interface {
	ListActiveRecurring(ctx context.Context, userID int64) ([]core.RecurringExpense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	ExpenseExists(ctx context.Context, userID int64, title string, date core.Date) (bool, error)
	AdvanceRecurring(ctx context.Context, id int64, next core.Date) error
	SetRecurringActive(ctx context.Context, id int64, active bool) error
	CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error)
}

// EventPublisher publishes domain events to the message broker. A nil
// publisher is valid and means events are skipped.
type EventPublisher interface {
	PublishRecurringGenerated(ctx context.Context, userID int64, count int) error
}

// Generator materializes Expense rows from RecurringExpense templates.
//
// Materialization is serialized per user with a keyed mutex: the duplicate
// check is a point-in-time existence test, so two simultaneous generate
// calls for the same user must not interleave.
type Generator struct {
	store  GeneratorStore
	events EventPublisher

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewGenerator creates a recurrence engine over the given store.
func NewGenerator(store GeneratorStore, events EventPublisher) *Generator {
	return &Generator{
		store:  store,
		events: events,
		locks:  make(map[int64]*sync.Mutex),
	}
}

func (g *Generator) userLock(userID int64) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[userID] = l
	}
	return l
}

// GenerateDue materializes one expense for every active template of user
// whose next_date is on or before asOf, advancing next_date one step.
// Templates whose next_date has passed their end date are deactivated
// instead. Returns the number of expenses created.
func (g *Generator) GenerateDue(ctx context.Context, user core.User, asOf core.Date) (int, error) {
	lock := g.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	templates, err := g.store.ListActiveRecurring(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("list active recurring: %w", err)
	}

	generated := 0
	for _, tpl := range templates {
		if tpl.NextDate.After(asOf) {
			continue
		}
		if !tpl.EndDate.IsEmpty() && tpl.NextDate.After(tpl.EndDate) {
			if err := g.store.SetRecurringActive(ctx, tpl.ID, false); err != nil {
				slog.ErrorContext(ctx, "Failed to deactivate recurring expense",
					"recurring_id", tpl.ID, "error", err)
			}
			continue
		}

		if _, err := g.store.CreateExpense(ctx, materialize(tpl, tpl.NextDate)); err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				"recurring_id", tpl.ID, "title", tpl.Title, "error", err)
			continue
		}

		next := NextOccurrence(tpl, tpl.NextDate)
		if err := g.store.AdvanceRecurring(ctx, tpl.ID, next); err != nil {
			slog.ErrorContext(ctx, "Failed to advance next date",
				"recurring_id", tpl.ID, "error", err)
			continue
		}

		generated++
		slog.InfoContext(ctx, "Created expense from recurring template",
			"recurring_id", tpl.ID,
			"title", tpl.Title,
			"amount_cents", tpl.Amount.Cents,
			"frequency", tpl.Frequency,
			"date", tpl.NextDate.String())
	}

	g.finishRun(ctx, user, generated, "Generated %d expenses from recurring templates")
	return generated, nil
}

// BackfillMonth scans the calendar month of ref and materializes every
// occurrence of the user's active templates that falls inside it, skipping
// dates where a matching expense already exists. Re-running the scan for the
// same month creates no duplicates. Returns the number of expenses created.
func (g *Generator) BackfillMonth(ctx context.Context, user core.User, ref core.Date) (int, error) {
	lock := g.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	templates, err := g.store.ListActiveRecurring(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("list active recurring: %w", err)
	}

	monthStart := ref.StartOfMonth()
	monthEnd := ref.EndOfMonth()

	generated := 0
	for _, tpl := range templates {
		if tpl.StartDate.After(monthEnd) {
			continue
		}
		checker, err := GetOccurrenceChecker(tpl.Frequency)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping template with unknown frequency",
				"recurring_id", tpl.ID, "frequency", tpl.Frequency)
			continue
		}

		first := monthStart
		if tpl.StartDate.After(first) {
			first = tpl.StartDate
		}
		for day := first; !day.After(monthEnd); day = day.AddDays(1) {
			if !tpl.EndDate.IsEmpty() && day.After(tpl.EndDate) {
				break
			}
			if !checker.IsDueOn(tpl.StartDate, day) {
				continue
			}

			title := tpl.Title + GeneratedTitleSuffix
			exists, err := g.store.ExpenseExists(ctx, user.ID, title, day)
			if err != nil {
				slog.ErrorContext(ctx, "Failed duplicate check",
					"recurring_id", tpl.ID, "date", day.String(), "error", err)
				continue
			}
			if exists {
				continue
			}
			if _, err := g.store.CreateExpense(ctx, materialize(tpl, day)); err != nil {
				slog.ErrorContext(ctx, "Failed to backfill expense",
					"recurring_id", tpl.ID, "date", day.String(), "error", err)
				continue
			}
			generated++
		}
	}

	g.finishRun(ctx, user, generated, "Backfilled %d expenses for the month")
	return generated, nil
}

// finishRun records a notification and publishes an event for a generation
// run that produced at least one expense.
func (g *Generator) finishRun(ctx context.Context, user core.User, count int, format string) {
	if count == 0 {
		return
	}
	n := core.Notification{
		UserID:  user.ID,
		Title:   "Recurring expenses generated",
		Message: fmt.Sprintf(format, count),
		Type:    core.NotifRecurringGenerated,
	}
	if _, err := g.store.CreateNotification(ctx, n); err != nil {
		slog.ErrorContext(ctx, "Failed to create generation notification",
			"user_id", user.ID, "error", err)
	}
	if g.events != nil {
		if err := g.events.PublishRecurringGenerated(ctx, user.ID, count); err != nil {
			slog.ErrorContext(ctx, "Failed to publish generation event",
				"user_id", user.ID, "error", err)
		}
	}
}

// materialize builds the concrete expense for one occurrence of a template.
func materialize(tpl core.RecurringExpense, date core.Date) core.Expense {
	return core.Expense{
		UserID:      tpl.UserID,
		Title:       tpl.Title + GeneratedTitleSuffix,
		Amount:      tpl.Amount,
		Category:    tpl.Category,
		Date:        date,
		Description: "Auto-generated from recurring expense: " + tpl.Description,
	}
}
