package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

// ExpenseStore is the storage surface expense orchestration needs.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	SumExpenses(ctx context.Context, userID int64, start, end core.Date) (int64, error)
	CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error)
}

// NotificationPublisher mirrors notifications onto the message broker so
// out-of-band channels (email workers) can pick them up. Nil is valid.
type NotificationPublisher interface {
	PublishNotificationEvent(ctx context.Context, n core.Notification) error
}

// ExpenseService orchestrates expense writes with budget alerting.
type ExpenseService struct {
	store  ExpenseStore
	events NotificationPublisher
}

func NewExpenseService(store ExpenseStore, events NotificationPublisher) *ExpenseService {
	return &ExpenseService{store: store, events: events}
}

// CreateExpense validates and stores an expense, then checks whether the
// write pushed the owner's current-month spend across the alert threshold or
// over the budget. Alerts fire only on the crossing, not on every write past
// it, so a single notification marks each event.
func (s *ExpenseService) CreateExpense(ctx context.Context, user core.User, e core.Expense, asOf core.Date) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	// Alerts concern the month the expense lands in, evaluated only when
	// that is the current month.
	var before int64
	checkBudget := user.EnableAlerts && user.MonthlyBudget.Cents > 0 &&
		e.Date.Year() == asOf.Year() && e.Date.Month() == asOf.Month()
	if checkBudget {
		var err error
		before, err = s.store.SumExpenses(ctx, user.ID, e.Date.StartOfMonth(), e.Date.EndOfMonth())
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sum month expenses for budget check",
				"user_id", user.ID, "error", err)
			checkBudget = false
		}
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", created.ID,
		"user_id", user.ID,
		"title", created.Title,
		"amount_cents", created.Amount.Cents,
		"category", created.Category)

	if checkBudget {
		s.checkBudgetCrossing(ctx, user, before, before+e.Amount.Cents)
	}
	return created, nil
}

func (s *ExpenseService) checkBudgetCrossing(ctx context.Context, user core.User, beforeCents, afterCents int64) {
	budget := user.MonthlyBudget.Cents
	threshold := budget * int64(user.AlertThreshold) / 100

	var n core.Notification
	switch {
	case beforeCents <= budget && afterCents > budget:
		n = core.Notification{
			UserID: user.ID,
			Title:  "Budget exceeded",
			Message: fmt.Sprintf("Your spending this month (%.2f) has exceeded your monthly budget of %.2f.",
				float64(afterCents)/100, float64(budget)/100),
			Type: core.NotifBudgetExceeded,
		}
	case beforeCents < threshold && afterCents >= threshold:
		n = core.Notification{
			UserID: user.ID,
			Title:  "Budget alert",
			Message: fmt.Sprintf("You have used %.1f%% of your monthly budget.",
				float64(afterCents)/float64(budget)*100),
			Type: core.NotifBudgetAlert,
		}
	default:
		return
	}

	if _, err := s.store.CreateNotification(ctx, n); err != nil {
		slog.ErrorContext(ctx, "Failed to create budget notification",
			"user_id", user.ID, "type", n.Type, "error", err)
		return
	}
	if s.events != nil {
		if err := s.events.PublishNotificationEvent(ctx, n); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget notification event",
				"user_id", user.ID, "type", n.Type, "error", err)
		}
	}
	slog.InfoContext(ctx, "Budget notification created", "user_id", user.ID, "type", n.Type)
}
