package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
)

type fakeExpenseStore struct {
	expenses      []core.Expense
	notifications []core.Notification
	sumErr        error
}

func (f *fakeExpenseStore) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	e.ID = int64(len(f.expenses) + 1)
	f.expenses = append(f.expenses, e)
	return e, nil
}

func (f *fakeExpenseStore) SumExpenses(_ context.Context, userID int64, start, end core.Date) (int64, error) {
	if f.sumErr != nil {
		return 0, f.sumErr
	}
	var total int64
	for _, e := range f.expenses {
		if e.UserID != userID {
			continue
		}
		if e.Date.Before(start) || e.Date.After(end) {
			continue
		}
		total += e.Amount.Cents
	}
	return total, nil
}

func (f *fakeExpenseStore) CreateNotification(_ context.Context, n core.Notification) (core.Notification, error) {
	n.ID = int64(len(f.notifications) + 1)
	f.notifications = append(f.notifications, n)
	return n, nil
}

func alertingUser(budgetCents int64, threshold int) core.User {
	return core.User{
		ID:             1,
		Username:       "alice",
		Email:          "alice@example.com",
		Currency:       core.INR,
		MonthlyBudget:  core.Money{Cents: budgetCents},
		AlertThreshold: threshold,
		EnableAlerts:   true,
	}
}

func expenseOn(date core.Date, cents int64) core.Expense {
	return core.Expense{
		UserID:   1,
		Title:    "Groceries",
		Amount:   core.Money{Cents: cents},
		Category: core.CategoryFood,
		Date:     date,
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	store := &fakeExpenseStore{}
	svc := NewExpenseService(store, nil)

	bad := expenseOn(core.NewDate(2026, 6, 10), 1000)
	bad.Title = "  "
	_, err := svc.CreateExpense(context.Background(), alertingUser(1000000, 80), bad, core.NewDate(2026, 6, 10))
	if !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("err = %v, want ErrEmptyTitle", err)
	}
	if len(store.expenses) != 0 {
		t.Error("invalid expense must not be stored")
	}
}

func TestCreateExpenseThresholdCrossing(t *testing.T) {
	// Budget 10000.00, threshold 80%. Existing spend 7500.00; adding 1000.00
	// crosses 8000.00 and must raise exactly one budget_alert.
	store := &fakeExpenseStore{}
	svc := NewExpenseService(store, nil)
	user := alertingUser(1000000, 80)
	asOf := core.NewDate(2026, 6, 15)

	if _, err := svc.CreateExpense(context.Background(), user, expenseOn(asOf, 750000), asOf); err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	if len(store.notifications) != 0 {
		t.Fatalf("no alert below threshold, got %+v", store.notifications)
	}

	if _, err := svc.CreateExpense(context.Background(), user, expenseOn(asOf, 100000), asOf); err != nil {
		t.Fatalf("crossing expense: %v", err)
	}
	if len(store.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(store.notifications))
	}
	if store.notifications[0].Type != core.NotifBudgetAlert {
		t.Errorf("type = %s, want budget_alert", store.notifications[0].Type)
	}

	// Another expense past the threshold but under budget: no second alert.
	if _, err := svc.CreateExpense(context.Background(), user, expenseOn(asOf, 50000), asOf); err != nil {
		t.Fatalf("post-threshold expense: %v", err)
	}
	if len(store.notifications) != 1 {
		t.Errorf("alert must fire only on the crossing, got %d notifications", len(store.notifications))
	}
}

func TestCreateExpenseBudgetExceeded(t *testing.T) {
	store := &fakeExpenseStore{}
	svc := NewExpenseService(store, nil)
	user := alertingUser(1000000, 80)
	asOf := core.NewDate(2026, 6, 15)

	if _, err := svc.CreateExpense(context.Background(), user, expenseOn(asOf, 950000), asOf); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateExpense(context.Background(), user, expenseOn(asOf, 100000), asOf); err != nil {
		t.Fatal(err)
	}

	var exceeded int
	for _, n := range store.notifications {
		if n.Type == core.NotifBudgetExceeded {
			exceeded++
		}
	}
	if exceeded != 1 {
		t.Errorf("budget_exceeded notifications = %d, want 1", exceeded)
	}
}

func TestCreateExpenseNoAlertsWhenDisabled(t *testing.T) {
	store := &fakeExpenseStore{}
	svc := NewExpenseService(store, nil)
	user := alertingUser(1000000, 80)
	user.EnableAlerts = false
	asOf := core.NewDate(2026, 6, 15)

	if _, err := svc.CreateExpense(context.Background(), user, expenseOn(asOf, 2000000), asOf); err != nil {
		t.Fatal(err)
	}
	if len(store.notifications) != 0 {
		t.Errorf("alerts disabled but got %d notifications", len(store.notifications))
	}
}

func TestCreateExpensePastMonthSkipsBudgetCheck(t *testing.T) {
	store := &fakeExpenseStore{}
	svc := NewExpenseService(store, nil)
	user := alertingUser(1000000, 80)

	expense := expenseOn(core.NewDate(2026, 3, 10), 2000000)
	if _, err := svc.CreateExpense(context.Background(), user, expense, core.NewDate(2026, 6, 15)); err != nil {
		t.Fatal(err)
	}
	if len(store.notifications) != 0 {
		t.Errorf("expense in a past month must not trigger alerts, got %d", len(store.notifications))
	}
}

func TestCreateExpenseSurvivesSumFailure(t *testing.T) {
	store := &fakeExpenseStore{sumErr: errors.New("db busy")}
	svc := NewExpenseService(store, nil)
	user := alertingUser(1000000, 80)
	asOf := core.NewDate(2026, 6, 15)

	created, err := svc.CreateExpense(context.Background(), user, expenseOn(asOf, 2000000), asOf)
	if err != nil {
		t.Fatalf("write must succeed even when the budget check fails: %v", err)
	}
	if created.ID == 0 {
		t.Error("expense not stored")
	}
	if len(store.notifications) != 0 {
		t.Errorf("no alert without a reliable sum, got %d", len(store.notifications))
	}
}
