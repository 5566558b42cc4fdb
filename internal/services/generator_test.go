package services

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

// fakeGeneratorStore is an in-memory GeneratorStore.
type fakeGeneratorStore struct {
	templates     []core.RecurringExpense
	expenses      []core.Expense
	notifications []core.Notification
}

func (f *fakeGeneratorStore) ListActiveRecurring(_ context.Context, userID int64) ([]core.RecurringExpense, error) {
	var out []core.RecurringExpense
	for _, tpl := range f.templates {
		if tpl.UserID == userID && tpl.IsActive {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (f *fakeGeneratorStore) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	e.ID = int64(len(f.expenses) + 1)
	f.expenses = append(f.expenses, e)
	return e, nil
}

func (f *fakeGeneratorStore) ExpenseExists(_ context.Context, userID int64, title string, date core.Date) (bool, error) {
	for _, e := range f.expenses {
		if e.UserID == userID && e.Title == title && e.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGeneratorStore) AdvanceRecurring(_ context.Context, id int64, next core.Date) error {
	for i := range f.templates {
		if f.templates[i].ID == id {
			f.templates[i].NextDate = next
		}
	}
	return nil
}

func (f *fakeGeneratorStore) SetRecurringActive(_ context.Context, id int64, active bool) error {
	for i := range f.templates {
		if f.templates[i].ID == id {
			f.templates[i].IsActive = active
		}
	}
	return nil
}

func (f *fakeGeneratorStore) CreateNotification(_ context.Context, n core.Notification) (core.Notification, error) {
	n.ID = int64(len(f.notifications) + 1)
	f.notifications = append(f.notifications, n)
	return n, nil
}

func testUser() core.User {
	return core.User{ID: 1, Username: "alice", Email: "alice@example.com", Currency: core.INR}
}

func testTemplate(id int64, freq core.Frequency, start, next core.Date) core.RecurringExpense {
	return core.RecurringExpense{
		ID:          id,
		UserID:      1,
		Title:       "Gym membership",
		Amount:      core.Money{Cents: 150000},
		Category:    core.CategoryHealthcare,
		Frequency:   freq,
		StartDate:   start,
		NextDate:    next,
		IsActive:    true,
		Description: "monthly gym fee",
	}
}

func TestGenerateDueCreatesExpenseAndAdvances(t *testing.T) {
	store := &fakeGeneratorStore{
		templates: []core.RecurringExpense{
			testTemplate(1, core.Monthly, core.NewDate(2026, 1, 15), core.NewDate(2026, 3, 15)),
		},
	}
	gen := NewGenerator(store, nil)

	count, err := gen.GenerateDue(context.Background(), testUser(), core.NewDate(2026, 3, 15))
	if err != nil {
		t.Fatalf("GenerateDue: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	e := store.expenses[0]
	if e.Title != "Gym membership"+GeneratedTitleSuffix {
		t.Errorf("title = %q", e.Title)
	}
	if e.Description != "Auto-generated from recurring expense: monthly gym fee" {
		t.Errorf("description = %q", e.Description)
	}
	if !e.Date.Equal(core.NewDate(2026, 3, 15)) {
		t.Errorf("date = %s, want 2026-03-15", e.Date)
	}
	if !store.templates[0].NextDate.Equal(core.NewDate(2026, 4, 15)) {
		t.Errorf("next_date = %s, want 2026-04-15", store.templates[0].NextDate)
	}
	if len(store.notifications) != 1 || store.notifications[0].Type != core.NotifRecurringGenerated {
		t.Errorf("expected one generation notification, got %+v", store.notifications)
	}
}

func TestGenerateDueSkipsFutureTemplates(t *testing.T) {
	store := &fakeGeneratorStore{
		templates: []core.RecurringExpense{
			testTemplate(1, core.Monthly, core.NewDate(2026, 1, 15), core.NewDate(2026, 4, 15)),
		},
	}
	gen := NewGenerator(store, nil)

	count, err := gen.GenerateDue(context.Background(), testUser(), core.NewDate(2026, 3, 20))
	if err != nil {
		t.Fatalf("GenerateDue: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if len(store.expenses) != 0 {
		t.Errorf("no expense should be created, got %d", len(store.expenses))
	}
	if len(store.notifications) != 0 {
		t.Errorf("no notification for an empty run, got %d", len(store.notifications))
	}
}

func TestGenerateDueDeactivatesPastEndDate(t *testing.T) {
	tpl := testTemplate(1, core.Monthly, core.NewDate(2025, 1, 15), core.NewDate(2026, 3, 15))
	tpl.EndDate = core.NewDate(2026, 2, 28)
	store := &fakeGeneratorStore{templates: []core.RecurringExpense{tpl}}
	gen := NewGenerator(store, nil)

	count, err := gen.GenerateDue(context.Background(), testUser(), core.NewDate(2026, 3, 20))
	if err != nil {
		t.Fatalf("GenerateDue: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if store.templates[0].IsActive {
		t.Error("template past its end date should be deactivated")
	}
	if len(store.expenses) != 0 {
		t.Errorf("no expense should be created, got %d", len(store.expenses))
	}
}

func TestBackfillMonthWeekly(t *testing.T) {
	// 2026-06-01 is a Monday; June 2026 has five Mondays.
	store := &fakeGeneratorStore{
		templates: []core.RecurringExpense{
			testTemplate(1, core.Weekly, core.NewDate(2026, 6, 1), core.NewDate(2026, 6, 1)),
		},
	}
	gen := NewGenerator(store, nil)

	count, err := gen.BackfillMonth(context.Background(), testUser(), core.NewDate(2026, 6, 10))
	if err != nil {
		t.Fatalf("BackfillMonth: %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
	for i, wantDay := range []int{1, 8, 15, 22, 29} {
		if store.expenses[i].Date.Day() != wantDay {
			t.Errorf("expense %d on day %d, want %d", i, store.expenses[i].Date.Day(), wantDay)
		}
	}
}

func TestBackfillMonthIsIdempotent(t *testing.T) {
	store := &fakeGeneratorStore{
		templates: []core.RecurringExpense{
			testTemplate(1, core.Monthly, core.NewDate(2026, 1, 15), core.NewDate(2026, 1, 15)),
		},
	}
	gen := NewGenerator(store, nil)
	user := testUser()
	ref := core.NewDate(2026, 6, 1)

	first, err := gen.BackfillMonth(context.Background(), user, ref)
	if err != nil {
		t.Fatalf("first backfill: %v", err)
	}
	if first != 1 {
		t.Fatalf("first = %d, want 1", first)
	}

	second, err := gen.BackfillMonth(context.Background(), user, ref)
	if err != nil {
		t.Fatalf("second backfill: %v", err)
	}
	if second != 0 {
		t.Errorf("second = %d, want 0", second)
	}
	if len(store.expenses) != 1 {
		t.Errorf("expenses = %d, want 1", len(store.expenses))
	}
}

func TestBackfillMonthHonorsTemplateWindow(t *testing.T) {
	// Daily template active only June 10 through June 12.
	tpl := testTemplate(1, core.Daily, core.NewDate(2026, 6, 10), core.NewDate(2026, 6, 10))
	tpl.EndDate = core.NewDate(2026, 6, 12)
	store := &fakeGeneratorStore{templates: []core.RecurringExpense{tpl}}
	gen := NewGenerator(store, nil)

	count, err := gen.BackfillMonth(context.Background(), testUser(), core.NewDate(2026, 6, 1))
	if err != nil {
		t.Fatalf("BackfillMonth: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestBackfillMonthSkipsTemplatesStartingLater(t *testing.T) {
	store := &fakeGeneratorStore{
		templates: []core.RecurringExpense{
			testTemplate(1, core.Daily, core.NewDate(2026, 7, 1), core.NewDate(2026, 7, 1)),
		},
	}
	gen := NewGenerator(store, nil)

	count, err := gen.BackfillMonth(context.Background(), testUser(), core.NewDate(2026, 6, 15))
	if err != nil {
		t.Fatalf("BackfillMonth: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
