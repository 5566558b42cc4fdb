package core

import (
	"testing"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"food", CategoryFood, true},
		{"Food", CategoryFood, true},
		{" TRAVEL ", CategoryTravel, true},
		{"", CategoryOther, true}, // empty falls back to default
		{"groceries", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		UserID:   1,
		Title:    "Lunch",
		Amount:   Money{Cents: 1250},
		Category: CategoryFood,
		Date:     NewDate(2025, 1, 15),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Title: "", Amount: Money{Cents: 100}, Category: CategoryFood, Date: NewDate(2025, 1, 1)},
		{Title: "   ", Amount: Money{Cents: 100}, Category: CategoryFood, Date: NewDate(2025, 1, 1)},
		{Title: "a", Amount: Money{Cents: 0}, Category: CategoryFood, Date: NewDate(2025, 1, 1)},
		{Title: "a", Amount: Money{Cents: -5}, Category: CategoryFood, Date: NewDate(2025, 1, 1)},
		{Title: "a", Amount: Money{Cents: 100}, Category: "groceries", Date: NewDate(2025, 1, 1)},
		{Title: "a", Amount: Money{Cents: 100}, Category: CategoryFood, Date: Date{}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestRecurringExpenseValidate(t *testing.T) {
	good := RecurringExpense{
		UserID:    1,
		Title:     "Rent",
		Amount:    Money{Cents: 150000},
		Category:  CategoryUtilities,
		Frequency: Monthly,
		StartDate: NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	withEnd := good
	withEnd.EndDate = NewDate(2025, 6, 1)
	if err := withEnd.Validate(); err != nil {
		t.Fatalf("expected ok with end date, got %v", err)
	}

	endEqualsStart := good
	endEqualsStart.EndDate = good.StartDate
	if err := endEqualsStart.Validate(); err == nil {
		t.Fatal("expected error when end date equals start date")
	}

	endBeforeStart := good
	endBeforeStart.EndDate = NewDate(2024, 12, 1)
	if err := endBeforeStart.Validate(); err == nil {
		t.Fatal("expected error when end date precedes start date")
	}

	badFreq := good
	badFreq.Frequency = "biweekly"
	if err := badFreq.Validate(); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}

func TestUserFullName(t *testing.T) {
	u := User{Username: "asha", FirstName: "Asha", LastName: "Rao"}
	if got := u.FullName(); got != "Asha Rao" {
		t.Fatalf("got %q", got)
	}
	u = User{Username: "asha"}
	if got := u.FullName(); got != "asha" {
		t.Fatalf("fallback got %q", got)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 2, 29)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-02-29"` {
		t.Fatalf("marshal got %s", b)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(d) {
		t.Fatalf("round trip got %v", back)
	}
	if err := back.UnmarshalJSON([]byte(`"29-02-2024"`)); err == nil {
		t.Fatal("expected error for bad format")
	}
}
