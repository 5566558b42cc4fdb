package core

import (
	"errors"
	"strings"
	"time"
)

// Category classifies an expense. The set is closed; unknown values are
// rejected at validation time.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryUtilities     Category = "utilities"
	CategoryHealthcare    Category = "healthcare"
	CategoryShopping      Category = "shopping"
	CategoryEducation     Category = "education"
	CategoryTravel        Category = "travel"
	CategoryOther         Category = "other"
)

// Categories lists all valid categories in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryShopping,
	CategoryEducation,
	CategoryTravel,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryFood:          "Food",
	CategoryTransport:     "Transport",
	CategoryEntertainment: "Entertainment",
	CategoryUtilities:     "Utilities",
	CategoryHealthcare:    "Healthcare",
	CategoryShopping:      "Shopping",
	CategoryEducation:     "Education",
	CategoryTravel:        "Travel",
	CategoryOther:         "Other",
}

// ParseCategory normalizes and validates a category string. An empty input
// falls back to CategoryOther.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryOther, nil
	}
	c := Category(s)
	if _, ok := categoryLabels[c]; !ok {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// Label returns the display label for a category (e.g. "Food").
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Frequency is how often a recurring expense occurs.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Currency is a user's preferred display currency.
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	JPY Currency = "JPY"
)

func (c Currency) Valid() bool {
	switch c {
	case INR, USD, EUR, GBP, CAD, AUD, JPY:
		return true
	}
	return false
}

// NotificationType categorizes a user notification.
type NotificationType string

const (
	NotifBudgetAlert        NotificationType = "budget_alert"
	NotifExpenseAdded       NotificationType = "expense_added"
	NotifRecurringGenerated NotificationType = "recurring_generated"
	NotifBudgetExceeded     NotificationType = "budget_exceeded"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifBudgetAlert, NotifExpenseAdded, NotifRecurringGenerated, NotifBudgetExceeded:
		return true
	}
	return false
}

var (
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrTitleTooLong     = errors.New("title too long (max 200 characters)")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrEndBeforeStart   = errors.New("end date must be after start date")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrEmptyUsername    = errors.New("username cannot be empty")
)

// Defaults applied at user creation.
const (
	DefaultMonthlyBudgetCents = 2500000 // 25000.00
	DefaultAlertThreshold     = 80
	DefaultThemeColor         = "blue"
)

// User is an account holder. Every expense, recurring template and
// notification belongs to exactly one user.
type User struct {
	ID                   int64
	Username             string
	Email                string
	PasswordHash         string
	FirstName            string
	LastName             string
	Currency             Currency
	MonthlyBudget        Money
	AlertThreshold       int // percent of monthly budget
	EnableAlerts         bool
	NotificationsEnabled bool
	DarkMode             bool
	CompactMode          bool
	ThemeColor           string
	ResetToken           string
	ResetTokenExpires    time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// FullName returns "first last", falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if !u.Currency.Valid() {
		return ErrInvalidCurrency
	}
	return nil
}

// Expense is a single dated financial transaction owned by a user.
type Expense struct {
	ID          int64
	UserID      int64
	Title       string
	Amount      Money
	Category    Category
	Date        Date
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// RecurringExpense is a template that materializes Expense rows on a schedule.
// NextDate is the next date an expense should be created; it only ever
// advances forward.
type RecurringExpense struct {
	ID          int64
	UserID      int64
	Title       string
	Amount      Money
	Category    Category
	Frequency   Frequency
	StartDate   Date
	EndDate     Date // optional; zero means no end
	NextDate    Date
	IsActive    bool
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (re RecurringExpense) Validate() error {
	if len(strings.TrimSpace(re.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(re.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if !re.Category.Valid() {
		return ErrInvalidCategory
	}
	if !re.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if err := re.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !re.EndDate.IsEmpty() && !re.EndDate.After(re.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// Notification is a user-visible message created as a side effect of budget
// and recurrence events. Only the is_read flag is mutable after creation.
type Notification struct {
	ID        int64
	UserID    int64
	Title     string
	Message   string
	Type      NotificationType
	IsRead    bool
	CreatedAt time.Time
}

func (n Notification) Validate() error {
	if len(strings.TrimSpace(n.Title)) == 0 {
		return ErrEmptyTitle
	}
	if !n.Type.Valid() {
		return errors.New("invalid notification type")
	}
	return nil
}
