package http

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// Amount accepts a JSON number or a decimal string and stores cents.
type Amount int64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return err
	}
	*a = Amount(cents)
	return nil
}

func (a Amount) Cents() int64 { return int64(a) }

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type profileUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

type settingsUpdateRequest struct {
	Currency             *string `json:"currency"`
	ThemeColor           *string `json:"theme_color"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	DarkMode             *bool   `json:"dark_mode"`
	CompactMode          *bool   `json:"compact_mode"`
}

type budgetUpdateRequest struct {
	MonthlyBudget  *Amount `json:"monthly_budget"`
	AlertThreshold *int    `json:"alert_threshold"`
	EnableAlerts   *bool   `json:"enable_alerts"`
}

type expenseRequest struct {
	Title       string `json:"title"`
	Amount      Amount `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type recurringRequest struct {
	Title       string `json:"title"`
	Amount      Amount `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	IsActive    *bool  `json:"is_active"`
}

type markReadRequest struct {
	NotificationID int64 `json:"notification_id"`
	MarkAllRead    bool  `json:"mark_all_read"`
}

// userJSON mirrors the profile payload: money fields as floats,
// dates as RFC 3339 strings.
type userJSON struct {
	ID                   int64   `json:"id"`
	Username             string  `json:"username"`
	Email                string  `json:"email"`
	FirstName            string  `json:"first_name"`
	LastName             string  `json:"last_name"`
	Currency             string  `json:"currency"`
	MonthlyBudget        float64 `json:"monthly_budget"`
	AlertThreshold       int     `json:"alert_threshold"`
	EnableAlerts         bool    `json:"enable_alerts"`
	NotificationsEnabled bool    `json:"notifications_enabled"`
	DarkMode             bool    `json:"dark_mode"`
	CompactMode          bool    `json:"compact_mode"`
	ThemeColor           string  `json:"theme_color"`
	DateJoined           string  `json:"date_joined"`
}

func toUserJSON(u core.User) userJSON {
	return userJSON{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		Currency:             string(u.Currency),
		MonthlyBudget:        u.MonthlyBudget.Float64(),
		AlertThreshold:       u.AlertThreshold,
		EnableAlerts:         u.EnableAlerts,
		NotificationsEnabled: u.NotificationsEnabled,
		DarkMode:             u.DarkMode,
		CompactMode:          u.CompactMode,
		ThemeColor:           u.ThemeColor,
		DateJoined:           u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

type expenseJSON struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Amount          float64 `json:"amount"`
	Category        string  `json:"category"`
	CategoryDisplay string  `json:"category_display"`
	Description     string  `json:"description"`
	Date            string  `json:"date"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:              e.ID,
		Title:           e.Title,
		Amount:          e.Amount.Float64(),
		Category:        string(e.Category),
		CategoryDisplay: e.Category.Label(),
		Description:     e.Description,
		Date:            e.Date.String(),
		CreatedAt:       e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:       e.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func toExpenseList(expenses []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

type recurringJSON struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Amount          float64 `json:"amount"`
	Category        string  `json:"category"`
	CategoryDisplay string  `json:"category_display"`
	Description     string  `json:"description"`
	Frequency       string  `json:"frequency"`
	StartDate       string  `json:"start_date"`
	EndDate         *string `json:"end_date"`
	NextDate        string  `json:"next_date"`
	IsActive        bool    `json:"is_active"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toRecurringJSON(r core.RecurringExpense) recurringJSON {
	var end *string
	if !r.EndDate.IsEmpty() {
		s := r.EndDate.String()
		end = &s
	}
	return recurringJSON{
		ID:              r.ID,
		Title:           r.Title,
		Amount:          r.Amount.Float64(),
		Category:        string(r.Category),
		CategoryDisplay: r.Category.Label(),
		Description:     r.Description,
		Frequency:       string(r.Frequency),
		StartDate:       r.StartDate.String(),
		EndDate:         end,
		NextDate:        r.NextDate.String(),
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:       r.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func toRecurringList(items []core.RecurringExpense) []recurringJSON {
	out := make([]recurringJSON, 0, len(items))
	for _, r := range items {
		out = append(out, toRecurringJSON(r))
	}
	return out
}

type notificationJSON struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"notification_type"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

func toNotificationJSON(n core.Notification) notificationJSON {
	return notificationJSON{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func toNotificationList(items []core.Notification) []notificationJSON {
	out := make([]notificationJSON, 0, len(items))
	for _, n := range items {
		out = append(out, toNotificationJSON(n))
	}
	return out
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func decodeJSON(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
