package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const userColumns = `id, username, email, password_hash, first_name, last_name,
	currency, monthly_budget_cents, alert_threshold, enable_alerts,
	notifications_enabled, dark_mode, compact_mode, theme_color,
	reset_token, reset_token_expires, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u           core.User
		currency    string
		resetToken  sql.NullString
		resetExpiry sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&currency, &u.MonthlyBudget.Cents, &u.AlertThreshold, &u.EnableAlerts,
		&u.NotificationsEnabled, &u.DarkMode, &u.CompactMode, &u.ThemeColor,
		&resetToken, &resetExpiry, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return core.User{}, err
	}
	u.Currency = core.Currency(currency)
	u.ResetToken = resetToken.String
	if resetExpiry.Valid {
		u.ResetTokenExpires = resetExpiry.Time
	}
	return u, nil
}

// CreateUser inserts a new account. Duplicate usernames and emails map to
// ErrUsernameExists and ErrEmailExists.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name,
			currency, monthly_budget_cents, alert_threshold, enable_alerts,
			notifications_enabled, dark_mode, compact_mode, theme_color,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		string(u.Currency), u.MonthlyBudget.Cents, u.AlertThreshold, u.EnableAlerts,
		u.NotificationsEnabled, u.DarkMode, u.CompactMode, u.ThemeColor,
		ts, ts,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.username"):
			return core.User{}, ErrUsernameExists
		case isUniqueViolation(err, "users.email"):
			return core.User{}, ErrEmailExists
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	u.CreatedAt = ts
	u.UpdatedAt = ts
	return u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpdateUser persists the mutable profile and settings fields of u.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	u.UpdatedAt = now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			email = ?, first_name = ?, last_name = ?, currency = ?,
			monthly_budget_cents = ?, alert_threshold = ?, enable_alerts = ?,
			notifications_enabled = ?, dark_mode = ?, compact_mode = ?,
			theme_color = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.FirstName, u.LastName, string(u.Currency),
		u.MonthlyBudget.Cents, u.AlertThreshold, u.EnableAlerts,
		u.NotificationsEnabled, u.DarkMode, u.CompactMode,
		u.ThemeColor, u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return core.User{}, ErrEmailExists
		}
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.User{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.User{}, ErrNotFound
	}
	return u, nil
}

func (r *SQLiteRepository) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_token_expires = ?, updated_at = ? WHERE id = ?`,
		token, expires.UTC(), now(), userID)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetUserByResetToken(ctx context.Context, token string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token = ?`, token)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by reset token: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) ClearResetToken(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = NULL, reset_token_expires = NULL, updated_at = ? WHERE id = ?`,
		now(), userID)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

// UpdatePassword stores a new hash and clears any outstanding reset token.
func (r *SQLiteRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, reset_token = NULL,
			reset_token_expires = NULL, updated_at = ?
		WHERE id = ?`,
		passwordHash, now(), userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
