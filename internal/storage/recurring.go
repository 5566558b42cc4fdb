package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

const recurringColumns = `id, user_id, title, amount_cents, category, frequency,
	start_date, end_date, next_date, is_active, description, created_at, updated_at`

func scanRecurring(row rowScanner) (core.RecurringExpense, error) {
	var (
		re        core.RecurringExpense
		category  string
		frequency string
		startDate string
		endDate   sql.NullString
		nextDate  string
	)
	err := row.Scan(
		&re.ID, &re.UserID, &re.Title, &re.Amount.Cents, &category, &frequency,
		&startDate, &endDate, &nextDate, &re.IsActive, &re.Description,
		&re.CreatedAt, &re.UpdatedAt,
	)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	re.Category = core.Category(category)
	re.Frequency = core.Frequency(frequency)
	if re.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.RecurringExpense{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	if endDate.Valid {
		if re.EndDate, err = core.ParseDate(endDate.String); err != nil {
			return core.RecurringExpense{}, fmt.Errorf("parse end date %q: %w", endDate.String, err)
		}
	}
	if re.NextDate, err = core.ParseDate(nextDate); err != nil {
		return core.RecurringExpense{}, fmt.Errorf("parse next date %q: %w", nextDate, err)
	}
	return re, nil
}

// nullableDate maps an optional Date to a SQL value.
func nullableDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_expenses (user_id, title, amount_cents, category,
			frequency, start_date, end_date, next_date, is_active, description,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		re.UserID, re.Title, re.Amount.Cents, string(re.Category),
		string(re.Frequency), re.StartDate.String(), nullableDate(re.EndDate),
		re.NextDate.String(), re.IsActive, re.Description,
		ts, ts,
	)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("insert recurring expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("last insert id: %w", err)
	}
	re.ID = id
	re.CreatedAt = ts
	re.UpdatedAt = ts
	return re, nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, userID, id int64) (core.RecurringExpense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE id = ? AND user_id = ?`,
		id, userID)
	re, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringExpense{}, ErrNotFound
	}
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("get recurring expense: %w", err)
	}
	return re, nil
}

func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	re.UpdatedAt = now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_expenses SET title = ?, amount_cents = ?, category = ?,
			frequency = ?, start_date = ?, end_date = ?, next_date = ?,
			is_active = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		re.Title, re.Amount.Cents, string(re.Category),
		string(re.Frequency), re.StartDate.String(), nullableDate(re.EndDate),
		re.NextDate.String(), re.IsActive, re.Description, re.UpdatedAt,
		re.ID, re.UserID,
	)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("update recurring expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.RecurringExpense{}, ErrNotFound
	}
	return re, nil
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
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

// ListRecurring returns all of a user's templates, active and inactive.
func (r *SQLiteRepository) ListRecurring(ctx context.Context, userID int64) ([]core.RecurringExpense, error) {
	return r.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses
		 WHERE user_id = ? ORDER BY next_date, id`, userID)
}

// ListActiveRecurring returns the user's active templates ordered by next
// due date.
func (r *SQLiteRepository) ListActiveRecurring(ctx context.Context, userID int64) ([]core.RecurringExpense, error) {
	return r.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses
		 WHERE user_id = ? AND is_active = 1 ORDER BY next_date, id`, userID)
}

func (r *SQLiteRepository) listRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	var templates []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		templates = append(templates, re)
	}
	return templates, rows.Err()
}

// AdvanceRecurring moves a template's next_date forward. The date only ever
// advances; a stale write with an earlier date is a no-op.
func (r *SQLiteRepository) AdvanceRecurring(ctx context.Context, id int64, next core.Date) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recurring_expenses SET next_date = ?, updated_at = ?
		WHERE id = ? AND next_date < ?`,
		next.String(), now(), id, next.String())
	if err != nil {
		return fmt.Errorf("advance recurring expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetRecurringActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, now(), id)
	if err != nil {
		return fmt.Errorf("set recurring active: %w", err)
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
