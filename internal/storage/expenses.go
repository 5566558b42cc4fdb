package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

const expenseColumns = `id, user_id, title, amount_cents, category, date,
	description, created_at, updated_at`

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e        core.Expense
		category string
		date     string
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.Title, &e.Amount.Cents, &category, &date,
		&e.Description, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return core.Expense{}, err
	}
	e.Category = core.Category(category)
	e.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, title, amount_cents, category, date,
			description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Title, e.Amount.Cents, string(e.Category), e.Date.String(),
		e.Description, ts, ts,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	e.CreatedAt = ts
	e.UpdatedAt = ts
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.UpdatedAt = now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET title = ?, amount_cents = ?, category = ?, date = ?,
			description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		e.Title, e.Amount.Cents, string(e.Category), e.Date.String(),
		e.Description, e.UpdatedAt,
		e.ID, e.UserID,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.Expense{}, ErrNotFound
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
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

// ExpenseFilter narrows and paginates expense listings. Zero values mean
// "no constraint"; PageSize 0 means no pagination.
type ExpenseFilter struct {
	Category core.Category
	Start    core.Date
	End      core.Date
	Search   string
	Page     int
	PageSize int
}

func (f ExpenseFilter) where() (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(f.Category))
	}
	if !f.Start.IsEmpty() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.Start.String())
	}
	if !f.End.IsEmpty() {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.End.String())
	}
	if f.Search != "" {
		clauses = append(clauses, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	return strings.Join(clauses, " AND "), args
}

// ListExpenses returns one page of a user's expenses, newest date first,
// plus the total row count for the filter.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, f ExpenseFilter) ([]core.Expense, int, error) {
	where, filterArgs := f.where()
	args := append([]any{userID}, filterArgs...)

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where +
		` ORDER BY date DESC, id DESC`
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.PageSize, (page-1)*f.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, total, rows.Err()
}

// ListExpensesBetween returns all expenses dated within [start, end],
// oldest first. Used by reporting.
func (r *SQLiteRepository) ListExpensesBetween(ctx context.Context, userID int64, start, end core.Date) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, id`,
		userID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses between: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// SumExpenses totals the cents of a user's expenses dated within [start, end].
func (r *SQLiteRepository) SumExpenses(ctx context.Context, userID int64, start, end core.Date) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		 WHERE user_id = ? AND date >= ? AND date <= ?`,
		userID, start.String(), end.String()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

// ExpenseExists reports whether the user already has an expense with the
// exact title on the given date. The recurrence engine uses this as its
// duplicate guard.
func (r *SQLiteRepository) ExpenseExists(ctx context.Context, userID int64, title string, date core.Date) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM expenses WHERE user_id = ? AND title = ? AND date = ? LIMIT 1`,
		userID, title, date.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("expense exists: %w", err)
	}
	return true, nil
}
