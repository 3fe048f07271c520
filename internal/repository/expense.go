package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/expense-scanner/constants"
	"github.com/joseph-ayodele/expense-scanner/internal/common"
	"github.com/joseph-ayodele/expense-scanner/internal/entity"
)

const expensesTable = "expenses"

var expenseColumns = []string{
	"id", "user_id", "category", "amount", "currency",
	"expense_date", "notes", "receipt_url", "created_at",
}

// ExpenseFilter narrows List. Nil fields do not filter; From and To are inclusive.
type ExpenseFilter struct {
	UserID   *uuid.UUID
	Category *constants.Category
	From     *time.Time
	To       *time.Time
	Limit    int
}

// ExpenseUpdate carries the fields to change; nil fields are left as they are.
type ExpenseUpdate struct {
	UserID      *uuid.UUID
	Category    *constants.Category
	Amount      *decimal.Decimal
	Currency    *string
	ExpenseDate *time.Time
	Notes       *string
	ReceiptURL  *string
}

func (u ExpenseUpdate) Empty() bool {
	return u.UserID == nil && u.Category == nil && u.Amount == nil && u.Currency == nil &&
		u.ExpenseDate == nil && u.Notes == nil && u.ReceiptURL == nil
}

type ExpenseRepository interface {
	Create(ctx context.Context, e *entity.Expense) (*entity.Expense, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Expense, error)
	List(ctx context.Context, f ExpenseFilter) ([]*entity.Expense, error)
	Update(ctx context.Context, id uuid.UUID, u ExpenseUpdate) (*entity.Expense, error)
	Delete(ctx context.Context, id uuid.UUID) (*entity.Expense, error)
	Count(ctx context.Context) (int, error)
}

type expenseRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewExpenseRepository(db *DB, logger *slog.Logger) ExpenseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &expenseRepository{
		db:     db,
		logger: logger,
	}
}

func (r *expenseRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

// Create inserts e, filling ID, CreatedAt and Currency when unset.
func (r *expenseRepository) Create(ctx context.Context, e *entity.Expense) (*entity.Expense, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Currency == "" {
		e.Currency = entity.DefaultCurrency
	}

	query, args := r.builder().Insert(expensesTable).
		Columns(expenseColumns...).
		Values(
			e.ID, e.UserID, string(e.Category), e.Amount.StringFixed(2), e.Currency,
			dateOnly(e.ExpenseDate), e.Notes, e.ReceiptURL, e.CreatedAt.UTC(),
		).
		Query()
	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to create expense", "user_id", e.UserID, "error", err)
		return nil, fmt.Errorf("%w: insert expense: %v", common.ErrDatabase, err)
	}

	r.logger.Info("created expense", "expense_id", e.ID, "user_id", e.UserID, "category", e.Category)
	return r.GetByID(ctx, e.ID)
}

func (r *expenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Expense, error) {
	query, args := r.selectExpenses().Where(entsql.EQ("id", id)).Query()
	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to get expense", "expense_id", id, "error", err)
		return nil, fmt.Errorf("%w: get expense: %v", common.ErrDatabase, err)
	}
	out, err := scanExpenses(rows)
	if err != nil {
		r.logger.Error("failed to scan expense", "expense_id", id, "error", err)
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NotFound("Expense")
	}
	return out[0], nil
}

// List returns matching expenses, newest expense date first.
func (r *expenseRepository) List(ctx context.Context, f ExpenseFilter) ([]*entity.Expense, error) {
	sel := r.selectExpenses()
	if f.UserID != nil {
		sel.Where(entsql.EQ("user_id", *f.UserID))
	}
	if f.Category != nil {
		sel.Where(entsql.EQ("category", string(*f.Category)))
	}
	if f.From != nil {
		sel.Where(entsql.GTE("expense_date", dateOnly(*f.From)))
	}
	if f.To != nil {
		sel.Where(entsql.LTE("expense_date", dateOnly(*f.To)))
	}
	sel.OrderBy(entsql.Desc("expense_date"), entsql.Desc("created_at"))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list expenses", "error", err)
		return nil, fmt.Errorf("%w: list expenses: %v", common.ErrDatabase, err)
	}
	return scanExpenses(rows)
}

func (r *expenseRepository) Update(ctx context.Context, id uuid.UUID, u ExpenseUpdate) (*entity.Expense, error) {
	if u.Empty() {
		return nil, common.NewAppError("VALIDATION_ERROR", "no fields to update", common.ErrValidation)
	}

	upd := r.builder().Update(expensesTable)
	if u.UserID != nil {
		upd.Set("user_id", *u.UserID)
	}
	if u.Category != nil {
		upd.Set("category", string(*u.Category))
	}
	if u.Amount != nil {
		upd.Set("amount", u.Amount.StringFixed(2))
	}
	if u.Currency != nil {
		upd.Set("currency", *u.Currency)
	}
	if u.ExpenseDate != nil {
		upd.Set("expense_date", dateOnly(*u.ExpenseDate))
	}
	if u.Notes != nil {
		upd.Set("notes", *u.Notes)
	}
	if u.ReceiptURL != nil {
		upd.Set("receipt_url", *u.ReceiptURL)
	}
	query, args := upd.Where(entsql.EQ("id", id)).Query()

	res, err := r.db.SQL.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to update expense", "expense_id", id, "error", err)
		return nil, fmt.Errorf("%w: update expense: %v", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, common.NotFound("Expense")
	}

	r.logger.Info("updated expense", "expense_id", id)
	return r.GetByID(ctx, id)
}

// Delete removes the row and returns it as it was.
func (r *expenseRepository) Delete(ctx context.Context, id uuid.UUID) (*entity.Expense, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query, args := r.builder().Delete(expensesTable).Where(entsql.EQ("id", id)).Query()
	res, err := r.db.SQL.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to delete expense", "expense_id", id, "error", err)
		return nil, fmt.Errorf("%w: delete expense: %v", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, common.NotFound("Expense")
	}

	r.logger.Info("deleted expense", "expense_id", id)
	return existing, nil
}

func (r *expenseRepository) Count(ctx context.Context) (int, error) {
	query, args := r.builder().Select(entsql.Count("*")).From(entsql.Table(expensesTable)).Query()
	var n int
	if err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count expenses: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func (r *expenseRepository) selectExpenses() *entsql.Selector {
	return r.builder().Select(expenseColumns...).From(entsql.Table(expensesTable))
}

func scanExpenses(rows *sql.Rows) ([]*entity.Expense, error) {
	defer func() { _ = rows.Close() }()

	var out []*entity.Expense
	for rows.Next() {
		var (
			e          entity.Expense
			category   string
			notes      sql.NullString
			receiptURL sql.NullString
			date       dbTime
			created    dbTime
		)
		if err := rows.Scan(&e.ID, &e.UserID, &category, &e.Amount, &e.Currency, &date, &notes, &receiptURL, &created); err != nil {
			return nil, fmt.Errorf("%w: scan expense: %v", common.ErrDatabase, err)
		}
		e.Category = constants.Category(category)
		e.ExpenseDate = dateOnly(date.Time)
		e.CreatedAt = created.Time.UTC()
		if notes.Valid {
			e.Notes = &notes.String
		}
		if receiptURL.Valid {
			e.ReceiptURL = &receiptURL.String
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate expenses: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dbTime scans both native timestamps (Postgres) and their text forms (SQLite).
type dbTime struct {
	Time time.Time
}

var dbTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.DateOnly,
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range dbTimeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return errors.New("unrecognized time format: " + s)
}
