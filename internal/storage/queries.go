package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ledger/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const dateLayout = "2006-01-02"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

const createUser = `-- name: CreateUser :exec
INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u core.User) error {
	_, err := q.db.ExecContext(ctx, createUser, u.ID, u.Email, u.Name, formatTime(u.CreatedAt))
	return err
}

const getUser = `-- name: GetUser :one
SELECT id, email, name, created_at FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (core.User, error) {
	var u core.User
	var created string
	if err := q.db.QueryRowContext(ctx, getUser, id).Scan(&u.ID, &u.Email, &u.Name, &created); err != nil {
		return core.User{}, err
	}
	var err error
	u.CreatedAt, err = parseTime(created)
	return u, err
}

const accountColumns = `id, user_id, name, type, balance_cents, created_at, updated_at`

func scanAccount(row scanner) (core.Account, error) {
	var a core.Account
	var cents int64
	var created, updated string
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &cents, &created, &updated); err != nil {
		return core.Account{}, err
	}
	a.CurrentBalance = core.MoneyFromCents(cents)
	var err error
	if a.CreatedAt, err = parseTime(created); err != nil {
		return core.Account{}, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		a.ID, a.UserID, a.Name, a.Type, a.CurrentBalance.Cents(), formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	return err
}

const getAccount = `-- name: GetAccount :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id string) (core.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const listAccounts = `-- name: ListAccounts :many
SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ? ORDER BY created_at, id`

func (q *Queries) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	return queryMany(ctx, q.db, scanAccount, listAccounts, userID)
}

const updateAccountBalance = `-- name: UpdateAccountBalance :execrows
UPDATE accounts SET balance_cents = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateAccountBalance(ctx context.Context, id string, cents int64, at time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateAccountBalance, cents, formatTime(at), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listAccountIDs = `-- name: ListAccountIDs :many
SELECT id FROM accounts WHERE id > ? ORDER BY id LIMIT ?`

func (q *Queries) ListAccountIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	return queryMany(ctx, q.db, func(row scanner) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	}, listAccountIDs, afterID, limit)
}

const expenseColumns = `id, account_id, user_id, amount_cents, date, category, description, created_at`

func scanExpense(row scanner) (core.Expense, error) {
	var e core.Expense
	var cents int64
	var date, created string
	if err := row.Scan(&e.ID, &e.AccountID, &e.UserID, &cents, &date, &e.Category, &e.Description, &created); err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.MoneyFromCents(cents)
	var err error
	if e.Date, err = parseDate(date); err != nil {
		return core.Expense{}, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

const createExpense = `-- name: CreateExpense :exec
INSERT INTO expenses (` + expenseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		e.ID, e.AccountID, e.UserID, e.Amount.Cents(), e.Date.String(), e.Category, e.Description, formatTime(e.CreatedAt))
	return err
}

const getExpense = `-- name: GetExpense :one
SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const updateExpense = `-- name: UpdateExpense :execrows
UPDATE expenses SET amount_cents = ?, date = ?, category = ?, description = ? WHERE id = ?`

func (q *Queries) UpdateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense, e.Amount.Cents(), e.Date.String(), e.Category, e.Description, e.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `-- name: DeleteExpense :execrows
DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listExpenses = `-- name: ListExpenses :many
SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = ? ORDER BY date DESC, created_at DESC, id`

func (q *Queries) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	return queryMany(ctx, q.db, scanExpense, listExpenses, userID)
}

const incomeColumns = `id, account_id, user_id, amount_cents, date, source, description, created_at`

func scanIncome(row scanner) (core.Income, error) {
	var i core.Income
	var cents int64
	var date, created string
	if err := row.Scan(&i.ID, &i.AccountID, &i.UserID, &cents, &date, &i.Source, &i.Description, &created); err != nil {
		return core.Income{}, err
	}
	i.Amount = core.MoneyFromCents(cents)
	var err error
	if i.Date, err = parseDate(date); err != nil {
		return core.Income{}, err
	}
	if i.CreatedAt, err = parseTime(created); err != nil {
		return core.Income{}, err
	}
	return i, nil
}

const createIncome = `-- name: CreateIncome :exec
INSERT INTO incomes (` + incomeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateIncome(ctx context.Context, i core.Income) error {
	_, err := q.db.ExecContext(ctx, createIncome,
		i.ID, i.AccountID, i.UserID, i.Amount.Cents(), i.Date.String(), i.Source, i.Description, formatTime(i.CreatedAt))
	return err
}

const getIncome = `-- name: GetIncome :one
SELECT ` + incomeColumns + ` FROM incomes WHERE id = ?`

func (q *Queries) GetIncome(ctx context.Context, id string) (core.Income, error) {
	return scanIncome(q.db.QueryRowContext(ctx, getIncome, id))
}

const updateIncome = `-- name: UpdateIncome :execrows
UPDATE incomes SET amount_cents = ?, date = ?, source = ?, description = ? WHERE id = ?`

func (q *Queries) UpdateIncome(ctx context.Context, i core.Income) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateIncome, i.Amount.Cents(), i.Date.String(), i.Source, i.Description, i.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteIncome = `-- name: DeleteIncome :execrows
DELETE FROM incomes WHERE id = ?`

func (q *Queries) DeleteIncome(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteIncome, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listIncomes = `-- name: ListIncomes :many
SELECT ` + incomeColumns + ` FROM incomes WHERE user_id = ? ORDER BY date DESC, created_at DESC, id`

func (q *Queries) ListIncomes(ctx context.Context, userID string) ([]core.Income, error) {
	return queryMany(ctx, q.db, scanIncome, listIncomes, userID)
}

const goalColumns = `id, user_id, name, target_cents, saved_cents, is_completed, created_at, updated_at`

func scanGoal(row scanner) (core.SavingGoal, error) {
	var g core.SavingGoal
	var target, saved int64
	var created, updated string
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &target, &saved, &g.IsCompleted, &created, &updated); err != nil {
		return core.SavingGoal{}, err
	}
	g.TargetAmount = core.MoneyFromCents(target)
	g.CurrentSavedAmount = core.MoneyFromCents(saved)
	var err error
	if g.CreatedAt, err = parseTime(created); err != nil {
		return core.SavingGoal{}, err
	}
	if g.UpdatedAt, err = parseTime(updated); err != nil {
		return core.SavingGoal{}, err
	}
	return g, nil
}

const createGoal = `-- name: CreateSavingGoal :exec
INSERT INTO saving_goals (` + goalColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateSavingGoal(ctx context.Context, g core.SavingGoal) error {
	_, err := q.db.ExecContext(ctx, createGoal, g.ID, g.UserID, g.Name,
		g.TargetAmount.Cents(), g.CurrentSavedAmount.Cents(), g.IsCompleted, formatTime(g.CreatedAt), formatTime(g.UpdatedAt))
	return err
}

const getGoal = `-- name: GetSavingGoal :one
SELECT ` + goalColumns + ` FROM saving_goals WHERE id = ?`

func (q *Queries) GetSavingGoal(ctx context.Context, id string) (core.SavingGoal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoal, id))
}

const updateGoal = `-- name: UpdateSavingGoal :execrows
UPDATE saving_goals SET name = ?, target_cents = ?, saved_cents = ?, is_completed = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateSavingGoal(ctx context.Context, g core.SavingGoal) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateGoal, g.Name, g.TargetAmount.Cents(), g.CurrentSavedAmount.Cents(),
		g.IsCompleted, formatTime(g.UpdatedAt), g.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listGoals = `-- name: ListSavingGoals :many
SELECT ` + goalColumns + ` FROM saving_goals WHERE user_id = ? ORDER BY created_at, id`

func (q *Queries) ListSavingGoals(ctx context.Context, userID string) ([]core.SavingGoal, error) {
	return queryMany(ctx, q.db, scanGoal, listGoals, userID)
}

const transferColumns = `id, user_id, source_account_id, destination_account_id, amount_cents, description, created_at`

func scanTransfer(row scanner) (core.Transfer, error) {
	var t core.Transfer
	var cents int64
	var created string
	if err := row.Scan(&t.ID, &t.UserID, &t.SourceAccountID, &t.DestinationAccountID, &cents, &t.Description, &created); err != nil {
		return core.Transfer{}, err
	}
	t.Amount = core.MoneyFromCents(cents)
	var err error
	t.CreatedAt, err = parseTime(created)
	return t, err
}

const createTransfer = `-- name: CreateTransfer :exec
INSERT INTO transfers (` + transferColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransfer(ctx context.Context, t core.Transfer) error {
	_, err := q.db.ExecContext(ctx, createTransfer, t.ID, t.UserID, t.SourceAccountID, t.DestinationAccountID,
		t.Amount.Cents(), t.Description, formatTime(t.CreatedAt))
	return err
}

const listTransfers = `-- name: ListTransfers :many
SELECT ` + transferColumns + ` FROM transfers WHERE user_id = ? ORDER BY created_at DESC, id`

func (q *Queries) ListTransfers(ctx context.Context, userID string) ([]core.Transfer, error) {
	return queryMany(ctx, q.db, scanTransfer, listTransfers, userID)
}

const journalColumns = `id, account_id, user_id, kind, ref_id, delta_cents, balance_after_cents, created_at`

func scanJournal(row scanner) (core.JournalEntry, error) {
	var e core.JournalEntry
	var kind, created string
	var delta, after int64
	if err := row.Scan(&e.ID, &e.AccountID, &e.UserID, &kind, &e.RefID, &delta, &after, &created); err != nil {
		return core.JournalEntry{}, err
	}
	e.Kind = core.JournalKind(kind)
	e.Delta = core.MoneyFromCents(delta)
	e.BalanceAfter = core.MoneyFromCents(after)
	var err error
	e.CreatedAt, err = parseTime(created)
	return e, err
}

const appendJournal = `-- name: AppendJournal :one
INSERT INTO journal_entries (account_id, user_id, kind, ref_id, delta_cents, balance_after_cents, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) AppendJournal(ctx context.Context, e core.JournalEntry) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, appendJournal, e.AccountID, e.UserID, string(e.Kind), e.RefID,
		e.Delta.Cents(), e.BalanceAfter.Cents(), formatTime(e.CreatedAt)).Scan(&id)
	return id, err
}

const listJournal = `-- name: ListJournal :many
SELECT ` + journalColumns + ` FROM journal_entries WHERE account_id = ? ORDER BY id DESC LIMIT ?`

func (q *Queries) ListJournal(ctx context.Context, accountID string, limit int) ([]core.JournalEntry, error) {
	return queryMany(ctx, q.db, scanJournal, listJournal, accountID, limit)
}

const sumJournal = `-- name: SumJournal :one
SELECT COALESCE(SUM(delta_cents), 0) FROM journal_entries WHERE account_id = ?`

func (q *Queries) SumJournal(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx, sumJournal, accountID).Scan(&sum)
	return sum, err
}

func queryMany[T any](ctx context.Context, db DBTX, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
