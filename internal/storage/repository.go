package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/store"

	_ "modernc.org/sqlite"
)

// dsnParams make every transaction start with BEGIN IMMEDIATE, so a ledger
// transaction holds the write lock before it reads any balance.
const dsnParams = "_txlock=immediate&_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ store.Store = (*SQLiteRepository)(nil)

// DSN returns the connection string used for dbPath.
func DSN(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + dsnParams
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}
	slog.Debug("Ledger schema ready", "db_path", dbPath, "version", version)

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RunInTx runs fn in one transaction. The transaction is rolled back when fn
// returns an error or panics, and committed otherwise.
func (r *SQLiteRepository) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Failed to roll back ledger transaction", "error", rbErr)
		}
	}()

	if err := fn(&sqlTx{q: r.queries.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, wrap("get user", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, wrap("get account", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	accounts, err := r.queries.ListAccounts(ctx, userID)
	return accounts, wrap("list accounts", err)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	expenses, err := r.queries.ListExpenses(ctx, userID)
	return expenses, wrap("list expenses", err)
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID string) ([]core.Income, error) {
	incomes, err := r.queries.ListIncomes(ctx, userID)
	return incomes, wrap("list incomes", err)
}

func (r *SQLiteRepository) ListSavingGoals(ctx context.Context, userID string) ([]core.SavingGoal, error) {
	goals, err := r.queries.ListSavingGoals(ctx, userID)
	return goals, wrap("list saving goals", err)
}

func (r *SQLiteRepository) ListTransfers(ctx context.Context, userID string) ([]core.Transfer, error) {
	transfers, err := r.queries.ListTransfers(ctx, userID)
	return transfers, wrap("list transfers", err)
}

func (r *SQLiteRepository) ListJournal(ctx context.Context, accountID string, limit int) ([]core.JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	entries, err := r.queries.ListJournal(ctx, accountID, limit)
	return entries, wrap("list journal", err)
}

func (r *SQLiteRepository) SumJournal(ctx context.Context, accountID string) (core.Money, error) {
	sum, err := r.queries.SumJournal(ctx, accountID)
	if err != nil {
		return core.Money{}, wrap("sum journal", err)
	}
	return core.MoneyFromCents(sum), nil
}

func (r *SQLiteRepository) ListAccountIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1
	}
	ids, err := r.queries.ListAccountIDs(ctx, afterID, limit)
	return ids, wrap("list account ids", err)
}

// wrap maps driver errors onto the store sentinels.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case strings.Contains(err.Error(), "UNIQUE constraint failed"),
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed"):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func affected(op string, n int64, err error) error {
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return nil
}

type sqlTx struct {
	q *Queries
}

func (t *sqlTx) CreateUser(ctx context.Context, u core.User) error {
	return wrap("create user", t.q.CreateUser(ctx, u))
}

func (t *sqlTx) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := t.q.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, wrap("get account", err)
	}
	return a, nil
}

func (t *sqlTx) CreateAccount(ctx context.Context, a core.Account) error {
	return wrap("create account", t.q.CreateAccount(ctx, a))
}

func (t *sqlTx) UpdateAccountBalance(ctx context.Context, id string, balance core.Money, at time.Time) error {
	n, err := t.q.UpdateAccountBalance(ctx, id, balance.Cents(), at)
	return affected("update account balance", n, err)
}

func (t *sqlTx) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := t.q.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, wrap("get expense", err)
	}
	return e, nil
}

func (t *sqlTx) CreateExpense(ctx context.Context, e core.Expense) error {
	return wrap("create expense", t.q.CreateExpense(ctx, e))
}

func (t *sqlTx) UpdateExpense(ctx context.Context, e core.Expense) error {
	n, err := t.q.UpdateExpense(ctx, e)
	return affected("update expense", n, err)
}

func (t *sqlTx) DeleteExpense(ctx context.Context, id string) error {
	n, err := t.q.DeleteExpense(ctx, id)
	return affected("delete expense", n, err)
}

func (t *sqlTx) GetIncome(ctx context.Context, id string) (core.Income, error) {
	i, err := t.q.GetIncome(ctx, id)
	if err != nil {
		return core.Income{}, wrap("get income", err)
	}
	return i, nil
}

func (t *sqlTx) CreateIncome(ctx context.Context, i core.Income) error {
	return wrap("create income", t.q.CreateIncome(ctx, i))
}

func (t *sqlTx) UpdateIncome(ctx context.Context, i core.Income) error {
	n, err := t.q.UpdateIncome(ctx, i)
	return affected("update income", n, err)
}

func (t *sqlTx) DeleteIncome(ctx context.Context, id string) error {
	n, err := t.q.DeleteIncome(ctx, id)
	return affected("delete income", n, err)
}

func (t *sqlTx) GetSavingGoal(ctx context.Context, id string) (core.SavingGoal, error) {
	g, err := t.q.GetSavingGoal(ctx, id)
	if err != nil {
		return core.SavingGoal{}, wrap("get saving goal", err)
	}
	return g, nil
}

func (t *sqlTx) CreateSavingGoal(ctx context.Context, g core.SavingGoal) error {
	return wrap("create saving goal", t.q.CreateSavingGoal(ctx, g))
}

func (t *sqlTx) UpdateSavingGoal(ctx context.Context, g core.SavingGoal) error {
	n, err := t.q.UpdateSavingGoal(ctx, g)
	return affected("update saving goal", n, err)
}

func (t *sqlTx) CreateTransfer(ctx context.Context, tr core.Transfer) error {
	return wrap("create transfer", t.q.CreateTransfer(ctx, tr))
}

func (t *sqlTx) AppendJournal(ctx context.Context, e core.JournalEntry) (core.JournalEntry, error) {
	id, err := t.q.AppendJournal(ctx, e)
	if err != nil {
		return core.JournalEntry{}, wrap("append journal", err)
	}
	e.ID = id
	return e, nil
}
