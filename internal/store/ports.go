// Package store defines the ledger store contract shared by the SQLite and
// in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"ledger/internal/core"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Reader serves read-only queries outside a ledger transaction.
type Reader interface {
	GetUser(ctx context.Context, id string) (core.User, error)
	GetAccount(ctx context.Context, id string) (core.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	// ListExpenses and ListIncomes return entries ordered by date, newest first.
	ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	ListIncomes(ctx context.Context, userID string) ([]core.Income, error)
	ListSavingGoals(ctx context.Context, userID string) ([]core.SavingGoal, error)
	ListTransfers(ctx context.Context, userID string) ([]core.Transfer, error)
	// ListJournal returns the newest entries of an account first, at most limit rows.
	ListJournal(ctx context.Context, accountID string, limit int) ([]core.JournalEntry, error)
	// SumJournal replays every delta recorded for an account.
	SumJournal(ctx context.Context, accountID string) (core.Money, error)
	// ListAccountIDs pages through all accounts ordered by id, starting after afterID.
	ListAccountIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	Ping(ctx context.Context) error
}

// Tx is the unit of work handed to Store.RunInTx. Reads inside a Tx observe the
// writes made earlier in the same Tx and never a concurrent writer's partial state.
type Tx interface {
	CreateUser(ctx context.Context, u core.User) error
	GetAccount(ctx context.Context, id string) (core.Account, error)
	CreateAccount(ctx context.Context, a core.Account) error
	UpdateAccountBalance(ctx context.Context, id string, balance core.Money, at time.Time) error

	GetExpense(ctx context.Context, id string) (core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) error
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id string) error

	GetIncome(ctx context.Context, id string) (core.Income, error)
	CreateIncome(ctx context.Context, i core.Income) error
	UpdateIncome(ctx context.Context, i core.Income) error
	DeleteIncome(ctx context.Context, id string) error

	GetSavingGoal(ctx context.Context, id string) (core.SavingGoal, error)
	CreateSavingGoal(ctx context.Context, g core.SavingGoal) error
	UpdateSavingGoal(ctx context.Context, g core.SavingGoal) error

	CreateTransfer(ctx context.Context, t core.Transfer) error

	// AppendJournal stores an entry and returns it with its assigned ID.
	AppendJournal(ctx context.Context, e core.JournalEntry) (core.JournalEntry, error)
}

// Store is the ledger store. RunInTx runs fn inside one atomic transaction that
// serializes with every other RunInTx on the same store: an error returned by fn
// (or a panic) rolls back, and a failed commit is returned to the caller.
type Store interface {
	Reader
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}
