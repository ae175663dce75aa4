// Package memory is an in-process ledger store for tests and local runs.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/store"
)

type state struct {
	users     map[string]core.User
	accounts  map[string]core.Account
	expenses  map[string]core.Expense
	incomes   map[string]core.Income
	goals     map[string]core.SavingGoal
	transfers map[string]core.Transfer
	journal   []core.JournalEntry
	nextJID   int64
}

func newState() *state {
	return &state{
		users:     map[string]core.User{},
		accounts:  map[string]core.Account{},
		expenses:  map[string]core.Expense{},
		incomes:   map[string]core.Income{},
		goals:     map[string]core.SavingGoal{},
		transfers: map[string]core.Transfer{},
		nextJID:   1,
	}
}

func (s *state) clone() *state {
	return &state{
		users:     maps.Clone(s.users),
		accounts:  maps.Clone(s.accounts),
		expenses:  maps.Clone(s.expenses),
		incomes:   maps.Clone(s.incomes),
		goals:     maps.Clone(s.goals),
		transfers: maps.Clone(s.transfers),
		journal:   slices.Clone(s.journal),
		nextJID:   s.nextJID,
	}
}

// Store keeps all ledger state behind one mutex. Each transaction runs on a
// staged copy that replaces the live state only when fn succeeds.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &memTx{st: s.st.clone()}
	if err := fn(staged); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.st = staged.st
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.accounts[id]
	if !ok {
		return core.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := filter(s.st.accounts, func(a core.Account) bool { return a.UserID == userID })
	slices.SortFunc(out, func(a, b core.Account) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := filter(s.st.expenses, func(e core.Expense) bool { return e.UserID == userID })
	slices.SortFunc(out, func(a, b core.Expense) int {
		return cmp.Or(b.Date.Compare(a.Date.Time), b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) ListIncomes(_ context.Context, userID string) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := filter(s.st.incomes, func(i core.Income) bool { return i.UserID == userID })
	slices.SortFunc(out, func(a, b core.Income) int {
		return cmp.Or(b.Date.Compare(a.Date.Time), b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) ListSavingGoals(_ context.Context, userID string) ([]core.SavingGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := filter(s.st.goals, func(g core.SavingGoal) bool { return g.UserID == userID })
	slices.SortFunc(out, func(a, b core.SavingGoal) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) ListTransfers(_ context.Context, userID string) ([]core.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := filter(s.st.transfers, func(t core.Transfer) bool { return t.UserID == userID })
	slices.SortFunc(out, func(a, b core.Transfer) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) ListJournal(_ context.Context, accountID string, limit int) ([]core.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.JournalEntry
	for i := len(s.st.journal) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.st.journal[i].AccountID == accountID {
			out = append(out, s.st.journal[i])
		}
	}
	return out, nil
}

func (s *Store) SumJournal(_ context.Context, accountID string) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum core.Money
	for _, e := range s.st.journal {
		if e.AccountID == accountID {
			sum = sum.Add(e.Delta)
		}
	}
	return sum, nil
}

func (s *Store) ListAccountIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := slices.Sorted(maps.Keys(s.st.accounts))
	start, _ := slices.BinarySearch(ids, afterID)
	if start < len(ids) && ids[start] == afterID {
		start++
	}
	ids = ids[start:]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func filter[T any](m map[string]T, keep func(T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

type memTx struct {
	st *state
}

func (t *memTx) CreateUser(_ context.Context, u core.User) error {
	if _, ok := t.st.users[u.ID]; ok {
		return store.ErrDuplicate
	}
	for _, existing := range t.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	t.st.users[u.ID] = u
	return nil
}

func (t *memTx) GetAccount(_ context.Context, id string) (core.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok {
		return core.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (t *memTx) CreateAccount(_ context.Context, a core.Account) error {
	if _, ok := t.st.users[a.UserID]; !ok {
		return fmt.Errorf("create account: unknown user %s", a.UserID)
	}
	if _, ok := t.st.accounts[a.ID]; ok {
		return store.ErrDuplicate
	}
	t.st.accounts[a.ID] = a
	return nil
}

func (t *memTx) UpdateAccountBalance(_ context.Context, id string, balance core.Money, at time.Time) error {
	a, ok := t.st.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	a.CurrentBalance = balance
	a.UpdatedAt = at
	t.st.accounts[id] = a
	return nil
}

func (t *memTx) GetExpense(_ context.Context, id string) (core.Expense, error) {
	e, ok := t.st.expenses[id]
	if !ok {
		return core.Expense{}, store.ErrNotFound
	}
	return e, nil
}

func (t *memTx) CreateExpense(_ context.Context, e core.Expense) error {
	if _, ok := t.st.accounts[e.AccountID]; !ok {
		return fmt.Errorf("create expense: unknown account %s", e.AccountID)
	}
	t.st.expenses[e.ID] = e
	return nil
}

func (t *memTx) UpdateExpense(_ context.Context, e core.Expense) error {
	if _, ok := t.st.expenses[e.ID]; !ok {
		return store.ErrNotFound
	}
	t.st.expenses[e.ID] = e
	return nil
}

func (t *memTx) DeleteExpense(_ context.Context, id string) error {
	if _, ok := t.st.expenses[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.st.expenses, id)
	return nil
}

func (t *memTx) GetIncome(_ context.Context, id string) (core.Income, error) {
	i, ok := t.st.incomes[id]
	if !ok {
		return core.Income{}, store.ErrNotFound
	}
	return i, nil
}

func (t *memTx) CreateIncome(_ context.Context, i core.Income) error {
	if _, ok := t.st.accounts[i.AccountID]; !ok {
		return fmt.Errorf("create income: unknown account %s", i.AccountID)
	}
	t.st.incomes[i.ID] = i
	return nil
}

func (t *memTx) UpdateIncome(_ context.Context, i core.Income) error {
	if _, ok := t.st.incomes[i.ID]; !ok {
		return store.ErrNotFound
	}
	t.st.incomes[i.ID] = i
	return nil
}

func (t *memTx) DeleteIncome(_ context.Context, id string) error {
	if _, ok := t.st.incomes[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.st.incomes, id)
	return nil
}

func (t *memTx) GetSavingGoal(_ context.Context, id string) (core.SavingGoal, error) {
	g, ok := t.st.goals[id]
	if !ok {
		return core.SavingGoal{}, store.ErrNotFound
	}
	return g, nil
}

func (t *memTx) CreateSavingGoal(_ context.Context, g core.SavingGoal) error {
	t.st.goals[g.ID] = g
	return nil
}

func (t *memTx) UpdateSavingGoal(_ context.Context, g core.SavingGoal) error {
	if _, ok := t.st.goals[g.ID]; !ok {
		return store.ErrNotFound
	}
	t.st.goals[g.ID] = g
	return nil
}

func (t *memTx) CreateTransfer(_ context.Context, tr core.Transfer) error {
	t.st.transfers[tr.ID] = tr
	return nil
}

func (t *memTx) AppendJournal(_ context.Context, e core.JournalEntry) (core.JournalEntry, error) {
	e.ID = t.st.nextJID
	t.st.nextJID++
	t.st.journal = append(t.st.journal, e)
	return e, nil
}
