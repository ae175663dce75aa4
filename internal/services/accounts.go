package services

import (
	"context"
	"errors"
	"strings"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/store"
)

const defaultJournalLimit = 100

type RegisterInput struct {
	Email          string
	Name           string
	InitialBalance core.Money
}

type RegisterResult struct {
	User    core.User    `json:"user"`
	Account core.Account `json:"account"`
}

type AccountInput struct {
	Name           string
	Type           string
	InitialBalance core.Money
}

// AccountsSummary lists the caller's accounts with the sum of their balances.
type AccountsSummary struct {
	Accounts []core.Account `json:"accounts"`
	Total    core.Money     `json:"totalBalance"`
}

type GoalInput struct {
	Name         string
	TargetAmount core.Money
}

// RegisterUser creates a user together with a default account. A non-zero
// initial balance is journaled as the account opening.
func (s *LedgerService) RegisterUser(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return RegisterResult{}, s.reject(ctx, applog.OpRegisterUser, "", core.ErrEmptyEmail)
	}
	now := s.now()
	user := core.User{ID: core.NewID(), Email: email, Name: strings.TrimSpace(in.Name), CreatedAt: now}
	account := core.Account{
		ID:             core.NewID(),
		UserID:         user.ID,
		Name:           core.DefaultAccountName,
		Type:           core.DefaultAccountType,
		CurrentBalance: in.InitialBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := account.Validate(); err != nil {
		return RegisterResult{}, s.reject(ctx, applog.OpRegisterUser, "", err)
	}

	err := s.commit(ctx, applog.OpRegisterUser, user.ID, func(tx store.Tx, rec *recorder) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return core.Validation("email %s is already registered", email)
			}
			return err
		}
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		return rec.opening(ctx, tx, account)
	})
	if err != nil {
		return RegisterResult{}, err
	}
	s.logCommitted(ctx, applog.OpRegisterUser, user.ID, user.ID, account, account.CurrentBalance)
	return RegisterResult{User: user, Account: account}, nil
}

func (s *LedgerService) CreateAccount(ctx context.Context, userID string, in AccountInput) (core.Account, error) {
	if err := requireIdentity(userID); err != nil {
		return core.Account{}, s.reject(ctx, applog.OpCreateAccount, userID, err)
	}
	now := s.now()
	account := core.Account{
		ID:             core.NewID(),
		UserID:         userID,
		Name:           strings.TrimSpace(in.Name),
		Type:           strings.TrimSpace(in.Type),
		CurrentBalance: in.InitialBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if account.Type == "" {
		account.Type = core.DefaultAccountType
	}
	if err := account.Validate(); err != nil {
		return core.Account{}, s.reject(ctx, applog.OpCreateAccount, userID, err)
	}

	err := s.commit(ctx, applog.OpCreateAccount, userID, func(tx store.Tx, rec *recorder) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		return rec.opening(ctx, tx, account)
	})
	if err != nil {
		return core.Account{}, err
	}
	s.logCommitted(ctx, applog.OpCreateAccount, userID, account.ID, account, account.CurrentBalance)
	return account, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context, userID string) (AccountsSummary, error) {
	if err := requireIdentity(userID); err != nil {
		return AccountsSummary{}, err
	}
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return AccountsSummary{}, s.classify(err)
	}
	summary := AccountsSummary{Accounts: accounts}
	for _, a := range accounts {
		summary.Total = summary.Total.Add(a.CurrentBalance)
	}
	return summary, nil
}

func (s *LedgerService) CreateSavingGoal(ctx context.Context, userID string, in GoalInput) (core.SavingGoal, error) {
	if err := requireIdentity(userID); err != nil {
		return core.SavingGoal{}, s.reject(ctx, applog.OpCreateGoal, userID, err)
	}
	now := s.now()
	goal := core.SavingGoal{
		ID:           core.NewID(),
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		TargetAmount: in.TargetAmount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := goal.Validate(); err != nil {
		return core.SavingGoal{}, s.reject(ctx, applog.OpCreateGoal, userID, err)
	}

	err := s.commit(ctx, applog.OpCreateGoal, userID, func(tx store.Tx, _ *recorder) error {
		return tx.CreateSavingGoal(ctx, goal)
	})
	if err != nil {
		return core.SavingGoal{}, err
	}
	return goal, nil
}

func (s *LedgerService) ListSavingGoals(ctx context.Context, userID string) ([]core.SavingGoal, error) {
	if err := requireIdentity(userID); err != nil {
		return nil, err
	}
	goals, err := s.store.ListSavingGoals(ctx, userID)
	if err != nil {
		return nil, s.classify(err)
	}
	return goals, nil
}

// ListExpenses returns the caller's expenses, newest date first.
func (s *LedgerService) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	if err := requireIdentity(userID); err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, s.classify(err)
	}
	return expenses, nil
}

// ListIncomes returns the caller's incomes, newest date first.
func (s *LedgerService) ListIncomes(ctx context.Context, userID string) ([]core.Income, error) {
	if err := requireIdentity(userID); err != nil {
		return nil, err
	}
	incomes, err := s.store.ListIncomes(ctx, userID)
	if err != nil {
		return nil, s.classify(err)
	}
	return incomes, nil
}

func (s *LedgerService) ListTransfers(ctx context.Context, userID string) ([]core.Transfer, error) {
	if err := requireIdentity(userID); err != nil {
		return nil, err
	}
	transfers, err := s.store.ListTransfers(ctx, userID)
	if err != nil {
		return nil, s.classify(err)
	}
	return transfers, nil
}

// AccountJournal returns the newest journal entries of an account the caller owns.
func (s *LedgerService) AccountJournal(ctx context.Context, userID, accountID string, limit int) ([]core.JournalEntry, error) {
	if err := requireIdentity(userID); err != nil {
		return nil, err
	}
	account, err := s.store.GetAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.NotFound("account %s not found", accountID)
	}
	if err != nil {
		return nil, s.classify(err)
	}
	if account.UserID != userID {
		return nil, core.Forbidden("account %s does not belong to the caller", accountID)
	}
	if limit <= 0 || limit > 1000 {
		limit = defaultJournalLimit
	}
	entries, err := s.store.ListJournal(ctx, accountID, limit)
	if err != nil {
		return nil, s.classify(err)
	}
	return entries, nil
}
