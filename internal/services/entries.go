package services

import (
	"context"
	"errors"
	"log/slog"

	"ledger/internal/core"
	"ledger/internal/engine"
	applog "ledger/internal/log"
	"ledger/internal/store"
)

// ExpenseInput is the payload for creating or replacing an expense.
type ExpenseInput struct {
	AccountID   string
	Amount      core.Money
	Date        core.Date
	Category    string
	Description string
}

// IncomeInput is the payload for creating or replacing an income.
type IncomeInput struct {
	AccountID   string
	Amount      core.Money
	Date        core.Date
	Source      string
	Description string
}

type ExpenseResult struct {
	Expense core.Expense `json:"expense"`
	Account core.Account `json:"account"`
}

type IncomeResult struct {
	Income  core.Income  `json:"income"`
	Account core.Account `json:"account"`
	// Overdrawn is set when deleting the income left the account negative.
	Overdrawn bool `json:"overdrawn,omitempty"`
}

var errAccountImmutable = core.Validation("the account of an existing entry cannot be changed")

func (s *LedgerService) CreateExpense(ctx context.Context, userID string, in ExpenseInput) (ExpenseResult, error) {
	if err := requireIdentity(userID); err != nil {
		return ExpenseResult{}, s.reject(ctx, applog.OpCreateExpense, userID, err)
	}
	exp := core.Expense{
		ID:          core.NewID(),
		AccountID:   in.AccountID,
		UserID:      userID,
		Amount:      in.Amount,
		Date:        in.Date,
		Category:    in.Category,
		Description: in.Description,
		CreatedAt:   s.now(),
	}
	if err := exp.Validate(); err != nil {
		return ExpenseResult{}, s.reject(ctx, applog.OpCreateExpense, userID, err)
	}

	var res ExpenseResult
	err := s.commit(ctx, applog.OpCreateExpense, userID, func(tx store.Tx, rec *recorder) error {
		account, err := ownedAccount(ctx, tx, exp.AccountID, userID)
		if err != nil {
			return err
		}
		plan, err := engine.PlanCreateExpense(account, exp.Amount)
		if err != nil {
			return err
		}
		if err := tx.CreateExpense(ctx, exp); err != nil {
			return err
		}
		if err := rec.apply(ctx, tx, core.JournalExpenseCreate, exp.ID, plan); err != nil {
			return err
		}
		res = ExpenseResult{Expense: exp, Account: plan.Apply(account)}
		return nil
	})
	if err != nil {
		return ExpenseResult{}, err
	}
	s.logCommitted(ctx, applog.OpCreateExpense, userID, exp.ID, res.Account, exp.Amount)
	return res, nil
}

// UpdateExpense replaces the amount, date, category and description of an
// expense and re-derives the balance from the amount difference.
func (s *LedgerService) UpdateExpense(ctx context.Context, userID, expenseID string, in ExpenseInput) (ExpenseResult, error) {
	if err := requireIdentity(userID); err != nil {
		return ExpenseResult{}, s.reject(ctx, applog.OpUpdateExpense, userID, err)
	}
	// The account id is validated against the stored one inside the transaction.
	candidate := core.Expense{AccountID: "-", Amount: in.Amount, Date: in.Date, Category: in.Category, Description: in.Description}
	if err := candidate.Validate(); err != nil {
		return ExpenseResult{}, s.reject(ctx, applog.OpUpdateExpense, userID, err)
	}

	var res ExpenseResult
	err := s.commit(ctx, applog.OpUpdateExpense, userID, func(tx store.Tx, rec *recorder) error {
		existing, err := ownedExpense(ctx, tx, expenseID, userID)
		if err != nil {
			return err
		}
		if in.AccountID != "" && in.AccountID != existing.AccountID {
			return errAccountImmutable
		}
		account, err := ownedAccount(ctx, tx, existing.AccountID, userID)
		if err != nil {
			return err
		}
		plan, err := engine.PlanUpdateExpense(account, existing.Amount, in.Amount)
		if err != nil {
			return err
		}

		updated := existing
		updated.Amount = in.Amount
		updated.Date = in.Date
		updated.Category = in.Category
		updated.Description = in.Description
		if err := tx.UpdateExpense(ctx, updated); err != nil {
			return err
		}
		if err := rec.apply(ctx, tx, core.JournalExpenseUpdate, updated.ID, plan); err != nil {
			return err
		}
		res = ExpenseResult{Expense: updated, Account: plan.Apply(account)}
		return nil
	})
	if err != nil {
		return ExpenseResult{}, err
	}
	s.logCommitted(ctx, applog.OpUpdateExpense, userID, expenseID, res.Account, in.Amount)
	return res, nil
}

// DeleteExpense removes an expense and restores its amount to the account.
func (s *LedgerService) DeleteExpense(ctx context.Context, userID, expenseID string) (ExpenseResult, error) {
	if err := requireIdentity(userID); err != nil {
		return ExpenseResult{}, s.reject(ctx, applog.OpDeleteExpense, userID, err)
	}

	var res ExpenseResult
	err := s.commit(ctx, applog.OpDeleteExpense, userID, func(tx store.Tx, rec *recorder) error {
		existing, err := ownedExpense(ctx, tx, expenseID, userID)
		if err != nil {
			return err
		}
		account, err := ownedAccount(ctx, tx, existing.AccountID, userID)
		if err != nil {
			return err
		}
		plan, err := engine.PlanDeleteExpense(account, existing.Amount)
		if err != nil {
			return err
		}
		if err := tx.DeleteExpense(ctx, existing.ID); err != nil {
			return err
		}
		if err := rec.apply(ctx, tx, core.JournalExpenseDelete, existing.ID, plan); err != nil {
			return err
		}
		res = ExpenseResult{Expense: existing, Account: plan.Apply(account)}
		return nil
	})
	if err != nil {
		return ExpenseResult{}, err
	}
	s.logCommitted(ctx, applog.OpDeleteExpense, userID, expenseID, res.Account, res.Expense.Amount)
	return res, nil
}

func (s *LedgerService) CreateIncome(ctx context.Context, userID string, in IncomeInput) (IncomeResult, error) {
	if err := requireIdentity(userID); err != nil {
		return IncomeResult{}, s.reject(ctx, applog.OpCreateIncome, userID, err)
	}
	inc := core.Income{
		ID:          core.NewID(),
		AccountID:   in.AccountID,
		UserID:      userID,
		Amount:      in.Amount,
		Date:        in.Date,
		Source:      in.Source,
		Description: in.Description,
		CreatedAt:   s.now(),
	}
	if err := inc.Validate(); err != nil {
		return IncomeResult{}, s.reject(ctx, applog.OpCreateIncome, userID, err)
	}

	var res IncomeResult
	err := s.commit(ctx, applog.OpCreateIncome, userID, func(tx store.Tx, rec *recorder) error {
		account, err := ownedAccount(ctx, tx, inc.AccountID, userID)
		if err != nil {
			return err
		}
		plan, err := engine.PlanCreateIncome(account, inc.Amount)
		if err != nil {
			return err
		}
		if err := tx.CreateIncome(ctx, inc); err != nil {
			return err
		}
		if err := rec.apply(ctx, tx, core.JournalIncomeCreate, inc.ID, plan); err != nil {
			return err
		}
		res = IncomeResult{Income: inc, Account: plan.Apply(account)}
		return nil
	})
	if err != nil {
		return IncomeResult{}, err
	}
	s.logCommitted(ctx, applog.OpCreateIncome, userID, inc.ID, res.Account, inc.Amount)
	return res, nil
}

func (s *LedgerService) UpdateIncome(ctx context.Context, userID, incomeID string, in IncomeInput) (IncomeResult, error) {
	if err := requireIdentity(userID); err != nil {
		return IncomeResult{}, s.reject(ctx, applog.OpUpdateIncome, userID, err)
	}
	candidate := core.Income{AccountID: "-", Amount: in.Amount, Date: in.Date, Source: in.Source, Description: in.Description}
	if err := candidate.Validate(); err != nil {
		return IncomeResult{}, s.reject(ctx, applog.OpUpdateIncome, userID, err)
	}

	var res IncomeResult
	err := s.commit(ctx, applog.OpUpdateIncome, userID, func(tx store.Tx, rec *recorder) error {
		existing, err := ownedIncome(ctx, tx, incomeID, userID)
		if err != nil {
			return err
		}
		if in.AccountID != "" && in.AccountID != existing.AccountID {
			return errAccountImmutable
		}
		account, err := ownedAccount(ctx, tx, existing.AccountID, userID)
		if err != nil {
			return err
		}
		plan, err := engine.PlanUpdateIncome(account, existing.Amount, in.Amount)
		if err != nil {
			return err
		}

		updated := existing
		updated.Amount = in.Amount
		updated.Date = in.Date
		updated.Source = in.Source
		updated.Description = in.Description
		if err := tx.UpdateIncome(ctx, updated); err != nil {
			return err
		}
		if err := rec.apply(ctx, tx, core.JournalIncomeUpdate, updated.ID, plan); err != nil {
			return err
		}
		res = IncomeResult{Income: updated, Account: plan.Apply(account), Overdrawn: plan.Overdrawn}
		return nil
	})
	if err != nil {
		return IncomeResult{}, err
	}
	s.logCommitted(ctx, applog.OpUpdateIncome, userID, incomeID, res.Account, in.Amount)
	return res, nil
}

// DeleteIncome reverses an income. The balance may go negative; the result then
// reports Overdrawn instead of clamping.
func (s *LedgerService) DeleteIncome(ctx context.Context, userID, incomeID string) (IncomeResult, error) {
	if err := requireIdentity(userID); err != nil {
		return IncomeResult{}, s.reject(ctx, applog.OpDeleteIncome, userID, err)
	}

	var res IncomeResult
	err := s.commit(ctx, applog.OpDeleteIncome, userID, func(tx store.Tx, rec *recorder) error {
		existing, err := ownedIncome(ctx, tx, incomeID, userID)
		if err != nil {
			return err
		}
		account, err := ownedAccount(ctx, tx, existing.AccountID, userID)
		if err != nil {
			return err
		}
		plan, err := engine.PlanDeleteIncome(account, existing.Amount)
		if err != nil {
			return err
		}
		if err := tx.DeleteIncome(ctx, existing.ID); err != nil {
			return err
		}
		if err := rec.apply(ctx, tx, core.JournalIncomeDelete, existing.ID, plan); err != nil {
			return err
		}
		res = IncomeResult{Income: existing, Account: plan.Apply(account), Overdrawn: plan.Overdrawn}
		return nil
	})
	if err != nil {
		return IncomeResult{}, err
	}
	s.logCommitted(ctx, applog.OpDeleteIncome, userID, incomeID, res.Account, res.Income.Amount)
	if res.Overdrawn {
		slog.WarnContext(ctx, "Income deletion left the account overdrawn",
			applog.FieldAccountID, res.Account.ID,
			applog.FieldBalanceAfter, res.Account.CurrentBalance.Display(s.currency))
	}
	return res, nil
}

func ownedExpense(ctx context.Context, tx store.Tx, id, userID string) (core.Expense, error) {
	exp, err := tx.GetExpense(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Expense{}, core.NotFound("expense %s not found", id)
	}
	if err != nil {
		return core.Expense{}, err
	}
	if exp.UserID != userID {
		return core.Expense{}, core.Forbidden("expense %s does not belong to the caller", id)
	}
	return exp, nil
}

func ownedIncome(ctx context.Context, tx store.Tx, id, userID string) (core.Income, error) {
	inc, err := tx.GetIncome(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Income{}, core.NotFound("income %s not found", id)
	}
	if err != nil {
		return core.Income{}, err
	}
	if inc.UserID != userID {
		return core.Income{}, core.Forbidden("income %s does not belong to the caller", id)
	}
	return inc, nil
}

func (s *LedgerService) logCommitted(ctx context.Context, op, userID, entityID string, account core.Account, amount core.Money) {
	fields := applog.NewFields().WithLedger("", account.ID, amount.String(), account.CurrentBalance.String())
	s.logger.LogCommitted(ctx, op, userID, entityID, fields)
}
