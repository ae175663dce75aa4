package services

import (
	"context"
	"errors"
	"strings"

	"ledger/internal/core"
	"ledger/internal/engine"
	applog "ledger/internal/log"
	"ledger/internal/store"
)

type TransferInput struct {
	SourceAccountID      string
	DestinationAccountID string
	Amount               core.Money
	Description          string
}

type TransferResult struct {
	Transfer    core.Transfer `json:"transfer"`
	Source      core.Account  `json:"sourceAccount"`
	Destination core.Account  `json:"destinationAccount"`
}

type AllocationInput struct {
	GoalID    string
	AccountID string
	Amount    core.Money
}

type AllocationResult struct {
	Goal    core.SavingGoal `json:"goal"`
	Account core.Account    `json:"account"`
}

// Transfer moves money between two accounts of the caller. Both balances and
// the transfer row commit together or not at all.
func (s *LedgerService) Transfer(ctx context.Context, userID string, in TransferInput) (TransferResult, error) {
	if err := requireIdentity(userID); err != nil {
		return TransferResult{}, s.reject(ctx, applog.OpTransfer, userID, err)
	}
	tr := core.Transfer{
		ID:                   core.NewID(),
		UserID:               userID,
		SourceAccountID:      in.SourceAccountID,
		DestinationAccountID: in.DestinationAccountID,
		Amount:               in.Amount,
		Description:          in.Description,
		CreatedAt:            s.now(),
	}
	if err := tr.Validate(); err != nil {
		return TransferResult{}, s.reject(ctx, applog.OpTransfer, userID, err)
	}
	if tr.SourceAccountID == tr.DestinationAccountID {
		return TransferResult{}, s.reject(ctx, applog.OpTransfer, userID, core.ErrSameAccount)
	}

	var res TransferResult
	err := s.commit(ctx, applog.OpTransfer, userID, func(tx store.Tx, rec *recorder) error {
		source, err := ownedAccount(ctx, tx, tr.SourceAccountID, userID)
		if err != nil {
			return err
		}
		destination, err := ownedAccount(ctx, tx, tr.DestinationAccountID, userID)
		if err != nil {
			return err
		}
		plan, err := engine.PlanTransfer(source, destination, tr.Amount)
		if err != nil {
			return err
		}
		if err := tx.CreateTransfer(ctx, tr); err != nil {
			return err
		}
		for _, d := range plan.Deltas {
			kind := core.JournalTransferIn
			if d.AccountID == source.ID {
				kind = core.JournalTransferOut
			}
			if err := rec.apply(ctx, tx, kind, tr.ID, engine.Plan{Deltas: []engine.Delta{d}}); err != nil {
				return err
			}
		}
		res = TransferResult{Transfer: tr, Source: plan.Apply(source), Destination: plan.Apply(destination)}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.logCommitted(ctx, applog.OpTransfer, userID, tr.ID, res.Source, tr.Amount)
	return res, nil
}

// AllocateToGoal moves money from an account into a saving goal of the caller.
func (s *LedgerService) AllocateToGoal(ctx context.Context, userID string, in AllocationInput) (AllocationResult, error) {
	if err := requireIdentity(userID); err != nil {
		return AllocationResult{}, s.reject(ctx, applog.OpAllocateToGoal, userID, err)
	}
	switch {
	case strings.TrimSpace(in.GoalID) == "":
		return AllocationResult{}, s.reject(ctx, applog.OpAllocateToGoal, userID, core.Validation("goal id is required"))
	case strings.TrimSpace(in.AccountID) == "":
		return AllocationResult{}, s.reject(ctx, applog.OpAllocateToGoal, userID, core.ErrEmptyAccount)
	case !in.Amount.IsPositive():
		return AllocationResult{}, s.reject(ctx, applog.OpAllocateToGoal, userID, core.ErrInvalidAmount)
	}

	var res AllocationResult
	err := s.commit(ctx, applog.OpAllocateToGoal, userID, func(tx store.Tx, rec *recorder) error {
		goal, err := tx.GetSavingGoal(ctx, in.GoalID)
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("saving goal %s not found", in.GoalID)
		}
		if err != nil {
			return err
		}
		if goal.UserID != userID {
			return core.Forbidden("saving goal %s does not belong to the caller", in.GoalID)
		}
		account, err := ownedAccount(ctx, tx, in.AccountID, userID)
		if err != nil {
			return err
		}
		plan, err := engine.PlanAllocateToGoal(goal, account, in.Amount)
		if err != nil {
			return err
		}
		plan.Goal.UpdatedAt = s.now()
		if err := tx.UpdateSavingGoal(ctx, plan.Goal); err != nil {
			return err
		}
		if err := rec.apply(ctx, tx, core.JournalGoalAllocation, goal.ID, plan.Plan); err != nil {
			return err
		}
		res = AllocationResult{Goal: plan.Goal, Account: plan.Apply(account)}
		return nil
	})
	if err != nil {
		return AllocationResult{}, err
	}
	s.logCommitted(ctx, applog.OpAllocateToGoal, userID, in.GoalID, res.Account, in.Amount)
	return res, nil
}
