// Package engine computes balance changes for ledger mutations.
//
// Every function here is pure: it takes the current account (and goal) state,
// checks sufficiency and goal constraints, and returns a Plan describing the
// deltas to persist. Nothing is written and nothing is rounded; amount precision
// is fixed by core.ParseAmount before a value reaches the engine.
package engine

import "ledger/internal/core"

// Delta is a single account balance change.
type Delta struct {
	AccountID string
	Before    core.Money
	Delta     core.Money
	After     core.Money
}

// Plan is a validated, not yet committed set of balance changes.
type Plan struct {
	Deltas []Delta
	// Overdrawn is set when the plan leaves an account below zero.
	// Only income deletion can produce it.
	Overdrawn bool
}

// GoalPlan is the result of planning a goal allocation.
type GoalPlan struct {
	Plan
	Goal core.SavingGoal
}

func newDelta(account core.Account, delta core.Money) Delta {
	return Delta{
		AccountID: account.ID,
		Before:    account.CurrentBalance,
		Delta:     delta,
		After:     account.CurrentBalance.Add(delta),
	}
}

func single(account core.Account, delta core.Money) (Plan, error) {
	d := newDelta(account, delta)
	return checked(Plan{Deltas: []Delta{d}, Overdrawn: d.After.IsNegative()})
}

// checked rejects a plan whose resulting balance cannot be stored as int64 cents.
func checked(p Plan) (Plan, error) {
	for _, d := range p.Deltas {
		if !d.After.FitsCents() {
			return Plan{}, core.ErrBalanceRange
		}
	}
	return p, nil
}

// Apply returns a copy of account with the matching delta applied. Accounts not
// touched by the plan are returned unchanged.
func (p Plan) Apply(account core.Account) core.Account {
	for _, d := range p.Deltas {
		if d.AccountID == account.ID {
			account.CurrentBalance = d.After
		}
	}
	return account
}

// For returns the delta for accountID, if any.
func (p Plan) For(accountID string) (Delta, bool) {
	for _, d := range p.Deltas {
		if d.AccountID == accountID {
			return d, true
		}
	}
	return Delta{}, false
}

// Changed reports whether any delta is non-zero.
func (p Plan) Changed() bool {
	for _, d := range p.Deltas {
		if !d.Delta.IsZero() {
			return true
		}
	}
	return false
}

func requirePositive(amount core.Money) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	return nil
}

// PlanCreateExpense debits amount, rejecting it when the balance does not cover it.
func PlanCreateExpense(account core.Account, amount core.Money) (Plan, error) {
	if err := requirePositive(amount); err != nil {
		return Plan{}, err
	}
	if account.CurrentBalance.LessThan(amount) {
		return Plan{}, core.InsufficientFunds(account.CurrentBalance, amount)
	}
	return single(account, amount.Neg())
}

// PlanUpdateExpense debits the difference between the new and old amount. A
// decrease is always accepted; an increase must be covered by the balance.
func PlanUpdateExpense(account core.Account, oldAmount, newAmount core.Money) (Plan, error) {
	if err := requirePositive(newAmount); err != nil {
		return Plan{}, err
	}
	diff := newAmount.Sub(oldAmount)
	if diff.IsPositive() && account.CurrentBalance.Sub(diff).IsNegative() {
		return Plan{}, core.InsufficientFunds(account.CurrentBalance, diff)
	}
	return single(account, diff.Neg())
}

// PlanDeleteExpense credits the amount back. It is always accepted.
func PlanDeleteExpense(account core.Account, amount core.Money) (Plan, error) {
	return single(account, amount)
}

// PlanCreateIncome credits amount.
func PlanCreateIncome(account core.Account, amount core.Money) (Plan, error) {
	if err := requirePositive(amount); err != nil {
		return Plan{}, err
	}
	return single(account, amount)
}

// PlanUpdateIncome applies the difference between the new and old amount. No
// sufficiency check applies; a lowered income may leave the balance negative.
func PlanUpdateIncome(account core.Account, oldAmount, newAmount core.Money) (Plan, error) {
	if err := requirePositive(newAmount); err != nil {
		return Plan{}, err
	}
	return single(account, newAmount.Sub(oldAmount))
}

// PlanDeleteIncome reverses a credit. The resulting balance may be negative when
// the funds were already spent; the plan reports it through Overdrawn.
func PlanDeleteIncome(account core.Account, amount core.Money) (Plan, error) {
	return single(account, amount.Neg())
}

// PlanTransfer moves amount between two distinct accounts. The source must
// cover it.
func PlanTransfer(source, destination core.Account, amount core.Money) (Plan, error) {
	if source.ID == destination.ID {
		return Plan{}, core.ErrSameAccount
	}
	if err := requirePositive(amount); err != nil {
		return Plan{}, err
	}
	if source.CurrentBalance.LessThan(amount) {
		return Plan{}, core.InsufficientFunds(source.CurrentBalance, amount)
	}
	return checked(Plan{Deltas: []Delta{
		newDelta(source, amount.Neg()),
		newDelta(destination, amount),
	}})
}

// PlanAllocateToGoal moves amount from source into goal. Goal checks run before
// the sufficiency check so a full goal is reported even on an empty account.
func PlanAllocateToGoal(goal core.SavingGoal, source core.Account, amount core.Money) (GoalPlan, error) {
	if err := requirePositive(amount); err != nil {
		return GoalPlan{}, err
	}
	if goal.IsCompleted || goal.Completed() {
		return GoalPlan{}, core.GoalConstraint("saving goal is already completed", core.Money{})
	}
	remaining := goal.Remaining()
	if amount.GreaterThan(remaining) {
		return GoalPlan{}, core.GoalConstraint(
			"allocation exceeds the remaining target of "+remaining.String(), remaining)
	}
	if source.CurrentBalance.LessThan(amount) {
		return GoalPlan{}, core.InsufficientFunds(source.CurrentBalance, amount)
	}

	goal.CurrentSavedAmount = goal.CurrentSavedAmount.Add(amount)
	goal.IsCompleted = goal.Completed()
	return GoalPlan{
		Plan: Plan{Deltas: []Delta{newDelta(source, amount.Neg())}},
		Goal: goal,
	}, nil
}
