package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil || d.String() != "2025-03-09" {
		t.Fatalf("expected 2025-03-09, got %s (err=%v)", d, err)
	}
	d, err = ParseDate("2025-03-09T23:30:00-02:00")
	if err != nil || d.String() != "2025-03-10" {
		t.Fatalf("expected UTC day 2025-03-10, got %s (err=%v)", d, err)
	}
	if _, err := ParseDate("09/03/2025"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		AccountID: "acc",
		Amount:    MustMoney("10"),
		Date:      NewDate(2025, 1, 1),
		Category:  "Food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'x'
	}
	bads := []Expense{
		{Amount: MustMoney("1"), Date: NewDate(2025, 1, 1), Category: "c"},
		{AccountID: "a", Date: NewDate(2025, 1, 1), Category: "c"},
		{AccountID: "a", Amount: MustMoney("1"), Date: Date{Time: time.Time{}}, Category: "c"},
		{AccountID: "a", Amount: MustMoney("1"), Date: NewDate(2025, 1, 1), Category: " "},
		{AccountID: "a", Amount: MustMoney("1"), Date: NewDate(2025, 1, 1), Category: "c", Description: string(long)},
	}
	for i, e := range bads {
		err := e.Validate()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestIncomeValidate(t *testing.T) {
	in := Income{AccountID: "a", Amount: MustMoney("5"), Date: NewDate(2025, 2, 1)}
	if err := in.Validate(); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
	in.Source = "Salary"
	if err := in.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestSavingGoalDerivedState(t *testing.T) {
	g := SavingGoal{Name: "Bike", TargetAmount: MustMoney("100"), CurrentSavedAmount: MustMoney("40")}
	if !g.Remaining().Equal(MustMoney("60")) {
		t.Fatalf("remaining = %s", g.Remaining())
	}
	if g.Completed() {
		t.Fatal("goal should not be completed")
	}
	g.CurrentSavedAmount = MustMoney("100")
	if !g.Completed() {
		t.Fatal("goal should be completed at target")
	}
	g.CurrentSavedAmount = MustMoney("101")
	if err := g.Validate(); err == nil {
		t.Fatal("saved above target must be invalid")
	}
}

func TestErrorKinds(t *testing.T) {
	err := InsufficientFunds(MustMoney("20"), MustMoney("60"))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatal("expected errors.Is to match the kind sentinel")
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatal("kinds must not cross-match")
	}
	if KindOf(err) != KindInsufficientFunds {
		t.Fatalf("KindOf = %s", KindOf(err))
	}
	if !errors.Is(ErrInvalidAmount, ErrValidation) {
		t.Fatal("ErrInvalidAmount should be a validation error")
	}

	raw := errors.New("disk full")
	wrapped := Persistence(raw)
	if KindOf(wrapped) != KindPersistence || !errors.Is(wrapped, raw) {
		t.Fatalf("persistence wrap lost the cause: %v", wrapped)
	}
	if Persistence(ErrForbidden) != error(ErrForbidden) {
		t.Fatal("typed errors must pass through Persistence unchanged")
	}
	if KindOf(raw) != KindPersistence || KindOf(nil) != "" {
		t.Fatal("unexpected KindOf for foreign or nil error")
	}
}
