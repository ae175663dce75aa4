package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JournalKind tags the reason a balance delta was applied.
type JournalKind string

const (
	JournalOpening        JournalKind = "opening"
	JournalExpenseCreate  JournalKind = "expense_create"
	JournalExpenseUpdate  JournalKind = "expense_update"
	JournalExpenseDelete  JournalKind = "expense_delete"
	JournalIncomeCreate   JournalKind = "income_create"
	JournalIncomeUpdate   JournalKind = "income_update"
	JournalIncomeDelete   JournalKind = "income_delete"
	JournalTransferOut    JournalKind = "transfer_out"
	JournalTransferIn     JournalKind = "transfer_in"
	JournalGoalAllocation JournalKind = "goal_allocation"
)

const (
	DefaultAccountName = "Main Account"
	DefaultAccountType = "General"
	maxDescriptionLen  = 200
)

type (
	Date struct {
		time.Time
	}

	User struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Account is a named money pool. CurrentBalance is maintained incrementally by
	// the ledger operations and must equal the sum of the account's journal deltas.
	Account struct {
		ID             string    `json:"id"`
		UserID         string    `json:"userId"`
		Name           string    `json:"name"`
		Type           string    `json:"type"`
		CurrentBalance Money     `json:"currentBalance"`
		CreatedAt      time.Time `json:"createdAt"`
		UpdatedAt      time.Time `json:"updatedAt"`
	}

	Expense struct {
		ID          string    `json:"id"`
		AccountID   string    `json:"accountId"`
		UserID      string    `json:"userId"`
		Amount      Money     `json:"amount"`
		Date        Date      `json:"date"`
		Category    string    `json:"category"`
		Description string    `json:"description,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	Income struct {
		ID          string    `json:"id"`
		AccountID   string    `json:"accountId"`
		UserID      string    `json:"userId"`
		Amount      Money     `json:"amount"`
		Date        Date      `json:"date"`
		Source      string    `json:"source"`
		Description string    `json:"description,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	SavingGoal struct {
		ID                 string    `json:"id"`
		UserID             string    `json:"userId"`
		Name               string    `json:"name"`
		TargetAmount       Money     `json:"targetAmount"`
		CurrentSavedAmount Money     `json:"currentSavedAmount"`
		IsCompleted        bool      `json:"isCompleted"`
		CreatedAt          time.Time `json:"createdAt"`
		UpdatedAt          time.Time `json:"updatedAt"`
	}

	// Transfer is the immutable audit row of a movement between two accounts of one user.
	Transfer struct {
		ID                   string    `json:"id"`
		UserID               string    `json:"userId"`
		SourceAccountID      string    `json:"sourceAccountId"`
		DestinationAccountID string    `json:"destinationAccountId"`
		Amount               Money     `json:"amount"`
		Description          string    `json:"description,omitempty"`
		CreatedAt            time.Time `json:"createdAt"`
	}

	// JournalEntry is one applied balance delta. ID is assigned by the store and
	// increases monotonically.
	JournalEntry struct {
		ID           int64       `json:"id"`
		AccountID    string      `json:"accountId"`
		UserID       string      `json:"userId"`
		Kind         JournalKind `json:"kind"`
		RefID        string      `json:"refId,omitempty"`
		Delta        Money       `json:"delta"`
		BalanceAfter Money       `json:"balanceAfter"`
		CreatedAt    time.Time   `json:"createdAt"`
	}
)

// NewID returns a new random entity identifier.
func NewID() string {
	return uuid.NewString()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp and keeps the calendar day in UTC.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Remaining is the amount the goal can still accept.
func (g SavingGoal) Remaining() Money {
	return g.TargetAmount.Sub(g.CurrentSavedAmount)
}

// Completed reports whether the saved amount reached the target.
func (g SavingGoal) Completed() bool {
	return !g.CurrentSavedAmount.LessThan(g.TargetAmount)
}

func validateDescription(desc string) error {
	if len(desc) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.AccountID) == "" {
		return ErrEmptyAccount
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return validateDescription(e.Description)
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.AccountID) == "" {
		return ErrEmptyAccount
	}
	if !i.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	return validateDescription(i.Description)
}

func (g SavingGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentSavedAmount.IsNegative() || g.CurrentSavedAmount.GreaterThan(g.TargetAmount) {
		return Validation("saved amount must be between 0 and the target amount")
	}
	return nil
}

func (t Transfer) Validate() error {
	if strings.TrimSpace(t.SourceAccountID) == "" || strings.TrimSpace(t.DestinationAccountID) == "" {
		return ErrEmptyAccount
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return validateDescription(t.Description)
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.CurrentBalance.IsNegative() {
		return ErrNegativeOpening
	}
	return nil
}
