package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure a ledger operation can report.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation_error"
	KindNotFound          ErrorKind = "not_found"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindForbidden         ErrorKind = "forbidden"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindGoalConstraint    ErrorKind = "goal_constraint_violation"
	KindPersistence       ErrorKind = "persistence_failure"
)

// Error is the structured failure returned by the engine and the ledger operations.
// Balance and Requested are set for KindInsufficientFunds, Remaining for KindGoalConstraint.
type Error struct {
	Kind      ErrorKind
	Detail    string
	Balance   Money
	Requested Money
	Remaining Money
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Detail == "" {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	if e.Detail == "" {
		return string(e.Kind)
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches kind-only sentinels such as ErrInsufficientFunds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Detail == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind-only sentinels for errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrGoalConstraint    = &Error{Kind: KindGoalConstraint}
	ErrPersistence       = &Error{Kind: KindPersistence}
)

var (
	ErrInvalidAmount   = Validation("amount must be a positive number with at most two decimals")
	ErrInvalidDate     = Validation("invalid date")
	ErrEmptyCategory   = Validation("category is required")
	ErrEmptySource     = Validation("source is required")
	ErrEmptyAccount    = Validation("account id is required")
	ErrEmptyName       = Validation("name is required")
	ErrDescriptionLong = Validation("description too long (max 200 characters)")
	ErrSameAccount     = Validation("source and destination accounts cannot be the same")
	ErrNegativeOpening = Validation("initial balance cannot be negative")
	ErrEmptyEmail      = Validation("email is required")
	ErrMissingIdentity = Unauthorized("missing or invalid identity")
	ErrBalanceRange    = Validation("resulting balance is outside the storable range")
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Detail: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Detail: fmt.Sprintf(format, args...)}
}

// InsufficientFunds reports a failed sufficiency check with the shortfall inputs.
func InsufficientFunds(balance, requested Money) *Error {
	return &Error{
		Kind:      KindInsufficientFunds,
		Detail:    fmt.Sprintf("insufficient funds: available %s, requested %s", balance, requested),
		Balance:   balance,
		Requested: requested,
	}
}

// GoalConstraint reports an allocation a saving goal cannot take.
func GoalConstraint(detail string, remaining Money) *Error {
	return &Error{Kind: KindGoalConstraint, Detail: detail, Remaining: remaining}
}

// Persistence wraps a store failure. Passing an *Error returns it unchanged.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindPersistence, Detail: "ledger store failure", Err: err}
}

// KindOf returns the kind of err, KindPersistence for foreign errors and "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}
