package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

const maxBodyBytes = 64 << 10

var (
	errBodyTooLarge = core.Validation("request body too large")
	errInvalidJSON  = core.Validation("request body must be a JSON object")
	errInvalidLimit = core.Validation("limit must be a positive integer")
	errMissingDate  = core.Validation("date is required when updating an entry")
)

// amountField accepts an amount encoded either as a JSON string ("12.34",
// "12,34") or as a JSON number (12.34). The raw text is parsed later through
// core.ParseAmount so both spellings follow the same rules.
type amountField struct {
	raw string
	set bool
}

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = amountField{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField{raw: s, set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return core.ErrInvalidAmount
	}
	*a = amountField{raw: n.String(), set: true}
	return nil
}

// Money parses a required positive amount.
func (a amountField) Money() (core.Money, error) {
	if !a.set {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.ParseAmount(a.raw)
}

// OptionalMoney treats an absent or zero amount as zero.
func (a amountField) OptionalMoney() (core.Money, error) {
	if !a.set || isZeroLiteral(a.raw) {
		return core.Money{}, nil
	}
	return core.ParseAmount(a.raw)
}

func isZeroLiteral(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	return strings.Trim(s, "0.,") == ""
}

// decodeJSON reads a single JSON object from the request into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var coreErr *core.Error
		switch {
		case errors.As(err, &maxErr):
			return errBodyTooLarge
		case errors.As(err, &coreErr):
			return coreErr
		default:
			return errInvalidJSON
		}
	}
	if _, err := dec.Token(); err != io.EOF {
		return errInvalidJSON
	}
	return nil
}

// parseDateOr parses an optional YYYY-MM-DD or RFC3339 date, defaulting to the day of now.
func parseDateOr(s string, now time.Time) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		now = now.UTC()
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	return core.ParseDate(s)
}

func parseLimit(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	return n, nil
}

// sanitizeInput drops control characters other than tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

type entryRequest struct {
	AccountID   string      `json:"accountId"`
	Amount      amountField `json:"amount"`
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Source      string      `json:"source"`
	Description string      `json:"description"`
}

type transferRequest struct {
	SourceAccountID      string      `json:"sourceAccountId"`
	DestinationAccountID string      `json:"destinationAccountId"`
	Amount               amountField `json:"amount"`
	Description          string      `json:"description"`
}

type accountRequest struct {
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	InitialBalance amountField `json:"initialBalance"`
}

type goalRequest struct {
	Name         string      `json:"name"`
	TargetAmount amountField `json:"targetAmount"`
}

type allocationRequest struct {
	AccountID string      `json:"accountId"`
	Amount    amountField `json:"amount"`
}
