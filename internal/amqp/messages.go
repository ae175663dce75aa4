package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/core"
)

// LedgerEvent announces one committed journal entry. Amounts travel as integer
// cents so consumers never parse decimals.
type LedgerEvent struct {
	JournalID         int64     `json:"journalId"`
	AccountID         string    `json:"accountId"`
	UserID            string    `json:"userId"`
	Kind              string    `json:"kind"`
	RefID             string    `json:"refId,omitempty"`
	DeltaCents        int64     `json:"deltaCents"`
	BalanceAfterCents int64     `json:"balanceAfterCents"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewLedgerEvent builds the event for a committed journal entry.
func NewLedgerEvent(e core.JournalEntry) *LedgerEvent {
	ts := e.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerEvent{
		JournalID:         e.ID,
		AccountID:         e.AccountID,
		UserID:            e.UserID,
		Kind:              string(e.Kind),
		RefID:             e.RefID,
		DeltaCents:        e.Delta.Cents(),
		BalanceAfterCents: e.BalanceAfter.Cents(),
		Timestamp:         ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes a message body
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
