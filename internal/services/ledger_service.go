package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/engine"
	applog "ledger/internal/log"
	"ledger/internal/store"
)

// Publisher announces committed journal entries. *amqp.Client implements it.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService runs every balance mutation as Validate, Plan, Commit: the
// payload is checked first, then one store transaction loads the entity and
// its account, checks ownership, asks the engine for a plan and writes the
// entity, the new balance and the journal rows together.
type LedgerService struct {
	store     store.Store
	publisher Publisher
	currency  string
	logger    *applog.StructuredLogger
	now       func() time.Time
}

// NewLedgerService wires the store and an optional publisher. currency is the
// ISO code used when rendering amounts in error details.
func NewLedgerService(st store.Store, publisher Publisher, currency string) *LedgerService {
	return &LedgerService{
		store:     st,
		publisher: publisher,
		currency:  currency,
		logger:    applog.NewStructuredLogger(applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentLedger})),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithLogger replaces the service logger.
func (s *LedgerService) WithLogger(logger *applog.Logger) *LedgerService {
	s.logger = applog.NewStructuredLogger(logger.WithComponent(applog.ComponentLedger))
	return s
}

// Reader exposes the read side of the store.
func (s *LedgerService) Reader() store.Reader {
	return s.store
}

func requireIdentity(userID string) error {
	if userID == "" {
		return core.ErrMissingIdentity
	}
	return nil
}

// commit runs fn in a transaction, classifies its error and publishes the
// journal entries it recorded once the transaction has committed.
func (s *LedgerService) commit(ctx context.Context, op, userID string, fn func(tx store.Tx, rec *recorder) error) error {
	rec := &recorder{svc: s, userID: userID}
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		rec.entries = rec.entries[:0]
		return fn(tx, rec)
	})
	if err != nil {
		err = s.classify(err)
		s.logger.LogRejected(ctx, op, userID, err, string(core.KindOf(err)))
		return err
	}
	s.publish(ctx, rec.entries)
	return nil
}

func (s *LedgerService) reject(ctx context.Context, op, userID string, err error) error {
	s.logger.LogRejected(ctx, op, userID, err, string(core.KindOf(err)))
	return err
}

// classify maps store errors onto the ledger taxonomy. Typed errors pass through.
func (s *LedgerService) classify(err error) error {
	var e *core.Error
	if errors.As(err, &e) {
		if e.Kind == core.KindInsufficientFunds {
			described := *e
			described.Detail = fmt.Sprintf("insufficient funds: available %s, requested %s",
				e.Balance.Display(s.currency), e.Requested.Display(s.currency))
			return &described
		}
		return e
	}
	if errors.Is(err, store.ErrNotFound) {
		return core.NotFound("resource not found")
	}
	return core.Persistence(err)
}

// publish never fails the operation; the entries are already committed.
func (s *LedgerService) publish(ctx context.Context, entries []core.JournalEntry) {
	if s.publisher == nil {
		return
	}
	for _, e := range entries {
		if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(e)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger event",
				"journal_id", e.ID,
				"account_id", e.AccountID,
				"error", err)
		}
	}
}

// recorder applies plans inside a transaction and remembers the journal rows.
type recorder struct {
	svc     *LedgerService
	userID  string
	entries []core.JournalEntry
}

// apply writes every non-zero delta of plan as a balance update plus a journal row.
func (r *recorder) apply(ctx context.Context, tx store.Tx, kind core.JournalKind, refID string, plan engine.Plan) error {
	now := r.svc.now()
	for _, d := range plan.Deltas {
		if d.Delta.IsZero() {
			continue
		}
		if err := tx.UpdateAccountBalance(ctx, d.AccountID, d.After, now); err != nil {
			return err
		}
		entry, err := tx.AppendJournal(ctx, core.JournalEntry{
			AccountID:    d.AccountID,
			UserID:       r.userID,
			Kind:         kind,
			RefID:        refID,
			Delta:        d.Delta,
			BalanceAfter: d.After,
			CreatedAt:    now,
		})
		if err != nil {
			return err
		}
		r.entries = append(r.entries, entry)
	}
	return nil
}

// opening journals the initial balance of a new account.
func (r *recorder) opening(ctx context.Context, tx store.Tx, account core.Account) error {
	if account.CurrentBalance.IsZero() {
		return nil
	}
	entry, err := tx.AppendJournal(ctx, core.JournalEntry{
		AccountID:    account.ID,
		UserID:       account.UserID,
		Kind:         core.JournalOpening,
		RefID:        account.ID,
		Delta:        account.CurrentBalance,
		BalanceAfter: account.CurrentBalance,
		CreatedAt:    account.CreatedAt,
	})
	if err != nil {
		return err
	}
	r.entries = append(r.entries, entry)
	return nil
}

// ownedAccount loads an account and checks it belongs to userID.
func ownedAccount(ctx context.Context, tx store.Tx, id, userID string) (core.Account, error) {
	account, err := tx.GetAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Account{}, core.NotFound("account %s not found", id)
	}
	if err != nil {
		return core.Account{}, err
	}
	if account.UserID != userID {
		return core.Account{}, core.Forbidden("account %s does not belong to the caller", id)
	}
	return account, nil
}
