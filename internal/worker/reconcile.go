// Package worker replays the balance journal against stored balances and
// reports accounts whose balance drifted.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/store"
)

const (
	defaultBatchSize   = 100
	defaultConcurrency = 4
	// stableReadAttempts bounds how often a check re-reads an account that
	// changed while its journal was being summed.
	stableReadAttempts = 3
)

var errUnstable = errors.New("account kept changing during reconciliation")

// Auditor is the read side the worker needs. store.Reader satisfies it.
type Auditor interface {
	GetAccount(ctx context.Context, id string) (core.Account, error)
	SumJournal(ctx context.Context, accountID string) (core.Money, error)
	ListAccountIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

var _ Auditor = (store.Reader)(nil)

// Result is the outcome of reconciling one account.
type Result struct {
	AccountID string
	Stored    core.Money
	Journal   core.Money
}

// Drifted reports whether the stored balance disagrees with the journal.
func (r Result) Drifted() bool {
	return !r.Stored.Equal(r.Journal)
}

// Stats counts checks since the worker started.
type Stats struct {
	Checked int64
	Drifted int64
	Failed  int64
}

type ReconcileWorker struct {
	auditor     Auditor
	batchSize   int
	concurrency int
	logger      *applog.Logger

	checked atomic.Int64
	drifted atomic.Int64
	failed  atomic.Int64
}

func NewReconcileWorker(auditor Auditor, batchSize int, logger *applog.Logger) *ReconcileWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = applog.New(applog.Config{Handler: slog.Default().Handler()})
	}
	return &ReconcileWorker{
		auditor:     auditor,
		batchSize:   batchSize,
		concurrency: defaultConcurrency,
		logger:      logger.WithComponent(applog.ComponentWorker),
	}
}

func (w *ReconcileWorker) Stats() Stats {
	return Stats{Checked: w.checked.Load(), Drifted: w.drifted.Load(), Failed: w.failed.Load()}
}

// CheckAccount compares the stored balance of accountID with the sum of its
// journal. The account is read before and after the sum; if it changed in
// between the check is repeated.
func (w *ReconcileWorker) CheckAccount(ctx context.Context, accountID string) (Result, error) {
	for attempt := 0; attempt < stableReadAttempts; attempt++ {
		before, err := w.auditor.GetAccount(ctx, accountID)
		if err != nil {
			return Result{}, fmt.Errorf("get account %s: %w", accountID, err)
		}
		sum, err := w.auditor.SumJournal(ctx, accountID)
		if err != nil {
			return Result{}, fmt.Errorf("sum journal %s: %w", accountID, err)
		}
		after, err := w.auditor.GetAccount(ctx, accountID)
		if err != nil {
			return Result{}, fmt.Errorf("get account %s: %w", accountID, err)
		}
		if before.CurrentBalance.Equal(after.CurrentBalance) && before.UpdatedAt.Equal(after.UpdatedAt) {
			return Result{AccountID: accountID, Stored: after.CurrentBalance, Journal: sum}, nil
		}
	}
	return Result{}, fmt.Errorf("%s: %w", accountID, errUnstable)
}

// reconcile checks one account, records the outcome and logs drift.
func (w *ReconcileWorker) reconcile(ctx context.Context, accountID string) (Result, error) {
	res, err := w.CheckAccount(ctx, accountID)
	if err != nil {
		w.failed.Add(1)
		return Result{}, err
	}
	w.checked.Add(1)
	if res.Drifted() {
		w.drifted.Add(1)
		w.logger.ErrorContext(ctx, "Balance drift detected",
			applog.FieldOperation, applog.OpReconcile,
			applog.FieldAccountID, accountID,
			"stored_balance", res.Stored.String(),
			"journal_balance", res.Journal.String(),
			"difference", res.Stored.Sub(res.Journal).String())
	}
	return res, nil
}

// HandleLedgerEvent reconciles the account an event touched.
func (w *ReconcileWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev == nil || ev.AccountID == "" {
		return nil
	}
	_, err := w.reconcile(ctx, ev.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.WarnContext(ctx, "Ledger event for unknown account",
			applog.FieldAccountID, ev.AccountID,
			applog.FieldJournalID, ev.JournalID)
		return nil
	}
	return err
}

// ScanReport summarizes one full pass over all accounts.
type ScanReport struct {
	Checked int
	Drifted []Result
	Failed  int
}

// Scan reconciles every account, one batch at a time, checking the accounts
// of a batch concurrently.
func (w *ReconcileWorker) Scan(ctx context.Context) (ScanReport, error) {
	var report ScanReport
	after := ""
	for {
		ids, err := w.auditor.ListAccountIDs(ctx, after, w.batchSize)
		if err != nil {
			return report, fmt.Errorf("list accounts after %q: %w", after, err)
		}
		if len(ids) == 0 {
			return report, nil
		}

		results := make([]Result, len(ids))
		errs := make([]error, len(ids))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.concurrency)
		for i, id := range ids {
			g.Go(func() error {
				results[i], errs[i] = w.reconcile(gctx, id)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}

		for i, res := range results {
			if errs[i] != nil {
				report.Failed++
				w.logger.WarnContext(ctx, "Account reconciliation failed",
					applog.FieldAccountID, ids[i],
					applog.FieldError, errs[i])
				continue
			}
			report.Checked++
			if res.Drifted() {
				report.Drifted = append(report.Drifted, res)
			}
		}

		if len(ids) < w.batchSize {
			return report, nil
		}
		after = ids[len(ids)-1]
	}
}

// Run scans immediately and then every interval until ctx is done.
func (w *ReconcileWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		report, err := w.Scan(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			w.logger.ErrorContext(ctx, "Reconciliation scan failed", applog.FieldError, err)
		default:
			w.logger.InfoContext(ctx, "Reconciliation scan completed",
				"checked", report.Checked,
				"drifted", len(report.Drifted),
				"failed", report.Failed,
				applog.FieldDuration, time.Since(start).Milliseconds())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
