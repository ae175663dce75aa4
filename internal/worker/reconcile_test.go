package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/store"
	"ledger/internal/store/memory"
)

func seed(t *testing.T, users int) (*memory.Store, []string) {
	t.Helper()
	st := memory.New()
	svc := services.NewLedgerService(st, nil, "USD")
	ctx := context.Background()

	var accounts []string
	for i := 0; i < users; i++ {
		res, err := svc.RegisterUser(ctx, services.RegisterInput{
			Email:          fmt.Sprintf("user%d@example.com", i),
			InitialBalance: core.MustMoney("100"),
		})
		require.NoError(t, err)
		_, err = svc.CreateExpense(ctx, res.User.ID, services.ExpenseInput{
			AccountID: res.Account.ID, Amount: core.MustMoney("12.50"), Date: core.NewDate(2025, 6, 1), Category: "Food",
		})
		require.NoError(t, err)
		accounts = append(accounts, res.Account.ID)
	}
	return st, accounts
}

// corrupt changes a stored balance without writing a journal row.
func corrupt(t *testing.T, st *memory.Store, accountID string, balance core.Money) {
	t.Helper()
	err := st.RunInTx(context.Background(), func(tx store.Tx) error {
		return tx.UpdateAccountBalance(context.Background(), accountID, balance, time.Now())
	})
	require.NoError(t, err)
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func TestCheckAccount_Consistent(t *testing.T) {
	st, accounts := seed(t, 1)
	w := NewReconcileWorker(st, 10, quietLogger())

	res, err := w.CheckAccount(context.Background(), accounts[0])
	require.NoError(t, err)
	assert.False(t, res.Drifted())
	assert.Equal(t, "87.50", res.Stored.String())
	assert.Equal(t, "87.50", res.Journal.String())
}

func TestCheckAccount_Drift(t *testing.T) {
	st, accounts := seed(t, 1)
	corrupt(t, st, accounts[0], core.MustMoney("90"))

	var buf bytes.Buffer
	w := NewReconcileWorker(st, 10, applog.New(applog.Config{Output: &buf}))
	err := w.HandleLedgerEvent(context.Background(), &amqp.LedgerEvent{AccountID: accounts[0]})
	require.NoError(t, err)

	assert.Equal(t, Stats{Checked: 1, Drifted: 1}, w.Stats())
	assert.Contains(t, buf.String(), "Balance drift detected")
	assert.Contains(t, buf.String(), "difference=2.50")
}

func TestHandleLedgerEvent_UnknownAccount(t *testing.T) {
	st, _ := seed(t, 1)
	w := NewReconcileWorker(st, 10, quietLogger())

	assert.NoError(t, w.HandleLedgerEvent(context.Background(), &amqp.LedgerEvent{AccountID: "missing"}))
	assert.NoError(t, w.HandleLedgerEvent(context.Background(), nil))
	assert.Equal(t, int64(1), w.Stats().Failed)
}

func TestScan_Batches(t *testing.T) {
	st, accounts := seed(t, 5)
	corrupt(t, st, accounts[3], core.MustMoney("1"))

	w := NewReconcileWorker(st, 2, quietLogger())
	report, err := w.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Checked)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Drifted, 1)
	assert.Equal(t, accounts[3], report.Drifted[0].AccountID)
	assert.Equal(t, "87.50", report.Drifted[0].Journal.String())
}

func TestScan_Empty(t *testing.T) {
	w := NewReconcileWorker(memory.New(), 0, quietLogger())
	report, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
}

type flakyAuditor struct {
	Auditor
	listErr error
	reads   int
}

func (f *flakyAuditor) ListAccountIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Auditor.ListAccountIDs(ctx, afterID, limit)
}

// GetAccount reports a different UpdatedAt on every read.
func (f *flakyAuditor) GetAccount(ctx context.Context, id string) (core.Account, error) {
	acc, err := f.Auditor.GetAccount(ctx, id)
	f.reads++
	acc.UpdatedAt = acc.UpdatedAt.Add(time.Duration(f.reads) * time.Second)
	return acc, err
}

func TestCheckAccount_UnstableAccount(t *testing.T) {
	st, accounts := seed(t, 1)
	w := NewReconcileWorker(&flakyAuditor{Auditor: st}, 10, quietLogger())

	_, err := w.CheckAccount(context.Background(), accounts[0])
	assert.ErrorIs(t, err, errUnstable)
}

func TestScan_ListError(t *testing.T) {
	st, _ := seed(t, 1)
	boom := errors.New("boom")
	w := NewReconcileWorker(&flakyAuditor{Auditor: st, listErr: boom}, 10, quietLogger())

	_, err := w.Scan(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_StopsOnCancel(t *testing.T) {
	st, _ := seed(t, 2)
	w := NewReconcileWorker(st, 10, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return w.Stats().Checked >= 4 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
