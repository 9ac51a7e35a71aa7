package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func id(b byte) domain.Identity {
	var out domain.Identity
	for i := range out {
		out[i] = b
	}
	return out
}

func newTestLedger(t *testing.T) (*Ledger, *domain.ProgramConfig) {
	t.Helper()
	l := NewLedger(WithClock(func() time.Time { return testNow }))
	cfg := &domain.ProgramConfig{Authority: id(1), Mint: id(2), TokenProgram: id(3), Decimals: 6}

	ctx := context.Background()
	err := l.Atomic(ctx, func(tx domain.LedgerTx) error {
		if err := tx.CreateProgramConfig(ctx, cfg); err != nil {
			return err
		}
		for _, a := range []*domain.TokenAccount{
			{Address: id(10), Owner: id(20), Mint: id(2), Amount: 1000},
			{Address: id(11), Owner: id(21), Mint: id(2)},
			{Address: id(12), Owner: id(22), Mint: id(9)},
		} {
			if err := tx.CreateTokenAccount(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return l, cfg
}

func transfer(src, dst domain.Identity, amount uint64) domain.TransferInstruction {
	return domain.TransferInstruction{Source: src, Destination: dst, Mint: id(2), Authority: id(20), Amount: amount, Decimals: 6}
}

func TestLedger_AtomicCommitsOnSuccess(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	err := l.Atomic(ctx, func(tx domain.LedgerTx) error {
		return tx.TransferChecked(ctx, transfer(id(10), id(11), 400))
	})
	require.NoError(t, err)

	src, err := l.GetTokenAccount(ctx, id(10))
	require.NoError(t, err)
	dst, err := l.GetTokenAccount(ctx, id(11))
	require.NoError(t, err)
	assert.Equal(t, uint64(600), src.Amount)
	assert.Equal(t, uint64(400), dst.Amount)
	assert.Equal(t, testNow, dst.UpdatedAt)
}

func TestLedger_AtomicDiscardsOnError(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	err := l.Atomic(ctx, func(tx domain.LedgerTx) error {
		require.NoError(t, tx.CreateOrder(ctx, &domain.Order{OrderID: 1}))
		require.NoError(t, tx.TransferChecked(ctx, transfer(id(10), id(11), 600)))
		return tx.TransferChecked(ctx, transfer(id(10), id(11), 600))
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	src, _ := l.GetTokenAccount(ctx, id(10))
	dst, _ := l.GetTokenAccount(ctx, id(11))
	assert.Equal(t, uint64(1000), src.Amount)
	assert.Equal(t, uint64(0), dst.Amount)

	_, err = l.GetOrder(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestLedger_AtomicHonoursCancelledContext(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := l.Atomic(ctx, func(tx domain.LedgerTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestLedger_TransferCheckedRules(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	wrongDecimals := transfer(id(10), id(11), 1)
	wrongDecimals.Decimals = 9
	wrongAuthority := transfer(id(10), id(11), 1)
	wrongAuthority.Authority = id(21)

	tests := []struct {
		name string
		ix   domain.TransferInstruction
		want error
	}{
		{"decimals", wrongDecimals, domain.ErrDecimalsMismatch},
		{"authority", wrongAuthority, domain.ErrOwnerMismatch},
		{"destination mint", transfer(id(10), id(12), 1), domain.ErrMintMismatch},
		{"missing destination", transfer(id(10), id(99), 1), domain.ErrTokenAccountNotFound},
		{"insufficient funds", transfer(id(10), id(11), 1001), domain.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Atomic(ctx, func(tx domain.LedgerTx) error {
				return tx.TransferChecked(ctx, tt.ix)
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLedger_SelfTransferKeepsBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	err := l.Atomic(ctx, func(tx domain.LedgerTx) error {
		return tx.TransferChecked(ctx, transfer(id(10), id(10), 250))
	})
	require.NoError(t, err)

	acct, _ := l.GetTokenAccount(ctx, id(10))
	assert.Equal(t, uint64(1000), acct.Amount)
}

func TestLedger_CreateOrderRejectsReuse(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	err := l.Atomic(ctx, func(tx domain.LedgerTx) error {
		require.NoError(t, tx.CreateOrder(ctx, &domain.Order{OrderID: 5}))
		return tx.CreateOrder(ctx, &domain.Order{OrderID: 5})
	})
	assert.ErrorIs(t, err, domain.ErrOrderIDAlreadyUsed)

	require.NoError(t, l.Atomic(ctx, func(tx domain.LedgerTx) error {
		return tx.CreateOrder(ctx, &domain.Order{OrderID: 5, Payer: id(20)})
	}))
	err = l.Atomic(ctx, func(tx domain.LedgerTx) error {
		return tx.CreateOrder(ctx, &domain.Order{OrderID: 5})
	})
	assert.ErrorIs(t, err, domain.ErrOrderIDAlreadyUsed)

	order, err := l.GetOrder(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, id(20), order.Payer)
	assert.Equal(t, testNow, order.CreatedAt)
}

func TestLedger_ProgramConfigWrittenOnce(t *testing.T) {
	l, cfg := newTestLedger(t)
	ctx := context.Background()

	err := l.Atomic(ctx, func(tx domain.LedgerTx) error {
		return tx.CreateProgramConfig(ctx, cfg)
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)

	_, err = NewLedger().GetProgramConfig(ctx)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestLedger_EventLog(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, l.Atomic(ctx, func(tx domain.LedgerTx) error {
			return tx.AppendEvent(ctx, &domain.PaymentProcessedEvent{OrderID: i, Amounts: []uint64{i}, Timestamp: testNow.Unix()})
		}))
	}
	// a discarded event does not consume a sequence number
	_ = l.Atomic(ctx, func(tx domain.LedgerTx) error {
		_ = tx.AppendEvent(ctx, &domain.PaymentProcessedEvent{OrderID: 99})
		return errors.New("abort")
	})

	all, err := l.ListEvents(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, int64(i+1), e.Sequence)
		assert.NotEqual(t, uuid.Nil, e.ID)
	}

	after, err := l.ListEvents(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, uint64(3), after[0].OrderID)

	// returned events are copies
	all[0].Amounts[0] = 500
	again, _ := l.GetEventByOrderID(ctx, 1)
	assert.Equal(t, uint64(1), again.Amounts[0])

	pending, err := l.ListUnpublishedEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, l.MarkEventsPublished(ctx, []uuid.UUID{pending[0].ID, pending[1].ID}, testNow))
	pending, err = l.ListUnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, uint64(3), pending[0].OrderID)

	_, err = l.GetEventByOrderID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}
