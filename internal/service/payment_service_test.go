package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/testutil"
	"github.com/dafibh/bazaar/bazaar-backend/internal/websocket"
	"github.com/rs/zerolog"
)

const startingBalance = 1_000_000_000

type paymentSetup struct {
	fixture   *testutil.SettlementFixture
	service   *PaymentService
	publisher *testutil.MockEventPublisher
	payer     testutil.Wallet
	r2        testutil.Wallet
	r3        testutil.Wallet
}

func setupPaymentService(t *testing.T) *paymentSetup {
	t.Helper()
	f := testutil.NewSettlementFixture(t)
	s := &paymentSetup{
		fixture:   f,
		service:   NewPaymentService(f.Ledger, zerolog.Nop()),
		publisher: testutil.NewMockEventPublisher(),
		payer:     testutil.NewWallet(1),
		r2:        testutil.NewWallet(2),
		r3:        testutil.NewWallet(3),
	}
	s.service.SetEventPublisher(s.publisher)
	f.OpenAccount(t, s.payer.Identity, startingBalance)
	f.OpenAccount(t, s.r2.Identity, 0)
	f.OpenAccount(t, s.r3.Identity, 0)
	return s
}

func (s *paymentSetup) process(call domain.PaymentCall) (*domain.PaymentProcessedEvent, error) {
	return s.service.ProcessPayment(context.Background(), s.fixture.Config, call)
}

func TestPaymentService_ProcessPayment_SingleRecipient(t *testing.T) {
	s := setupPaymentService(t)

	call := s.fixture.Call(s.payer, 1, []uint64{200000}, s.r2.Identity)
	event, err := s.process(call)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if event == nil {
		t.Fatal("expected event, got nil")
	}

	if got := s.fixture.Balance(t, call.PayerTokenAccount); got != 999_800_000 {
		t.Errorf("expected payer balance 999800000, got %d", got)
	}
	if got := s.fixture.Balance(t, call.DestinationAccounts[0]); got != 200000 {
		t.Errorf("expected recipient balance 200000, got %d", got)
	}
}

func TestPaymentService_ProcessPayment_EmitsMatchingEvent(t *testing.T) {
	s := setupPaymentService(t)

	call := s.fixture.Call(s.payer, 8, []uint64{300000, 200000}, s.r2.Identity, s.r3.Identity)
	event, err := s.process(call)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if event.OrderID != 8 {
		t.Errorf("expected order id 8, got %d", event.OrderID)
	}
	if len(event.Amounts) != 2 || event.Amounts[0] != 300000 || event.Amounts[1] != 200000 {
		t.Errorf("expected amounts [300000 200000], got %v", event.Amounts)
	}
	if len(event.Recipients) != 2 || event.Recipients[0] != s.r2.Identity || event.Recipients[1] != s.r3.Identity {
		t.Errorf("expected recipients in call order, got %v", event.Recipients)
	}
	if event.Timestamp <= 0 {
		t.Errorf("expected positive timestamp, got %d", event.Timestamp)
	}
	if event.Timestamp != testutil.FixedTime.Unix() {
		t.Errorf("expected timestamp from ledger clock %d, got %d", testutil.FixedTime.Unix(), event.Timestamp)
	}
	if event.Hash != domain.OrderHash(8, []uint64{300000, 200000}, []domain.Identity{s.r2.Identity, s.r3.Identity}) {
		t.Error("expected event hash to fingerprint the order")
	}
	if event.Payer != s.payer.Identity {
		t.Errorf("expected payer %s, got %s", s.payer.Identity, event.Payer)
	}

	stored, err := s.service.GetSettlement(context.Background(), 8)
	if err != nil {
		t.Fatalf("expected stored event, got %v", err)
	}
	if stored.ID != event.ID || stored.Sequence != 1 {
		t.Errorf("expected stored event %s at sequence 1, got %s at %d", event.ID, stored.ID, stored.Sequence)
	}
	if stored.Total() != 500000 {
		t.Errorf("expected total 500000, got %d", stored.Total())
	}
}

func TestPaymentService_ProcessPayment_PublishesToPayerAndRecipients(t *testing.T) {
	s := setupPaymentService(t)

	// r2 appears twice and must be notified once
	call := s.fixture.Call(s.payer, 2, []uint64{1, 2, 3}, s.r2.Identity, s.r3.Identity, s.r2.Identity)
	if _, err := s.process(call); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	published := s.publisher.Published()
	if len(published) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(published))
	}
	want := []domain.Identity{s.payer.Identity, s.r2.Identity, s.r3.Identity}
	for i, p := range published {
		if p.Identity != want[i] {
			t.Errorf("notification %d: expected %s, got %s", i, want[i], p.Identity)
		}
		if p.Event.Type != "payment.processed" || p.Event.Entity != websocket.EntityTypePayment {
			t.Errorf("notification %d: expected payment.processed, got %s", i, p.Event.Type)
		}
	}
	if got := s.fixture.Balance(t, s.fixture.AssociatedAccount(s.r2.Identity)); got != 4 {
		t.Errorf("expected repeated recipient to receive 4, got %d", got)
	}
}

func TestPaymentService_ProcessPayment_StructuralErrors(t *testing.T) {
	s := setupPaymentService(t)

	sixteen := make([]domain.Identity, 16)
	sixteenAmounts := make([]uint64, 16)
	for i := range sixteen {
		sixteen[i] = s.r2.Identity
		sixteenAmounts[i] = 100000
	}

	tooFewDestinations := s.fixture.Call(s.payer, 7, []uint64{1, 1}, s.r2.Identity, s.r3.Identity)
	tooFewDestinations.DestinationAccounts = tooFewDestinations.DestinationAccounts[:1]

	lengthMismatch := s.fixture.Call(s.payer, 3, []uint64{1, 1}, s.r2.Identity)

	tests := []struct {
		name string
		call domain.PaymentCall
		want *domain.SettlementError
	}{
		{"amounts longer than recipients", lengthMismatch, domain.ErrLengthMismatch},
		{"too many recipients", s.fixture.Call(s.payer, 4, sixteenAmounts, sixteen...), domain.ErrTooManyRecipients},
		{"no recipients", s.fixture.Call(s.payer, 5, []uint64{}), domain.ErrNoRecipients},
		{"zero amount", s.fixture.Call(s.payer, 6, []uint64{0}, s.r2.Identity), domain.ErrZeroAmount},
		{"missing destination", tooFewDestinations, domain.ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := s.process(tt.call)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want.Code, err)
			}
			if event != nil {
				t.Error("expected no event")
			}
			if _, err := s.fixture.Ledger.GetOrder(context.Background(), tt.call.Request.OrderID); !errors.Is(err, domain.ErrOrderNotFound) {
				t.Errorf("expected order id to stay unused, got %v", err)
			}
		})
	}

	if got := s.fixture.Balance(t, s.fixture.AssociatedAccount(s.payer.Identity)); got != startingBalance {
		t.Errorf("expected payer balance unchanged, got %d", got)
	}
	if len(s.publisher.Published()) != 0 {
		t.Error("expected nothing published for rejected payments")
	}
}

func TestPaymentService_ProcessPayment_MaxRecipientsAccepted(t *testing.T) {
	s := setupPaymentService(t)

	recipients := make([]domain.Identity, domain.MaxRecipients)
	amounts := make([]uint64, domain.MaxRecipients)
	for i := range recipients {
		w := testutil.NewWallet(byte(10 + i))
		s.fixture.OpenAccount(t, w.Identity, 0)
		recipients[i] = w.Identity
		amounts[i] = 100000
	}

	event, err := s.process(s.fixture.Call(s.payer, 15, amounts, recipients...))
	if err != nil {
		t.Fatalf("expected 15 recipients to be accepted, got %v", err)
	}
	if len(event.Recipients) != domain.MaxRecipients {
		t.Errorf("expected %d recipients in event, got %d", domain.MaxRecipients, len(event.Recipients))
	}
	if got := s.fixture.Balance(t, s.fixture.AssociatedAccount(s.payer.Identity)); got != startingBalance-1_500_000 {
		t.Errorf("expected payer debited 1500000, got balance %d", got)
	}
}

func TestPaymentService_ProcessPayment_InvalidTokenAccount(t *testing.T) {
	s := setupPaymentService(t)
	r1 := testutil.NewWallet(4)
	r1Account := s.fixture.OpenAccount(t, r1.Identity, 0)

	otherMint := testutil.NewWallet(99).Identity
	foreignMintAccount := testutil.NewWallet(98).Identity
	s.fixture.PutAccount(t, &domain.TokenAccount{Address: foreignMintAccount, Owner: s.r3.Identity, Mint: otherMint})

	// owned by r3 and holding the right mint, but not at the derived address
	strayAccount := testutil.NewWallet(97).Identity
	s.fixture.PutAccount(t, &domain.TokenAccount{Address: strayAccount, Owner: s.r3.Identity, Mint: s.fixture.Mint})

	tests := []struct {
		name        string
		destination domain.Identity
	}{
		{"owned by another recipient", r1Account},
		{"does not exist", testutil.NewWallet(96).Identity},
		{"wrong mint", foreignMintAccount},
		{"not the associated address", strayAccount},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderID := uint64(100 + i)
			call := s.fixture.Call(s.payer, orderID, []uint64{300000, 200000}, s.r2.Identity, s.r3.Identity)
			call.DestinationAccounts[1] = tt.destination

			_, err := s.process(call)
			if !errors.Is(err, domain.ErrInvalidTokenAccount) {
				t.Fatalf("expected InvalidTokenAccount, got %v", err)
			}
			if domain.ErrorCode(err) != "InvalidTokenAccount" {
				t.Errorf("expected code InvalidTokenAccount, got %q", domain.ErrorCode(err))
			}
			if _, err := s.fixture.Ledger.GetOrder(context.Background(), orderID); !errors.Is(err, domain.ErrOrderNotFound) {
				t.Errorf("expected order creation rolled back, got %v", err)
			}
		})
	}

	if got := s.fixture.Balance(t, s.fixture.AssociatedAccount(s.r2.Identity)); got != 0 {
		t.Errorf("expected first recipient untouched, got %d", got)
	}
	if got := s.fixture.Balance(t, s.fixture.AssociatedAccount(s.payer.Identity)); got != startingBalance {
		t.Errorf("expected payer balance unchanged, got %d", got)
	}
}

func TestPaymentService_ProcessPayment_OrderIDReuse(t *testing.T) {
	s := setupPaymentService(t)

	if _, err := s.process(s.fixture.Call(s.payer, 42, []uint64{10}, s.r2.Identity)); err != nil {
		t.Fatalf("expected first payment to succeed, got %v", err)
	}

	_, err := s.process(s.fixture.Call(s.payer, 42, []uint64{20}, s.r3.Identity))
	if !errors.Is(err, domain.ErrOrderIDAlreadyUsed) {
		t.Fatalf("expected OrderIdAlreadyUsed, got %v", err)
	}
	if got := s.fixture.Balance(t, s.fixture.AssociatedAccount(s.r3.Identity)); got != 0 {
		t.Errorf("expected second payment to move nothing, got %d", got)
	}
	if got := s.fixture.Balance(t, s.fixture.AssociatedAccount(s.payer.Identity)); got != startingBalance-10 {
		t.Errorf("expected only the first payment debited, got %d", got)
	}
}

func TestPaymentService_ProcessPayment_InsufficientFundsRollsBack(t *testing.T) {
	s := setupPaymentService(t)

	// the third leg overdraws after the first two succeed
	call := s.fixture.Call(s.payer, 9, []uint64{400_000_000, 400_000_000, 400_000_000}, s.r2.Identity, s.r3.Identity, s.r2.Identity)
	_, err := s.process(call)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if got := s.fixture.Balance(t, call.PayerTokenAccount); got != startingBalance {
		t.Errorf("expected payer balance restored, got %d", got)
	}
	if got := s.fixture.Balance(t, call.DestinationAccounts[0]); got != 0 {
		t.Errorf("expected first recipient rolled back, got %d", got)
	}
	if _, err := s.service.GetSettlement(context.Background(), 9); !errors.Is(err, domain.ErrEventNotFound) {
		t.Errorf("expected no event recorded, got %v", err)
	}
	if _, err := s.process(s.fixture.Call(s.payer, 9, []uint64{1}, s.r2.Identity)); err != nil {
		t.Errorf("expected order id to remain usable after rollback, got %v", err)
	}
}

func TestPaymentService_ProcessPayment_EventFailureRollsBackTransfers(t *testing.T) {
	f := testutil.NewSettlementFixture(t)
	faulty := testutil.NewFaultyLedger(f.Ledger)
	faulty.AppendEventErr = errors.New("event log unavailable")
	svc := NewPaymentService(faulty, zerolog.Nop())

	payer, r2 := testutil.NewWallet(1), testutil.NewWallet(2)
	f.OpenAccount(t, payer.Identity, 1000)
	f.OpenAccount(t, r2.Identity, 0)

	call := f.Call(payer, 1, []uint64{500}, r2.Identity)
	if _, err := svc.ProcessPayment(context.Background(), f.Config, call); err == nil {
		t.Fatal("expected error when the event cannot be recorded")
	}
	if got := f.Balance(t, call.PayerTokenAccount); got != 1000 {
		t.Errorf("expected payer balance 1000, got %d", got)
	}
	if got := f.Balance(t, call.DestinationAccounts[0]); got != 0 {
		t.Errorf("expected recipient balance 0, got %d", got)
	}
}

func TestPaymentService_ProcessPayment_TransferFailureAtLaterLeg(t *testing.T) {
	f := testutil.NewSettlementFixture(t)
	faulty := testutil.NewFaultyLedger(f.Ledger)
	faulty.FailTransferAt = 1
	faulty.TransferErr = domain.ErrInsufficientFunds
	svc := NewPaymentService(faulty, zerolog.Nop())

	payer, r2, r3 := testutil.NewWallet(1), testutil.NewWallet(2), testutil.NewWallet(3)
	f.OpenAccount(t, payer.Identity, 1000)
	f.OpenAccount(t, r2.Identity, 0)
	f.OpenAccount(t, r3.Identity, 0)

	call := f.Call(payer, 1, []uint64{100, 200}, r2.Identity, r3.Identity)
	_, err := svc.ProcessPayment(context.Background(), f.Config, call)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if got := f.Balance(t, call.DestinationAccounts[0]); got != 0 {
		t.Errorf("expected first leg rolled back, got %d", got)
	}
}

func TestPaymentService_ProcessPayment_PayerNotOwner(t *testing.T) {
	s := setupPaymentService(t)
	thief := testutil.NewWallet(66)

	// thief presents the real payer's token account as its own
	call := s.fixture.Call(thief, 11, []uint64{100}, s.r2.Identity)
	call.PayerTokenAccount = s.fixture.AssociatedAccount(s.payer.Identity)

	_, err := s.process(call)
	if !errors.Is(err, domain.ErrOwnerMismatch) {
		t.Fatalf("expected owner mismatch, got %v", err)
	}
	if got := s.fixture.Balance(t, call.PayerTokenAccount); got != startingBalance {
		t.Errorf("expected payer balance unchanged, got %d", got)
	}
}

func TestPaymentService_ProcessPayment_SelfPayment(t *testing.T) {
	s := setupPaymentService(t)

	call := s.fixture.Call(s.payer, 12, []uint64{500}, s.payer.Identity)
	if _, err := s.process(call); err != nil {
		t.Fatalf("expected self payment to succeed, got %v", err)
	}
	if got := s.fixture.Balance(t, call.PayerTokenAccount); got != startingBalance {
		t.Errorf("expected balance unchanged by self payment, got %d", got)
	}
}

func TestPaymentService_ProcessPayment_OtherTokenProgram(t *testing.T) {
	s := setupPaymentService(t)

	call := s.fixture.Call(s.payer, 13, []uint64{1}, s.r2.Identity)
	call.TokenProgram = testutil.NewWallet(77).Identity

	_, err := s.process(call)
	if !errors.Is(err, domain.ErrInvalidTokenAccount) {
		t.Fatalf("expected invalid token account, got %v", err)
	}
	if code := domain.ErrorCode(err); code != "InvalidTokenAccount" {
		t.Errorf("expected code InvalidTokenAccount, got %q", code)
	}
	if got := s.fixture.Balance(t, call.PayerTokenAccount); got != startingBalance {
		t.Errorf("expected payer balance unchanged, got %d", got)
	}
	if _, err := s.fixture.Ledger.GetOrder(context.Background(), 13); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected order id to stay unused, got %v", err)
	}
}

func TestPaymentService_ProcessPayment_TotalOverflow(t *testing.T) {
	s := setupPaymentService(t)

	call := s.fixture.Call(s.payer, 14, []uint64{^uint64(0), 1}, s.r2.Identity, s.r3.Identity)
	if _, err := s.process(call); !errors.Is(err, domain.ErrAmountOverflow) {
		t.Fatalf("expected amount overflow, got %v", err)
	}
}

func TestPaymentService_ProcessPayment_ConcurrentSamePayer(t *testing.T) {
	f := testutil.NewSettlementFixture(t)
	svc := NewPaymentService(f.Ledger, zerolog.Nop())
	payer := testutil.NewWallet(1)
	recipient := testutil.NewWallet(2)
	payerAccount := f.OpenAccount(t, payer.Identity, 1000)
	recipientAccount := f.OpenAccount(t, recipient.Identity, 0)

	const attempts = 20
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
		unexpected   []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(orderID uint64) {
			defer wg.Done()
			call := f.Call(payer, orderID, []uint64{200}, recipient.Identity)
			_, err := svc.ProcessPayment(context.Background(), f.Config, call)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientFunds):
				insufficient++
			default:
				unexpected = append(unexpected, err)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	if len(unexpected) > 0 {
		t.Fatalf("unexpected errors: %v", unexpected)
	}
	if succeeded != 5 || insufficient != 15 {
		t.Errorf("expected 5 successes and 15 insufficient funds, got %d and %d", succeeded, insufficient)
	}
	payerBalance := f.Balance(t, payerAccount)
	recipientBalance := f.Balance(t, recipientAccount)
	if payerBalance != 0 || recipientBalance != 1000 {
		t.Errorf("expected balances 0 and 1000, got %d and %d", payerBalance, recipientBalance)
	}

	settled, err := svc.ListSettlements(context.Background(), 0, attempts)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(settled) != succeeded {
		t.Errorf("expected %d settlement events, got %d", succeeded, len(settled))
	}
	for i, e := range settled {
		if e.Sequence != int64(i+1) {
			t.Errorf("expected sequence %d at position %d, got %d", i+1, i, e.Sequence)
		}
	}
}

func TestPaymentService_ProcessPayment_NotInitialized(t *testing.T) {
	s := setupPaymentService(t)

	_, err := s.service.ProcessPayment(context.Background(), nil, s.fixture.Call(s.payer, 1, []uint64{1}, s.r2.Identity))
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
}

func TestPaymentService_ListSettlements(t *testing.T) {
	s := setupPaymentService(t)
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		if _, err := s.process(s.fixture.Call(s.payer, i, []uint64{i}, s.r2.Identity)); err != nil {
			t.Fatalf("payment %d failed: %v", i, err)
		}
	}

	page, err := s.service.ListSettlements(ctx, 0, 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(page) != 2 || page[0].OrderID != 1 || page[1].OrderID != 2 {
		t.Fatalf("expected orders 1 and 2, got %d events", len(page))
	}

	next, err := s.service.ListSettlements(ctx, page[1].Sequence, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(next) != 1 || next[0].OrderID != 3 {
		t.Errorf("expected order 3 on the second page, got %d events", len(next))
	}
}
