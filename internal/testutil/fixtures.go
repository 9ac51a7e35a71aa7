package testutil

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/repository/memory"
)

// TestDecimals is the mint precision used by fixtures
const TestDecimals = 6

// FixedTime is the ledger clock used by fixtures
var FixedTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// Wallet is a deterministic ed25519 keypair
type Wallet struct {
	Identity   domain.Identity
	PrivateKey ed25519.PrivateKey
}

// NewWallet derives a keypair from a one-byte seed so tests are reproducible
func NewWallet(seed byte) Wallet {
	raw := make([]byte, ed25519.SeedSize)
	for i := range raw {
		raw[i] = seed
	}
	key := ed25519.NewKeyFromSeed(raw)
	return Wallet{
		Identity:   domain.IdentityFromPublicKey(key.Public().(ed25519.PublicKey)),
		PrivateKey: key,
	}
}

// SettlementFixture is an initialized in-memory ledger with a test mint
type SettlementFixture struct {
	Ledger       *memory.Ledger
	Config       *domain.ProgramConfig
	Authority    Wallet
	Mint         domain.Identity
	TokenProgram domain.Identity
}

// NewSettlementFixture creates a ledger whose program is already initialized
func NewSettlementFixture(t testing.TB) *SettlementFixture {
	t.Helper()

	f := &SettlementFixture{
		Ledger:       memory.NewLedger(memory.WithClock(func() time.Time { return FixedTime })),
		Authority:    NewWallet(200),
		Mint:         NewWallet(201).Identity,
		TokenProgram: NewWallet(202).Identity,
	}
	f.Config = &domain.ProgramConfig{
		Authority:     f.Authority.Identity,
		Mint:          f.Mint,
		TokenProgram:  f.TokenProgram,
		Decimals:      TestDecimals,
		InitializedAt: FixedTime,
	}

	ctx := context.Background()
	err := f.Ledger.Atomic(ctx, func(tx domain.LedgerTx) error {
		return tx.CreateProgramConfig(ctx, f.Config)
	})
	if err != nil {
		t.Fatalf("failed to initialize program: %v", err)
	}
	return f
}

// InitializeInput returns the parameters the fixture was initialized with
func (f *SettlementFixture) InitializeInput() domain.InitializeInput {
	return domain.InitializeInput{
		Authority:    f.Config.Authority,
		Mint:         f.Config.Mint,
		TokenProgram: f.Config.TokenProgram,
		Decimals:     f.Config.Decimals,
	}
}

// AssociatedAccount returns the owner's associated token account address
func (f *SettlementFixture) AssociatedAccount(owner domain.Identity) domain.Identity {
	return f.Config.AssociatedAccount(owner)
}

// OpenAccount opens the owner's associated account with a starting balance
func (f *SettlementFixture) OpenAccount(t testing.TB, owner domain.Identity, amount uint64) domain.Identity {
	t.Helper()
	address := f.AssociatedAccount(owner)
	f.PutAccount(t, &domain.TokenAccount{Address: address, Owner: owner, Mint: f.Mint, Amount: amount})
	return address
}

// PutAccount stores an arbitrary token account, valid or not
func (f *SettlementFixture) PutAccount(t testing.TB, account *domain.TokenAccount) {
	t.Helper()
	ctx := context.Background()
	err := f.Ledger.Atomic(ctx, func(tx domain.LedgerTx) error {
		return tx.CreateTokenAccount(ctx, account)
	})
	if err != nil {
		t.Fatalf("failed to create token account: %v", err)
	}
}

// Balance returns the current amount held at an address
func (f *SettlementFixture) Balance(t testing.TB, address domain.Identity) uint64 {
	t.Helper()
	acct, err := f.Ledger.GetTokenAccount(context.Background(), address)
	if err != nil {
		t.Fatalf("failed to load token account %s: %v", address, err)
	}
	return acct.Amount
}

// Call builds a payment from payer to recipients paying into their associated accounts
func (f *SettlementFixture) Call(payer Wallet, orderID uint64, amounts []uint64, recipients ...domain.Identity) domain.PaymentCall {
	destinations := make([]domain.Identity, len(recipients))
	for i, r := range recipients {
		destinations[i] = f.AssociatedAccount(r)
	}
	return domain.PaymentCall{
		Request: domain.PaymentRequest{
			OrderID:    orderID,
			Amounts:    amounts,
			Recipients: recipients,
		},
		Payer:               payer.Identity,
		PayerTokenAccount:   f.AssociatedAccount(payer.Identity),
		TokenProgram:        f.TokenProgram,
		DestinationAccounts: destinations,
	}
}
