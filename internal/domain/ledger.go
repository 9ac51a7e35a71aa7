package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger is the token ledger store. Every mutation happens inside Atomic:
// either all writes made through the LedgerTx commit, or none do.
type Ledger interface {
	Atomic(ctx context.Context, fn func(tx LedgerTx) error) error

	GetProgramConfig(ctx context.Context) (*ProgramConfig, error)
	GetTokenAccount(ctx context.Context, address Identity) (*TokenAccount, error)
	GetOrder(ctx context.Context, orderID uint64) (*Order, error)
	GetEventByOrderID(ctx context.Context, orderID uint64) (*PaymentProcessedEvent, error)
	ListEvents(ctx context.Context, afterSequence int64, limit int) ([]*PaymentProcessedEvent, error)
	ListUnpublishedEvents(ctx context.Context, limit int) ([]*PaymentProcessedEvent, error)
	MarkEventsPublished(ctx context.Context, ids []uuid.UUID, publishedAt time.Time) error
}

// LedgerTx is the view of the ledger inside one atomic unit
type LedgerTx interface {
	// Now returns the ledger clock for this unit
	Now(ctx context.Context) (time.Time, error)

	GetProgramConfig(ctx context.Context) (*ProgramConfig, error)
	CreateProgramConfig(ctx context.Context, cfg *ProgramConfig) error

	// GetTokenAccountForUpdate loads an account and holds it until the unit ends
	GetTokenAccountForUpdate(ctx context.Context, address Identity) (*TokenAccount, error)
	CreateTokenAccount(ctx context.Context, account *TokenAccount) error
	Credit(ctx context.Context, address Identity, amount uint64) (*TokenAccount, error)
	TransferChecked(ctx context.Context, ix TransferInstruction) error

	// CreateOrder fails with ErrOrderIDAlreadyUsed if the order id was settled before
	CreateOrder(ctx context.Context, order *Order) error
	AppendEvent(ctx context.Context, event *PaymentProcessedEvent) error
}
