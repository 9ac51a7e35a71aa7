package service

import (
	"context"
	"fmt"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
)

// TransferExecutor moves each bound amount from the payer's token account
type TransferExecutor struct{}

// NewTransferExecutor creates a new TransferExecutor
func NewTransferExecutor() *TransferExecutor {
	return &TransferExecutor{}
}

// Execute runs one checked transfer per binding, in order. It must run inside
// the same atomic unit as binding so a failed leg discards the earlier ones.
func (x *TransferExecutor) Execute(ctx context.Context, tx domain.LedgerTx, cfg *domain.ProgramConfig, payer, payerTokenAccount domain.Identity, bindings []domain.DestinationBinding) error {
	for i, b := range bindings {
		err := tx.TransferChecked(ctx, domain.TransferInstruction{
			Source:      payerTokenAccount,
			Destination: b.Account.Address,
			Mint:        cfg.Mint,
			Authority:   payer,
			Amount:      b.Amount,
			Decimals:    cfg.Decimals,
		})
		if err != nil {
			return fmt.Errorf("transfer %d to %s: %w", i, b.Recipient, err)
		}
	}
	return nil
}
