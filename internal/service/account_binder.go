package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
)

// AccountBinder resolves each destination account of a batch and checks that it
// is the recipient's associated token account for the configured mint.
type AccountBinder struct{}

// NewAccountBinder creates a new AccountBinder
func NewAccountBinder() *AccountBinder {
	return &AccountBinder{}
}

// Bind locks every account the payment touches, in address order, then verifies
// the destinations in batch order. The first bad destination fails the whole batch.
func (b *AccountBinder) Bind(ctx context.Context, tx domain.LedgerTx, cfg *domain.ProgramConfig, batch *domain.PaymentBatch, payerTokenAccount domain.Identity) ([]domain.DestinationBinding, error) {
	addresses := make([]domain.Identity, 0, batch.Len()+1)
	addresses = append(addresses, payerTokenAccount)
	for _, e := range batch.Entries {
		addresses = append(addresses, e.Destination)
	}
	accounts, err := lockAccounts(ctx, tx, addresses)
	if err != nil {
		return nil, err
	}

	bindings := make([]domain.DestinationBinding, batch.Len())
	for i, e := range batch.Entries {
		acct, ok := accounts[e.Destination]
		if !ok {
			return nil, fmt.Errorf("index %d: account %s does not exist: %w", i, e.Destination, domain.ErrInvalidTokenAccount)
		}
		if acct.Address != cfg.AssociatedAccount(e.Recipient) {
			return nil, fmt.Errorf("index %d: %s is not the associated account of %s: %w", i, e.Destination, e.Recipient, domain.ErrInvalidTokenAccount)
		}
		if acct.Owner != e.Recipient {
			return nil, fmt.Errorf("index %d: %s is not owned by %s: %w", i, e.Destination, e.Recipient, domain.ErrInvalidTokenAccount)
		}
		if acct.Mint != cfg.Mint {
			return nil, fmt.Errorf("index %d: %s holds mint %s: %w", i, e.Destination, acct.Mint, domain.ErrInvalidTokenAccount)
		}
		bindings[i] = domain.DestinationBinding{
			Recipient: e.Recipient,
			Account:   acct,
			Amount:    e.Amount,
		}
	}
	return bindings, nil
}

// lockAccounts loads the distinct addresses under lock in byte order.
// Missing accounts are left out of the result.
func lockAccounts(ctx context.Context, tx domain.LedgerTx, addresses []domain.Identity) (map[domain.Identity]*domain.TokenAccount, error) {
	unique := make([]domain.Identity, 0, len(addresses))
	seen := make(map[domain.Identity]struct{}, len(addresses))
	for _, a := range addresses {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		unique = append(unique, a)
	}
	sort.Slice(unique, func(i, j int) bool {
		return bytes.Compare(unique[i][:], unique[j][:]) < 0
	})

	accounts := make(map[domain.Identity]*domain.TokenAccount, len(unique))
	for _, a := range unique {
		acct, err := tx.GetTokenAccountForUpdate(ctx, a)
		if err != nil {
			if errors.Is(err, domain.ErrTokenAccountNotFound) {
				continue
			}
			return nil, err
		}
		accounts[a] = acct
	}
	return accounts, nil
}
