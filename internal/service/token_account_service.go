package service

import (
	"context"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// TokenAccountService opens and funds token accounts for the configured mint
type TokenAccountService struct {
	ledger         domain.Ledger
	programs       *ProgramService
	logger         zerolog.Logger
	eventPublisher websocket.EventPublisher
}

// NewTokenAccountService creates a new TokenAccountService
func NewTokenAccountService(ledger domain.Ledger, programs *ProgramService, logger zerolog.Logger) *TokenAccountService {
	return &TokenAccountService{
		ledger:   ledger,
		programs: programs,
		logger:   logger.With().Str("component", "token_account_service").Logger(),
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *TokenAccountService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// OpenAssociatedAccount creates the owner's associated token account for the configured mint
func (s *TokenAccountService) OpenAssociatedAccount(ctx context.Context, owner domain.Identity) (*domain.TokenAccount, error) {
	if owner.IsZero() {
		return nil, domain.ErrInvalidIdentity
	}
	cfg, err := s.programs.Config(ctx)
	if err != nil {
		return nil, err
	}

	account := &domain.TokenAccount{
		Address: cfg.AssociatedAccount(owner),
		Owner:   owner,
		Mint:    cfg.Mint,
	}
	err = s.ledger.Atomic(ctx, func(tx domain.LedgerTx) error {
		return tx.CreateTokenAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("address", account.Address.String()).
		Str("owner", owner.String()).
		Msg("Token account opened")
	return account, nil
}

// MintTo credits new supply to a token account of the configured mint
func (s *TokenAccountService) MintTo(ctx context.Context, address domain.Identity, amount uint64) (*domain.TokenAccount, error) {
	if amount == 0 {
		return nil, domain.ErrZeroAmount
	}
	cfg, err := s.programs.Config(ctx)
	if err != nil {
		return nil, err
	}

	var account *domain.TokenAccount
	err = s.ledger.Atomic(ctx, func(tx domain.LedgerTx) error {
		current, err := tx.GetTokenAccountForUpdate(ctx, address)
		if err != nil {
			return err
		}
		if current.Mint != cfg.Mint {
			return domain.ErrMintMismatch
		}
		account, err = tx.Credit(ctx, address, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(account.Owner, websocket.TokenAccountCredited(account))
	}

	s.logger.Info().
		Str("address", address.String()).
		Uint64("amount", amount).
		Msg("Minted to token account")
	return account, nil
}

// GetAccount returns a token account by address
func (s *TokenAccountService) GetAccount(ctx context.Context, address domain.Identity) (*domain.TokenAccount, error) {
	return s.ledger.GetTokenAccount(ctx, address)
}
