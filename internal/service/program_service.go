package service

import (
	"context"
	"errors"
	"sync"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/rs/zerolog"
)

// ProgramService establishes and serves the program configuration
type ProgramService struct {
	ledger domain.Ledger
	logger zerolog.Logger

	mu     sync.RWMutex
	cached *domain.ProgramConfig
}

// NewProgramService creates a new ProgramService
func NewProgramService(ledger domain.Ledger, logger zerolog.Logger) *ProgramService {
	return &ProgramService{
		ledger: ledger,
		logger: logger.With().Str("component", "program_service").Logger(),
	}
}

// Initialize writes the program configuration. Repeating it with the same
// parameters returns the stored configuration; different parameters fail
// with ErrAlreadyInitialized.
func (s *ProgramService) Initialize(ctx context.Context, input domain.InitializeInput) (*domain.ProgramConfig, error) {
	if input.Authority.IsZero() || input.Mint.IsZero() || input.TokenProgram.IsZero() {
		return nil, domain.ErrInvalidIdentity
	}

	var cfg *domain.ProgramConfig
	err := s.ledger.Atomic(ctx, func(tx domain.LedgerTx) error {
		existing, err := tx.GetProgramConfig(ctx)
		if err == nil {
			if !existing.Matches(input) {
				return domain.ErrAlreadyInitialized
			}
			cfg = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotInitialized) {
			return err
		}

		now, err := tx.Now(ctx)
		if err != nil {
			return err
		}
		cfg = &domain.ProgramConfig{
			Authority:     input.Authority,
			Mint:          input.Mint,
			TokenProgram:  input.TokenProgram,
			Decimals:      input.Decimals,
			InitializedAt: now,
		}
		err = tx.CreateProgramConfig(ctx, cfg)
		if !errors.Is(err, domain.ErrAlreadyInitialized) {
			return err
		}

		// Lost a race with a concurrent initialize
		winner, err := tx.GetProgramConfig(ctx)
		if err != nil {
			return err
		}
		if !winner.Matches(input) {
			return domain.ErrAlreadyInitialized
		}
		cfg = winner
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = cfg
	s.mu.Unlock()

	s.logger.Info().
		Str("authority", cfg.Authority.String()).
		Str("mint", cfg.Mint.String()).
		Uint8("decimals", cfg.Decimals).
		Msg("Program initialized")

	cp := *cfg
	return &cp, nil
}

// Config returns the immutable configuration handle, or ErrNotInitialized
func (s *ProgramService) Config(ctx context.Context) (*domain.ProgramConfig, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		cp := *cached
		return &cp, nil
	}

	cfg, err := s.ledger.GetProgramConfig(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = cfg
	s.mu.Unlock()

	cp := *cfg
	return &cp, nil
}
