package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgCheckViolation = "23514"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LedgerRepository implements domain.Ledger on PostgreSQL
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

var _ domain.Ledger = (*LedgerRepository)(nil)

// Atomic runs fn inside one database transaction. Any error rolls back every write.
func (r *LedgerRepository) Atomic(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&ledgerTx{q: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *LedgerRepository) GetProgramConfig(ctx context.Context) (*domain.ProgramConfig, error) {
	return getProgramConfig(ctx, r.pool)
}

func (r *LedgerRepository) GetTokenAccount(ctx context.Context, address domain.Identity) (*domain.TokenAccount, error) {
	return scanTokenAccount(r.pool.QueryRow(ctx, `
		SELECT address, owner, mint, amount, created_at, updated_at
		FROM token_accounts WHERE address = $1`, address.Bytes()))
}

func (r *LedgerRepository) GetOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	id, err := amountToPgNumeric(orderID)
	if err != nil {
		return nil, err
	}

	var (
		num       pgtype.Numeric
		hash      []byte
		payer     []byte
		createdAt time.Time
	)
	err = r.pool.QueryRow(ctx, `
		SELECT order_id, hash, payer, created_at FROM orders WHERE order_id = $1`, id).
		Scan(&num, &hash, &payer, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	order := &domain.Order{CreatedAt: createdAt}
	if order.OrderID, err = pgNumericToAmount(num); err != nil {
		return nil, err
	}
	copy(order.Hash[:], hash)
	if order.Payer, err = bytesToIdentity(payer); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *LedgerRepository) GetEventByOrderID(ctx context.Context, orderID uint64) (*domain.PaymentProcessedEvent, error) {
	id, err := amountToPgNumeric(orderID)
	if err != nil {
		return nil, err
	}
	event, err := scanEvent(r.pool.QueryRow(ctx, selectEventSQL+` WHERE order_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *LedgerRepository) ListEvents(ctx context.Context, afterSequence int64, limit int) ([]*domain.PaymentProcessedEvent, error) {
	rows, err := r.pool.Query(ctx, selectEventSQL+`
		WHERE sequence > $1 ORDER BY sequence LIMIT $2`, afterSequence, limit)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (r *LedgerRepository) ListUnpublishedEvents(ctx context.Context, limit int) ([]*domain.PaymentProcessedEvent, error) {
	rows, err := r.pool.Query(ctx, selectEventSQL+`
		WHERE published_at IS NULL ORDER BY sequence LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (r *LedgerRepository) MarkEventsPublished(ctx context.Context, ids []uuid.UUID, publishedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE payment_events SET published_at = $2
		WHERE id = ANY($1) AND published_at IS NULL`, ids, publishedAt)
	return err
}

// ledgerTx implements domain.LedgerTx over a pgx transaction
type ledgerTx struct {
	q querier
}

func (t *ledgerTx) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := t.q.QueryRow(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return time.Time{}, err
	}
	return now.UTC(), nil
}

func (t *ledgerTx) GetProgramConfig(ctx context.Context) (*domain.ProgramConfig, error) {
	return getProgramConfig(ctx, t.q)
}

func (t *ledgerTx) CreateProgramConfig(ctx context.Context, cfg *domain.ProgramConfig) error {
	tag, err := t.q.Exec(ctx, `
		INSERT INTO program_config (id, authority, mint, token_program, decimals, initialized_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		cfg.Authority.Bytes(), cfg.Mint.Bytes(), cfg.TokenProgram.Bytes(), int16(cfg.Decimals), cfg.InitializedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyInitialized
	}
	return nil
}

func (t *ledgerTx) GetTokenAccountForUpdate(ctx context.Context, address domain.Identity) (*domain.TokenAccount, error) {
	return scanTokenAccount(t.q.QueryRow(ctx, `
		SELECT address, owner, mint, amount, created_at, updated_at
		FROM token_accounts WHERE address = $1
		FOR UPDATE`, address.Bytes()))
}

func (t *ledgerTx) CreateTokenAccount(ctx context.Context, account *domain.TokenAccount) error {
	amount, err := amountToPgNumeric(account.Amount)
	if err != nil {
		return err
	}
	row := t.q.QueryRow(ctx, `
		INSERT INTO token_accounts (address, owner, mint, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO NOTHING
		RETURNING created_at, updated_at`,
		account.Address.Bytes(), account.Owner.Bytes(), account.Mint.Bytes(), amount)
	if err := row.Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTokenAccountExists
		}
		return err
	}
	return nil
}

func (t *ledgerTx) Credit(ctx context.Context, address domain.Identity, amount uint64) (*domain.TokenAccount, error) {
	num, err := amountToPgNumeric(amount)
	if err != nil {
		return nil, err
	}
	acct, err := scanTokenAccount(t.q.QueryRow(ctx, `
		UPDATE token_accounts SET amount = amount + $2, updated_at = NOW()
		WHERE address = $1
		RETURNING address, owner, mint, amount, created_at, updated_at`, address.Bytes(), num))
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return acct, nil
}

func (t *ledgerTx) TransferChecked(ctx context.Context, ix domain.TransferInstruction) error {
	cfg, err := getProgramConfig(ctx, t.q)
	if err != nil {
		return err
	}
	if ix.Decimals != cfg.Decimals {
		return domain.ErrDecimalsMismatch
	}

	// Lock both rows in address order so concurrent payments cannot deadlock
	first, second := ix.Source, ix.Destination
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}
	locked := make(map[domain.Identity]*domain.TokenAccount, 2)
	for _, addr := range []domain.Identity{first, second} {
		if _, ok := locked[addr]; ok {
			continue
		}
		acct, err := t.GetTokenAccountForUpdate(ctx, addr)
		if err != nil {
			return err
		}
		locked[addr] = acct
	}

	src, dst := locked[ix.Source], locked[ix.Destination]
	if src.Owner != ix.Authority {
		return domain.ErrOwnerMismatch
	}
	if src.Mint != ix.Mint || dst.Mint != ix.Mint {
		return domain.ErrMintMismatch
	}
	if src.Amount < ix.Amount {
		return domain.ErrInsufficientFunds
	}

	num, err := amountToPgNumeric(ix.Amount)
	if err != nil {
		return err
	}
	if _, err := t.q.Exec(ctx, `
		UPDATE token_accounts SET amount = amount - $2, updated_at = NOW()
		WHERE address = $1`, ix.Source.Bytes(), num); err != nil {
		return mapConstraintError(err)
	}
	if _, err := t.q.Exec(ctx, `
		UPDATE token_accounts SET amount = amount + $2, updated_at = NOW()
		WHERE address = $1`, ix.Destination.Bytes(), num); err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (t *ledgerTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	id, err := amountToPgNumeric(order.OrderID)
	if err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `
		INSERT INTO orders (order_id, hash, payer)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING`, id, order.Hash[:], order.Payer.Bytes())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderIDAlreadyUsed
	}
	return nil
}

func (t *ledgerTx) AppendEvent(ctx context.Context, event *domain.PaymentProcessedEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	orderID, err := amountToPgNumeric(event.OrderID)
	if err != nil {
		return err
	}
	amounts, err := amountsToPgNumeric(event.Amounts)
	if err != nil {
		return err
	}

	// The counter row stays locked until commit, so sequences become visible in
	// order and a reader paging by sequence never skips a late commit.
	var sequence int64
	err = t.q.QueryRow(ctx, `
		UPDATE event_sequence SET value = value + 1 WHERE id = 1
		RETURNING value`).Scan(&sequence)
	if err != nil {
		return fmt.Errorf("failed to allocate event sequence: %w", err)
	}

	return t.q.QueryRow(ctx, `
		INSERT INTO payment_events (
			id, sequence, order_id, hash, payer, payer_token_account, mint, decimals,
			amounts, recipients, destination_accounts, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING sequence, created_at`,
		event.ID, sequence, orderID, event.Hash[:], event.Payer.Bytes(), event.PayerTokenAccount.Bytes(),
		event.Mint.Bytes(), int16(event.Decimals), amounts,
		identitiesToBytes(event.Recipients), identitiesToBytes(event.DestinationAccounts),
		event.Timestamp,
	).Scan(&event.Sequence, &event.CreatedAt)
}

func getProgramConfig(ctx context.Context, q querier) (*domain.ProgramConfig, error) {
	var (
		authority, mint, tokenProgram []byte
		decimals                      int16
		initializedAt                 time.Time
	)
	err := q.QueryRow(ctx, `
		SELECT authority, mint, token_program, decimals, initialized_at
		FROM program_config WHERE id = 1`).
		Scan(&authority, &mint, &tokenProgram, &decimals, &initializedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotInitialized
		}
		return nil, err
	}

	cfg := &domain.ProgramConfig{Decimals: uint8(decimals), InitializedAt: initializedAt}
	if cfg.Authority, err = bytesToIdentity(authority); err != nil {
		return nil, err
	}
	if cfg.Mint, err = bytesToIdentity(mint); err != nil {
		return nil, err
	}
	if cfg.TokenProgram, err = bytesToIdentity(tokenProgram); err != nil {
		return nil, err
	}
	return cfg, nil
}

func scanTokenAccount(row pgx.Row) (*domain.TokenAccount, error) {
	var (
		address, owner, mint []byte
		amount               pgtype.Numeric
		acct                 domain.TokenAccount
	)
	if err := row.Scan(&address, &owner, &mint, &amount, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenAccountNotFound
		}
		return nil, err
	}

	var err error
	if acct.Address, err = bytesToIdentity(address); err != nil {
		return nil, err
	}
	if acct.Owner, err = bytesToIdentity(owner); err != nil {
		return nil, err
	}
	if acct.Mint, err = bytesToIdentity(mint); err != nil {
		return nil, err
	}
	if acct.Amount, err = pgNumericToAmount(amount); err != nil {
		return nil, err
	}
	return &acct, nil
}

const selectEventSQL = `
	SELECT id, sequence, order_id, hash, payer, payer_token_account, mint, decimals,
		amounts, recipients, destination_accounts, timestamp, created_at, published_at
	FROM payment_events`

func scanEvent(row pgx.Row) (*domain.PaymentProcessedEvent, error) {
	var (
		e                           domain.PaymentProcessedEvent
		orderID                     pgtype.Numeric
		hash, payer, payerAcct, mnt []byte
		decimals                    int16
		amounts                     []pgtype.Numeric
		recipients, destinations    [][]byte
	)
	err := row.Scan(&e.ID, &e.Sequence, &orderID, &hash, &payer, &payerAcct, &mnt, &decimals,
		&amounts, &recipients, &destinations, &e.Timestamp, &e.CreatedAt, &e.PublishedAt)
	if err != nil {
		return nil, err
	}

	if e.OrderID, err = pgNumericToAmount(orderID); err != nil {
		return nil, err
	}
	copy(e.Hash[:], hash)
	if e.Payer, err = bytesToIdentity(payer); err != nil {
		return nil, err
	}
	if e.PayerTokenAccount, err = bytesToIdentity(payerAcct); err != nil {
		return nil, err
	}
	if e.Mint, err = bytesToIdentity(mnt); err != nil {
		return nil, err
	}
	e.Decimals = uint8(decimals)
	if e.Amounts, err = pgNumericsToAmounts(amounts); err != nil {
		return nil, err
	}
	if e.Recipients, err = bytesToIdentities(recipients); err != nil {
		return nil, err
	}
	if e.DestinationAccounts, err = bytesToIdentities(destinations); err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]*domain.PaymentProcessedEvent, error) {
	defer rows.Close()

	events := make([]*domain.PaymentProcessedEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}

// mapConstraintError turns the balance range check into the domain error
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return domain.ErrAmountOverflow
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrTokenAccountNotFound
	}
	return err
}
