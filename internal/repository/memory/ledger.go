package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/google/uuid"
)

// Ledger is an in-process domain.Ledger. Atomic units run one at a time and
// stage their writes, which are applied only when the unit returns nil.
type Ledger struct {
	mu       sync.Mutex
	clock    func() time.Time
	config   *domain.ProgramConfig
	accounts map[domain.Identity]*domain.TokenAccount
	orders   map[uint64]*domain.Order
	events   []*domain.PaymentProcessedEvent
	sequence int64
}

// Option configures a memory Ledger
type Option func(*Ledger)

// WithClock overrides the ledger clock
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// NewLedger creates an empty ledger
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		clock:    time.Now,
		accounts: make(map[domain.Identity]*domain.TokenAccount),
		orders:   make(map[uint64]*domain.Order),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ domain.Ledger = (*Ledger)(nil)

// Atomic runs fn against a staged view of the ledger
func (l *Ledger) Atomic(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &ledgerTx{
		base:     l,
		now:      l.clock().UTC(),
		accounts: make(map[domain.Identity]*domain.TokenAccount),
		orders:   make(map[uint64]*domain.Order),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx.apply()
	return nil
}

func (l *Ledger) GetProgramConfig(ctx context.Context) (*domain.ProgramConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.config == nil {
		return nil, domain.ErrNotInitialized
	}
	cfg := *l.config
	return &cfg, nil
}

func (l *Ledger) GetTokenAccount(ctx context.Context, address domain.Identity) (*domain.TokenAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[address]
	if !ok {
		return nil, domain.ErrTokenAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (l *Ledger) GetOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (l *Ledger) GetEventByOrderID(ctx context.Context, orderID uint64) (*domain.PaymentProcessedEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.OrderID == orderID {
			return copyEvent(e), nil
		}
	}
	return nil, domain.ErrEventNotFound
}

func (l *Ledger) ListEvents(ctx context.Context, afterSequence int64, limit int) ([]*domain.PaymentProcessedEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// events are appended in sequence order
	idx := sort.Search(len(l.events), func(i int) bool {
		return l.events[i].Sequence > afterSequence
	})
	out := make([]*domain.PaymentProcessedEvent, 0)
	for i := idx; i < len(l.events) && len(out) < limit; i++ {
		out = append(out, copyEvent(l.events[i]))
	}
	return out, nil
}

func (l *Ledger) ListUnpublishedEvents(ctx context.Context, limit int) ([]*domain.PaymentProcessedEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*domain.PaymentProcessedEvent, 0)
	for _, e := range l.events {
		if len(out) >= limit {
			break
		}
		if e.PublishedAt == nil {
			out = append(out, copyEvent(e))
		}
	}
	return out, nil
}

func (l *Ledger) MarkEventsPublished(ctx context.Context, ids []uuid.UUID, publishedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}
	for _, e := range l.events {
		if _, ok := pending[e.ID]; ok && e.PublishedAt == nil {
			at := publishedAt
			e.PublishedAt = &at
		}
	}
	return nil
}

// ledgerTx stages writes over the base ledger. The base mutex is held for its lifetime.
type ledgerTx struct {
	base     *Ledger
	now      time.Time
	config   *domain.ProgramConfig
	accounts map[domain.Identity]*domain.TokenAccount
	orders   map[uint64]*domain.Order
	events   []*domain.PaymentProcessedEvent
}

func (t *ledgerTx) Now(ctx context.Context) (time.Time, error) {
	return t.now, nil
}

func (t *ledgerTx) GetProgramConfig(ctx context.Context) (*domain.ProgramConfig, error) {
	cfg := t.config
	if cfg == nil {
		cfg = t.base.config
	}
	if cfg == nil {
		return nil, domain.ErrNotInitialized
	}
	cp := *cfg
	return &cp, nil
}

func (t *ledgerTx) CreateProgramConfig(ctx context.Context, cfg *domain.ProgramConfig) error {
	if t.config != nil || t.base.config != nil {
		return domain.ErrAlreadyInitialized
	}
	cp := *cfg
	t.config = &cp
	return nil
}

// account returns the staged copy of an account, staging it on first touch
func (t *ledgerTx) account(address domain.Identity) (*domain.TokenAccount, error) {
	if acct, ok := t.accounts[address]; ok {
		return acct, nil
	}
	base, ok := t.base.accounts[address]
	if !ok {
		return nil, domain.ErrTokenAccountNotFound
	}
	cp := *base
	t.accounts[address] = &cp
	return &cp, nil
}

func (t *ledgerTx) GetTokenAccountForUpdate(ctx context.Context, address domain.Identity) (*domain.TokenAccount, error) {
	acct, err := t.account(address)
	if err != nil {
		return nil, err
	}
	cp := *acct
	return &cp, nil
}

func (t *ledgerTx) CreateTokenAccount(ctx context.Context, account *domain.TokenAccount) error {
	if _, err := t.account(account.Address); err == nil {
		return domain.ErrTokenAccountExists
	}
	cp := *account
	cp.CreatedAt = t.now
	cp.UpdatedAt = t.now
	t.accounts[account.Address] = &cp
	*account = cp
	return nil
}

func (t *ledgerTx) Credit(ctx context.Context, address domain.Identity, amount uint64) (*domain.TokenAccount, error) {
	acct, err := t.account(address)
	if err != nil {
		return nil, err
	}
	if acct.Amount+amount < acct.Amount {
		return nil, domain.ErrAmountOverflow
	}
	acct.Amount += amount
	acct.UpdatedAt = t.now
	cp := *acct
	return &cp, nil
}

func (t *ledgerTx) TransferChecked(ctx context.Context, ix domain.TransferInstruction) error {
	cfg, err := t.GetProgramConfig(ctx)
	if err != nil {
		return err
	}
	if ix.Decimals != cfg.Decimals {
		return domain.ErrDecimalsMismatch
	}

	src, err := t.account(ix.Source)
	if err != nil {
		return err
	}
	dst, err := t.account(ix.Destination)
	if err != nil {
		return err
	}
	if src.Owner != ix.Authority {
		return domain.ErrOwnerMismatch
	}
	if src.Mint != ix.Mint || dst.Mint != ix.Mint {
		return domain.ErrMintMismatch
	}
	if src.Amount < ix.Amount {
		return domain.ErrInsufficientFunds
	}

	// src and dst alias when paying oneself
	src.Amount -= ix.Amount
	if dst.Amount+ix.Amount < dst.Amount {
		return domain.ErrAmountOverflow
	}
	dst.Amount += ix.Amount
	src.UpdatedAt = t.now
	dst.UpdatedAt = t.now
	return nil
}

func (t *ledgerTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	if _, ok := t.orders[order.OrderID]; ok {
		return domain.ErrOrderIDAlreadyUsed
	}
	if _, ok := t.base.orders[order.OrderID]; ok {
		return domain.ErrOrderIDAlreadyUsed
	}
	cp := *order
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = t.now
	}
	t.orders[order.OrderID] = &cp
	return nil
}

func (t *ledgerTx) AppendEvent(ctx context.Context, event *domain.PaymentProcessedEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Sequence = t.base.sequence + int64(len(t.events)) + 1
	event.CreatedAt = t.now
	t.events = append(t.events, copyEvent(event))
	return nil
}

func (t *ledgerTx) apply() {
	l := t.base
	if t.config != nil {
		l.config = t.config
	}
	for addr, acct := range t.accounts {
		l.accounts[addr] = acct
	}
	for id, order := range t.orders {
		l.orders[id] = order
	}
	for _, e := range t.events {
		l.events = append(l.events, e)
		l.sequence = e.Sequence
	}
}

func copyEvent(e *domain.PaymentProcessedEvent) *domain.PaymentProcessedEvent {
	cp := *e
	cp.Amounts = append([]uint64(nil), e.Amounts...)
	cp.Recipients = append([]domain.Identity(nil), e.Recipients...)
	cp.DestinationAccounts = append([]domain.Identity(nil), e.DestinationAccounts...)
	if e.PublishedAt != nil {
		at := *e.PublishedAt
		cp.PublishedAt = &at
	}
	return &cp
}
