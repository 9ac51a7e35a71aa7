package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"
)

// MaxRecipients bounds the fan-out of a single payment
const MaxRecipients = 15

// PaymentRequest carries the typed arguments of a payment call
type PaymentRequest struct {
	OrderID    uint64
	Amounts    []uint64
	Recipients []Identity
}

// PaymentCall is a full payment invocation: the typed arguments, the fixed accounts,
// and the ordered destination token accounts supplied alongside them.
// DestinationAccounts[i] must be the token account of Recipients[i].
type PaymentCall struct {
	Request             PaymentRequest
	Payer               Identity
	PayerTokenAccount   Identity
	TokenProgram        Identity
	DestinationAccounts []Identity
}

// PaymentEntry is one validated leg of a payment
type PaymentEntry struct {
	Recipient   Identity
	Destination Identity
	Amount      uint64
}

// PaymentBatch is a structurally valid payment. Entries keep the caller's order.
type PaymentBatch struct {
	OrderID uint64
	Entries []PaymentEntry
}

// NewPaymentBatch validates the shape of a request against its destination accounts.
// Checks run in a fixed order: length agreement, the recipient bound, non-empty, then amounts.
func NewPaymentBatch(req PaymentRequest, destinations []Identity) (*PaymentBatch, error) {
	n := len(req.Recipients)
	if len(req.Amounts) != n || len(destinations) != n {
		return nil, ErrLengthMismatch
	}
	if n > MaxRecipients {
		return nil, ErrTooManyRecipients
	}
	if n == 0 {
		return nil, ErrNoRecipients
	}

	entries := make([]PaymentEntry, n)
	for i := 0; i < n; i++ {
		if req.Amounts[i] == 0 {
			return nil, atIndex(ErrZeroAmount, i)
		}
		entries[i] = PaymentEntry{
			Recipient:   req.Recipients[i],
			Destination: destinations[i],
			Amount:      req.Amounts[i],
		}
	}

	return &PaymentBatch{OrderID: req.OrderID, Entries: entries}, nil
}

// Len returns the number of legs
func (b *PaymentBatch) Len() int {
	return len(b.Entries)
}

// Amounts returns the leg amounts in order
func (b *PaymentBatch) Amounts() []uint64 {
	out := make([]uint64, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Amount
	}
	return out
}

// Recipients returns the leg recipients in order
func (b *PaymentBatch) Recipients() []Identity {
	out := make([]Identity, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Recipient
	}
	return out
}

// Total sums the leg amounts. It fails if the sum does not fit in 64 bits.
func (b *PaymentBatch) Total() (uint64, error) {
	var total uint64
	for _, e := range b.Entries {
		sum, carry := bits.Add64(total, e.Amount, 0)
		if carry != 0 {
			return 0, ErrAmountOverflow
		}
		total = sum
	}
	return total, nil
}

// Hash fingerprints the order: sha256 over the little-endian order id,
// every little-endian amount, then every recipient key.
func (b *PaymentBatch) Hash() [32]byte {
	return OrderHash(b.OrderID, b.Amounts(), b.Recipients())
}

// OrderHash computes the order fingerprint from raw arguments
func OrderHash(orderID uint64, amounts []uint64, recipients []Identity) [32]byte {
	buf := make([]byte, 0, 8+8*len(amounts)+IdentitySize*len(recipients))
	buf = binary.LittleEndian.AppendUint64(buf, orderID)
	for _, a := range amounts {
		buf = binary.LittleEndian.AppendUint64(buf, a)
	}
	for _, r := range recipients {
		buf = append(buf, r[:]...)
	}
	return sha256.Sum256(buf)
}

// DestinationBinding pairs a recipient with its verified token account
type DestinationBinding struct {
	Recipient Identity
	Account   *TokenAccount
	Amount    uint64
}
