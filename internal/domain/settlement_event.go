package domain

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Order records that an order id has been settled
type Order struct {
	OrderID   uint64
	Hash      [32]byte
	Payer     Identity
	CreatedAt time.Time
}

// PaymentProcessedEvent is the durable record of one successful payment.
// Timestamp is the ledger clock at commit in unix seconds.
type PaymentProcessedEvent struct {
	ID                  uuid.UUID
	Sequence            int64
	OrderID             uint64
	Hash                [32]byte
	Payer               Identity
	PayerTokenAccount   Identity
	Mint                Identity
	Decimals            uint8
	Amounts             []uint64
	Recipients          []Identity
	DestinationAccounts []Identity
	Timestamp           int64
	CreatedAt           time.Time
	PublishedAt         *time.Time
}

// Total sums the event amounts. Accepted events never overflow.
func (e *PaymentProcessedEvent) Total() uint64 {
	var total uint64
	for _, a := range e.Amounts {
		total += a
	}
	return total
}

type paymentProcessedEventJSON struct {
	ID                  uuid.UUID  `json:"id"`
	Sequence            int64      `json:"sequence"`
	OrderID             string     `json:"orderId"`
	Hash                string     `json:"hash"`
	Payer               Identity   `json:"payer"`
	PayerTokenAccount   Identity   `json:"payerTokenAccount"`
	Mint                Identity   `json:"mint"`
	Decimals            uint8      `json:"decimals"`
	Amounts             []string   `json:"amounts"`
	UIAmounts           []string   `json:"uiAmounts"`
	Total               string     `json:"total"`
	Recipients          []Identity `json:"recipients"`
	DestinationAccounts []Identity `json:"destinationAccounts"`
	Timestamp           int64      `json:"timestamp"`
	CreatedAt           time.Time  `json:"createdAt"`
	PublishedAt         *time.Time `json:"publishedAt,omitempty"`
}

// MarshalJSON renders amounts and the order id as strings so 64-bit values survive JSON clients
func (e PaymentProcessedEvent) MarshalJSON() ([]byte, error) {
	ui := make([]string, len(e.Amounts))
	for i, a := range e.Amounts {
		ui[i] = FormatUIAmount(a, e.Decimals)
	}
	return json.Marshal(paymentProcessedEventJSON{
		ID:                  e.ID,
		Sequence:            e.Sequence,
		OrderID:             strconv.FormatUint(e.OrderID, 10),
		Hash:                hex.EncodeToString(e.Hash[:]),
		Payer:               e.Payer,
		PayerTokenAccount:   e.PayerTokenAccount,
		Mint:                e.Mint,
		Decimals:            e.Decimals,
		Amounts:             FormatAmounts(e.Amounts),
		UIAmounts:           ui,
		Total:               FormatUIAmount(e.Total(), e.Decimals),
		Recipients:          e.Recipients,
		DestinationAccounts: e.DestinationAccounts,
		Timestamp:           e.Timestamp,
		CreatedAt:           e.CreatedAt,
		PublishedAt:         e.PublishedAt,
	})
}
