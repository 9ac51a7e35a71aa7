package domain

import "time"

// TokenAccount is a balance of one mint held by one owner
type TokenAccount struct {
	Address   Identity  `json:"address"`
	Owner     Identity  `json:"owner"`
	Mint      Identity  `json:"mint"`
	Amount    uint64    `json:"amount,string"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TransferInstruction is a checked transfer between two token accounts of the same mint.
// Authority must own Source; Decimals must match the mint.
type TransferInstruction struct {
	Source      Identity
	Destination Identity
	Mint        Identity
	Authority   Identity
	Amount      uint64
	Decimals    uint8
}
