package domain

import "time"

// ProgramConfig is the settlement program's configuration. It is written once by
// initialization and read-only afterwards.
type ProgramConfig struct {
	Authority     Identity  `json:"authority"`
	Mint          Identity  `json:"mint"`
	TokenProgram  Identity  `json:"tokenProgram"`
	Decimals      uint8     `json:"decimals"`
	InitializedAt time.Time `json:"initializedAt"`
}

// InitializeInput holds the parameters for establishing the program configuration
type InitializeInput struct {
	Authority    Identity
	Mint         Identity
	TokenProgram Identity
	Decimals     uint8
}

// Matches reports whether the configuration was created from the same parameters
func (c *ProgramConfig) Matches(input InitializeInput) bool {
	return c.Authority == input.Authority &&
		c.Mint == input.Mint &&
		c.TokenProgram == input.TokenProgram &&
		c.Decimals == input.Decimals
}

// AssociatedAccount returns the token account address an owner holds for the configured mint
func (c *ProgramConfig) AssociatedAccount(owner Identity) Identity {
	return AssociatedTokenAddress(owner, c.Mint, c.TokenProgram)
}
