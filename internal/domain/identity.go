package domain

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// IdentitySize is the byte length of an account identity
const IdentitySize = 32

// associatedAccountSeed namespaces derived token account addresses
const associatedAccountSeed = "bazaar:associated-token-account"

// Identity is a 32-byte ed25519 public key used for wallets, mints, programs and token accounts.
// Its textual form is base58.
type Identity [IdentitySize]byte

// ParseIdentity decodes a base58 identity
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	if len(raw) != IdentitySize {
		return id, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidIdentity, s, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseIdentity is ParseIdentity for constants and fixtures. It panics on bad input.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IdentityFromPublicKey wraps an ed25519 public key
func IdentityFromPublicKey(pub ed25519.PublicKey) Identity {
	var id Identity
	copy(id[:], pub)
	return id
}

func (id Identity) String() string {
	return base58.Encode(id[:])
}

// IsZero reports whether the identity is unset
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Bytes returns a copy of the raw key bytes
func (id Identity) Bytes() []byte {
	b := make([]byte, IdentitySize)
	copy(b, id[:])
	return b
}

// MarshalText implements encoding.TextMarshaler
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIdentities decodes a list of base58 identities, reporting the first bad index
func ParseIdentities(values []string) ([]Identity, error) {
	ids := make([]Identity, len(values))
	for i, v := range values {
		id, err := ParseIdentity(v)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// AssociatedTokenAddress derives the canonical token account address for an owner,
// a mint and the token program that manages the account.
func AssociatedTokenAddress(owner, mint, tokenProgram Identity) Identity {
	h := sha256.New()
	h.Write([]byte(associatedAccountSeed))
	h.Write(owner[:])
	h.Write(tokenProgram[:])
	h.Write(mint[:])

	var id Identity
	copy(id[:], h.Sum(nil))
	return id
}
