// Package address defines the account identity used as a balance key.
//
// An Address is a fixed 20-byte value rendered as "0x"-prefixed lowercase
// hex. It is comparable and can be used directly as a map key. The zero
// value is the null identity.
package address

import (
	"crypto/ed25519"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Length is the number of bytes in an Address.
const Length = 20

// Address identifies a balance holder.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type Address [Length]byte

// Zero is the null identity.
var Zero Address

// FromPublicKey derives an address from an ed25519 public key. The address
// is the trailing 20 bytes of the blake2b-256 digest of the key.
func FromPublicKey(pub ed25519.PublicKey) Address {
	sum := blake2b.Sum256(pub)
	var a Address
	copy(a[:], sum[len(sum)-Length:])
	return a
}

// FromBytes copies b into an Address. b must be exactly Length bytes.
func FromBytes(b []byte) (Address, error) {
	if len(b) != Length {
		return Zero, fmt.Errorf("address: expected %d bytes, got %d", Length, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// Parse parses a hex address with or without the "0x" prefix.
func Parse(s string) (Address, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != Length*2 {
		return Zero, fmt.Errorf("address: parse %q: expected %d hex characters", s, Length*2)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return Zero, fmt.Errorf("address: parse %q: %w", s, err)
	}
	return FromBytes(b)
}

// MustParse is like Parse but panics on error. Use for hardcoded values.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the "0x"-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Hex returns the hex form without the "0x" prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the raw bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, Length)
	copy(b, a[:])
	return b
}

// IsZero reports whether a is the null identity.
func (a Address) IsZero() bool {
	return a == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == Length {
			copy(a[:], v)
			return nil
		}
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("address: cannot scan %T into Address", src)
	}
}
