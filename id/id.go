// Package id defines TypeID-based identifiers for token deployments and
// transfer records.
//
// IDs render as "prefix_suffix", for example "tok_01h2xcejqtf2nbrexx3vqjhp41".
// The suffix is UUIDv7-based, so IDs of one kind sort by creation time.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the kind of entity an ID belongs to.
type Prefix string

const (
	PrefixToken    Prefix = "tok"
	PrefixTransfer Prefix = "xfer"
)

// ID is a prefixed TypeID. The zero value is Nil and stores as NULL.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// TokenID identifies a deployed token.
type TokenID = ID

// TransferID identifies a journaled transfer.
type TransferID = ID

// New generates an ID for prefix. Only the package prefixes are valid;
// anything else panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

func NewTokenID() TokenID       { return New(PrefixToken) }
func NewTransferID() TransferID { return New(PrefixTransfer) }

// Parse parses any TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and rejects IDs of any other kind.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := parsed.Prefix(); got != expected {
		return Nil, fmt.Errorf("id: parse %q: want a %s id, got %s", s, expected, got)
	}
	return parsed, nil
}

func ParseTokenID(s string) (TokenID, error)       { return ParseWithPrefix(s, PrefixToken) }
func ParseTransferID(s string) (TransferID, error) { return ParseWithPrefix(s, PrefixTransfer) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler. Nil marshals as "".
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "" yields Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer. Nil stores as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.inner.String(), nil
}

// Scan implements sql.Scanner. NULL and "" scan as Nil.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
