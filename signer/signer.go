// Package signer enumerates distinct, deterministic development identities.
//
// Signers exist so that harnesses and tests can obtain a stable list of
// accounts (owner first, then the rest) without any key management. Keys are
// derived only to produce addresses and are never exposed.
package signer

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/xraph/token/address"
)

// DefaultNamespace seeds Dev when no namespace is given.
const DefaultNamespace = "token/dev"

// Signer is a named account identity.
type Signer struct {
	Index   int
	Address address.Address
	pub     ed25519.PublicKey
}

// PublicKey returns the signer's ed25519 public key.
func (s Signer) PublicKey() ed25519.PublicKey {
	out := make(ed25519.PublicKey, len(s.pub))
	copy(out, s.pub)
	return out
}

func (s Signer) String() string {
	return fmt.Sprintf("signer[%d] %s", s.Index, s.Address)
}

// Dev returns n deterministic signers in the default namespace.
func Dev(n int) []Signer {
	return Derive(DefaultNamespace, n)
}

// Derive returns n deterministic signers for the namespace. The same
// namespace and index always yield the same address. A negative n yields
// no signers.
func Derive(namespace string, n int) []Signer {
	out := make([]Signer, max(n, 0))
	for i := range out {
		out[i] = derive(namespace, i)
	}
	return out
}

func derive(namespace string, index int) Signer {
	buf := make([]byte, len(namespace)+8)
	copy(buf, namespace)
	binary.BigEndian.PutUint64(buf[len(namespace):], uint64(index))

	seed := blake2b.Sum256(buf)
	pub := ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey)

	return Signer{
		Index:   index,
		Address: address.FromPublicKey(pub),
		pub:     pub,
	}
}

// Addresses returns the addresses of the given signers in order.
func Addresses(signers []Signer) []address.Address {
	out := make([]address.Address, len(signers))
	for i, s := range signers {
		out[i] = s.Address
	}
	return out
}
