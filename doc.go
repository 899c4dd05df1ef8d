// Package token provides a fixed-supply token ledger for Go applications.
//
// A token is deployed once with a total supply that is credited in full to
// its owner. From then on balances change only through Transfer, which
// either moves the whole amount from the caller to the recipient or fails
// with the revert reason "Not enough tokens" and changes nothing. The sum
// of all balances always equals the total supply.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/token"
//	    "github.com/xraph/token/signer"
//	    "github.com/xraph/token/store/memory"
//	)
//
//	l := token.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	accts := signer.Addresses(signer.Dev(3))
//	owner, alice := accts[0], accts[1]
//
//	tok, err := l.Deploy(ctx, owner, contract.Default())
//
//	// Act as the owner.
//	err = l.Connect(tok.ID, owner).Transfer(ctx, alice, 50)
//
// # Rejections
//
// A rejected transfer returns a *RevertError. Its Error method returns the
// reason unchanged, and it unwraps to a sentinel:
//
//	err := l.Transfer(ctx, tok.ID, alice, owner, 1_000_000)
//	errors.Is(err, token.ErrInsufficientBalance) // true
//	err.Error()                                  // "Not enough tokens"
//
// # Storage
//
// The memory store is the default. store/sqlite, store/postgres and
// store/mongo persist deployments, balances and the transfer journal
// through grove. Every backend applies a transfer's debit and credit as one
// atomic step.
//
// # TypeID
//
// Deployments and journal records use TypeID identifiers:
//
//	tok_01h2xcejqtf2nbrexx3vqjhp41   // Token ID
//	xfer_01h455vb4pex5vsknk084sn02q  // Transfer ID
package token
