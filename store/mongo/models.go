package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	"github.com/xraph/token/transfer"
	"github.com/xraph/token/types"
)

// ==================== Token models ====================

// tokenModel carries the balance table inline, keyed by the account's
// hex form, so deployment and every transfer touch exactly one document.
type tokenModel struct {
	grove.BaseModel `grove:"table:token_tokens"`

	ID          string            `grove:"id,pk"        bson:"_id"`
	Name        string            `grove:"name"         bson:"name"`
	Symbol      string            `grove:"symbol"       bson:"symbol"`
	Decimals    int32             `grove:"decimals"     bson:"decimals"`
	TotalSupply int64             `grove:"total_supply" bson:"total_supply"`
	Owner       string            `grove:"owner"        bson:"owner"`
	Balances    map[string]int64  `grove:"balances"     bson:"balances"`
	Metadata    map[string]string `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt   time.Time         `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"   bson:"updated_at"`
}

func toTokenModel(t *contract.Token) *tokenModel {
	owner := t.Owner.Hex()
	return &tokenModel{
		ID:          t.ID.String(),
		Name:        t.Name,
		Symbol:      t.Symbol,
		Decimals:    int32(t.Decimals),
		TotalSupply: int64(t.TotalSupply), //nolint:gosec // bounded by checkUnits
		Owner:       owner,
		Balances:    map[string]int64{owner: int64(t.TotalSupply)}, //nolint:gosec // bounded by checkUnits
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func fromTokenModel(m *tokenModel) (*contract.Token, error) {
	tokenID, err := id.ParseTokenID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse token id %q: %w", m.ID, err)
	}
	owner, err := address.Parse(m.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner %q: %w", m.Owner, err)
	}

	return &contract.Token{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          tokenID,
		Name:        m.Name,
		Symbol:      m.Symbol,
		Decimals:    uint8(m.Decimals), //nolint:gosec // written from a uint8
		TotalSupply: uint64(m.TotalSupply),
		Owner:       owner,
		Metadata:    m.Metadata,
	}, nil
}

func fromBalances(raw map[string]int64) (map[address.Address]uint64, error) {
	result := make(map[address.Address]uint64, len(raw))
	for key, bal := range raw {
		acct, err := address.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("parse balance key %q: %w", key, err)
		}
		result[acct] = uint64(bal) //nolint:gosec // guarded by $gte on every debit
	}
	return result, nil
}

// ==================== Transfer models ====================

type transferModel struct {
	grove.BaseModel `grove:"table:token_transfers"`

	ID          string    `grove:"id,pk"        bson:"_id"`
	TokenID     string    `grove:"token_id"     bson:"token_id"`
	FromAccount string    `grove:"from_account" bson:"from_account"`
	ToAccount   string    `grove:"to_account"   bson:"to_account"`
	Amount      int64     `grove:"amount"       bson:"amount"`
	Timestamp   time.Time `grove:"timestamp"    bson:"timestamp"`
}

func toTransferModel(r *transfer.Record) *transferModel {
	return &transferModel{
		ID:          r.ID.String(),
		TokenID:     r.TokenID.String(),
		FromAccount: r.From.Hex(),
		ToAccount:   r.To.Hex(),
		Amount:      int64(r.Amount), //nolint:gosec // bounded by total supply
		Timestamp:   r.Timestamp,
	}
}

func fromTransferModel(m *transferModel) (*transfer.Record, error) {
	recID, err := id.ParseTransferID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse transfer id %q: %w", m.ID, err)
	}
	tokenID, err := id.ParseTokenID(m.TokenID)
	if err != nil {
		return nil, fmt.Errorf("parse token id %q: %w", m.TokenID, err)
	}
	from, err := address.Parse(m.FromAccount)
	if err != nil {
		return nil, err
	}
	to, err := address.Parse(m.ToAccount)
	if err != nil {
		return nil, err
	}

	return &transfer.Record{
		ID:        recID,
		TokenID:   tokenID,
		From:      from,
		To:        to,
		Amount:    uint64(m.Amount), //nolint:gosec // never negative
		Timestamp: m.Timestamp,
	}, nil
}
