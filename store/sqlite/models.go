package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	"github.com/xraph/token/transfer"
	"github.com/xraph/token/types"
)

// ==================== Token models ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:token_tokens"`

	ID          string    `grove:"id,pk"`
	Name        string    `grove:"name"`
	Symbol      string    `grove:"symbol"`
	Decimals    int       `grove:"decimals"`
	TotalSupply int64     `grove:"total_supply"`
	Owner       string    `grove:"owner"`
	Metadata    string    `grove:"metadata"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toTokenModel(t *contract.Token) *tokenModel {
	meta, _ := json.Marshal(t.Metadata) //nolint:errcheck // map[string]string always marshals

	return &tokenModel{
		ID:          t.ID.String(),
		Name:        t.Name,
		Symbol:      t.Symbol,
		Decimals:    int(t.Decimals),
		TotalSupply: int64(t.TotalSupply), //nolint:gosec // bounded by checkUnits
		Owner:       t.Owner.Hex(),
		Metadata:    string(meta),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func fromTokenModel(m *tokenModel) (*contract.Token, error) {
	tokenID, err := id.ParseTokenID(m.ID)
	if err != nil {
		return nil, err
	}
	owner, err := address.Parse(m.Owner)
	if err != nil {
		return nil, err
	}

	var meta map[string]string
	if m.Metadata != "" && m.Metadata != "null" {
		if err := json.Unmarshal([]byte(m.Metadata), &meta); err != nil {
			return nil, err
		}
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
		Metadata:    meta,
	}, nil
}

// ==================== Balance models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:token_balances"`

	TokenID   string    `grove:"token_id,pk"`
	Account   string    `grove:"account,pk"`
	Balance   int64     `grove:"balance"`
	UpdatedAt time.Time `grove:"updated_at"`
}

// ==================== Transfer models ====================

type transferModel struct {
	grove.BaseModel `grove:"table:token_transfers"`

	ID          string    `grove:"id,pk"`
	TokenID     string    `grove:"token_id"`
	FromAccount string    `grove:"from_account"`
	ToAccount   string    `grove:"to_account"`
	Amount      int64     `grove:"amount"`
	Timestamp   time.Time `grove:"timestamp"`
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
		return nil, err
	}
	tokenID, err := id.ParseTokenID(m.TokenID)
	if err != nil {
		return nil, err
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
