package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/token"
	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	tokenstore "github.com/xraph/token/store"
	"github.com/xraph/token/transfer"
)

// Collection name constants.
const (
	colTokens    = "token_tokens"
	colTransfers = "token_transfers"
)

// compile-time interface check
var _ tokenstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all token collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("token/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Token Store ====================

func (s *Store) CreateToken(ctx context.Context, t *contract.Token) error {
	if t.TotalSupply > math.MaxInt64 {
		return token.ValidationError{Field: "total_supply", Message: "exceeds the largest storable quantity"}
	}

	m := toTokenModel(t)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return token.ErrAlreadyExists
		}
		return fmt.Errorf("token/mongo: create token: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenID id.TokenID) (*contract.Token, error) {
	m, err := s.findToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return fromTokenModel(m)
}

func (s *Store) ListTokens(ctx context.Context, opts contract.ListOpts) ([]*contract.Token, error) {
	var models []tokenModel

	filter := bson.M{}
	if !opts.Owner.IsZero() {
		filter["owner"] = opts.Owner.Hex()
	}
	if opts.Symbol != "" {
		filter["symbol"] = opts.Symbol
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("token/mongo: list tokens: %w", err)
	}

	result := make([]*contract.Token, len(models))
	for i := range models {
		t, err := fromTokenModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// ==================== Balance Store ====================

func (s *Store) Balance(ctx context.Context, tokenID id.TokenID, account address.Address) (uint64, error) {
	m, err := s.findToken(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	return uint64(m.Balances[account.Hex()]), nil //nolint:gosec // guarded by $gte on every debit
}

func (s *Store) Balances(ctx context.Context, tokenID id.TokenID) (map[address.Address]uint64, error) {
	m, err := s.findToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return fromBalances(m.Balances)
}

// Move applies both sides of the transfer in a single update. The filter
// only matches while the sender's balance covers amount, so a short
// balance matches nothing and writes nothing.
func (s *Store) Move(ctx context.Context, tokenID id.TokenID, from, to address.Address, amount uint64) error {
	bal, err := s.Balance(ctx, tokenID, from)
	if err != nil {
		return err
	}
	if bal < amount {
		return insufficient(from, amount)
	}
	if amount == 0 || from == to {
		return nil
	}

	amt := int64(amount) //nolint:gosec // amount <= bal <= MaxInt64
	fromKey := "balances." + from.Hex()
	toKey := "balances." + to.Hex()

	res, err := s.mdb.NewUpdate((*tokenModel)(nil)).
		Filter(bson.M{
			"_id":   tokenID.String(),
			fromKey: bson.M{"$gte": amt},
		}).
		SetUpdate(bson.M{
			"$inc": bson.M{fromKey: -amt, toKey: amt},
			"$set": bson.M{"updated_at": now()},
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("token/mongo: move: %w: %w", token.ErrTransactionFailed, err)
	}
	if res.MatchedCount() == 0 {
		return insufficient(from, amount)
	}
	return nil
}

// ==================== Journal Store ====================

// RecordTransfers inserts each record on its own, so one failure does not
// drop the rest of the batch. Failures are collected in a token.MultiError.
func (s *Store) RecordTransfers(ctx context.Context, recs []*transfer.Record) error {
	var errs token.MultiError
	for _, r := range recs {
		m := toTransferModel(r)
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if err != nil {
			// Skip duplicates so a replayed batch is harmless
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			errs.Add(fmt.Errorf("token/mongo: record transfer %s: %w", r.ID, err))
		}
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (s *Store) QueryTransfers(ctx context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Record, error) {
	var models []transferModel

	filter := bson.M{"token_id": tokenID.String()}
	if !opts.Account.IsZero() {
		acct := opts.Account.Hex()
		filter["$or"] = bson.A{
			bson.M{"from_account": acct},
			bson.M{"to_account": acct},
		}
	}
	if !opts.Start.IsZero() || !opts.End.IsZero() {
		ts := bson.M{}
		if !opts.Start.IsZero() {
			ts["$gte"] = opts.Start
		}
		if !opts.End.IsZero() {
			ts["$lte"] = opts.End
		}
		filter["timestamp"] = ts
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "timestamp", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("token/mongo: query transfers: %w", err)
	}

	result := make([]*transfer.Record, len(models))
	for i := range models {
		r, err := fromTransferModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

func (s *Store) findToken(ctx context.Context, tokenID id.TokenID) (*tokenModel, error) {
	var m tokenModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tokenID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, token.ErrTokenNotFound
		}
		return nil, fmt.Errorf("token/mongo: get token: %w", err)
	}
	return &m, nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

func insufficient(from address.Address, amount uint64) error {
	return fmt.Errorf("token/mongo: move %d from %s: %w", amount, from, token.ErrInsufficientBalance)
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all token collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTokens: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "symbol", Value: 1}}},
		},
		colTransfers: {
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "from_account", Value: 1}}},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "to_account", Value: 1}}},
			{
				Keys:    bson.D{{Key: "token_id", Value: 1}, {Key: "_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
