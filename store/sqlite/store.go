package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/token"
	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	tokenstore "github.com/xraph/token/store"
	"github.com/xraph/token/transfer"
)

// compile-time interface check
var _ tokenstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("token/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("token/sqlite: %w: %w", token.ErrMigrationFailed, err)
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

// CreateToken records t and credits its owner. The owner row is written
// first; its primary key rejects a replayed token ID before anything else
// is touched.
func (s *Store) CreateToken(ctx context.Context, t *contract.Token) error {
	if err := checkUnits("total_supply", t.TotalSupply); err != nil {
		return err
	}

	m := toTokenModel(t)
	res, err := s.sdb.NewInsert(&balanceModel{
		TokenID:   m.ID,
		Account:   m.Owner,
		Balance:   m.TotalSupply,
		UpdatedAt: m.CreatedAt,
	}).
		OnConflict("(token_id, account) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return token.ErrAlreadyExists
	}

	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		// Undo the owner credit so no orphaned balance remains.
		undo := s.sdb.NewDelete((*balanceModel)(nil)).Where("token_id = ?", m.ID)
		_, _ = undo.Exec(ctx) //nolint:errcheck // best-effort rollback
		return fmt.Errorf("token/sqlite: create token: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenID id.TokenID) (*contract.Token, error) {
	m := new(tokenModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", tokenID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, token.ErrTokenNotFound
		}
		return nil, err
	}
	return fromTokenModel(m)
}

func (s *Store) ListTokens(ctx context.Context, opts contract.ListOpts) ([]*contract.Token, error) {
	var models []tokenModel
	q := s.sdb.NewSelect(&models)

	if !opts.Owner.IsZero() {
		q = q.Where("owner = ?", opts.Owner.Hex())
	}
	if opts.Symbol != "" {
		q = q.Where("symbol = ?", opts.Symbol)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	m := new(balanceModel)
	err := s.sdb.NewSelect(m).
		Where("token_id = ?", tokenID.String()).
		Where("account = ?", account.Hex()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			if _, err := s.GetToken(ctx, tokenID); err != nil {
				return 0, err
			}
			return 0, nil
		}
		return 0, err
	}
	return uint64(m.Balance), nil //nolint:gosec // CHECK (balance >= 0)
}

func (s *Store) Balances(ctx context.Context, tokenID id.TokenID) (map[address.Address]uint64, error) {
	if _, err := s.GetToken(ctx, tokenID); err != nil {
		return nil, err
	}

	var models []balanceModel
	err := s.sdb.NewSelect(&models).
		Where("token_id = ?", tokenID.String()).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[address.Address]uint64, len(models))
	for _, m := range models {
		acct, err := address.Parse(m.Account)
		if err != nil {
			return nil, err
		}
		result[acct] = uint64(m.Balance) //nolint:gosec // CHECK (balance >= 0)
	}
	return result, nil
}

// Move debits from and credits to in one UPDATE. The statement only
// matches when the sender's current balance covers amount, so a short
// balance changes no rows.
func (s *Store) Move(ctx context.Context, tokenID id.TokenID, from, to address.Address, amount uint64) error {
	if _, err := s.GetToken(ctx, tokenID); err != nil {
		return err
	}
	if amount > math.MaxInt64 {
		return insufficient(from, amount)
	}
	if from == to {
		bal, err := s.Balance(ctx, tokenID, from)
		if err != nil {
			return err
		}
		if bal < amount {
			return insufficient(from, amount)
		}
		return nil
	}

	ts := now()
	_, err := s.sdb.NewInsert(&balanceModel{
		TokenID:   tokenID.String(),
		Account:   to.Hex(),
		UpdatedAt: ts,
	}).
		OnConflict("(token_id, account) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}

	amt := int64(amount)
	res, err := s.sdb.NewUpdate((*balanceModel)(nil)).
		Set("balance = CASE WHEN account = ? THEN balance - ? ELSE balance + ? END", from.Hex(), amt, amt).
		Set("updated_at = ?", ts).
		Where("token_id = ?", tokenID.String()).
		Where("account IN (?, ?)", from.Hex(), to.Hex()).
		Where("COALESCE((SELECT b.balance FROM token_balances AS b WHERE b.token_id = ? AND b.account = ?), 0) >= ?",
			tokenID.String(), from.Hex(), amt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("token/sqlite: move: %w: %w", token.ErrTransactionFailed, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return insufficient(from, amount)
	}
	return nil
}

// ==================== Journal Store ====================

func (s *Store) RecordTransfers(ctx context.Context, recs []*transfer.Record) error {
	if len(recs) == 0 {
		return nil
	}
	models := make([]transferModel, len(recs))
	for i, r := range recs {
		models[i] = *toTransferModel(r)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) QueryTransfers(ctx context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Record, error) {
	var models []transferModel
	q := s.sdb.NewSelect(&models).
		Where("token_id = ?", tokenID.String())

	if !opts.Account.IsZero() {
		q = q.Where("(from_account = ? OR to_account = ?)", opts.Account.Hex(), opts.Account.Hex())
	}
	if !opts.Start.IsZero() {
		q = q.Where("timestamp >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("timestamp <= ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("timestamp DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// checkUnits rejects quantities that do not fit a signed INTEGER column.
func checkUnits(field string, v uint64) error {
	if v > math.MaxInt64 {
		return token.ValidationError{Field: field, Message: "exceeds the largest storable quantity"}
	}
	return nil
}

func insufficient(from address.Address, amount uint64) error {
	return fmt.Errorf("token/sqlite: move %d from %s: %w", amount, from, token.ErrInsufficientBalance)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
