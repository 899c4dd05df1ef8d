package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
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

// moveSQL debits the sender only when its balance covers the amount and
// credits the recipient only when the debit matched. Both writes belong
// to one statement and commit together. It yields the number of credited
// rows: 1 on success, 0 when the balance is short.
const moveSQL = `
WITH debit AS (
    UPDATE token_balances
    SET balance = balance - $1, updated_at = $5
    WHERE token_id = $2 AND account = $3 AND balance >= $1
    RETURNING token_id
), credit AS (
    INSERT INTO token_balances (token_id, account, balance, updated_at)
    SELECT token_id, $4, $1, $5 FROM debit
    ON CONFLICT (token_id, account) DO UPDATE
    SET balance = token_balances.balance + EXCLUDED.balance,
        updated_at = EXCLUDED.updated_at
    RETURNING 1
)
SELECT COUNT(*) FROM credit`

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("token/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("token/postgres: %w: %w", token.ErrMigrationFailed, err)
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
	if err := checkUnits("total_supply", t.TotalSupply); err != nil {
		return err
	}

	m := toTokenModel(t)
	res, err := s.pg.NewInsert(&balanceModel{
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

	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		undo := s.pg.NewDelete((*balanceModel)(nil)).Where("token_id = $1", m.ID)
		_, _ = undo.Exec(ctx) //nolint:errcheck // best-effort rollback
		return fmt.Errorf("token/postgres: create token: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenID id.TokenID) (*contract.Token, error) {
	m := new(tokenModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", tokenID.String()).
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
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.Owner.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("owner = $%d", argIdx), opts.Owner.Hex())
	}
	if opts.Symbol != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("symbol = $%d", argIdx), opts.Symbol)
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
	err := s.pg.NewSelect(m).
		Where("token_id = $1", tokenID.String()).
		Where("account = $2", account.Hex()).
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
	err := s.pg.NewSelect(&models).
		Where("token_id = $1", tokenID.String()).
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

func (s *Store) Move(ctx context.Context, tokenID id.TokenID, from, to address.Address, amount uint64) error {
	if _, err := s.GetToken(ctx, tokenID); err != nil {
		return err
	}
	if amount > math.MaxInt64 {
		return insufficient(from, amount)
	}
	if amount == 0 {
		return nil
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

	var credited int64
	err := s.pg.NewRaw(moveSQL,
		int64(amount), tokenID.String(), from.Hex(), to.Hex(), now(),
	).Scan(ctx, &credited)
	if err != nil {
		return fmt.Errorf("token/postgres: move: %w: %w", token.ErrTransactionFailed, err)
	}
	if credited == 0 {
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
	_, err := s.pg.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) QueryTransfers(ctx context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Record, error) {
	var models []transferModel
	q := s.pg.NewSelect(&models).
		Where("token_id = $1", tokenID.String())

	argIdx := 1
	if !opts.Account.IsZero() {
		q = q.Where(fmt.Sprintf("(from_account = $%d OR to_account = $%d)", argIdx+1, argIdx+2),
			opts.Account.Hex(), opts.Account.Hex())
		argIdx += 2
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp <= $%d", argIdx), opts.End)
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

// checkUnits rejects quantities that do not fit a BIGINT column.
func checkUnits(field string, v uint64) error {
	if v > math.MaxInt64 {
		return token.ValidationError{Field: field, Message: "exceeds the largest storable quantity"}
	}
	return nil
}

func insufficient(from address.Address, amount uint64) error {
	return fmt.Errorf("token/postgres: move %d from %s: %w", amount, from, token.ErrInsufficientBalance)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
