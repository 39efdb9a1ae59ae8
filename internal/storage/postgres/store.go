package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammCore/internal/model"
	"ammCore/internal/storage"
)

// Schema creates the pool and position tables. Amounts are NUMERIC(20,0) so
// the full uint64 range fits.
const Schema = `
CREATE TABLE IF NOT EXISTS amm_pools (
	id                TEXT PRIMARY KEY,
	token_a           TEXT NOT NULL,
	token_b           TEXT NOT NULL,
	reserve_a         NUMERIC(20,0) NOT NULL,
	reserve_b         NUMERIC(20,0) NOT NULL,
	liquidity_supply  NUMERIC(20,0) NOT NULL,
	fee_rate_bps      INTEGER NOT NULL,
	minimum_liquidity NUMERIC(20,0) NOT NULL,
	halted            BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        BIGINT NOT NULL,
	updated_at        BIGINT NOT NULL,
	UNIQUE (token_a, token_b)
);

CREATE TABLE IF NOT EXISTS amm_positions (
	pool_id TEXT NOT NULL REFERENCES amm_pools(id),
	owner   TEXT NOT NULL,
	units   NUMERIC(20,0) NOT NULL,
	PRIMARY KEY (pool_id, owner)
);
`

const poolColumns = `id, token_a, token_b, reserve_a::text, reserve_b::text, liquidity_supply::text,
	fee_rate_bps, minimum_liquidity::text, halted, created_at, updated_at`

// Store implements storage.Store on Postgres. Each Commit runs in one transaction.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func scanPool(row pgx.Row) (model.Pool, error) {
	var (
		id, tokenA, tokenB               string
		reserveA, reserveB, supply, minL string
		fee                              int32
		p                                model.Pool
	)
	if err := row.Scan(&id, &tokenA, &tokenB, &reserveA, &reserveB, &supply, &fee, &minL,
		&p.Halted, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Pool{}, err
	}
	p.ID = common.HexToHash(id)
	p.TokenA = common.HexToAddress(tokenA)
	p.TokenB = common.HexToAddress(tokenB)
	p.FeeRateBps = uint32(fee)

	var err error
	for _, f := range []struct {
		dst *uint64
		src string
	}{
		{&p.ReserveA, reserveA},
		{&p.ReserveB, reserveB},
		{&p.LiquiditySupply, supply},
		{&p.MinimumLiquidity, minL},
	} {
		if *f.dst, err = strconv.ParseUint(f.src, 10, 64); err != nil {
			return model.Pool{}, fmt.Errorf("parse pool %s amount %q: %w", id, f.src, err)
		}
	}
	return p, nil
}

func (s *Store) LoadPool(ctx context.Context, id common.Hash) (model.Pool, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM amm_pools WHERE id=$1`, id.Hex())
	p, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, err
	}
	return p, true, nil
}

func (s *Store) ListPools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+poolColumns+` FROM amm_pools ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pools, nil
}

func (s *Store) LoadPosition(ctx context.Context, poolID common.Hash, owner common.Address) (model.LiquidityPosition, bool, error) {
	var units string
	row := s.pool.QueryRow(ctx, `SELECT units::text FROM amm_positions WHERE pool_id=$1 AND owner=$2`,
		poolID.Hex(), addressKey(owner))
	if err := row.Scan(&units); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LiquidityPosition{}, false, nil
		}
		return model.LiquidityPosition{}, false, err
	}
	n, err := strconv.ParseUint(units, 10, 64)
	if err != nil {
		return model.LiquidityPosition{}, false, fmt.Errorf("parse units %q: %w", units, err)
	}
	return model.LiquidityPosition{PoolID: poolID, Owner: owner, Units: n}, true, nil
}

func (s *Store) ListPositions(ctx context.Context, poolID common.Hash) ([]model.LiquidityPosition, error) {
	rows, err := s.pool.Query(ctx, `SELECT owner, units::text FROM amm_positions WHERE pool_id=$1 ORDER BY owner COLLATE "C"`,
		poolID.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.LiquidityPosition
	for rows.Next() {
		var owner, units string
		if err := rows.Scan(&owner, &units); err != nil {
			return nil, err
		}
		n, err := strconv.ParseUint(units, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse units %q: %w", units, err)
		}
		positions = append(positions, model.LiquidityPosition{
			PoolID: poolID,
			Owner:  common.HexToAddress(owner),
			Units:  n,
		})
	}
	return positions, rows.Err()
}

func (s *Store) Commit(ctx context.Context, m storage.Mutation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	p := m.Pool
	_, err = tx.Exec(ctx, `
		INSERT INTO amm_pools (
			id, token_a, token_b, reserve_a, reserve_b, liquidity_supply,
			fee_rate_bps, minimum_liquidity, halted, created_at, updated_at
		) VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7, $8::text::numeric, $9, $10, $11)
		ON CONFLICT (id)
		DO UPDATE SET
			reserve_a = EXCLUDED.reserve_a,
			reserve_b = EXCLUDED.reserve_b,
			liquidity_supply = EXCLUDED.liquidity_supply,
			halted = EXCLUDED.halted,
			updated_at = EXCLUDED.updated_at
	`,
		p.ID.Hex(),
		addressKey(p.TokenA),
		addressKey(p.TokenB),
		strconv.FormatUint(p.ReserveA, 10),
		strconv.FormatUint(p.ReserveB, 10),
		strconv.FormatUint(p.LiquiditySupply, 10),
		int32(p.FeeRateBps),
		strconv.FormatUint(p.MinimumLiquidity, 10),
		p.Halted,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}

	if pos := m.Position; pos != nil {
		if pos.Units == 0 {
			_, err = tx.Exec(ctx, `DELETE FROM amm_positions WHERE pool_id=$1 AND owner=$2`,
				pos.PoolID.Hex(), addressKey(pos.Owner))
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO amm_positions (pool_id, owner, units)
				VALUES ($1, $2, $3::text::numeric)
				ON CONFLICT (pool_id, owner) DO UPDATE SET units = EXCLUDED.units
			`, pos.PoolID.Hex(), addressKey(pos.Owner), strconv.FormatUint(pos.Units, 10))
		}
		if err != nil {
			return fmt.Errorf("write position: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// addressKey is the stored form of an address: lowercase hex, so text order
// matches byte order.
func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// Reset removes all rows. Used by tests against a shared database.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE amm_positions, amm_pools`)
	return err
}
