// Package exchange is the call surface a host uses to create pools, provide
// and remove liquidity, and swap. Every write runs under the pool's lock as one
// load, compute, commit sequence; a failed operation commits nothing.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammCore/internal/amm"
	"ammCore/internal/fixedpoint"
	"ammCore/internal/model"
	"ammCore/internal/registry"
	"ammCore/internal/storage"
)

// ErrInvalidCaller is returned when an operation has no caller identity.
var ErrInvalidCaller = errors.New("invalid caller")

// Config holds service settings.
type Config struct {
	// MinimumLiquidity is locked in every pool created by the service.
	MinimumLiquidity uint64
	MaxRetries       int
	RetryBackoff     time.Duration
}

// DepositResult is returned by Deposit.
type DepositResult struct {
	amm.DepositResult
	PositionUnits uint64     `json:"position_units"`
	Pool          model.Pool `json:"pool"`
}

// WithdrawResult is returned by Withdraw.
type WithdrawResult struct {
	amm.WithdrawResult
	Pool model.Pool `json:"pool"`
}

// SwapResult is returned by SwapExactIn.
type SwapResult struct {
	amm.Quote
	Pool model.Pool `json:"pool"`
}

// Service executes pool operations against a Store.
type Service struct {
	cfg      Config
	store    storage.Store
	registry *registry.Registry
	journal  *storage.Journal
	logger   *zap.Logger
	now      func() time.Time
}

// NewService builds a Service. journal may be nil.
func NewService(cfg Config, store storage.Store, journal *storage.Journal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		registry: registry.New(store, logger),
		journal:  journal,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOrGetPool returns the id of the pool for the pair and whether this
// call created it. The fee of an existing pool is left unchanged.
func (s *Service) CreateOrGetPool(ctx context.Context, tokenX, tokenY common.Address, feeRateBps uint32) (common.Hash, bool, error) {
	pool, created, err := s.registry.GetOrCreatePool(ctx, tokenX, tokenY, amm.Params{
		FeeRateBps:       feeRateBps,
		MinimumLiquidity: s.cfg.MinimumLiquidity,
	})
	if err != nil {
		return common.Hash{}, false, err
	}
	if created {
		s.record(s.event(model.EventCreate, pool, common.Address{}))
	}
	return pool.ID, created, nil
}

// Deposit adds liquidity from caller and credits the minted units to the
// caller's position.
func (s *Service) Deposit(ctx context.Context, poolID common.Hash, caller common.Address, amountA, amountB, minLiquidityOut uint64) (DepositResult, error) {
	if caller == (common.Address{}) {
		return DepositResult{}, ErrInvalidCaller
	}
	unlock := s.registry.Lock(poolID)
	defer unlock()

	pool, err := s.registry.GetPool(ctx, poolID)
	if err != nil {
		return DepositResult{}, err
	}
	pos, _, err := s.store.LoadPosition(ctx, poolID, caller)
	if err != nil {
		return DepositResult{}, fmt.Errorf("load position: %w", err)
	}

	res, next, err := amm.Deposit(pool, amountA, amountB, minLiquidityOut)
	if err != nil {
		return DepositResult{}, s.reject(ctx, pool, "deposit", caller, err)
	}
	units, err := fixedpoint.Add(pos.Units, res.LiquidityMinted)
	if err != nil {
		return DepositResult{}, s.reject(ctx, pool, "deposit", caller, fmt.Errorf("%w: position units: %w", amm.ErrArithmetic, err))
	}

	next.UpdatedAt = s.now().Unix()
	position := model.LiquidityPosition{PoolID: poolID, Owner: caller, Units: units}
	if err := s.commit(ctx, "deposit", storage.Mutation{Pool: next, Position: &position}); err != nil {
		return DepositResult{}, err
	}

	ev := s.event(model.EventDeposit, next, caller)
	ev.AmountA, ev.AmountB, ev.Liquidity = res.AmountA, res.AmountB, res.LiquidityMinted
	s.record(ev)
	s.logger.Info("deposit",
		zap.String("pool", poolID.Hex()),
		zap.String("caller", caller.Hex()),
		zap.Uint64("amount_a", res.AmountA),
		zap.Uint64("amount_b", res.AmountB),
		zap.Uint64("minted", res.LiquidityMinted),
		zap.Uint64("locked", res.LiquidityLocked),
	)
	return DepositResult{DepositResult: res, PositionUnits: units, Pool: next}, nil
}

// Withdraw burns liquidityIn units of caller's position and pays out the
// proportional reserves.
func (s *Service) Withdraw(ctx context.Context, poolID common.Hash, caller common.Address, liquidityIn, minAmountA, minAmountB uint64) (WithdrawResult, error) {
	if caller == (common.Address{}) {
		return WithdrawResult{}, ErrInvalidCaller
	}
	unlock := s.registry.Lock(poolID)
	defer unlock()

	pool, err := s.registry.GetPool(ctx, poolID)
	if err != nil {
		return WithdrawResult{}, err
	}
	pos, _, err := s.store.LoadPosition(ctx, poolID, caller)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("load position: %w", err)
	}

	res, next, err := amm.Withdraw(pool, pos.Units, liquidityIn, minAmountA, minAmountB)
	if err != nil {
		return WithdrawResult{}, s.reject(ctx, pool, "withdraw", caller, err)
	}

	next.UpdatedAt = s.now().Unix()
	position := model.LiquidityPosition{PoolID: poolID, Owner: caller, Units: res.RemainingUnits}
	if err := s.commit(ctx, "withdraw", storage.Mutation{Pool: next, Position: &position}); err != nil {
		return WithdrawResult{}, err
	}

	ev := s.event(model.EventWithdraw, next, caller)
	ev.AmountA, ev.AmountB, ev.Liquidity = res.AmountA, res.AmountB, res.LiquidityIn
	s.record(ev)
	s.logger.Info("withdraw",
		zap.String("pool", poolID.Hex()),
		zap.String("caller", caller.Hex()),
		zap.Uint64("burned", res.LiquidityIn),
		zap.Uint64("amount_a", res.AmountA),
		zap.Uint64("amount_b", res.AmountB),
	)
	return WithdrawResult{WithdrawResult: res, Pool: next}, nil
}

// SwapExactIn sells amountIn of inputToken to the pool.
func (s *Service) SwapExactIn(ctx context.Context, poolID common.Hash, caller, inputToken common.Address, amountIn, minAmountOut uint64) (SwapResult, error) {
	if caller == (common.Address{}) {
		return SwapResult{}, ErrInvalidCaller
	}
	unlock := s.registry.Lock(poolID)
	defer unlock()

	pool, err := s.registry.GetPool(ctx, poolID)
	if err != nil {
		return SwapResult{}, err
	}

	q, next, err := amm.SwapExactIn(pool, inputToken, amountIn, minAmountOut)
	if err != nil {
		return SwapResult{}, s.reject(ctx, pool, "swap", caller, err)
	}

	next.UpdatedAt = s.now().Unix()
	if err := s.commit(ctx, "swap", storage.Mutation{Pool: next}); err != nil {
		return SwapResult{}, err
	}

	ev := s.event(model.EventSwap, next, caller)
	ev.InputToken = inputToken.Hex()
	ev.AmountIn, ev.AmountOut = q.AmountIn, q.AmountOut
	s.record(ev)
	s.logger.Info("swap",
		zap.String("pool", poolID.Hex()),
		zap.String("caller", caller.Hex()),
		zap.String("input_token", inputToken.Hex()),
		zap.Uint64("amount_in", q.AmountIn),
		zap.Uint64("amount_out", q.AmountOut),
		zap.Uint64("fee", q.Fee),
	)
	return SwapResult{Quote: q, Pool: next}, nil
}

// Quote prices a swap against the current pool state without executing it.
func (s *Service) Quote(ctx context.Context, poolID common.Hash, inputToken common.Address, amountIn uint64) (amm.Quote, error) {
	pool, err := s.registry.GetPool(ctx, poolID)
	if err != nil {
		return amm.Quote{}, err
	}
	return amm.QuoteExactIn(pool, inputToken, amountIn)
}

func (s *Service) GetPoolState(ctx context.Context, poolID common.Hash) (model.Pool, error) {
	return s.registry.GetPool(ctx, poolID)
}

func (s *Service) PoolIDFor(tokenX, tokenY common.Address) (common.Hash, error) {
	return s.registry.PoolIDFor(tokenX, tokenY)
}

func (s *Service) ListPools(ctx context.Context) ([]model.Pool, error) {
	return s.registry.ListPools(ctx)
}

// GetPosition returns owner's position in a pool. An owner without a position
// gets a zero-unit position.
func (s *Service) GetPosition(ctx context.Context, poolID common.Hash, owner common.Address) (model.LiquidityPosition, error) {
	if _, err := s.registry.GetPool(ctx, poolID); err != nil {
		return model.LiquidityPosition{}, err
	}
	pos, ok, err := s.store.LoadPosition(ctx, poolID, owner)
	if err != nil {
		return model.LiquidityPosition{}, fmt.Errorf("load position: %w", err)
	}
	if !ok {
		return model.LiquidityPosition{PoolID: poolID, Owner: owner}, nil
	}
	return pos, nil
}

func (s *Service) ListPositions(ctx context.Context, poolID common.Hash) ([]model.LiquidityPosition, error) {
	if _, err := s.registry.GetPool(ctx, poolID); err != nil {
		return nil, err
	}
	return s.store.ListPositions(ctx, poolID)
}

// ResumePool clears the halted flag of a pool after an operator has audited
// it. A pool whose stored state is still inconsistent stays halted.
func (s *Service) ResumePool(ctx context.Context, poolID common.Hash, operator common.Address) (model.Pool, error) {
	unlock := s.registry.Lock(poolID)
	defer unlock()

	pool, err := s.registry.GetPool(ctx, poolID)
	if err != nil {
		return model.Pool{}, err
	}
	if !pool.Halted {
		return pool, nil
	}
	if err := amm.Validate(pool); err != nil {
		return model.Pool{}, err
	}

	pool.Halted = false
	pool.UpdatedAt = s.now().Unix()
	if err := s.commit(ctx, "resume", storage.Mutation{Pool: pool}); err != nil {
		return model.Pool{}, err
	}
	s.record(s.event(model.EventResume, pool, operator))
	s.logger.Warn("pool resumed", zap.String("pool", poolID.Hex()), zap.String("operator", operator.Hex()))
	return pool, nil
}

// reject handles an engine error. Fatal errors halt the pool; all errors are
// returned unchanged.
func (s *Service) reject(ctx context.Context, pool model.Pool, op string, caller common.Address, err error) error {
	if !amm.IsFatal(err) {
		s.logger.Debug("operation rejected",
			zap.String("op", op),
			zap.String("pool", pool.ID.Hex()),
			zap.String("caller", caller.Hex()),
			zap.Error(err),
		)
		return err
	}

	s.logger.Error("pool halted",
		zap.String("op", op),
		zap.String("pool", pool.ID.Hex()),
		zap.String("caller", caller.Hex()),
		zap.Uint64("reserve_a", pool.ReserveA),
		zap.Uint64("reserve_b", pool.ReserveB),
		zap.Uint64("liquidity_supply", pool.LiquiditySupply),
		zap.Error(err),
	)
	if pool.Halted {
		return err
	}
	pool.Halted = true
	pool.UpdatedAt = s.now().Unix()
	if cerr := s.commit(ctx, "halt", storage.Mutation{Pool: pool}); cerr != nil {
		s.logger.Error("persist halt failed", zap.String("pool", pool.ID.Hex()), zap.Error(cerr))
		return err
	}
	ev := s.event(model.EventHalt, pool, caller)
	ev.Reason = err.Error()
	s.record(ev)
	return err
}

func (s *Service) commit(ctx context.Context, op string, m storage.Mutation) error {
	err := s.withRetry(ctx, op, func(ctx context.Context) error {
		return s.store.Commit(ctx, m)
	})
	if err != nil {
		return fmt.Errorf("commit %s on pool %s: %w", op, m.Pool.ID.Hex(), err)
	}
	return nil
}

func (s *Service) event(kind string, pool model.Pool, caller common.Address) model.PoolEvent {
	now := s.now()
	ev := model.PoolEvent{
		Kind:            kind,
		PoolID:          pool.ID.Hex(),
		ReserveA:        pool.ReserveA,
		ReserveB:        pool.ReserveB,
		LiquiditySupply: pool.LiquiditySupply,
		Timestamp:       uint64(now.Unix()),
		RecordedAt:      now.UTC().Format(time.RFC3339Nano),
	}
	if caller != (common.Address{}) {
		ev.Caller = caller.Hex()
	}
	return ev
}

// record appends to the journal. The operation is already committed, so a
// journal failure is logged and not returned.
func (s *Service) record(ev model.PoolEvent) {
	if err := s.journal.Append(ev); err != nil {
		s.logger.Error("journal append failed",
			zap.String("kind", ev.Kind),
			zap.String("pool", ev.PoolID),
			zap.Error(err),
		)
	}
}
