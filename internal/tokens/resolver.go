// Package tokens resolves token metadata and converts between decimal token
// amounts and integer base units.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ammCore/internal/model"
)

// ErrUnknownToken is returned when a token is neither configured nor
// resolvable over RPC.
var ErrUnknownToken = errors.New("unknown token")

const defaultCacheSize = 256

// Resolver looks up token metadata in static configuration first, then in an
// LRU cache, then over RPC.
type Resolver struct {
	static map[common.Address]model.TokenMeta
	caller ContractCaller
	cache  *lru.Cache[common.Address, model.TokenMeta]
	group  singleflight.Group
	logger *zap.Logger
}

// NewResolver builds a Resolver. caller may be nil, in which case only static
// tokens resolve.
func NewResolver(static []model.TokenMeta, caller ContractCaller, cacheSize int, logger *zap.Logger) (*Resolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[common.Address, model.TokenMeta](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}

	r := &Resolver{
		static: make(map[common.Address]model.TokenMeta, len(static)),
		caller: caller,
		cache:  cache,
		logger: logger,
	}
	for _, meta := range static {
		if !common.IsHexAddress(meta.Address) {
			return nil, fmt.Errorf("invalid token address: %s", meta.Address)
		}
		addr := common.HexToAddress(meta.Address)
		meta.Address = addr.Hex()
		r.static[addr] = meta
	}
	return r, nil
}

// Resolve returns the metadata of token.
func (r *Resolver) Resolve(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.static[token]; ok {
		return meta, nil
	}
	if meta, ok := r.cache.Get(token); ok {
		return meta, nil
	}
	if r.caller == nil {
		return model.TokenMeta{}, fmt.Errorf("%w: %s (no rpc configured)", ErrUnknownToken, token.Hex())
	}

	// Concurrent lookups of one token share a single RPC round trip.
	v, err, _ := r.group.Do(token.Hex(), func() (interface{}, error) {
		meta, err := FetchTokenMeta(ctx, r.caller, token)
		if err != nil {
			return nil, err
		}
		r.cache.Add(token, meta)
		r.logger.Debug("token metadata fetched",
			zap.String("token", token.Hex()),
			zap.Uint8("decimals", meta.Decimals),
			zap.String("symbol", meta.Symbol),
		)
		return meta, nil
	})
	if err != nil {
		r.logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		return model.TokenMeta{}, fmt.Errorf("%w: %w", ErrUnknownToken, err)
	}
	return v.(model.TokenMeta), nil
}

// ParseTokenSpecs parses entries of the form address=decimals[:symbol].
func ParseTokenSpecs(inputs []string) ([]model.TokenMeta, error) {
	out := make([]model.TokenMeta, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		addr, rest, ok := strings.Cut(input, "=")
		if !ok {
			return nil, fmt.Errorf("invalid token spec %q: want address=decimals[:symbol]", input)
		}
		addr = strings.TrimSpace(addr)
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid token address: %s", addr)
		}
		decimalsStr, symbol, _ := strings.Cut(rest, ":")
		decimals, err := strconv.ParseUint(strings.TrimSpace(decimalsStr), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid decimals in token spec %q: %w", input, err)
		}
		out = append(out, model.TokenMeta{
			Address:  common.HexToAddress(addr).Hex(),
			Decimals: uint8(decimals),
			Symbol:   strings.TrimSpace(symbol),
		})
	}
	return out, nil
}

// ParseAddress converts a hex string into an address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}
