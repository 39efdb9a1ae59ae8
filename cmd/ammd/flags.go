package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"ammCore/internal/model"
	"ammCore/internal/tokens"
)

func addPoolFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "pool id (hex)")
	cmd.Flags().StringSlice("pair", nil, "token pair instead of --pool (tokenX,tokenY)")
}

// poolID resolves --pool or --pair.
func poolID(cmd *cobra.Command, a *app) (common.Hash, error) {
	raw, _ := cmd.Flags().GetString("pool")
	pair, _ := cmd.Flags().GetStringSlice("pair")
	switch {
	case raw != "" && len(pair) > 0:
		return common.Hash{}, fmt.Errorf("use either --pool or --pair")
	case raw != "":
		return parseHash(raw)
	case len(pair) == 2:
		x, err := tokens.ParseAddress(pair[0])
		if err != nil {
			return common.Hash{}, err
		}
		y, err := tokens.ParseAddress(pair[1])
		if err != nil {
			return common.Hash{}, err
		}
		return a.svc.PoolIDFor(x, y)
	default:
		return common.Hash{}, fmt.Errorf("--pool or --pair tokenX,tokenY is required")
	}
}

func parseHash(input string) (common.Hash, error) {
	data, err := hexutil.Decode(strings.TrimSpace(input))
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid pool id: %s", input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid pool id length: %s", input)
	}
	return common.BytesToHash(data), nil
}

// amountFlag reads an amount flag. With --decimal the value is a token
// amount scaled by the token's decimals, otherwise it is in base units.
func amountFlag(ctx context.Context, cmd *cobra.Command, a *app, name string, token common.Address) (uint64, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return 0, nil
	}
	decimal, _ := cmd.Flags().GetBool("decimal")
	if !decimal {
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("--%s: %w", name, err)
		}
		return v, nil
	}
	meta, err := a.resolver.Resolve(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	v, err := tokens.ParseAmount(raw, meta.Decimals)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return v, nil
}

// formatted renders units of token for display when --decimal is set.
func formatted(ctx context.Context, cmd *cobra.Command, a *app, token common.Address, units uint64) string {
	if decimal, _ := cmd.Flags().GetBool("decimal"); !decimal {
		return ""
	}
	meta, err := a.resolver.Resolve(ctx, token)
	if err != nil {
		return ""
	}
	return tokens.FormatAmount(units, meta.Decimals)
}

func loadPoolForAmounts(ctx context.Context, cmd *cobra.Command, a *app) (model.Pool, error) {
	id, err := poolID(cmd, a)
	if err != nil {
		return model.Pool{}, err
	}
	return a.svc.GetPoolState(ctx, id)
}
