package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"ammCore/internal/amm"
	"ammCore/internal/exchange"
	"ammCore/internal/tokens"
)

func addSwapFlags(cmd *cobra.Command) {
	addPoolFlags(cmd)
	cmd.Flags().String("token-in", "", "input token address")
	cmd.Flags().String("amount-in", "", "exact input amount")
	cmd.Flags().Bool("decimal", false, "amounts are decimal token amounts")
	cmd.MarkFlagRequired("token-in")
	cmd.MarkFlagRequired("amount-in")
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap an exact input amount",
		RunE:  runSwap,
	}
	addSwapFlags(cmd)
	cmd.Flags().String("min-out", "", "minimum output amount")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price an exact-input swap without executing it",
		RunE:  runQuote,
	}
	addSwapFlags(cmd)
	return cmd
}

// swapTokens returns the input token named by --token-in and the other
// token of the pool.
func swapTokens(cmd *cobra.Command, tokenA, tokenB common.Address) (common.Address, common.Address, error) {
	raw, _ := cmd.Flags().GetString("token-in")
	tokenIn, err := tokens.ParseAddress(raw)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	switch tokenIn {
	case tokenA:
		return tokenA, tokenB, nil
	case tokenB:
		return tokenB, tokenA, nil
	default:
		return common.Address{}, common.Address{}, fmt.Errorf("%w: token %s not in pool", amm.ErrInvalidPair, tokenIn.Hex())
	}
}

func runSwap(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		caller, err := a.callerAddress()
		if err != nil {
			return err
		}
		pool, err := loadPoolForAmounts(ctx, cmd, a)
		if err != nil {
			return err
		}
		tokenIn, tokenOut, err := swapTokens(cmd, pool.TokenA, pool.TokenB)
		if err != nil {
			return err
		}
		amountIn, err := amountFlag(ctx, cmd, a, "amount-in", tokenIn)
		if err != nil {
			return err
		}
		minOut, err := amountFlag(ctx, cmd, a, "min-out", tokenOut)
		if err != nil {
			return err
		}

		res, err := a.svc.SwapExactIn(ctx, pool.ID, caller, tokenIn, amountIn, minOut)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), struct {
			exchange.SwapResult
			AmountOutDecimal string `json:"amount_out_decimal,omitempty"`
		}{res, formatted(ctx, cmd, a, tokenOut, res.AmountOut)})
	})
}

func runQuote(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		pool, err := loadPoolForAmounts(ctx, cmd, a)
		if err != nil {
			return err
		}
		tokenIn, tokenOut, err := swapTokens(cmd, pool.TokenA, pool.TokenB)
		if err != nil {
			return err
		}
		amountIn, err := amountFlag(ctx, cmd, a, "amount-in", tokenIn)
		if err != nil {
			return err
		}

		q, err := a.svc.Quote(ctx, pool.ID, tokenIn, amountIn)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), struct {
			amm.Quote
			AmountOutDecimal string `json:"amount_out_decimal,omitempty"`
		}{q, formatted(ctx, cmd, a, tokenOut, q.AmountOut)})
	})
}
