package main

import (
	"context"

	"github.com/spf13/cobra"

	"ammCore/internal/exchange"
	"ammCore/internal/fixedpoint"
	"ammCore/internal/tokens"
)

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Add liquidity to a pool",
		RunE:  runDeposit,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("amount-a", "", "desired amount of token A")
	cmd.Flags().String("amount-b", "", "desired amount of token B")
	cmd.Flags().Uint64("min-liquidity", 0, "minimum liquidity units to mint")
	cmd.Flags().Bool("decimal", false, "amounts are decimal token amounts")
	cmd.MarkFlagRequired("amount-a")
	cmd.MarkFlagRequired("amount-b")
	return cmd
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Burn liquidity units for the underlying tokens",
		RunE:  runWithdraw,
	}
	addPoolFlags(cmd)
	cmd.Flags().Uint64("liquidity", 0, "liquidity units to burn")
	cmd.Flags().String("min-a", "", "minimum amount of token A out")
	cmd.Flags().String("min-b", "", "minimum amount of token B out")
	cmd.Flags().Bool("decimal", false, "minimums are decimal token amounts")
	cmd.MarkFlagRequired("liquidity")
	return cmd
}

func newPositionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Show a liquidity position",
		RunE:  runPosition,
	}
	addPoolFlags(cmd)
	cmd.Flags().String("owner", "", "position owner (defaults to --caller)")
	return cmd
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		caller, err := a.callerAddress()
		if err != nil {
			return err
		}
		pool, err := loadPoolForAmounts(ctx, cmd, a)
		if err != nil {
			return err
		}
		amountA, err := amountFlag(ctx, cmd, a, "amount-a", pool.TokenA)
		if err != nil {
			return err
		}
		amountB, err := amountFlag(ctx, cmd, a, "amount-b", pool.TokenB)
		if err != nil {
			return err
		}
		minLiquidity, _ := cmd.Flags().GetUint64("min-liquidity")

		res, err := a.svc.Deposit(ctx, pool.ID, caller, amountA, amountB, minLiquidity)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), struct {
			exchange.DepositResult
			AmountADecimal string `json:"amount_a_used_decimal,omitempty"`
			AmountBDecimal string `json:"amount_b_used_decimal,omitempty"`
		}{
			res,
			formatted(ctx, cmd, a, pool.TokenA, res.AmountA),
			formatted(ctx, cmd, a, pool.TokenB, res.AmountB),
		})
	})
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		caller, err := a.callerAddress()
		if err != nil {
			return err
		}
		pool, err := loadPoolForAmounts(ctx, cmd, a)
		if err != nil {
			return err
		}
		liquidity, _ := cmd.Flags().GetUint64("liquidity")
		minA, err := amountFlag(ctx, cmd, a, "min-a", pool.TokenA)
		if err != nil {
			return err
		}
		minB, err := amountFlag(ctx, cmd, a, "min-b", pool.TokenB)
		if err != nil {
			return err
		}

		res, err := a.svc.Withdraw(ctx, pool.ID, caller, liquidity, minA, minB)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), struct {
			exchange.WithdrawResult
			AmountADecimal string `json:"amount_a_out_decimal,omitempty"`
			AmountBDecimal string `json:"amount_b_out_decimal,omitempty"`
		}{
			res,
			formatted(ctx, cmd, a, pool.TokenA, res.AmountA),
			formatted(ctx, cmd, a, pool.TokenB, res.AmountB),
		})
	})
}

func runPosition(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		id, err := poolID(cmd, a)
		if err != nil {
			return err
		}
		ownerRaw, _ := cmd.Flags().GetString("owner")
		if ownerRaw == "" {
			ownerRaw = a.cfg.Caller
		}
		owner, err := tokens.ParseAddress(ownerRaw)
		if err != nil {
			return err
		}

		pos, err := a.svc.GetPosition(ctx, id, owner)
		if err != nil {
			return err
		}
		pool, err := a.svc.GetPoolState(ctx, id)
		if err != nil {
			return err
		}
		var shareBps uint64
		if pool.LiquiditySupply > 0 {
			if shareBps, err = fixedpoint.MulDiv(pos.Units, fixedpoint.BpsDenominator, pool.LiquiditySupply); err != nil {
				return err
			}
		}
		return printJSON(cmd.OutOrStdout(), struct {
			PoolID   string `json:"pool_id"`
			Owner    string `json:"owner"`
			Units    uint64 `json:"units"`
			Supply   uint64 `json:"liquidity_supply"`
			ShareBps uint64 `json:"share_bps"`
		}{pool.ID.Hex(), owner.Hex(), pos.Units, pool.LiquiditySupply, shareBps})
	})
}
