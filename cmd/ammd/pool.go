package main

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"ammCore/internal/amm"
	"ammCore/internal/model"
	"ammCore/internal/tokens"
)

func newPoolCmd() *cobra.Command {
	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Create and inspect pools",
	}

	createCmd := &cobra.Command{
		Use:   "create <tokenX> <tokenY>",
		Short: "Create the pool for a token pair, or return the existing one",
		Args:  cobra.ExactArgs(2),
		RunE:  runPoolCreate,
	}
	createCmd.Flags().Uint32("fee-bps", 30, "fee rate in basis points, fixed at creation")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a pool and its positions",
		RunE:  runPoolShow,
	}
	addPoolFlags(showCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all pools",
		RunE:  runPoolList,
	}

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Clear the halted flag of an audited pool",
		RunE:  runPoolResume,
	}
	addPoolFlags(resumeCmd)

	poolCmd.AddCommand(createCmd, showCmd, listCmd, resumeCmd)
	return poolCmd
}

func runPoolCreate(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		x, err := tokens.ParseAddress(args[0])
		if err != nil {
			return err
		}
		y, err := tokens.ParseAddress(args[1])
		if err != nil {
			return err
		}

		id, created, err := a.svc.CreateOrGetPool(ctx, x, y, a.cfg.FeeBps)
		if err != nil {
			return err
		}
		pool, err := a.svc.GetPoolState(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), struct {
			Created bool       `json:"created"`
			Pool    model.Pool `json:"pool"`
		}{created, pool})
	})
}

func runPoolShow(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		id, err := poolID(cmd, a)
		if err != nil {
			return err
		}
		pool, err := a.svc.GetPoolState(ctx, id)
		if err != nil {
			return err
		}
		positions, err := a.svc.ListPositions(ctx, id)
		if err != nil {
			return err
		}
		if positions == nil {
			positions = []model.LiquidityPosition{}
		}
		return printJSON(cmd.OutOrStdout(), struct {
			Pool      model.Pool                `json:"pool"`
			State     string                    `json:"state"`
			Positions []model.LiquidityPosition `json:"positions"`
		}{pool, poolState(pool), positions})
	})
}

func runPoolList(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		pools, err := a.svc.ListPools(ctx)
		if err != nil {
			return err
		}
		if pools == nil {
			pools = []model.Pool{}
		}
		return printJSON(cmd.OutOrStdout(), pools)
	})
}

func runPoolResume(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		id, err := poolID(cmd, a)
		if err != nil {
			return err
		}
		operator := common.Address{}
		if a.cfg.Caller != "" {
			if operator, err = a.callerAddress(); err != nil {
				return err
			}
		}
		pool, err := a.svc.ResumePool(ctx, id, operator)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), pool)
	})
}

func poolState(p model.Pool) string {
	if p.Halted {
		return "halted"
	}
	return string(amm.PoolState(p))
}
