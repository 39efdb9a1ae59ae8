package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ammCore/internal/model"
	"ammCore/internal/storage"
	"ammCore/internal/tokens"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print journaled pool events",
		RunE:  runHistory,
	}
	cmd.Flags().String("pool", "", "only events of this pool id")
	cmd.Flags().String("kind", "", "only events of this kind (create, deposit, withdraw, swap, halt, resume)")
	cmd.Flags().Int("limit", 0, "print only the last N events")
	return cmd
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <address>",
		Short: "Show token metadata from config or RPC",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
}

func runHistory(cmd *cobra.Command, _ []string) error {
	return run(cmd, func(_ context.Context, a *app) error {
		if a.journal.Path() == "" {
			return fmt.Errorf("journal is disabled")
		}
		pool, _ := cmd.Flags().GetString("pool")
		if pool != "" {
			id, err := parseHash(pool)
			if err != nil {
				return err
			}
			pool = id.Hex()
		}
		events, err := storage.ReadJournal(a.journal.Path(), pool)
		if err != nil {
			return err
		}

		kind, _ := cmd.Flags().GetString("kind")
		filtered := make([]model.PoolEvent, 0, len(events))
		for _, ev := range events {
			if kind == "" || ev.Kind == kind {
				filtered = append(filtered, ev)
			}
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(filtered) > limit {
			filtered = filtered[len(filtered)-limit:]
		}
		return printJSON(cmd.OutOrStdout(), filtered)
	})
}

func runToken(cmd *cobra.Command, args []string) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		token, err := tokens.ParseAddress(args[0])
		if err != nil {
			return err
		}
		meta, err := a.resolver.Resolve(ctx, token)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), meta)
	})
}
