package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ammCore/internal/chain"
	"ammCore/internal/config"
	"ammCore/internal/exchange"
	"ammCore/internal/storage"
	pebblestore "ammCore/internal/storage/pebble"
	"ammCore/internal/storage/postgres"
	"ammCore/internal/tokens"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ammd",
		Short:        "Constant-product AMM pool manager",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("store", config.StorePebble, "store backend (memory, pebble, postgres)")
	pf.String("pebble-dir", "./data/amm", "pebble data directory")
	pf.String("pg-dsn", "", "Postgres DSN")
	pf.String("journal", "./data/events.jsonl", "pool event journal (JSONL), empty to disable")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("caller", "", "caller address")
	pf.String("rpc", "", "JSON-RPC URL for token metadata")
	pf.Duration("rpc-timeout", 10*time.Second, "timeout of each RPC call")
	pf.StringSlice("tokens", nil, "static token metadata (address=decimals[:symbol], comma-separated)")
	pf.Int("token-cache-size", 256, "token metadata cache entries")
	pf.Int("max-retries", 3, "store commit retries")
	pf.Duration("retry-backoff", 100*time.Millisecond, "initial store commit retry backoff")
	pf.Uint64("minimum-liquidity", 0, "liquidity units locked on a pool's first deposit")

	root.AddCommand(
		newPoolCmd(),
		newDepositCmd(),
		newWithdrawCmd(),
		newSwapCmd(),
		newQuoteCmd(),
		newPositionCmd(),
		newHistoryCmd(),
		newTokenCmd(),
	)
	return root
}

// app holds the dependencies of one command invocation.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    storage.Store
	journal  *storage.Journal
	svc      *exchange.Service
	resolver *tokens.Resolver
	chain    *chain.Client
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		journal: storage.NewJournal(cfg.Journal),
	}
	a.svc = exchange.NewService(exchange.Config{
		MinimumLiquidity: cfg.MinimumLiquidity,
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
	}, store, a.journal, logger)

	static, err := tokens.ParseTokenSpecs(cfg.Tokens)
	if err != nil {
		a.Close()
		return nil, err
	}
	var caller tokens.ContractCaller
	if cfg.RPCURL != "" {
		a.chain, err = chain.NewClient(ctx, cfg.RPCURL, cfg.RPCTimeout)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		chainID, err := a.chain.ChainID(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("rpc chain id: %w", err)
		}
		logger.Debug("rpc connected", zap.String("chain_id", chainID.String()))
		caller = a.chain
	}
	a.resolver, err = tokens.NewResolver(static, caller, cfg.TokenCacheSize, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Debug("ammd start",
		zap.String("command", cmd.CommandPath()),
		zap.String("store", cfg.Store),
		zap.String("journal", cfg.Journal),
		zap.Int("static_tokens", len(static)),
		zap.Bool("rpc", cfg.RPCURL != ""),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil
	case config.StorePebble:
		return pebblestore.Open(cfg.PebbleDir, nil)
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func (a *app) Close() {
	if a.chain != nil {
		a.chain.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
	}
	a.logger.Sync()
}

// callerAddress returns the configured caller, which write commands require.
func (a *app) callerAddress() (common.Address, error) {
	if a.cfg.Caller == "" {
		return common.Address{}, fmt.Errorf("caller is required (--caller or AMM_CALLER)")
	}
	return tokens.ParseAddress(a.cfg.Caller)
}

// run opens the app, runs fn with a signal-aware context and closes the app.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
