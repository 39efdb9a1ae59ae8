package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePebble   = "pebble"
	StorePostgres = "postgres"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Store            string
	PebbleDir        string
	PGDSN            string
	Journal          string
	LogLevel         string
	FeeBps           uint32
	MinimumLiquidity uint64
	Caller           string
	RPCURL           string
	RPCTimeout       time.Duration
	Tokens           []string
	TokenCacheSize   int
	MaxRetries       int
	RetryBackoff     time.Duration
}

// Load merges config file, environment variables (AMM_ prefix), and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("store", StorePebble)
	v.SetDefault("pebble-dir", "./data/amm")
	v.SetDefault("journal", "./data/events.jsonl")
	v.SetDefault("log-level", "info")
	v.SetDefault("fee-bps", uint32(30))
	v.SetDefault("minimum-liquidity", uint64(0))
	v.SetDefault("rpc-timeout", 10*time.Second)
	v.SetDefault("token-cache-size", 256)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 100*time.Millisecond)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Store:            strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PebbleDir:        v.GetString("pebble-dir"),
		PGDSN:            v.GetString("pg-dsn"),
		Journal:          v.GetString("journal"),
		LogLevel:         v.GetString("log-level"),
		FeeBps:           v.GetUint32("fee-bps"),
		MinimumLiquidity: v.GetUint64("minimum-liquidity"),
		Caller:           v.GetString("caller"),
		RPCURL:           v.GetString("rpc"),
		RPCTimeout:       v.GetDuration("rpc-timeout"),
		Tokens:           getStringSlice(v, "tokens"),
		TokenCacheSize:   v.GetInt("token-cache-size"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected store has what it needs.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePebble:
		if c.PebbleDir == "" {
			return fmt.Errorf("pebble-dir is required for the pebble store")
		}
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q (memory, pebble, postgres)", c.Store)
	}
	if c.FeeBps >= 10_000 {
		return fmt.Errorf("fee-bps must be below 10000, got %d", c.FeeBps)
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
