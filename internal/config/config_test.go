package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Store != StorePebble || cfg.PebbleDir != "./data/amm" || cfg.FeeBps != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxRetries != 3 || cfg.RetryBackoff != 100*time.Millisecond || cfg.TokenCacheSize != 256 || cfg.RPCTimeout != 10*time.Second {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "amm.yaml")
	content := "store: memory\nfee-bps: 5\nminimum-liquidity: 1000\ntokens:\n  - 0x00000000000000000000000000000000000000c1=6:USDC\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("AMM_LOG_LEVEL", "debug")
	t.Setenv("AMM_RETRY_BACKOFF", "1s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint32("fee-bps", 30, "")
	flags.String("caller", "", "")
	if err := flags.Parse([]string{"--fee-bps=25", "--caller=0xa11ce00000000000000000000000000000000001"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Store != StoreMemory || cfg.MinimumLiquidity != 1000 {
		t.Fatalf("config file not applied: %+v", cfg)
	}
	if cfg.FeeBps != 25 {
		t.Fatalf("flag should override file, got fee %d", cfg.FeeBps)
	}
	if cfg.LogLevel != "debug" || cfg.RetryBackoff != time.Second {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Caller != "0xa11ce00000000000000000000000000000000001" {
		t.Fatalf("caller flag not applied: %q", cfg.Caller)
	}
	if len(cfg.Tokens) != 1 || cfg.Tokens[0] != "0x00000000000000000000000000000000000000c1=6:USDC" {
		t.Fatalf("unexpected tokens: %v", cfg.Tokens)
	}
}

func TestLoadTokensFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AMM_STORE", "memory")
	t.Setenv("AMM_TOKENS", "0x00000000000000000000000000000000000000c1=6, 0x00000000000000000000000000000000000000b7=18")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.Tokens) != 2 {
		t.Fatalf("unexpected tokens: %v", cfg.Tokens)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"memory", Config{Store: StoreMemory}, true},
		{"pebble without dir", Config{Store: StorePebble}, false},
		{"postgres without dsn", Config{Store: StorePostgres}, false},
		{"postgres", Config{Store: StorePostgres, PGDSN: "postgres://localhost/amm"}, true},
		{"unknown store", Config{Store: "bolt"}, false},
		{"fee too high", Config{Store: StoreMemory, FeeBps: 10_000}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: unexpected result %v", tc.name, err)
		}
	}
}
