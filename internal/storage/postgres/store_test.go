package postgres

import (
	"context"
	"os"
	"testing"

	"ammCore/internal/storage"
	"ammCore/internal/storage/storagetest"
)

func TestStoreConformance(t *testing.T) {
	dsn := os.Getenv("AMM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("AMM_TEST_PG_DSN not set")
	}
	ctx := context.Background()

	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := NewStore(ctx, dsn)
		if err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate failed: %v", err)
		}
		if err := s.Reset(ctx); err != nil {
			t.Fatalf("reset failed: %v", err)
		}
		return s
	})
}
