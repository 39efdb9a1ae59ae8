package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ammCore/internal/model"
)

func TestJournalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	j := NewJournal(path)

	first := model.PoolEvent{Kind: model.EventCreate, PoolID: "0xaa", Timestamp: 1}
	second := model.PoolEvent{Kind: model.EventDeposit, PoolID: "0xaa", AmountA: 400, AmountB: 900, Liquidity: 600,
		ReserveA: 400, ReserveB: 900, LiquiditySupply: 600, Timestamp: 2}
	other := model.PoolEvent{Kind: model.EventCreate, PoolID: "0xbb", Timestamp: 3}

	if err := j.Append(first, second); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := j.Append(other); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	all, err := ReadJournal(path, "")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	filtered, err := ReadJournal(path, "0xaa")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(filtered) != 2 || filtered[1] != second {
		t.Fatalf("unexpected filtered events: %+v", filtered)
	}
}

func TestJournalDisabledAndMissing(t *testing.T) {
	if err := NewJournal("").Append(model.PoolEvent{Kind: model.EventSwap}); err != nil {
		t.Fatalf("disabled journal should discard, got %v", err)
	}
	var nilJournal *Journal
	if err := nilJournal.Append(model.PoolEvent{Kind: model.EventSwap}); err != nil {
		t.Fatalf("nil journal should discard, got %v", err)
	}

	events, err := ReadJournal(filepath.Join(t.TempDir(), "absent.jsonl"), "")
	if err != nil || len(events) != 0 {
		t.Fatalf("expected empty read, got %d err=%v", len(events), err)
	}
}

func TestReadJournalRejectsCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte("{\"kind\":\"swap\"}\n\nnot-json\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := ReadJournal(path, ""); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestJournalConcurrentBatchesStayAdjacent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j := NewJournal(path)

	const writers, batches = 8, 10
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for b := 0; b < batches; b++ {
				ts := uint64(w*batches + b)
				err := j.Append(
					model.PoolEvent{Kind: model.EventDeposit, PoolID: "0xaa", Timestamp: ts},
					model.PoolEvent{Kind: model.EventSwap, PoolID: "0xaa", Timestamp: ts},
				)
				if err != nil {
					t.Errorf("append failed: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	events, err := ReadJournal(path, "")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(events) != 2*writers*batches {
		t.Fatalf("expected %d events, got %d", 2*writers*batches, len(events))
	}
	for i := 0; i < len(events); i += 2 {
		dep, swap := events[i], events[i+1]
		if dep.Kind != model.EventDeposit || swap.Kind != model.EventSwap || dep.Timestamp != swap.Timestamp {
			t.Fatalf("batch split at line %d: %+v %+v", i+1, dep, swap)
		}
	}
}
