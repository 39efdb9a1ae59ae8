package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ammCore/internal/model"
)

// Journal appends committed pool events to a JSONL file. A Journal with an
// empty path discards events.
type Journal struct {
	path string
	mu   sync.Mutex
}

func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Append writes events as JSON lines. The batch is encoded before the file
// is opened and lands in one write, so events of one call stay adjacent.
func (j *Journal) Append(events ...model.PoolEvent) error {
	if j == nil || j.path == "" || len(events) == 0 {
		return nil
	}

	var batch bytes.Buffer
	enc := json.NewEncoder(&batch)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Kind, err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if _, err := file.Write(batch.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("append %d events: %w", len(events), err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}

// ReadJournal returns the events recorded in path, optionally restricted to
// one pool id (hex). A missing file yields no events.
func ReadJournal(path, poolID string) ([]model.PoolEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var events []model.PoolEvent
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev model.PoolEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode journal line %d: %w", lineNo, err)
		}
		if poolID != "" && ev.PoolID != poolID {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return events, nil
}
