// Package sink persists crawl output artifacts to the local filesystem.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Snapshot writes run-state overviews as JSON files, overwriting the
// previous snapshot for the same key on every save.
type Snapshot struct {
	dir string
	mu  sync.Mutex
}

func NewSnapshot(dir string) (*Snapshot, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Snapshot{dir: dir}, nil
}

func (s *Snapshot) Save(key string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.Path(key), data, 0o644)
}

func (s *Snapshot) Path(key string) string {
	return filepath.Join(s.dir, "overview_"+key+".json")
}
