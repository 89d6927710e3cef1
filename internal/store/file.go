package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tweetwatch/internal/domain"
)

// ledgerState is the on-disk shape of the state file.
type ledgerState struct {
	SeenIDs               []string         `json:"seen_ids"`
	AccountCache          []domain.Account `json:"account_cache,omitempty"`
	AccountCacheFetchedAt *time.Time       `json:"account_cache_fetched_at,omitempty"`
}

type fileStore struct {
	path string
}

// NewFileStore returns a Store backed by one JSON state file.
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (s *fileStore) Load() (*Ledger, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewLedger(), nil
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state ledgerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	ledger := NewLedger()
	for _, hash := range state.SeenIDs {
		ledger.seenIDs[hash] = struct{}{}
	}

	ledger.accounts = state.AccountCache
	if state.AccountCacheFetchedAt != nil {
		ledger.accountFetchedAt = *state.AccountCacheFetchedAt
	}

	return ledger, nil
}

func (s *fileStore) Save(ledger *Ledger) error {
	state := ledgerState{
		SeenIDs:      make([]string, 0, len(ledger.seenIDs)),
		AccountCache: ledger.accounts,
	}

	for hash := range ledger.seenIDs {
		state.SeenIDs = append(state.SeenIDs, hash)
	}

	if !ledger.accountFetchedAt.IsZero() {
		state.AccountCacheFetchedAt = &ledger.accountFetchedAt
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	// Write-then-rename so a crash never truncates the previous state.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil && filepath.Dir(s.path) != "." {
		return fmt.Errorf("create state dir: %w", err)
	}

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
