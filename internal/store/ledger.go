// Package store persists the dedup ledger and the monitored-account cache.
//
// The ledger is the only durable state the pipeline owns: a set of
// content-addressed item identifiers plus a cached account list with a
// freshness timestamp. It is loaded once per run, mutated in memory and
// saved back through the Store interface; single-writer discipline is the
// caller's responsibility.
package store

import (
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"time"

	"tweetwatch/internal/domain"
)

// Store loads and saves ledger state. A missing backing file on Load means
// cold start: nothing pre-seen, no cached accounts.
type Store interface {
	Load() (*Ledger, error)
	Save(*Ledger) error
}

// Ledger is the in-memory ledger state for one run.
type Ledger struct {
	seenIDs          map[string]struct{}
	accounts         []domain.Account
	accountFetchedAt time.Time
}

// NewLedger returns an empty cold-start ledger.
func NewLedger() *Ledger {
	return &Ledger{seenIDs: make(map[string]struct{})}
}

// HashID content-addresses an item identifier.
func HashID(id string) string {
	sum := md5.Sum([]byte(id)) //nolint:gosec

	return hex.EncodeToString(sum[:])
}

// IsSeen reports whether the item ID was marked in any prior run.
func (l *Ledger) IsSeen(id string) bool {
	_, ok := l.seenIDs[HashID(id)]

	return ok
}

// MarkSeen records an item ID. Idempotent: marking twice equals once.
func (l *Ledger) MarkSeen(id string) {
	l.seenIDs[HashID(id)] = struct{}{}
}

// SeenCount returns the number of distinct seen identifiers.
func (l *Ledger) SeenCount() int {
	return len(l.seenIDs)
}

// CachedAccounts returns the cached account list when it is still fresh.
func (l *Ledger) CachedAccounts(now time.Time, ttl time.Duration) ([]domain.Account, bool) {
	if len(l.accounts) == 0 || l.accountFetchedAt.IsZero() {
		return nil, false
	}

	if ttl > 0 && now.Sub(l.accountFetchedAt) >= ttl {
		return nil, false
	}

	return l.accounts, true
}

// SetAccountCache replaces the cached account list.
func (l *Ledger) SetAccountCache(accounts []domain.Account, fetchedAt time.Time) {
	l.accounts = accounts
	l.accountFetchedAt = fetchedAt
}
