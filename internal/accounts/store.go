// Package accounts holds the connected-account cache and the status
// reconciliation between that cache and the Unipile listing.
package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pysugar/oauth-connect/internal/providers"
)

// StatusConnected is the only record status treated as connected.
const StatusConnected = "connected"

// Record is the last known connection for one provider.
type Record struct {
	Provider  providers.UpstreamID `json:"provider"`
	AccountID string               `json:"accountId"`
	Status    string               `json:"status"`
	Email     string               `json:"email,omitempty"`
	Username  string               `json:"username,omitempty"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Entry pairs a record with its dashboard key.
type Entry struct {
	Key    providers.Key
	Record Record
}

// Store caches one record per dashboard key. It is advisory: the upstream
// listing remains the source of truth.
type Store interface {
	Upsert(ctx context.Context, key providers.Key, record Record) error
	// Remove reports whether a record was present.
	Remove(ctx context.Context, key providers.Key) (bool, error)
	Get(ctx context.Context, key providers.Key) (Record, bool, error)
	// Entries returns all records ordered by key.
	Entries(ctx context.Context) ([]Entry, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[providers.Key]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[providers.Key]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Upsert(_ context.Context, key providers.Key, record Record) error {
	record.UpdatedAt = s.now()
	s.mu.Lock()
	s.records[key] = record
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key providers.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	delete(s.records, key)
	return ok, nil
}

func (s *MemoryStore) Get(_ context.Context, key providers.Key) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	return record, ok, nil
}

func (s *MemoryStore) Entries(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.records))
	for key, record := range s.records {
		entries = append(entries, Entry{Key: key, Record: record})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}
