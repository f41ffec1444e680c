package storage

import (
	"context"
	"sync"

	"github.com/alejandrodnm/predictbt/internal/domain"
)

// MemoryCache guarda las rondas en memoria. Se usa con --dry-run y en tests.
type MemoryCache struct {
	mu      sync.Mutex
	rounds  []domain.RoundRecord
	saves   int
	saveErr error
}

// NewMemoryCache crea una cache precargada con rounds.
func NewMemoryCache(rounds ...domain.RoundRecord) *MemoryCache {
	return &MemoryCache{rounds: sortByEpoch(rounds)}
}

func (m *MemoryCache) Load(_ context.Context) ([]domain.RoundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortByEpoch(m.rounds), nil
}

func (m *MemoryCache) Save(_ context.Context, rounds []domain.RoundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rounds = sortByEpoch(rounds)
	m.saves++
	return nil
}

func (m *MemoryCache) Close() error { return nil }

// Saves cuenta los Save exitosos.
func (m *MemoryCache) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailSaves hace que Save devuelva err (nil lo restaura).
func (m *MemoryCache) FailSaves(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}
