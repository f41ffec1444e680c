package storage

import (
	"fmt"
	"sort"

	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/alejandrodnm/predictbt/internal/ports"
)

// Backends soportados por Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Open crea la cache indicada por backend en path.
func Open(backend, path string) (ports.RoundCache, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONFileCache(path), nil
	case BackendSQLite:
		return NewSQLiteCache(path)
	case BackendBadger:
		return NewBadgerCache(path)
	case BackendMemory:
		return NewMemoryCache(), nil
	}
	return nil, fmt.Errorf("storage.Open: unknown backend %q", backend)
}

// sortByEpoch devuelve una copia ordenada ascendente por epoch.
func sortByEpoch(rounds []domain.RoundRecord) []domain.RoundRecord {
	out := make([]domain.RoundRecord, len(rounds))
	copy(out, rounds)
	sort.Slice(out, func(i, j int) bool { return out[i].Epoch < out[j].Epoch })
	return out
}
