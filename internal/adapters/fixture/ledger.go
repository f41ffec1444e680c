package fixture

// ledger.go: ledger determinista en memoria.
//
// Sirve para --dry-run (rondas desde un JSON en disco) y como fake del
// contrato en los tests del repositorio. Es seguro para uso concurrente.

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/alejandrodnm/predictbt/internal/domain"
)

// File es el formato del fichero de fixtures.
type File struct {
	CurrentEpoch int64             `json:"currentEpoch"`
	Rounds       []domain.RawRound `json:"rounds"`
}

// Ledger implementa ports.LedgerQuery sobre un mapa de rondas.
type Ledger struct {
	mu         sync.Mutex
	current    int64
	rounds     map[int64]domain.RawRound
	failing    map[int64]error
	epochErr   error
	roundCalls map[int64]int
}

// NewLedger crea un ledger con la ronda abierta current y las rondas dadas.
func NewLedger(current int64, rounds ...domain.RawRound) *Ledger {
	l := &Ledger{
		current:    current,
		rounds:     make(map[int64]domain.RawRound, len(rounds)),
		failing:    make(map[int64]error),
		roundCalls: make(map[int64]int),
	}
	for _, r := range rounds {
		l.rounds[r.Epoch] = r
	}
	return l
}

// LoadFile lee un fichero de fixtures JSON.
func LoadFile(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture.LoadFile: read %q: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture.LoadFile: parse %q: %w", path, err)
	}
	if f.CurrentEpoch <= 0 {
		return nil, fmt.Errorf("fixture.LoadFile: %q: currentEpoch must be positive", path)
	}
	return NewLedger(f.CurrentEpoch, f.Rounds...), nil
}

// CurrentEpoch implementa ports.LedgerQuery.
func (l *Ledger) CurrentEpoch(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.epochErr != nil {
		return 0, l.epochErr
	}
	return l.current, nil
}

// Round implementa ports.LedgerQuery.
func (l *Ledger) Round(ctx context.Context, epoch int64) (domain.RawRound, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawRound{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.roundCalls[epoch]++
	if err, ok := l.failing[epoch]; ok {
		return domain.RawRound{}, err
	}
	r, ok := l.rounds[epoch]
	if !ok {
		return domain.RawRound{}, fmt.Errorf("fixture.Round: epoch %d not found", epoch)
	}
	return r, nil
}

// SetCurrent mueve la ronda abierta, simulando el paso del tiempo.
func (l *Ledger) SetCurrent(epoch int64) {
	l.mu.Lock()
	l.current = epoch
	l.mu.Unlock()
}

// Add registra rondas nuevas o reemplaza las existentes.
func (l *Ledger) Add(rounds ...domain.RawRound) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range rounds {
		l.rounds[r.Epoch] = r
	}
}

// FailRound hace que Round(epoch) devuelva err.
func (l *Ledger) FailRound(epoch int64, err error) {
	l.mu.Lock()
	l.failing[epoch] = err
	l.mu.Unlock()
}

// FailCurrentEpoch hace que CurrentEpoch devuelva err (nil lo restaura).
func (l *Ledger) FailCurrentEpoch(err error) {
	l.mu.Lock()
	l.epochErr = err
	l.mu.Unlock()
}

// RoundCalls devuelve cuántas veces se pidió cada epoch.
func (l *Ledger) RoundCalls() map[int64]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[int64]int, len(l.roundCalls))
	for k, v := range l.roundCalls {
		out[k] = v
	}
	return out
}

// TotalRoundCalls suma todas las llamadas a Round.
func (l *Ledger) TotalRoundCalls() int {
	n := 0
	for _, v := range l.RoundCalls() {
		n += v
	}
	return n
}
