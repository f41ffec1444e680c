package ports

import (
	"context"

	"github.com/alejandrodnm/predictbt/internal/domain"
)

// LedgerQuery lee rondas del contrato de predicción.
// Implementaciones: onchain.PredictionClient (RPC real) y fixture.Ledger (tests, dry-run).
type LedgerQuery interface {
	// CurrentEpoch devuelve la ronda abierta en este momento.
	CurrentEpoch(ctx context.Context) (int64, error)

	// Round devuelve los datos crudos de una ronda. Un error implica que la
	// ronda se descarta; no se reintenta.
	Round(ctx context.Context, epoch int64) (domain.RawRound, error)
}
