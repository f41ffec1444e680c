package ports

import (
	"context"

	"github.com/alejandrodnm/predictbt/internal/domain"
)

// RoundCache persiste las rondas ya descargadas entre ejecuciones.
type RoundCache interface {
	// Load devuelve las rondas guardadas. Una cache ausente o corrupta
	// devuelve un slice vacío, no un error.
	Load(ctx context.Context) ([]domain.RoundRecord, error)

	// Save reemplaza el contenido completo de la cache.
	Save(ctx context.Context, rounds []domain.RoundRecord) error

	// Close libera los recursos del backend.
	Close() error
}
