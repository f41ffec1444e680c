package rounds

// repository.go: cache local de rondas + refresco incremental desde el ledger.
//
// Flujo de Load:
//  1. Leer la cache persistida (ausente/corrupta = vacía).
//  2. startEpoch = max(maxCacheado, MinEpoch).
//  3. Si currentEpoch - startEpoch < StaleThreshold, devolver la cache tal cual.
//  4. Si no, pedir los epochs que faltan en [startEpoch, currentEpoch-1).
//     currentEpoch está abierta y currentEpoch-1 bloqueada sin cerrar.
//  5. Mezclar (lo recién descargado gana), ordenar, persistir y devolver.
//
// Forma del fan-out: lotes de BatchSize epochs, agrupados de GroupSize en
// GroupSize. Todos los grupos corren en paralelo; dentro de un grupo los lotes
// van de uno en uno; dentro de un lote todos los epochs van en paralelo.
// Eso acota la concurrencia por lote pero no la total. MaxInFlight > 0 añade
// un semáforo que sí la acota, sin cambiar el resultado.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/alejandrodnm/predictbt/internal/ports"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Config controla el refresco. Valores cero usan DefaultConfig.
type Config struct {
	MinEpoch       int64
	StaleThreshold int64
	BatchSize      int
	GroupSize      int
	MaxInFlight    int64 // 0 = sin tope global
	FetchTimeout   time.Duration
}

// DefaultConfig devuelve los parámetros habituales.
func DefaultConfig() Config {
	return Config{
		MinEpoch:       100,
		StaleThreshold: 10,
		BatchSize:      100,
		GroupSize:      10,
		FetchTimeout:   10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinEpoch <= 0 {
		c.MinEpoch = d.MinEpoch
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = d.StaleThreshold
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.GroupSize <= 0 {
		c.GroupSize = d.GroupSize
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	return c
}

// RefreshStats resume lo que hizo un Load.
type RefreshStats struct {
	Cached       int   // rondas leídas de la cache
	CurrentEpoch int64 // 0 si no se pudo consultar
	StartEpoch   int64
	Skipped      bool // no se refrescó (umbral o ledger caído)
	Requested    int  // epochs pedidos al ledger
	Fetched      int  // rondas válidas descargadas
	Dropped      int  // fallos de red/derivación/timeout
	Total        int  // rondas devueltas
	Duration     time.Duration
}

// Repository es el Round Repository: combina cache persistida y ledger.
type Repository struct {
	ledger ports.LedgerQuery
	cache  ports.RoundCache
	cfg    Config
	sem    *semaphore.Weighted
}

// New crea un repositorio. El ledger y la cache se inyectan; no hay estado global.
func New(ledger ports.LedgerQuery, cache ports.RoundCache, cfg Config) *Repository {
	cfg = cfg.withDefaults()
	r := &Repository{ledger: ledger, cache: cache, cfg: cfg}
	if cfg.MaxInFlight > 0 {
		r.sem = semaphore.NewWeighted(cfg.MaxInFlight)
	}
	return r
}

// Load devuelve la secuencia de rondas ordenada por epoch, refrescando la
// cache si hace falta. Solo falla si ctx se cancela durante la descarga.
func (r *Repository) Load(ctx context.Context) ([]domain.RoundRecord, RefreshStats, error) {
	began := time.Now()
	var stats RefreshStats

	cached, err := r.cache.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, stats, fmt.Errorf("rounds.Load: load cache: %w", err)
		}
		slog.Warn("rounds: cache unreadable, starting empty", "err", err)
		cached = nil
	}
	cached = mergeRounds(cached, nil)
	stats.Cached = len(cached)

	start := r.cfg.MinEpoch
	if n := len(cached); n > 0 && cached[n-1].Epoch > start {
		start = cached[n-1].Epoch
	}
	stats.StartEpoch = start

	current, err := r.ledger.CurrentEpoch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, stats, fmt.Errorf("rounds.Load: current epoch: %w", err)
		}
		slog.Warn("rounds: ledger unavailable, using cache only", "err", err)
		stats.Skipped = true
		return cached, stats.finish(cached, began), nil
	}
	stats.CurrentEpoch = current

	if current-start < r.cfg.StaleThreshold {
		slog.Debug("rounds: cache is fresh enough", "start_epoch", start, "current_epoch", current)
		stats.Skipped = true
		return cached, stats.finish(cached, began), nil
	}

	missing := missingEpochs(cached, start, current-1)
	stats.Requested = len(missing)

	fresh, err := r.fetchAll(ctx, missing)
	if err != nil {
		return nil, stats, fmt.Errorf("rounds.Load: %w", err)
	}
	stats.Fetched = len(fresh)
	stats.Dropped = len(missing) - len(fresh)

	merged := mergeRounds(cached, fresh)
	if len(fresh) > 0 {
		if err := r.cache.Save(ctx, merged); err != nil {
			slog.Warn("rounds: could not persist cache", "err", err)
		}
	}

	stats = stats.finish(merged, began)
	slog.Info("rounds: refresh complete",
		"cached", stats.Cached,
		"requested", stats.Requested,
		"fetched", stats.Fetched,
		"dropped", stats.Dropped,
		"total", stats.Total,
		"duration", stats.Duration.Round(time.Millisecond),
	)
	return merged, stats, nil
}

func (s RefreshStats) finish(rounds []domain.RoundRecord, began time.Time) RefreshStats {
	s.Total = len(rounds)
	s.Duration = time.Since(began)
	return s
}

// fetchAll descarga los epochs con la forma grupo → lote → epoch.
func (r *Repository) fetchAll(ctx context.Context, epochs []int64) ([]domain.RoundRecord, error) {
	if len(epochs) == 0 {
		return nil, nil
	}

	batches := chunk(epochs, r.cfg.BatchSize)
	groups := chunk(batches, r.cfg.GroupSize)

	var (
		mu    sync.Mutex
		fresh = make([]domain.RoundRecord, 0, len(epochs))
	)
	collect := func(rec domain.RoundRecord) {
		mu.Lock()
		fresh = append(fresh, rec)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			for _, batch := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				r.fetchBatch(gctx, batch, collect)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fresh, nil
}

// fetchBatch lanza todos los epochs del lote a la vez y espera a que terminen.
func (r *Repository) fetchBatch(ctx context.Context, batch []int64, collect func(domain.RoundRecord)) {
	var wg sync.WaitGroup
	for _, epoch := range batch {
		epoch := epoch
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := r.fetchOne(ctx, epoch)
			if err != nil {
				slog.Debug("rounds: dropping epoch", "epoch", epoch, "err", err)
				return
			}
			collect(rec)
		}()
	}
	wg.Wait()
}

// fetchOne pide una ronda con timeout propio y la deriva. Cualquier error
// (red, timeout, pool vacío) descarta la ronda; no hay reintentos.
func (r *Repository) fetchOne(ctx context.Context, epoch int64) (domain.RoundRecord, error) {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return domain.RoundRecord{}, err
		}
		defer r.sem.Release(1)
	}

	fctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	raw, err := r.ledger.Round(fctx, epoch)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.RoundRecord{}, fmt.Errorf("fetch timed out after %s: %w", r.cfg.FetchTimeout, err)
		}
		return domain.RoundRecord{}, err
	}
	if raw.Epoch != epoch {
		return domain.RoundRecord{}, fmt.Errorf("ledger returned epoch %d: %w", raw.Epoch, domain.ErrMalformedRound)
	}
	return domain.DeriveRound(raw)
}

// missingEpochs devuelve los epochs de [from, to) que no están en la cache.
func missingEpochs(cached []domain.RoundRecord, from, to int64) []int64 {
	have := make(map[int64]struct{}, len(cached))
	for _, c := range cached {
		have[c.Epoch] = struct{}{}
	}
	var out []int64
	for e := from; e < to; e++ {
		if _, ok := have[e]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// mergeRounds une base y fresh sin duplicados; fresh gana. Resultado ordenado.
func mergeRounds(base, fresh []domain.RoundRecord) []domain.RoundRecord {
	byEpoch := make(map[int64]domain.RoundRecord, len(base)+len(fresh))
	for _, r := range base {
		byEpoch[r.Epoch] = r
	}
	for _, r := range fresh {
		byEpoch[r.Epoch] = r
	}
	out := make([]domain.RoundRecord, 0, len(byEpoch))
	for _, r := range byEpoch {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Epoch < out[j].Epoch })
	return out
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
