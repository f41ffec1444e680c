package engine

// backtest.go: Simulation Engine.
//
// Run valida los settings, obtiene la secuencia de rondas y la pliega sobre
// la strategy en orden ascendente de epoch. El bucle es secuencial: cada
// ronda depende del estado de wallets de la anterior.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/predictbt/internal/application/rounds"
	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/alejandrodnm/predictbt/internal/domain/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundSource entrega la secuencia ordenada de rondas (rounds.Repository).
type RoundSource interface {
	Load(ctx context.Context) ([]domain.RoundRecord, rounds.RefreshStats, error)
}

// Options ajusta el informe generado.
type Options struct {
	Trace bool // incluir una fila por ronda jugada
}

// Engine ejecuta backtests sobre una RoundSource.
type Engine struct {
	source RoundSource
	opts   Options
}

// New crea un Engine.
func New(source RoundSource, opts Options) *Engine {
	return &Engine{source: source, opts: opts}
}

// Run ejecuta una simulación completa. Un error de configuración
// (domain.ErrInvalidSettings) aborta antes de pedir ninguna ronda.
// Quedarse sin capital no es un error: el Report sale con Halted=true.
func (e *Engine) Run(ctx context.Context, settings domain.SimulationSettings) (domain.Report, error) {
	if err := settings.Validate(); err != nil {
		return domain.Report{}, fmt.Errorf("engine.Run: %w", err)
	}

	seq, stats, err := e.source.Load(ctx)
	if err != nil {
		return domain.Report{}, fmt.Errorf("engine.Run: load rounds: %w", err)
	}
	slog.Debug("engine: rounds loaded",
		"total", stats.Total,
		"fetched", stats.Fetched,
		"dropped", stats.Dropped,
		"skipped_refresh", stats.Skipped,
	)

	report, err := Simulate(settings, seq, e.opts.Trace)
	if err != nil {
		return domain.Report{}, fmt.Errorf("engine.Run: %w", err)
	}

	slog.Info("engine: simulation finished",
		"run_id", report.RunID,
		"strategy", report.Strategy,
		"rounds_played", report.RoundsPlayed,
		"pnl", report.PnL.String(),
		"halted", report.Halted,
	)
	return report, nil
}

// Simulate es el pliegue puro sobre una secuencia ya ordenada.
func Simulate(settings domain.SimulationSettings, seq []domain.RoundRecord, trace bool) (domain.Report, error) {
	if err := settings.Validate(); err != nil {
		return domain.Report{}, err
	}
	settings, err := settings.Normalize()
	if err != nil {
		return domain.Report{}, err
	}
	strat, err := strategy.New(settings)
	if err != nil {
		return domain.Report{}, err
	}

	wallets := strat.Open(settings.CapitalAmount)
	opening := make([]domain.Wallet, len(wallets))
	copy(opening, wallets)

	report := domain.Report{
		RunID:           uuid.NewString(),
		Strategy:        settings.Strategy,
		Settings:        settings,
		StartingCapital: settings.CapitalAmount,
		RoundsAvailable: len(seq),
	}

	equity := []decimal.Decimal{totalCapital(wallets)}
	for _, round := range seq {
		step := strat.Evaluate(wallets, round)
		wallets = step.Wallets
		if step.Halted {
			report.Halted = true
			equity = append(equity, totalCapital(wallets))
			slog.Debug("engine: capital exhausted", "epoch", round.Epoch, "rounds_played", report.RoundsPlayed)
			break
		}

		if report.RoundsPlayed == 0 {
			report.FirstEpoch = round.Epoch
		}
		report.LastEpoch = round.Epoch
		report.RoundsPlayed++

		total := totalCapital(wallets)
		equity = append(equity, total)
		if trace {
			report.Trace = append(report.Trace, domain.RoundTrace{Outcome: step.Outcome, Equity: total})
		}
	}

	for i, w := range wallets {
		report.Wins += w.Wins
		report.Losses += w.Losses
		report.Wallets = append(report.Wallets, domain.WalletReport{
			Label:           w.Label,
			Side:            w.Side,
			StartingCapital: opening[i].Capital,
			EndingCapital:   w.Capital,
			Wins:            w.Wins,
			Losses:          w.Losses,
			WinRate:         winRate(w.Wins, w.Losses),
		})
	}

	report.EndingCapital = totalCapital(wallets)
	report.PnL = report.EndingCapital.Sub(report.StartingCapital)
	report.PnLPercent = report.PnL.Div(report.StartingCapital).Mul(hundred)
	report.WinRate = winRate(report.Wins, report.Losses)
	report.MaxDrawdown = maxDrawdown(equity)
	return report, nil
}

func totalCapital(ws []domain.Wallet) decimal.Decimal {
	sum := decimal.Zero
	for _, w := range ws {
		sum = sum.Add(w.Capital)
	}
	return sum
}

// winRate en porcentaje; cero si no hubo apuestas.
func winRate(wins, losses int) decimal.Decimal {
	n := wins + losses
	if n == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(n))).Mul(hundred)
}

// maxDrawdown es la mayor caída desde un máximo previo de la curva, en porcentaje.
func maxDrawdown(curve []decimal.Decimal) decimal.Decimal {
	if len(curve) < 2 {
		return decimal.Zero
	}
	peak := curve[0]
	worst := decimal.Zero
	for _, eq := range curve {
		if eq.GreaterThan(peak) {
			peak = eq
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(eq).Div(peak)
		if dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst.Mul(hundred)
}
