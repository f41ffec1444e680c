package strategy

import (
	"fmt"

	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/shopspring/decimal"
)

// Step es el resultado de evaluar una ronda: las wallets nuevas, la apuesta
// registrada y si la simulación debe terminar.
// Con Halted=true la ronda no cuenta como jugada.
type Step struct {
	Wallets []domain.Wallet
	Outcome domain.BetOutcome
	Halted  bool
}

// Strategy define el contrato de evaluación de una ronda.
// Evaluate es pura: nunca modifica las wallets que recibe.
type Strategy interface {
	Kind() domain.StrategyKind
	// Open devuelve las wallets iniciales para el capital dado.
	Open(capital decimal.Decimal) []domain.Wallet
	// Evaluate aplica una ronda sobre el estado previo.
	Evaluate(wallets []domain.Wallet, round domain.RoundRecord) Step
}

// New construye la strategy indicada en los settings. Los nombres se
// normalizan antes; uno desconocido devuelve ErrInvalidSettings.
func New(s domain.SimulationSettings) (Strategy, error) {
	s, err := s.Normalize()
	if err != nil {
		return nil, fmt.Errorf("strategy.New: %w", err)
	}
	switch s.Strategy {
	case domain.StrategyBiggerVolume:
		return newSingleWallet(s.Strategy, s.AmountPerTrade, biggerVolume), nil
	case domain.StrategySmallerVolume:
		return newSingleWallet(s.Strategy, s.AmountPerTrade, smallerVolume), nil
	case domain.StrategyAlwaysDown:
		return newSingleWallet(s.Strategy, s.AmountPerTrade, always(domain.SideDown)), nil
	case domain.StrategyAlwaysUp:
		return newSingleWallet(s.Strategy, s.AmountPerTrade, always(domain.SideUp)), nil
	case domain.StrategyDualWallet:
		return newDualWallet(s.AmountPerTrade, s.WeightSide, s.WeightMultiplier), nil
	}
	return nil, fmt.Errorf("strategy.New: %q: %w", s.Strategy, domain.ErrInvalidSettings)
}

func cloneWallets(ws []domain.Wallet) []domain.Wallet {
	out := make([]domain.Wallet, len(ws))
	copy(out, ws)
	return out
}
