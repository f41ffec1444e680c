package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidSettings marks a configuration error: the run is aborted before
// any round is replayed.
var ErrInvalidSettings = errors.New("invalid simulation settings")

// StrategyKind selects how each round is wagered.
type StrategyKind string

const (
	StrategyBiggerVolume  StrategyKind = "BIGGER_VOLUME"
	StrategySmallerVolume StrategyKind = "SMALLER_VOLUME"
	StrategyAlwaysDown    StrategyKind = "ALWAYS_DOWN"
	StrategyAlwaysUp      StrategyKind = "ALWAYS_UP"
	StrategyDualWallet    StrategyKind = "DUAL_WALLET"
)

// Strategies lists every supported strategy in menu order.
var Strategies = []StrategyKind{
	StrategyBiggerVolume,
	StrategySmallerVolume,
	StrategyAlwaysDown,
	StrategyAlwaysUp,
	StrategyDualWallet,
}

// ParseStrategy accepts the canonical names case-insensitively, with '-' as
// an alias of '_'.
func ParseStrategy(s string) (StrategyKind, error) {
	norm := StrategyKind(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, k := range Strategies {
		if k == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q: %w", s, ErrInvalidSettings)
}

// WeightSide selects which side of a DUAL_WALLET round gets the larger stake.
type WeightSide string

const (
	WeightLowerPayout  WeightSide = "LOWER_PAYOUT"
	WeightHigherPayout WeightSide = "HIGHER_PAYOUT"
)

// ParseWeightSide accepts LOWER_PAYOUT / HIGHER_PAYOUT case-insensitively.
func ParseWeightSide(s string) (WeightSide, error) {
	switch WeightSide(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))) {
	case WeightLowerPayout:
		return WeightLowerPayout, nil
	case WeightHigherPayout:
		return WeightHigherPayout, nil
	}
	return "", fmt.Errorf("unknown weight side %q: %w", s, ErrInvalidSettings)
}

// SimulationSettings are read-only for the whole run.
type SimulationSettings struct {
	Strategy         StrategyKind
	AmountPerTrade   decimal.Decimal
	CapitalAmount    decimal.Decimal
	WeightSide       WeightSide // DUAL_WALLET only
	WeightMultiplier int64      // DUAL_WALLET only
}

// Normalize returns a copy with Strategy and WeightSide in their canonical
// form. WeightSide is only parsed for DUAL_WALLET.
func (s SimulationSettings) Normalize() (SimulationSettings, error) {
	kind, err := ParseStrategy(string(s.Strategy))
	if err != nil {
		return s, err
	}
	s.Strategy = kind
	if kind != StrategyDualWallet {
		return s, nil
	}
	side, err := ParseWeightSide(string(s.WeightSide))
	if err != nil {
		return s, err
	}
	s.WeightSide = side
	return s, nil
}

// Validate checks that the stake is affordable relative to the capital.
// Names are matched the same way as Normalize.
func (s SimulationSettings) Validate() error {
	s, err := s.Normalize()
	if err != nil {
		return err
	}
	if !s.AmountPerTrade.IsPositive() {
		return fmt.Errorf("amount per trade must be > 0, got %s: %w", s.AmountPerTrade, ErrInvalidSettings)
	}
	if !s.CapitalAmount.IsPositive() {
		return fmt.Errorf("capital amount must be > 0, got %s: %w", s.CapitalAmount, ErrInvalidSettings)
	}

	if s.Strategy != StrategyDualWallet {
		if s.AmountPerTrade.GreaterThanOrEqual(s.CapitalAmount) {
			return fmt.Errorf("amount per trade %s must be below capital %s: %w",
				s.AmountPerTrade, s.CapitalAmount, ErrInvalidSettings)
		}
		return nil
	}

	if s.AmountPerTrade.Mul(decimal.NewFromInt(2)).GreaterThanOrEqual(s.CapitalAmount) {
		return fmt.Errorf("twice the amount per trade (%s) must be below capital %s: %w",
			s.AmountPerTrade.Mul(decimal.NewFromInt(2)), s.CapitalAmount, ErrInvalidSettings)
	}
	if s.WeightMultiplier < 1 {
		return fmt.Errorf("weight multiplier must be a positive integer, got %d: %w", s.WeightMultiplier, ErrInvalidSettings)
	}
	return nil
}
