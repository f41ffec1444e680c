package main

import (
	"flag"
	"fmt"

	"github.com/alejandrodnm/predictbt/config"
	"github.com/alejandrodnm/predictbt/internal/domain"
)

// settingsFlags son los flags que definen una simulación. Si hay -profile,
// los flags pasados explícitamente lo sobreescriben.
type settingsFlags struct {
	profile          string
	strategy         string
	capital          string
	amount           string
	weightSide       string
	weightMultiplier int64
}

func (f *settingsFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.profile, "profile", "", "named settings profile from the config file")
	fs.StringVar(&f.strategy, "strategy", "", "BIGGER_VOLUME|SMALLER_VOLUME|ALWAYS_DOWN|ALWAYS_UP|DUAL_WALLET")
	fs.StringVar(&f.capital, "capital", config.DefaultCapital, "starting capital (BNB)")
	fs.StringVar(&f.amount, "amount", config.DefaultAmountPerTrade, "stake per round and wallet (BNB)")
	fs.StringVar(&f.weightSide, "weight-side", "", "DUAL_WALLET only: LOWER_PAYOUT|HIGHER_PAYOUT")
	fs.Int64Var(&f.weightMultiplier, "weight-multiplier", 1, "DUAL_WALLET only: stake multiplier for the weighted side")
}

// resolve arma los SimulationSettings. La validación de asequibilidad queda
// para el engine, que la reporta como error de configuración.
func (f *settingsFlags) resolve(cfg *config.Config, fs *flag.FlagSet) (domain.SimulationSettings, error) {
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	base := config.Profile{
		Name:             "flags",
		Strategy:         f.strategy,
		AmountPerTrade:   f.amount,
		CapitalAmount:    f.capital,
		WeightSide:       f.weightSide,
		WeightMultiplier: f.weightMultiplier,
	}

	if f.profile != "" {
		p, ok := cfg.Profile(f.profile)
		if !ok {
			return domain.SimulationSettings{}, fmt.Errorf("unknown profile %q: %w", f.profile, domain.ErrInvalidSettings)
		}
		if set["strategy"] {
			p.Strategy = f.strategy
		}
		if set["amount"] {
			p.AmountPerTrade = f.amount
		}
		if set["capital"] {
			p.CapitalAmount = f.capital
		}
		if set["weight-side"] {
			p.WeightSide = f.weightSide
		}
		if set["weight-multiplier"] {
			p.WeightMultiplier = f.weightMultiplier
		}
		base = p
	}

	if base.Strategy == "" {
		return domain.SimulationSettings{}, fmt.Errorf("-strategy or -profile is required: %w", domain.ErrInvalidSettings)
	}
	return base.Settings()
}
