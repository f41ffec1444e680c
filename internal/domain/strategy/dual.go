package strategy

import (
	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	two  = decimal.NewFromInt(2)
	half = decimal.RequireFromString("0.5")
)

// dualWallet apuesta a ambos lados con dos wallets independientes:
// A siempre a UP, B siempre a DOWN. El lado ponderado apuesta
// amountPerTrade × multiplier; el otro amountPerTrade.
type dualWallet struct {
	stake      decimal.Decimal
	weightSide domain.WeightSide
	multiplier decimal.Decimal
}

func newDualWallet(stake decimal.Decimal, weightSide domain.WeightSide, multiplier int64) *dualWallet {
	if multiplier < 1 {
		multiplier = 1
	}
	return &dualWallet{
		stake:      stake,
		weightSide: weightSide,
		multiplier: decimal.NewFromInt(multiplier),
	}
}

func (d *dualWallet) Kind() domain.StrategyKind { return domain.StrategyDualWallet }

// Open reparte el capital a partes iguales entre las dos wallets.
func (d *dualWallet) Open(capital decimal.Decimal) []domain.Wallet {
	// Mul por 0.5 es exacto; Div redondearía a DivisionPrecision dígitos.
	each := capital.Mul(half)
	return []domain.Wallet{
		{Label: "A", Side: domain.SideUp, Capital: each},
		{Label: "B", Side: domain.SideDown, Capital: each},
	}
}

// Evaluate termina la simulación sin tocar capital si alguna wallet tiene
// menos del doble de su stake. En este modo no hay suelo en cero.
func (d *dualWallet) Evaluate(wallets []domain.Wallet, round domain.RoundRecord) Step {
	next := cloneWallets(wallets)
	outcome := domain.BetOutcome{Epoch: round.Epoch, Winner: round.Winner}

	weighted := d.weightedSide(round)
	stakes := make([]decimal.Decimal, len(next))
	for i, w := range next {
		stakes[i] = d.stakeFor(w.Side, weighted)
		if w.Capital.LessThan(stakes[i].Mul(two)) {
			return Step{Wallets: next, Outcome: outcome, Halted: true}
		}
	}

	outcome.Legs = make([]domain.BetLeg, 0, len(next))
	for i := range next {
		w := &next[i]
		payout := round.PayoutFor(w.Side)
		leg := domain.BetLeg{
			Wallet: w.Label,
			Side:   w.Side,
			Stake:  stakes[i],
			Payout: payout,
			Credit: decimal.Zero,
		}

		w.Capital = w.Capital.Sub(stakes[i])
		if w.Side == round.Winner {
			leg.Won = true
			leg.Credit = domain.WinningCredit(stakes[i], payout)
			w.Capital = w.Capital.Add(leg.Credit)
			w.Wins++
		} else {
			w.Losses++
		}
		outcome.Legs = append(outcome.Legs, leg)
	}

	return Step{Wallets: next, Outcome: outcome}
}

// weightedSide devuelve el lado con menor (LOWER_PAYOUT) o mayor
// (HIGHER_PAYOUT) payout. En empate gana DOWN.
func (d *dualWallet) weightedSide(r domain.RoundRecord) domain.Side {
	if d.weightSide == domain.WeightHigherPayout {
		if r.BullPayout.GreaterThan(r.BearPayout) {
			return domain.SideUp
		}
		return domain.SideDown
	}
	if r.BullPayout.LessThan(r.BearPayout) {
		return domain.SideUp
	}
	return domain.SideDown
}

func (d *dualWallet) stakeFor(side, weighted domain.Side) decimal.Decimal {
	if side == weighted {
		return d.stake.Mul(d.multiplier)
	}
	return d.stake
}
