package strategy

import (
	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/shopspring/decimal"
)

// pickFunc elige el lado apostado y el payout que se acredita si gana.
type pickFunc func(r domain.RoundRecord) (side domain.Side, payout decimal.Decimal)

// singleWallet cubre BIGGER_VOLUME, SMALLER_VOLUME, ALWAYS_DOWN y ALWAYS_UP.
type singleWallet struct {
	kind  domain.StrategyKind
	stake decimal.Decimal
	pick  pickFunc
}

func newSingleWallet(kind domain.StrategyKind, stake decimal.Decimal, pick pickFunc) *singleWallet {
	return &singleWallet{kind: kind, stake: stake, pick: pick}
}

func (s *singleWallet) Kind() domain.StrategyKind { return s.kind }

func (s *singleWallet) Open(capital decimal.Decimal) []domain.Wallet {
	return []domain.Wallet{{Label: "main", Capital: capital}}
}

// Evaluate descuenta el stake antes de mirar la ronda. Si el capital queda
// negativo se fija a cero y la simulación termina sin contar la ronda.
func (s *singleWallet) Evaluate(wallets []domain.Wallet, round domain.RoundRecord) Step {
	next := cloneWallets(wallets)
	w := &next[0]
	outcome := domain.BetOutcome{Epoch: round.Epoch, Winner: round.Winner}

	w.Capital = w.Capital.Sub(s.stake)
	if w.Capital.IsNegative() {
		w.Capital = decimal.Zero
		return Step{Wallets: next, Outcome: outcome, Halted: true}
	}

	side, payout := s.pick(round)
	leg := domain.BetLeg{
		Wallet: w.Label,
		Side:   side,
		Stake:  s.stake,
		Payout: payout,
		Credit: decimal.Zero,
	}
	if side == round.Winner {
		leg.Won = true
		leg.Credit = domain.WinningCredit(s.stake, payout)
		w.Capital = w.Capital.Add(leg.Credit)
		w.Wins++
	} else {
		w.Losses++
	}

	outcome.Legs = []domain.BetLeg{leg}
	return Step{Wallets: next, Outcome: outcome}
}

// biggerVolume apuesta al lado con más volumen; empate → DOWN.
func biggerVolume(r domain.RoundRecord) (domain.Side, decimal.Decimal) {
	if r.BullAmount.GreaterThan(r.BearAmount) {
		return domain.SideUp, r.BullPayout
	}
	return domain.SideDown, r.BearPayout
}

// smallerVolume apuesta al lado con menos volumen (empate → UP), pero el
// payout acreditado es el menor de los dos multiplicadores, sea cual sea el
// lado apostado. Se conserva este emparejamiento tal cual.
func smallerVolume(r domain.RoundRecord) (domain.Side, decimal.Decimal) {
	side := domain.SideUp
	if r.BullAmount.GreaterThan(r.BearAmount) {
		side = domain.SideDown
	}

	payout := r.BullPayout
	if r.BullPayout.GreaterThan(r.BearPayout) {
		payout = r.BearPayout
	}
	return side, payout
}

func always(side domain.Side) pickFunc {
	return func(r domain.RoundRecord) (domain.Side, decimal.Decimal) {
		return side, r.PayoutFor(side)
	}
}
