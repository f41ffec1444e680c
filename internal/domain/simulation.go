package domain

import "github.com/shopspring/decimal"

// FeeRate is charged on winnings only, never on stakes or losses.
var FeeRate = decimal.RequireFromString("0.03")

// Wallet is one independently tracked capital balance.
type Wallet struct {
	Label   string
	Side    Side // fixed side in DUAL_WALLET; empty for single-wallet modes
	Capital decimal.Decimal
	Wins    int
	Losses  int
}

// BetLeg is one wallet's wager in a round.
type BetLeg struct {
	Wallet string
	Side   Side
	Stake  decimal.Decimal
	Payout decimal.Decimal // multiplier applied on a win
	Credit decimal.Decimal // zero on a loss
	Won    bool
}

// BetOutcome records what was backed in a round and how it resolved.
type BetOutcome struct {
	Epoch  int64
	Winner Side
	Legs   []BetLeg
}

// Won reports whether the first leg won; single-wallet rounds have one leg.
func (o BetOutcome) Won() bool {
	return len(o.Legs) > 0 && o.Legs[0].Won
}

// NetCredit is the sum of credits minus the sum of stakes across legs.
func (o BetOutcome) NetCredit() decimal.Decimal {
	net := decimal.Zero
	for _, l := range o.Legs {
		net = net.Add(l.Credit).Sub(l.Stake)
	}
	return net
}

// WinningCredit is stake × payout × (1 − fee).
func WinningCredit(stake, payout decimal.Decimal) decimal.Decimal {
	return stake.Mul(payout).Mul(decimal.NewFromInt(1).Sub(FeeRate))
}

// WalletReport is the per-wallet section of a Report.
type WalletReport struct {
	Label           string
	Side            Side
	StartingCapital decimal.Decimal
	EndingCapital   decimal.Decimal
	Wins            int
	Losses          int
	WinRate         decimal.Decimal // percent
}

// RoundTrace is one row of the optional per-round trace.
type RoundTrace struct {
	Outcome BetOutcome
	Equity  decimal.Decimal // total capital after the round
}

// Report is the plain-data result of a simulation run.
type Report struct {
	RunID           string
	Strategy        StrategyKind
	Settings        SimulationSettings
	StartingCapital decimal.Decimal
	EndingCapital   decimal.Decimal // summed across wallets
	RoundsAvailable int
	RoundsPlayed    int
	Wins            int
	Losses          int
	WinRate         decimal.Decimal // percent of rounds played
	PnL             decimal.Decimal // EndingCapital − StartingCapital, signed
	PnLPercent      decimal.Decimal
	MaxDrawdown     decimal.Decimal // percent, over the post-round equity curve
	FirstEpoch      int64
	LastEpoch       int64
	Halted          bool // capital exhausted before the sequence ended
	Wallets         []WalletReport
	Trace           []RoundTrace
}
