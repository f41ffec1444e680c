package notify_test

import (
	"bytes"
	"testing"

	"github.com/alejandrodnm/predictbt/internal/adapters/notify"
	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func singleReport() domain.Report {
	return domain.Report{
		RunID:    "run-1",
		Strategy: domain.StrategyAlwaysUp,
		Settings: domain.SimulationSettings{
			Strategy:       domain.StrategyAlwaysUp,
			AmountPerTrade: dec("0.1"),
			CapitalAmount:  dec("1"),
		},
		StartingCapital: dec("1"),
		EndingCapital:   dec("1.0395"),
		RoundsAvailable: 3,
		RoundsPlayed:    3,
		Wins:            2,
		Losses:          1,
		WinRate:         dec("66.666666"),
		PnL:             dec("0.0395"),
		PnLPercent:      dec("3.95"),
		MaxDrawdown:     dec("9.1407678"),
		FirstEpoch:      100,
		LastEpoch:       102,
		Wallets: []domain.WalletReport{
			{Label: "main", StartingCapital: dec("1"), EndingCapital: dec("1.0395"), Wins: 2, Losses: 1},
		},
	}
}

func TestConsole_PrintReport_Single(t *testing.T) {
	var buf bytes.Buffer
	err := notify.NewConsoleWriter(&buf).PrintReport(singleReport())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "ALWAYS_UP")
	assert.Contains(t, out, "1.0395")
	assert.Contains(t, out, "+0.0395")
	assert.Contains(t, out, "+3.95%")
	assert.Contains(t, out, "9.14%")
	assert.Contains(t, out, "66.67%")
	assert.Contains(t, out, "100 → 102")
	assert.NotContains(t, out, "Wallets")
	assert.NotContains(t, out, "stopped early")
}

func TestConsole_PrintReport_DualWithTrace(t *testing.T) {
	r := singleReport()
	r.Strategy = domain.StrategyDualWallet
	r.Settings.Strategy = domain.StrategyDualWallet
	r.Settings.WeightSide = domain.WeightLowerPayout
	r.Settings.WeightMultiplier = 3
	r.Halted = true
	r.PnL = dec("-0.2")
	r.Wallets = []domain.WalletReport{
		{Label: "A", Side: domain.SideUp, StartingCapital: dec("0.5"), EndingCapital: dec("0.6"), Wins: 1, Losses: 0},
		{Label: "B", Side: domain.SideDown, StartingCapital: dec("0.5"), EndingCapital: dec("0.2"), Wins: 0, Losses: 1},
	}
	r.Trace = []domain.RoundTrace{{
		Outcome: domain.BetOutcome{
			Epoch:  100,
			Winner: domain.SideUp,
			Legs: []domain.BetLeg{
				{Wallet: "A", Side: domain.SideUp, Stake: dec("0.3"), Payout: dec("1.5"), Credit: dec("0.4365"), Won: true},
				{Wallet: "B", Side: domain.SideDown, Stake: dec("0.1"), Payout: dec("3"), Credit: decimal.Zero},
			},
		},
		Equity: dec("1.0365"),
	}}

	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf).PrintReport(r))

	out := buf.String()
	assert.Contains(t, out, "LOWER_PAYOUT")
	assert.Contains(t, out, "x3")
	assert.Contains(t, out, "Wallets")
	assert.Contains(t, out, "-0.2")
	assert.Contains(t, out, "UP 0.3@1.5 ✓ | DOWN 0.1@3 ✗")
	assert.Contains(t, out, "+0.0365")
	assert.Contains(t, out, "stopped early")
}
