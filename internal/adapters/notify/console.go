package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Console implementa ports.ReportPrinter con tablas de tablewriter.
type Console struct {
	out io.Writer
}

// NewConsole crea un printer que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un printer para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintReport imprime el resumen, el desglose por wallet (si hay más de una)
// y la traza por ronda (si se pidió).
func (c *Console) PrintReport(r domain.Report) error {
	fmt.Fprintf(c.out, "\nBacktest %s — %s\n", r.Strategy, r.RunID)

	if err := c.printSummary(r); err != nil {
		return fmt.Errorf("notify.PrintReport: summary: %w", err)
	}
	if len(r.Wallets) > 1 {
		if err := c.printWallets(r.Wallets); err != nil {
			return fmt.Errorf("notify.PrintReport: wallets: %w", err)
		}
	}
	if len(r.Trace) > 0 {
		if err := c.printTrace(r.Trace); err != nil {
			return fmt.Errorf("notify.PrintReport: trace: %w", err)
		}
	}

	if r.Halted {
		fmt.Fprintln(c.out, "Simulation stopped early: not enough capital for the next round.")
	}
	return nil
}

func (c *Console) printSummary(r domain.Report) error {
	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")

	rows := [][]string{
		{"Strategy", string(r.Strategy)},
		{"Amount per trade", r.Settings.AmountPerTrade.String()},
	}
	if r.Strategy == domain.StrategyDualWallet {
		rows = append(rows,
			[]string{"Weight side", string(r.Settings.WeightSide)},
			[]string{"Weight multiplier", fmt.Sprintf("x%d", r.Settings.WeightMultiplier)},
		)
	}
	rows = append(rows,
		[]string{"Starting capital", r.StartingCapital.String()},
		[]string{"Ending capital", r.EndingCapital.String()},
		[]string{"PnL", signed(r.PnL)},
		[]string{"PnL %", signed(r.PnLPercent.Round(2)) + "%"},
		[]string{"Max drawdown", r.MaxDrawdown.Round(2).String() + "%"},
		[]string{"Rounds available", fmt.Sprintf("%d", r.RoundsAvailable)},
		[]string{"Rounds played", fmt.Sprintf("%d", r.RoundsPlayed)},
		[]string{"Wins", fmt.Sprintf("%d", r.Wins)},
		[]string{"Losses", fmt.Sprintf("%d", r.Losses)},
		[]string{"Win rate", r.WinRate.Round(2).String() + "%"},
	)
	if r.RoundsPlayed > 0 {
		rows = append(rows, []string{"Epochs", fmt.Sprintf("%d → %d", r.FirstEpoch, r.LastEpoch)})
	}

	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

func (c *Console) printWallets(ws []domain.WalletReport) error {
	fmt.Fprintln(c.out, "\nWallets")
	table := tablewriter.NewWriter(c.out)
	table.Header("Wallet", "Side", "Start", "End", "Wins", "Losses", "Win rate")

	for _, w := range ws {
		if err := table.Append(
			w.Label,
			string(w.Side),
			w.StartingCapital.String(),
			w.EndingCapital.String(),
			fmt.Sprintf("%d", w.Wins),
			fmt.Sprintf("%d", w.Losses),
			w.WinRate.Round(2).String()+"%",
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func (c *Console) printTrace(trace []domain.RoundTrace) error {
	fmt.Fprintln(c.out, "\nRounds")
	table := tablewriter.NewWriter(c.out)
	table.Header("Epoch", "Winner", "Bets", "Net", "Equity")

	for _, t := range trace {
		if err := table.Append(
			fmt.Sprintf("%d", t.Outcome.Epoch),
			string(t.Outcome.Winner),
			betsLabel(t.Outcome.Legs),
			signed(t.Outcome.NetCredit()),
			t.Equity.String(),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// betsLabel resume las apuestas de una ronda: "UP 0.1@2 ✓ | DOWN 0.2@1.5 ✗".
func betsLabel(legs []domain.BetLeg) string {
	label := ""
	for i, l := range legs {
		if i > 0 {
			label += " | "
		}
		mark := "✗"
		if l.Won {
			mark = "✓"
		}
		label += fmt.Sprintf("%s %s@%s %s", l.Side, l.Stake, l.Payout, mark)
	}
	return label
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}
