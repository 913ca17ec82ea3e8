package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"monad-trader/internal/models"
	"monad-trader/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect decision and trade history",
	}

	cmd.AddCommand(newHistoryDecisionsCmd(app))
	cmd.AddCommand(newHistoryTradesCmd(app))
	return cmd
}

func newHistoryDecisionsCmd(app *App) *cobra.Command {
	var limit int
	var executedOnly bool

	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "List recent decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("persistence unavailable")
			}
			output := NewOutput(cmd)

			filter := store.DecisionFilter{Limit: limit}
			if executedOnly {
				executed := true
				filter.Executed = &executed
			}

			records, err := app.Store.GetDecisions(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			table := NewTable(output, "CREATED", "ID", "TRADING", "LENDING", "CONFIDENCE", "EXECUTED")
			for _, r := range records {
				executed := "-"
				if r.ExecutedAt != nil {
					executed = r.ExecutedAt.Format("01-02 15:04")
				}
				table.AddRow(
					r.CreatedAt.Format("01-02 15:04"),
					shortID(r.ID),
					fmt.Sprintf("%s %s", r.Trading.Action, r.Trading.Pair),
					string(r.Lending.Action),
					string(r.Trading.Confidence),
					executed,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	cmd.Flags().BoolVar(&executedOnly, "executed", false, "only decisions that executed")
	return cmd
}

func newHistoryTradesCmd(app *App) *cobra.Command {
	var limit int
	var pair string
	var days int

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recent trade executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("persistence unavailable")
			}
			output := NewOutput(cmd)

			filter := store.TradeFilter{Pair: pair, Limit: limit}
			if days > 0 {
				filter.StartDate = time.Now().AddDate(0, 0, -days)
			}

			trades, err := app.Store.GetTrades(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			table := NewTable(output, "TIME", "PAIR", "ACTION", "AMOUNT IN", "STATUS", "TX")
			for _, t := range trades {
				table.AddRow(
					t.Timestamp.Format("01-02 15:04"),
					t.Pair,
					string(t.Action),
					t.AmountIn,
					statusCell(output, t.Status),
					shortID(t.TxHash),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	cmd.Flags().StringVar(&pair, "pair", "", "filter by trading pair")
	cmd.Flags().IntVar(&days, "days", 0, "only trades from the last N days")
	return cmd
}

func statusCell(output *Output, status models.ExecutionStatus) string {
	switch status {
	case models.ExecCompleted:
		return output.Green(string(status))
	case models.ExecFailed:
		return output.Red(string(status))
	default:
		return output.Yellow(string(status))
	}
}

func shortID(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:10]
}
