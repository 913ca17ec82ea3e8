package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"monad-trader/internal/chain"
	"monad-trader/internal/config"
	"monad-trader/internal/engine"
	"monad-trader/internal/forecast"
	"monad-trader/internal/lending"
	"monad-trader/internal/marketdata"
	"monad-trader/internal/models"
	"monad-trader/internal/notify"
	"monad-trader/internal/swap"
	"monad-trader/internal/trading"
)

func newRunCmd(app *App) *cobra.Command {
	var lookbackDays int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single decision cycle",
		Long: `Run executes one full decision cycle: fetch market data, compute
indicators, gather model proposals, reconcile, revalidate, and execute.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			pipeline, closeFn, err := buildPipeline(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer closeFn()

			var lookback time.Duration
			if lookbackDays > 0 {
				lookback = time.Duration(lookbackDays) * 24 * time.Hour
			}

			result, err := pipeline.RunDecisionCycle(cmd.Context(), lookback)
			if err != nil {
				return err
			}

			printCycleResult(output, result)
			return nil
		},
	}

	cmd.Flags().IntVar(&lookbackDays, "lookback-days", 0, "override the history window in days")
	return cmd
}

// buildPipeline dials the chain and wires every pipeline collaborator
// explicitly. The returned closer releases the RPC connection.
func buildPipeline(ctx context.Context, app *App) (*engine.Pipeline, func(), error) {
	cfg := app.Config
	if app.Store == nil {
		return nil, nil, fmt.Errorf("persistence unavailable, cannot run pipeline")
	}

	wallet, err := chain.NewWallet(cfg.Chain.PrivateKey)
	if err != nil {
		return nil, nil, err
	}
	chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID, wallet, app.Logger)
	if err != nil {
		return nil, nil, err
	}

	mdClient := marketdata.NewClient(cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.MarketData.Resolution, app.Logger)
	pairs := make([]models.TradingPair, 0, len(cfg.MarketData.Pairs))
	for _, p := range cfg.MarketData.Pairs {
		pairs = append(pairs, models.TradingPair(p))
	}
	aggregator := marketdata.NewAggregator(mdClient, pairs, app.Logger)

	sources := make([]forecast.Source, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		sources = append(sources, forecast.NewModelSource(m.Name, m.BaseURL, m.APIKey, m.Model))
	}
	panel := forecast.NewPanel(sources, app.Logger)

	markets := lendingMarkets(cfg.Lending)
	reader := lending.NewReader(chainClient, markets, app.Logger)
	gate := lending.NewGate(chainClient, markets, cfg.Pipeline.RateDriftTolerance, app.Logger)
	lendExec := lending.NewExecutor(chainClient, markets, app.Logger)

	quoter := swap.NewClient(cfg.ZeroEx.BaseURL, cfg.ZeroEx.APIKey, cfg.Chain.ChainID, app.Logger)
	tradeExec := trading.NewExecutor(chainClient, quoter, app.Store,
		trading.Pair{
			Base:  common.HexToAddress(cfg.Contracts.WBTC.Address),
			Quote: common.HexToAddress(cfg.Contracts.USDT.Address),
		},
		trading.Config{
			Permit2:             common.HexToAddress(cfg.Contracts.Permit2),
			HighRiskSizePercent: cfg.Pipeline.HighRiskSizePercent / 100,
			LowRiskSizePercent:  cfg.Pipeline.LowRiskSizePercent / 100,
			MinBuyAmount:        cfg.Pipeline.MinBuyAmount,
			MinSellAmount:       cfg.Pipeline.MinSellAmount,
		},
		app.Logger)

	notifier := notify.NewManager(app.Logger, notify.NewTerminalChannel())

	pipeline := engine.NewPipeline(aggregator, panel, reader, gate, lendExec, tradeExec, app.Store, notifier,
		engine.Config{
			FetchTimeout:     cfg.Pipeline.FetchTimeout,
			InferTimeout:     cfg.Pipeline.InferTimeout,
			ConfirmTimeout:   cfg.Pipeline.ConfirmTimeout,
			Lookback:         time.Duration(cfg.MarketData.LookbackDays) * 24 * time.Hour,
			DefaultRecipient: wallet.Address().Hex(),
		},
		app.Logger)

	return pipeline, chainClient.Close, nil
}

// lendingMarkets converts config token maps into sorted market slices.
func lendingMarkets(cfg config.LendingConfig) lending.Markets {
	return lending.Markets{
		ETokens:          sortedTokens(cfg.ETokens),
		PTokens:          sortedTokens(cfg.PTokens),
		UniversalBalance: common.HexToAddress(cfg.UniversalBalance),
		Delegate:         common.HexToAddress(cfg.DelegateAddress),
	}
}

func sortedTokens(m map[string]config.TokenConfig) []lending.Token {
	tokens := make([]lending.Token, 0, len(m))
	for symbol, tc := range m {
		tokens = append(tokens, lending.Token{
			Symbol:   symbol,
			Address:  common.HexToAddress(tc.Address),
			Decimals: tc.Decimals,
		})
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Symbol < tokens[j].Symbol })
	return tokens
}

func printCycleResult(output *Output, result *engine.CycleResult) {
	if output.IsJSON() {
		output.JSON(result.Record)
		return
	}

	record := result.Record
	if !result.Persisted {
		output.Warning("No usable proposals this cycle, holding position")
		return
	}

	output.Info("Decision %s", record.ID)
	output.Printf("  trading: %s %s (%s, execute=%v)\n", record.Trading.Action, record.Trading.Pair, record.Trading.Confidence, record.Trading.ShouldExecute)
	output.Printf("  lending: %s %s (%s, execute=%v)\n", record.Lending.Action, record.Lending.Token, record.Lending.Confidence, record.Lending.ShouldExecute)

	for _, r := range result.Results {
		switch {
		case r.Skipped:
			output.Warning("  %s %s skipped: %s", r.Action.Type, r.Action.Token, r.Reason)
		case r.Success:
			output.Success("  %s %s confirmed: %s", r.Action.Type, r.Action.Token, r.TxHash)
		default:
			output.Error("  %s %s failed: %s", r.Action.Type, r.Action.Token, r.Error)
		}
	}
}
