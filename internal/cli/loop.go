package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	apperrors "monad-trader/internal/errors"
)

func newLoopCmd(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Run decision cycles continuously",
		Long: `Loop runs a decision cycle immediately and then on a fixed interval
until interrupted. A tick that arrives while a cycle is still in flight
is skipped, never queued.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			pipeline, closeFn, err := buildPipeline(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer closeFn()

			if interval <= 0 {
				interval = app.Config.Pipeline.LoopInterval
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			output.Info("Running every %s, Ctrl-C to stop", interval)

			runOnce := func() {
				result, err := pipeline.RunDecisionCycle(cmd.Context(), 0)
				switch {
				case errors.Is(err, apperrors.ErrRunInFlight):
					app.Logger.Warn().Msg("previous cycle still in flight, skipping tick")
				case err != nil:
					output.Error("cycle failed: %v", err)
				default:
					printCycleResult(output, result)
				}
			}

			runOnce()
			for {
				select {
				case <-ticker.C:
					go runOnce()
				case <-sigCh:
					output.Println("shutting down")
					return nil
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "cycle interval (default from config)")
	return cmd
}
