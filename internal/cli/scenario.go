package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"TailHedge/internal/model"
	"TailHedge/internal/notifier"
	"TailHedge/internal/recorder"
	"TailHedge/internal/scheduler"
)

type scenarioResult struct {
	Regime     model.Regime           `json:"regime"`
	ScenarioID string                 `json:"scenario_id,omitempty"`
	Scenario   model.Scenario         `json:"scenario"`
	Metrics    model.PortfolioMetrics `json:"metrics"`
}

func newScenarioCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run one hedge scenario per regime",
		Long: `Generate one market scenario per regime and report the portfolio with and
without put protection.`,
		Example: `  hedge scenario
  hedge scenario --portfolio 250000 --ratio 0.02 --regimes crash
  hedge scenario --seed 7 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			regimes, err := app.applyMarketFlags(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ratio") {
				app.Config.Portfolio.InsuranceRatio, _ = cmd.Flags().GetFloat64("ratio")
				if app.Config.Portfolio.InsuranceRatio < 0 {
					return fmt.Errorf("ratio cannot be negative")
				}
			}

			var rec recorder.Recorder = recorder.NewNoopRecorder()
			if record, _ := cmd.Flags().GetBool("record"); record {
				rec = app.openRecorder()
			}
			defer rec.Close()

			s := scheduler.NewScheduler(cmd.Context(), app.newProvider, rec, scheduler.Job{
				PortfolioValue: app.Config.Portfolio.Value,
				InsuranceRatio: app.Config.Portfolio.InsuranceRatio,
				Regimes:        regimes,
			}, app.Logger)
			reports, err := s.RunNow()
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				out := make([]scenarioResult, 0, len(reports))
				for _, r := range reports {
					res := scenarioResult{Regime: r.Regime, Scenario: r.Scenario, Metrics: r.Metrics}
					if _, noop := rec.(*recorder.NoopRecorder); !noop {
						res.ScenarioID = r.ScenarioID
					}
					out = append(out, res)
				}
				return writeJSON(cmd, out)
			}
			for _, r := range reports {
				fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatScenario(r.Regime, r.Metrics))
			}
			return nil
		},
	}
	addMarketFlags(cmd)
	cmd.Flags().Float64("ratio", 0, "insurance ratio (default from config)")
	cmd.Flags().Bool("record", false, "store scenarios and metrics in the SQLite history")
	return cmd
}
