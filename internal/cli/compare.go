package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"TailHedge/internal/hedge"
	"TailHedge/internal/model"
	"TailHedge/internal/notifier"
)

type comparisonResult struct {
	Regime     model.Regime  `json:"regime"`
	Iterations int           `json:"iterations"`
	Summary    hedge.Summary `json:"summary"`
}

func newCompareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare insurance ratios over repeated scenarios",
		Long: `Draw a number of scenarios per regime and evaluate every insurance ratio
between --min-ratio and --max-ratio against the same draws.`,
		Example: `  hedge compare
  hedge compare --min-ratio 0.005 --max-ratio 0.05 --steps 10 --iterations 50
  hedge compare --regimes crash --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			cmp := &app.Config.Comparison
			if f.Changed("min-ratio") {
				cmp.MinRatio, _ = f.GetFloat64("min-ratio")
			}
			if f.Changed("max-ratio") {
				cmp.MaxRatio, _ = f.GetFloat64("max-ratio")
			}
			if f.Changed("steps") {
				cmp.Steps, _ = f.GetInt("steps")
			}
			if f.Changed("iterations") {
				cmp.Iterations, _ = f.GetInt("iterations")
			}
			regimes, err := app.applyMarketFlags(cmd)
			if err != nil {
				return err
			}

			ratios, err := hedge.Linspace(cmp.MinRatio, cmp.MaxRatio, cmp.Steps)
			if err != nil {
				return err
			}
			provider, err := app.newProvider(cmd.Context())
			if err != nil {
				return err
			}

			results := make([]comparisonResult, 0, len(regimes))
			for _, regime := range regimes {
				app.Logger.Info().
					Str("regime", string(regime)).
					Int("iterations", cmp.Iterations).
					Floats64("ratios", ratios).
					Msg("running comparison")
				rows, err := hedge.Compare(cmd.Context(), provider, app.Config.Portfolio.Value, ratios, regime, cmp.Iterations)
				if err != nil {
					return fmt.Errorf("compare %s: %w", regime, err)
				}
				results = append(results, comparisonResult{
					Regime:     regime,
					Iterations: cmp.Iterations,
					Summary:    hedge.Summarize(rows),
				})
			}

			if asJSON, _ := f.GetBool("json"); asJSON {
				return writeJSON(cmd, results)
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatComparison(r.Regime, r.Iterations, r.Summary))
			}
			return nil
		},
	}
	addMarketFlags(cmd)
	cmd.Flags().Float64("min-ratio", 0, "minimum insurance ratio (default from config)")
	cmd.Flags().Float64("max-ratio", 0, "maximum insurance ratio (default from config)")
	cmd.Flags().Int("steps", 0, "number of ratios between min and max (default from config)")
	cmd.Flags().Int("iterations", 0, "scenario draws per regime (default from config)")
	return cmd
}
