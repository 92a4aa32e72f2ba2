package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"TailHedge/internal/recorder"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.Config.Database.SQLitePath
			if path == "" {
				return fmt.Errorf("database.sqlite_path is not configured")
			}
			rec, err := recorder.NewSQLiteRecorder(path, app.Logger)
			if err != nil {
				return err
			}
			defer rec.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			records, err := rec.RecentScenarios(limit)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scenarios recorded.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tTICKER\tREGIME\tSOURCE\tSTART\tEND\tSTRIKE\tPUT\tEXPIRY\tID")
			for _, r := range records {
				sc := r.Scenario
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Ticker, r.Regime, r.HistorySource,
					sc.PriceAtStart, sc.PriceAtEnd, sc.StrikePrice, sc.OptionPrice, sc.ExpiryDate, r.ID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "number of scenarios to list")
	cmd.Flags().Bool("json", false, "output in JSON format")
	return cmd
}
