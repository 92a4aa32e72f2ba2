package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"TailHedge/internal/metrics"
	"TailHedge/internal/notifier"
	"TailHedge/internal/recorder"
	"TailHedge/internal/scheduler"
	"TailHedge/internal/status"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily hedge report on a cron schedule",
		Long: `Run the hedge report for the configured regimes on schedule.daily_cron and
record every scenario. When Telegram is configured the report is sent to the
chat and the bot answers /report and /help. When status.addr is set, health,
Prometheus metrics and recent scenarios are served over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			if err := cfg.Validate(); err != nil {
				return err
			}
			regimes, err := cfg.Regimes()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, gctx := errgroup.WithContext(ctx)

			app.Metrics = metrics.New()
			rec := app.openRecorder()
			defer rec.Close()

			sched := scheduler.NewScheduler(gctx, app.newProvider, rec, scheduler.Job{
				PortfolioValue: cfg.Portfolio.Value,
				InsuranceRatio: cfg.Portfolio.InsuranceRatio,
				Regimes:        regimes,
			}, app.Logger)
			sched.Metrics = app.Metrics

			if cfg.TelegramEnabled() {
				tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, app.newRetrier(), app.Logger)
				sched.Notifier = tn
				g.Go(func() error {
					tn.StartPolling(gctx, sched.HandleCommand)
					return nil
				})
				app.Logger.Info().Msg("telegram polling started")
			}

			if cfg.Status.Addr != "" {
				var lister status.ScenarioLister
				if sr, ok := rec.(*recorder.SQLiteRecorder); ok {
					lister = sr
				}
				srv := status.New(cfg.Status.Addr, app.Metrics, lister, app.Logger)
				g.Go(func() error { return srv.Run(gctx) })
			}

			if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
				stop()
				_ = g.Wait()
				return err
			}
			sched.Start()

			runNow, _ := cmd.Flags().GetBool("run-now")
			if runNow || os.Getenv("RUN_ON_START") == "true" {
				app.Logger.Info().Msg("running hedge report on start")
				g.Go(func() error {
					sched.RunAndNotify()
					return nil
				})
			}

			app.Logger.Info().Str("cron", cfg.Schedule.DailyCron).Msg("hedge service running, press Ctrl+C to stop")
			<-gctx.Done()
			app.Logger.Info().Msg("shutting down")
			sched.Stop()
			return g.Wait()
		},
	}
	cmd.Flags().Bool("run-now", false, "run the report once at startup (env RUN_ON_START=true)")
	return cmd
}
