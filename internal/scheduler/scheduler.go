package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"TailHedge/internal/hedge"
	"TailHedge/internal/market"
	"TailHedge/internal/metrics"
	"TailHedge/internal/model"
	"TailHedge/internal/notifier"
	"TailHedge/internal/recorder"
)

// ProviderFactory builds a fresh provider for one run so every report starts
// from newly loaded market data.
type ProviderFactory func(ctx context.Context) (*market.Provider, error)

// Job describes the portfolio evaluated on each run.
type Job struct {
	PortfolioValue float64
	InsuranceRatio float64
	Regimes        []model.Regime
}

// Report is the outcome of one regime in a run.
type Report struct {
	ScenarioID string
	Ticker     string
	Regime     model.Regime
	Scenario   model.Scenario
	Metrics    model.PortfolioMetrics
}

// Scheduler manages the cron-driven hedge report.
type Scheduler struct {
	Cron        *cron.Cron
	NewProvider ProviderFactory
	Recorder    recorder.Recorder
	Job         Job
	Notifier    notifier.Notifier // optional
	Metrics     *metrics.Metrics  // optional
	Ctx         context.Context

	log zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, factory ProviderFactory, rec recorder.Recorder, job Job, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		NewProvider: factory,
		Recorder:    rec,
		Job:         job,
		Ctx:         ctx,
		log:         logger.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the daily report task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.RunAndNotify); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunAndNotify runs the report and sends it to the notifier, if any.
func (s *Scheduler) RunAndNotify() {
	reports, err := s.RunNow()
	if err != nil {
		s.log.Error().Err(err).Msg("daily hedge report failed")
		s.Metrics.ObserveReportFailure()
		return
	}
	if s.Notifier == nil {
		return
	}
	err = s.Notifier.Notify(s.Ctx, FormatReports(reports))
	s.Metrics.ObserveNotification(err)
	if err != nil {
		s.log.Error().Err(err).Msg("send daily hedge report")
	}
}

// FormatReports renders the reports of one run as a single message.
func FormatReports(reports []Report) string {
	if len(reports) == 0 {
		return "No hedge report produced."
	}
	sections := make([]string, 0, len(reports))
	for _, r := range reports {
		sections = append(sections, notifier.FormatScenario(r.Regime, r.Metrics))
	}
	return notifier.FormatDailyReport(reports[0].Ticker, time.Now().Format(model.DateLayout), sections)
}

// HandleCommand answers a chat command.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	name := ""
	if fields := strings.Fields(command); len(fields) > 0 {
		name, _, _ = strings.Cut(strings.ToLower(fields[0]), "@")
	}
	switch name {
	case "/report":
		reports, err := s.RunNow()
		if err != nil {
			return fmt.Sprintf("Report failed: %v", err)
		}
		return FormatReports(reports)
	case "/help", "/start":
		return "Commands:\n/report - run the hedge report now\n/help - show this message"
	default:
		return "Unknown command. Send /help for the list."
	}
}

// RunNow generates one scenario per configured regime, evaluates the hedge
// and records both. Recording failures are logged, not returned.
func (s *Scheduler) RunNow() ([]Report, error) {
	s.log.Info().Int("regimes", len(s.Job.Regimes)).Msg("running hedge report")

	p, err := s.NewProvider(s.Ctx)
	if err != nil {
		return nil, fmt.Errorf("build provider: %w", err)
	}
	pc := p.Config()

	reports := make([]Report, 0, len(s.Job.Regimes))
	for _, regime := range s.Job.Regimes {
		sc, err := p.GenerateScenario(s.Ctx, regime)
		if err != nil {
			return reports, fmt.Errorf("generate %s scenario: %w", regime, err)
		}
		m, err := hedge.CalculatePortfolioMetrics(hedge.Inputs{
			PortfolioValue: s.Job.PortfolioValue,
			InsuranceRatio: s.Job.InsuranceRatio,
			Scenario:       sc,
		})
		if err != nil {
			return reports, fmt.Errorf("%s metrics: %w", regime, err)
		}

		id, err := s.Recorder.RecordScenario(&recorder.ScenarioRecord{
			Ticker:        pc.Ticker,
			Regime:        regime,
			Seed:          p.Seed(),
			HistorySource: string(p.HistorySource()),
			RiskFreeRate:  pc.RiskFreeRate,
			TimeToExpiry:  pc.TimeToExpiry,
			Scenario:      sc,
		})
		if err != nil {
			s.log.Error().Err(err).Str("regime", string(regime)).Msg("record scenario")
		} else if err := s.Recorder.RecordMetrics(id, s.Job.InsuranceRatio, &m); err != nil {
			s.log.Error().Err(err).Str("regime", string(regime)).Msg("record metrics")
		}

		s.log.Info().
			Str("regime", string(regime)).
			Str("classification", string(m.Scenario)).
			Float64("with_insurance", m.PortfolioValueAtEndWithInsurance).
			Float64("without_insurance", m.PortfolioValueAtEndWithoutInsurance).
			Msg("hedge report")
		s.Metrics.ObserveReport(string(regime), string(m.Scenario))
		reports = append(reports, Report{ScenarioID: id, Ticker: pc.Ticker, Regime: regime, Scenario: sc, Metrics: m})
	}
	return reports, nil
}
