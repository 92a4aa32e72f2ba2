package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"TailHedge/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps the per-connection pragmas below in force.
	db.SetMaxOpenConns(1)

	// WAL lets report readers run while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	r := &SQLiteRecorder{
		db:  db,
		now: time.Now,
		log: logger.With().Str("component", "recorder").Logger(),
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scenarios (
			id              TEXT PRIMARY KEY,
			timestamp       INTEGER NOT NULL,
			ticker          TEXT NOT NULL,
			regime          TEXT NOT NULL,
			seed            INTEGER,
			history_source  TEXT,
			risk_free_rate  REAL,
			time_to_expiry  REAL,
			price_at_start  REAL,
			price_at_end    REAL,
			strike_price    REAL,
			option_price    REAL,
			expiry_date     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scenarios_ts ON scenarios(timestamp)`,

		`CREATE TABLE IF NOT EXISTS portfolio_metrics (
			id                      INTEGER PRIMARY KEY AUTOINCREMENT,
			scenario_id             TEXT NOT NULL REFERENCES scenarios(id),
			timestamp               INTEGER NOT NULL,
			insurance_ratio         REAL,
			classification          TEXT,
			portfolio_value         REAL,
			equity_at_start         REAL,
			equity_at_end           REAL,
			insurance_cost          REAL,
			contracts               INTEGER,
			put_option_price        REAL,
			option_payoff           REAL,
			option_strategy         TEXT,
			value_with_insurance    REAL,
			value_without_insurance REAL,
			change_with_insurance   REAL,
			change_without_insurance REAL,
			profit_difference       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_scenario ON portfolio_metrics(scenario_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScenario(rec *ScenarioRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	sc := rec.Scenario

	_, err := r.db.Exec(`INSERT INTO scenarios
		(id, timestamp, ticker, regime, seed, history_source, risk_free_rate, time_to_expiry,
		 price_at_start, price_at_end, strike_price, option_price, expiry_date)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.CreatedAt.Unix(), rec.Ticker, string(rec.Regime), rec.Seed, rec.HistorySource,
		rec.RiskFreeRate, rec.TimeToExpiry,
		sc.PriceAtStart, sc.PriceAtEnd, sc.StrikePrice, sc.OptionPrice, sc.ExpiryDate,
	)
	if err != nil {
		return "", fmt.Errorf("insert scenario: %w", err)
	}
	return rec.ID, nil
}

func (r *SQLiteRecorder) RecordMetrics(scenarioID string, insuranceRatio float64, m *model.PortfolioMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO portfolio_metrics
		(scenario_id, timestamp, insurance_ratio, classification, portfolio_value,
		 equity_at_start, equity_at_end, insurance_cost, contracts, put_option_price,
		 option_payoff, option_strategy, value_with_insurance, value_without_insurance,
		 change_with_insurance, change_without_insurance, profit_difference)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		scenarioID, r.now().Unix(), insuranceRatio, string(m.Scenario), m.PortfolioValueAtStart,
		m.EquityAtStart, m.EquityAtEnd, m.InsuranceStrategyCost, m.NumberOfContracts, m.PutOptionPrice,
		m.OptionPayoff, m.OptionStrategy,
		m.PortfolioValueAtEndWithInsurance, m.PortfolioValueAtEndWithoutInsurance,
		m.PortfolioValuePercentChangeWithInsurance, m.PortfolioValuePercentChangeWithoutInsurance,
		m.DifferenceBetweenPortfolioProfitWithAndWithoutInsurance,
	)
	if err != nil {
		return fmt.Errorf("insert metrics for %s: %w", scenarioID, err)
	}
	return nil
}

// RecentScenarios returns up to limit scenarios, newest first.
func (r *SQLiteRecorder) RecentScenarios(limit int) ([]ScenarioRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, ticker, regime, seed, history_source,
		risk_free_rate, time_to_expiry, price_at_start, price_at_end, strike_price,
		option_price, expiry_date
		FROM scenarios ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	var out []ScenarioRecord
	for rows.Next() {
		var (
			rec    ScenarioRecord
			ts     int64
			regime string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Ticker, &regime, &rec.Seed, &rec.HistorySource,
			&rec.RiskFreeRate, &rec.TimeToExpiry,
			&rec.Scenario.PriceAtStart, &rec.Scenario.PriceAtEnd, &rec.Scenario.StrikePrice,
			&rec.Scenario.OptionPrice, &rec.Scenario.ExpiryDate); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		rec.CreatedAt = time.Unix(ts, 0)
		rec.Regime = model.Regime(regime)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
