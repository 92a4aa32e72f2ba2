// Package recorder keeps a history of generated scenarios and the hedge
// reports computed from them.
package recorder

import (
	"time"

	"TailHedge/internal/model"
)

// ScenarioRecord is a generated scenario together with the settings that
// produced it.
type ScenarioRecord struct {
	ID            string         `json:"id"` // assigned on insert when empty
	CreatedAt     time.Time      `json:"created_at"`
	Ticker        string         `json:"ticker"`
	Regime        model.Regime   `json:"regime"`
	Seed          int64          `json:"seed"`
	HistorySource string         `json:"history_source"`
	RiskFreeRate  float64        `json:"risk_free_rate"`
	TimeToExpiry  float64        `json:"time_to_expiry"`
	Scenario      model.Scenario `json:"scenario"`
}

// Recorder persists historical data for analysis.
type Recorder interface {
	// RecordScenario stores rec and returns its ID.
	RecordScenario(rec *ScenarioRecord) (string, error)
	RecordMetrics(scenarioID string, insuranceRatio float64, m *model.PortfolioMetrics) error
	Close() error
}
