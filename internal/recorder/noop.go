package recorder

import (
	"github.com/google/uuid"

	"TailHedge/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScenario(rec *ScenarioRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return rec.ID, nil
}

func (n *NoopRecorder) RecordMetrics(_ string, _ float64, _ *model.PortfolioMetrics) error {
	return nil
}

func (n *NoopRecorder) Close() error { return nil }
