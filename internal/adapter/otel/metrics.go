package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "dictum"

// Metrics holds all review workflow metric instruments.
type Metrics struct {
	DeliberationsRecorded metric.Int64Counter
	GateFailures          metric.Int64Counter
	Escalations           metric.Int64Counter
	ProjectsApproved      metric.Int64Counter
	ProjectsRejected      metric.Int64Counter
	StageDuration         metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DeliberationsRecorded, err = meter.Int64Counter("dictum.deliberations.recorded",
		metric.WithDescription("Number of deliberations appended to the ledger"))
	if err != nil {
		return nil, err
	}

	m.GateFailures, err = meter.Int64Counter("dictum.gates.failed",
		metric.WithDescription("Number of refused gate transitions"))
	if err != nil {
		return nil, err
	}

	m.Escalations, err = meter.Int64Counter("dictum.escalations",
		metric.WithDescription("Number of stages escalated for human review"))
	if err != nil {
		return nil, err
	}

	m.ProjectsApproved, err = meter.Int64Counter("dictum.projects.approved",
		metric.WithDescription("Number of projects reaching APPROVED"))
	if err != nil {
		return nil, err
	}

	m.ProjectsRejected, err = meter.Int64Counter("dictum.projects.rejected",
		metric.WithDescription("Number of projects reaching REJECTED"))
	if err != nil {
		return nil, err
	}

	m.StageDuration, err = meter.Float64Histogram("dictum.stage.duration_seconds",
		metric.WithDescription("Time a project spent in a stage before advancing"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
