package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EvaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_evaluations_total", Help: "Positions evaluated across all cycles"})
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_decisions_total", Help: "Decisions produced, by action"}, []string{"action"})
	SnapshotFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_snapshot_failures_total", Help: "Market snapshot fetches that degraded to the neutral default"})
	AppliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_applies_total", Help: "Decisions handed to the execution gateway"})
	ApplyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_apply_failures_total", Help: "Gateway applies that returned an error"})
	OpenPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_open_positions", Help: "Open positions seen in the latest sweep"})
	BreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_marketdata_breaker_state", Help: "0=closed, 1=open, 2=half_open"})
)

func init() {
	prometheus.MustRegister(
		EvaluationsTotal,
		DecisionsTotal,
		SnapshotFailures,
		AppliesTotal,
		ApplyFailures,
		OpenPositions,
		BreakerState,
	)
}
