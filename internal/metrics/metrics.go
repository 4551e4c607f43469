// Package metrics reports batch run outcomes to a Prometheus Pushgateway.
//
// The pipeline is a short-lived batch job, so nothing is exposed for
// scraping: each run sets its gauges once and pushes them on exit.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/dmaliar/cashback-pipeline/internal/models"
)

// Recorder receives the outcome of one pipeline run.
type Recorder interface {
	ObserveRun(run models.PipelineRun, elapsed time.Duration)
	Push(ctx context.Context) error
}

// Pusher is the Pushgateway-backed Recorder.
type Pusher struct {
	pusher *push.Pusher

	runDuration prometheus.Gauge
	runStatus   *prometheus.GaugeVec
	fetched     *prometheus.GaugeVec
	rowsDropped prometheus.Gauge
	published   prometheus.Gauge
	loaded      prometheus.Gauge
}

func NewPusher(gatewayURL string, job string) *Pusher {
	reg := prometheus.NewRegistry()

	p := &Pusher{
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cashback_run_duration_seconds",
			Help: "Wall-clock duration of the last pipeline run.",
		}),
		runStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cashback_run_status",
			Help: "1 for the status the last run finished with, 0 otherwise.",
		}, []string{"status"}),
		fetched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cashback_records_fetched",
			Help: "Raw records fetched in the last run, per source.",
		}, []string{"source"}),
		rowsDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cashback_rows_dropped",
			Help: "Reward rows dropped by normalization in the last run.",
		}),
		published: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cashback_rows_published",
			Help: "Joined rows written to the columnar dataset in the last run.",
		}),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cashback_rows_loaded",
			Help: "New rows merged into the warehouse table in the last run.",
		}),
	}

	reg.MustRegister(p.runDuration, p.runStatus, p.fetched, p.rowsDropped, p.published, p.loaded)
	p.pusher = push.New(gatewayURL, job).Gatherer(reg)

	return p
}

func (p *Pusher) ObserveRun(run models.PipelineRun, elapsed time.Duration) {
	p.runDuration.Set(elapsed.Seconds())

	for _, status := range []string{models.RunStatusSuccess, models.RunStatusFailed} {
		value := 0.0
		if run.Status == status {
			value = 1.0
		}
		p.runStatus.WithLabelValues(status).Set(value)
	}

	p.fetched.WithLabelValues("transactions").Set(float64(run.TransactionsFetched))
	p.fetched.WithLabelValues("rewards").Set(float64(run.RewardsFetched))
	p.rowsDropped.Set(float64(run.RowsDropped))
	p.published.Set(float64(run.RowsPublished))
	p.loaded.Set(float64(run.RowsLoaded))
}

func (p *Pusher) Push(ctx context.Context) error {
	return p.pusher.PushContext(ctx)
}

type noopRecorder struct{}

// NewNoOpRecorder returns a Recorder that drops everything. Used when no
// gateway is configured.
func NewNoOpRecorder() Recorder {
	return noopRecorder{}
}

func (noopRecorder) ObserveRun(models.PipelineRun, time.Duration) {}
func (noopRecorder) Push(context.Context) error                  { return nil }
