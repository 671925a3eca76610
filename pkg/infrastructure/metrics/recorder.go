// Package metrics exports merge run statistics to Prometheus.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
)

const namespace = "blocklist_merger"

// Recorder implements application.Observer on top of Prometheus collectors
type Recorder struct {
	registry *prometheus.Registry

	sourceBytes    *prometheus.CounterVec
	sourceLines    *prometheus.CounterVec
	sourceErrors   *prometheus.CounterVec
	sourceDuration *prometheus.GaugeVec
	stageDuration  *prometheus.GaugeVec
	stageSize      *prometheus.GaugeVec
	roundRemoved   *prometheus.GaugeVec
	outputEntries  *prometheus.GaugeVec
	runDuration    prometheus.Gauge
	lastRun        prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sourceBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_bytes_total",
			Help:      "Bytes read from each source.",
		}, []string{"source"}),
		sourceLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_lines_total",
			Help:      "Lines read from each source by parse outcome.",
		}, []string{"source", "outcome"}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Sources that failed to download or parse.",
		}, []string{"source"}),
		sourceDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Time spent downloading and parsing each source.",
		}, []string{"source"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
		}, []string{"stage"}),
		stageSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_entries",
			Help:      "Working set size after each pipeline stage.",
		}, []string{"stage"}),
		roundRemoved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_round_removed",
			Help:      "Entries removed by each coverage round.",
		}, []string{"round"}),
		outputEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_entries",
			Help:      "Rules written to the output file by kind.",
		}, []string{"kind"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last merge run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last merge run finished.",
		}),
	}

	r.registry.MustRegister(
		r.sourceBytes,
		r.sourceLines,
		r.sourceErrors,
		r.sourceDuration,
		r.stageDuration,
		r.stageSize,
		r.roundRemoved,
		r.outputEntries,
		r.runDuration,
		r.lastRun,
	)
	return r
}

// Registry returns the registry the collectors live in
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// SourceStarted implements application.Observer
func (r *Recorder) SourceStarted(src entity.Source) {
	r.sourceBytes.WithLabelValues(src.URI).Add(0)
}

// SourceRead implements application.Observer
func (r *Recorder) SourceRead(uri string, n int) {
	r.sourceBytes.WithLabelValues(uri).Add(float64(n))
}

// SourceDone implements application.Observer
func (r *Recorder) SourceDone(report entity.SourceReport, err error) {
	if err != nil {
		r.sourceErrors.WithLabelValues(report.URI).Inc()
	}
	for outcome, n := range report.Reasons {
		r.sourceLines.WithLabelValues(report.URI, outcome).Add(float64(n))
	}
	r.sourceDuration.WithLabelValues(report.URI).Set(report.Duration.Seconds())
}

// StageDone implements application.Observer
func (r *Recorder) StageDone(stage entity.StageTiming) {
	r.stageDuration.WithLabelValues(stage.Stage).Set(stage.Duration.Seconds())
	r.stageSize.WithLabelValues(stage.Stage).Set(float64(stage.Size))
}

// RoundDone implements application.Observer
func (r *Recorder) RoundDone(round, window, removed int) {
	r.roundRemoved.WithLabelValues(strconv.Itoa(round)).Set(float64(removed))
}

// Finished implements application.Observer
func (r *Recorder) Finished(report *entity.Report) {
	r.outputEntries.WithLabelValues("block").Set(float64(report.FinalCount))
	r.outputEntries.WithLabelValues("allow").Set(float64(report.AllowCount))
	r.runDuration.Set(report.Elapsed.Seconds())
	r.lastRun.Set(float64(time.Now().Unix()))
}

// WriteToTextfile dumps the registry in the node_exporter textfile format
func (r *Recorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
