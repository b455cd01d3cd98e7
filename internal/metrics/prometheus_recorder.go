package metrics

import (
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "jekyllpress"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg             *prom.Registry
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	runDuration     *prom.HistogramVec
	runOutcomes     *prom.CounterVec
	images          *prom.CounterVec
	publishResults  *prom.CounterVec
	previewStartup  *prom.HistogramVec
	lastRunUnixTime prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg, or on a
// fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual conversion stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.runDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Total duration of one invocation",
		Buckets:   prom.DefBuckets,
	}, []string{"mode"})
	pr.runOutcomes = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "run_outcomes_total",
		Help:      "Invocations by mode and final status",
	}, []string{"mode", "status"})
	pr.images = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "images_total",
		Help:      "Image embeds by transform result",
	}, []string{"result"})
	pr.publishResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "publish_results_total",
		Help:      "Git publish sequence results",
	}, []string{"result"})
	pr.previewStartup = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "preview_startup_seconds",
		Help:      "Time until the preview server accepted connections",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"result"})
	pr.lastRunUnixTime = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last completed invocation",
	})
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.runDuration, pr.runOutcomes,
		pr.images, pr.publishResults, pr.previewStartup, pr.lastRunUnixTime)
	return pr
}

// Registry exposes the underlying registry.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(mode string, d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(mode string, status string) {
	if p == nil {
		return
	}
	p.runOutcomes.WithLabelValues(mode, status).Inc()
	p.lastRunUnixTime.SetToCurrentTime()
}

func (p *PrometheusRecorder) AddImages(result ImageResult, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.images.WithLabelValues(string(result)).Add(float64(n))
}

func (p *PrometheusRecorder) IncPublishResult(result PublishResult) {
	if p == nil {
		return
	}
	p.publishResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObservePreviewStartup(d time.Duration, ready bool) {
	if p == nil {
		return
	}
	res := "timeout"
	if ready {
		res = "ready"
	}
	p.previewStartup.WithLabelValues(res).Observe(d.Seconds())
}

// WriteTextfile writes the current metric values in the text exposition
// format. The file is written atomically; missing parent directories are created.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return prom.WriteToTextfile(path, p.reg)
}
