package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// ImageResult labels per-image transform results.
type ImageResult string

const (
	ImageCopied  ImageResult = "copied"
	ImageMissing ImageResult = "missing"
	ImageFailed  ImageResult = "copy_failed"
)

// PublishResult labels git publish sequence results.
type PublishResult string

const (
	PublishCommitted PublishResult = "committed"
	PublishUpToDate  PublishResult = "up_to_date"
	PublishFailed    PublishResult = "failed"
)

// Recorder defines the observability hooks used by the pipeline and the
// orchestrator.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveRunDuration(mode string, d time.Duration)
	IncRunOutcome(mode string, status string)
	AddImages(result ImageResult, n int)
	IncPublishResult(result PublishResult)
	ObservePreviewStartup(d time.Duration, ready bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(string, time.Duration)   {}
func (NoopRecorder) IncRunOutcome(string, string)               {}
func (NoopRecorder) AddImages(ImageResult, int)                 {}
func (NoopRecorder) IncPublishResult(PublishResult)             {}
func (NoopRecorder) ObservePreviewStartup(time.Duration, bool)  {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
