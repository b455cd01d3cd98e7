package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("resolve", time.Millisecond)
	r.IncStageResult("resolve", ResultSuccess)
	r.ObserveRunDuration("both", time.Second)
	r.IncRunOutcome("both", "SUCCESS")
	r.AddImages(ImageCopied, 1)
	r.IncPublishResult(PublishCommitted)
	r.ObservePreviewStartup(time.Second, false)
}

func TestOrNoop(t *testing.T) {
	assert.IsType(t, NoopRecorder{}, OrNoop(nil))
	pr := NewPrometheusRecorder(nil)
	assert.Same(t, pr, OrNoop(pr))
}
