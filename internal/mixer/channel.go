// ABOUTME: Per-source mixer state
// ABOUTME: Ingest queue, gain, mute, running counter and lock-free level meter
package mixer

import (
	"math"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-capture/internal/capture"
	drift "github.com/Resonate-Protocol/resonate-capture/internal/sync"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

type channel struct {
	source  *capture.Source
	queue   *audio.SampleBuffer
	tracker *drift.Tracker

	gain  float32
	muted bool

	// total counts samples per channel enqueued this session, padding included
	total   int64
	padded  int64
	dropped int64
	// offset is startup silence inside total that the capture clock does not account for
	offset int64

	levelBits atomic.Uint32
}

func newChannel(source *capture.Source, cfg Config) *channel {
	return &channel{
		source:  source,
		queue:   audio.NewSampleBuffer(cfg.QueueCapacity),
		tracker: drift.NewTracker(source.Name(), cfg.SampleRate, cfg.DriftTolerance),
		gain:    1,
	}
}

func (c *channel) reset() {
	c.queue.Clear()
	c.tracker.Reset()
	c.total = 0
	c.padded = 0
	c.offset = 0
	c.levelBits.Store(0)
}

// updateLevel folds rms into the running average of consecutive measurements
func (c *channel) updateLevel(rms float32) {
	prev := math.Float32frombits(c.levelBits.Load())
	c.levelBits.Store(math.Float32bits((prev + rms) / 2))
}

func (c *channel) level() float32 {
	return math.Float32frombits(c.levelBits.Load())
}
