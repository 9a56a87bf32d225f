// ABOUTME: Mixer statistics snapshot
// ABOUTME: Feeds the dashboard and the simulate command
package mixer

import (
	drift "github.com/Resonate-Protocol/resonate-capture/internal/sync"
)

// SourceStats describes one source
type SourceStats struct {
	Name     string
	Active   bool
	Muted    bool
	Gain     float32
	Level    float32
	Enqueued int64 // samples per channel this session, padding included
	Padded   int64 // silence inserted by drift correction, per channel
	Queued   int   // samples waiting in the queue
	Dropped  int64 // samples lost to full source buffers or a full queue
	Drift    drift.Stats
}

// Stats is a snapshot of the mixer
type Stats struct {
	Capturing   bool
	Game        SourceStats
	Microphone  SourceStats
	Blocks      int64
	Truncations int
	PendingTrim int
}

// Stats returns a snapshot. Call from the frame goroutine.
func (m *Mixer) Stats() Stats {
	return Stats{
		Capturing:   m.capturing,
		Game:        m.sourceStats(m.game, m.capturing),
		Microphone:  m.sourceStats(m.mic, m.capturing && m.micActive),
		Blocks:      m.blocks,
		Truncations: m.truncations,
		PendingTrim: m.pendingTrim,
	}
}

func (m *Mixer) sourceStats(ch *channel, active bool) SourceStats {
	return SourceStats{
		Name:     ch.source.Name(),
		Active:   active,
		Muted:    ch.muted,
		Gain:     ch.gain,
		Level:    ch.level(),
		Enqueued: ch.total,
		Padded:   ch.padded,
		Queued:   ch.queue.Len(),
		Dropped:  ch.dropped + ch.source.Dropped(),
		Drift:    ch.tracker.GetStats(),
	}
}
