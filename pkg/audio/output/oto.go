// ABOUTME: Oto-based audio output implementation
// ABOUTME: Non-blocking monitor playback with software volume control using oto library
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// monitorQueueDepth is how many pending writes may wait for the device
const monitorQueueDepth = 32

// Oto output implementation using oto library
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	queue      chan []byte
	done       chan struct{}
	wg         sync.WaitGroup
	sampleRate int
	channels   int
	volume     int
	muted      bool
	ready      bool
	dropped    int64
	mu         sync.Mutex
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{
		volume: 100,
	}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// If already initialized with same format, reuse the existing context
	if o.otoCtx != nil && o.sampleRate == sampleRate && o.channels == channels {
		log.Printf("Monitor output already initialized with same format, reusing context")
		return nil
	}

	// oto only allows one context per process
	if o.otoCtx != nil {
		return fmt.Errorf("monitor format change (%dHz %dch -> %dHz %dch) not supported by oto",
			o.sampleRate, o.channels, sampleRate, channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	// Persistent player fed through a pipe
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()

	o.queue = make(chan []byte, monitorQueueDepth)
	o.done = make(chan struct{})
	o.wg.Add(1)
	go o.pump()

	o.ready = true

	log.Printf("Monitor output initialized: %dHz, %d channels", sampleRate, channels)

	return nil
}

// pump moves queued blocks into the pipe; pipe writes block until oto reads
func (o *Oto) pump() {
	defer o.wg.Done()
	for {
		select {
		case data := <-o.queue:
			if _, err := o.pipeWriter.Write(data); err != nil {
				log.Printf("Warning: monitor pipe write failed: %v", err)
				return
			}
		case <-o.done:
			return
		}
	}
}

// Write queues samples for playback, dropping them if the device is behind
func (o *Oto) Write(samples []float32) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ready {
		return fmt.Errorf("output not initialized")
	}

	data := encodeS16(samples, getVolumeMultiplier(o.volume, o.muted))

	select {
	case o.queue <- data:
	default:
		o.dropped++
		if o.dropped == 1 || o.dropped%100 == 0 {
			log.Printf("Warning: monitor output falling behind, dropped %d blocks", o.dropped)
		}
	}

	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done != nil {
		close(o.done)
		o.done = nil
	}
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
	}
	o.wg.Wait()
	o.pipeWriter = nil

	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
	}
	o.ready = false
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	o.volume = volume
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = muted
}

// encodeS16 applies the multiplier and packs samples as s16le
func encodeS16(samples []float32, multiplier float32) []byte {
	output := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(s*multiplier)))
	}
	return output
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float32 {
	if muted {
		return 0.0
	}
	return float32(volume) / 100.0
}
