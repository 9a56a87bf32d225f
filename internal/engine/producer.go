// ABOUTME: Callback-cadence audio producer
// ABOUTME: Pulls from a decoder or generator on its own goroutine and writes into a capture source
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/internal/capture"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/resample"
)

// Config describes how a producer feeds its source
type Config struct {
	Path capture.Path
	// Period is the engine callback cadence
	Period time.Duration
	// OutputRate is the mixer sample rate; input at other rates is resampled
	OutputRate int
}

// Producer emulates an audio engine's output callback: every period it reads the
// matching amount of audio and hands it to the capture source.
type Producer struct {
	cfg       Config
	reader    decode.Reader
	source    *capture.Source
	resampler *resample.Resampler

	frameDebt float64 // fractional input frames carried between callbacks
	in        []float32
	out       []float32

	produced atomic.Int64 // output frames written
	rejected atomic.Int64 // callbacks whose write was refused

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewProducer creates a producer writing reader's audio into source
func NewProducer(cfg Config, reader decode.Reader, source *capture.Source) (*Producer, error) {
	if reader == nil || source == nil {
		return nil, fmt.Errorf("producer requires a reader and a source")
	}
	if cfg.Period <= 0 {
		cfg.Period = 10 * time.Millisecond
	}
	format := reader.Format()
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid reader format: %d Hz, %d channels", format.SampleRate, format.Channels)
	}
	if cfg.OutputRate <= 0 {
		cfg.OutputRate = format.SampleRate
	}

	p := &Producer{
		cfg:       cfg,
		reader:    reader,
		source:    source,
		resampler: resample.New(format.SampleRate, cfg.OutputRate, format.Channels),
		stopChan:  make(chan struct{}),
	}
	if !p.resampler.Passthrough() {
		log.Printf("%s producer resampling %d Hz -> %d Hz", source.Name(), format.SampleRate, cfg.OutputRate)
	}
	return p, nil
}

// Run calls Step on every period until ctx is done, Stop is called or the reader ends
func (p *Producer) Run(ctx context.Context) error {
	log.Printf("%s producer starting (%s path, %v callbacks)", p.source.Name(), p.cfg.Path, p.cfg.Period)

	ticker := time.NewTicker(p.cfg.Period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			err := p.Step(now.Sub(last))
			last = now
			if errors.Is(err, io.EOF) {
				log.Printf("%s producer reached end of stream", p.source.Name())
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s producer: %w", p.source.Name(), err)
			}
		case <-p.stopChan:
			log.Printf("%s producer stopping", p.source.Name())
			return nil
		case <-ctx.Done():
			log.Printf("%s producer stopping", p.source.Name())
			return nil
		}
	}
}

// Stop ends Run
func (p *Producer) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
}

// Step produces elapsed worth of audio as one engine callback
func (p *Producer) Step(elapsed time.Duration) error {
	if elapsed <= 0 {
		return nil
	}
	format := p.reader.Format()

	p.frameDebt += elapsed.Seconds() * float64(format.SampleRate)
	frames := int(p.frameDebt + 1e-9) // absorb float error in the accumulated debt
	if frames == 0 {
		return nil
	}
	p.frameDebt -= float64(frames)

	need := frames * format.Channels
	if cap(p.in) < need {
		p.in = make([]float32, need)
	}
	in := p.in[:need]

	n, readErr := p.reader.Read(in)
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return readErr
	}
	n -= n % format.Channels

	p.out = p.resampler.Resample(p.out[:0], in[:n])
	if len(p.out) > 0 {
		if err := p.source.Write(p.cfg.Path, p.out, format.Channels); err != nil {
			if capture.KindOf(err) == capture.KindUnsupportedChannels {
				return err
			}
			p.rejected.Add(1)
		} else {
			p.produced.Add(int64(len(p.out) / format.Channels))
		}
	}

	return readErr
}

// Produced returns output frames delivered to the source
func (p *Producer) Produced() int64 { return p.produced.Load() }

// Rejected returns how many callbacks were dropped by a full source buffer
func (p *Producer) Rejected() int64 { return p.rejected.Load() }

// Close closes the reader
func (p *Producer) Close() error {
	p.Stop()
	return p.reader.Close()
}
