// ABOUTME: Builds the capture pipeline from configuration
// ABOUTME: Sources, mixer, recorder and looper wired over one event bus
package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/internal/capture"
	"github.com/Resonate-Protocol/resonate-capture/internal/config"
	"github.com/Resonate-Protocol/resonate-capture/internal/engine"
	"github.com/Resonate-Protocol/resonate-capture/internal/events"
	"github.com/Resonate-Protocol/resonate-capture/internal/looper"
	"github.com/Resonate-Protocol/resonate-capture/internal/mixer"
	"github.com/Resonate-Protocol/resonate-capture/internal/recorder"
	"github.com/Resonate-Protocol/resonate-capture/internal/telemetry"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/output"
)

// defaultToneHz is played as game audio when no game input is configured
const defaultToneHz = 440.0

// enginePeriod is the simulated engine callback cadence
const enginePeriod = 10 * time.Millisecond

// mixerConfig converts the audio section into mixer parameters
func mixerConfig(cfg *config.Config) (mixer.Config, error) {
	mode, err := audio.ParseLimiterMode(cfg.Audio.Limiter)
	if err != nil {
		return mixer.Config{}, err
	}

	mc := mixer.DefaultConfig()
	mc.SampleRate = cfg.Audio.SampleRate
	mc.BlockFrames = cfg.Audio.BlockFrames
	// The queue holds a full source buffer plus padding and the startup offset
	mc.QueueCapacity = 2 * cfg.Audio.BufferCapacity
	mc.OutputCapacity = cfg.Audio.BufferCapacity
	mc.DriftTolerance = cfg.Audio.DriftTolerance()
	mc.GameOffset = cfg.Audio.GameOffset()
	mc.Limiter = mode.Func()
	return mc, nil
}

// looperConfig converts the looper section into looper parameters
func looperConfig(cfg *config.Config) looper.Config {
	return looper.Config{
		SampleRate:        cfg.Audio.SampleRate,
		Channels:          audio.StereoChannels,
		BlockFrames:       cfg.Audio.BlockFrames,
		WarmupFrames:      cfg.Looper.WarmupFrames,
		LagSpikeThreshold: cfg.Looper.LagSpikeThreshold,
		MaxDesync:         cfg.Looper.MaxDesync,
		MinIncrement:      cfg.Looper.MinIncrement,
	}
}

// recorderConfig converts the encoder section into recorder parameters
func recorderConfig(cfg *config.Config) recorder.Config {
	return recorder.Config{
		Codec:   cfg.Encoder.Codec,
		Format:  audio.Stereo(cfg.Audio.SampleRate),
		Bitrate: cfg.Encoder.Bitrate,
	}
}

// pipeline is everything a capture session needs. The mixer and looper belong to
// the frame goroutine; producers and devices feed the sources from their own.
type pipeline struct {
	cfg  *config.Config
	sink telemetry.Sink
	bus  *events.Bus

	game *capture.Source
	mic  *capture.Source

	mixer    *mixer.Mixer
	recorder *recorder.Recorder
	looper   *looper.Looper
	video    *looper.FrameRateVideo

	producers []*engine.Producer
	devices   []*capture.Device
	hasMic    bool
}

// newPipeline builds sources, mixer, recorder and looper. Inputs are attached
// separately so the simulate command can drive its own.
func newPipeline(cfg *config.Config, sink telemetry.Sink, monitor output.Output) (*pipeline, error) {
	mc, err := mixerConfig(cfg)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		cfg:   cfg,
		sink:  sink,
		bus:   events.NewBus(),
		game:  capture.NewGameSource(cfg.Audio.BufferCapacity),
		mic:   capture.NewMicrophoneSource(cfg.Audio.BufferCapacity),
		video: looper.NewFrameRateVideo(float64(cfg.Looper.FrameRate)),
	}

	p.mixer, err = mixer.New(mc, p.game, p.mic)
	if err != nil {
		return nil, fmt.Errorf("failed to create mixer: %w", err)
	}
	p.mixer.SetGameAudioGain(float32(cfg.Audio.GameGain))
	p.mixer.SetMicrophoneGain(float32(cfg.Audio.MicGain))

	p.recorder, err = recorder.New(recorderConfig(cfg), p.bus, monitor)
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}

	p.looper, err = looper.New(looperConfig(cfg), p.recorder, p.video, p.mixer, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to create looper: %w", err)
	}
	p.looper.Attach(p.bus)

	return p, nil
}

// attachInputs opens the configured game input and microphone
func (p *pipeline) attachInputs() error {
	if err := p.attachGame(); err != nil {
		return err
	}
	if !p.cfg.Capture.Microphone {
		return nil
	}

	dev, err := capture.OpenDevice(capture.DeviceConfig{
		Kind:       capture.DeviceMicrophone,
		ID:         p.cfg.Capture.MicrophoneDevice,
		SampleRate: p.cfg.Audio.SampleRate,
		Channels:   audio.StereoChannels,
		Path:       capture.PathNative,
	}, p.mic, p.sink)
	if err != nil {
		return fmt.Errorf("failed to open microphone: %w", err)
	}
	p.devices = append(p.devices, dev)
	p.hasMic = true

	if err := p.mixer.SetMicrophoneCaptureActive(true); err != nil {
		log.Printf("Warning: microphone disabled: %v", err)
	}
	return nil
}

func (p *pipeline) attachGame() error {
	c := p.cfg.Capture
	switch {
	case c.GameFile != "":
		reader, err := decode.Open(c.GameFile, true)
		if err != nil {
			return fmt.Errorf("failed to open game audio file: %w", err)
		}
		log.Printf("Playing %s as game audio", c.GameFile)
		return p.addProducer(reader, capture.PathMiddleware)

	case c.Loopback || c.GameDevice != "":
		kind := capture.DeviceMicrophone
		if c.Loopback {
			kind = capture.DeviceLoopback
		}
		dev, err := capture.OpenDevice(capture.DeviceConfig{
			Kind:       kind,
			ID:         c.GameDevice,
			SampleRate: p.cfg.Audio.SampleRate,
			Channels:   audio.StereoChannels,
			Path:       capture.PathNative,
		}, p.game, p.sink)
		if err != nil {
			return fmt.Errorf("failed to open game audio device: %w", err)
		}
		p.devices = append(p.devices, dev)
		return nil

	default:
		hz := c.ToneHz
		if hz <= 0 {
			hz = defaultToneHz
			log.Printf("No game audio input configured, using %.0f Hz test tone", hz)
		}
		return p.addProducer(engine.NewTone(hz, audio.Stereo(p.cfg.Audio.SampleRate)), capture.PathNative)
	}
}

func (p *pipeline) addProducer(reader decode.Reader, path capture.Path) error {
	prod, err := engine.NewProducer(engine.Config{
		Path:       path,
		Period:     enginePeriod,
		OutputRate: p.cfg.Audio.SampleRate,
	}, reader, p.game)
	if err != nil {
		_ = reader.Close()
		return fmt.Errorf("failed to create game audio producer: %w", err)
	}
	p.producers = append(p.producers, prod)
	return nil
}

// startDevices starts every opened capture device
func (p *pipeline) startDevices() error {
	for _, dev := range p.devices {
		if err := dev.Start(); err != nil {
			return err
		}
	}
	return nil
}

// tick advances the video pacer and the looper by one frame
func (p *pipeline) tick(delta time.Duration) {
	p.video.Advance(delta.Seconds())
	p.looper.Tick(delta)
}

// close releases inputs. The recorder must already be stopped.
func (p *pipeline) close() {
	p.looper.Detach()
	for _, dev := range p.devices {
		dev.Close()
	}
	for _, prod := range p.producers {
		if err := prod.Close(); err != nil {
			log.Printf("Warning: failed to close producer: %v", err)
		}
	}
}
