// ABOUTME: Deterministic capture run on a virtual clock
// ABOUTME: Injects frame hitches and engine callback starvation and reports alignment and drift
package cli

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/internal/capture"
	"github.com/Resonate-Protocol/resonate-capture/internal/config"
	"github.com/Resonate-Protocol/resonate-capture/internal/engine"
	"github.com/Resonate-Protocol/resonate-capture/internal/logging"
	"github.com/Resonate-Protocol/resonate-capture/internal/looper"
	"github.com/Resonate-Protocol/resonate-capture/internal/mixer"
	"github.com/Resonate-Protocol/resonate-capture/internal/telemetry"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/spf13/cobra"
)

// SimulationConfig describes one virtual-clock run
type SimulationConfig struct {
	Duration  time.Duration
	FrameRate int
	// HitchEvery stalls every Nth frame by HitchLength; 0 disables hitches
	HitchEvery  int
	HitchLength time.Duration
	// StarveEvery skips every Nth engine callback; 0 disables starvation
	StarveEvery int
	GameHz      float64
	MicHz       float64 // mono microphone tone; 0 leaves the microphone off
}

// SimulationReport summarizes a run
type SimulationReport struct {
	Duration  time.Duration
	Frames    int
	Callbacks int
	Starved   int
	Rejected  int64 // engine callbacks refused by a full source buffer
	Bytes     int64 // container bytes written
	Telemetry int

	Session looper.SessionData
	Mixer   mixer.Stats
	Looper  looper.Stats
}

// BlockAligned reports whether every encoded sample belongs to a whole block
func (r SimulationReport) BlockAligned(blockFrames int) bool {
	return r.Session.EncodedAudioSamplesPerChannel%int64(blockFrames) == 0
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// runSimulation records synthetic sources with the real mixer, looper and recorder.
// Engine callbacks and frames interleave on a virtual clock; callbacks win ties.
func runSimulation(cfg *config.Config, sc SimulationConfig, sink telemetry.Sink) (SimulationReport, error) {
	if sc.Duration <= 0 || sc.FrameRate < 1 {
		return SimulationReport{}, fmt.Errorf("simulation needs a positive duration and frame rate")
	}

	events := &telemetry.Recorder{}
	p, err := newPipeline(cfg, telemetry.Fanout{sink, events}, nil)
	if err != nil {
		return SimulationReport{}, err
	}
	defer p.close()

	gameHz := sc.GameHz
	if gameHz <= 0 {
		gameHz = defaultToneHz
	}
	if err := p.addProducer(engine.NewTone(gameHz, audio.Stereo(cfg.Audio.SampleRate)), capture.PathNative); err != nil {
		return SimulationReport{}, err
	}

	if sc.MicHz > 0 {
		mono := audio.Format{SampleRate: cfg.Audio.SampleRate, Channels: 1}
		prod, err := engine.NewProducer(engine.Config{
			Path:       capture.PathNative,
			Period:     enginePeriod,
			OutputRate: cfg.Audio.SampleRate,
		}, engine.NewTone(sc.MicHz, mono), p.mic)
		if err != nil {
			return SimulationReport{}, err
		}
		p.producers = append(p.producers, prod)
		p.hasMic = true
		if err := p.mixer.SetMicrophoneCaptureActive(true); err != nil {
			return SimulationReport{}, err
		}
	}

	out := &countingWriter{}
	if err := p.recorder.Start(out); err != nil {
		return SimulationReport{}, err
	}

	report := SimulationReport{Duration: sc.Duration}
	frameInterval := time.Second / time.Duration(sc.FrameRate)

	var nextFrame, nextCallback, lastFrame time.Duration
	for {
		if nextCallback <= nextFrame {
			if nextCallback >= sc.Duration {
				break
			}
			report.Callbacks++
			if sc.StarveEvery > 0 && report.Callbacks%sc.StarveEvery == 0 {
				report.Starved++
			} else {
				for _, prod := range p.producers {
					if err := prod.Step(enginePeriod); err != nil {
						p.recorder.Stop()
						return report, fmt.Errorf("engine callback at %v: %w", nextCallback, err)
					}
				}
			}
			nextCallback += enginePeriod
			continue
		}

		if nextFrame >= sc.Duration {
			break
		}
		p.tick(nextFrame - lastFrame)
		lastFrame = nextFrame
		report.Frames++

		if done, err := p.sessionDone(); done {
			report.fill(p, out, events)
			return report, err
		}

		step := frameInterval
		if sc.HitchEvery > 0 && report.Frames%sc.HitchEvery == 0 {
			step += sc.HitchLength
		}
		nextFrame += step
	}

	// Snapshot before the stop resets the mixer
	report.fill(p, out, events)
	p.recorder.Stop()
	p.tick(0)
	report.Session = p.recorder.SessionData()
	report.Bytes = out.n
	report.Looper.State = p.looper.State()
	return report, nil
}

func (r *SimulationReport) fill(p *pipeline, out *countingWriter, events *telemetry.Recorder) {
	for _, prod := range p.producers {
		r.Rejected += prod.Rejected()
	}
	r.Bytes = out.n
	r.Telemetry = len(events.Events())
	r.Session = p.recorder.SessionData()
	r.Mixer = p.mixer.Stats()
	r.Looper = p.looper.Stats()
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a capture session on a virtual clock",
	Long: `Simulate records synthetic game and microphone tones through the real mixer,
looper and encoder on a virtual clock, with optional frame hitches and engine
callback starvation, and prints alignment and drift statistics. No audio
devices are used.`,
	RunE: runSimulate,
}

var simulateBindings = []flagBinding{
	{"encoder.codec", "codec"},
	{"audio.game_offset_ms", "game-offset-ms"},
	{"audio.drift_tolerance_ms", "drift-tolerance-ms"},
	{"audio.limiter", "limiter"},
	{"logging.file", "log-file"},
}

func init() {
	f := simulateCmd.Flags()
	f.Duration("duration", 10*time.Second, "Virtual capture length")
	f.Int("fps", 60, "Virtual frame rate")
	f.Int("hitch-every", 240, "Stall every Nth frame (0 disables)")
	f.Duration("hitch", 1200*time.Millisecond, "Length of each frame stall")
	f.Int("starve-every", 0, "Skip every Nth engine callback (0 disables)")
	f.Float64("game-hz", defaultToneHz, "Game tone frequency")
	f.Float64("mic-hz", 220, "Microphone tone frequency (0 disables the microphone)")
	f.String("codec", "opus", "Audio codec (opus, pcm)")
	f.Int("game-offset-ms", 0, "Startup offset for game audio in milliseconds")
	f.Int("drift-tolerance-ms", 100, "Drift tolerance in milliseconds")
	f.String("limiter", "soft", "Limiter (soft, hard, bypass)")
	f.String("log-file", "", "Log file path (logs are discarded when empty)")
	f.BoolP("verbose", "v", false, "Also log to stdout")

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, simulateBindings)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logFile := ""
	if cmd.Flags().Changed("log-file") {
		logFile = cfg.Logging.File
	}
	logCloser, err := logging.Setup(logging.Options{
		File:       logFile,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Stdout:     verbose,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	var sc SimulationConfig
	flags := cmd.Flags()
	sc.Duration, _ = flags.GetDuration("duration")
	sc.FrameRate, _ = flags.GetInt("fps")
	sc.HitchEvery, _ = flags.GetInt("hitch-every")
	sc.HitchLength, _ = flags.GetDuration("hitch")
	sc.StarveEvery, _ = flags.GetInt("starve-every")
	sc.GameHz, _ = flags.GetFloat64("game-hz")
	sc.MicHz, _ = flags.GetFloat64("mic-hz")

	report, err := runSimulation(cfg, sc, telemetry.LogSink{})
	printReport(cmd.OutOrStdout(), cfg, report)
	if err != nil {
		log.Printf("Error: simulation failed: %v", err)
	}
	return err
}

func printReport(w io.Writer, cfg *config.Config, r SimulationReport) {
	seconds := float64(r.Session.EncodedAudioSamplesPerChannel) / float64(cfg.Audio.SampleRate)
	aligned := "yes"
	if !r.BlockAligned(cfg.Audio.BlockFrames) {
		aligned = "NO"
	}

	fmt.Fprintf(w, "Simulated %v: %d frames, %d engine callbacks (%d starved, %d rejected)\n",
		r.Duration, r.Frames, r.Callbacks, r.Starved, r.Rejected)
	fmt.Fprintf(w, "Encoded:   %.3fs audio in %d blocks, %d bytes, block aligned: %s\n",
		seconds, r.Mixer.Blocks, r.Bytes, aligned)
	fmt.Fprintf(w, "Looper:    %s at %.3fs, %d lag spikes, %d corrections, %d failures\n",
		r.Looper.State, r.Looper.VideoTime, r.Looper.LagSpikes, r.Looper.Corrections, r.Looper.Failures)
	for _, s := range []mixer.SourceStats{r.Mixer.Game, r.Mixer.Microphone} {
		fmt.Fprintf(w, "%-10s %d enqueued, %d padded in %d pads, %d ahead warnings, %d dropped, max behind %d\n",
			s.Name+":", s.Enqueued, s.Padded, s.Drift.Pads, s.Drift.AheadWarnings, s.Dropped, s.Drift.MaxBehind)
	}
	fmt.Fprintf(w, "Telemetry: %d events\n", r.Telemetry)
}
