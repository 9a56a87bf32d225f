package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/resonate-capture/internal/logging"
	"github.com/Resonate-Protocol/resonate-capture/internal/telemetry"
	"github.com/Resonate-Protocol/resonate-capture/internal/ui"
	"github.com/Resonate-Protocol/resonate-capture/internal/version"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/output"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture game and microphone audio to a file",
	Long: `Record mixes game audio and the microphone into stereo blocks and encodes
them once per frame into an RCAP container (Opus or PCM packets).

Game audio comes from --game-file, --tone, --loopback or --game-device; without
any of them a 440 Hz test tone is used.`,
	RunE: runRecord,
}

var recordBindings = []flagBinding{
	{"encoder.output", "output"},
	{"encoder.codec", "codec"},
	{"encoder.bitrate", "bitrate"},
	{"encoder.monitor", "monitor"},
	{"capture.game_file", "game-file"},
	{"capture.tone_hz", "tone"},
	{"capture.loopback", "loopback"},
	{"capture.game_device", "game-device"},
	{"capture.microphone", "microphone"},
	{"capture.microphone_device", "mic-device"},
	{"audio.game_offset_ms", "game-offset-ms"},
	{"audio.limiter", "limiter"},
	{"looper.frame_rate", "frame-rate"},
	{"logging.file", "log-file"},
	{"logging.tui", "tui"},
}

func init() {
	f := recordCmd.Flags()
	f.StringP("output", "o", "capture.rcap", "Output file")
	f.String("codec", "opus", "Audio codec (opus, pcm)")
	f.Int("bitrate", 128000, "Opus bitrate in bits per second")
	f.Bool("monitor", false, "Play the mix through the default output device")
	f.String("game-file", "", "Audio file (MP3, FLAC) played as game audio")
	f.Float64("tone", 0, "Test tone frequency in Hz used as game audio")
	f.Bool("loopback", false, "Capture game audio from a playback device")
	f.String("game-device", "", "Game audio device ID or name")
	f.Bool("microphone", true, "Mix in the microphone")
	f.String("mic-device", "", "Microphone device ID or name")
	f.Int("game-offset-ms", 0, "Startup offset for game audio in milliseconds")
	f.String("limiter", "soft", "Limiter (soft, hard, bypass)")
	f.Int("frame-rate", 60, "Frame rate of the encode loop")
	f.String("log-file", "resonate-capture.log", "Log file path")
	f.Bool("tui", true, "Show the dashboard; logs go to stdout when disabled")

	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, recordBindings)
	if err != nil {
		return err
	}

	logCloser, err := logging.Setup(logging.Options{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Stdout:     !cfg.Logging.TUI,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	log.Printf("Starting %s", version.String())

	var monitor output.Output
	if cfg.Encoder.Monitor {
		monitor = output.NewOto()
	}

	p, err := newPipeline(cfg, telemetry.LogSink{}, monitor)
	if err != nil {
		return err
	}
	defer p.close()

	if err := p.attachInputs(); err != nil {
		return err
	}

	f, err := os.Create(cfg.Encoder.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := p.recorder.Start(f); err != nil {
		_ = f.Close()
		return err
	}
	defer p.recorder.Stop()

	if err := p.startDevices(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var controls *ui.Controls
	var dash *ui.Dashboard
	if cfg.Logging.TUI {
		controls = ui.NewControls()
		dash = ui.NewDashboard(ui.NewModel(controls, cfg.Encoder.Output, cfg.Encoder.Codec, p.mixer.MicrophoneCaptureActive()))
	} else {
		log.Printf("Recording to %s, press Ctrl-C to stop", cfg.Encoder.Output)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, prod := range p.producers {
		g.Go(func() error { return prod.Run(gctx) })
	}
	g.Go(func() error {
		defer cancel()
		return p.runFrames(gctx, cfg.Looper.FrameInterval(), controls, dash)
	})
	if dash != nil {
		g.Go(func() error {
			defer cancel()
			return dash.Run()
		})
		g.Go(func() error {
			<-gctx.Done()
			dash.Quit()
			return nil
		})
	}

	err = g.Wait()
	data := p.recorder.SessionData()
	log.Printf("Recorded %.3fs of audio to %s", float64(data.EncodedAudioSamplesPerChannel)/float64(cfg.Audio.SampleRate), cfg.Encoder.Output)
	return err
}
