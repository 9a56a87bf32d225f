// ABOUTME: Capture device backed by miniaudio via malgo
// ABOUTME: Feeds a Source from a microphone or a WASAPI loopback of the game's output
package capture

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/Resonate-Protocol/resonate-capture/internal/telemetry"
	"github.com/gen2brain/malgo"
)

// DeviceKind selects how a device captures audio
type DeviceKind int

const (
	// DeviceMicrophone captures from an input device
	DeviceMicrophone DeviceKind = iota
	// DeviceLoopback captures what a playback device is rendering (WASAPI only)
	DeviceLoopback
)

func (k DeviceKind) String() string {
	if k == DeviceLoopback {
		return "loopback"
	}
	return "microphone"
}

// DeviceConfig describes one capture device
type DeviceConfig struct {
	Kind DeviceKind
	// ID is a hex device ID or a device name; empty selects the system default
	ID         string
	SampleRate int
	// Channels requested from the device; miniaudio converts to this layout
	Channels int
	Path     Path
}

// DeviceInfo describes an enumerated device
type DeviceInfo struct {
	ID        string
	Name      string
	Input     bool
	IsDefault bool
}

// Device owns a malgo context and device writing into a Source
type Device struct {
	cfg    DeviceConfig
	source *Source
	sink   telemetry.Sink

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu      sync.Mutex
	running bool
	scratch []float32
}

// OpenDevice initializes a device that will write into source once started
func OpenDevice(cfg DeviceConfig, source *Source, sink telemetry.Sink) (*Device, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", cfg.SampleRate)
	}
	if cfg.Channels == 0 {
		cfg.Channels = 2
	}
	if _, err := validateChannels(cfg.Channels); err != nil {
		return nil, err
	}

	d := &Device{cfg: cfg, source: source, sink: sink}

	ctx, err := newContext(sink)
	if err != nil {
		return nil, NewError(KindDevice, "failed to init audio context", err)
	}
	d.ctx = ctx

	deviceType := malgo.Capture
	if cfg.Kind == DeviceLoopback {
		deviceType = malgo.Loopback
	}

	deviceConfig := malgo.DefaultDeviceConfig(deviceType)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)

	if cfg.ID != "" {
		id, err := d.resolveID(cfg.ID)
		if err != nil {
			d.Close()
			return nil, err
		}
		if cfg.Kind == DeviceLoopback {
			deviceConfig.Playback.DeviceID = id.Pointer()
		} else {
			deviceConfig.Capture.DeviceID = id.Pointer()
		}
	}

	callbacks := malgo.DeviceCallbacks{Data: d.onData}
	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		d.Close()
		return nil, NewError(KindDevice, fmt.Sprintf("failed to init %s device", cfg.Kind), err)
	}
	d.device = device

	log.Printf("Opened %s capture device (%d Hz, %d channels) for %s source",
		cfg.Kind, cfg.SampleRate, cfg.Channels, source.Name())
	return d, nil
}

func validateChannels(channels int) (int, error) {
	switch channels {
	case 1, 2, 6:
		return channels, nil
	default:
		return 0, NewError(KindUnsupportedChannels, fmt.Sprintf("device channels %d", channels), nil)
	}
}

// newContext routes miniaudio's log callback into the telemetry sink
func newContext(sink telemetry.Sink) (*malgo.AllocatedContext, error) {
	return malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		message = strings.TrimSpace(message)
		if message == "" {
			return
		}
		if sink != nil {
			sink.Report(telemetry.Event{Name: "malgo_log", Fields: map[string]any{"message": message}})
		}
	})
}

func (d *Device) resolveID(idOrName string) (malgo.DeviceID, error) {
	deviceType := malgo.Capture
	if d.cfg.Kind == DeviceLoopback {
		deviceType = malgo.Playback
	}
	infos, err := d.ctx.Devices(deviceType)
	if err != nil {
		return malgo.DeviceID{}, NewError(KindDevice, "failed to list devices", err)
	}
	for _, info := range infos {
		if hex.EncodeToString(info.ID[:]) == idOrName || info.Name() == idOrName {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, NewError(KindDevice, fmt.Sprintf("device %q not found", idOrName), nil)
}

// onData runs on the miniaudio thread
func (d *Device) onData(_, input []byte, frameCount uint32) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error: %s capture callback panic: %v", d.cfg.Kind, r)
			if d.sink != nil {
				d.sink.Report(telemetry.Event{
					Name: "capture_callback_panic",
					Err:  fmt.Errorf("%v", r),
					Fields: map[string]any{
						"source": d.source.Name(),
					},
				})
			}
		}
	}()

	samples := int(frameCount) * d.cfg.Channels
	if len(input) < samples*4 {
		samples = len(input) / 4
	}
	if cap(d.scratch) < samples {
		d.scratch = make([]float32, samples)
	}
	buf := d.scratch[:samples]
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
	}

	// Full-buffer drops are logged by the source
	_ = d.source.Write(d.cfg.Path, buf, d.cfg.Channels)
}

// Start begins delivering audio
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}
	if err := d.device.Start(); err != nil {
		return NewError(KindDevice, fmt.Sprintf("failed to start %s device", d.cfg.Kind), err)
	}
	d.running = true
	return nil
}

// Stop halts delivery; the device can be started again
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false
	if err := d.device.Stop(); err != nil {
		return NewError(KindDevice, fmt.Sprintf("failed to stop %s device", d.cfg.Kind), err)
	}
	return nil
}

// Close releases the device and its context
func (d *Device) Close() {
	_ = d.Stop()
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
}

// ListDevices enumerates capture and playback devices. Playback devices are the
// valid targets for loopback capture.
func ListDevices(sink telemetry.Sink) ([]DeviceInfo, error) {
	ctx, err := newContext(sink)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	var devices []DeviceInfo
	for _, input := range []bool{true, false} {
		deviceType, label := malgo.Playback, "playback"
		if input {
			deviceType, label = malgo.Capture, "capture"
		}
		infos, err := ctx.Devices(deviceType)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s devices: %w", label, err)
		}
		for _, info := range infos {
			devices = append(devices, DeviceInfo{
				ID:        hex.EncodeToString(info.ID[:]),
				Name:      info.Name(),
				Input:     input,
				IsDefault: info.IsDefault != 0,
			})
		}
	}
	return devices, nil
}
