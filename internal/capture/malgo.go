package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
)

// MalgoSource captures from the default miniaudio input device. At most one
// Device is claimed at a time.
type MalgoSource struct {
	format Format
	logger *log.Logger

	mu      sync.Mutex
	claimed bool
}

// NewMalgoSource returns a source producing frames in the given format.
func NewMalgoSource(format Format, logger *log.Logger) *MalgoSource {
	return &MalgoSource{format: format, logger: logger}
}

// Open implements Source.
func (s *MalgoSource) Open() (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		return nil, ErrDeviceBusy
	}
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	s.claimed = true
	return &malgoDevice{source: s, mctx: mctx}, nil
}

// Probe implements Source.
func (s *MalgoSource) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer func() {
		if uerr := mctx.Uninit(); uerr != nil {
			// Best-effort teardown of the probe context.
			_ = uerr
		}
		mctx.Free()
	}()
	devices, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no input devices found", ErrDeviceUnavailable)
	}
	return nil
}

func (s *MalgoSource) release() {
	s.mu.Lock()
	s.claimed = false
	s.mu.Unlock()
}

type malgoDevice struct {
	source *MalgoSource
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	once   sync.Once
}

func (d *malgoDevice) Start(onFrames func(frame []byte)) error {
	f := d.source.format
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.PeriodSizeInFrames = uint32(f.PeriodFrames)
	cfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			onFrames(input)
		},
	}
	device, err := malgo.InitDevice(d.mctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	d.device = device
	d.source.logger.Debug("capture started", "rate", f.SampleRate, "channels", f.Channels, "period", f.PeriodFrames)
	return nil
}

func (d *malgoDevice) Stop() error {
	var stopErr error
	d.once.Do(func() {
		if d.device != nil {
			stopErr = d.device.Stop()
			d.device.Uninit()
		}
		if err := d.mctx.Uninit(); err != nil && stopErr == nil {
			stopErr = err
		}
		d.mctx.Free()
		d.source.release()
		d.source.logger.Debug("capture stopped")
	})
	return stopErr
}
