// Package capture opens microphone input and delivers raw PCM frames to a
// callback.
package capture

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable is returned when the capture device cannot be
	// opened or started.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrDeviceBusy is returned when another session holds the device.
	ErrDeviceBusy = fmt.Errorf("%w: device is in use by another session", ErrDeviceUnavailable)
)

// Format describes the PCM stream: signed 16-bit little-endian samples.
type Format struct {
	SampleRate   int
	Channels     int
	PeriodFrames int
}

// DefaultFormat is 16 kHz mono with half-second periods.
func DefaultFormat() Format {
	return Format{SampleRate: 16000, Channels: 1, PeriodFrames: 8000}
}

// Device is one claimed capture stream.
type Device interface {
	// Start begins delivering frames to onFrames. onFrames runs on the
	// backend's audio thread and must not block.
	Start(onFrames func(frame []byte)) error
	// Stop halts capture and releases the claim. Safe to call more than once.
	Stop() error
}

// Source hands out exclusive Devices.
type Source interface {
	// Open claims the device. It fails with ErrDeviceBusy while another
	// claim is held.
	Open() (Device, error)
	// Probe checks that an input device is reachable without claiming it.
	Probe(ctx context.Context) error
}
