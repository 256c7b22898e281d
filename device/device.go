// Package device resolves a compute backend and owns the resulting OCCA
// device handle.
//
// Resolution walks an ordered backend preference list and takes the first
// backend that initializes. The OpenCL entry pins platform 0 / device 0, so
// on an OpenCL-capable host the first platform's first device wins. If the
// whole list fails there is no way to produce results and resolution reports
// ErrNoDevice.
package device

import (
	"errors"
	"fmt"

	"github.com/notargets/gocca"
	"go.uber.org/zap"
)

// ErrNoDevice indicates that no usable compute backend was found
var ErrNoDevice = errors.New("no usable compute device found")

// Config holds the ordered backend preference list. Each entry is an OCCA
// device properties JSON string.
type Config struct {
	Backends []string
}

// DefaultConfig prefers accelerator backends and falls back to Serial, which
// is always available when OCCA itself is installed.
func DefaultConfig() Config {
	return Config{
		Backends: []string{
			`{"mode": "OpenCL", "platform_id": 0, "device_id": 0}`,
			`{"mode": "CUDA", "device_id": 0}`,
			`{"mode": "OpenMP"}`,
			`{"mode": "Serial"}`,
		},
	}
}

// Info describes the resolved device
type Info struct {
	Mode  string
	Props string
}

// Device wraps the resolved OCCA device together with the properties that
// created it
type Device struct {
	occa  *gocca.OCCADevice
	info  Info
	log   *zap.Logger
	freed bool
}

// Resolve creates a device from the first backend in cfg that initializes.
// Failure of every backend is fatal to the caller's pipeline: nothing has
// been allocated yet, so the run stops before any buffer or kernel work.
func Resolve(cfg Config, log *zap.Logger) (*Device, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(cfg.Backends) == 0 {
		return nil, fmt.Errorf("empty backend preference list: %w", ErrNoDevice)
	}

	for _, props := range cfg.Backends {
		occaDevice, err := gocca.NewDevice(props)
		if err != nil {
			log.Debug("backend unavailable",
				zap.String("props", props),
				zap.Error(err))
			continue
		}
		d := &Device{
			occa: occaDevice,
			info: Info{Mode: occaDevice.Mode(), Props: props},
			log:  log,
		}
		log.Info("resolved compute device", zap.String("mode", d.info.Mode))
		return d, nil
	}

	return nil, ErrNoDevice
}

// OCCA exposes the underlying device handle for memory allocation and
// kernel compilation
func (d *Device) OCCA() *gocca.OCCADevice {
	return d.occa
}

// Info returns the resolved backend description
func (d *Device) Info() Info {
	return d.info
}

// Finish blocks until all work submitted to the device has completed
func (d *Device) Finish() {
	d.occa.Finish()
}

// Free releases the device handle. Idempotent; release failures are not
// observable through the OCCA API and teardown is best-effort regardless.
func (d *Device) Free() {
	if d.freed {
		return
	}
	d.freed = true
	d.occa.Free()
}
