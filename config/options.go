package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/psfgen/psfgen/psf"
	"gopkg.in/yaml.v3"
)

// Supported compute devices.
const (
	DeviceAuto   = "auto"
	DeviceCPU    = "cpu"
	DeviceOpenCL = "opencl"
)

// Options control how a render is carried out. They can be loaded from a
// YAML profile and are overridden by command line flags.
type Options struct {
	// Compute device: auto, cpu or opencl. Auto prefers opencl and falls
	// back to the cpu device if no opencl device is available.
	Device string `yaml:"device"`

	// Only use opencl devices whose name contains this value.
	DeviceName string `yaml:"deviceName"`

	// Number of worker goroutines used by the cpu device.
	Workers int `yaml:"workers"`

	// Point-spread model name.
	PSF string `yaml:"psf"`

	// Requested subsamples per pixel.
	Subsamples int `yaml:"subsamples"`

	// Seed for the noise generator. Zero selects a time-derived seed which
	// is logged so the run can be repeated.
	Seed uint64 `yaml:"seed"`

	// Memory budget in bytes for the cpu device; 0 selects the device
	// default.
	MaxMemory int64 `yaml:"maxMemory"`

	// Reject scenarios without emitters.
	RequireEmitters bool `yaml:"requireEmitters"`

	LogLevel string `yaml:"logLevel"`
}

// Get the default render options.
func DefaultOptions() *Options {
	return &Options{
		Device:          DeviceAuto,
		Workers:         runtime.NumCPU(),
		PSF:             "airy",
		Subsamples:      100,
		RequireEmitters: true,
		LogLevel:        "notice",
	}
}

// Load options from a YAML profile. A missing file yields the defaults.
func LoadOptions(path string) (*Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return opts, nil
	} else if err != nil {
		return nil, fmt.Errorf("config: error reading options file: %w", err)
	}

	if err = yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("config: error parsing options file: %w", err)
	}

	if err = opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Write options to a YAML profile.
func SaveOptions(opts *Options, path string) error {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("config: error marshaling options: %w", err)
	}
	if err = os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: error writing options file: %w", err)
	}
	return nil
}

// Check option values.
func (o *Options) Validate() error {
	o.Device = strings.ToLower(o.Device)
	switch o.Device {
	case DeviceAuto, DeviceCPU, DeviceOpenCL:
	default:
		return invalid("unsupported device %q", o.Device)
	}

	if _, err := psf.Lookup(o.PSF); err != nil {
		return invalid("%v", err)
	}

	if o.Workers < 1 {
		return invalid("worker count must be at least 1; got %d", o.Workers)
	}
	if o.Subsamples < 1 {
		return invalid("subsample count must be at least 1; got %d", o.Subsamples)
	}
	if o.MaxMemory < 0 {
		return invalid("memory budget must be non-negative; got %d", o.MaxMemory)
	}
	return nil
}
