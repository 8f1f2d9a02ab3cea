//go:build !opencl

package opencl

import (
	"fmt"

	"github.com/psfgen/psfgen/psf"
	"github.com/psfgen/psfgen/tracer"
)

// Opencl support is not compiled in; rebuild with -tags opencl.
func Open(id, matchName string, model psf.Model) (tracer.Tracer, error) {
	return nil, fmt.Errorf("%w: opencl support not compiled in (rebuild with -tags opencl)", tracer.ErrDeviceUnavailable)
}

// Opencl support is not compiled in; rebuild with -tags opencl.
func ListDevices() ([]DeviceInfo, error) {
	return nil, fmt.Errorf("%w: opencl support not compiled in (rebuild with -tags opencl)", tracer.ErrDeviceUnavailable)
}
