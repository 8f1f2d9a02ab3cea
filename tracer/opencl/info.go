// Package opencl implements a tracer that dispatches the pixelPSF kernel to
// an opencl device. Building without the opencl tag yields a stub whose
// constructors fail with tracer.ErrDeviceUnavailable.
package opencl

// Summary of an opencl device, reported by ListDevices.
type DeviceInfo struct {
	Platform string
	Name     string
	Type     string

	ComputeUnits int
	ClockSpeed   int

	// Speed estimate in GFlops.
	Speed int

	// Global memory in bytes.
	GlobalMemory int64
}
