//go:build opencl

package device

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jgillich/go-opencl/cl"
)

type DeviceType uint8

// Supported device types.
const (
	CpuDevice   DeviceType = 1 << iota
	GpuDevice              = 1 << iota
	OtherDevice            = 1 << iota
	AllDevices             = 0xFF
)

var (
	indentRegex = regexp.MustCompile("(?m)^")
)

func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	case GpuDevice:
		return "GPU"
	case OtherDevice:
		return "Other"
	}
	panic("opencl: unsupported device type")
}

func deviceTypeOf(t cl.DeviceType) DeviceType {
	switch {
	case t&cl.DeviceTypeGPU != 0:
		return GpuDevice
	case t&cl.DeviceTypeCPU != 0:
		return CpuDevice
	}
	return OtherDevice
}

// Wrapper around opencl-supported devices.
type Device struct {
	Name string
	Type DeviceType

	// Total global memory in bytes.
	GlobalMemory int64

	// Largest single buffer allocation in bytes.
	MaxAlloc int64

	ComputeUnits int

	// Max clock speed in MHz.
	ClockSpeed int

	// Speed estimate in GFlops.
	Speed int

	id *cl.Device

	// Opencl handles; allocated when device is initialized.
	ctx      *cl.Context
	cmdQueue *cl.CommandQueue
	program  *cl.Program
}

func newDevice(id *cl.Device) *Device {
	d := &Device{
		Name:         id.Name(),
		Type:         deviceTypeOf(id.Type()),
		GlobalMemory: id.GlobalMemSize(),
		MaxAlloc:     id.MaxMemAllocSize(),
		ComputeUnits: id.MaxComputeUnits(),
		ClockSpeed:   id.MaxClockFrequency(),
		id:           id,
	}

	// Theoretical device speed: compute units * 2ops/cycle * clock speed
	d.Speed = d.ComputeUnits * 2 * d.ClockSpeed / 1000
	return d
}

// Implements Stringer.
func (d *Device) String() string {
	return fmt.Sprintf(
		"Name: %s\nType: %s\nSpecs: %d computation units, %d Mhz clock, %d GFlops approximate speed, %d MiB global memory",
		d.Name,
		d.Type.String(),
		d.ComputeUnits,
		d.ClockSpeed,
		d.Speed,
		d.GlobalMemory>>20,
	)
}

// Initialize device and build the supplied program source with the given
// compiler options.
func (d *Device) Init(programSource, options string) error {
	var err error

	// Already initialized
	if d.ctx != nil {
		return nil
	}

	d.ctx, err = cl.CreateContext([]*cl.Device{d.id})
	if err != nil {
		defer d.Close()
		return fmt.Errorf("opencl device (%s): could not create opencl context: %w", d.Name, err)
	}

	d.cmdQueue, err = d.ctx.CreateCommandQueue(d.id, 0)
	if err != nil {
		defer d.Close()
		return fmt.Errorf("opencl device (%s): could not create command queue: %w", d.Name, err)
	}

	d.program, err = d.ctx.CreateProgramWithSource([]string{programSource})
	if err != nil {
		defer d.Close()
		return fmt.Errorf("opencl device (%s): could not create program: %w", d.Name, err)
	}

	err = d.program.BuildProgram([]*cl.Device{d.id}, options)
	if err != nil {
		defer d.Close()
		var buildErr cl.BuildError
		if errors.As(err, &buildErr) {
			return fmt.Errorf("opencl device (%s): could not build kernel:\n%s", d.Name, string(buildErr))
		}
		return fmt.Errorf("opencl device (%s): could not build kernel: %w", d.Name, err)
	}

	return nil
}

// Shut down the device.
func (d *Device) Close() {
	if d.program != nil {
		d.program.Release()
		d.program = nil
	}

	if d.cmdQueue != nil {
		d.cmdQueue.Release()
		d.cmdQueue = nil
	}

	if d.ctx != nil {
		d.ctx.Release()
		d.ctx = nil
	}
}

// Load kernel by name.
func (d *Device) Kernel(name string) (*Kernel, error) {
	if d.program == nil {
		return nil, fmt.Errorf("opencl device (%s): device not initialized", d.Name)
	}

	handle, err := d.program.CreateKernel(name)
	if err != nil {
		return nil, fmt.Errorf("opencl device (%s): could not load kernel %s: %w", d.Name, name, err)
	}

	return &Kernel{
		device:       d,
		kernelHandle: handle,
		name:         name,
	}, nil
}

// Create an empty buffer.
func (d *Device) Buffer(name string) *Buffer {
	return &Buffer{
		device: d,
		name:   name,
	}
}
