//go:build opencl

package opencl

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/psfgen/psfgen/config"
	"github.com/psfgen/psfgen/frame"
	"github.com/psfgen/psfgen/log"
	"github.com/psfgen/psfgen/psf"
	"github.com/psfgen/psfgen/tracer"
	"github.com/psfgen/psfgen/tracer/opencl/device"
)

//go:embed CL/pixel_psf.cl
var programSource string

type clTracer struct {
	logger log.Logger

	sync.Mutex

	// The device associated with this tracer instance.
	device *device.Device

	// The tracer id.
	id string

	// The psf model compiled into the program.
	model string

	// The loaded kernels.
	kernels []*device.Kernel

	// The allocated device buffers.
	buffers *bufferSet

	// Statistics for the last job.
	stats *tracer.Stats
}

// Get the compiler options that select a psf model implementation.
func buildOptions(model psf.Model) string {
	return "-D PSF_" + strings.ToUpper(model.Name())
}

// Create a new opencl tracer on the given device. The program is compiled
// for a single psf model; jobs using a different model are rejected.
func NewTracer(id string, dev *device.Device, model psf.Model) (tracer.Tracer, error) {
	tr := &clTracer{
		logger: log.New(fmt.Sprintf("opencl tracer (%s)", dev.Name)),
		device: dev,
		id:     id,
		model:  model.Name(),
		stats:  &tracer.Stats{},
	}

	if err := tr.init(model); err != nil {
		tr.cleanup()
		return nil, err
	}
	return tr, nil
}

// Open a tracer on the first device matching the name filter, preferring
// GPU devices over CPU devices.
func Open(id, matchName string, model psf.Model) (tracer.Tracer, error) {
	for _, devType := range []device.DeviceType{device.GpuDevice, device.CpuDevice} {
		devList, err := device.SelectDevices(devType, matchName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", tracer.ErrDeviceUnavailable, err)
		}
		if len(devList) != 0 {
			return NewTracer(id, devList[0], model)
		}
	}

	if matchName != "" {
		return nil, fmt.Errorf("%w: no opencl device matches %q", tracer.ErrDeviceUnavailable, matchName)
	}
	return nil, fmt.Errorf("%w: no opencl devices found", tracer.ErrDeviceUnavailable)
}

// List the available opencl devices.
func ListDevices() ([]DeviceInfo, error) {
	platforms, err := device.GetPlatformInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracer.ErrDeviceUnavailable, err)
	}

	logger := log.New("opencl")
	list := make([]DeviceInfo, 0)
	for pIdx, p := range platforms {
		logger.Debugf("platform %02d:\n%s", pIdx, p)
		for _, d := range p.Devices {
			list = append(list, DeviceInfo{
				Platform:     p.Name,
				Name:         d.Name,
				Type:         d.Type.String(),
				ComputeUnits: d.ComputeUnits,
				ClockSpeed:   d.ClockSpeed,
				Speed:        d.Speed,
				GlobalMemory: d.GlobalMemory,
			})
		}
	}
	return list, nil
}

func (tr *clTracer) init(model psf.Model) error {
	tr.logger.Debugf("building pixelPSF program (%s)", buildOptions(model))
	if err := tr.device.Init(programSource, buildOptions(model)); err != nil {
		return err
	}

	tr.kernels = make([]*device.Kernel, numKernels)
	for kt := kernelType(0); kt < numKernels; kt++ {
		kernel, err := tr.device.Kernel(kt.String())
		if err != nil {
			return err
		}
		tr.kernels[kt] = kernel
	}

	tr.buffers = newBufferSet(tr.device)
	return nil
}

// Get tracer id.
func (tr *clTracer) Id() string {
	return tr.id
}

// Retrieve last job statistics.
func (tr *clTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Shutdown and cleanup tracer.
func (tr *clTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	tr.cleanup()
}

// Cleanup tracer. This method is meant to be called while holding tr.Lock()
func (tr *clTracer) cleanup() {
	if tr.buffers != nil {
		tr.buffers.Release()
		tr.buffers = nil
	}

	for _, kernel := range tr.kernels {
		if kernel != nil {
			kernel.Release()
		}
	}
	tr.kernels = nil

	if tr.device != nil {
		tr.device.Close()
		tr.device = nil
	}
}

// Render job. The call blocks until the kernel has completed and the
// output has been copied back to the host.
func (tr *clTracer) Render(ctx context.Context, job *tracer.Job) (*frame.Buffer, error) {
	tr.Lock()
	defer tr.Unlock()

	if tr.device == nil {
		return nil, fmt.Errorf("%w: tracer %s is closed", tracer.ErrDeviceUnavailable, tr.id)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if job.Model.Name() != tr.model {
		return nil, fmt.Errorf("%w: tracer %s was built for the %s model; job requests %s", config.ErrInvalidConfiguration, tr.id, tr.model, job.Model.Name())
	}

	cfg := job.Config
	scenarios := job.Layout.ScenarioCount()

	// The kernel addresses the output with 32-bit ints.
	if cells, _ := tracer.OutputCells(job); cells > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d output cells exceed the kernel index range", tracer.ErrOutOfDeviceMemory, cells)
	}

	required := tracer.MemoryRequired(job)
	if required > tr.device.GlobalMemory {
		return nil, fmt.Errorf("%w: job requires %d bytes; device %s has %d bytes", tracer.ErrOutOfDeviceMemory, required, tr.device.Name, tr.device.GlobalMemory)
	}
	if outSize := 4 * int64(cfg.Width) * int64(cfg.Height) * int64(scenarios); tr.device.MaxAlloc > 0 && outSize > tr.device.MaxAlloc {
		return nil, fmt.Errorf("%w: output buffer requires %d bytes; device %s allows %d bytes per allocation", tracer.ErrOutOfDeviceMemory, outSize, tr.device.Name, tr.device.MaxAlloc)
	}

	// The kernel cannot be interrupted once dispatched.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer tr.buffers.Release()

	start := time.Now()
	if err := tr.buffers.Upload(job.Layout); err != nil {
		return nil, fmt.Errorf("%w: %v", tracer.ErrOutOfDeviceMemory, err)
	}
	if err := tr.buffers.Resize(cfg.Width, cfg.Height, scenarios); err != nil {
		return nil, fmt.Errorf("%w: %v", tracer.ErrOutOfDeviceMemory, err)
	}
	tr.stats.UploadTime = time.Since(start)
	tr.stats.MemoryUsed = required
	tr.stats.WorkUnits = job.WorkUnits()

	kernel := tr.kernels[pixelPSF]
	args := []interface{}{
		cfg.Wavenumber,
		cfg.UsablePixelSize,
		cfg.PixelGap,
		int32(cfg.Width),
		int32(cfg.Height),
		int32(cfg.SubsampleEdge),
		tr.buffers.Offset,
		tr.buffers.Count,
		tr.buffers.X,
		tr.buffers.Y,
		tr.buffers.Intensity,
		tr.buffers.Width,
		tr.buffers.Output,
	}
	if len(args) != pixelPSF.argCount() {
		return nil, fmt.Errorf("opencl: %s expects %d arguments; got %d", pixelPSF, pixelPSF.argCount(), len(args))
	}
	err := kernel.SetArgs(args...)
	if err != nil {
		return nil, err
	}

	tr.logger.Debugf("dispatching %d work units (%d scenarios, %dx%d px, %d subsamples)",
		tr.stats.WorkUnits, scenarios, cfg.Width, cfg.Height, cfg.EffectiveSubsamples())

	tr.stats.RenderTime, err = kernel.Exec3D(scenarios, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	out := frame.New(cfg.Width, cfg.Height, scenarios)
	if err = tr.buffers.Output.ReadData(0, out.ByteSize(), out.Pix); err != nil {
		return nil, err
	}
	tr.stats.DownloadTime = time.Since(start)

	return out, nil
}
