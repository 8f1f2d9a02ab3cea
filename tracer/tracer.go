package tracer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/psfgen/psfgen/config"
	"github.com/psfgen/psfgen/frame"
	"github.com/psfgen/psfgen/psf"
	"github.com/psfgen/psfgen/scenario"
)

var (
	ErrDeviceUnavailable = errors.New("tracer: no compute device available")
	ErrOutOfDeviceMemory = errors.New("tracer: insufficient device memory")
)

// A render request: the immutable configuration, the flattened scenario
// list and the point-spread model to integrate.
type Job struct {
	Config *config.Config
	Layout *scenario.Layout
	Model  psf.Model
}

// Check that the job can be dispatched.
func (j *Job) Validate() error {
	if j.Config == nil {
		return fmt.Errorf("%w: missing render configuration", config.ErrInvalidConfiguration)
	}
	if err := j.Config.Validate(); err != nil {
		return err
	}
	if j.Model == nil {
		return fmt.Errorf("%w: missing point-spread model", config.ErrInvalidConfiguration)
	}
	if j.Layout == nil {
		return fmt.Errorf("%w: missing scenario layout", config.ErrInvalidConfiguration)
	}
	if err := j.Layout.Validate(); err != nil {
		return err
	}
	if cells, ok := OutputCells(j); !ok || cells > math.MaxInt {
		return fmt.Errorf("%w: %d scenarios of %dx%d pixels cannot be addressed", ErrOutOfDeviceMemory, j.Layout.ScenarioCount(), j.Config.Width, j.Config.Height)
	}
	return nil
}

// Get the number of output cells (scenarios x width x height). The flag is
// false if the count overflows an int64.
func OutputCells(j *Job) (int64, bool) {
	pixels, ok := mulInt64(int64(j.Config.Width), int64(j.Config.Height))
	if !ok {
		return math.MaxInt64, false
	}
	return mulInt64(pixels, int64(j.Layout.ScenarioCount()))
}

// Get the number of independent work units (one per output pixel).
func (j *Job) WorkUnits() int {
	return j.Layout.ScenarioCount() * j.Config.Width * j.Config.Height
}

// Get the number of bytes of device memory needed for a job: four float32
// emitter arrays, the float32 output and the int32 offset/count tables.
// Sizes that overflow an int64 saturate to math.MaxInt64 so they fail every
// budget check.
func MemoryRequired(j *Job) int64 {
	emitters := int64(j.Layout.EmitterCount())
	scenarios := int64(j.Layout.ScenarioCount())
	cells, ok := OutputCells(j)
	if !ok {
		return math.MaxInt64
	}

	words := cells
	for _, n := range []int64{4 * emitters, 2 * scenarios} {
		if words > math.MaxInt64-n {
			return math.MaxInt64
		}
		words += n
	}
	if bytes, ok := mulInt64(words, 4); ok {
		return bytes
	}
	return math.MaxInt64
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64, false
	}
	return a * b, true
}

// Tracer statistics.
type Stats struct {
	// Time spent staging inputs on the device.
	UploadTime time.Duration

	// Time spent executing the kernel, including the completion barrier.
	RenderTime time.Duration

	// Time spent copying the output back to the host.
	DownloadTime time.Duration

	// Device memory requested by the last job.
	MemoryUsed int64

	// Number of work units dispatched by the last job.
	WorkUnits int
}

// A compute backend that evaluates the expected photon count of every
// pixel of every scenario in a job.
type Tracer interface {
	// Get tracer id.
	Id() string

	// Render a job. The returned buffer is fully populated; there is no
	// partial result on error.
	Render(ctx context.Context, job *Job) (*frame.Buffer, error)

	// Retrieve last job statistics.
	Stats() *Stats

	// Shutdown and cleanup tracer.
	Close()
}
