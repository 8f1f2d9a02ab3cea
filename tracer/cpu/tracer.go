// Package cpu implements a tracer that treats the host CPU as the compute
// device, spreading the pixelPSF work units over a pool of goroutines.
package cpu

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/psfgen/psfgen/frame"
	"github.com/psfgen/psfgen/log"
	"github.com/psfgen/psfgen/tracer"
	"golang.org/x/sync/errgroup"
)

// Memory budget used when none is configured.
const DefaultMaxMemory int64 = 8 << 30

type cpuTracer struct {
	logger log.Logger

	sync.Mutex

	// The tracer id.
	id string

	// Max number of concurrently running work groups.
	workers int

	// Device memory budget in bytes.
	maxMemory int64

	// The staged job buffers.
	buffers *bufferSet

	// Statistics for the last job.
	stats *tracer.Stats
}

// Create a new cpu tracer. A non-positive worker count selects one worker
// per logical CPU and a non-positive budget selects DefaultMaxMemory.
func New(id string, workers int, maxMemory int64) tracer.Tracer {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}

	return &cpuTracer{
		logger:    log.New("cpu tracer"),
		id:        id,
		workers:   workers,
		maxMemory: maxMemory,
		buffers:   &bufferSet{},
		stats:     &tracer.Stats{},
	}
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// Retrieve last job statistics.
func (tr *cpuTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()
	tr.buffers.Release()
}

// Render job. Work is dispatched as one task per (scenario, row) pair; the
// call returns after every task has completed.
func (tr *cpuTracer) Render(ctx context.Context, job *tracer.Job) (*frame.Buffer, error) {
	tr.Lock()
	defer tr.Unlock()

	if err := job.Validate(); err != nil {
		return nil, err
	}

	required := tracer.MemoryRequired(job)
	if required > tr.maxMemory {
		return nil, fmt.Errorf("%w: job requires %d bytes; cpu device budget is %d bytes", tracer.ErrOutOfDeviceMemory, required, tr.maxMemory)
	}

	// The kernel cannot be interrupted once dispatched.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := job.Config
	scenarios := job.Layout.ScenarioCount()

	start := time.Now()
	tr.buffers.Upload(job.Layout)
	tr.buffers.Resize(cfg.Width, cfg.Height, scenarios)
	tr.stats.UploadTime = time.Since(start)
	tr.stats.MemoryUsed = required
	tr.stats.WorkUnits = job.WorkUnits()

	args := &kernelArgs{
		wavenumber: cfg.Wavenumber,
		usable:     cfg.UsablePixelSize,
		gap:        cfg.PixelGap,
		width:      cfg.Width,
		height:     cfg.Height,
		ssedge:     cfg.SubsampleEdge,
		offset:     tr.buffers.Offset,
		count:      tr.buffers.Count,
		x:          tr.buffers.X,
		y:          tr.buffers.Y,
		intensity:  tr.buffers.Intensity,
		psfWidth:   tr.buffers.Width,
		out:        tr.buffers.Output.Pix,
		model:      job.Model,
	}

	tr.logger.Debugf("dispatching %d work units (%d scenarios, %dx%d px, %d subsamples) to %d workers",
		tr.stats.WorkUnits, scenarios, cfg.Width, cfg.Height, cfg.EffectiveSubsamples(), tr.workers)

	start = time.Now()
	var g errgroup.Group
	g.SetLimit(tr.workers)
	for s := 0; s < scenarios; s++ {
		for row := 0; row < cfg.Height; row++ {
			s, row := s, row
			g.Go(func() error {
				for col := 0; col < cfg.Width; col++ {
					pixelPSF(args, s, col, row)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	tr.stats.RenderTime = time.Since(start)
	tr.stats.DownloadTime = 0

	out := tr.buffers.Output
	tr.buffers.Release()

	return out, nil
}
