package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/olekukonko/tablewriter"
	"github.com/psfgen/psfgen/config"
	"github.com/psfgen/psfgen/noise"
	"github.com/psfgen/psfgen/pipeline"
	"github.com/psfgen/psfgen/psf"
	"github.com/psfgen/psfgen/scenario"
	"github.com/psfgen/psfgen/tiff"
	"github.com/psfgen/psfgen/tracer"
	"github.com/psfgen/psfgen/tracer/cpu"
	"github.com/psfgen/psfgen/tracer/opencl"
	"github.com/urfave/cli"
)

// Flags for the render command. Flags that are set override the values
// loaded from the --config profile.
func RenderFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "device, d",
			Usage: "compute device: auto, cpu or opencl",
		},
		cli.StringFlag{
			Name:  "device-name",
			Usage: "only use opencl devices whose name contains this value",
		},
		cli.IntFlag{
			Name:  "workers, w",
			Usage: "number of cpu device workers",
		},
		cli.StringFlag{
			Name:  "psf",
			Usage: "point-spread model: airy or gaussian",
		},
		cli.IntFlag{
			Name:  "subsamples, s",
			Usage: "subsamples per pixel; rounded down to a square grid",
		},
		cli.Uint64Flag{
			Name:  "seed",
			Usage: "noise seed; 0 selects a time-derived seed",
		},
		cli.Int64Flag{
			Name:  "max-memory",
			Usage: "cpu device memory budget in bytes; 0 selects the 8 GiB default",
		},
		cli.BoolFlag{
			Name:  "allow-empty",
			Usage: "accept scenarios without emitters",
		},
		cli.BoolFlag{
			Name:  "overwrite, o",
			Usage: "replace an existing output file",
		},
	}
}

// Open the tracer requested by the options.
func openTracer(opts *config.Options, model psf.Model) (tracer.Tracer, error) {
	switch opts.Device {
	case config.DeviceCPU:
		return cpu.New("cpu", opts.Workers, opts.MaxMemory), nil
	case config.DeviceOpenCL:
		return opencl.Open("opencl", opts.DeviceName, model)
	}

	tr, err := opencl.Open("opencl", opts.DeviceName, model)
	if errors.Is(err, tracer.ErrDeviceUnavailable) {
		logger.Infof("%v; using the cpu device", err)
		return cpu.New("cpu", opts.Workers, opts.MaxMemory), nil
	}
	return tr, err
}

// Render a scenario file into a multi-page tiff stack.
func RenderStack(ctx *cli.Context) error {
	opts, err := loadOptions(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx, opts.LogLevel)

	if ctx.NArg() != 2 {
		return errors.New("expected scenario file and output file arguments")
	}
	inFile, outFile := ctx.Args().Get(0), ctx.Args().Get(1)

	// Refuse early so no device work is wasted.
	overwrite := ctx.Bool("overwrite")
	if !overwrite {
		if _, err = os.Stat(outFile); err == nil {
			return fmt.Errorf("%w: %s (use --overwrite to replace it)", tiff.ErrExists, outFile)
		}
	}

	model, err := psf.Lookup(opts.PSF)
	if err != nil {
		return err
	}

	sf, err := scenario.Load(inFile)
	if err != nil {
		return err
	}

	cfg, err := config.New(sf.Header, opts.Subsamples)
	if err != nil {
		return err
	}
	if cfg.EffectiveSubsamples() != opts.Subsamples {
		logger.Noticef("using %d subsamples per pixel (%dx%d grid) instead of the requested %d", cfg.EffectiveSubsamples(), cfg.SubsampleEdge, cfg.SubsampleEdge, opts.Subsamples)
	}

	layout, err := scenario.Flatten(sf.Scenarios, opts.RequireEmitters)
	if err != nil {
		return err
	}
	if layout.ScenarioCount() == 0 {
		return fmt.Errorf("%w: %s contains no scenarios", scenario.ErrMalformedScenario, inFile)
	}
	logger.Noticef("loaded %d scenarios with %d emitters from %s", layout.ScenarioCount(), layout.EmitterCount(), inFile)

	seed := opts.Seed
	if seed == 0 {
		seed = noise.TimeSeed()
	}
	logger.Noticef("noise seed: %d", seed)

	tr, err := openTracer(opts, model)
	if err != nil {
		return err
	}
	defer tr.Close()
	logger.Noticef("rendering on %s device using the %s model", tr.Id(), model.Name())

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := pipeline.New(tr, model, noise.NewSource(seed))
	res, err := p.Run(runCtx, cfg, layout)
	if err != nil {
		return err
	}

	if err = tiff.WriteFile(outFile, res.Stack.Pages, overwrite); err != nil {
		return err
	}
	logger.Noticef("wrote %d pages (%dx%d) to %s", len(res.Stack.Pages), res.Stack.Width(), res.Stack.Height(), outFile)

	displayRunStats(res)
	return nil
}

func displayRunStats(res *pipeline.Result) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Stage", "Time", "% of run"})
	for _, stat := range res.Stats.Stages {
		percent := 0.0
		if res.Stats.Total > 0 {
			percent = 100 * float64(stat.Time) / float64(res.Stats.Total)
		}
		table.Append([]string{
			stat.Name,
			stat.Time.String(),
			fmt.Sprintf("%02.1f %%", percent),
		})
	}
	table.SetFooter([]string{"TOTAL", res.Stats.Total.String(), ""})
	table.Render()
	logger.Noticef("run statistics\n%s", buf.String())

	buf.Reset()
	table = tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Work units", "Device memory", "Upload", "Kernel", "Download"})
	table.Append([]string{
		fmt.Sprintf("%d", res.Stats.Tracer.WorkUnits),
		fmt.Sprintf("%d bytes", res.Stats.Tracer.MemoryUsed),
		res.Stats.Tracer.UploadTime.String(),
		res.Stats.Tracer.RenderTime.String(),
		res.Stats.Tracer.DownloadTime.String(),
	})
	table.Render()
	logger.Noticef("tracer statistics\n%s", buf.String())

	sum := res.Summary
	logger.Noticef(
		"photons per scenario: expected mean %.1f (min %.1f, max %.1f); observed mean %.1f (std dev %.1f)",
		sum.ExpectedMean, sum.ExpectedMin, sum.ExpectedMax, sum.ObservedMean, sum.ObservedStdDev,
	)
	if sum.Clamped > 0 {
		logger.Warningf("%d pixels were saturated at 65535", sum.Clamped)
	}
}
