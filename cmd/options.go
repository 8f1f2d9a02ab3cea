package cmd

import (
	"github.com/psfgen/psfgen/config"
	"github.com/urfave/cli"
)

// Load the render profile named by the global --config flag and apply any
// command line overrides.
func loadOptions(ctx *cli.Context) (*config.Options, error) {
	opts, err := config.LoadOptions(ctx.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet("device") {
		opts.Device = ctx.String("device")
	}
	if ctx.IsSet("device-name") {
		opts.DeviceName = ctx.String("device-name")
	}
	if ctx.IsSet("workers") {
		opts.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("psf") {
		opts.PSF = ctx.String("psf")
	}
	if ctx.IsSet("subsamples") {
		opts.Subsamples = ctx.Int("subsamples")
	}
	if ctx.IsSet("seed") {
		opts.Seed = ctx.Uint64("seed")
	}
	if ctx.IsSet("max-memory") {
		opts.MaxMemory = ctx.Int64("max-memory")
	}
	if ctx.IsSet("allow-empty") {
		opts.RequireEmitters = !ctx.Bool("allow-empty")
	}

	if err = opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
