package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/psfgen/psfgen/config"
	"github.com/urfave/cli"
)

// Write the effective render options (profile plus flag overrides) to a
// YAML profile that can be passed back with --config.
func SaveProfile(ctx *cli.Context) error {
	opts, err := loadOptions(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx, opts.LogLevel)

	if ctx.NArg() != 1 {
		return errors.New("expected an output profile argument")
	}
	outFile := ctx.Args().First()
	if _, err = os.Stat(outFile); err == nil && !ctx.Bool("overwrite") {
		return fmt.Errorf("%w: %s (use --overwrite to replace it)", os.ErrExist, outFile)
	}

	if err = config.SaveOptions(opts, outFile); err != nil {
		return err
	}
	logger.Noticef("wrote render profile to %s", outFile)
	return nil
}
