package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/psfgen/psfgen/noise"
	"github.com/psfgen/psfgen/scenario"
	"github.com/psfgen/psfgen/scenario/generate"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

// Flags shared by all generators.
var sensorFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "params, p",
		Usage: "load generator parameters from a YAML file; flags override its values",
	},
	cli.IntFlag{Name: "width", Usage: "sensor width in pixels"},
	cli.IntFlag{Name: "height", Usage: "sensor height in pixels"},
	cli.Float64Flag{Name: "wavelength", Usage: "emission wavelength"},
	cli.Float64Flag{Name: "usable", Usage: "usable pixel size"},
	cli.Float64Flag{Name: "gap", Usage: "gap between pixels"},
	cli.Float64Flag{Name: "noise", Usage: "background photons per pixel"},
	cli.IntFlag{Name: "scenarios, n", Usage: "number of scenarios to generate"},
	cli.Float64Flag{Name: "photons", Usage: "emitter photon count"},
	cli.Uint64Flag{Name: "seed", Usage: "random seed; 0 selects a time-derived seed"},
	cli.BoolFlag{Name: "overwrite, o", Usage: "replace an existing output file"},
}

// Flags for the two-molecule generator.
func TwoMoleculeFlags() []cli.Flag {
	return append([]cli.Flag{
		cli.Float64Flag{Name: "separation", Usage: "distance between the two emitters"},
		cli.Float64Flag{Name: "contrast", Usage: "intensity ratio between the first and second emitter"},
	}, sensorFlags...)
}

// Flags for the mask generator.
func MaskFlags() []cli.Flag {
	return append([]cli.Flag{
		cli.IntFlag{Name: "count", Usage: "emitters per scenario"},
	}, sensorFlags...)
}

// Decode a YAML parameter file on top of the supplied defaults.
func loadParams(ctx *cli.Context, params interface{}) error {
	path := ctx.String("params")
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, params); err != nil {
		return fmt.Errorf("generate: could not parse %s: %w", path, err)
	}
	return nil
}

func applySensorFlags(ctx *cli.Context, s *generate.Sensor) {
	if ctx.IsSet("width") {
		s.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		s.Height = ctx.Int("height")
	}
	if ctx.IsSet("wavelength") {
		s.Wavelength = ctx.Float64("wavelength")
	}
	if ctx.IsSet("usable") {
		s.Usable = ctx.Float64("usable")
	}
	if ctx.IsSet("gap") {
		s.Gap = ctx.Float64("gap")
	}
	if ctx.IsSet("noise") {
		s.Noise = ctx.Float64("noise")
	}
}

func generatorSeed(ctx *cli.Context) uint64 {
	seed := ctx.Uint64("seed")
	if seed == 0 {
		seed = noise.TimeSeed()
	}
	logger.Noticef("generator seed: %d", seed)
	return seed
}

func saveScenarios(ctx *cli.Context, sf *scenario.File, outFile string) error {
	if err := scenario.Save(outFile, sf, ctx.Bool("overwrite")); err != nil {
		return err
	}
	logger.Noticef("wrote %d scenarios with %d emitters to %s", len(sf.Scenarios), sf.EmitterCount(), outFile)
	return nil
}

// Generate scenarios containing a bright and a dim emitter at a fixed
// separation.
func GenerateTwoMolecule(ctx *cli.Context) error {
	setupLogging(ctx, "")

	if ctx.NArg() != 1 {
		return errors.New("expected an output file argument")
	}

	params := generate.DefaultTwoMoleculeParams()
	if err := loadParams(ctx, &params); err != nil {
		return err
	}
	applySensorFlags(ctx, &params.Sensor)
	if ctx.IsSet("scenarios") {
		params.Scenarios = ctx.Int("scenarios")
	}
	if ctx.IsSet("photons") {
		params.Photons = ctx.Float64("photons")
	}
	if ctx.IsSet("separation") {
		params.Separation = ctx.Float64("separation")
	}
	if ctx.IsSet("contrast") {
		params.Contrast = ctx.Float64("contrast")
	}

	// Check before generating a potentially large file.
	outFile := ctx.Args().First()
	if _, err := os.Stat(outFile); err == nil && !ctx.Bool("overwrite") {
		return fmt.Errorf("%w: %s (use --overwrite to replace it)", os.ErrExist, outFile)
	}

	sf, err := generate.TwoMolecule(params, noise.NewSource(generatorSeed(ctx)))
	if err != nil {
		return err
	}
	return saveScenarios(ctx, sf, outFile)
}

// Generate scenarios whose emitters are drawn from the bright regions of an
// image mask.
func GenerateMask(ctx *cli.Context) error {
	setupLogging(ctx, "")

	if ctx.NArg() != 2 {
		return errors.New("expected mask image and output file arguments")
	}

	params := generate.DefaultMaskParams()
	if err := loadParams(ctx, &params); err != nil {
		return err
	}
	applySensorFlags(ctx, &params.Sensor)
	if ctx.IsSet("scenarios") {
		params.Scenarios = ctx.Int("scenarios")
	}
	if ctx.IsSet("photons") {
		params.Photons = ctx.Float64("photons")
	}
	if ctx.IsSet("count") {
		params.Count = ctx.Int("count")
	}

	outFile := ctx.Args().Get(1)
	if _, err := os.Stat(outFile); err == nil && !ctx.Bool("overwrite") {
		return fmt.Errorf("%w: %s (use --overwrite to replace it)", os.ErrExist, outFile)
	}

	mask, err := generate.LoadMask(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	logger.Infof("mask is %dx%d with %d lit pixels", mask.Width, mask.Height, mask.Lit())

	sf, err := generate.FromMask(params, mask, noise.NewSource(generatorSeed(ctx)))
	if err != nil {
		return err
	}
	return saveScenarios(ctx, sf, outFile)
}
