package main

import (
	"os"

	"github.com/psfgen/psfgen/cmd"
	"github.com/psfgen/psfgen/log"
	"github.com/urfave/cli"
)

var logger = log.New("psfgen")

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "psfgen"
	app.Usage = "render point-spread functions of emitter scenarios into noisy tiff stacks"
	app.Version = "0.1.0"
	app.Flags = cmd.GlobalFlags()
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scenario file into a tiff stack",
			Description: `
Load a JSON scenario file, integrate the point-spread function of every
emitter over each sensor pixel, add background and Poisson shot noise and
write one 16-bit page per scenario to a multi-page tiff file.`,
			ArgsUsage: "scenario.json stack.tiff",
			Flags:     cmd.RenderFlags(),
			Action:    cmd.RenderStack,
		},
		{
			Name:  "profile",
			Usage: "write the effective render options to a YAML profile",
			Description: `
Merge the --config profile (or the defaults) with the render flags and save
the result so later renders can reuse it via --config.`,
			ArgsUsage: "profile.yaml",
			Flags:     cmd.RenderFlags(),
			Action:    cmd.SaveProfile,
		},
		{
			Name:   "list-devices",
			Usage:  "list available opencl devices",
			Action: cmd.ListDevices,
		},
		{
			Name:   "generate",
			Usage:  "generate scenario files",
			Action: nil,
			Subcommands: []cli.Command{
				{
					Name:  "two-molecule",
					Usage: "generate pairs of emitters with a fixed separation",
					Description: `
Each scenario places a bright emitter near the sensor center and a dimmer
one at the configured separation along a random direction.`,
					ArgsUsage: "scenarios.json",
					Flags:     cmd.TwoMoleculeFlags(),
					Action:    cmd.GenerateTwoMolecule,
				},
				{
					Name:  "mask",
					Usage: "generate emitters from the bright regions of an image",
					Description: `
Pixels brighter than the threshold form the mask. Emitter positions are
sampled uniformly over the mask, stretched over the whole sensor, and
intensities follow an exponential distribution.`,
					ArgsUsage: "mask.png scenarios.json",
					Flags:     cmd.MaskFlags(),
					Action:    cmd.GenerateMask,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
