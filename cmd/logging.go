package cmd

import (
	"github.com/psfgen/psfgen/log"
	"github.com/urfave/cli"
)

var logger = log.New("psfgen")

// Flags accepted by every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load render options from a YAML profile",
		},
	}
}

// Apply the profile log level; the -v and -vv flags take precedence.
func setupLogging(ctx *cli.Context, profileLevel string) {
	if level, err := log.ParseLevel(profileLevel); err == nil {
		log.SetLevel(level)
	} else {
		logger.Warningf("ignoring log level from profile: %v", err)
	}

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
