package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/psfgen/psfgen/tracer/opencl"
	"github.com/urfave/cli"
)

// List available opencl devices.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx, "")

	devices, err := opencl.ListDevices()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Platform", "Device", "Type", "Compute units", "Clock", "GFlops", "Memory"})
	for _, d := range devices {
		table.Append([]string{
			d.Platform,
			d.Name,
			d.Type,
			fmt.Sprintf("%d", d.ComputeUnits),
			fmt.Sprintf("%d MHz", d.ClockSpeed),
			fmt.Sprintf("%d", d.Speed),
			fmt.Sprintf("%d MiB", d.GlobalMemory>>20),
		})
	}
	table.Render()

	logger.Noticef("system provides %d opencl device(s)\n%s", len(devices), buf.String())
	return nil
}
