//go:build opencl

package device

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/jgillich/go-opencl/cl"
)

// Information about a system's opencl platform and supported devices.
type PlatformInfo struct {
	Profile    string
	Version    string
	Name       string
	Vendor     string
	Extensions string
	Devices    []*Device
}

func (pl PlatformInfo) String() string {
	var buf bytes.Buffer

	buf.WriteString(
		fmt.Sprintf(
			"Version:    %s\nName:       %s\nVendor:     %s\nExtensions: %s\nDevices:\n",
			pl.Version,
			pl.Name,
			pl.Vendor,
			pl.Extensions,
		),
	)

	for dIdx, d := range pl.Devices {
		buf.WriteString(fmt.Sprintf("  Device %02d:\n", dIdx))
		buf.WriteString(indentRegex.ReplaceAllString(d.String(), "    "))
		buf.WriteString("\n\n")
	}

	return buf.String()
}

// Get information about supported opencl platforms and devices. GPU devices
// are listed before CPU devices.
func GetPlatformInfo() ([]PlatformInfo, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, fmt.Errorf("opencl: could not query platforms: %w", err)
	}

	infoList := make([]PlatformInfo, len(platforms))
	for pIdx, p := range platforms {
		infoList[pIdx] = PlatformInfo{
			Profile:    p.Profile(),
			Version:    p.Version(),
			Name:       p.Name(),
			Vendor:     p.Vendor(),
			Extensions: p.Extensions(),
			Devices:    make([]*Device, 0),
		}

		for _, devType := range []cl.DeviceType{cl.DeviceTypeGPU, cl.DeviceTypeCPU} {
			devices, err := p.GetDevices(devType)
			if err != nil {
				if errors.Is(err, cl.ErrDeviceNotFound) {
					continue
				}
				return nil, fmt.Errorf("opencl: could not enumerate %s devices for platform %s: %w", devType, p.Name(), err)
			}
			for _, id := range devices {
				infoList[pIdx].Devices = append(infoList[pIdx].Devices, newDevice(id))
			}
		}
	}

	return infoList, nil
}

// Scan all available opencl platforms and select devices that match the given query.
func SelectDevices(typeMask DeviceType, matchName string) ([]*Device, error) {
	platforms, err := GetPlatformInfo()
	if err != nil {
		return nil, err
	}
	list := make([]*Device, 0)
	for _, p := range platforms {
		for _, d := range p.Devices {
			// Match type
			if d.Type&typeMask != d.Type {
				continue
			}

			// Match name
			if matchName != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(matchName)) {
				continue
			}

			list = append(list, d)
		}
	}
	return list, nil
}
