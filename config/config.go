// Package config holds the immutable render configuration derived from a
// scenario file header and the user-supplied render options.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/psfgen/psfgen/scenario"
)

var ErrInvalidConfiguration = errors.New("config: invalid configuration")

// Largest image dimension or subsample grid edge. Kernels receive these as
// 32-bit ints.
const MaxDim = math.MaxInt32

// Config describes the sensor geometry and optics for one render. It is
// shared read-only by every stage of the pipeline.
type Config struct {
	// Image dims in pixels.
	Width  int
	Height int

	// Photon collecting extent of a pixel and the dead zone between two
	// neighboring pixels, in physical units.
	UsablePixelSize float32
	PixelGap        float32

	// Mean background photons per pixel.
	BackgroundNoise float32

	Wavelength float32

	// 2π / wavelength.
	Wavenumber float32

	// The subsample count asked for and the edge of the square integration
	// grid actually used; the effective count is SubsampleEdge².
	RequestedSubsamples int
	SubsampleEdge       int
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// Build a validated Config from a scenario file header and a requested
// number of subsamples per pixel.
func New(h scenario.Header, subsamples int) (*Config, error) {
	if subsamples < 1 {
		return nil, invalid("subsample count must be at least 1; got %d", subsamples)
	}

	cfg := &Config{
		Width:               h.Width,
		Height:              h.Height,
		UsablePixelSize:     float32(h.Usable),
		PixelGap:            float32(h.Gap),
		BackgroundNoise:     float32(h.Noise),
		Wavelength:          float32(h.Wavelength),
		RequestedSubsamples: subsamples,
		SubsampleEdge:       SubsampleEdge(subsamples),
	}
	if h.Wavelength > 0 {
		cfg.Wavenumber = float32(2.0 * math.Pi / h.Wavelength)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Get the integration grid edge for a requested subsample count: the
// largest n with n*n <= subsamples.
func SubsampleEdge(subsamples int) int {
	if subsamples < 1 {
		return 0
	}
	edge := int(math.Sqrt(float64(subsamples)))
	// Guard against floating point error around perfect squares.
	for edge*edge > subsamples {
		edge--
	}
	for (edge+1)*(edge+1) <= subsamples {
		edge++
	}
	return edge
}

// Check the configuration invariants.
func (c *Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return invalid("image dims must be positive; got %dx%d", c.Width, c.Height)
	case c.Width > MaxDim || c.Height > MaxDim:
		return invalid("image dims must not exceed %d; got %dx%d", MaxDim, c.Width, c.Height)
	case c.SubsampleEdge < 1:
		return invalid("subsample grid edge must be at least 1; got %d", c.SubsampleEdge)
	case c.SubsampleEdge > MaxDim:
		return invalid("subsample grid edge must not exceed %d; got %d", MaxDim, c.SubsampleEdge)
	case !(c.UsablePixelSize > 0):
		return invalid("usable pixel size must be positive; got %g", c.UsablePixelSize)
	case !(c.PixelGap >= 0):
		return invalid("pixel gap must be non-negative; got %g", c.PixelGap)
	case !(c.BackgroundNoise >= 0):
		return invalid("background noise must be non-negative; got %g", c.BackgroundNoise)
	case !(c.Wavelength > 0) || !(c.Wavenumber > 0):
		return invalid("wavelength must be positive; got %g", c.Wavelength)
	}
	return nil
}

// Get the effective number of subsamples per pixel.
func (c *Config) EffectiveSubsamples() int {
	return c.SubsampleEdge * c.SubsampleEdge
}

// Get the distance between the origins of two neighboring pixels.
func (c *Config) PixelPitch() float32 {
	return c.UsablePixelSize + c.PixelGap
}

// Get the number of pixels in a single scenario image.
func (c *Config) PixelsPerImage() int {
	return c.Width * c.Height
}
