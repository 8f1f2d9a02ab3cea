package generate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/psfgen/psfgen/config"
	"github.com/psfgen/psfgen/resource"
	"github.com/psfgen/psfgen/scenario"
	"golang.org/x/exp/rand"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"gonum.org/v1/gonum/stat/distuv"
)

// Grayscale value a mask pixel must exceed to accept an emitter.
const MaskThreshold = 128

// Parameters for mask-driven scenario generation.
type MaskParams struct {
	Sensor `yaml:",inline"`

	Scenarios int `yaml:"scenarios"`

	// Emitters per scenario.
	Count int `yaml:"count"`

	// Mean emitter intensity; intensities are exponentially distributed.
	Photons float64 `yaml:"photons"`
}

// Get the default mask generator parameters.
func DefaultMaskParams() MaskParams {
	return MaskParams{
		Sensor: Sensor{
			Width:      64,
			Height:     64,
			Wavelength: 550,
			Usable:     99,
			Gap:        11,
			Noise:      4,
		},
		Scenarios: 10000,
		Count:     6,
		Photons:   1000,
	}
}

// A thresholded grayscale image.
type Mask struct {
	Width, Height int

	// Row-major acceptance flags.
	accept []bool
	lit    int
}

// Threshold an image into a mask.
func NewMask(img image.Image) *Mask {
	bounds := img.Bounds()
	m := &Mask{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		accept: make([]bool, bounds.Dx()*bounds.Dy()),
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			gray := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			if gray.Y > MaskThreshold {
				m.accept[x+y*m.Width] = true
				m.lit++
			}
		}
	}
	return m
}

// Decode a png, jpeg, bmp or tiff image into a mask.
func LoadMask(path string) (*Mask, error) {
	f, err := resource.Open(context.Background(), path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("generate: could not decode mask image %s: %w", path, err)
	}
	logger.Debugf("decoded %s mask %s (%dx%d)", format, path, img.Bounds().Dx(), img.Bounds().Dy())

	return NewMask(img), nil
}

// Check whether the normalized position (u, v) in [0, 1) falls on an
// accepted mask pixel.
func (m *Mask) Accepts(u, v float64) bool {
	x, y := int(u*float64(m.Width)), int(v*float64(m.Height))
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.accept[x+y*m.Width]
}

// Number of accepted pixels.
func (m *Mask) Lit() int {
	return m.lit
}

// Generate scenarios whose emitters are scattered uniformly over the bright
// regions of the mask, stretched to cover the whole sensor.
func FromMask(params MaskParams, mask *Mask, src rand.Source) (*scenario.File, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if err := validateCounts(params.Scenarios, params.Photons); err != nil {
		return nil, err
	}
	if params.Count < 1 {
		return nil, fmt.Errorf("%w: emitter count must be positive; got %d", config.ErrInvalidConfiguration, params.Count)
	}
	if mask == nil || mask.Lit() == 0 {
		return nil, ErrEmptyMask
	}

	rng := rand.New(src)
	brightness := distuv.Exponential{Rate: 1, Src: src}
	extentX := float64(params.Width) * params.pitch()
	extentY := float64(params.Height) * params.pitch()

	sf := &scenario.File{
		Header:    params.header(),
		Scenarios: make([]scenario.Scenario, params.Scenarios),
	}
	for i := range sf.Scenarios {
		emitters := make([]scenario.Emitter, params.Count)
		for n := range emitters {
			u, v := rng.Float64(), rng.Float64()
			for !mask.Accepts(u, v) {
				u, v = rng.Float64(), rng.Float64()
			}

			emitters[n] = scenario.Emitter{
				X:         float32(u * extentX),
				Y:         float32(v * extentY),
				Intensity: float32(params.Photons * brightness.Rand()),
				Width:     DefaultEmitterWidth,
			}
		}
		sf.Scenarios[i].Emitters = emitters
	}

	return sf, nil
}
