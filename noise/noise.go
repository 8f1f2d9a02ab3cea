// Package noise layers background and photon shot noise on top of a
// rendered expectation buffer.
package noise

import (
	"fmt"
	"time"

	"github.com/psfgen/psfgen/config"
	"github.com/psfgen/psfgen/frame"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Synthesizer draws the observed photon count of every pixel from a
// Poisson distribution whose rate is the expected count plus a uniform
// background.
type Synthesizer struct {
	// Mean background photons per pixel.
	Background float32

	// Source for all draws. Draws are taken in flat buffer order so a
	// fixed seed reproduces the same output.
	Src rand.Source
}

// Create a seeded random source.
func NewSource(seed uint64) rand.Source {
	return rand.NewSource(seed)
}

// Derive a seed from the wall clock, for runs that did not ask for one.
func TimeSeed() uint64 {
	return uint64(time.Now().UnixNano())
}

// Create a synthesizer with a source seeded with the given value.
func New(background float32, seed uint64) (*Synthesizer, error) {
	s := &Synthesizer{Background: background, Src: NewSource(seed)}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Synthesizer) validate() error {
	if !(s.Background >= 0) {
		return fmt.Errorf("%w: background noise must be non-negative; got %g", config.ErrInvalidConfiguration, s.Background)
	}
	if s.Src == nil {
		return fmt.Errorf("%w: noise synthesizer requires a random source", config.ErrInvalidConfiguration)
	}
	return nil
}

// Add the background term to every pixel in place.
func (s *Synthesizer) AddBackground(expected *frame.Buffer) error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.Background == 0 {
		return nil
	}
	for index := range expected.Pix {
		expected.Pix[index] += s.Background
	}
	return nil
}

// Draw a Poisson sample for every pixel using the pixel value as the rate.
// The rates are left untouched; samples go to a new buffer.
func (s *Synthesizer) Sample(rates *frame.Buffer) (*frame.Buffer, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	out := frame.New(rates.Width, rates.Height, rates.Scenarios)
	dist := distuv.Poisson{Src: s.Src}
	for index, lambda := range rates.Pix {
		switch {
		case lambda == 0:
			// A zero rate always yields zero photons.
		case lambda > 0:
			dist.Lambda = float64(lambda)
			out.Pix[index] = float32(dist.Rand())
		default:
			return nil, fmt.Errorf("%w: negative photon rate %g at pixel %d", config.ErrInvalidConfiguration, lambda, index)
		}
	}
	return out, nil
}

// Add the background and draw the stochastic counts.
func (s *Synthesizer) Apply(expected *frame.Buffer) (*frame.Buffer, error) {
	if err := s.AddBackground(expected); err != nil {
		return nil, err
	}
	return s.Sample(expected)
}
