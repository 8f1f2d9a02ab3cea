// Package scenario defines the declarative emitter scenarios that drive a
// render and the flat, GPU-friendly layout they are packed into.
package scenario

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedScenario = errors.New("scenario: malformed scenario")
	ErrMissingField      = errors.New("scenario: missing required field")
)

// A point light source. Positions are expressed in the same physical units
// as the sensor geometry (typically nanometers).
type Emitter struct {
	X, Y float32

	// Expected total photon count.
	Intensity float32

	// Point-spread width parameter.
	Width float32
}

// An independent rendering unit; maps to one output image page.
type Scenario struct {
	Emitters []Emitter
}

// The sensor and optics parameters shared by every scenario in a file.
type Header struct {
	Width      int
	Height     int
	Usable     float64
	Gap        float64
	Noise      float64
	Wavelength float64
}

// The in-memory representation of a scenario file.
type File struct {
	Header
	Scenarios []Scenario
}

// Locates a bad record inside a scenario file. Scenario is -1 for header
// fields and Particle is -1 for errors that concern a whole scenario.
type FieldError struct {
	Scenario int
	Particle int
	Field    string
	Err      error
}

func (e *FieldError) Error() string {
	switch {
	case e.Scenario < 0:
		return fmt.Sprintf("%s: header field %q", e.Err, e.Field)
	case e.Particle < 0:
		return fmt.Sprintf("%s: scenario %d", e.Err, e.Scenario)
	}
	return fmt.Sprintf("%s: scenario %d, particle %d, field %q", e.Err, e.Scenario, e.Particle, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Return the total number of emitters across all scenarios.
func (f *File) EmitterCount() int {
	total := 0
	for _, sc := range f.Scenarios {
		total += len(sc.Emitters)
	}
	return total
}
