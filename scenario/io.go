package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/psfgen/psfgen/resource"
)

// Wire representation of a scenario file. Pointer fields let us tell an
// absent value apart from an explicit zero.
type rawFile struct {
	Width      *float64      `json:"width"`
	Height     *float64      `json:"height"`
	Usable     *float64      `json:"usable"`
	Gap        *float64      `json:"gap"`
	Noise      *float64      `json:"noise"`
	Wavelength *float64      `json:"wavelength"`
	Scenarios  []rawScenario `json:"scenarios"`
}

type rawScenario struct {
	Particles *[]rawParticle `json:"particles"`
}

type rawParticle struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Intensity *float64 `json:"intensity"`
	Width     *float64 `json:"width"`
}

type jsonFile struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Usable     float64        `json:"usable"`
	Gap        float64        `json:"gap"`
	Noise      float64        `json:"noise"`
	Wavelength float64        `json:"wavelength"`
	Scenarios  []jsonScenario `json:"scenarios"`
}

type jsonScenario struct {
	Particles []jsonParticle `json:"particles"`
}

type jsonParticle struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Intensity float64 `json:"intensity"`
	Width     float64 `json:"width"`
}

// Load a scenario file from a local path or http(s) URL.
func Load(path string) (*File, error) {
	f, err := resource.Open(context.Background(), path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sf, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sf, nil
}

// Image dims may be written as integral floats (24.0).
func pixelCount(field string, v float64) (int, error) {
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, &FieldError{Scenario: -1, Particle: -1, Field: field, Err: fmt.Errorf("%w: %g is not a valid pixel count", ErrMalformedScenario, v)}
	}
	return int(v), nil
}

// Parse a JSON scenario file. Every header field and every particle field
// is required; the first absent one is reported as ErrMissingField.
func Decode(r io.Reader) (*File, error) {
	var raw rawFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("scenario: could not parse scenario file: %w", err)
	}

	missing := func(field string) error {
		return &FieldError{Scenario: -1, Particle: -1, Field: field, Err: ErrMissingField}
	}
	switch {
	case raw.Width == nil:
		return nil, missing("width")
	case raw.Height == nil:
		return nil, missing("height")
	case raw.Usable == nil:
		return nil, missing("usable")
	case raw.Gap == nil:
		return nil, missing("gap")
	case raw.Noise == nil:
		return nil, missing("noise")
	case raw.Wavelength == nil:
		return nil, missing("wavelength")
	case raw.Scenarios == nil:
		return nil, missing("scenarios")
	}

	width, err := pixelCount("width", *raw.Width)
	if err != nil {
		return nil, err
	}
	height, err := pixelCount("height", *raw.Height)
	if err != nil {
		return nil, err
	}

	sf := &File{
		Header: Header{
			Width:      width,
			Height:     height,
			Usable:     *raw.Usable,
			Gap:        *raw.Gap,
			Noise:      *raw.Noise,
			Wavelength: *raw.Wavelength,
		},
		Scenarios: make([]Scenario, len(raw.Scenarios)),
	}

	for sIndex, rs := range raw.Scenarios {
		if rs.Particles == nil {
			return nil, &FieldError{Scenario: sIndex, Particle: -1, Field: "particles", Err: ErrMissingField}
		}

		emitters := make([]Emitter, len(*rs.Particles))
		for pIndex, rp := range *rs.Particles {
			field := ""
			switch {
			case rp.X == nil:
				field = "x"
			case rp.Y == nil:
				field = "y"
			case rp.Intensity == nil:
				field = "intensity"
			case rp.Width == nil:
				field = "width"
			}
			if field != "" {
				return nil, &FieldError{Scenario: sIndex, Particle: pIndex, Field: field, Err: ErrMissingField}
			}

			emitters[pIndex] = Emitter{
				X:         float32(*rp.X),
				Y:         float32(*rp.Y),
				Intensity: float32(*rp.Intensity),
				Width:     float32(*rp.Width),
			}
		}
		sf.Scenarios[sIndex].Emitters = emitters
	}

	return sf, nil
}

// Serialize a scenario file as JSON.
func Encode(w io.Writer, sf *File) error {
	out := jsonFile{
		Width:      sf.Width,
		Height:     sf.Height,
		Usable:     sf.Usable,
		Gap:        sf.Gap,
		Noise:      sf.Noise,
		Wavelength: sf.Wavelength,
		Scenarios:  make([]jsonScenario, len(sf.Scenarios)),
	}

	for sIndex, sc := range sf.Scenarios {
		particles := make([]jsonParticle, len(sc.Emitters))
		for pIndex, em := range sc.Emitters {
			particles[pIndex] = jsonParticle{
				X:         float64(em.X),
				Y:         float64(em.Y),
				Intensity: float64(em.Intensity),
				Width:     float64(em.Width),
			}
		}
		out.Scenarios[sIndex].Particles = particles
	}

	return json.NewEncoder(w).Encode(&out)
}

// Write a scenario file to disk. Existing files are only replaced if
// overwrite is set.
func Save(path string, sf *File, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return err
	}

	if err = Encode(f, sf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
