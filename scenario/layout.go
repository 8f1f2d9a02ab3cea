package scenario

import "fmt"

// Layout stores all emitters of a scenario list in one contiguous set of
// parallel arrays. Scenario i owns the emitter range
// [Offset[i], Offset[i]+Count[i]).
//
// The int32/float32 element types match the device buffer contract of the
// pixelPSF kernel.
type Layout struct {
	Offset []int32
	Count  []int32

	X         []float32
	Y         []float32
	Intensity []float32
	Width     []float32
}

// Pack scenarios into a Layout preserving scenario order and the emitter
// order within each scenario. If requireEmitters is set, a scenario without
// emitters is reported as ErrMalformedScenario instead of being packed as an
// empty range.
func Flatten(scenarios []Scenario, requireEmitters bool) (*Layout, error) {
	total := 0
	for index, sc := range scenarios {
		if requireEmitters && len(sc.Emitters) == 0 {
			return nil, &FieldError{Scenario: index, Particle: -1, Field: "particles", Err: ErrMalformedScenario}
		}
		total += len(sc.Emitters)
	}

	l := &Layout{
		Offset:    make([]int32, len(scenarios)),
		Count:     make([]int32, len(scenarios)),
		X:         make([]float32, 0, total),
		Y:         make([]float32, 0, total),
		Intensity: make([]float32, 0, total),
		Width:     make([]float32, 0, total),
	}

	var next int32
	for index, sc := range scenarios {
		l.Offset[index] = next
		l.Count[index] = int32(len(sc.Emitters))
		next += int32(len(sc.Emitters))

		for _, em := range sc.Emitters {
			l.X = append(l.X, em.X)
			l.Y = append(l.Y, em.Y)
			l.Intensity = append(l.Intensity, em.Intensity)
			l.Width = append(l.Width, em.Width)
		}
	}

	return l, nil
}

// Get the number of packed scenarios.
func (l *Layout) ScenarioCount() int {
	return len(l.Offset)
}

// Get the number of packed emitters.
func (l *Layout) EmitterCount() int {
	return len(l.X)
}

// Get the half-open emitter index range owned by a scenario.
func (l *Layout) Range(scenario int) (first, last int) {
	first = int(l.Offset[scenario])
	return first, first + int(l.Count[scenario])
}

// Check the offset/count invariants: offsets start at zero, each offset
// follows the previous range and the counts add up to the emitter arrays.
func (l *Layout) Validate() error {
	if len(l.Offset) != len(l.Count) {
		return fmt.Errorf("scenario: layout has %d offsets but %d counts", len(l.Offset), len(l.Count))
	}

	n := len(l.X)
	if len(l.Y) != n || len(l.Intensity) != n || len(l.Width) != n {
		return fmt.Errorf("scenario: layout emitter arrays have mismatched lengths")
	}

	var next int32
	for index := range l.Offset {
		if l.Offset[index] != next {
			return fmt.Errorf("scenario: layout offset %d is %d; expected %d", index, l.Offset[index], next)
		}
		if l.Count[index] < 0 {
			return fmt.Errorf("scenario: layout count %d is negative", index)
		}
		next += l.Count[index]
	}

	if int(next) != n {
		return fmt.Errorf("scenario: layout counts add up to %d; emitter arrays hold %d", next, n)
	}

	return nil
}
