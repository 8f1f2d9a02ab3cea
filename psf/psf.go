// Package psf provides the point-spread models used to integrate the
// expected photon density of an emitter over a sensor pixel.
package psf

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var ErrUnknownModel = errors.New("psf: unknown point-spread model")

// A radially symmetric, non-negative point-spread model.
//
// Intensity returns the photon density per unit area at the given radial
// distance from a unit-intensity emitter. Integrated over the whole plane
// the density adds up to (approximately) 1.
type Model interface {
	// The model name; also selects the matching opencl implementation.
	Name() string

	Intensity(distance, width, wavenumber float32) float32
}

var registry = map[string]Model{
	"airy":     Airy{},
	"gaussian": Gaussian{},
}

// Lookup a model by name.
func Lookup(name string) (Model, error) {
	if m, ok := registry[strings.ToLower(name)]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownModel, name, strings.Join(Names(), ", "))
}

// Get the sorted list of registered model names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const fourPi = float32(4 * math.Pi)

// Airy disk pattern of a diffraction limited circular aperture:
//
//	I(r) = (kw)²/(4π) · [2·J1(kwr) / (kwr)]²
//
// where w plays the role of the numerical aperture.
type Airy struct{}

func (Airy) Name() string { return "airy" }

func (Airy) Intensity(distance, width, wavenumber float32) float32 {
	kw := wavenumber * width
	norm := kw * kw / fourPi

	v := kw * distance
	if v < 1e-6 {
		return norm
	}

	j := 2 * BesselJ1(v) / v
	return norm * j * j
}

// Gaussian approximation of the Airy disk with σ = 1.3195 / (kw), i.e.
// σ ≈ 0.21 λ / w.
type Gaussian struct{}

func (Gaussian) Name() string { return "gaussian" }

func (Gaussian) Intensity(distance, width, wavenumber float32) float32 {
	sigma := 1.3195 / (wavenumber * width)
	s2 := sigma * sigma
	return float32(math.Exp(float64(-distance*distance/(2*s2)))) / (2 * math.Pi * s2)
}

// Bessel function of the first kind of order one, evaluated in single
// precision with the rational/asymptotic approximations of Numerical Recipes
// (bessj1). The opencl program uses the same coefficients.
func BesselJ1(x float32) float32 {
	ax := x
	if ax < 0 {
		ax = -ax
	}

	if ax < 8 {
		y := x * x
		num := x * (72362614232.0 + y*(-7895059235.0+y*(242396853.1+y*(-2972611.439+y*(15704.48260+y*(-30.16036606))))))
		den := 144725228442.0 + y*(2300535178.0+y*(18583304.74+y*(99447.43394+y*(376.9991397+y*1.0))))
		return num / den
	}

	z := 8 / ax
	y := z * z
	xx := ax - 2.356194491
	p := 1.0 + y*(0.183105e-2+y*(-0.3516396496e-4+y*(0.2457520174e-5+y*(-0.240337019e-6))))
	q := 0.04687499995 + y*(-0.2002690873e-3+y*(0.8449199096e-5+y*(-0.88228987e-6+y*0.105787412e-6)))
	ans := float32(math.Sqrt(float64(0.636619772/ax))) *
		(float32(math.Cos(float64(xx)))*p - z*float32(math.Sin(float64(xx)))*q)
	if x < 0 {
		ans = -ans
	}
	return ans
}
