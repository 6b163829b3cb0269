package operations

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	maxHueRotation      = 180.0
	maxSaturationJitter = 0.5
	maxBrightnessJitter = 0.3
	maxTintOffset       = 40.0

	lumaR, lumaG, lumaB = 0.213, 0.715, 0.072
)

type ColorShifter struct{}

func NewColorShifter() *ColorShifter {
	return &ColorShifter{}
}

// Apply rotates the hue by up to 180 degrees and jitters saturation,
// brightness and tint, all scaled by intensity.
func (c *ColorShifter) Apply(img image.Image, p Params) (*image.NRGBA, error) {
	k := p.strength()
	if k == 0 {
		return imaging.Clone(img), nil
	}

	hue := hueMatrix(k * maxHueRotation * math.Pi / 180)
	saturation := 1 + jitter(p, maxSaturationJitter*k)
	brightness := 1 + jitter(p, maxBrightnessJitter*k)
	tint := [3]float64{
		jitter(p, maxTintOffset*k),
		jitter(p, maxTintOffset*k),
		jitter(p, maxTintOffset*k),
	}

	// The random draws happen above; AdjustFunc runs the closure in parallel.
	return imaging.AdjustFunc(img, func(px color.NRGBA) color.NRGBA {
		r, g, b := float64(px.R), float64(px.G), float64(px.B)

		r, g, b = hue[0]*r+hue[1]*g+hue[2]*b,
			hue[3]*r+hue[4]*g+hue[5]*b,
			hue[6]*r+hue[7]*g+hue[8]*b

		luma := lumaR*r + lumaG*g + lumaB*b
		r = luma + (r-luma)*saturation
		g = luma + (g-luma)*saturation
		b = luma + (b-luma)*saturation

		return color.NRGBA{
			R: clamp8(r*brightness + tint[0]),
			G: clamp8(g*brightness + tint[1]),
			B: clamp8(b*brightness + tint[2]),
			A: px.A,
		}
	}), nil
}

// hueMatrix is the luminance-preserving hue rotation used by SVG/CSS
// hue-rotate.
func hueMatrix(rad float64) [9]float64 {
	cos, sin := math.Cos(rad), math.Sin(rad)
	return [9]float64{
		lumaR + cos*(1-lumaR) - sin*lumaR,
		lumaG - cos*lumaG - sin*lumaG,
		lumaB - cos*lumaB + sin*(1-lumaB),

		lumaR - cos*lumaR + sin*0.143,
		lumaG + cos*(1-lumaG) + sin*0.140,
		lumaB - cos*lumaB - sin*0.283,

		lumaR - cos*lumaR - sin*(1-lumaR),
		lumaG - cos*lumaG + sin*lumaG,
		lumaB + cos*(1-lumaB) + sin*lumaB,
	}
}

// jitter returns a uniform value in [-limit, limit].
func jitter(p Params, limit float64) float64 {
	return (p.Rand.Float64()*2 - 1) * limit
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
