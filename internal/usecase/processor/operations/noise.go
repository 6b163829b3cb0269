package operations

import (
	"image"

	"github.com/disintegration/imaging"
)

type Noiser struct{}

func NewNoiser() *Noiser {
	return &Noiser{}
}

// Apply builds a monochrome noise layer centred on mid grey, with a deviation
// scaled by intensity, and overlay-blends it onto the image. Grey level 128
// is neutral.
func (n *Noiser) Apply(img image.Image, p Params) (*image.NRGBA, error) {
	dst := imaging.Clone(img)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()

	deviation := 0.5 * p.strength()
	if deviation == 0 {
		return dst, nil
	}
	layer := image.NewGray(image.Rect(0, 0, w, h))
	for i := range layer.Pix {
		layer.Pix[i] = clamp8((0.5 + (p.Rand.Float64()*2-1)*deviation) * 255)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			noise := 0.5 + (float64(layer.Pix[y*layer.Stride+x])-128)/255
			i := y*dst.Stride + x*4
			for c := 0; c < 3; c++ {
				dst.Pix[i+c] = clamp8(overlay(float64(dst.Pix[i+c])/255, noise) * 255)
			}
		}
	}
	return dst, nil
}

func overlay(base, blend float64) float64 {
	if base < 0.5 {
		return 2 * base * blend
	}
	return 1 - 2*(1-base)*(1-blend)
}
