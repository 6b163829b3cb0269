package operations

import (
	"image"

	"github.com/disintegration/imaging"
)

const regionBlurSigma = 20

type RegionBlurrer struct{}

func NewRegionBlurrer() *RegionBlurrer {
	return &RegionBlurrer{}
}

// Apply blurs intensity/10 random rectangles, each spanning 10-30% of the
// width and height.
func (b *RegionBlurrer) Apply(img image.Image, p Params) (*image.NRGBA, error) {
	dst := imaging.Clone(img)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()

	count := min(max(p.Intensity, 0), 100) / 10
	for i := 0; i < count; i++ {
		rw := max(1, int(float64(w)*(0.1+0.2*p.Rand.Float64())))
		rh := max(1, int(float64(h)*(0.1+0.2*p.Rand.Float64())))
		x := p.Rand.IntN(w - rw + 1)
		y := p.Rand.IntN(h - rh + 1)

		region := imaging.Crop(dst, image.Rect(x, y, x+rw, y+rh))
		dst = imaging.Paste(dst, imaging.Blur(region, regionBlurSigma), image.Pt(x, y))
	}
	return dst, nil
}
